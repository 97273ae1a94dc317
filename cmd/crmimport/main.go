package main

import (
	_ "github.com/JonMunkholm/crmimport/internal/core/schemas" // Register contacts and properties
)

func main() {
	Execute()
}
