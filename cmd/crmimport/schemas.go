package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/crmimport/internal/core"
)

func init() {
	rootCmd.AddCommand(schemasCmd)
}

var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "List importable schemas and their fields",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printSchemas(cmd.OutOrStdout(), core.All())
		return nil
	},
}

func printSchemas(w io.Writer, schemas []*core.Schema) {
	for _, sc := range schemas {
		color.New(color.FgCyan, color.Bold).Fprintf(w, "\n%s (%s)\n", sc.Label, sc.Key)
		if sc.NaturalKey != "" {
			fmt.Fprintf(w, "duplicates matched on %s\n", sc.NaturalKey)
		}

		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Field", "Type", "Required", "Values"})
		table.SetAutoWrapText(false)
		for _, f := range sc.Fields {
			required := ""
			if f.Required {
				required = "yes"
			}
			table.Append([]string{f.Name, f.Type.String(), required, strings.Join(f.EnumValues, ", ")})
		}
		table.Render()
	}
}
