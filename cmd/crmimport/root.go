package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/crmimport/internal/config"
	"github.com/JonMunkholm/crmimport/internal/core"
	"github.com/JonMunkholm/crmimport/internal/logging"
)

var (
	storeDriver string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "crmimport",
	Short: "crmimport loads contacts and property listings from CSV, VCF, XML or JSON files",
	Long: `A headless front end to the import pipeline: parse a file, map its columns
to a schema, validate and deduplicate the rows, then create the records.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, "error:", core.FormatUserError(err))
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", "", "record store: postgres or memory (default from STORE_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")
}

// loadConfig reads .env and the environment. The --store flag wins over
// STORE_DRIVER. Logs go to stderr so reports on stdout stay clean.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()
	if storeDriver != "" {
		if err := os.Setenv("STORE_DRIVER", storeDriver); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logging.New(os.Stderr, logLevel, cfg.Logging.Format))
	return cfg, nil
}
