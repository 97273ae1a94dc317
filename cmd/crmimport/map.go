package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/crmimport/internal/core"
	"github.com/JonMunkholm/crmimport/internal/parse"
)

var (
	mapSchema string
	mapFile   string
)

func init() {
	mapCmd.Flags().StringVar(&mapSchema, "schema", "", "target schema (contacts or properties)")
	mapCmd.Flags().StringVar(&mapFile, "file", "", "file to import")
	_ = mapCmd.MarkFlagRequired("schema")
	_ = mapCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(mapCmd)
}

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Show the column mapping proposed for a file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := core.Lookup(mapSchema)
		if err != nil {
			return err
		}
		table, _, err := readTable(mapFile)
		if err != nil {
			return err
		}
		printMapping(cmd.OutOrStdout(), table, core.AutoMap(table.Headers, sc))
		return nil
	},
}

// readTable parses a file in the format its name and content suggest.
func readTable(path string) (core.RawTable, parse.Format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.RawTable{}, "", fmt.Errorf("read %s: %w", path, err)
	}
	format := parse.Detect(path, data)
	table, err := parse.Parse(format, data)
	if err != nil {
		return core.RawTable{}, format, fmt.Errorf("%w: %s: %w", core.ErrUnreadableFile, path, err)
	}
	if table.Empty() {
		return core.RawTable{}, format, core.ErrEmptyFile
	}
	return table, format, nil
}

func printMapping(w io.Writer, t core.RawTable, m core.ColumnMapping) {
	out := tablewriter.NewWriter(w)
	out.SetHeader([]string{"Column", "Field", "Sample"})
	out.SetAutoWrapText(false)
	for _, h := range t.Headers {
		sample := ""
		if len(t.Rows) > 0 {
			sample = t.Rows[0][h]
		}
		out.Append([]string{h, m.Target(h), sample})
	}
	out.Render()

	fmt.Fprintf(w, "%d of %d columns mapped, %d rows\n", m.Mapped(), len(t.Headers), len(t.Rows))
	for _, warning := range m.ConflictWarnings(t.Headers) {
		color.New(color.FgYellow).Fprintln(w, "warning: "+warning)
	}
}
