package cmd

import (
	"fmt"

	"github.com/KaramelBytes/qualitylens/internal/pipeline"
	"github.com/KaramelBytes/qualitylens/internal/table"
	"github.com/spf13/cobra"
)

var (
	colDataDir    string
	colDelimiter  string
	colDecimal    string
	colThousands  string
	colSheetName  string
	colSheetIndex int
)

var columnsCmd = &cobra.Command{
	Use:   "columns <file...>",
	Short: "List the columns and inferred kinds of one or more datasets",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		f := cmd.Flags()
		lopt, err := loadOptions(
			pick(f.Changed("delimiter"), colDelimiter, c.Delimiter),
			pick(f.Changed("decimal"), colDecimal, c.Decimal),
			pick(f.Changed("thousands"), colThousands, c.Thousands),
			pick(f.Changed("sheet-name"), colSheetName, c.SheetName),
			pickInt(f.Changed("sheet-index"), colSheetIndex, c.SheetIndex),
		)
		if err != nil {
			return err
		}
		l := table.DirLoader{Dir: pick(f.Changed("data-dir"), colDataDir, c.DataDir), Options: lopt}
		out := cmd.OutOrStdout()
		for i, name := range args {
			t, err := l.Load(name)
			if err != nil {
				return err
			}
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "%s (%d rows)\n", t.Name, t.Len())
			for j, col := range t.Columns {
				missing := 0
				for _, row := range t.Rows {
					if row[j].IsMissing() {
						missing++
					}
				}
				fmt.Fprintf(out, "- %s: %s (non-null %d, missing %d)\n", col.Name, col.Kind, t.Len()-missing, missing)
			}
			fmt.Fprintf(out, "Suggested time column: %s\n", pipeline.SuggestTimeColumn(t))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(columnsCmd)
	columnsCmd.Flags().StringVar(&colDataDir, "data-dir", "", "directory holding the input files (overrides config)")
	addLoadFlags(columnsCmd, &colDelimiter, &colDecimal, &colThousands, &colSheetName, &colSheetIndex)
}
