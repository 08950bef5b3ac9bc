package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/qualitylens/internal/analysis"
	"github.com/KaramelBytes/qualitylens/internal/pipeline"
	"github.com/KaramelBytes/qualitylens/internal/report"
	"github.com/KaramelBytes/qualitylens/internal/table"
	"github.com/spf13/cobra"
)

var (
	anaDataDir    string
	anaEnvFile    string
	anaQualFile   string
	anaTimeColumn string
	anaOutputPath string
	anaChartsDir  string
	anaNoCharts   bool
	anaMissing    string
	anaHeadRows   int
	anaSeries     string
	anaScatterX   string
	anaScatterY   string
	anaWidth      float64
	anaHeight     float64
	anaDelimiter  string
	anaDecimal    string
	anaThousands  string
	anaSheetName  string
	anaSheetIndex int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [env-file quality-file]",
	Short: "Align environment and quality data on time and report correlations and PCA",
	Long: `Loads the environment and quality datasets from the data directory, normalizes
their shared time column, joins them on it and reports descriptive statistics,
the Pearson correlation matrix and a principal-component analysis of all
numeric columns. Charts are written to <charts-dir>/<run-id>/.`,
	Args: cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		f := cmd.Flags()

		dataDir := pick(f.Changed("data-dir"), anaDataDir, c.DataDir)
		envFile := pick(f.Changed("env"), anaEnvFile, c.EnvFile)
		qualFile := pick(f.Changed("quality"), anaQualFile, c.QualityFile)
		if len(args) > 0 {
			envFile = args[0]
		}
		if len(args) > 1 {
			qualFile = args[1]
		}
		if envFile == "" || qualFile == "" {
			return fmt.Errorf("both an environment and a quality file are required")
		}

		lopt, err := loadOptions(
			pick(f.Changed("delimiter"), anaDelimiter, c.Delimiter),
			pick(f.Changed("decimal"), anaDecimal, c.Decimal),
			pick(f.Changed("thousands"), anaThousands, c.Thousands),
			pick(f.Changed("sheet-name"), anaSheetName, c.SheetName),
			pickInt(f.Changed("sheet-index"), anaSheetIndex, c.SheetIndex),
		)
		if err != nil {
			return err
		}
		policy, err := analysis.ParseMissingPolicy(pick(f.Changed("missing"), anaMissing, c.MissingPolicy))
		if err != nil {
			return err
		}

		w := &report.Writer{
			Out:        cmd.OutOrStdout(),
			OutputPath: anaOutputPath,
			ChartsDir:  pick(f.Changed("charts-dir"), anaChartsDir, c.ChartsDir),
			HeadRows:   pickInt(f.Changed("head-rows"), anaHeadRows, c.HeadRows),
			Width:      pickFloat(f.Changed("chart-width"), anaWidth, c.ChartWidthIn),
			Height:     pickFloat(f.Changed("chart-height"), anaHeight, c.ChartHeightIn),
			Status:     cmd.OutOrStdout(),
		}
		if anaNoCharts {
			w.ChartsDir = ""
		}
		if anaOutputPath == "" {
			// Markdown goes to stdout; keep confirmations off it
			w.Status = cmd.ErrOrStderr()
		}

		runner := &pipeline.Runner{
			Loader:    table.DirLoader{Dir: dataDir, Options: lopt},
			Presenter: w,
			Debugf:    debugf,
		}
		debugf("data dir %s, env %s, quality %s, policy %s", dataDir, envFile, qualFile, policy)
		rep, err := runner.Run(pipeline.Input{
			EnvFile:     envFile,
			QualityFile: qualFile,
			TimeColumn:  pick(f.Changed("time-column"), anaTimeColumn, c.TimeColumn),
			Series:      anaSeries,
			ScatterX:    anaScatterX,
			ScatterY:    anaScatterY,
			Analysis:    analysis.Options{Missing: policy},
		})
		if err != nil {
			return err
		}
		for _, msg := range rep.Warnings {
			warnf("%s", msg)
		}
		debugf("run %s finished", rep.RunID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&anaDataDir, "data-dir", "", "directory holding the input files (overrides config)")
	analyzeCmd.Flags().StringVar(&anaEnvFile, "env", "", "environment dataset file name (CSV/TSV/XLSX)")
	analyzeCmd.Flags().StringVar(&anaQualFile, "quality", "", "quality dataset file name (CSV/TSV/XLSX)")
	analyzeCmd.Flags().StringVarP(&anaTimeColumn, "time-column", "t", "", "shared timestamp column (auto-detected if omitted)")
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the report (Markdown)")
	analyzeCmd.Flags().StringVar(&anaChartsDir, "charts-dir", "", "parent directory for per-run chart folders")
	analyzeCmd.Flags().BoolVar(&anaNoCharts, "no-charts", false, "skip PNG chart rendering")
	analyzeCmd.Flags().StringVar(&anaMissing, "missing", "", "correlation rows with gaps: pairwise|listwise")
	analyzeCmd.Flags().IntVar(&anaHeadRows, "head-rows", 5, "merged rows to preview in the report (0 = none)")
	analyzeCmd.Flags().StringVar(&anaSeries, "series", "", "numeric column to plot over time")
	analyzeCmd.Flags().StringVar(&anaScatterX, "scatter-x", "", "x column of the scatter chart")
	analyzeCmd.Flags().StringVar(&anaScatterY, "scatter-y", "", "y column of the scatter chart")
	analyzeCmd.Flags().Float64Var(&anaWidth, "chart-width", 6, "chart width in inches")
	analyzeCmd.Flags().Float64Var(&anaHeight, "chart-height", 4, "chart height in inches")
	addLoadFlags(analyzeCmd, &anaDelimiter, &anaDecimal, &anaThousands, &anaSheetName, &anaSheetIndex)
}

func addLoadFlags(c *cobra.Command, delim, decimal, thousands, sheetName *string, sheetIndex *int) {
	c.Flags().StringVar(delim, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (sniffed if omitted)")
	c.Flags().StringVar(decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	c.Flags().StringVar(thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	c.Flags().StringVar(sheetName, "sheet-name", "", "XLSX: sheet name to read")
	c.Flags().IntVar(sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}

// loadOptions translates the separator and sheet settings into loader options.
func loadOptions(delim, decimal, thousands, sheetName string, sheetIndex int) (table.LoadOptions, error) {
	opt := table.DefaultLoadOptions()
	switch delim {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", delim)
	}
	switch strings.ToLower(strings.TrimSpace(decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", decimal)
	}
	switch strings.ToLower(strings.TrimSpace(thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", thousands)
	}
	opt.SheetName = sheetName
	if sheetIndex > 0 {
		opt.SheetIndex = sheetIndex
	}
	return opt, nil
}

func pick(changed bool, flag, fallback string) string {
	if changed {
		return flag
	}
	return fallback
}

func pickInt(changed bool, flag, fallback int) int {
	if changed {
		return flag
	}
	return fallback
}

func pickFloat(changed bool, flag, fallback float64) float64 {
	if changed {
		return flag
	}
	return fallback
}
