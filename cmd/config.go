package cmd

import (
	"fmt"
	"strconv"

	"github.com/KaramelBytes/qualitylens/internal/analysis"
	cfgpkg "github.com/KaramelBytes/qualitylens/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set QualityLens configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "data_dir: %s\n", c.DataDir)
		fmt.Fprintf(out, "env_file: %s\n", c.EnvFile)
		fmt.Fprintf(out, "quality_file: %s\n", c.QualityFile)
		if c.TimeColumn != "" {
			fmt.Fprintf(out, "time_column: %s\n", c.TimeColumn)
		} else {
			fmt.Fprintln(out, "time_column: (auto)")
		}
		for _, kv := range [][2]string{{"delimiter", c.Delimiter}, {"decimal", c.Decimal}, {"thousands", c.Thousands}, {"sheet_name", c.SheetName}} {
			if kv[1] != "" {
				fmt.Fprintf(out, "%s: %s\n", kv[0], kv[1])
			}
		}
		fmt.Fprintf(out, "sheet_index: %d\n", c.SheetIndex)
		fmt.Fprintf(out, "missing_policy: %s\n", c.MissingPolicy)
		fmt.Fprintf(out, "head_rows: %d\n", c.HeadRows)
		fmt.Fprintf(out, "chart_width_in: %.2f\n", c.ChartWidthIn)
		fmt.Fprintf(out, "chart_height_in: %.2f\n", c.ChartHeightIn)
		fmt.Fprintf(out, "charts_dir: %s\n", c.ChartsDir)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		// start from the file alone so env overrides and the derived
		// charts dir are not persisted
		c, err := cfgpkg.LoadFile(cfgFile)
		if err != nil {
			return err
		}
		if err := setKey(c, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		if cfg, err = cfgpkg.Load(cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func setKey(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "data_dir":
		c.DataDir = val
	case "env_file":
		c.EnvFile = val
	case "quality_file":
		c.QualityFile = val
	case "time_column":
		c.TimeColumn = val
	case "delimiter", "decimal", "thousands":
		probe := map[string]string{key: val}
		if _, err := loadOptions(probe["delimiter"], probe["decimal"], probe["thousands"], "", 1); err != nil {
			return err
		}
		switch key {
		case "delimiter":
			c.Delimiter = val
		case "decimal":
			c.Decimal = val
		default:
			c.Thousands = val
		}
	case "sheet_name":
		c.SheetName = val
	case "sheet_index":
		i, err := strconv.Atoi(val)
		if err != nil || i < 1 {
			return fmt.Errorf("invalid sheet_index: %v (1-based)", val)
		}
		c.SheetIndex = i
	case "missing_policy":
		p, err := analysis.ParseMissingPolicy(val)
		if err != nil {
			return err
		}
		c.MissingPolicy = p.String()
	case "head_rows":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for head_rows: %v", val)
		}
		c.HeadRows = i
	case "chart_width_in", "chart_height_in":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("invalid size for %s: %v", key, val)
		}
		if key == "chart_width_in" {
			c.ChartWidthIn = f
		} else {
			c.ChartHeightIn = f
		}
	case "charts_dir":
		c.ChartsDir = val
	default:
		return fmt.Errorf("unknown key: %s (known: %v)", key, cfgpkg.Keys)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
