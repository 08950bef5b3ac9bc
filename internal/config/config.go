package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Inputs
	DataDir     string `mapstructure:"data_dir" yaml:"data_dir"`
	EnvFile     string `mapstructure:"env_file" yaml:"env_file"`
	QualityFile string `mapstructure:"quality_file" yaml:"quality_file"`
	TimeColumn  string `mapstructure:"time_column" yaml:"time_column"`

	// Parsing
	Delimiter  string `mapstructure:"delimiter" yaml:"delimiter"`
	Decimal    string `mapstructure:"decimal" yaml:"decimal"`
	Thousands  string `mapstructure:"thousands" yaml:"thousands"`
	SheetName  string `mapstructure:"sheet_name" yaml:"sheet_name"`
	SheetIndex int    `mapstructure:"sheet_index" yaml:"sheet_index"`

	// Analysis and output
	MissingPolicy string  `mapstructure:"missing_policy" yaml:"missing_policy"`
	HeadRows      int     `mapstructure:"head_rows" yaml:"head_rows"`
	ChartWidthIn  float64 `mapstructure:"chart_width_in" yaml:"chart_width_in"`
	ChartHeightIn float64 `mapstructure:"chart_height_in" yaml:"chart_height_in"`
	ChartsDir     string  `mapstructure:"charts_dir" yaml:"charts_dir"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"data_dir", "env_file", "quality_file", "time_column",
	"delimiter", "decimal", "thousands", "sheet_name", "sheet_index",
	"missing_policy", "head_rows", "chart_width_in", "chart_height_in", "charts_dir",
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".qualitylens"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.qualitylens/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := defaultDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults; command flags are applied by
// the caller on top.
func Load(cfgFile string) (*Global, error) {
	c, err := read(cfgFile, true)
	if err != nil {
		return nil, err
	}
	if c.ChartsDir == "" {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		c.ChartsDir = filepath.Join(dir, "charts")
	}
	return c, nil
}

// LoadFile returns the persisted configuration over the defaults, without
// environment overrides or derived paths. Use it as the base for Save.
func LoadFile(cfgFile string) (*Global, error) {
	return read(cfgFile, false)
}

func read(cfgFile string, withEnv bool) (*Global, error) {
	v := viper.New()
	if withEnv {
		v.SetEnvPrefix("QUALITYLENS")
		v.AutomaticEnv()
	}

	v.SetDefault("data_dir", ".")
	v.SetDefault("env_file", "environment.csv")
	v.SetDefault("quality_file", "quality.csv")
	v.SetDefault("time_column", "")
	v.SetDefault("delimiter", "")
	v.SetDefault("decimal", "")
	v.SetDefault("thousands", "")
	v.SetDefault("sheet_name", "")
	v.SetDefault("sheet_index", 1)
	v.SetDefault("missing_policy", "pairwise")
	v.SetDefault("head_rows", 5)
	v.SetDefault("chart_width_in", 6.0)
	v.SetDefault("chart_height_in", 4.0)
	v.SetDefault("charts_dir", "")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
