package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Chart dimensions below this render unreadable axis text.
const (
	minChartWidth  = 640
	minChartHeight = 400
)

// Config holds all report settings, populated from environment variables.
type Config struct {
	InputPath string `env:"INPUT_PATH" envDefault:"data/StormData.csv.bz2"`
	OutputDir string `env:"OUTPUT_DIR" envDefault:"out"`
	TopN      int    `env:"TOP_N" envDefault:"10"`
	BatchSize int    `env:"BATCH_SIZE" envDefault:"5000"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// MetricsFile, when set, receives the run's metrics in Prometheus
	// textfile-collector format.
	MetricsFile string `env:"METRICS_FILE"`

	ChartWidth  int    `env:"CHART_WIDTH" envDefault:"1400"`
	ChartHeight int    `env:"CHART_HEIGHT" envDefault:"900"`
	// ChartFont optionally points at a TTF file replacing the embedded face.
	ChartFont string `env:"CHART_FONT"`
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.InputPath == "" {
		return nil, errors.New("INPUT_PATH is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OUTPUT_DIR is required")
	}
	if cfg.TopN <= 0 {
		return nil, errors.New("TOP_N must be positive")
	}
	if cfg.BatchSize <= 0 {
		return nil, errors.New("BATCH_SIZE must be positive")
	}
	if cfg.ChartWidth < minChartWidth || cfg.ChartHeight < minChartHeight {
		return nil, fmt.Errorf("chart dimensions below minimum %dx%d", minChartWidth, minChartHeight)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q (want json or text)", cfg.LogFormat)
	}

	return cfg, nil
}
