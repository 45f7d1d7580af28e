// Package config loads matchcore's AppConfig from YAML with environment
// variable expansion, grounded on the teacher's config.Load.
package config

import (
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/lattice-markets/matchcore/pkg/cache"
	"github.com/lattice-markets/matchcore/pkg/events"
)

// EngineConfig holds the tunables matchingengine.Config is built from.
type EngineConfig struct {
	MakerFeeBps           string `yaml:"maker_fee_bps"`
	TakerFeeBps           string `yaml:"taker_fee_bps"`
	RecentTradesLimit     int    `yaml:"recent_trades_limit"`
	MaxSignificantDigits  int    `yaml:"max_significant_digits"`
	MaxDecimalPlaces      int    `yaml:"max_decimal_places"`
	PersistPath           string `yaml:"persist_path"`
	PersistIntervalSeconds int   `yaml:"persist_interval_seconds"`
	Symbols               []string `yaml:"symbols"`
}

// AppConfig is the root configuration document.
type AppConfig struct {
	ServiceName string          `yaml:"service_name"`
	LogLevel    string          `yaml:"log_level"`
	Engine      EngineConfig    `yaml:"engine"`
	Redis       *cache.Config   `yaml:"redis"`
	Kafka       *events.KafkaConfig `yaml:"kafka"`
}

// Load reads and parses the YAML config at filePath, expanding ${ENV_VAR}
// references first, matching the teacher's os.ExpandEnv step.
func Load(filePath string) (*AppConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	sugar := zap.S().With("func", "config.Load", "file_path", filePath)
	sugar.Debug("loading config")

	raw, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("failed to read config file")
		return nil, err
	}
	raw = []byte(os.ExpandEnv(string(raw)))

	cfg := &AppConfig{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		sugar.Error("failed to parse config file")
		return nil, err
	}
	applyDefaults(cfg)

	sugar.Debugf("config: %+v", cfg)
	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Engine.MakerFeeBps == "" {
		cfg.Engine.MakerFeeBps = "-1.0"
	}
	if cfg.Engine.TakerFeeBps == "" {
		cfg.Engine.TakerFeeBps = "2.5"
	}
	if cfg.Engine.RecentTradesLimit == 0 {
		cfg.Engine.RecentTradesLimit = 1000
	}
	if cfg.Engine.MaxSignificantDigits == 0 {
		cfg.Engine.MaxSignificantDigits = 16
	}
	if cfg.Engine.MaxDecimalPlaces == 0 {
		cfg.Engine.MaxDecimalPlaces = 8
	}
	if cfg.Engine.PersistPath == "" {
		cfg.Engine.PersistPath = "state/state.json"
	}
	if cfg.Engine.PersistIntervalSeconds == 0 {
		cfg.Engine.PersistIntervalSeconds = 5
	}
}
