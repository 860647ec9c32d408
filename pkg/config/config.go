package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

const (
	BackendDir    = "dir"
	BackendSQLite = "sqlite"
)

type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Cache   CacheConfig   `yaml:"cache"`
	Log     LogConfig     `yaml:"log"`
}

type StorageConfig struct {
	Path       string `yaml:"path"`        // history root, or the sqlite file
	Backend    string `yaml:"backend"`     // dir | sqlite
	RecordFile string `yaml:"record_file"` // file read inside each record directory
}

type CacheConfig struct {
	Retain int `yaml:"retain"` // records kept strongly reachable; 0 keeps none
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:       "history",
			Backend:    BackendDir,
			RecordFile: "record.yaml",
		},
		Cache: CacheConfig{
			Retain: 128,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath == "" {
		for _, p := range []string{"configs/history.yaml", "history.yaml"} {
			data, err := os.ReadFile(p)
			if err == nil {
				if err := yaml.Unmarshal(data, cfg); err != nil {
					return cfg, err
				}
				applyDefaults(cfg)
				return cfg, nil
			}
		}
		applyDefaults(cfg)
		return cfg, nil // no file found: use defaults
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "history"
	}
	if cfg.Storage.Backend != BackendDir && cfg.Storage.Backend != BackendSQLite {
		cfg.Storage.Backend = BackendDir
	}
	if cfg.Storage.RecordFile == "" {
		cfg.Storage.RecordFile = "record.yaml"
	}
	if cfg.Cache.Retain < 0 {
		cfg.Cache.Retain = 0
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
