// Package config loads engine configuration from flags, environment and an
// optional YAML file.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "SOULSHEPHERD"

type Config struct {
	DataDir     string     `mapstructure:"data_dir"`
	DBPath      string     `mapstructure:"db_path"`
	JournalDir  string     `mapstructure:"journal_dir"`
	CatalogPath string     `mapstructure:"catalog_path"` // optional YAML boss catalog override
	Seed        uint64     `mapstructure:"seed"`         // 0 draws a random seed
	Log         LogConfig  `mapstructure:"log"`
	Save        SaveConfig `mapstructure:"save"`
	Idle        IdleConfig `mapstructure:"idle"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
	File  string `mapstructure:"file"`
}

// SaveConfig controls durable write retries.
type SaveConfig struct {
	MaxRetries      int           `mapstructure:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
}

type IdleConfig struct {
	ThresholdSeconds int           `mapstructure:"threshold_seconds"`
	TickInterval     time.Duration `mapstructure:"tick_interval"`
}

func Defaults() Config {
	return Config{
		DataDir: ".soulshepherd",
		Log:     LogConfig{Level: "info"},
		Save: SaveConfig{
			MaxRetries:      3,
			InitialInterval: 100 * time.Millisecond,
			Multiplier:      2,
		},
		Idle: IdleConfig{
			ThresholdSeconds: 120,
			TickInterval:     time.Minute,
		},
	}
}

// New builds a config rooted at dataDir with every other value defaulted.
func New(dataDir string) (Config, error) {
	cfg := Defaults()
	cfg.DataDir = dataDir
	return cfg.finalize()
}

// SetDefaults registers default values on v so unset keys resolve.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("db_path", "")
	v.SetDefault("journal_dir", "")
	v.SetDefault("catalog_path", "")
	v.SetDefault("seed", 0)
	v.SetDefault("log.file", "")
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("save.max_retries", d.Save.MaxRetries)
	v.SetDefault("save.initial_interval", d.Save.InitialInterval)
	v.SetDefault("save.multiplier", d.Save.Multiplier)
	v.SetDefault("idle.threshold_seconds", d.Idle.ThresholdSeconds)
	v.SetDefault("idle.tick_interval", d.Idle.TickInterval)
}

// Load resolves configuration from v. When configFile is empty, an optional
// config.yaml inside the data dir is read.
func Load(v *viper.Viper, configFile string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.AddConfigPath(v.GetString("data_dir"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg.finalize()
}

func (c Config) finalize() (Config, error) {
	if strings.TrimSpace(c.DataDir) == "" {
		return Config{}, fmt.Errorf("data dir is required")
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "soulshepherd.db")
	}
	if c.JournalDir == "" {
		c.JournalDir = filepath.Join(c.DataDir, "journal")
	}
	if c.Save.MaxRetries < 0 {
		return Config{}, fmt.Errorf("save.max_retries must be non-negative")
	}
	if c.Save.InitialInterval <= 0 {
		return Config{}, fmt.Errorf("save.initial_interval must be positive")
	}
	if c.Save.Multiplier < 1 {
		return Config{}, fmt.Errorf("save.multiplier must be at least 1")
	}
	if c.Idle.ThresholdSeconds < 15 {
		return Config{}, fmt.Errorf("idle.threshold_seconds must be at least 15")
	}
	if c.Idle.TickInterval <= 0 {
		return Config{}, fmt.Errorf("idle.tick_interval must be positive")
	}
	return c, nil
}
