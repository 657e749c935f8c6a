package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"

	"github.com/mugpeng/droma-registry/pkg/harmonize"
)

const envPrefix = "DROMA_"

type config struct {
	Addr string `yaml:"addr" koanf:"addr" validate:"required"`
	// Source selects the canonical vocabulary: "vocab" (vocab_dir) or "db" (db_path).
	Source         string            `yaml:"source" koanf:"source" validate:"oneof=vocab db"`
	DBPath         string            `yaml:"db_path" koanf:"db_path" validate:"required_if=Source db"`
	VocabDir       string            `yaml:"vocab_dir" koanf:"vocab_dir" validate:"required_if=Source vocab"`
	RulesFile      string            `yaml:"rules_file" koanf:"rules_file"`
	LogLevel       string            `yaml:"log_level" koanf:"log_level" validate:"oneof=debug info warn error"`
	MaxNames       int               `yaml:"max_names" koanf:"max_names" validate:"gte=0"`
	RequestTimeout int               `yaml:"request_timeout_seconds" koanf:"request_timeout_seconds" validate:"gte=0"`
	Harmonize      harmonize.Options `yaml:"harmonize" koanf:"harmonize"`
}

func defaultConfig() config {
	return config{
		Addr:           ":8421",
		Source:         "vocab",
		DBPath:         "droma.sqlite",
		VocabDir:       "vocab",
		LogLevel:       "info",
		RequestTimeout: 60,
		Harmonize:      harmonize.DefaultOptions(),
	}
}

// loadConfig reads the YAML file at path (a missing file means defaults),
// then applies DROMA_* environment overrides. "__" separates nested keys:
// DROMA_HARMONIZE__MAX_DISTANCE=0.3.
func loadConfig(path string, logger *slog.Logger) (config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		logger.Info("no config file, using defaults", "path", path)
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	k := koanf.New(".")
	err = k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return cfg, fmt.Errorf("load env: %w", err)
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("apply env overrides: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c config) rules() (harmonize.RuleSet, error) {
	if c.RulesFile == "" {
		return harmonize.DefaultRuleSet(), nil
	}
	return harmonize.LoadRules(c.RulesFile)
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
