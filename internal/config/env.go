package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

type envOverlay struct {
	Language      string `env:"HARK_LANGUAGE"`
	Debug         *bool  `env:"HARK_DEBUG"`
	RecognizerCmd string `env:"HARK_RECOGNIZER_CMD"`
}

// ApplyEnv overlays HARK_LANGUAGE, HARK_DEBUG, and HARK_RECOGNIZER_CMD onto cfg.
// A nil environ reads the process environment.
func ApplyEnv(cfg Config, environ map[string]string) (Config, error) {
	var overlay envOverlay
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&overlay, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if lang := strings.TrimSpace(overlay.Language); lang != "" {
		cfg.Language = lang
	}
	if overlay.Debug != nil {
		cfg.Debug = *overlay.Debug
	}
	if raw := strings.TrimSpace(overlay.RecognizerCmd); raw != "" {
		argv, err := parseArgv(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid HARK_RECOGNIZER_CMD: %w", err)
		}
		cfg.Recognizer.Cmd = CommandConfig{Raw: raw, Argv: argv}
	}

	if _, err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("env overrides: %w", err)
	}
	return cfg, nil
}
