package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration from the OS
// filesystem, then applies HARK_* environment overrides.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	loaded, err := LoadFS(afero.NewOsFs(), resolvedPath)
	if err != nil {
		return Loaded{}, err
	}

	cfg, err := ApplyEnv(loaded.Config, nil)
	if err != nil {
		return Loaded{}, err
	}
	loaded.Config = cfg
	return loaded, nil
}

// LoadFS reads and parses the config file at path on fsys. A missing file yields defaults
// and a warning.
func LoadFS(fsys afero.Fs, path string) (Loaded, error) {
	base := Default()
	content, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Loaded{
				Path:   path,
				Config: base,
				Warnings: []Warning{{
					Message: fmt.Sprintf("config file %q not found; using defaults", path),
				}},
				Exists: false,
			}, nil
		}
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg, warnings, err := Parse(string(content), base)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}

	return Loaded{
		Path:     path,
		Config:   cfg,
		Warnings: warnings,
		Exists:   true,
	}, nil
}
