package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

type jsoncConfig struct {
	Language   *string          `json:"language"`
	Debug      *bool            `json:"debug"`
	Recognizer *jsoncRecognizer `json:"recognizer"`
	Session    *jsoncSession    `json:"session"`
	Audio      *jsoncAudio      `json:"audio"`
	Voice      *jsoncVoice      `json:"voice"`
	Indicator  *jsoncIndicator  `json:"indicator"`
	Metrics    *jsoncMetrics    `json:"metrics"`

	Strings  map[string]map[string]string `json:"strings"`
	Commands []jsoncCommand               `json:"commands"`
}

type jsoncRecognizer struct {
	Cmd             *string `json:"cmd"`
	Continuous      *bool   `json:"continuous"`
	MaxAlternatives *int    `json:"max_alternatives"`
}

type jsoncSession struct {
	RestartIntervalMS  *int `json:"restart_interval_ms"`
	PermissionWindowMS *int `json:"permission_window_ms"`
}

type jsoncAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type jsoncVoice struct {
	Enable  *bool    `json:"enable"`
	Program *string  `json:"program"`
	Pitch   *float64 `json:"pitch"`
	Rate    *float64 `json:"rate"`
}

type jsoncIndicator struct {
	Enable         *bool   `json:"enable"`
	DesktopAppName *string `json:"desktop_app_name"`
	SoundEnable    *bool   `json:"sound_enable"`
	ErrorTimeoutMS *int    `json:"error_timeout_ms"`
}

type jsoncMetrics struct {
	Textfile *string `json:"textfile"`
}

type jsoncCommand struct {
	Name    string            `json:"name"`
	Phrase  string            `json:"phrase"`
	Phrases map[string]string `json:"phrases"`
	Pattern string            `json:"pattern"`
	Run     string            `json:"run"`
	Say     string            `json:"say"`
	Print   string            `json:"print"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, locateDecodeError(normalized, err)
	}
	if err := expectEOF(decoder); err != nil {
		return Config{}, nil, locateDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if payload.Language != nil {
		cfg.Language = strings.TrimSpace(*payload.Language)
	}
	if payload.Debug != nil {
		cfg.Debug = *payload.Debug
	}

	if payload.Recognizer != nil {
		if payload.Recognizer.Cmd != nil {
			raw := *payload.Recognizer.Cmd
			argv, err := parseArgv(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid recognizer.cmd: %w", err)
			}
			cfg.Recognizer.Cmd = CommandConfig{Raw: raw, Argv: argv}
		}
		if payload.Recognizer.Continuous != nil {
			cfg.Recognizer.Continuous = *payload.Recognizer.Continuous
		}
		if payload.Recognizer.MaxAlternatives != nil {
			cfg.Recognizer.MaxAlternatives = *payload.Recognizer.MaxAlternatives
		}
	}

	if payload.Session != nil {
		if payload.Session.RestartIntervalMS != nil {
			cfg.Session.RestartIntervalMS = *payload.Session.RestartIntervalMS
		}
		if payload.Session.PermissionWindowMS != nil {
			cfg.Session.PermissionWindowMS = *payload.Session.PermissionWindowMS
		}
	}

	if payload.Audio != nil {
		if payload.Audio.Input != nil {
			cfg.Audio.Input = *payload.Audio.Input
		}
		if payload.Audio.Fallback != nil {
			cfg.Audio.Fallback = *payload.Audio.Fallback
		}
	}

	if payload.Voice != nil {
		if payload.Voice.Enable != nil {
			cfg.Voice.Enable = *payload.Voice.Enable
		}
		if payload.Voice.Program != nil {
			cfg.Voice.Program = strings.TrimSpace(*payload.Voice.Program)
		}
		if payload.Voice.Pitch != nil {
			cfg.Voice.Pitch = *payload.Voice.Pitch
		}
		if payload.Voice.Rate != nil {
			cfg.Voice.Rate = *payload.Voice.Rate
		}
	}

	if payload.Indicator != nil {
		if payload.Indicator.Enable != nil {
			cfg.Indicator.Enable = *payload.Indicator.Enable
		}
		if payload.Indicator.DesktopAppName != nil {
			cfg.Indicator.DesktopAppName = strings.TrimSpace(*payload.Indicator.DesktopAppName)
		}
		if payload.Indicator.SoundEnable != nil {
			cfg.Indicator.SoundEnable = *payload.Indicator.SoundEnable
		}
		if payload.Indicator.ErrorTimeoutMS != nil {
			cfg.Indicator.ErrorTimeoutMS = *payload.Indicator.ErrorTimeoutMS
		}
	}

	if payload.Metrics != nil && payload.Metrics.Textfile != nil {
		cfg.Metrics.Textfile = strings.TrimSpace(*payload.Metrics.Textfile)
	}

	if payload.Strings != nil {
		merged := make(map[string]map[string]string, len(cfg.Strings)+len(payload.Strings))
		for key, texts := range cfg.Strings {
			merged[key] = texts
		}
		cfg.Strings = merged
		for key, texts := range payload.Strings {
			trimmedKey := strings.TrimSpace(key)
			if trimmedKey == "" {
				return nil, fmt.Errorf("strings contains an empty key")
			}
			if _, exists := cfg.Strings[trimmedKey]; exists {
				warnings = append(warnings, Warning{Message: fmt.Sprintf("strings.%s overrides an earlier definition", trimmedKey)})
			}
			cfg.Strings[trimmedKey] = texts
		}
	}

	if payload.Commands != nil {
		cfg.Commands = make([]CommandSpec, 0, len(payload.Commands))
		for i, raw := range payload.Commands {
			spec := CommandSpec{
				Name:    strings.TrimSpace(raw.Name),
				Phrase:  strings.TrimSpace(raw.Phrase),
				Phrases: raw.Phrases,
				Pattern: raw.Pattern,
				Say:     strings.TrimSpace(raw.Say),
				Print:   raw.Print,
			}
			if raw.Run != "" {
				argv, err := parseArgv(raw.Run)
				if err != nil {
					return nil, fmt.Errorf("invalid commands[%d].run: %w", i, err)
				}
				spec.Run = CommandConfig{Raw: raw.Run, Argv: argv}
			}
			cfg.Commands = append(cfg.Commands, spec)
		}
	}

	return warnings, nil
}
