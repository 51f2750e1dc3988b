package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rbright/hark/internal/i18n"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	lang, err := i18n.CanonicalTag(cfg.Language)
	if err != nil {
		return nil, fmt.Errorf("language: %w", err)
	}
	if cfg.Recognizer.MaxAlternatives <= 0 {
		return nil, fmt.Errorf("recognizer.max_alternatives must be > 0")
	}
	if cfg.Session.RestartIntervalMS <= 0 {
		return nil, fmt.Errorf("session.restart_interval_ms must be > 0")
	}
	if cfg.Session.PermissionWindowMS <= 0 {
		return nil, fmt.Errorf("session.permission_window_ms must be > 0")
	}
	if cfg.Voice.Enable && strings.TrimSpace(cfg.Voice.Program) == "" {
		return nil, fmt.Errorf("voice.program must not be empty when voice.enable=true")
	}
	if cfg.Voice.Pitch < 0 || cfg.Voice.Pitch > 2 {
		return nil, fmt.Errorf("voice.pitch must be within [0, 2]")
	}
	if cfg.Voice.Rate < 0.1 || cfg.Voice.Rate > 10 {
		return nil, fmt.Errorf("voice.rate must be within [0.1, 10]")
	}
	if cfg.Indicator.Enable && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.enable=true")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if len(cfg.Recognizer.Cmd.Argv) == 0 {
		warnings = append(warnings, Warning{Message: "recognizer.cmd is not set; listen only works with --stdin"})
	}

	dict, err := i18n.NewDictionary(cfg.Strings)
	if err != nil {
		return nil, fmt.Errorf("strings: %w", err)
	}

	names := make(map[string]int, len(cfg.Commands))
	for i, cmd := range cfg.Commands {
		cmdWarnings, err := validateCommand(cmd, lang, dict)
		if err != nil {
			return nil, fmt.Errorf("commands[%d] (%s): %w", i, cmd.Label(), err)
		}
		warnings = append(warnings, cmdWarnings...)

		if cmd.Name == "" {
			continue
		}
		if prev, ok := names[cmd.Name]; ok {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("commands[%d] and commands[%d] share name %q", prev, i, cmd.Name)})
			continue
		}
		names[cmd.Name] = i
	}

	return warnings, nil
}

func validateCommand(cmd CommandSpec, lang string, dict *i18n.Dictionary) ([]Warning, error) {
	sources := 0
	if strings.TrimSpace(cmd.Phrase) != "" {
		sources++
	}
	if len(cmd.Phrases) > 0 {
		sources++
	}
	if strings.TrimSpace(cmd.Pattern) != "" {
		sources++
	}
	if sources != 1 {
		return nil, fmt.Errorf("exactly one of phrase, phrases, or pattern is required")
	}

	if len(cmd.Run.Argv) == 0 && strings.TrimSpace(cmd.Say) == "" && cmd.Print == "" {
		return nil, fmt.Errorf("at least one of run, say, or print is required")
	}
	if cmd.Run.Raw != "" && len(cmd.Run.Argv) == 0 {
		return nil, fmt.Errorf("run is configured but empty")
	}

	if cmd.Pattern != "" {
		if _, err := regexp.Compile(cmd.Pattern); err != nil {
			return nil, fmt.Errorf("pattern: %w", err)
		}
	}

	var warnings []Warning
	if len(cmd.Phrases) > 0 {
		word, err := i18n.NewWord(cmd.Phrases)
		if err != nil {
			return nil, fmt.Errorf("phrases: %w", err)
		}
		if _, err := word.Resolve(lang); err != nil {
			return nil, fmt.Errorf("phrases: %w", err)
		}
	}

	if key := strings.TrimSpace(cmd.Say); key != "" {
		if word, err := dict.Lookup(key); err == nil {
			if _, err := word.Resolve(lang); err != nil {
				warnings = append(warnings, Warning{Message: fmt.Sprintf("command %q says string %q which has no text for %s", cmd.Label(), key, lang)})
			}
		}
	}
	return warnings, nil
}
