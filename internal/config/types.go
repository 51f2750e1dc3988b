// Package config resolves, parses, validates, and defaults hark configuration.
package config

// Config is the fully materialized runtime configuration used by hark.
type Config struct {
	Language   string
	Debug      bool
	Recognizer RecognizerConfig
	Session    SessionConfig
	Audio      AudioConfig
	Voice      VoiceConfig
	Indicator  IndicatorConfig
	Metrics    MetricsConfig
	Strings    map[string]map[string]string
	Commands   []CommandSpec
}

// RecognizerConfig describes the external speech recognizer program.
type RecognizerConfig struct {
	Cmd             CommandConfig
	Continuous      bool
	MaxAlternatives int
}

// SessionConfig tunes listening-session restart and permission classification.
type SessionConfig struct {
	RestartIntervalMS  int
	PermissionWindowMS int
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// VoiceConfig controls speech synthesis.
type VoiceConfig struct {
	Enable  bool
	Program string
	Pitch   float64
	Rate    float64
}

// IndicatorConfig controls desktop notification and audio cue behavior.
type IndicatorConfig struct {
	Enable         bool
	DesktopAppName string
	SoundEnable    bool
	ErrorTimeoutMS int
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// CommandSpec is one configured voice command. Exactly one of Phrase, Phrases, or Pattern
// is set, and at least one of Run, Say, or Print.
type CommandSpec struct {
	Name    string
	Phrase  string
	Phrases map[string]string
	Pattern string
	Run     CommandConfig
	Say     string
	Print   string
}

// Label names the command in logs and errors.
func (c CommandSpec) Label() string {
	switch {
	case c.Name != "":
		return c.Name
	case c.Phrase != "":
		return c.Phrase
	case c.Pattern != "":
		return c.Pattern
	}
	for _, text := range c.Phrases {
		return text
	}
	return "<unnamed>"
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
