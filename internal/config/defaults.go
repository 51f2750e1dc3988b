package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Language: "en-US",
		Recognizer: RecognizerConfig{
			Continuous:      false,
			MaxAlternatives: 5,
		},
		Session: SessionConfig{
			RestartIntervalMS:  1000,
			PermissionWindowMS: 200,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Voice: VoiceConfig{
			Enable:  true,
			Program: "espeak-ng",
			Pitch:   1,
			Rate:    1,
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			DesktopAppName: "hark",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
		Strings: map[string]map[string]string{},
	}
}
