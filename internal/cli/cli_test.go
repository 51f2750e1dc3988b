package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToHelp(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.True(t, parsed.ShowHelp)
	require.Equal(t, CommandHelp, parsed.Command)
}

func TestParseCommandWithConfig(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/hark.jsonc", "--debug", "doctor"})
	require.NoError(t, err)
	require.Equal(t, CommandDoctor, parsed.Command)
	require.Equal(t, "/tmp/hark.jsonc", parsed.ConfigPath)
	require.True(t, parsed.Debug)
	require.False(t, parsed.ShowHelp)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantErr   string
		wantCmd   Command
		wantHelp  bool
		wantPath  string
		wantArgs  []string
		wantStdin bool
	}{
		{name: "help short flag", args: []string{"-h"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "help long flag", args: []string{"--help"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "version flag", args: []string{"--version"}, wantCmd: CommandVersion},
		{name: "config after command", args: []string{"status", "--config", "/tmp/cfg"}, wantErr: "unexpected flag after command"},
		{name: "missing config path", args: []string{"--config"}, wantErr: "requires a path"},
		{name: "unknown flag", args: []string{"--bogus"}, wantErr: "unknown flag"},
		{name: "unknown command", args: []string{"bogus"}, wantErr: "unknown command"},
		{name: "extra args after command", args: []string{"doctor", "extra"}, wantErr: "unexpected arguments"},
		{name: "stdin only for listen", args: []string{"status", "--stdin"}, wantErr: "unexpected flag"},
		{name: "listen", args: []string{"listen"}, wantCmd: CommandListen},
		{name: "listen stdin", args: []string{"--config", "/tmp/cfg", "listen", "--stdin"}, wantCmd: CommandListen, wantPath: "/tmp/cfg", wantStdin: true},
		{name: "hear candidates", args: []string{"hear", "turn on", "turn lamp on"}, wantCmd: CommandHear, wantArgs: []string{"turn on", "turn lamp on"}},
		{name: "hear requires text", args: []string{"hear"}, wantErr: "requires an argument"},
		{name: "language query", args: []string{"language"}, wantCmd: CommandLanguage},
		{name: "language set", args: []string{"language", "ja-JP"}, wantCmd: CommandLanguage, wantArgs: []string{"ja-JP"}},
		{name: "language too many", args: []string{"language", "ja", "en"}, wantErr: "unexpected arguments"},
		{name: "say words", args: []string{"say", "hello", "there"}, wantCmd: CommandSay, wantArgs: []string{"hello", "there"}},
		{name: "voices filter", args: []string{"voices", "en"}, wantCmd: CommandVoices, wantArgs: []string{"en"}},
		{name: "abort", args: []string{"abort"}, wantCmd: CommandAbort},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantHelp, parsed.ShowHelp)
			require.Equal(t, tc.wantPath, parsed.ConfigPath)
			require.Equal(t, tc.wantArgs, parsed.Args)
			require.Equal(t, tc.wantStdin, parsed.Stdin)
		})
	}
}

func TestHelpTextIncludesCoreCommands(t *testing.T) {
	text := HelpText("hark")
	for _, want := range []string{"listen [--stdin]", "hear TEXT", "abort", "language [TAG]", "say TEXT", "voices", "doctor", "--config PATH"} {
		require.Contains(t, text, want)
	}
}
