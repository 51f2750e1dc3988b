// Package cli parses hark command-line arguments.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandListen   Command = "listen"
	CommandHear     Command = "hear"
	CommandStatus   Command = "status"
	CommandAbort    Command = "abort"
	CommandLanguage Command = "language"
	CommandSay      Command = "say"
	CommandVoices   Command = "voices"
	CommandDevices  Command = "devices"
	CommandDoctor   Command = "doctor"
	CommandVersion  Command = "version"
	CommandHelp     Command = "help"
)

// argRule bounds the positional arguments a command accepts. max < 0 means unbounded.
type argRule struct {
	min int
	max int
}

var validCommands = map[Command]argRule{
	CommandListen:   {0, 0},
	CommandHear:     {1, -1},
	CommandStatus:   {0, 0},
	CommandAbort:    {0, 0},
	CommandLanguage: {0, 1},
	CommandSay:      {1, -1},
	CommandVoices:   {0, 1},
	CommandDevices:  {0, 0},
	CommandDoctor:   {0, 0},
	CommandVersion:  {0, 0},
	CommandHelp:     {0, 0},
}

type Parsed struct {
	Command    Command
	Args       []string
	ConfigPath string
	Stdin      bool
	Debug      bool
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}
	seenCommand := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if seenCommand {
			if arg == "--stdin" && parsed.Command == CommandListen {
				parsed.Stdin = true
				continue
			}
			if strings.HasPrefix(arg, "--") && arg != "--" {
				return Parsed{}, fmt.Errorf("unexpected flag after command %q: %s", parsed.Command, arg)
			}
			parsed.Args = append(parsed.Args, arg)
			continue
		}

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--debug":
			parsed.Debug = true
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			seenCommand = true
		}
	}

	if seenCommand {
		rule := validCommands[parsed.Command]
		n := len(parsed.Args)
		if n < rule.min {
			return Parsed{}, fmt.Errorf("command %q requires an argument", parsed.Command)
		}
		if rule.max >= 0 && n > rule.max {
			return Parsed{}, fmt.Errorf("unexpected arguments after command %q", parsed.Command)
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--debug] <command> [args]

Commands:
  listen [--stdin]   Listen for voice commands (or read "a | b" candidate lines from stdin)
  hear TEXT...       Dispatch ranked candidates to the running listener, or locally
  status             Print listener state
  abort              Stop listening without auto-restart
  language [TAG]     Print or switch the active language
  say TEXT...        Speak text with the voice for the active language
  voices [TAG]       List synthesis voices, optionally filtered by language
  devices            List available input devices
  doctor             Run configuration and environment checks
  version            Print version information
  help               Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/hark/config.jsonc)
  --debug         Log heard, understood, and learned traces
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
