package config

import (
	"fmt"
	"os"
	"strings"
	"unicode"
)

// parseArgv splits a shell-like command string. Quotes group words, a backslash escapes the
// next rune, and $VAR or ${VAR} expand outside single quotes. A leading "~/" on the program
// resolves to the home directory. A string starting with "#" is disabled and yields nil.
func parseArgv(input string) ([]string, error) {
	return splitArgv(input, os.Getenv, os.UserHomeDir)
}

func splitArgv(input string, getenv func(string) string, home func() (string, error)) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "#") {
		return nil, nil
	}

	s := argvScanner{src: []rune(input), getenv: getenv}
	argv, err := s.scan()
	if err != nil {
		return nil, fmt.Errorf("%w in command: %q", err, input)
	}

	if len(argv) > 0 && strings.HasPrefix(argv[0], "~/") && !strings.HasPrefix(input, `"`) && !strings.HasPrefix(input, "'") {
		dir, err := home()
		if err != nil {
			return nil, fmt.Errorf("expand ~ in command %q: %w", input, err)
		}
		argv[0] = dir + argv[0][1:]
	}
	return argv, nil
}

type argvScanner struct {
	src    []rune
	pos    int
	getenv func(string) string

	argv    []string
	current strings.Builder
	started bool
}

func (s *argvScanner) scan() ([]string, error) {
	var quote rune
	for s.pos < len(s.src) {
		r := s.src[s.pos]
		s.pos++

		switch {
		case r == '\\' && quote != '\'':
			if s.pos >= len(s.src) {
				return nil, fmt.Errorf("unterminated escape sequence")
			}
			s.write(s.src[s.pos])
			s.pos++
		case r == '$' && quote != '\'':
			s.expand()
		case quote != 0 && r == quote:
			quote = 0
		case quote != 0:
			s.write(r)
		case r == '\'' || r == '"':
			quote = r
			s.started = true
		case unicode.IsSpace(r):
			s.flush()
		default:
			s.write(r)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote")
	}
	s.flush()
	return s.argv, nil
}

// expand replaces a $NAME or ${NAME} reference. A lone "$" is kept literally.
func (s *argvScanner) expand() {
	if s.pos < len(s.src) && s.src[s.pos] == '{' {
		end := s.pos + 1
		for end < len(s.src) && s.src[end] != '}' {
			end++
		}
		if end < len(s.src) {
			s.writeString(s.getenv(string(s.src[s.pos+1 : end])))
			s.pos = end + 1
			return
		}
	}

	start := s.pos
	for s.pos < len(s.src) && isNameRune(s.src[s.pos], s.pos == start) {
		s.pos++
	}
	if s.pos == start {
		s.write('$')
		return
	}
	s.writeString(s.getenv(string(s.src[start:s.pos])))
}

func isNameRune(r rune, first bool) bool {
	if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
		return true
	}
	return !first && r >= '0' && r <= '9'
}

func (s *argvScanner) write(r rune) {
	s.current.WriteRune(r)
	s.started = true
}

// writeString appends an expansion. An empty expansion outside quotes adds no word.
func (s *argvScanner) writeString(v string) {
	if v == "" {
		return
	}
	s.current.WriteString(v)
	s.started = true
}

func (s *argvScanner) flush() {
	if !s.started {
		return
	}
	s.argv = append(s.argv, s.current.String())
	s.current.Reset()
	s.started = false
}
