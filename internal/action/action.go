// Package action turns configured commands into dispatch listeners that run programs,
// speak, or print.
package action

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rbright/hark/internal/command"
	"github.com/rbright/hark/internal/config"
	"github.com/rbright/hark/internal/i18n"
	"github.com/rbright/hark/internal/pattern"
)

// DefaultRunTimeout bounds one run action.
const DefaultRunTimeout = 10 * time.Second

// Speaker speaks text in the active language.
type Speaker interface {
	Say(ctx context.Context, text string) error
}

// Learner registers listeners under commands.
type Learner interface {
	Learn(cmd *command.Command, l command.Listener) error
}

// Options wires action side effects.
type Options struct {
	Context    context.Context
	Speaker    Speaker
	Strings    *i18n.Dictionary
	Language   func() string
	Stdout     io.Writer
	Logger     *slog.Logger
	RunTimeout time.Duration
}

// Binding pairs a command with the listener built from its configuration.
type Binding struct {
	Spec     config.CommandSpec
	Command  *command.Command
	Listener command.Listener
}

// Build constructs one binding per spec, in order.
func Build(specs []config.CommandSpec, opts Options) ([]Binding, error) {
	opts = opts.withDefaults()

	bindings := make([]Binding, 0, len(specs))
	for i, spec := range specs {
		cmd, err := NewCommand(spec)
		if err != nil {
			return nil, fmt.Errorf("commands[%d] (%s): %w", i, spec.Label(), err)
		}
		bindings = append(bindings, Binding{
			Spec:     spec,
			Command:  cmd,
			Listener: command.Listener{Name: spec.Label(), Func: opts.listener(spec)},
		})
	}
	return bindings, nil
}

// Register builds bindings for specs and learns each of them on l.
func Register(l Learner, specs []config.CommandSpec, opts Options) ([]Binding, error) {
	bindings, err := Build(specs, opts)
	if err != nil {
		return nil, err
	}
	for _, b := range bindings {
		if err := l.Learn(b.Command, b.Listener); err != nil {
			return nil, fmt.Errorf("learn %s: %w", b.Spec.Label(), err)
		}
	}
	return bindings, nil
}

// NewCommand builds the dispatch command for spec.
func NewCommand(spec config.CommandSpec) (*command.Command, error) {
	switch {
	case spec.Phrase != "":
		return command.Phrase(spec.Phrase), nil
	case len(spec.Phrases) > 0:
		word, err := i18n.NewWord(spec.Phrases)
		if err != nil {
			return nil, err
		}
		return command.Localized(word), nil
	case spec.Pattern != "":
		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("pattern: %w", err)
		}
		return command.Pattern(pattern.FromRegexp(re)), nil
	default:
		return nil, errors.New("command has no phrase, phrases, or pattern")
	}
}

func (o Options) withDefaults() Options {
	if o.Context == nil {
		o.Context = context.Background()
	}
	if o.Language == nil {
		o.Language = func() string { return "" }
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.RunTimeout <= 0 {
		o.RunTimeout = DefaultRunTimeout
	}
	return o
}

// listener runs the run, say, and print actions of spec in that order.
func (o Options) listener(spec config.CommandSpec) func([]string) error {
	return func(params []string) error {
		var errs []error

		if len(spec.Run.Argv) > 0 {
			argv := make([]string, len(spec.Run.Argv))
			for i, arg := range spec.Run.Argv {
				argv[i] = Expand(arg, params)
			}
			ctx, cancel := context.WithTimeout(o.Context, o.RunTimeout)
			out, err := runCommand(ctx, argv, strings.Join(params, "\n"), paramEnv(params))
			cancel()
			if err != nil {
				errs = append(errs, fmt.Errorf("run: %w", err))
			} else {
				o.Logger.Debug("action ran", "command", spec.Label(), "argv", argv, "output", out)
			}
		}

		if spec.Say != "" {
			if err := o.say(spec.Say, params); err != nil {
				errs = append(errs, fmt.Errorf("say: %w", err))
			}
		}

		if spec.Print != "" {
			if _, err := fmt.Fprintln(o.Stdout, Expand(spec.Print, params)); err != nil {
				errs = append(errs, fmt.Errorf("print: %w", err))
			}
		}

		return errors.Join(errs...)
	}
}

// say speaks the strings entry named key, or key itself when no entry exists.
func (o Options) say(key string, params []string) error {
	if o.Speaker == nil {
		return errors.New("speech synthesis is disabled")
	}
	text := key
	if word, err := o.Strings.Lookup(key); err == nil {
		resolved, err := word.Resolve(o.Language())
		if err != nil {
			return err
		}
		text = resolved
	}
	return o.Speaker.Say(o.Context, Expand(text, params))
}

var placeholder = regexp.MustCompile(`\{(\*|[0-9]+)\}`)

// Expand substitutes {1}…{n} with the matching captured parameter and {*} with all of them
// joined by spaces. Placeholders beyond the captured parameters expand to nothing.
func Expand(template string, params []string) string {
	return placeholder.ReplaceAllStringFunc(template, func(token string) string {
		key := token[1 : len(token)-1]
		if key == "*" {
			return strings.Join(params, " ")
		}
		n, err := strconv.Atoi(key)
		if err != nil || n < 1 || n > len(params) {
			return ""
		}
		return params[n-1]
	})
}
