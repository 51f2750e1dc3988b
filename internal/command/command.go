// Package command stores registered voice commands and their listeners in registration order.
package command

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rbright/hark/internal/i18n"
	"github.com/rbright/hark/internal/pattern"
)

var (
	// ErrUnknownCommand indicates an operation on a command that was never registered.
	ErrUnknownCommand = errors.New("command is not registered")
	// ErrUnknownListener indicates Unregister found no listener with the requested name.
	ErrUnknownListener = errors.New("listener is not registered for command")
)

// Kind identifies which variant a Command carries.
type Kind int

const (
	KindPhrase Kind = iota + 1
	KindLocalized
	KindPattern
)

func (k Kind) String() string {
	switch k {
	case KindPhrase:
		return "phrase"
	case KindLocalized:
		return "localized"
	case KindPattern:
		return "pattern"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Command is the key listeners are grouped under. Commands compare by pointer identity:
// registering the same *Command twice merges listeners, two equal phrases stay separate.
type Command struct {
	kind    Kind
	phrase  string
	word    *i18n.Word
	matcher pattern.Matcher
}

// Phrase returns a command compiled from a template such as "turn :thing on".
func Phrase(template string) *Command {
	return &Command{kind: KindPhrase, phrase: template}
}

// Localized returns a command whose template depends on the active language.
func Localized(word *i18n.Word) *Command {
	return &Command{kind: KindLocalized, word: word}
}

// Pattern returns a command backed by a pre-built matcher that is never recompiled.
func Pattern(m pattern.Matcher) *Command {
	return &Command{kind: KindPattern, matcher: m}
}

// Kind returns the command variant.
func (c *Command) Kind() Kind { return c.kind }

// Text returns the command text for lang: the template, the resolved localized template,
// or the matcher source.
func (c *Command) Text(lang string) (string, error) {
	switch c.kind {
	case KindPhrase:
		return c.phrase, nil
	case KindLocalized:
		return c.word.Resolve(lang)
	case KindPattern:
		if c.matcher == nil {
			return "", errors.New("pattern command has no matcher")
		}
		return c.matcher.String(), nil
	default:
		return "", fmt.Errorf("unsupported command %s", c.kind)
	}
}

func (c *Command) String() string {
	switch c.kind {
	case KindPhrase:
		return c.phrase
	case KindLocalized:
		return c.word.String()
	case KindPattern:
		if c.matcher == nil {
			return ""
		}
		return c.matcher.String()
	default:
		return c.kind.String()
	}
}

// compile returns the command text and matcher for lang.
func (c *Command) compile(lang string) (string, pattern.Matcher, error) {
	if c.kind == KindPattern {
		if c.matcher == nil {
			return "", nil, errors.New("pattern command has no matcher")
		}
		return c.matcher.String(), c.matcher, nil
	}

	text, err := c.Text(lang)
	if err != nil {
		return "", nil, err
	}
	m, err := pattern.Compile(text)
	if err != nil {
		return "", nil, err
	}
	return text, m, nil
}

// Listener is one callback registered under a command. Name identifies it for Unregister.
type Listener struct {
	Name string
	Func func(args []string) error
}

// Entry is a read-only view of one table row.
type Entry struct {
	Command   *Command
	Text      string
	Matcher   pattern.Matcher
	Listeners []Listener
}

type row struct {
	cmd       *Command
	text      string
	matcher   pattern.Matcher
	listeners []Listener
}

// Table maps commands to compiled matchers and listeners, preserving registration order.
type Table struct {
	logger *slog.Logger

	mu    sync.RWMutex
	lang  string
	rows  []*row
	index map[*Command]int
}

// New returns an empty table compiling localized commands against lang.
func New(lang string, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Table{
		logger: logger,
		lang:   lang,
		index:  make(map[*Command]int),
	}
}

// Register appends l to the listeners of cmd, compiling cmd on first registration.
func (t *Table) Register(cmd *Command, l Listener) error {
	if cmd == nil {
		return errors.New("command is nil")
	}
	if l.Func == nil {
		return fmt.Errorf("listener %q has no func", l.Name)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if i, ok := t.index[cmd]; ok {
		r := t.rows[i]
		r.listeners = append(r.listeners, l)
		t.logger.Debug("learned", "command", r.text, "listener", l.Name, "listeners", len(r.listeners))
		return nil
	}

	text, m, err := cmd.compile(t.lang)
	if err != nil {
		return fmt.Errorf("register %q: %w", cmd.String(), err)
	}
	t.index[cmd] = len(t.rows)
	t.rows = append(t.rows, &row{cmd: cmd, text: text, matcher: m, listeners: []Listener{l}})
	t.logger.Debug("learned", "command", text, "listener", l.Name, "kind", cmd.kind.String())
	return nil
}

// Unregister removes the first listener of cmd named name, or the first listener when name
// is empty. The command entry itself stays registered.
func (t *Table) Unregister(cmd *Command, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.index[cmd]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, commandString(cmd))
	}

	r := t.rows[i]
	for j, l := range r.listeners {
		if name != "" && l.Name != name {
			continue
		}
		r.listeners = append(r.listeners[:j:j], r.listeners[j+1:]...)
		t.logger.Debug("forgot", "command", r.text, "listener", l.Name, "listeners", len(r.listeners))
		return nil
	}
	return fmt.Errorf("%w: %q on %q", ErrUnknownListener, name, r.text)
}

// Remove deletes cmd and all of its listeners.
func (t *Table) Remove(cmd *Command) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.index[cmd]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, commandString(cmd))
	}

	text := t.rows[i].text
	t.rows = append(t.rows[:i:i], t.rows[i+1:]...)
	t.reindex()
	t.logger.Debug("removed command", "command", text)
	return nil
}

// Clear removes every command.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = nil
	t.index = make(map[*Command]int)
}

// Relanguage recompiles every phrase and localized command against lang. On error the table
// is left unchanged.
func (t *Table) Relanguage(lang string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	type compiled struct {
		text    string
		matcher pattern.Matcher
	}
	next := make([]compiled, len(t.rows))
	for i, r := range t.rows {
		if r.cmd.kind == KindPattern {
			next[i] = compiled{text: r.text, matcher: r.matcher}
			continue
		}
		text, m, err := r.cmd.compile(lang)
		if err != nil {
			return fmt.Errorf("relanguage %s: %q: %w", lang, r.cmd.String(), err)
		}
		next[i] = compiled{text: text, matcher: m}
	}

	for i, r := range t.rows {
		r.text = next[i].text
		r.matcher = next[i].matcher
	}
	t.lang = lang
	t.logger.Debug("recompiled commands", "language", lang, "commands", len(t.rows))
	return nil
}

// Language returns the language commands are compiled against.
func (t *Table) Language() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lang
}

// Len returns the number of registered commands.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Snapshot returns the table rows in registration order. Later table changes do not affect
// the returned slice.
func (t *Table) Snapshot() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Entry, 0, len(t.rows))
	for _, r := range t.rows {
		out = append(out, Entry{
			Command:   r.cmd,
			Text:      r.text,
			Matcher:   r.matcher,
			Listeners: append([]Listener(nil), r.listeners...),
		})
	}
	return out
}

func (t *Table) reindex() {
	t.index = make(map[*Command]int, len(t.rows))
	for i, r := range t.rows {
		t.index[r.cmd] = i
	}
}

func commandString(cmd *Command) string {
	if cmd == nil {
		return "<nil>"
	}
	return cmd.String()
}
