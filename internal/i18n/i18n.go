// Package i18n resolves language-tagged strings against the active session language.
package i18n

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

var (
	// ErrNoTranslation indicates no entry of a Word matches the requested language.
	ErrNoTranslation = errors.New("no translation for language")
	// ErrUnknownKey indicates a Dictionary lookup for a key that was never defined.
	ErrUnknownKey = errors.New("unknown dictionary key")
)

type entry struct {
	tag  string
	text string
}

// Word is one phrase in several languages, e.g. {"en": "Hello", "ja-JP": "こんにちは"}.
//
// A Word is immutable once constructed; callers change the active language instead.
type Word struct {
	entries []entry
}

// NewWord validates and canonicalises the language tags of texts.
func NewWord(texts map[string]string) (*Word, error) {
	if len(texts) == 0 {
		return nil, errors.New("word has no translations")
	}

	entries := make([]entry, 0, len(texts))
	seen := make(map[string]struct{}, len(texts))
	for raw, text := range texts {
		tag, err := CanonicalTag(raw)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[strings.ToLower(tag)]; dup {
			return nil, fmt.Errorf("duplicate language tag %q", tag)
		}
		seen[strings.ToLower(tag)] = struct{}{}
		entries = append(entries, entry{tag: tag, text: text})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })
	return &Word{entries: entries}, nil
}

// MustWord is like NewWord but panics on error.
func MustWord(texts map[string]string) *Word {
	w, err := NewWord(texts)
	if err != nil {
		panic(err)
	}
	return w
}

// Resolve returns the text for lang.
//
// An exact tag wins; otherwise the most specific entry whose tag prefixes lang ("en" serves
// "en-US"); otherwise the first entry that lang prefixes ("en-US" serves "en").
func (w *Word) Resolve(lang string) (string, error) {
	if w == nil {
		return "", fmt.Errorf("%w %q: empty word", ErrNoTranslation, lang)
	}
	want := strings.TrimSpace(lang)

	var broader *entry
	var narrower *entry
	for i := range w.entries {
		e := &w.entries[i]
		switch {
		case strings.EqualFold(e.tag, want):
			return e.text, nil
		case hasSubtagPrefix(want, e.tag):
			if broader == nil || len(e.tag) > len(broader.tag) {
				broader = e
			}
		case narrower == nil && hasSubtagPrefix(e.tag, want):
			narrower = e
		}
	}

	if broader != nil {
		return broader.text, nil
	}
	if narrower != nil {
		return narrower.text, nil
	}
	return "", fmt.Errorf("%w %q (have %s)", ErrNoTranslation, lang, strings.Join(w.Tags(), ", "))
}

// Tags lists the language tags of w in sorted order.
func (w *Word) Tags() []string {
	if w == nil {
		return nil
	}
	tags := make([]string, 0, len(w.entries))
	for _, e := range w.entries {
		tags = append(tags, e.tag)
	}
	return tags
}

// String renders w for logs.
func (w *Word) String() string {
	if w == nil {
		return "<nil>"
	}
	parts := make([]string, 0, len(w.entries))
	for _, e := range w.entries {
		parts = append(parts, e.tag+":"+e.text)
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// Dictionary groups named Words, e.g. {"greeting": {...}, "farewell": {...}}.
type Dictionary struct {
	words map[string]*Word
}

// NewDictionary builds a Dictionary from raw key → tag → text data.
func NewDictionary(raw map[string]map[string]string) (*Dictionary, error) {
	words := make(map[string]*Word, len(raw))
	for key, texts := range raw {
		w, err := NewWord(texts)
		if err != nil {
			return nil, fmt.Errorf("string %q: %w", key, err)
		}
		words[key] = w
	}
	return &Dictionary{words: words}, nil
}

// Lookup returns the Word stored under key.
func (d *Dictionary) Lookup(key string) (*Word, error) {
	if d != nil {
		if w, ok := d.words[key]; ok {
			return w, nil
		}
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownKey, key)
}

// Text resolves key for lang.
func (d *Dictionary) Text(key string, lang string) (string, error) {
	w, err := d.Lookup(key)
	if err != nil {
		return "", err
	}
	return w.Resolve(lang)
}

// Keys lists the dictionary keys in sorted order.
func (d *Dictionary) Keys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, 0, len(d.words))
	for k := range d.words {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CanonicalTag parses a BCP 47 tag and returns its canonical form ("en_us" → "en-US").
func CanonicalTag(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("language tag is empty")
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid language tag %q: %w", raw, err)
	}
	return tag.String(), nil
}

// HasPrefix reports whether tag equals prefix or extends it by whole subtags,
// ignoring case ("en-US" has prefix "en", "eng" does not).
func HasPrefix(tag string, prefix string) bool {
	return strings.EqualFold(tag, prefix) || hasSubtagPrefix(tag, prefix)
}

func hasSubtagPrefix(tag string, prefix string) bool {
	if prefix == "" || len(tag) <= len(prefix) {
		return false
	}
	return strings.EqualFold(tag[:len(prefix)], prefix) && tag[len(prefix)] == '-'
}
