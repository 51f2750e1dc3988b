// Package voice selects a synthesis voice for the active language and speaks text with it.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/rbright/hark/internal/i18n"
)

// ErrSynthesisUnavailable indicates no synthesizer is wired.
var ErrSynthesisUnavailable = errors.New("speech synthesis is not configured")

// Voice is one synthesizer voice.
type Voice struct {
	Name     string
	Language string
	ID       string
}

func (v Voice) String() string {
	if v.Name == "" {
		return "<default>"
	}
	return v.Name + " (" + v.Language + ")"
}

// Utterance is one speak request.
type Utterance struct {
	Text  string
	Voice Voice
	Pitch float64
	Rate  float64
}

// Synthesizer is the external speech synthesis backend.
type Synthesizer interface {
	Voices(context.Context) ([]Voice, error)
	Speak(context.Context, Utterance) error
}

// Options sets utterance prosody. Zero values mean 1, the synthesizer default.
type Options struct {
	Pitch float64
	Rate  float64
}

// Speaker speaks text with the voice selected for the current language.
type Speaker struct {
	synth  Synthesizer
	logger *slog.Logger
	pitch  float64
	rate   float64

	mu    sync.RWMutex
	lang  string
	voice Voice
}

// NewSpeaker constructs a speaker. A nil synth makes every Say fail with
// ErrSynthesisUnavailable.
func NewSpeaker(synth Synthesizer, logger *slog.Logger, opts Options) *Speaker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Pitch <= 0 {
		opts.Pitch = 1
	}
	if opts.Rate <= 0 {
		opts.Rate = 1
	}
	return &Speaker{synth: synth, logger: logger, pitch: opts.Pitch, rate: opts.Rate}
}

// SelectVoice switches to lang and picks the first voice whose language falls under it.
// When no voice matches, the previously selected voice is kept.
func (s *Speaker) SelectVoice(ctx context.Context, lang string) (Voice, error) {
	s.mu.Lock()
	s.lang = lang
	current := s.voice
	s.mu.Unlock()

	if s.synth == nil {
		return current, nil
	}

	voices, err := s.synth.Voices(ctx)
	if err != nil {
		return current, fmt.Errorf("list voices: %w", err)
	}

	picked, ok := Pick(voices, lang)
	if !ok {
		s.logger.Debug("no voice for language; keeping previous", "language", lang, "voice", current.String())
		return current, nil
	}

	s.mu.Lock()
	s.voice = picked
	s.mu.Unlock()
	s.logger.Debug("voice selected", "language", lang, "voice", picked.String())
	return picked, nil
}

// Voice returns the selected voice.
func (s *Speaker) Voice() Voice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.voice
}

// Say speaks text.
func (s *Speaker) Say(ctx context.Context, text string) error {
	if s.synth == nil {
		return ErrSynthesisUnavailable
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	u := Utterance{Text: text, Voice: s.Voice(), Pitch: s.pitch, Rate: s.rate}
	s.logger.Debug("saying", "text", text, "voice", u.Voice.String())
	if err := s.synth.Speak(ctx, u); err != nil {
		return fmt.Errorf("speak: %w", err)
	}
	return nil
}

// SayWord speaks word resolved against the current language.
func (s *Speaker) SayWord(ctx context.Context, word *i18n.Word) error {
	s.mu.RLock()
	lang := s.lang
	s.mu.RUnlock()

	text, err := word.Resolve(lang)
	if err != nil {
		return err
	}
	return s.Say(ctx, text)
}

// Pick returns the first voice whose language equals lang or extends it by subtags,
// falling back to the first voice for a broader language ("ja" for "ja-JP").
func Pick(voices []Voice, lang string) (Voice, bool) {
	for _, v := range voices {
		if i18n.HasPrefix(v.Language, lang) {
			return v, true
		}
	}
	for _, v := range voices {
		if i18n.HasPrefix(lang, v.Language) {
			return v, true
		}
	}
	return Voice{}, false
}

// Filter returns the voices whose language falls under lang. An empty lang keeps all voices.
func Filter(voices []Voice, lang string) []Voice {
	if strings.TrimSpace(lang) == "" {
		return append([]Voice(nil), voices...)
	}
	out := make([]Voice, 0, len(voices))
	for _, v := range voices {
		if i18n.HasPrefix(v.Language, lang) {
			out = append(out, v)
		}
	}
	return out
}
