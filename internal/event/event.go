// Package event is a small synchronous publish/subscribe hub with typed topics.
package event

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNoSubscriber indicates Off found no subscriber with the requested name.
var ErrNoSubscriber = errors.New("no subscriber with that name")

// Signal is the empty payload of lifecycle notifications.
type Signal struct{}

// Cause describes a capture failure reported by the recognizer.
type Cause struct {
	Code    string
	Message string
}

func (c Cause) String() string {
	if c.Message == "" {
		return c.Code
	}
	return c.Code + ": " + c.Message
}

// Candidates is a ranked list of transcriptions for one utterance, best first.
type Candidates []string

// Match describes the candidate and command that won a dispatch pass.
type Match struct {
	Candidate  string
	Command    string
	Candidates Candidates
}

// Topic names an event and fixes its payload type.
type Topic[P any] struct {
	name string
}

// NewTopic declares a topic. Topic names must be unique per payload type.
func NewTopic[P any](name string) Topic[P] {
	return Topic[P]{name: name}
}

// Name returns the wire name of the topic.
func (t Topic[P]) Name() string { return t.name }

var (
	Start       = NewTopic[Signal]("start")
	SoundStart  = NewTopic[Signal]("soundstart")
	SoundEnd    = NewTopic[Signal]("soundend")
	SpeechStart = NewTopic[Signal]("speechstart")
	SpeechEnd   = NewTopic[Signal]("speechend")
	End         = NewTopic[Signal]("end")

	Error                  = NewTopic[Cause]("error")
	ErrorNetwork           = NewTopic[Cause]("error-network")
	ErrorPermissionBlocked = NewTopic[Cause]("error-permission-blocked")
	ErrorPermissionDenied  = NewTopic[Cause]("error-permission-denied")

	Hear        = NewTopic[Candidates]("hear")
	HearWords   = NewTopic[Match]("hear-words")
	HearNoWords = NewTopic[Candidates]("hear-no-words")
)

type subscriber struct {
	name string
	fn   func(any)
}

// Hub stores subscribers per topic name in registration order.
type Hub struct {
	mu   sync.RWMutex
	subs map[string][]subscriber
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string][]subscriber)}
}

// On subscribes fn to topic. name identifies the subscriber for Off and may be empty.
func On[P any](h *Hub, topic Topic[P], name string, fn func(P)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[topic.name] = append(h.subs[topic.name], subscriber{
		name: name,
		fn:   func(payload any) { fn(payload.(P)) },
	})
}

// Emit calls every subscriber of topic synchronously, in registration order.
// Subscribers added or removed during emission take effect on the next Emit.
func Emit[P any](h *Hub, topic Topic[P], payload P) {
	h.mu.RLock()
	subs := append([]subscriber(nil), h.subs[topic.name]...)
	h.mu.RUnlock()

	for _, s := range subs {
		s.fn(payload)
	}
}

// Off removes the first subscriber of topicName called name.
func (h *Hub) Off(topicName string, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subs[topicName]
	for i, s := range subs {
		if s.name != name {
			continue
		}
		h.subs[topicName] = append(subs[:i:i], subs[i+1:]...)
		return nil
	}
	return fmt.Errorf("%w: %q on %q", ErrNoSubscriber, name, topicName)
}

// Count returns the number of subscribers of topicName.
func (h *Hub) Count(topicName string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topicName])
}
