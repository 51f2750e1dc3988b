package dispatch

import (
	"errors"
	"testing"
	"time"

	"github.com/rbright/hark/internal/command"
	"github.com/rbright/hark/internal/event"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []string
	match  event.Match
	heard  event.Candidates
	missed event.Candidates
}

func newEngine(t *testing.T) (*Engine, *command.Table, *recorder) {
	t.Helper()
	table := command.New("en", nil)
	hub := event.NewHub()
	rec := &recorder{}
	event.On(hub, event.Hear, "test", func(c event.Candidates) {
		rec.events = append(rec.events, "hear")
		rec.heard = c
	})
	event.On(hub, event.HearWords, "test", func(m event.Match) {
		rec.events = append(rec.events, "hear-words")
		rec.match = m
	})
	event.On(hub, event.HearNoWords, "test", func(c event.Candidates) {
		rec.events = append(rec.events, "hear-no-words")
		rec.missed = c
	})
	return New(table, hub, nil), table, rec
}

func capture(calls *[]string, name string) command.Listener {
	return command.Listener{Name: name, Func: func(args []string) error {
		*calls = append(*calls, name)
		*calls = append(*calls, args...)
		return nil
	}}
}

func TestHearInvokesFirstMatchingCommand(t *testing.T) {
	engine, table, rec := newEngine(t)
	var calls []string
	require.NoError(t, table.Register(command.Phrase("turn :thing on"), capture(&calls, "lights")))
	require.NoError(t, table.Register(command.Phrase("turn *all"), capture(&calls, "greedy")))

	res := engine.Hear([]string{"  turn light on  "})
	require.True(t, res.Matched)
	require.NoError(t, res.Err)
	require.Equal(t, "turn light on", res.Candidate)
	require.Equal(t, "turn :thing on", res.Command)
	require.Equal(t, []string{"light"}, res.Params)
	require.Equal(t, 1, res.Listeners)

	require.Equal(t, []string{"lights", "light"}, calls)
	require.Equal(t, []string{"hear", "hear-words"}, rec.events)
	require.Equal(t, event.Match{
		Candidate:  "turn light on",
		Command:    "turn :thing on",
		Candidates: event.Candidates{"  turn light on  "},
	}, rec.match)
}

func TestHearTriesCandidatesBeforeCommands(t *testing.T) {
	engine, table, _ := newEngine(t)
	var calls []string
	require.NoError(t, table.Register(command.Phrase("stop"), capture(&calls, "stop")))
	require.NoError(t, table.Register(command.Phrase("shop"), capture(&calls, "shop")))

	res := engine.Hear([]string{"shop", "stop"})
	require.True(t, res.Matched)
	require.Equal(t, "shop", res.Command)
	require.Equal(t, []string{"shop"}, calls)
}

func TestHearFallsBackToLaterCandidates(t *testing.T) {
	engine, table, _ := newEngine(t)
	var calls []string
	require.NoError(t, table.Register(command.Phrase("show me *stuff"), capture(&calls, "show")))

	res := engine.Hear([]string{"so me the cat", "show me the cat and the dog"})
	require.True(t, res.Matched)
	require.Equal(t, []string{"show", "the cat and the dog"}, calls)
}

func TestHearWithoutMatchEmitsOnlyNoWords(t *testing.T) {
	engine, table, rec := newEngine(t)
	var calls []string
	require.NoError(t, table.Register(command.Phrase("turn :thing on"), capture(&calls, "lights")))

	res := engine.Hear([]string{"turn on", "hello"})
	require.False(t, res.Matched)
	require.Empty(t, calls)
	require.Equal(t, []string{"hear", "hear-no-words"}, rec.events)
	require.Equal(t, event.Candidates{"turn on", "hello"}, rec.missed)
	require.Equal(t, event.Candidates{"turn on", "hello"}, rec.heard)
}

func TestHearEmptyCandidateList(t *testing.T) {
	engine, _, rec := newEngine(t)
	res := engine.Hear(nil)
	require.False(t, res.Matched)
	require.Equal(t, []string{"hear", "hear-no-words"}, rec.events)
}

func TestHearInvokesAllListenersInOrder(t *testing.T) {
	engine, table, _ := newEngine(t)
	var calls []string
	cmd := command.Phrase("do you like tea (please)")
	require.NoError(t, table.Register(cmd, capture(&calls, "first")))
	require.NoError(t, table.Register(cmd, capture(&calls, "second")))

	res := engine.Hear([]string{"do you like tea please"})
	require.True(t, res.Matched)
	require.Equal(t, []string{"first", "second"}, calls)
	require.Equal(t, 2, res.Listeners)
}

func TestHearIsolatesListenerFailures(t *testing.T) {
	engine, table, _ := newEngine(t)
	var calls []string
	boom := errors.New("boom")
	cmd := command.Phrase("hello")
	require.NoError(t, table.Register(cmd, command.Listener{Name: "fails", Func: func([]string) error { return boom }}))
	require.NoError(t, table.Register(cmd, command.Listener{Name: "panics", Func: func([]string) error { panic("kaboom") }}))
	require.NoError(t, table.Register(cmd, capture(&calls, "ok")))

	res := engine.Hear([]string{"hello"})
	require.True(t, res.Matched)
	require.ErrorIs(t, res.Err, boom)
	require.Contains(t, res.Err.Error(), `listener "panics" panicked: kaboom`)
	require.Equal(t, []string{"ok"}, calls)

	calls = nil
	res = engine.Hear([]string{"hello"})
	require.True(t, res.Matched)
	require.Equal(t, []string{"ok"}, calls)
}

func TestListenerTableChangesApplyToNextPass(t *testing.T) {
	engine, table, _ := newEngine(t)
	var calls []string
	cmd := command.Phrase("hello")
	require.NoError(t, table.Register(cmd, command.Listener{Name: "adder", Func: func([]string) error {
		calls = append(calls, "adder")
		return table.Register(cmd, capture(&calls, "late"))
	}}))

	engine.Hear([]string{"hello"})
	require.Equal(t, []string{"adder"}, calls)

	calls = nil
	engine.Hear([]string{"hello"})
	require.Equal(t, []string{"adder", "late"}, calls)
}

func TestListenerReceivesOwnParamsCopy(t *testing.T) {
	engine, table, _ := newEngine(t)
	var second []string
	cmd := command.Phrase("turn :thing on")
	require.NoError(t, table.Register(cmd, command.Listener{Name: "mutates", Func: func(args []string) error {
		args[0] = "changed"
		return nil
	}}))
	require.NoError(t, table.Register(cmd, command.Listener{Name: "reads", Func: func(args []string) error {
		second = args
		return nil
	}}))

	res := engine.Hear([]string{"turn light on"})
	require.Equal(t, []string{"light"}, second)
	require.Equal(t, []string{"light"}, res.Params)
}

func TestHearIsDeterministic(t *testing.T) {
	engine, table, _ := newEngine(t)
	require.NoError(t, table.Register(command.Phrase("play *song"), command.Listener{Name: "a", Func: func([]string) error { return nil }}))
	require.NoError(t, table.Register(command.Phrase("play :one"), command.Listener{Name: "b", Func: func([]string) error { return nil }}))

	first := engine.Hear([]string{"play jazz", "play"})
	for range 5 {
		require.Equal(t, first, engine.Hear([]string{"play jazz", "play"}))
	}
	require.Equal(t, "play *song", first.Command)
}

func TestHearFromListenerRunsNestedPass(t *testing.T) {
	engine, table, rec := newEngine(t)
	var calls []string
	var nested Result
	require.NoError(t, table.Register(command.Phrase("first"), command.Listener{Name: "chain", Func: func([]string) error {
		calls = append(calls, "chain")
		nested = engine.Hear([]string{"second"})
		calls = append(calls, "chain done")
		return nil
	}}))
	require.NoError(t, table.Register(command.Phrase("second"), capture(&calls, "second")))

	done := make(chan Result, 1)
	go func() { done <- engine.Hear([]string{"first"}) }()

	var res Result
	select {
	case res = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("nested Hear did not return")
	}

	require.True(t, res.Matched)
	require.Equal(t, "first", res.Command)
	require.True(t, nested.Matched)
	require.Equal(t, "second", nested.Command)
	require.Equal(t, []string{"chain", "second", "chain done"}, calls)
	require.Equal(t, []string{"hear", "hear-words", "hear", "hear-words"}, rec.events)
}

func TestHearFromSubscriberRunsNestedPass(t *testing.T) {
	engine, table, _ := newEngine(t)
	var calls []string
	require.NoError(t, table.Register(command.Phrase("fallback"), capture(&calls, "fallback")))

	var once bool
	event.On(engine.hub, event.HearNoWords, "retry", func(event.Candidates) {
		if once {
			return
		}
		once = true
		engine.Hear([]string{"fallback"})
	})

	res := engine.Hear([]string{"unknown"})
	require.False(t, res.Matched)
	require.Equal(t, []string{"fallback"}, calls)
}
