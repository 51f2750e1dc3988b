package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle   State = "idle"
	StateActive State = "active"
)

const (
	EventStart Event = "start"
	EventEnd   Event = "end"
	EventAbort Event = "abort"
	EventFail  Event = "fail"
)

// Transition returns the listening state after event. Abort and fail always land in idle;
// an end that arrives after the session already went idle is absorbed.
func Transition(current State, event Event) (State, error) {
	switch event {
	case EventAbort, EventFail:
		if current != StateIdle && current != StateActive {
			return current, fmt.Errorf("unknown state %q", current)
		}
		return StateIdle, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateActive, nil
		case EventEnd:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateActive:
		switch event {
		case EventEnd:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
