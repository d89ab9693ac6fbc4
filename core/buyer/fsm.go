package buyer

import (
	"github.com/pkg/errors"
)

// State is a stage of one negotiation session.
type State string

const (
	StateInit            State = "INIT"
	StateAwaitingBids    State = "AWAITING_BIDS"
	StateSelecting       State = "SELECTING"
	StateAwaitingConfirm State = "AWAITING_CONFIRM"
	StateSucceeded       State = "SUCCEEDED"
	StateFailed          State = "FAILED"
)

// Terminal reports whether no further transition leaves s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

var ErrInvalidTransition = errors.New("invalid state transition")

type stateMachine struct {
	currentState State
	transitions  map[State]map[State]struct{}
}

var sessionTransitions = map[State]map[State]struct{}{
	StateInit: {
		StateAwaitingBids: struct{}{},
		StateFailed:       struct{}{},
	},
	StateAwaitingBids: {
		StateSelecting: struct{}{},
		StateFailed:    struct{}{},
	},
	StateSelecting: {
		StateAwaitingConfirm: struct{}{},
		StateFailed:          struct{}{},
	},
	StateAwaitingConfirm: {
		StateSucceeded: struct{}{},
		StateFailed:    struct{}{},
	},
}

func newStateMachine() *stateMachine {
	return &stateMachine{
		currentState: StateInit,
		transitions:  sessionTransitions,
	}
}

func (sm *stateMachine) Transition(nextState State) error {
	if allowedStates, ok := sm.transitions[sm.currentState]; ok {
		if _, ok = allowedStates[nextState]; ok {
			sm.currentState = nextState
			return nil
		}
	}

	return errors.Wrapf(ErrInvalidTransition, "%s -> %s", sm.currentState, nextState)
}

func (sm *stateMachine) Current() State {
	return sm.currentState
}
