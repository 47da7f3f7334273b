package module

import "fmt"

// State is the lifecycle status of a loaded module.
type State string

const (
	StateUnloaded State = "UNLOADED"
	StateLoaded   State = "LOADED"
	StateStarted  State = "STARTED"
	StateStopped  State = "STOPPED"
	StateError    State = "ERROR"
)

// Event is a lifecycle transition request.
type Event string

const (
	EventLoad   Event = "load"
	EventStart  Event = "start"
	EventStop   Event = "stop"
	EventUnload Event = "unload"
	EventFail   Event = "fail"
)

// transitions lists the legal source states for each event and the state the
// event leads to. A failed start keeps the module LOADED; EventFail covers
// hooks that leave the module unusable.
var transitions = map[Event]struct {
	from []State
	to   State
}{
	EventLoad:   {from: []State{StateUnloaded}, to: StateLoaded},
	EventStart:  {from: []State{StateLoaded, StateStopped, StateError}, to: StateStarted},
	EventStop:   {from: []State{StateStarted}, to: StateStopped},
	EventUnload: {from: []State{StateLoaded, StateStopped, StateError}, to: StateUnloaded},
	EventFail:   {from: []State{StateLoaded, StateStarted, StateStopped}, to: StateError},
}

// Transition returns the state reached by applying ev to from, or a
// PreconditionViolation when ev is not legal in from.
func Transition(from State, ev Event) (State, error) {
	t, ok := transitions[ev]
	if !ok {
		return from, &Error{Kind: KindPrecondition, Err: fmt.Errorf("unknown lifecycle event %q", ev)}
	}
	for _, s := range t.from {
		if s == from {
			return t.to, nil
		}
	}
	return from, &Error{Kind: KindPrecondition, Err: fmt.Errorf("cannot %s a module in state %s", ev, from)}
}

// Active reports whether s is a state a loaded module can be in.
func (s State) Active() bool {
	return s == StateLoaded || s == StateStarted || s == StateStopped || s == StateError
}

// Startable reports whether a module in s is loaded but not running.
func (s State) Startable() bool {
	return s == StateLoaded || s == StateStopped
}
