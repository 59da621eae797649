/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import (
	"errors"
	"fmt"
)

// State is the AutoDJ controller state.
type State string

const (
	StateOff             State = "off"
	StateOnIdle          State = "on_idle"
	StateOnTransitioning State = "on_transitioning"
)

// ErrInvalidTransition is returned for moves the state machine forbids.
var ErrInvalidTransition = errors.New("invalid autodj state transition")

var validTransitions = map[State][]State{
	StateOff:             {StateOnIdle},
	StateOnIdle:          {StateOff, StateOnTransitioning},
	StateOnTransitioning: {StateOff, StateOnIdle},
}

func isValidTransition(from, to State) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to State) error {
	if !isValidTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
