package fsm

import (
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

// Compile-time checks: both lifecycles are served by the same validator.
var (
	_ domain.TransitionValidator[domain.SubscriptionStatus, domain.SubscriptionEvent] = (*Validator[domain.SubscriptionStatus, domain.SubscriptionEvent])(nil)
	_ domain.TransitionValidator[domain.StoreStatus, domain.ModerationEvent]         = (*Validator[domain.StoreStatus, domain.ModerationEvent])(nil)
)

// buildEvents converts domain transitions into looplab/fsm EventDesc format.
// It consolidates transitions with the same event+destination into a single
// EventDesc with multiple source states (e.g., cancel from "trial", "active"
// and "expired" all go to "cancelled").
func buildEvents[S ~string, E ~string](transitions []domain.Transition[S, E]) []loopfsm.EventDesc {
	type key struct {
		event string
		dst   string
	}
	grouped := make(map[key][]string)
	order := make([]key, 0)

	for _, t := range transitions {
		k := key{event: string(t.Event), dst: string(t.Dst)}
		if _, exists := grouped[k]; !exists {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], string(t.Src))
	}

	out := make([]loopfsm.EventDesc, 0, len(order))
	for _, k := range order {
		out = append(out, loopfsm.EventDesc{
			Name: k.event,
			Src:  grouped[k],
			Dst:  k.dst,
		})
	}
	return out
}

// Validator implements domain.TransitionValidator using looplab/fsm.
// It creates a short-lived FSM instance per Apply call, initialized with
// the record's current state. This is necessary because looplab/fsm is
// stateful (it tracks the current state internally).
type Validator[S ~string, E ~string] struct {
	machine string
	events  []loopfsm.EventDesc
}

// New creates an FSM-backed validator for the given transition table.
// machine names the lifecycle in TransitionError messages.
func New[S ~string, E ~string](machine string, transitions []domain.Transition[S, E]) *Validator[S, E] {
	return &Validator[S, E]{
		machine: machine,
		events:  buildEvents(transitions),
	}
}

// NewSubscriptionValidator validates subscription lifecycle events.
func NewSubscriptionValidator() *Validator[domain.SubscriptionStatus, domain.SubscriptionEvent] {
	return New("subscription", domain.SubscriptionTransitions)
}

// NewModerationValidator validates store moderation events.
func NewModerationValidator() *Validator[domain.StoreStatus, domain.ModerationEvent] {
	return New("store", domain.ModerationTransitions)
}

// Apply checks if the given event is valid from the current status and
// returns the destination status. A declared self-loop returns the current
// status unchanged. Returns a domain.TransitionError if the transition is
// not allowed.
func (v *Validator[S, E]) Apply(ctx context.Context, current S, event E) (S, error) {
	machine := loopfsm.NewFSM(string(current), v.events, nil)

	if err := machine.Event(ctx, string(event)); err != nil {
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &noTransition) {
			return current, nil
		}
		var invalidEvent loopfsm.InvalidEventError
		var unknownEvent loopfsm.UnknownEventError
		if errors.As(err, &invalidEvent) || errors.As(err, &unknownEvent) {
			return "", &domain.TransitionError{
				Machine: v.machine,
				Event:   string(event),
				Current: string(current),
			}
		}
		return "", err
	}

	return S(machine.Current()), nil
}
