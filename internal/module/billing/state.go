package billing

import "time"

// Action is a subscription lifecycle action a state may permit.
type Action string

const (
	ActionUpgrade   Action = "upgrade"
	ActionDowngrade Action = "downgrade"
	ActionCancel    Action = "cancel"
	ActionResume    Action = "resume"
)

// State answers which lifecycle actions are legal for a subscription status.
// It is a pure lookup table; transitions themselves are effected by the
// service operations, which consult the state before mutating.
type State struct {
	Name        string
	Description string

	CanUpgrade   bool
	CanDowngrade bool
	CanCancel    bool
	CanResume    bool
}

// AllowedActions enumerates the permitted actions.
func (s State) AllowedActions() []Action {
	var actions []Action
	if s.CanUpgrade {
		actions = append(actions, ActionUpgrade)
	}
	if s.CanDowngrade {
		actions = append(actions, ActionDowngrade)
	}
	if s.CanCancel {
		actions = append(actions, ActionCancel)
	}
	if s.CanResume {
		actions = append(actions, ActionResume)
	}
	return actions
}

var statusStates = map[SubscriptionStatus]State{
	StatusTrialing: {
		Name:         "Trialing",
		Description:  "Trial period running, full access",
		CanUpgrade:   true,
		CanDowngrade: true,
		CanCancel:    true,
	},
	StatusActive: {
		Name:         "Active",
		Description:  "Subscription in good standing",
		CanUpgrade:   true,
		CanDowngrade: true,
		CanCancel:    true,
	},
	StatusPastDue: {
		Name:        "Past due",
		Description: "Last payment failed, plan changes blocked until settled",
		CanCancel:   true,
	},
	StatusIncomplete: {
		Name:        "Incomplete",
		Description: "Initial payment not completed",
		CanCancel:   true,
	},
	// Canceled is terminal: nothing but creating a fresh subscription.
	StatusCanceled: {
		Name:        "Canceled",
		Description: "Subscription ended",
	},
}

// freeState is the synthetic state of free-tier subscriptions, which have no
// processor-side lifecycle. The free tier is the floor, so there is nothing
// to downgrade or cancel into.
var freeState = State{
	Name:        "Free",
	Description: "Free tier, upgrade any time",
	CanUpgrade:  true,
}

// StateOf returns the capability state for a subscription.
func StateOf(s *Subscription) State {
	return stateAt(s, time.Now())
}

func stateAt(s *Subscription, now time.Time) State {
	if s == nil {
		return State{Name: "None", Description: "No subscription"}
	}
	if s.IsFree() {
		return freeState
	}
	st, ok := statusStates[s.Status]
	if !ok {
		return State{Name: string(s.Status)}
	}
	// A scheduled cancellation still inside its paid period may be resumed.
	if s.CancellationScheduled(now) && s.IsActive() {
		st.CanResume = true
	}
	return st
}
