package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestStateOf(t *testing.T) {
	now := time.Now()
	future := now.AddDate(0, 0, 10)

	tests := []struct {
		name string
		sub  *Subscription
		want State
	}{
		{
			name: "nil subscription permits nothing",
			sub:  nil,
			want: State{Name: "None", Description: "No subscription"},
		},
		{
			name: "free tier only upgrades",
			sub:  &Subscription{ExternalID: FreeExternalID(uuid.New()), Status: StatusActive},
			want: freeState,
		},
		{
			name: "active allows plan changes and cancel",
			sub:  &Subscription{ExternalID: "sub_1", Status: StatusActive},
			want: statusStates[StatusActive],
		},
		{
			name: "trialing allows plan changes and cancel",
			sub:  &Subscription{ExternalID: "sub_2", Status: StatusTrialing},
			want: statusStates[StatusTrialing],
		},
		{
			name: "past due only cancels",
			sub:  &Subscription{ExternalID: "sub_3", Status: StatusPastDue},
			want: statusStates[StatusPastDue],
		},
		{
			name: "canceled is terminal",
			sub:  &Subscription{ExternalID: "sub_4", Status: StatusCanceled},
			want: statusStates[StatusCanceled],
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stateAt(tt.sub, now))
		})
	}

	t.Run("scheduled cancellation in period can resume", func(t *testing.T) {
		sub := &Subscription{ExternalID: "sub_5", Status: StatusActive, EndsAt: &future}
		st := stateAt(sub, now)
		assert.True(t, st.CanResume)
		assert.True(t, st.CanCancel)
	})

	t.Run("resume window closes once the period ends", func(t *testing.T) {
		past := now.AddDate(0, 0, -1)
		sub := &Subscription{ExternalID: "sub_6", Status: StatusActive, EndsAt: &past}
		st := stateAt(sub, now)
		assert.False(t, st.CanResume)
	})

	t.Run("past due with scheduled end cannot resume", func(t *testing.T) {
		sub := &Subscription{ExternalID: "sub_7", Status: StatusPastDue, EndsAt: &future}
		st := stateAt(sub, now)
		assert.False(t, st.CanResume)
	})
}

func TestStateAllowedActions(t *testing.T) {
	st := statusStates[StatusActive]
	assert.Equal(t, []Action{ActionUpgrade, ActionDowngrade, ActionCancel}, st.AllowedActions())

	assert.Empty(t, statusStates[StatusCanceled].AllowedActions())
	assert.Equal(t, []Action{ActionUpgrade}, freeState.AllowedActions())
}
