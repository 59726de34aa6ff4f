package notifications

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to JobState
		allowed  bool
	}{
		{JobStatePending, JobStateInFlight, true},
		{JobStateInFlight, JobStateDelivered, true},
		{JobStateInFlight, JobStatePending, true},
		{JobStateInFlight, JobStateAbandoned, true},
		{JobStatePending, JobStateDelivered, false},
		{JobStatePending, JobStateAbandoned, false},
		{JobStateDelivered, JobStatePending, false},
		{JobStateAbandoned, JobStatePending, false},
		{JobStateDelivered, JobStateInFlight, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestJobState_IsTerminal(t *testing.T) {
	assert.False(t, JobStatePending.IsTerminal())
	assert.False(t, JobStateInFlight.IsTerminal())
	assert.True(t, JobStateDelivered.IsTerminal())
	assert.True(t, JobStateAbandoned.IsTerminal())
}

func TestJob_Clone(t *testing.T) {
	at := time.Now()
	job := NewJob("user-1", testPayload("1001"))
	job.LastAttemptAt = &at

	clone := job.Clone()
	clone.Payload.Items[0].Quantity = 99
	*clone.LastAttemptAt = at.Add(time.Hour)

	assert.Equal(t, 2, job.Payload.Items[0].Quantity)
	assert.Equal(t, at, *job.LastAttemptAt)
}

func TestOrderPayload_MessageType(t *testing.T) {
	p := testPayload("1")
	assert.Equal(t, MessageTypeOrderCreated, p.MessageType())

	p.IsUpdate = true
	assert.Equal(t, MessageTypeOrderUpdated, p.MessageType())
}

func TestJobState_NoFailedState(t *testing.T) {
	assert.False(t, CanTransition(JobStateInFlight, JobState("failed")))

	for from, targets := range validTransitions {
		for _, to := range targets {
			assert.NotEqual(t, JobState("failed"), to, "transition from %s", from)
		}
	}
}
