package notifications

import "time"

// JobState represents the delivery state of a job. There is no failed state:
// a failed attempt leaves the job pending (retry) or abandoned, with LastError
// set. QueueStats.Failed counts those jobs.
type JobState string

// Job states.
const (
	JobStatePending   JobState = "pending"
	JobStateInFlight  JobState = "in_flight"
	JobStateDelivered JobState = "delivered"
	JobStateAbandoned JobState = "abandoned"
)

var validTransitions = map[JobState][]JobState{
	JobStatePending:  {JobStateInFlight},
	JobStateInFlight: {JobStateDelivered, JobStatePending, JobStateAbandoned},
}

// CanTransition reports whether a job may move from one state to another.
func CanTransition(from, to JobState) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions leave the state.
func (s JobState) IsTerminal() bool {
	return s == JobStateDelivered || s == JobStateAbandoned
}

// Job is one notification delivery unit tied to one order event.
type Job struct {
	ID                string       `json:"id"`
	DestinationUserID string       `json:"destination_user_id"`
	Payload           OrderPayload `json:"payload"`
	State             JobState     `json:"state"`
	AttemptCount      int          `json:"attempt_count"`
	LastError         string       `json:"last_error,omitempty"`
	EnqueuedAt        time.Time    `json:"enqueued_at"`
	LastAttemptAt     *time.Time   `json:"last_attempt_at,omitempty"`
}

// NewJob creates a pending job for the given seller.
func NewJob(destinationUserID string, payload OrderPayload) *Job {
	return &Job{
		DestinationUserID: destinationUserID,
		Payload:           payload,
		State:             JobStatePending,
	}
}

// Clone returns a deep copy of the job.
func (j *Job) Clone() *Job {
	c := *j
	c.Payload = j.Payload.clone()
	if j.LastAttemptAt != nil {
		t := *j.LastAttemptAt
		c.LastAttemptAt = &t
	}
	return &c
}

// lastActivity is the latest moment the job was touched.
func (j *Job) lastActivity() time.Time {
	if j.LastAttemptAt != nil {
		return *j.LastAttemptAt
	}
	return j.EnqueuedAt
}
