package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSchedulerConfig(t *testing.T) {
	config := DefaultSchedulerConfig()

	assert.Equal(t, "@every 30s", config.ProcessSchedule)
	assert.Equal(t, "@hourly", config.PurgeSchedule)
	assert.Equal(t, 2*time.Minute, config.PassTimeout)
	assert.Equal(t, 7*24*time.Hour, config.Retention)
}

func TestNewScheduler_InvalidSchedule(t *testing.T) {
	q := newTestQueue(t, NewMemoryStore(), &mockLookup{}, &mockSender{})

	_, err := NewScheduler(SchedulerConfig{ProcessSchedule: "every now and then"}, q)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid process schedule")

	_, err = NewScheduler(SchedulerConfig{PurgeSchedule: "61 * * * *", Retention: time.Hour}, q)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid purge schedule")
}

func TestNewScheduler_CronExpressions(t *testing.T) {
	q := newTestQueue(t, NewMemoryStore(), &mockLookup{}, &mockSender{})

	s, err := NewScheduler(SchedulerConfig{ProcessSchedule: "*/5 * * * *", PurgeSchedule: "0 3 * * *", Retention: time.Hour}, q)
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 2)
}

func TestScheduler_RunsPasses(t *testing.T) {
	sender := &mockSender{}
	q := newTestQueue(t, NewMemoryStore(), &mockLookup{chats: map[string]string{"user-1": "chat-1"}}, sender)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, NewJob("user-1", testPayload("S1"))))

	s, err := NewScheduler(SchedulerConfig{ProcessSchedule: "@every 1s", PassTimeout: time.Second}, q)
	require.NoError(t, err)

	s.Start(ctx)
	defer s.Stop()

	assert.Eventually(t, func() bool {
		stats, err := q.GetStats(ctx)
		return err == nil && stats.Delivered == 1
	}, 5*time.Second, 50*time.Millisecond)
}

func TestScheduler_RunPurge(t *testing.T) {
	q := newTestQueue(t, NewMemoryStore(), &mockLookup{chats: map[string]string{"user-1": "chat-1"}}, &mockSender{})
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, NewJob("user-1", testPayload("P1"))))
	_, err := q.ProcessQueue(ctx)
	require.NoError(t, err)

	// Negative retention moves the cutoff into the future.
	s, err := NewScheduler(SchedulerConfig{Retention: -time.Minute}, q)
	require.NoError(t, err)
	s.runPurge()

	stats, err := q.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, QueueStats{}, stats)
}

func TestScheduler_StopCancelsContext(t *testing.T) {
	q := newTestQueue(t, NewMemoryStore(), &mockLookup{}, &mockSender{})

	s, err := NewScheduler(SchedulerConfig{}, q)
	require.NoError(t, err)

	s.Start(context.Background())
	s.Stop()

	assert.Error(t, s.ctx.Err())
}
