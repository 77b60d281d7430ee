package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teanotify/internal/notifications"
	"teanotify/internal/types"
)

type fakeClock struct {
	now time.Time
}

func (c fakeClock) Now() time.Time { return c.now }

type fakeStore struct {
	mu       sync.Mutex
	due      []*types.QueueEntry
	claimErr error

	sentIDs   []string
	failedIDs map[string]string // id -> recorded error

	purged   int64
	purgeErr error
	purgedAt time.Time
}

func (s *fakeStore) ClaimDue(_ context.Context, _ time.Time, _ int) ([]*types.QueueEntry, error) {
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	return s.due, nil
}

func (s *fakeStore) MarkSent(_ context.Context, id string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentIDs = append(s.sentIDs, id)
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id string, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failedIDs == nil {
		s.failedIDs = make(map[string]string)
	}
	s.failedIDs[id] = errMsg
	return nil
}

func (s *fakeStore) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	s.purgedAt = now
	return s.purged, s.purgeErr
}

type fakeLogStore struct {
	mu      sync.Mutex
	entries []*types.LogEntry
}

func (s *fakeLogStore) Append(_ context.Context, e *types.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

// fakeDispatcher fails recipients listed in failFor, sends everything else.
type fakeDispatcher struct {
	mu      sync.Mutex
	reqs    []*types.NotificationRequest
	failFor map[string]string
}

func (d *fakeDispatcher) Dispatch(_ context.Context, req *types.NotificationRequest) *types.DispatchResult {
	d.mu.Lock()
	d.reqs = append(d.reqs, req)
	d.mu.Unlock()

	out := types.DeliveryOutcome{Channel: req.Channels[0], Status: types.StatusSent, Attempts: 1, Subject: "subj", Body: "body"}
	if diag, ok := d.failFor[req.Recipient]; ok {
		out = types.DeliveryOutcome{Channel: req.Channels[0], Status: types.StatusFailed, Diagnostic: diag, Attempts: 3}
	}
	return &types.DispatchResult{
		Event:     req.Event,
		Recipient: req.Recipient,
		Outcomes:  []types.DeliveryOutcome{out},
	}
}

type lagRecorder struct {
	mu   sync.Mutex
	lags []time.Duration
}

func (r *lagRecorder) RecordDelivery(context.Context, types.ChannelType, notifications.MetricResult) {
}

func (r *lagRecorder) RecordLatency(context.Context, types.ChannelType, time.Duration) {}

func (r *lagRecorder) RecordQueueLag(_ context.Context, lag time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lags = append(r.lags, lag)
}

var sweepNow = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

func dueEntry(id, recipient string, scheduledAt time.Time) *types.QueueEntry {
	return &types.QueueEntry{
		ID:          id,
		Event:       types.EventOrderPlaced,
		Channel:     types.ChannelEmail,
		Recipient:   recipient,
		Priority:    types.PriorityHigh,
		Payload:     types.Payload{"order_id": "IV-1"},
		Status:      types.StatusProcessing,
		ScheduledAt: scheduledAt,
	}
}

func TestSweep_DispatchesClaimedEntries(t *testing.T) {
	store := &fakeStore{
		due: []*types.QueueEntry{
			dueEntry("nq_1", "amit@example.com", sweepNow.Add(-time.Minute)),
			dueEntry("nq_2", "priya@example.com", sweepNow.Add(-2*time.Minute)),
		},
		purged: 3,
	}
	logs := &fakeLogStore{}
	dispatcher := &fakeDispatcher{failFor: map[string]string{"priya@example.com": "mailbox full"}}

	s := NewSweeper(SweeperConfig{
		Store:      store,
		Logs:       logs,
		Dispatcher: dispatcher,
		Clock:      fakeClock{now: sweepNow},
	})

	report, err := s.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Report{Claimed: 2, Sent: 1, Failed: 1, Purged: 3}, report)

	assert.Equal(t, []string{"nq_1"}, store.sentIDs)
	assert.Equal(t, "mailbox full", store.failedIDs["nq_2"])
	assert.Len(t, dispatcher.reqs, 2)
	assert.Len(t, logs.entries, 2)
}

func TestSweep_EmptyQueue(t *testing.T) {
	store := &fakeStore{}
	s := NewSweeper(SweeperConfig{
		Store:      store,
		Logs:       &fakeLogStore{},
		Dispatcher: &fakeDispatcher{},
		Clock:      fakeClock{now: sweepNow},
	})

	report, err := s.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Report{}, report)
	assert.Equal(t, sweepNow, store.purgedAt, "purge runs even when nothing is due")
}

func TestSweep_ClaimErrorAborts(t *testing.T) {
	store := &fakeStore{claimErr: errors.New("deadlock detected")}
	dispatcher := &fakeDispatcher{}
	s := NewSweeper(SweeperConfig{
		Store:      store,
		Logs:       &fakeLogStore{},
		Dispatcher: dispatcher,
	})

	_, err := s.Sweep(context.Background())

	require.Error(t, err)
	assert.Empty(t, dispatcher.reqs)
}

func TestSweep_PurgeErrorStillReportsBatchCounts(t *testing.T) {
	store := &fakeStore{
		due:      []*types.QueueEntry{dueEntry("nq_1", "amit@example.com", sweepNow.Add(-time.Minute))},
		purgeErr: errors.New("relation locked"),
	}
	s := NewSweeper(SweeperConfig{
		Store:      store,
		Logs:       &fakeLogStore{},
		Dispatcher: &fakeDispatcher{},
		Clock:      fakeClock{now: sweepNow},
	})

	report, err := s.Sweep(context.Background())

	require.Error(t, err)
	assert.Equal(t, 1, report.Claimed)
	assert.Equal(t, 1, report.Sent)
	assert.Zero(t, report.Purged)
}

func TestSweep_LogEntryMirrorsQueueEntry(t *testing.T) {
	scheduledAt := sweepNow.Add(-5 * time.Minute)
	entry := dueEntry("nq_1", "amit@example.com", scheduledAt)
	entry.TemplateID = "tpl_9"
	entry.RetryCount = 1

	logs := &fakeLogStore{}
	s := NewSweeper(SweeperConfig{
		Store:      &fakeStore{due: []*types.QueueEntry{entry}},
		Logs:       logs,
		Dispatcher: &fakeDispatcher{},
		Clock:      fakeClock{now: sweepNow},
	})

	_, err := s.Sweep(context.Background())
	require.NoError(t, err)

	require.Len(t, logs.entries, 1)
	logged := logs.entries[0]
	assert.Equal(t, entry.Event, logged.Event)
	assert.Equal(t, entry.Channel, logged.Channel)
	assert.Equal(t, entry.Recipient, logged.Recipient)
	assert.Equal(t, types.StatusSent, logged.Status)
	assert.Equal(t, "tpl_9", logged.TemplateID)
	assert.Equal(t, 1, logged.RetryCount)
	require.NotNil(t, logged.ScheduledAt)
	assert.Equal(t, scheduledAt, *logged.ScheduledAt)
	require.NotNil(t, logged.SentAt)
	assert.Equal(t, sweepNow, *logged.SentAt)
}

func TestSweep_RecordsQueueLag(t *testing.T) {
	scheduledAt := sweepNow.Add(-90 * time.Second)
	metrics := &lagRecorder{}
	s := NewSweeper(SweeperConfig{
		Store:      &fakeStore{due: []*types.QueueEntry{dueEntry("nq_1", "amit@example.com", scheduledAt)}},
		Logs:       &fakeLogStore{},
		Dispatcher: &fakeDispatcher{},
		Metrics:    metrics,
		Clock:      fakeClock{now: sweepNow},
	})

	_, err := s.Sweep(context.Background())
	require.NoError(t, err)

	require.Len(t, metrics.lags, 1)
	assert.Equal(t, 90*time.Second, metrics.lags[0])
}

func TestSweep_BoundedConcurrencyProcessesWholeBatch(t *testing.T) {
	var due []*types.QueueEntry
	for _, id := range []string{"nq_1", "nq_2", "nq_3", "nq_4", "nq_5"} {
		due = append(due, dueEntry(id, id+"@example.com", sweepNow.Add(-time.Minute)))
	}
	store := &fakeStore{due: due}
	s := NewSweeper(SweeperConfig{
		Store:       store,
		Logs:        &fakeLogStore{},
		Dispatcher:  &fakeDispatcher{},
		Concurrency: 2,
		Clock:       fakeClock{now: sweepNow},
	})

	report, err := s.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 5, report.Claimed)
	assert.Equal(t, 5, report.Sent)
	assert.Len(t, store.sentIDs, 5)
}
