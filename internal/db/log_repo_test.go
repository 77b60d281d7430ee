package db

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"teanotify/internal/types"
)

var logCreatedAt = time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)

// logRowScan scripts one notification_logs row in column order.
func logRowScan(e *types.LogEntry) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*string)) = e.ID
		*(dest[1].(*string)) = string(e.Event)
		*(dest[2].(*string)) = string(e.Channel)
		*(dest[3].(*string)) = e.Recipient
		*(dest[4].(*string)) = string(e.Status)
		*(dest[5].(*string)) = string(e.Priority)
		*(dest[6].(**string)) = nilIfEmpty(e.Subject)
		*(dest[7].(*string)) = e.Body
		payload, err := marshalPayload(e.Payload)
		if err != nil {
			return err
		}
		*(dest[8].(*[]byte)) = payload
		*(dest[9].(**string)) = nilIfEmpty(e.TemplateID)
		*(dest[10].(**string)) = nilIfEmpty(e.Diagnostic)
		*(dest[11].(*int)) = e.RetryCount
		*(dest[12].(**time.Time)) = e.ScheduledAt
		*(dest[13].(**time.Time)) = e.SentAt
		*(dest[14].(*time.Time)) = e.CreatedAt
		return nil
	}
}

func sqlContains(substrs ...string) any {
	return mock.MatchedBy(func(sql string) bool {
		for _, s := range substrs {
			if !strings.Contains(sql, s) {
				return false
			}
		}
		return true
	})
}

func TestLogRepository_Append_GeneratesID(t *testing.T) {
	dbtx := &mockDBTX{}
	dbtx.On("QueryRow", mock.Anything, sqlContains("INSERT INTO notification_logs"), mock.Anything).
		Return(mockRow{scanFn: func(dest ...any) error {
			*(dest[0].(*time.Time)) = logCreatedAt
			return nil
		}})

	repo := NewLogRepository(dbtx)
	entry := &types.LogEntry{
		Event:     types.EventOrderPlaced,
		Channel:   types.ChannelEmail,
		Recipient: "amit@example.com",
		Status:    types.StatusSent,
		Priority:  types.PriorityHigh,
		Body:      "body",
	}

	err := repo.Append(context.Background(), entry)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(entry.ID, "nlog_"))
	assert.Equal(t, logCreatedAt, entry.CreatedAt)
	dbtx.AssertExpectations(t)
}

func TestLogRepository_Append_KeepsProvidedID(t *testing.T) {
	dbtx := &mockDBTX{}
	dbtx.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
		Return(mockRow{scanFn: func(dest ...any) error {
			*(dest[0].(*time.Time)) = logCreatedAt
			return nil
		}})

	repo := NewLogRepository(dbtx)
	entry := &types.LogEntry{
		ID:        "nlog_fixed",
		Event:     types.EventOrderPlaced,
		Channel:   types.ChannelEmail,
		Recipient: "a@b.c",
		Status:    types.StatusFailed,
		Priority:  types.PriorityMedium,
	}

	require.NoError(t, repo.Append(context.Background(), entry))
	assert.Equal(t, "nlog_fixed", entry.ID)
}

func TestLogRepository_List_AppliesFilter(t *testing.T) {
	scheduledAt := logCreatedAt.Add(-time.Hour)
	stored := &types.LogEntry{
		ID:          "nlog_1",
		Event:       types.EventOrderPlaced,
		Channel:     types.ChannelEmail,
		Recipient:   "amit@example.com",
		Status:      types.StatusSent,
		Priority:    types.PriorityHigh,
		Subject:     "Order Confirmation",
		Body:        "body",
		Payload:     types.Payload{"order_id": "IV-1"},
		ScheduledAt: &scheduledAt,
		CreatedAt:   logCreatedAt,
	}

	dbtx := &mockDBTX{}
	dbtx.On("Query", mock.Anything,
		sqlContains("FROM notification_logs", "recipient =", "status =", "ORDER BY created_at DESC"),
		[]any{"amit@example.com", "sent"},
	).Return(&mockRows{scans: []func(dest ...any) error{logRowScan(stored)}}, nil)

	repo := NewLogRepository(dbtx)
	entries, err := repo.List(context.Background(), types.LogFilter{
		Recipient: "amit@example.com",
		Status:    types.StatusSent,
	}, 10, 0)

	require.NoError(t, err)
	require.Len(t, entries, 1)
	got := entries[0]
	assert.Equal(t, stored.ID, got.ID)
	assert.Equal(t, stored.Event, got.Event)
	assert.Equal(t, stored.Subject, got.Subject)
	assert.Equal(t, "IV-1", got.Payload["order_id"])
	require.NotNil(t, got.ScheduledAt)
	assert.Equal(t, scheduledAt, *got.ScheduledAt)
	dbtx.AssertExpectations(t)
}

func TestLogRepository_List_NoFilterHasNoWhere(t *testing.T) {
	dbtx := &mockDBTX{}
	dbtx.On("Query", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return !strings.Contains(sql, "WHERE")
	}), mock.Anything).Return(&mockRows{}, nil)

	repo := NewLogRepository(dbtx)
	entries, err := repo.List(context.Background(), types.LogFilter{}, 0, 0)

	require.NoError(t, err)
	assert.Empty(t, entries)
	dbtx.AssertExpectations(t)
}

func TestLogRepository_Count(t *testing.T) {
	dbtx := &mockDBTX{}
	dbtx.On("QueryRow", mock.Anything, sqlContains("COUNT(*)", "notification_logs"), []any{"order_placed"}).
		Return(mockRow{scanFn: func(dest ...any) error {
			*(dest[0].(*int)) = 42
			return nil
		}})

	repo := NewLogRepository(dbtx)
	count, err := repo.Count(context.Background(), types.LogFilter{Event: types.EventOrderPlaced})

	require.NoError(t, err)
	assert.Equal(t, 42, count)
}

func TestLogRepository_Stats(t *testing.T) {
	statsRows := &mockRows{scans: []func(dest ...any) error{
		func(dest ...any) error {
			*(dest[0].(*string)) = "order_placed"
			*(dest[1].(*string)) = "email"
			*(dest[2].(*string)) = "sent"
			*(dest[3].(*int)) = 8
			return nil
		},
		func(dest ...any) error {
			*(dest[0].(*string)) = "order_placed"
			*(dest[1].(*string)) = "whatsapp"
			*(dest[2].(*string)) = "failed"
			*(dest[3].(*int)) = 2
			return nil
		},
	}}
	recent := &types.LogEntry{
		ID: "nlog_1", Event: types.EventOrderPlaced, Channel: types.ChannelEmail,
		Recipient: "amit@example.com", Status: types.StatusSent,
		Priority: types.PriorityHigh, CreatedAt: logCreatedAt,
	}

	dbtx := &mockDBTX{}
	dbtx.On("Query", mock.Anything, sqlContains("GROUP BY event, channel, status"), mock.Anything).
		Return(statsRows, nil).Once()
	dbtx.On("Query", mock.Anything, sqlContains("ORDER BY created_at DESC"), mock.Anything).
		Return(&mockRows{scans: []func(dest ...any) error{logRowScan(recent)}}, nil).Once()

	repo := NewLogRepository(dbtx)
	report, err := repo.Stats(context.Background(), logCreatedAt.AddDate(0, 0, -7), "", "")

	require.NoError(t, err)
	assert.Equal(t, 8, report.TotalSent)
	assert.Equal(t, 2, report.TotalFailed)
	assert.Equal(t, float64(80), report.SuccessRate)
	assert.Equal(t, map[string]int{"email": 8, "whatsapp": 2}, report.ByChannel)
	assert.Equal(t, map[string]int{"order_placed": 10}, report.ByEvent)
	require.Len(t, report.RecentActivity, 1)
	assert.Equal(t, types.EventOrderPlaced, report.RecentActivity[0].Event)
	dbtx.AssertExpectations(t)
}

func TestLogRepository_Stats_EmptyWindow(t *testing.T) {
	dbtx := &mockDBTX{}
	dbtx.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(&mockRows{}, nil)

	repo := NewLogRepository(dbtx)
	report, err := repo.Stats(context.Background(), logCreatedAt, "", "")

	require.NoError(t, err)
	assert.Zero(t, report.TotalSent)
	assert.Zero(t, report.SuccessRate)
	assert.Empty(t, report.RecentActivity)
}
