package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "xftledger/pkg/domain"
	audit "xftledger/pkg/platform/audit"
	"xftledger/pkg/platform/audit/store/memory"
	"xftledger/pkg/platform/audit/worker"
)

var account = id.Address("0x000000000000000000000000000000000000a11c")

type failingSink struct{}

func (failingSink) Append(context.Context, audit.Event) error {
	return errors.New("sink down")
}

func TestComplianceEventsAreSynchronous(t *testing.T) {
	store := memory.NewInMemoryStore()
	recorder := audit.NewRecorder(4, store)

	err := recorder.Record(context.Background(), audit.Event{
		Category: audit.CategoryCompliance,
		Subject:  account,
		Action:   string(audit.EventBalanceAdjusted),
		Amount:   "150",
		Reason:   "reconciliation",
	})
	require.NoError(t, err)

	events, err := store.ListBySubject(context.Background(), account)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestComplianceEventsFailClosed(t *testing.T) {
	recorder := audit.NewRecorder(4, failingSink{})
	err := recorder.Record(context.Background(), audit.Event{
		Category: audit.CategoryCompliance,
		Action:   string(audit.EventBalanceAdjusted),
	})
	require.Error(t, err)
}

func TestOperationsEventsAreQueued(t *testing.T) {
	store := memory.NewInMemoryStore()
	recorder := audit.NewRecorder(4, store)

	require.NoError(t, recorder.Record(context.Background(), audit.Event{
		Category: audit.CategoryOperations,
		Subject:  account,
		Action:   string(audit.EventRequestQueued),
	}))

	// Nothing lands until the worker drains the queue.
	events, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, events)

	select {
	case event := <-recorder.Inbox():
		require.NoError(t, store.Append(context.Background(), event))
	default:
		t.Fatal("expected a queued event")
	}
	events, err = store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestOperationsEventsDropWhenFull(t *testing.T) {
	recorder := audit.NewRecorder(1, failingSink{})
	for range 3 {
		// Fail-open: never an error even with a full queue and a dead sink.
		require.NoError(t, recorder.Record(context.Background(), audit.Event{
			Category: audit.CategoryOperations,
			Action:   string(audit.EventRequestQueued),
		}))
	}
}

func TestWorkerDrainsIntoSinks(t *testing.T) {
	store := memory.NewInMemoryStore()
	recorder := audit.NewRecorder(4, store)
	w := worker.NewWorker(recorder.Inbox(), nil, store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, recorder.Record(ctx, audit.Event{
		Category: audit.CategoryOperations,
		Subject:  account,
		Action:   string(audit.EventPriceUpdated),
	}))

	assert.Eventually(t, func() bool {
		events, err := store.ListRecent(context.Background(), 10)
		return err == nil && len(events) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestEventCategories(t *testing.T) {
	assert.Equal(t, audit.CategoryCompliance, audit.EventBalanceAdjusted.Category())
	assert.Equal(t, audit.CategoryOperations, audit.EventRequestQueued.Category())
	assert.Equal(t, audit.CategoryOperations, audit.AuditEvent("unknown").Category())
}
