package publisher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "regdesk/pkg/domain"
	audit "regdesk/pkg/platform/audit"
	"regdesk/pkg/platform/audit/store/memory"
)

func newRegID() id.RegistrationID {
	return id.NewRegistrationID(time.Now())
}

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	regID := newRegID()
	event := audit.Event{
		RegistrationID: regID,
		Action:         string(audit.EventRegistrationCreated),
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events, err := pub.List(context.Background(), regID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventRegistrationCreated), events[0].Action)
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))
	defer pub.Close()

	regID := newRegID()
	event := audit.Event{
		RegistrationID: regID,
		Action:         string(audit.EventStepAdvanced),
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	// Wait for async processing
	time.Sleep(100 * time.Millisecond)

	events, err := pub.List(context.Background(), regID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventStepAdvanced), events[0].Action)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	regID := newRegID()

	for range 10 {
		event := audit.Event{
			RegistrationID: regID,
			Action:         string(audit.EventDocumentAttached),
		}
		err := pub.Emit(context.Background(), event)
		require.NoError(t, err)
	}

	// Close should drain all events
	pub.Close()

	events, err := store.ListByRegistration(context.Background(), regID)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_FallsBackToSync(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))

	regID := newRegID()

	// Hammer a tiny buffer. Events that miss the buffer must be written
	// synchronously, so none are lost.
	var wg sync.WaitGroup
	const total = 10
	for range total {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pub.Emit(context.Background(), audit.Event{
				RegistrationID: regID,
				Action:         string(audit.EventDocumentAttached),
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	pub.Close()

	events, err := store.ListByRegistration(context.Background(), regID)
	require.NoError(t, err)
	assert.Len(t, events, total)
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	regID := newRegID()
	event := audit.Event{
		RegistrationID: regID,
		Action:         string(audit.EventRegistrationCreated),
		// Timestamp not set
	}

	before := time.Now()
	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)
	after := time.Now()

	events, err := pub.List(context.Background(), regID)
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.False(t, events[0].Timestamp.Before(before.UTC()), "timestamp should be >= before")
	assert.False(t, events[0].Timestamp.After(after.UTC()), "timestamp should be <= after")
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	regID := newRegID()
	customTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	event := audit.Event{
		RegistrationID: regID,
		Action:         string(audit.EventRegistrationCreated),
		Timestamp:      customTime,
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events, err := pub.List(context.Background(), regID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

func TestPublisher_DerivesCategory(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	regID := newRegID()
	err := pub.Emit(context.Background(), audit.Event{
		RegistrationID: regID,
		Action:         string(audit.EventGateApproved),
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), regID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
}

func TestPublisher_MultipleEvents(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	regID := newRegID()

	events := []audit.Event{
		{RegistrationID: regID, Action: string(audit.EventRegistrationCreated)},
		{RegistrationID: regID, Action: string(audit.EventGateApproved)},
		{RegistrationID: regID, Action: string(audit.EventStepAdvanced)},
	}

	for _, event := range events {
		err := pub.Emit(context.Background(), event)
		require.NoError(t, err)
	}

	result, err := pub.List(context.Background(), regID)
	require.NoError(t, err)
	require.Len(t, result, 3)

	assert.Equal(t, string(audit.EventRegistrationCreated), result[0].Action)
	assert.Equal(t, string(audit.EventGateApproved), result[1].Action)
	assert.Equal(t, string(audit.EventStepAdvanced), result[2].Action)
}

func TestPublisher_DifferentRegistrations(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	regID1 := newRegID()
	regID2 := newRegID()

	err := pub.Emit(context.Background(), audit.Event{
		RegistrationID: regID1,
		Action:         string(audit.EventRegistrationCreated),
	})
	require.NoError(t, err)

	err = pub.Emit(context.Background(), audit.Event{
		RegistrationID: regID2,
		Action:         string(audit.EventDocumentsPublished),
	})
	require.NoError(t, err)

	events1, err := pub.List(context.Background(), regID1)
	require.NoError(t, err)
	require.Len(t, events1, 1)
	assert.Equal(t, string(audit.EventRegistrationCreated), events1[0].Action)

	events2, err := pub.List(context.Background(), regID2)
	require.NoError(t, err)
	require.Len(t, events2, 1)
	assert.Equal(t, string(audit.EventDocumentsPublished), events2[0].Action)
}
