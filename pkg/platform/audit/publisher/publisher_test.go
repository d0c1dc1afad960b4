package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "badgepass/pkg/platform/audit"
	"badgepass/pkg/platform/audit/store/memory"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	fixed := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	pub := NewPublisher(store, WithClock(func() time.Time { return fixed }))
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		Action:  string(audit.EventBadgeIssued),
		BadgeID: "b1",
	})
	require.NoError(t, err)

	events, err := store.ListByBadge(context.Background(), "b1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventBadgeIssued), events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.Equal(t, fixed, events[0].Timestamp)
}

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("disk full")
}

func TestPublisher_SyncModeSurfacesStoreError(t *testing.T) {
	pub := NewPublisher(failingStore{})
	err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventScanRejected)})
	assert.Error(t, err)
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		Action:  string(audit.EventCheckInRecorded),
		BadgeID: "b1",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		events, _ := store.ListByBadge(context.Background(), "b1")
		return len(events) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			Action:  string(audit.EventBadgeIssued),
			BadgeID: "b1",
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListByBadge(context.Background(), "b1")
	require.NoError(t, err)
	assert.Len(t, events, 10)
}

func TestPublisher_AsyncIgnoresStoreFailures(t *testing.T) {
	pub := NewPublisher(failingStore{}, WithAsyncBuffer(4))
	err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventScanRejected)})
	assert.NoError(t, err)
	pub.Close()
}

func TestPublisher_EmitAfterCloseIsNoop(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(4))
	pub.Close()
	pub.Close()

	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: "late"}))
	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPublisher_ConcurrentEmit(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1000))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pub.Emit(context.Background(), audit.Event{Action: string(audit.EventCheckInDuplicate)})
		}()
	}
	wg.Wait()
	pub.Close()

	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 50)
}

// stallingStore blocks every append until its context ends, like a producer
// retrying against an unreachable broker.
type stallingStore struct {
	local audit.Store
}

func (s stallingStore) Append(ctx context.Context, event audit.Event) error {
	if event.Action == string(audit.EventBadgeRevoked) {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.local.Append(ctx, event)
}

func TestPublisher_AppendTimeoutUnblocksQueue(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(stallingStore{local: store},
		WithAsyncBuffer(4),
		WithAppendTimeout(20*time.Millisecond),
	)

	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: string(audit.EventBadgeRevoked), BadgeID: "b1"}))
	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: string(audit.EventCheckInRecorded), BadgeID: "b1"}))

	require.Eventually(t, func() bool {
		events, _ := store.ListByBadge(context.Background(), "b1")
		return len(events) == 1
	}, time.Second, 10*time.Millisecond, "event behind the stalled one still lands")
	pub.Close()
}

func TestPublisher_ShutdownHonoursDeadlineOnStalledSink(t *testing.T) {
	pub := NewPublisher(stallingStore{local: memory.NewInMemoryStore()},
		WithAsyncBuffer(4),
		WithAppendTimeout(time.Hour),
	)
	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: string(audit.EventBadgeRevoked), BadgeID: "b1"}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	returned := make(chan error, 1)
	go func() { returned <- pub.Shutdown(ctx) }()

	select {
	case err := <-returned:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown blocked past its deadline")
	}
}
