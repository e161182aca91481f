package eventbus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valuation-backend/internal/storage"
)

type memoryActivity struct {
	mu      sync.Mutex
	entries []storage.ActivityEntry
}

func (m *memoryActivity) SaveActivity(_ context.Context, e storage.ActivityEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBus_DispatchesToEverySubscriberInOrder(t *testing.T) {
	bus := New(discard(), 8)
	store := &memoryActivity{}

	var seen []string
	bus.Subscribe("failing", HandlerFunc(func(context.Context, Event) error {
		return errors.New("boom")
	}))
	bus.Subscribe("activity", NewActivityConsumer(store))
	bus.Subscribe("types", HandlerFunc(func(_ context.Context, evt Event) error {
		seen = append(seen, evt.Type)
		return nil
	}))
	bus.Start(context.Background())

	bus.Publish(context.Background(), NewEvent(ReportCreated, "cev", "u1", "report", "r1", "CEV-20251128-0008 created"))
	bus.Publish(context.Background(), NewEvent(ReportUpdated, "cev", "u1", "report", "r1", "version 2"))
	bus.Stop()

	assert.Equal(t, []string{ReportCreated, ReportUpdated}, seen)
	require.Len(t, store.entries, 2)
	assert.Equal(t, "cev", store.entries[0].OrganizationID)
	assert.Equal(t, ReportCreated, store.entries[0].Action)
	assert.NotEmpty(t, store.entries[0].ID)
}

func TestBus_PublishDropsWhenFull(t *testing.T) {
	bus := New(discard(), 1)

	bus.Publish(context.Background(), NewEvent(ReportCreated, "cev", "u1", "report", "r1", ""))
	bus.Publish(context.Background(), NewEvent(ReportCreated, "cev", "u1", "report", "r2", ""))

	assert.Len(t, bus.events, 1)
}

func TestBus_DeliversEventsPublishedAfterStartContextEnds(t *testing.T) {
	bus := New(discard(), 8)
	store := &memoryActivity{}
	bus.Subscribe("activity", NewActivityConsumer(store))

	ctx, cancel := context.WithCancel(context.Background())
	bus.Start(ctx)
	cancel()

	bus.Publish(context.Background(), NewEvent(ReportUpdated, "cev", "u1", "report", "r1", "version 3"))
	bus.Stop()

	require.Len(t, store.entries, 1)
	assert.Equal(t, ReportUpdated, store.entries[0].Action)
}

func TestBus_PublishAfterStopIsDropped(t *testing.T) {
	bus := New(discard(), 8)
	store := &memoryActivity{}
	bus.Subscribe("activity", NewActivityConsumer(store))
	bus.Start(context.Background())
	bus.Stop()

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), NewEvent(ReportDeleted, "cev", "u1", "report", "r1", ""))
	})
	bus.Stop()

	assert.Empty(t, store.entries)
}
