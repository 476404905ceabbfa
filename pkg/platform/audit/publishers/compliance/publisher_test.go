package compliance

import (
	"context"
	"errors"
	"testing"

	audit "ecovalue/pkg/platform/audit"
	"ecovalue/pkg/platform/audit/store/memory"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{ memory.InMemoryStore }

func (f *failingStore) Append(context.Context, audit.Event) error {
	return errors.New("disk full")
}

func TestPublisher_Emit(t *testing.T) {
	store := memory.NewInMemoryStore()
	metrics := NewMetrics(prometheus.NewRegistry())
	pub := New(store, WithMetrics(metrics))
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		Action:    string(audit.EventCreditsIssued),
		ServiceID: 4,
		EntityID:  1,
	})
	require.NoError(t, err)

	events, err := store.ListByService(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.NotEqual(t, [16]byte{}, [16]byte(events[0].ID))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.EventsEmitted.WithLabelValues("compliance")), 0)
}

func TestPublisher_RejectsMalformedEvents(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := New(store)
	ctx := context.Background()

	require.Error(t, pub.Emit(ctx, audit.Event{ServiceID: 1}), "missing action")
	require.Error(t, pub.Emit(ctx, audit.Event{Action: "service_deleted", ServiceID: 1}), "unknown action")
	require.Error(t, pub.Emit(ctx, audit.Event{Action: string(audit.EventMeasurementRecorded)}), "missing service")

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestPublisher_FailClosed(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	pub := New(&failingStore{}, WithMetrics(metrics))

	err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventServiceRegistered), ServiceID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.PersistFailures), 0)
}
