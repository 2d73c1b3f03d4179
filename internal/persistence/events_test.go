package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/petrijr/conduit/pkg/api"
)

func newTestSQLiteEventStore(t *testing.T) *SQLiteEventStore {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err, "sql.Open failed")
	// Every pooled connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = db.Close()
	})

	store, err := NewSQLiteEventStore(db)
	require.NoError(t, err, "NewSQLiteEventStore failed")
	return store
}

func newTestRedisEventStore(t *testing.T) *RedisEventStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return NewRedisEventStore(client, "conduit:test:")
}

func sampleEvents(runID string) []api.RunEvent {
	base := time.Unix(1700000000, 0)
	return []api.RunEvent{
		{RunID: runID, At: base, Type: api.EventRunStarted, Name: "checkout", Step: -1},
		{RunID: runID, At: base.Add(time.Millisecond), Type: api.EventStepDispatched, Name: "reserve", Step: 0, Detail: "func"},
		{RunID: runID, ParentID: "outer", At: base.Add(2 * time.Millisecond), Type: api.EventRunErrored, Name: "checkout", Step: -1, Detail: "boom"},
	}
}

// TestEventStores runs the same append/list contract against every backend.
func TestEventStores(t *testing.T) {
	backends := map[string]func(t *testing.T) api.EventStore{
		"memory": func(t *testing.T) api.EventStore { return NewInMemoryEventStore() },
		"sqlite": func(t *testing.T) api.EventStore { return newTestSQLiteEventStore(t) },
		"redis":  func(t *testing.T) api.EventStore { return newTestRedisEventStore(t) },
	}

	for name, factory := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)

			for _, ev := range sampleEvents("run-1") {
				require.NoError(t, store.AppendEvent(ctx, ev))
			}
			require.NoError(t, store.AppendEvent(ctx, api.RunEvent{RunID: "run-2", Type: api.EventRunStarted}))

			got, err := store.ListEvents(ctx, "run-1")
			require.NoError(t, err)
			require.Len(t, got, 3)

			want := sampleEvents("run-1")
			for i := range want {
				require.Equal(t, want[i].Type, got[i].Type, "event %d type", i)
				require.Equal(t, want[i].Name, got[i].Name, "event %d name", i)
				require.Equal(t, want[i].Step, got[i].Step, "event %d step", i)
				require.Equal(t, want[i].Detail, got[i].Detail, "event %d detail", i)
				require.Equal(t, want[i].ParentID, got[i].ParentID, "event %d parent", i)
				require.True(t, want[i].At.Equal(got[i].At), "event %d time: want %v got %v", i, want[i].At, got[i].At)
			}

			other, err := store.ListEvents(ctx, "run-2")
			require.NoError(t, err)
			require.Len(t, other, 1)
			require.False(t, other[0].At.IsZero(), "stores should stamp a time")

			missing, err := store.ListEvents(ctx, "nope")
			require.NoError(t, err)
			require.Empty(t, missing)

			require.ErrorIs(t, store.AppendEvent(ctx, api.RunEvent{Type: api.EventRunStarted}), ErrEmptyRunID)
		})
	}
}

func TestInMemoryEventStore_ListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryEventStore()
	require.NoError(t, store.AppendEvent(ctx, api.RunEvent{RunID: "r", Name: "a"}))

	got, err := store.ListEvents(ctx, "r")
	require.NoError(t, err)
	got[0].Name = "mutated"

	again, err := store.ListEvents(ctx, "r")
	require.NoError(t, err)
	require.Equal(t, "a", again[0].Name)
}

func TestNoopEventStore(t *testing.T) {
	ctx := context.Background()
	var store NoopEventStore
	require.NoError(t, store.AppendEvent(ctx, api.RunEvent{RunID: "r"}))
	got, err := store.ListEvents(ctx, "r")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestEventCodec(t *testing.T) {
	ev := sampleEvents("run-x")[1]
	data, err := EncodeEvent(ev)
	require.NoError(t, err)

	got, err := DecodeEvent(data)
	require.NoError(t, err)
	require.Equal(t, ev.RunID, got.RunID)
	require.Equal(t, ev.Type, got.Type)
	require.True(t, ev.At.Equal(got.At))

	_, err = DecodeEvent(nil)
	require.Error(t, err)

	_, err = DecodeEvent([]byte("not gob"))
	require.Error(t, err)
}
