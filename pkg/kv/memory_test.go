package kv

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type record struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

func TestMemoryGetSetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	found, err := store.Get(ctx, "record:missing", &record{})
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.Set(ctx, "record:a", record{ID: "a", Count: 1}))

	var got record
	found, err = store.Get(ctx, "record:a", &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "a", got.ID)
}

func TestMemoryGetByPrefix(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	require.NoError(t, store.Set(ctx, "record:a", record{ID: "a"}))
	require.NoError(t, store.Set(ctx, "record:b", record{ID: "b"}))
	require.NoError(t, store.Set(ctx, "other:c", record{ID: "c"}))

	raws, err := store.GetByPrefix(ctx, "record:")
	require.NoError(t, err)
	require.Len(t, raws, 2)

	ids := map[string]bool{}
	for _, raw := range raws {
		var rec record
		require.NoError(t, json.Unmarshal(raw, &rec))
		ids[rec.ID] = true
	}
	require.True(t, ids["a"] && ids["b"])
}

func TestMemoryUpdateAbortLeavesRecordUntouched(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	require.NoError(t, store.Set(ctx, "record:a", record{ID: "a", Count: 7}))

	abort := func(raw []byte) (any, error) {
		return nil, context.Canceled
	}
	require.ErrorIs(t, store.Update(ctx, "record:a", abort), context.Canceled)

	var got record
	found, err := store.Get(ctx, "record:a", &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 7, got.Count)
}

func TestMemoryUpdateIsAtomicUnderContention(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	require.NoError(t, store.Set(ctx, "record:a", record{ID: "a"}))

	const writers = 64
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_ = store.Update(ctx, "record:a", func(raw []byte) (any, error) {
				var rec record
				if err := json.Unmarshal(raw, &rec); err != nil {
					return nil, err
				}
				rec.Count++
				return rec, nil
			})
		}()
	}
	wg.Wait()

	var got record
	_, err := store.Get(ctx, "record:a", &got)
	require.NoError(t, err)
	require.Equal(t, writers, got.Count, "lost update detected")
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	require.NoError(t, store.SetWithTTL(ctx, "session:x", "live", 50*time.Millisecond))

	val, found, err := store.GetString(ctx, "session:x")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "live", val)

	time.Sleep(60 * time.Millisecond)
	_, found, err = store.GetString(ctx, "session:x")
	require.NoError(t, err)
	require.False(t, found)
}

func TestMemoryFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	for i := int64(1); i <= 2; i++ {
		allowed, count, err := store.FixedWindowAllow(ctx, "scope", 2, time.Minute)
		require.NoError(t, err)
		require.True(t, allowed)
		require.Equal(t, i, count)
	}

	allowed, _, err := store.FixedWindowAllow(ctx, "scope", 2, time.Minute)
	require.NoError(t, err)
	require.False(t, allowed)
}
