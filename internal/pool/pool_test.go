package pool

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapReturnsEveryItem(t *testing.T) {
	t.Parallel()

	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	results := Map(context.Background(), items, 3, func(_ context.Context, n int) (int, error) {
		return n * n, nil
	})
	require.Len(t, results, len(items))

	got := make([]int, 0, len(results))
	for _, res := range results {
		require.NoError(t, res.Err)
		assert.Equal(t, res.Item*res.Item, res.Value)
		got = append(got, res.Item)
	}
	sort.Ints(got)
	assert.Equal(t, items, got)
}

func TestMapBoundsConcurrency(t *testing.T) {
	t.Parallel()

	var active, peak atomic.Int32
	items := make([]int, 40)
	Map(context.Background(), items, 4, func(context.Context, int) (struct{}, error) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return struct{}{}, nil
	})
	assert.LessOrEqual(t, peak.Load(), int32(4))
	assert.Greater(t, peak.Load(), int32(1))
}

func TestMapIsolatesFailures(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	results := Map(context.Background(), []int{1, 2, 3, 4}, 2, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, boom
		}
		if n == 3 {
			panic("kaboom")
		}
		return n, nil
	})
	require.Len(t, results, 4)

	byItem := make(map[int]Result[int, int], len(results))
	for _, res := range results {
		byItem[res.Item] = res
	}
	assert.NoError(t, byItem[1].Err)
	assert.ErrorIs(t, byItem[2].Err, boom)

	var panicErr *PanicError
	require.ErrorAs(t, byItem[3].Err, &panicErr)
	assert.Equal(t, "kaboom", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)
	assert.NoError(t, byItem[4].Err)
	assert.Equal(t, 4, byItem[4].Value)
}

func TestMapNonPositiveWorkers(t *testing.T) {
	t.Parallel()

	results := Map(context.Background(), []string{"a", "b"}, 0, func(_ context.Context, s string) (string, error) {
		return s + s, nil
	})
	assert.Len(t, results, 2)
}

func TestMapEmpty(t *testing.T) {
	t.Parallel()

	results := Map(context.Background(), nil, 5, func(context.Context, int) (int, error) {
		t.Fatal("fn must not be called")
		return 0, nil
	})
	assert.Empty(t, results)
}

func TestStreamStopsSubmittingAfterCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	items := make([]int, 20)
	for i := range items {
		items[i] = i
	}
	var canceled int
	for res := range Stream(ctx, items, 1, func(context.Context, int) (int, error) {
		if calls.Add(1) == 2 {
			cancel()
		}
		return 0, nil
	}) {
		if errors.Is(res.Err, context.Canceled) {
			canceled++
		}
	}
	assert.Less(t, int(calls.Load()), len(items))
	assert.Equal(t, len(items)-int(calls.Load()), canceled)
}
