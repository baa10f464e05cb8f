package concurrency_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-session/api"
	"github.com/momentics/hioload-session/internal/concurrency"
)

func newLoop(t *testing.T) *concurrency.EventLoop {
	t.Helper()
	el, err := concurrency.NewEventLoop(4, 64)
	require.NoError(t, err)
	t.Cleanup(func() { _ = el.Close() })
	return el
}

func TestEventLoopStopFromTask(t *testing.T) {
	el := newLoop(t)
	var ran []int
	el.Post(func() { ran = append(ran, 1) })
	el.Post(func() {
		ran = append(ran, 2)
		require.NoError(t, el.Stop())
	})
	el.Post(func() { ran = append(ran, 3) })

	require.NoError(t, el.Run(api.Infinite))
	assert.Equal(t, []int{1, 2}, ran)
	assert.Equal(t, 1, el.Pending())

	// The remaining task runs on the next Run.
	el.Post(func() { _ = el.Stop() })
	require.NoError(t, el.Run(time.Second))
	assert.Equal(t, []int{1, 2, 3}, ran)
}

func TestEventLoopTimeout(t *testing.T) {
	el := newLoop(t)
	start := time.Now()
	err := el.Run(20 * time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, api.ErrCodeTimeout, api.CodeOf(err))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestEventLoopStopOutsideTaskRejected(t *testing.T) {
	el := newLoop(t)
	err := el.Stop()
	assert.Equal(t, api.ErrCodePrecondition, api.CodeOf(err))
}

func TestEventLoopPreservesProducerOrder(t *testing.T) {
	el := newLoop(t)
	const producers, perProducer = 4, 200
	got := make(map[int][]int)
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				i := i
				el.Post(func() { got[p] = append(got[p], i) })
			}
		}(p)
	}
	go func() {
		wg.Wait()
		el.Post(func() { _ = el.Stop() })
	}()
	require.NoError(t, el.Run(5*time.Second))
	for p := 0; p < producers; p++ {
		require.Len(t, got[p], perProducer)
		for i, v := range got[p] {
			assert.Equal(t, i, v)
		}
	}
}

func TestEventLoopDeferRunsAfterQueued(t *testing.T) {
	el := newLoop(t)
	var order []string
	el.Post(func() {
		order = append(order, "a")
		el.Defer(func() {
			order = append(order, "deferred")
			_ = el.Stop()
		})
	})
	el.Post(func() { order = append(order, "b") })
	require.NoError(t, el.Run(time.Second))
	assert.Equal(t, []string{"a", "b", "deferred"}, order)
}

func TestEventLoopPostAfterClose(t *testing.T) {
	el, err := concurrency.NewEventLoop(0, 0)
	require.NoError(t, err)
	require.NoError(t, el.Close())
	assert.False(t, el.Post(func() {}))
	assert.Equal(t, api.ErrCodePrecondition, api.CodeOf(el.Run(time.Millisecond)))
}

func TestEventLoopPanicStopsRun(t *testing.T) {
	el := newLoop(t)
	var after bool
	el.Post(func() { panic("boom") })
	el.Post(func() { after = true })

	start := time.Now()
	err := el.Run(5 * time.Second)
	require.Error(t, err)
	assert.Equal(t, api.ErrCodeInternal, api.CodeOf(err))
	assert.Contains(t, err.Error(), "boom")
	assert.False(t, after)
	assert.Less(t, time.Since(start), time.Second)

	// The loop stays usable and the next Run starts clean.
	el.Post(func() { _ = el.Stop() })
	require.NoError(t, el.Run(time.Second))
	assert.True(t, after)
}
