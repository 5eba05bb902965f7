package limiter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrency_AcquireRelease(t *testing.T) {
	l := NewConcurrency(2)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))
	assert.Equal(t, 2, l.InFlight())

	// third acquire must not succeed without a release
	blocked, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Acquire(blocked), context.DeadlineExceeded)

	l.Release()
	assert.Equal(t, 1, l.InFlight())
	require.NoError(t, l.Acquire(ctx))
	assert.Equal(t, 2, l.InFlight())
}

func TestConcurrency_DefaultCap(t *testing.T) {
	l := NewConcurrency(0)
	assert.Equal(t, DefaultMaxConcurrent, l.Cap())
}

func TestConcurrency_AcquireRespectsContext(t *testing.T) {
	l := NewConcurrency(1)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx))

	cancelCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	err := l.Acquire(cancelCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConcurrency_ReleaseWithoutAcquirePanics(t *testing.T) {
	l := NewConcurrency(1)
	assert.Panics(t, func() { l.Release() })
}

// Three 100ms tasks through a two-permit limiter cannot finish in one
// 100ms round: total wall time must be at least two rounds.
func TestConcurrency_BoundsParallelism(t *testing.T) {
	l := NewConcurrency(2)
	ctx := context.Background()

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, l.Acquire(ctx))
			defer l.Release()
			time.Sleep(100 * time.Millisecond)
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond,
		"third task should have waited for a permit")
}

func TestConcurrency_ManyCallers(t *testing.T) {
	const callers = 50
	l := NewConcurrency(5)
	ctx := context.Background()

	var mu sync.Mutex
	inFlight, peak := 0, 0

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, l.Acquire(ctx))
			defer l.Release()

			mu.Lock()
			inFlight++
			if inFlight > peak {
				peak = inFlight
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, 5)
}
