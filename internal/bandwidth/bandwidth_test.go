package bandwidth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/crane-dl/crane/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64p(v int64) *int64 { return &v }

func TestUnlimitedReturnsImmediately(t *testing.T) {
	l := NewLimiter(nil, nil)
	start := time.Now()
	require.NoError(t, l.Acquire(context.Background(), 1_000_000))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestRateLimitingSlowsTransfer(t *testing.T) {
	l := NewLimiter(int64p(500_000), nil)
	require.NoError(t, l.Acquire(context.Background(), MaxBurstBytes)) // drain burst

	start := time.Now()
	require.NoError(t, l.Acquire(context.Background(), 500_000))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 800*time.Millisecond)
	assert.LessOrEqual(t, elapsed, 1500*time.Millisecond)
}

func TestBurstAllowsImmediateSmallRequest(t *testing.T) {
	l := NewLimiter(int64p(100_000), nil)
	start := time.Now()
	require.NoError(t, l.Acquire(context.Background(), 65_536)) // 64KB, within 128KB burst
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestDynamicLimitUpdate(t *testing.T) {
	l := NewLimiter(int64p(100_000), nil)
	require.NoError(t, l.Acquire(context.Background(), MaxBurstBytes)) // drain burst

	l.SetLimit(nil) // unlimited
	start := time.Now()
	require.NoError(t, l.Acquire(context.Background(), 1_000_000))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestConcurrentAcquirersShareBudget(t *testing.T) {
	l := NewLimiter(int64p(300_000), nil)
	require.NoError(t, l.Acquire(context.Background(), MaxBurstBytes)) // drain burst

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Acquire(context.Background(), 100_000)
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 800*time.Millisecond)
	assert.LessOrEqual(t, elapsed, 1500*time.Millisecond)
}

func TestScheduleOverridesBaseLimit(t *testing.T) {
	hour := time.Now().Hour()
	entry := types.SpeedScheduleEntry{
		StartHour: hour,
		EndHour:   (hour + 1) % 24,
		Limit:     nil, // unlimited for this hour
	}
	l := NewLimiter(int64p(1_000), []types.SpeedScheduleEntry{entry}) // base very slow
	require.NoError(t, l.Acquire(context.Background(), MaxBurstBytes))

	start := time.Now()
	require.NoError(t, l.Acquire(context.Background(), 1_000_000))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	l := NewLimiter(int64p(1_000), nil)
	require.NoError(t, l.Acquire(context.Background(), MaxBurstBytes)) // drain burst

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx, 1_000_000)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
