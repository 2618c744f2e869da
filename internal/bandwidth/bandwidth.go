// Package bandwidth implements a token-bucket bandwidth limiter with a
// dynamic base rate and a time-of-day schedule that can temporarily
// override it.
package bandwidth

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crane-dl/crane/internal/types"
)

// MaxBurstBytes is the maximum pre-accumulated token balance: 128 KiB,
// twice the single-connection stream chunk size.
const MaxBurstBytes int64 = 131_072

// Limiter is a token bucket shared by every worker of a download (and,
// when configured that way by the caller, across downloads).
type Limiter struct {
	baseLimit atomic.Int64 // bytes/sec; 0 = unlimited

	mu         sync.Mutex
	available  float64
	lastRefill time.Time

	scheduleMu sync.RWMutex
	schedule   []types.SpeedScheduleEntry
}

// NewLimiter creates a limiter with the given base rate (nil = unlimited)
// and schedule.
func NewLimiter(limit *int64, schedule []types.SpeedScheduleEntry) *Limiter {
	l := &Limiter{
		available:  float64(MaxBurstBytes),
		lastRefill: time.Now(),
		schedule:   append([]types.SpeedScheduleEntry(nil), schedule...),
	}
	if limit != nil {
		l.baseLimit.Store(*limit)
	}
	return l
}

// Acquire blocks until n bytes worth of tokens are available at the
// current effective rate, or ctx is cancelled. A limit of 0 (unlimited)
// returns immediately.
func (l *Limiter) Acquire(ctx context.Context, n int64) error {
	effective := l.currentLimit()
	if effective == 0 {
		return nil
	}

	sleepFor, acquired := l.refillAndDeduct(n, effective)
	if acquired {
		return nil
	}

	timer := time.NewTimer(sleepFor)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// refillAndDeduct is the single short critical section: refill the
// balance from elapsed time, then either deduct immediately (acquired)
// or deduct fully (going negative) and report how long the caller must
// sleep for the deficit to clear.
func (l *Limiter) refillAndDeduct(n int64, effective int64) (sleepFor time.Duration, acquired bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(l.lastRefill).Seconds()
	l.available += elapsed * float64(effective)
	if l.available > float64(MaxBurstBytes) {
		l.available = float64(MaxBurstBytes)
	}
	l.lastRefill = now

	if l.available >= float64(n) {
		l.available -= float64(n)
		return 0, true
	}

	deficit := float64(n) - l.available
	l.available -= float64(n)
	return time.Duration(deficit / float64(effective) * float64(time.Second)), false
}

// SetLimit atomically updates the base rate. nil means unlimited.
func (l *Limiter) SetLimit(limit *int64) {
	var v int64
	if limit != nil {
		v = *limit
	}
	l.baseLimit.Store(v)
}

// SetSchedule atomically replaces the time-of-day schedule.
func (l *Limiter) SetSchedule(schedule []types.SpeedScheduleEntry) {
	l.scheduleMu.Lock()
	l.schedule = append([]types.SpeedScheduleEntry(nil), schedule...)
	l.scheduleMu.Unlock()
}

// currentLimit resolves the effective byte/sec ceiling: the first
// schedule entry whose hour range contains the current local hour wins
// (wrapping midnight when start > end); otherwise the base rate.
func (l *Limiter) currentLimit() int64 {
	l.scheduleMu.RLock()
	defer l.scheduleMu.RUnlock()

	if len(l.schedule) == 0 {
		return l.baseLimit.Load()
	}

	hour := time.Now().Hour()
	for _, e := range l.schedule {
		var matches bool
		if e.StartHour <= e.EndHour {
			matches = hour >= e.StartHour && hour < e.EndHour
		} else {
			matches = hour >= e.StartHour || hour < e.EndHour
		}
		if matches {
			if e.Limit == nil {
				return 0
			}
			return *e.Limit
		}
	}

	return l.baseLimit.Load()
}
