package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestDeterministicClock_StartsAtStart(t *testing.T) {
	clock := NewDeterministicClock(epoch, time.Millisecond)
	assert.Equal(t, epoch, clock.Current())
	assert.Equal(t, epoch, clock.Now())
}

func TestDeterministicClock_NowAdvancesByStep(t *testing.T) {
	clock := NewDeterministicClock(epoch, 5*time.Millisecond)

	first := clock.Now()
	second := clock.Now()
	third := clock.Now()

	assert.Equal(t, 5*time.Millisecond, second.Sub(first))
	assert.Equal(t, 5*time.Millisecond, third.Sub(second))
	assert.Equal(t, epoch.Add(15*time.Millisecond), clock.Current())
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock(epoch, time.Second)

	clock.Now()
	clock.Now()
	assert.Equal(t, epoch.Add(2*time.Second), clock.Current())

	clock.Reset()
	assert.Equal(t, epoch, clock.Now())
}

func TestDeterministicClock_ThreadSafe(t *testing.T) {
	clock := NewDeterministicClock(epoch, time.Millisecond)
	const numGoroutines = 50
	const callsPerGoroutine = 20

	var wg sync.WaitGroup
	seen := make(chan time.Time, numGoroutines*callsPerGoroutine)
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				seen <- clock.Now()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[time.Time]bool)
	for ts := range seen {
		unique[ts] = true
	}
	require.Len(t, unique, numGoroutines*callsPerGoroutine, "every Now call must return a distinct time")
	assert.Equal(t, epoch.Add(numGoroutines*callsPerGoroutine*time.Millisecond), clock.Current())
}
