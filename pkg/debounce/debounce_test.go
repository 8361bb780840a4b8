package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTriggerRunsOnlyLastAction(t *testing.T) {
	d := New(20 * time.Millisecond)
	var last atomic.Value
	var runs int32

	for _, q := range []string{"a", "an", "ana"} {
		q := q
		d.Trigger(func() {
			atomic.AddInt32(&runs, 1)
			last.Store(q)
		})
		time.Sleep(2 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
	assert.Equal(t, "ana", last.Load())
}

func TestCancelDropsPendingAction(t *testing.T) {
	d := New(20 * time.Millisecond)
	var runs int32
	d.Trigger(func() { atomic.AddInt32(&runs, 1) })

	assert.True(t, d.Cancel())
	assert.False(t, d.Cancel())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&runs))
}

func TestNowRunsImmediatelyAndCancelsPending(t *testing.T) {
	d := New(20 * time.Millisecond)
	var pending, immediate int32
	d.Trigger(func() { atomic.AddInt32(&pending, 1) })

	d.Now(func() { atomic.AddInt32(&immediate, 1) })

	assert.Equal(t, int32(1), atomic.LoadInt32(&immediate))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&pending))
}
