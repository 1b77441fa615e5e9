package util

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer(t *testing.T) {
	t.Run("fires after quiet period", func(t *testing.T) {
		var calls atomic.Int32
		d := NewDebouncer(30*time.Millisecond, func() { calls.Add(1) })
		defer d.Stop()

		d.Trigger()
		assert.True(t, d.Pending())
		assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
		assert.False(t, d.Pending())
	})

	t.Run("trigger postpones firing", func(t *testing.T) {
		var calls atomic.Int32
		d := NewDebouncer(60*time.Millisecond, func() { calls.Add(1) })
		defer d.Stop()

		for range 4 {
			d.Trigger()
			time.Sleep(20 * time.Millisecond)
		}
		assert.Zero(t, calls.Load(), "debouncer fired while being triggered")

		assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("flush runs immediately", func(t *testing.T) {
		var calls atomic.Int32
		d := NewDebouncer(time.Hour, func() { calls.Add(1) })
		defer d.Stop()

		assert.False(t, d.Flush(), "nothing pending")
		d.Trigger()
		assert.True(t, d.Flush())
		assert.Equal(t, int32(1), calls.Load())
		assert.False(t, d.Pending())
	})

	t.Run("cancel drops pending call", func(t *testing.T) {
		var calls atomic.Int32
		d := NewDebouncer(20*time.Millisecond, func() { calls.Add(1) })
		defer d.Stop()

		d.Trigger()
		d.Cancel()
		time.Sleep(60 * time.Millisecond)
		assert.Zero(t, calls.Load())
	})

	t.Run("stop prevents firing", func(t *testing.T) {
		var calls atomic.Int32
		d := NewDebouncer(20*time.Millisecond, func() { calls.Add(1) })

		d.Trigger()
		d.Stop()
		d.Stop()
		d.Trigger()

		time.Sleep(60 * time.Millisecond)
		assert.Zero(t, calls.Load())
		assert.False(t, d.Pending())
	})
}
