package backoff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	t.Run("retries", func(t *testing.T) {
		b := New(3, time.Millisecond, time.Millisecond*2)
		for i := 0; i != 3; i++ {
			assert.True(t, b.Wait(context.Background()))
		}
		assert.False(t, b.Wait(context.Background()))
		assert.Equal(t, 3, b.Attempts())
	})

	t.Run("max backoff", func(t *testing.T) {
		b := New(0, time.Millisecond, time.Millisecond*4)
		for i := 0; i != 10; i++ {
			wait := b.nextWait()
			// Allow for jitter.
			assert.LessOrEqual(t, wait, time.Duration(float64(time.Millisecond*4)*1.1))
			b.lastBackoff = wait
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		b := New(0, time.Minute, time.Minute)
		assert.False(t, b.Wait(ctx))
	})

	t.Run("poll", func(t *testing.T) {
		calls := 0
		b := New(0, time.Millisecond, time.Millisecond)
		assert.True(t, b.Poll(context.Background(), func() bool {
			calls++
			return calls == 3
		}))
		assert.Equal(t, 3, calls)

		b = New(2, time.Millisecond, time.Millisecond)
		assert.False(t, b.Poll(context.Background(), func() bool {
			return false
		}))
	})
}
