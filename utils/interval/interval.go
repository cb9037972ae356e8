package interval

import (
	"sync"
	"time"
)

// Interval runs a handler on a fixed period until cleared, similar to
// the javascript setInterval builtin
type Interval struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

// SetInterval starts a new interval
func SetInterval(handler func(i *Interval), period time.Duration) *Interval {
	i := &Interval{
		ticker: time.NewTicker(period),
		done:   make(chan struct{}),
	}

	go func() {
		defer i.ticker.Stop()

		for {
			select {
			case <-i.done:
				return

			case <-i.ticker.C:
				handler(i)
			}
		}
	}()

	return i
}

// Reset restarts the period without recreating the interval
func (i *Interval) Reset(period time.Duration) {
	i.ticker.Reset(period)
}

// Clear stops the interval. It is safe to call more than once.
func (i *Interval) Clear() {
	i.once.Do(func() {
		close(i.done)
	})
}
