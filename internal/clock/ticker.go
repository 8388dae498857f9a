package clock

import (
	"sync"
	"time"
)

// TickerClock runs each task on its own goroutine driven by a time.Ticker.
// Runs of one task never overlap: a tick that arrives while fn is running is dropped.
type TickerClock struct{}

// NewTickerClock creates a ticker-based clock
func NewTickerClock() *TickerClock {
	return &TickerClock{}
}

// Every starts a ticker loop for fn
func (TickerClock) Every(interval time.Duration, fn func()) (Task, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}

	t := &tickerTask{done: make(chan struct{})}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-t.done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return t, nil
}

type tickerTask struct {
	done chan struct{}
	once sync.Once
}

func (t *tickerTask) Stop() error {
	t.once.Do(func() { close(t.done) })
	return nil
}

// Compile-time verification that TickerClock implements Clock
var _ Clock = TickerClock{}
