package clock

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Clock driven explicitly by Advance. Due tasks run synchronously
// on the caller's goroutine, which makes polling deterministic in tests.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	tasks []*manualTask
}

// NewManual creates a manual clock starting at start
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the current manual time
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Every registers fn to run each time Advance crosses a multiple of interval
func (m *Manual) Every(interval time.Duration, fn func()) (Task, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTask{clock: m, interval: interval, next: m.now.Add(interval), fn: fn}
	m.tasks = append(m.tasks, t)
	return t, nil
}

// Active returns the number of tasks that have not been stopped
func (m *Manual) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Advance moves time forward by d, running every task that becomes due in
// chronological order. Tasks may stop themselves or others while running.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		var due *manualTask
		candidates := append([]*manualTask(nil), m.tasks...)
		sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].next.Before(candidates[j].next) })
		if len(candidates) > 0 && !candidates[0].next.After(target) {
			due = candidates[0]
			m.now = due.next
			due.next = due.next.Add(due.interval)
		}
		if due == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		due.fn()
	}
}

func (m *Manual) remove(t *manualTask) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, candidate := range m.tasks {
		if candidate == t {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return
		}
	}
}

type manualTask struct {
	clock    *Manual
	interval time.Duration
	next     time.Time
	fn       func()
}

func (t *manualTask) Stop() error {
	t.clock.remove(t)
	return nil
}

// Compile-time verification that Manual implements Clock
var _ Clock = (*Manual)(nil)
