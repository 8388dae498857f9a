package clock

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"led-state-controller/internal/logger"
)

// SchedulerClock is a Clock backed by a gocron scheduler. Runs of the same
// task may overlap when fn outlasts the interval.
type SchedulerClock struct {
	scheduler gocron.Scheduler
	name      string

	mu     sync.Mutex
	closed bool
}

// NewSchedulerClock creates and starts a scheduler. name prefixes job names in logs.
func NewSchedulerClock(name string) (*SchedulerClock, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	s.Start()
	return &SchedulerClock{scheduler: s, name: name}, nil
}

// Every schedules fn as a gocron duration job
func (c *SchedulerClock) Every(interval time.Duration, fn func()) (Task, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("scheduler %s is shut down", c.name)
	}

	job, err := c.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(fn),
		gocron.WithName(fmt.Sprintf("%s-every-%s", c.name, interval)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule job: %w", err)
	}

	logger.LogDebug("⏱️ Scheduled %s every %v (job %s)", c.name, interval, job.ID())
	return &schedulerTask{clock: c, id: job.ID()}, nil
}

// Close shuts the scheduler down, stopping every task
func (c *SchedulerClock) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.scheduler.Shutdown()
}

func (c *SchedulerClock) remove(id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	return c.scheduler.RemoveJob(id)
}

type schedulerTask struct {
	clock *SchedulerClock
	id    uuid.UUID
	once  sync.Once
	err   error
}

func (t *schedulerTask) Stop() error {
	t.once.Do(func() {
		t.err = t.clock.remove(t.id)
	})
	return t.err
}

// Compile-time verification that SchedulerClock implements Clock
var _ Clock = (*SchedulerClock)(nil)
