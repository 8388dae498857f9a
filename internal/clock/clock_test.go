package clock

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualRunsOnEveryInterval(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var runs int
	task, err := m.Every(2*time.Second, func() { runs++ })
	require.NoError(t, err)

	m.Advance(1999 * time.Millisecond)
	assert.Equal(t, 0, runs)

	m.Advance(time.Millisecond)
	assert.Equal(t, 1, runs)

	m.Advance(6 * time.Second)
	assert.Equal(t, 4, runs)

	require.NoError(t, task.Stop())
	m.Advance(10 * time.Second)
	assert.Equal(t, 4, runs)
	assert.Equal(t, 0, m.Active())
}

func TestManualStopIsIdempotent(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	task, err := m.Every(time.Second, func() {})
	require.NoError(t, err)

	assert.NoError(t, task.Stop())
	assert.NoError(t, task.Stop())
}

func TestManualTaskCanStopItself(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var runs int
	var task Task
	task, err := m.Every(time.Second, func() {
		runs++
		_ = task.Stop()
	})
	require.NoError(t, err)

	m.Advance(5 * time.Second)
	assert.Equal(t, 1, runs)
}

func TestManualOrdersTasks(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var order []string
	_, err := m.Every(3*time.Second, func() { order = append(order, "slow") })
	require.NoError(t, err)
	_, err = m.Every(2*time.Second, func() { order = append(order, "fast") })
	require.NoError(t, err)

	m.Advance(4 * time.Second)
	assert.Equal(t, []string{"fast", "slow", "fast"}, order)
	assert.Equal(t, time.Unix(4, 0), m.Now())
}

func TestInvalidInterval(t *testing.T) {
	_, err := NewManual(time.Now()).Every(0, func() {})
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = NewTickerClock().Every(-time.Second, func() {})
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestTickerClockRunsUntilStopped(t *testing.T) {
	var runs atomic.Int32
	task, err := NewTickerClock().Every(10*time.Millisecond, func() { runs.Add(1) })
	require.NoError(t, err)

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, task.Stop())
	require.NoError(t, task.Stop())

	settled := runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, runs.Load(), settled+1)
}

func TestSchedulerClockRunsUntilStopped(t *testing.T) {
	c, err := NewSchedulerClock("test")
	require.NoError(t, err)
	defer c.Close()

	var runs atomic.Int32
	task, err := c.Every(20*time.Millisecond, func() { runs.Add(1) })
	require.NoError(t, err)

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 3*time.Second, 10*time.Millisecond)
	require.NoError(t, task.Stop())
	assert.NoError(t, task.Stop())
}

func TestSchedulerClockRejectsAfterClose(t *testing.T) {
	c, err := NewSchedulerClock("closed")
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err = c.Every(time.Second, func() {})
	assert.Error(t, err)
}
