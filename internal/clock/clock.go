// Package clock schedules repeating work for the controller.
package clock

import (
	"errors"
	"time"
)

// ErrInvalidInterval is returned for non-positive intervals
var ErrInvalidInterval = errors.New("interval must be positive")

// Task is a handle to a repeating schedule. Stop cancels future runs only;
// a run already in progress is not interrupted. Stop is idempotent.
type Task interface {
	Stop() error
}

// Clock runs fn every interval until the returned Task is stopped.
// The first run happens one interval after Every returns.
type Clock interface {
	Every(interval time.Duration, fn func()) (Task, error)
}
