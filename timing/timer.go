package timing

import (
	"time"

	"github.com/pkg/errors"
)

// Timer measures one tag against a registry. Starting a running timer or
// stopping a stopped one is a violated precondition and fails loudly; a timer
// instance is not for concurrent use, the registry behind it is.
type Timer struct {
	registry *Registry
	handle   int
	timing   bool
	started  time.Time
}

// NewTimer creates a stopped timer for a tag, registering the tag if needed.
func (reg *Registry) NewTimer(tag string) *Timer {
	return &Timer{registry: reg, handle: reg.Handle(tag)}
}

// StartTimer creates a timer for a tag and starts it.
func (reg *Registry) StartTimer(tag string) *Timer {
	tm := reg.NewTimer(tag)
	// a fresh timer cannot be running
	if err := tm.Start(); err != nil {
		panic(err)
	}
	return tm
}

// Handle returns the registry handle the timer records against.
func (tm *Timer) Handle() int {
	return tm.handle
}

// IsTiming reports whether the timer is running.
func (tm *Timer) IsTiming() bool {
	return tm.timing
}

// Start begins a measurement.
func (tm *Timer) Start() error {
	if tm.timing {
		tag, _ := tm.registry.Tag(tm.handle)
		return errors.Errorf("the timer %q is already running", tag)
	}
	tm.timing = true
	tm.started = tm.registry.clock.Now()
	return nil
}

// Stop ends a measurement and records the elapsed time against the tag.
func (tm *Timer) Stop() error {
	if !tm.timing {
		tag, _ := tm.registry.Tag(tm.handle)
		return errors.Errorf("the timer %q is not running", tag)
	}
	elapsed := tm.registry.clock.Since(tm.started)
	tm.timing = false
	return tm.registry.AddTime(tm.handle, elapsed.Seconds())
}

// Discard stops the timer without recording a sample.
func (tm *Timer) Discard() {
	tm.timing = false
}
