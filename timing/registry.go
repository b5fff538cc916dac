// Package timing implements a named-timer registry for aggregate runtime
// diagnostics: code times itself against a handle and the registry keeps
// streaming statistics per tag. It is a side observer; nothing in the
// computational hot paths depends on it.
package timing

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// hzWindowSize is how many of the most recent samples feed the rate estimate.
const hzWindowSize = 50

// accumulator keeps streaming statistics for one tag: count, total, mean and
// variance by Welford's online update, min, max, and a ring of recent samples
// for the rate estimate.
type accumulator struct {
	mu      sync.Mutex
	count   uint64
	total   float64
	mean    float64
	m2      float64
	min     float64
	max     float64
	window  [hzWindowSize]float64
	wrapped bool
	next    int
}

func (acc *accumulator) add(seconds float64) {
	acc.mu.Lock()
	defer acc.mu.Unlock()
	acc.count++
	acc.total += seconds
	delta := seconds - acc.mean
	acc.mean += delta / float64(acc.count)
	acc.m2 += delta * (seconds - acc.mean)
	if acc.count == 1 || seconds < acc.min {
		acc.min = seconds
	}
	if acc.count == 1 || seconds > acc.max {
		acc.max = seconds
	}
	acc.window[acc.next] = seconds
	acc.next++
	if acc.next == hzWindowSize {
		acc.next = 0
		acc.wrapped = true
	}
}

// snapshot returns a consistent copy of the statistics.
func (acc *accumulator) snapshot() accumulatorStats {
	acc.mu.Lock()
	defer acc.mu.Unlock()
	s := accumulatorStats{
		Count: acc.count,
		Total: acc.total,
		Mean:  acc.mean,
		Min:   acc.min,
		Max:   acc.max,
	}
	if acc.count > 0 {
		// population variance, matching the accumulator semantics of the stats
		s.Variance = acc.m2 / float64(acc.count)
	}
	if acc.wrapped {
		s.Window = append(s.Window, acc.window[:]...)
	} else {
		s.Window = append(s.Window, acc.window[:acc.next]...)
	}
	return s
}

type accumulatorStats struct {
	Count    uint64
	Total    float64
	Mean     float64
	Variance float64
	Min      float64
	Max      float64
	Window   []float64
}

// Registry maps timer tags to handles and aggregates the samples recorded
// against each handle. It is explicitly constructed and passed to whoever
// times itself; process-wide lifetime is the owner's concern. All methods are
// safe for concurrent use.
type Registry struct {
	clock clock.Clock

	mu           sync.RWMutex
	tagToHandle  map[string]int
	handleToTag  []string
	timers       []*accumulator
	maxTagLength int
}

// NewRegistry creates a registry on the wall clock.
func NewRegistry() *Registry {
	return NewRegistryWithClock(clock.New())
}

// NewRegistryWithClock creates a registry on the given clock, so tests can
// drive timers deterministically.
func NewRegistryWithClock(c clock.Clock) *Registry {
	return &Registry{
		clock:       c,
		tagToHandle: map[string]int{},
	}
}

// Handle returns the handle for a tag, registering the tag on first use.
// Calling it twice with the same tag returns the same handle.
func (reg *Registry) Handle(tag string) int {
	reg.mu.RLock()
	handle, ok := reg.tagToHandle[tag]
	reg.mu.RUnlock()
	if ok {
		return handle
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	// the tag may have been inserted while the read lock was dropped
	if handle, ok := reg.tagToHandle[tag]; ok {
		return handle
	}
	handle = len(reg.timers)
	reg.tagToHandle[tag] = handle
	reg.handleToTag = append(reg.handleToTag, tag)
	reg.timers = append(reg.timers, &accumulator{})
	if len(tag) > reg.maxTagLength {
		reg.maxTagLength = len(tag)
	}
	return handle
}

// Tag returns the tag registered for a handle.
func (reg *Registry) Tag(handle int) (string, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	if handle < 0 || handle >= len(reg.handleToTag) {
		return "", errors.Errorf("invalid timer handle %d, have %d timers", handle, len(reg.handleToTag))
	}
	return reg.handleToTag[handle], nil
}

func (reg *Registry) accumulatorFor(handle int) (*accumulator, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	if handle < 0 || handle >= len(reg.timers) {
		return nil, errors.Errorf("invalid timer handle %d, have %d timers", handle, len(reg.timers))
	}
	return reg.timers[handle], nil
}

// AddTime records a sample, in seconds, against a handle.
func (reg *Registry) AddTime(handle int, seconds float64) error {
	acc, err := reg.accumulatorFor(handle)
	if err != nil {
		return err
	}
	acc.add(seconds)
	return nil
}

// NumSamples returns how many samples a handle has recorded.
func (reg *Registry) NumSamples(handle int) (uint64, error) {
	acc, err := reg.accumulatorFor(handle)
	if err != nil {
		return 0, err
	}
	return acc.snapshot().Count, nil
}

// TotalSeconds returns the sum of a handle's samples.
func (reg *Registry) TotalSeconds(handle int) (float64, error) {
	acc, err := reg.accumulatorFor(handle)
	if err != nil {
		return 0, err
	}
	return acc.snapshot().Total, nil
}

// MeanSeconds returns the mean of a handle's samples.
func (reg *Registry) MeanSeconds(handle int) (float64, error) {
	acc, err := reg.accumulatorFor(handle)
	if err != nil {
		return 0, err
	}
	return acc.snapshot().Mean, nil
}

// VarianceSeconds returns the population variance of a handle's samples.
func (reg *Registry) VarianceSeconds(handle int) (float64, error) {
	acc, err := reg.accumulatorFor(handle)
	if err != nil {
		return 0, err
	}
	return acc.snapshot().Variance, nil
}

// MinSeconds returns the smallest sample of a handle.
func (reg *Registry) MinSeconds(handle int) (float64, error) {
	acc, err := reg.accumulatorFor(handle)
	if err != nil {
		return 0, err
	}
	return acc.snapshot().Min, nil
}

// MaxSeconds returns the largest sample of a handle.
func (reg *Registry) MaxSeconds(handle int) (float64, error) {
	acc, err := reg.accumulatorFor(handle)
	if err != nil {
		return 0, err
	}
	return acc.snapshot().Max, nil
}

// Hz returns the rate implied by the rolling mean of the recent samples.
func (reg *Registry) Hz(handle int) (float64, error) {
	acc, err := reg.accumulatorFor(handle)
	if err != nil {
		return 0, err
	}
	window := acc.snapshot().Window
	if len(window) == 0 {
		return 0, errors.Errorf("timer handle %d has no samples", handle)
	}
	mean, err := stats.Mean(window)
	if err != nil {
		return 0, err
	}
	return 1.0 / mean, nil
}

// Reset discards a handle's statistics; the handle and tag stay registered.
func (reg *Registry) Reset(handle int) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if handle < 0 || handle >= len(reg.timers) {
		return errors.Errorf("invalid timer handle %d, have %d timers", handle, len(reg.timers))
	}
	reg.timers[handle] = &accumulator{}
	return nil
}

// secondsToTimeString formats seconds as hh:mm:ss.ssssss.
func secondsToTimeString(seconds float64) string {
	hours := math.Floor(seconds / 3600.0)
	seconds -= hours * 3600.0
	minutes := math.Floor(seconds / 60.0)
	seconds -= minutes * 60.0
	return fmt.Sprintf("%02.0f:%02.0f:%09.6f", hours, minutes, seconds)
}

// String renders a table of every registered timer's statistics.
func (reg *Registry) String() string {
	reg.mu.RLock()
	tags := append([]string(nil), reg.handleToTag...)
	timers := append([]*accumulator(nil), reg.timers...)
	width := reg.maxTagLength
	reg.mu.RUnlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "timing\n%-*s  %9s  %14s  (%14s +- %12s)  [%14s, %14s]\n",
		width, "tag", "samples", "total", "mean", "stddev", "min", "max")
	for i, tag := range tags {
		s := timers[i].snapshot()
		if s.Count == 0 {
			fmt.Fprintf(&sb, "%-*s  %9d\n", width, tag, 0)
			continue
		}
		fmt.Fprintf(&sb, "%-*s  %9d  %14s  (%14s +- %12.6f)  [%14s, %14s]\n",
			width, tag, s.Count,
			secondsToTimeString(s.Total),
			secondsToTimeString(s.Mean),
			math.Sqrt(s.Variance),
			secondsToTimeString(s.Min),
			secondsToTimeString(s.Max),
		)
	}
	return sb.String()
}

// Log writes the table through an injected logger.
func (reg *Registry) Log(logger golog.Logger) {
	logger.Info(reg.String())
}
