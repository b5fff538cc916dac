package estimation

import "time"

// IterationSummary describes one completed iteration of the external solver.
type IterationSummary struct {
	// Iteration is the zero-based index of the completed iteration.
	Iteration int
	// IterationTime is how long the completed iteration took.
	IterationTime time.Duration
	// CumulativeTime is the total solve time so far.
	CumulativeTime time.Duration
}

// TimeLimitCallback keeps an optimization inside a time budget. After each
// iteration the solver reports a summary; once the minimum iteration count is
// reached and the budget would be exceeded by another iteration of the same
// cost as the last one, the callback asks the solver to terminate with the
// current estimate.
type TimeLimitCallback struct {
	timeLimit     time.Duration
	minIterations int
}

// NewTimeLimitCallback creates a callback with a time budget and a minimum
// number of iterations that run regardless of it.
func NewTimeLimitCallback(timeLimit time.Duration, minIterations int) *TimeLimitCallback {
	return &TimeLimitCallback{timeLimit: timeLimit, minIterations: minIterations}
}

// SetTimeLimit changes the time budget. To disable the budget, set a very
// large value or a minimum iteration count at the solver's iteration cap.
func (cb *TimeLimitCallback) SetTimeLimit(timeLimit time.Duration) {
	cb.timeLimit = timeLimit
}

// SetMinimumIterations changes the number of iterations that run regardless
// of the time budget.
func (cb *TimeLimitCallback) SetMinimumIterations(minIterations int) {
	cb.minIterations = minIterations
}

// Terminate reports whether the solver should stop after the summarized
// iteration, assuming the next iteration costs as much as the last one did.
func (cb *TimeLimitCallback) Terminate(summary IterationSummary) bool {
	return summary.Iteration >= cb.minIterations &&
		summary.CumulativeTime+summary.IterationTime > cb.timeLimit
}
