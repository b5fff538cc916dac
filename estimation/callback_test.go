package estimation

import (
	"testing"
	"time"

	"go.viam.com/test"
)

func TestTimeLimitCallback(t *testing.T) {
	cb := NewTimeLimitCallback(100*time.Millisecond, 3)

	// under budget: keep going
	test.That(t, cb.Terminate(IterationSummary{
		Iteration:      5,
		IterationTime:  10 * time.Millisecond,
		CumulativeTime: 50 * time.Millisecond,
	}), test.ShouldBeFalse)

	// the projected next iteration would blow the budget
	test.That(t, cb.Terminate(IterationSummary{
		Iteration:      5,
		IterationTime:  30 * time.Millisecond,
		CumulativeTime: 90 * time.Millisecond,
	}), test.ShouldBeTrue)

	// but the minimum iteration count always runs
	test.That(t, cb.Terminate(IterationSummary{
		Iteration:      2,
		IterationTime:  200 * time.Millisecond,
		CumulativeTime: 400 * time.Millisecond,
	}), test.ShouldBeFalse)

	cb.SetMinimumIterations(1)
	test.That(t, cb.Terminate(IterationSummary{
		Iteration:      2,
		IterationTime:  200 * time.Millisecond,
		CumulativeTime: 400 * time.Millisecond,
	}), test.ShouldBeTrue)

	cb.SetTimeLimit(time.Second)
	test.That(t, cb.Terminate(IterationSummary{
		Iteration:      2,
		IterationTime:  200 * time.Millisecond,
		CumulativeTime: 400 * time.Millisecond,
	}), test.ShouldBeFalse)
}
