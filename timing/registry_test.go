package timing

import (
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"go.viam.com/test"
	"golang.org/x/sync/errgroup"
)

func TestHandleRegistration(t *testing.T) {
	reg := NewRegistry()

	h1 := reg.Handle("estimator.evaluate")
	h2 := reg.Handle("estimator.solve")
	test.That(t, h2, test.ShouldNotEqual, h1)

	// registering the same tag again returns the same handle
	test.That(t, reg.Handle("estimator.evaluate"), test.ShouldEqual, h1)

	tag, err := reg.Tag(h1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tag, test.ShouldEqual, "estimator.evaluate")

	_, err = reg.Tag(99)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = reg.Tag(-1)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestHandleRegistrationConcurrent(t *testing.T) {
	reg := NewRegistry()
	const workers = 32
	handles := make([]int, workers)
	var group errgroup.Group
	for k := 0; k < workers; k++ {
		k := k
		group.Go(func() error {
			handles[k] = reg.Handle("shared.tag")
			return nil
		})
	}
	test.That(t, group.Wait(), test.ShouldBeNil)
	for k := 1; k < workers; k++ {
		test.That(t, handles[k], test.ShouldEqual, handles[0])
	}
}

func TestTimerStatistics(t *testing.T) {
	mock := clock.NewMock()
	reg := NewRegistryWithClock(mock)
	tm := reg.NewTimer("block.jacobians")

	const n = 7
	d := 12 * time.Millisecond
	for i := 0; i < n; i++ {
		test.That(t, tm.Start(), test.ShouldBeNil)
		mock.Add(d)
		test.That(t, tm.Stop(), test.ShouldBeNil)
	}

	count, err := reg.NumSamples(tm.Handle())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, count, test.ShouldEqual, uint64(n))

	mean, err := reg.MeanSeconds(tm.Handle())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mean, test.ShouldAlmostEqual, d.Seconds())

	total, err := reg.TotalSeconds(tm.Handle())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, total, test.ShouldAlmostEqual, float64(n)*d.Seconds())

	variance, err := reg.VarianceSeconds(tm.Handle())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, variance, test.ShouldAlmostEqual, 0)

	minSec, err := reg.MinSeconds(tm.Handle())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, minSec, test.ShouldAlmostEqual, d.Seconds())
	maxSec, err := reg.MaxSeconds(tm.Handle())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, maxSec, test.ShouldAlmostEqual, d.Seconds())

	hz, err := reg.Hz(tm.Handle())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, hz, test.ShouldAlmostEqual, 1.0/d.Seconds())
}

func TestTimerMixedDurations(t *testing.T) {
	mock := clock.NewMock()
	reg := NewRegistryWithClock(mock)
	tm := reg.NewTimer("mixed")

	for _, d := range []time.Duration{10 * time.Millisecond, 30 * time.Millisecond} {
		test.That(t, tm.Start(), test.ShouldBeNil)
		mock.Add(d)
		test.That(t, tm.Stop(), test.ShouldBeNil)
	}

	mean, err := reg.MeanSeconds(tm.Handle())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mean, test.ShouldAlmostEqual, 0.020)
	variance, err := reg.VarianceSeconds(tm.Handle())
	test.That(t, err, test.ShouldBeNil)
	// population variance of {0.010, 0.030}
	test.That(t, variance, test.ShouldAlmostEqual, 0.0001)
	minSec, err := reg.MinSeconds(tm.Handle())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, minSec, test.ShouldAlmostEqual, 0.010)
	maxSec, err := reg.MaxSeconds(tm.Handle())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, maxSec, test.ShouldAlmostEqual, 0.030)
}

func TestTimerMisuse(t *testing.T) {
	mock := clock.NewMock()
	reg := NewRegistryWithClock(mock)
	tm := reg.NewTimer("misuse")

	// stop while stopped
	test.That(t, tm.Stop(), test.ShouldNotBeNil)

	// double start
	test.That(t, tm.Start(), test.ShouldBeNil)
	err := tm.Start()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "misuse")

	// a discarded measurement records nothing
	tm.Discard()
	test.That(t, tm.IsTiming(), test.ShouldBeFalse)
	count, err := reg.NumSamples(tm.Handle())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, count, test.ShouldEqual, uint64(0))

	// recording against an unknown handle fails
	test.That(t, reg.AddTime(42, 1.0), test.ShouldNotBeNil)
	_, err = reg.Hz(tm.Handle())
	test.That(t, err, test.ShouldNotBeNil)
}

func TestStartTimerAndReset(t *testing.T) {
	mock := clock.NewMock()
	reg := NewRegistryWithClock(mock)

	tm := reg.StartTimer("running")
	test.That(t, tm.IsTiming(), test.ShouldBeTrue)
	mock.Add(5 * time.Millisecond)
	test.That(t, tm.Stop(), test.ShouldBeNil)

	count, err := reg.NumSamples(tm.Handle())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, count, test.ShouldEqual, uint64(1))

	test.That(t, reg.Reset(tm.Handle()), test.ShouldBeNil)
	count, err = reg.NumSamples(tm.Handle())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, count, test.ShouldEqual, uint64(0))
	test.That(t, reg.Reset(123), test.ShouldNotBeNil)

	// the tag survives a reset
	tag, err := reg.Tag(tm.Handle())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tag, test.ShouldEqual, "running")
}

func TestRegistryReport(t *testing.T) {
	mock := clock.NewMock()
	reg := NewRegistryWithClock(mock)
	tm := reg.NewTimer("report.me")
	test.That(t, tm.Start(), test.ShouldBeNil)
	mock.Add(1500 * time.Millisecond)
	test.That(t, tm.Stop(), test.ShouldBeNil)
	reg.NewTimer("never.ran")

	report := reg.String()
	test.That(t, report, test.ShouldContainSubstring, "report.me")
	test.That(t, report, test.ShouldContainSubstring, "00:00:01.500000")
	test.That(t, report, test.ShouldContainSubstring, "never.ran")
	test.That(t, strings.Count(report, "\n"), test.ShouldEqual, 4)

	// loggable without blowing up
	reg.Log(golog.NewTestLogger(t))
}

func TestSecondsToTimeString(t *testing.T) {
	test.That(t, secondsToTimeString(0), test.ShouldEqual, "00:00:00.000000")
	test.That(t, secondsToTimeString(61.25), test.ShouldEqual, "00:01:01.250000")
	test.That(t, secondsToTimeString(3723.5), test.ShouldEqual, "01:02:03.500000")
}
