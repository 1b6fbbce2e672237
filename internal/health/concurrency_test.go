package health_test

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"

	"github.com/angeloszaimis/channel-router/internal/health"
)

var _ = Describe("Concurrent access", func() {
	var (
		clock   *clockwork.FakeClock
		tracker *health.Tracker
		logs    *gbytes.Buffer
		frozen  atomic.Int64
	)

	BeforeEach(func() {
		clock = clockwork.NewFakeClockAt(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
		logs = gbytes.NewBuffer()
		tracker = health.NewTracker(health.DefaultConfig(),
			health.WithClock(clock),
			health.WithLogger(slog.New(slog.NewTextHandler(logs, nil))))
		frozen.Store(0)
		tracker.SetFreezeCallback(func(string, string) { frozen.Add(1) })
	})

	It("should freeze once under concurrent failures", func() {
		const goroutines = 100

		var wg sync.WaitGroup
		wg.Add(goroutines)
		for i := 0; i < goroutines; i++ {
			go func() {
				defer wg.Done()
				tracker.RecordFailure("C1", "", errUpstream)
			}()
		}
		wg.Wait()

		snap := tracker.Status("C1", "")
		Expect(snap.Status).To(Equal(health.StatusFrozen))
		Expect(snap.TotalFailures).To(Equal(int64(goroutines)))
		Expect(snap.ConsecutiveFailures).To(Equal(goroutines))
		Expect(snap.NextFreeze).To(Equal(120 * time.Second))
		Expect(frozen.Load()).To(Equal(int64(1)))
	})

	It("should hand out the probing transition once", func() {
		for i := 0; i < health.DefaultFailureThreshold; i++ {
			tracker.RecordFailure("C1", "", errUpstream)
		}
		clock.Advance(time.Minute)

		const goroutines = 50
		var admitted atomic.Int64
		var wg sync.WaitGroup
		wg.Add(goroutines)
		for i := 0; i < goroutines; i++ {
			go func() {
				defer wg.Done()
				if tracker.IsAvailable("C1", "") {
					admitted.Add(1)
				}
			}()
		}
		wg.Wait()

		Expect(admitted.Load()).To(Equal(int64(goroutines)))
		Expect(tracker.Status("C1", "").Status).To(Equal(health.StatusProbing))
		Expect(strings.Count(string(logs.Contents()), "Channel freeze expired")).To(Equal(1))
	})

	It("should keep per-channel counts exact across many channels", func() {
		const channels = 20
		const perChannel = 25

		var wg sync.WaitGroup
		for c := 0; c < channels; c++ {
			id := fmt.Sprintf("C%d", c)
			wg.Add(2)
			go func() {
				defer wg.Done()
				for i := 0; i < perChannel; i++ {
					tracker.RecordSuccess(id, "")
				}
			}()
			go func() {
				defer wg.Done()
				for i := 0; i < perChannel; i++ {
					_ = tracker.IsAvailable(id, "")
					_ = tracker.AllStatuses("")
				}
			}()
		}
		wg.Wait()

		statuses := tracker.AllStatuses("")
		Expect(statuses).To(HaveLen(channels))
		for _, snap := range statuses {
			Expect(snap.TotalSuccesses).To(Equal(int64(perChannel)))
			Expect(snap.Status).To(Equal(health.StatusHealthy))
		}
	})

	It("should not deadlock when the callback queries the tracker", func() {
		tracker.SetFreezeCallback(func(source, id string) {
			_ = tracker.AllStatuses(source)
			tracker.RecordSuccess("other", source)
		})

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < health.DefaultFailureThreshold; i++ {
				tracker.RecordFailure("C1", "", errUpstream)
			}
		}()

		Eventually(done).Should(BeClosed())
		Expect(tracker.Status("other", "").TotalSuccesses).To(Equal(int64(1)))
	})
})
