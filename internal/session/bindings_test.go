package session_test

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/channel-router/internal/channel"
	"github.com/angeloszaimis/channel-router/internal/health"
	"github.com/angeloszaimis/channel-router/internal/session"
	"github.com/angeloszaimis/channel-router/pkg/logger"
)

var _ = Describe("Bindings", func() {
	var bindings *session.Bindings

	BeforeEach(func() {
		bindings = session.NewBindings(logger.Discard())
	})

	It("should start empty", func() {
		Expect(bindings.Len()).To(Equal(0))
		_, ok := bindings.Lookup("s1")
		Expect(ok).To(BeFalse())
	})

	It("should bind and look up sessions", func() {
		bindings.Bind("s1", channel.NewKey("openai", "C1"))

		key, ok := bindings.Lookup("s1")
		Expect(ok).To(BeTrue())
		Expect(key).To(Equal(channel.Key{Source: "openai", ID: "C1"}))
	})

	It("should default an empty source", func() {
		bindings.Bind("s1", channel.Key{ID: "C1"})

		key, _ := bindings.Lookup("s1")
		Expect(key.Source).To(Equal(channel.DefaultSource))
	})

	It("should replace an existing binding", func() {
		bindings.Bind("s1", channel.NewKey("", "C1"))
		bindings.Bind("s1", channel.NewKey("", "C2"))

		key, _ := bindings.Lookup("s1")
		Expect(key.ID).To(Equal("C2"))
		Expect(bindings.Len()).To(Equal(1))
	})

	It("should mint unique session ids", func() {
		first := bindings.BindNew(channel.NewKey("", "C1"))
		second := bindings.BindNew(channel.NewKey("", "C1"))

		Expect(first).NotTo(Equal(second))
		Expect(uuid.Validate(first)).To(Succeed())
		Expect(bindings.Len()).To(Equal(2))
	})

	It("should unbind a session", func() {
		bindings.Bind("s1", channel.NewKey("", "C1"))

		bindings.Unbind("s1")
		bindings.Unbind("missing")

		Expect(bindings.Len()).To(Equal(0))
	})

	Describe("EvictChannel", func() {
		BeforeEach(func() {
			bindings.Bind("s1", channel.NewKey("", "C1"))
			bindings.Bind("s2", channel.NewKey("claude", "C1"))
			bindings.Bind("s3", channel.NewKey("openai", "C1"))
			bindings.Bind("s4", channel.NewKey("", "C2"))
		})

		It("should remove only bindings to that channel", func() {
			Expect(bindings.EvictChannel("", "C1")).To(Equal(2))

			Expect(bindings.Len()).To(Equal(2))
			_, ok := bindings.Lookup("s3")
			Expect(ok).To(BeTrue())
			_, ok = bindings.Lookup("s4")
			Expect(ok).To(BeTrue())
		})

		It("should report zero for an unbound channel", func() {
			Expect(bindings.EvictChannel("openai", "C9")).To(Equal(0))
			Expect(bindings.Len()).To(Equal(4))
		})

		It("should run as the tracker's freeze callback", func() {
			tracker := health.NewTracker(health.DefaultConfig(), health.WithLogger(logger.Discard()))
			tracker.SetFreezeCallback(func(source, channelID string) {
				bindings.EvictChannel(source, channelID)
			})

			for i := 0; i < health.DefaultFailureThreshold; i++ {
				tracker.RecordFailure("C1", "openai", fmt.Errorf("attempt %d failed", i))
			}

			_, ok := bindings.Lookup("s3")
			Expect(ok).To(BeFalse())
			Expect(bindings.Len()).To(Equal(3))
		})
	})

	It("should be safe for concurrent use", func() {
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				bindings.BindNew(channel.NewKey("", "C1"))
			}()
			go func() {
				defer wg.Done()
				bindings.EvictChannel("", "C2")
				_ = bindings.Len()
			}()
		}
		wg.Wait()

		Expect(bindings.Len()).To(Equal(50))
	})
})
