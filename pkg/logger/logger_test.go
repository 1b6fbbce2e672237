package logger_test

import (
	"context"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"

	"github.com/angeloszaimis/channel-router/pkg/logger"
)

var _ = Describe("Logger", func() {
	var out *gbytes.Buffer

	BeforeEach(func() {
		out = gbytes.NewBuffer()
	})

	Describe("New", func() {
		It("should write text in dev", func() {
			log := logger.New(logger.Options{Level: "info", Environment: "dev", Output: out})
			log.Info("Channel frozen", slog.String("channel", "claude:C1"))

			Expect(out).To(gbytes.Say(`msg="Channel frozen"`))
			Expect(out).To(gbytes.Say(`environment=dev`))
			Expect(out).To(gbytes.Say(`channel=claude:C1`))
		})

		It("should write JSON in prod", func() {
			log := logger.New(logger.Options{Level: "info", Environment: "prod", Output: out})
			log.Info("Channel recovered")

			Expect(out).To(gbytes.Say(`"msg":"Channel recovered"`))
			Expect(out).To(gbytes.Say(`"environment":"prod"`))
		})

		It("should drop records below the level", func() {
			log := logger.New(logger.Options{Level: "warn", Environment: "dev", Output: out})
			log.Info("hidden")
			log.Warn("shown")

			Expect(string(out.Contents())).NotTo(ContainSubstring("hidden"))
			Expect(string(out.Contents())).To(ContainSubstring("shown"))
		})

		It("should default to stdout", func() {
			Expect(logger.New(logger.Options{})).NotTo(BeNil())
		})
	})

	Describe("Discard", func() {
		It("should accept records without output", func() {
			log := logger.Discard()
			Expect(func() { log.Error("ignored") }).NotTo(Panic())
		})
	})

	DescribeTable("ParseLevel",
		func(in string, want slog.Level) {
			Expect(logger.ParseLevel(in)).To(Equal(want))
		},
		Entry("debug", "debug", slog.LevelDebug),
		Entry("info", "info", slog.LevelInfo),
		Entry("warn", "WARN", slog.LevelWarn),
		Entry("error", "error", slog.LevelError),
		Entry("invalid", "verbose", slog.LevelInfo),
	)

	It("should respect the parsed level", func() {
		log := logger.New(logger.Options{Level: "debug", Output: out})
		Expect(log.Enabled(context.Background(), slog.LevelDebug)).To(BeTrue())
	})
})
