package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/channel-router/config"
	"github.com/angeloszaimis/channel-router/internal/channel"
	"github.com/angeloszaimis/channel-router/internal/health"
	"github.com/angeloszaimis/channel-router/internal/probe"
)

const validConfig = `
server:
  address: ":9090"
  environment: "prod"
  write_timeout: "90s"

logging:
  level: "debug"

health:
  failure_threshold: 5
  probe_window: 2
  initial_freeze: "30s"
  max_freeze: "10m"
  freeze_multiplier: 3

probe:
  timeout: "5s"
  cache_ttl: "1m"
  concurrency: 4
  interval: "2m"

channels:
  - id: "C1"
    name: "primary"
    base_url: "https://api.example.com/"
    api_key: "sk-one"
  - id: "C2"
    name: "backup"
    source: "openai"
    base_url: "http://localhost:8081"
`

var _ = Describe("Config", func() {
	var (
		tempDir string
		workDir string
	)

	BeforeEach(func() {
		var err error
		workDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		tempDir = GinkgoT().TempDir()
		Expect(os.Chdir(tempDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(workDir)).To(Succeed())
	})

	writeConfig := func(content string) string {
		path := filepath.Join(tempDir, "config.yaml")
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
		return path
	}

	Describe("Load", func() {
		Context("with valid config file", func() {
			var cfg *config.Config

			BeforeEach(func() {
				writeConfig(validConfig)

				var err error
				cfg, err = config.Load("")
				Expect(err).NotTo(HaveOccurred())
			})

			It("should parse the server section", func() {
				Expect(cfg.Server.Address).To(Equal(":9090"))
				Expect(cfg.Server.Environment).To(Equal(config.EnvProd))

				timeouts := cfg.ServerTimeouts()
				Expect(timeouts.Write).To(Equal(90 * time.Second))
				Expect(timeouts.Read).To(Equal(15 * time.Second))
			})

			It("should build the tracker config", func() {
				Expect(cfg.TrackerConfig()).To(Equal(health.Config{
					FailureThreshold: 5,
					ProbeWindow:      2,
					InitialFreeze:    30 * time.Second,
					MaxFreeze:        10 * time.Minute,
					FreezeMultiplier: 3,
				}))
			})

			It("should build the prober config", func() {
				Expect(cfg.ProberConfig()).To(Equal(probe.Config{
					DefaultTimeout: 5 * time.Second,
					MinTimeout:     probe.MinTimeout,
					MaxTimeout:     probe.MaxTimeout,
					CacheTTL:       time.Minute,
					Concurrency:    4,
				}))
				Expect(cfg.MonitorInterval()).To(Equal(2 * time.Minute))
			})

			It("should list channels with normalized sources", func() {
				Expect(cfg.ChannelList()).To(Equal([]channel.Channel{
					{ID: "C1", Name: "primary", Source: "claude", BaseURL: "https://api.example.com/", APIKey: "sk-one"},
					{ID: "C2", Name: "backup", Source: "openai", BaseURL: "http://localhost:8081"},
				}))
			})
		})

		Context("with an explicit file", func() {
			It("should read it", func() {
				path := filepath.Join(GinkgoT().TempDir(), "router.yaml")
				Expect(os.WriteFile(path, []byte(validConfig), 0o644)).To(Succeed())

				cfg, err := config.Load(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Channels).To(HaveLen(2))
			})

			It("should fail when it does not exist", func() {
				_, err := config.Load(filepath.Join(tempDir, "missing.yaml"))
				Expect(err).To(HaveOccurred())
			})
		})

		Context("with environment variables", func() {
			BeforeEach(func() {
				GinkgoT().Setenv("HEALTH_FAILURE_THRESHOLD", "7")
				GinkgoT().Setenv("PROBE_TIMEOUT", "3s")
			})

			It("should override defaults", func() {
				cfg, err := config.Load("")
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.TrackerConfig().FailureThreshold).To(Equal(7))
				Expect(cfg.ProberConfig().DefaultTimeout).To(Equal(3 * time.Second))
			})
		})

		Context("without a config file", func() {
			It("should use defaults", func() {
				cfg, err := config.Load("")
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Server.Address).To(Equal(":8080"))
				Expect(cfg.TrackerConfig()).To(Equal(health.DefaultConfig()))
				Expect(cfg.ProberConfig()).To(Equal(probe.DefaultConfig()))
				Expect(cfg.MonitorInterval()).To(BeZero())
				Expect(cfg.Channels).To(BeEmpty())
			})
		})

		DescribeTable("invalid files",
			func(content string) {
				writeConfig(content)
				_, err := config.Load("")
				Expect(err).To(HaveOccurred())
			},
			Entry("unknown environment", "server:\n  environment: qa\n"),
			Entry("bad address", "server:\n  address: \"nope\"\n"),
			Entry("unknown log level", "logging:\n  level: trace\n"),
			Entry("zero threshold", "health:\n  failure_threshold: -1\n"),
			Entry("multiplier below one", "health:\n  freeze_multiplier: 0.5\n"),
			Entry("bad freeze duration", "health:\n  initial_freeze: soon\n"),
			Entry("negative interval", "probe:\n  interval: -1s\n"),
			Entry("negative concurrency", "probe:\n  concurrency: -2\n"),
			Entry("channel without id", "channels:\n  - base_url: http://localhost:8081\n"),
			Entry("channel without URL", "channels:\n  - id: C1\n"),
			Entry("channel with ftp URL", "channels:\n  - id: C1\n    base_url: ftp://files\n"),
			Entry("duplicate channel", "channels:\n  - id: C1\n    base_url: http://a\n  - id: C1\n    source: claude\n    base_url: http://b\n"),
		)
	})
})
