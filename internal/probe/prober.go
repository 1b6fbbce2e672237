package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/channel-router/internal/channel"
)

const (
	userAgent        = "channel-router-speedtest/1.0"
	anthropicVersion = "2023-06-01"
	// maxDrain bounds how much of a response body is read so the
	// connection can be reused.
	maxDrain = 64 << 10
)

// Prober probes channels and caches the latest result per channel id.
// It is safe for concurrent use.
type Prober struct {
	cfg       Config
	client    *http.Client
	cache     *gocache.Cache
	clock     clockwork.Clock
	logger    *slog.Logger
	observers []func(Result)
}

type Option func(*Prober)

func WithClock(clock clockwork.Clock) Option {
	return func(p *Prober) {
		p.clock = clock
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Prober) {
		p.logger = logger
	}
}

// WithHTTPClient replaces the client used for probes. Its Timeout should be
// zero; every request carries its own deadline.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Prober) {
		p.client = client
	}
}

// WithObserver registers fn to receive every completed probe result.
// Observers are called from the probing goroutine and must be safe for
// concurrent use.
func WithObserver(fn func(Result)) Option {
	return func(p *Prober) {
		p.observers = append(p.observers, fn)
	}
}

func New(cfg Config, opts ...Option) *Prober {
	cfg = cfg.Normalize()
	p := &Prober{
		cfg: cfg,
		client: &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
		cache:  gocache.New(cfg.CacheTTL, cfg.CacheTTL),
		clock:  clockwork.NewRealClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(slog.String("component", "probe"))
	return p
}

func (p *Prober) Config() Config {
	return p.cfg
}

// ProbeChannel measures one channel. It never fails: invalid input and
// network errors are reported through the returned Result.
func (p *Prober) ProbeChannel(ch channel.Channel, timeout time.Duration) Result {
	timeout = p.cfg.Clamp(timeout)

	result := Result{
		ChannelID:   ch.ID,
		ChannelName: ch.Name,
	}

	target, err := normalizeURL(ch.BaseURL)
	if err != nil {
		result.ErrorKind = ErrorKindInvalidURL
		result.Error = err.Error()
		result.TestedAt = p.clock.Now()
		return result
	}

	// The warm-up opens the connection so the timed request measures the
	// upstream rather than the handshake. Its outcome is ignored unless it
	// timed out: a second request would only wait out the same deadline.
	if _, err := p.request(target, ch.APIKey, timeout); err != nil {
		if kind, _ := classify(err); kind == ErrorKindTimeout {
			return p.finish(p.failed(result, err))
		}
	}

	start := time.Now()
	status, err := p.request(target, ch.APIKey, timeout)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return p.finish(p.failed(result, err))
	}

	result.Success = true
	result.StatusCode = &status
	result.LatencyMS = &latency
	return p.finish(result)
}

func (p *Prober) failed(result Result, err error) Result {
	result.ErrorKind, result.Error = classify(err)
	return result
}

func (p *Prober) finish(result Result) Result {
	result.TestedAt = p.clock.Now()
	p.cache.SetDefault(result.ChannelID, result)

	p.logger.Debug("Probe completed",
		slog.String("channel", result.ChannelID),
		slog.Bool("success", result.Success),
		slog.Any("latency_ms", result.LatencyMS),
		slog.String("error", result.Error))

	for _, observe := range p.observers {
		observe(result)
	}
	return result
}

// ProbeMany probes all channels concurrently. Successful results come
// first, fastest first; failures follow.
func (p *Prober) ProbeMany(channels []channel.Channel, timeout time.Duration) []Result {
	results := make([]Result, len(channels))

	var g errgroup.Group
	if p.cfg.Concurrency > 0 {
		g.SetLimit(p.cfg.Concurrency)
	}
	for i, ch := range channels {
		g.Go(func() error {
			results[i] = p.ProbeChannel(ch, timeout)
			return nil
		})
	}
	_ = g.Wait()

	Rank(results)
	return results
}

// Rank orders results in place: successes before failures, successes by
// ascending latency.
func Rank(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Success != b.Success {
			return a.Success
		}
		if !a.Success {
			return false
		}
		return latencyOf(a) < latencyOf(b)
	})
}

func latencyOf(r Result) int64 {
	if r.LatencyMS == nil {
		return math.MaxInt64
	}
	return *r.LatencyMS
}

// Cached returns the last result for the channel while it is still fresh.
func (p *Prober) Cached(channelID string) (Result, bool) {
	v, ok := p.cache.Get(channelID)
	if !ok {
		return Result{}, false
	}
	result := v.(Result)
	if p.clock.Since(result.TestedAt) >= p.cfg.CacheTTL {
		return Result{}, false
	}
	return result, true
}

func (p *Prober) ClearCache() {
	p.cache.Flush()
}

func (p *Prober) request(target, apiKey string, timeout time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	res, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxDrain))
	return res.StatusCode, nil
}

var errMissingURL = errors.New("base URL is required")

// normalizeURL validates a base URL and strips trailing slashes.
func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errMissingURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid base URL: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.New("invalid base URL: missing host")
	}

	return strings.TrimRight(u.String(), "/"), nil
}
