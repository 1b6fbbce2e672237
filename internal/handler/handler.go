package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"

	"github.com/angeloszaimis/channel-router/internal/channel"
	"github.com/angeloszaimis/channel-router/internal/health"
	"github.com/angeloszaimis/channel-router/internal/metrics"
	"github.com/angeloszaimis/channel-router/internal/probe"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxBodyBytes bounds request bodies accepted by the admin API.
const maxBodyBytes = 1 << 20

type AdminHandler struct {
	logger           *slog.Logger
	tracker          *health.Tracker
	prober           *probe.Prober
	channels         []channel.Channel
	metricsCollector *metrics.Collector
}

func NewAdminHandler(logger *slog.Logger, tracker *health.Tracker, prober *probe.Prober, channels []channel.Channel, collector *metrics.Collector) *AdminHandler {
	return &AdminHandler{
		logger:           logger.With(slog.String("component", "admin")),
		tracker:          tracker,
		prober:           prober,
		channels:         channels,
		metricsCollector: collector,
	}
}

// Routes registers the admin endpoints on r.
func (h *AdminHandler) Routes(r chi.Router) {
	r.Route("/channels", func(r chi.Router) {
		r.Get("/", h.ListChannels)
		r.Get("/health", h.AllHealth)
		r.Get("/{key}", h.ChannelByKey)
		r.Get("/{source}/{id}/health", h.ChannelHealth)
		r.Post("/{source}/{id}/reset", h.ResetChannel)
	})
	r.Route("/speedtest", func(r chi.Router) {
		r.Post("/", h.SpeedTest)
		r.Get("/{id}", h.CachedResult)
	})
}

type channelView struct {
	channel.Channel
	Health  health.Snapshot `json:"health"`
	Latency *probeView      `json:"latency,omitempty"`
}

type probeView struct {
	probe.Result
	Tier probe.Tier `json:"tier"`
}

func newProbeView(r probe.Result) probeView {
	return probeView{Result: r, Tier: r.Tier()}
}

// ListChannels reports every configured channel with its health snapshot
// and, when fresh, its last probe result. It has no side effects.
func (h *AdminHandler) ListChannels(w http.ResponseWriter, r *http.Request) {
	views := make([]channelView, 0, len(h.channels))
	for _, ch := range h.channels {
		view := channelView{
			Channel: ch,
			Health:  h.tracker.Status(ch.ID, ch.Source),
		}
		if result, ok := h.prober.Cached(ch.ID); ok {
			pv := newProbeView(result)
			view.Latency = &pv
		}
		views = append(views, view)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"channels": views})
}

func (h *AdminHandler) AllHealth(w http.ResponseWriter, r *http.Request) {
	source := channel.NormalizeSource(r.URL.Query().Get("source"))
	h.writeJSON(w, http.StatusOK, map[string]any{
		"source":   source,
		"channels": h.tracker.AllStatuses(source),
	})
}

func (h *AdminHandler) ChannelHealth(w http.ResponseWriter, r *http.Request) {
	key := channel.NewKey(chi.URLParam(r, "source"), chi.URLParam(r, "id"))
	h.writeJSON(w, http.StatusOK, map[string]any{
		"source":     key.Source,
		"channel_id": key.ID,
		"health":     h.tracker.Status(key.ID, key.Source),
	})
}

// ChannelByKey reports one channel addressed by its "source:id" key.
func (h *AdminHandler) ChannelByKey(w http.ResponseWriter, r *http.Request) {
	key, ok := channel.ParseKey(chi.URLParam(r, "key"))
	if !ok {
		h.writeError(w, http.StatusBadRequest, "channel key must be source:id")
		return
	}

	view := channelView{
		Channel: channel.Channel{ID: key.ID, Source: key.Source},
		Health:  h.tracker.Status(key.ID, key.Source),
	}
	for _, ch := range h.channels {
		if ch.Key() == key {
			view.Channel = ch
			break
		}
	}
	if result, ok := h.prober.Cached(key.ID); ok {
		pv := newProbeView(result)
		view.Latency = &pv
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *AdminHandler) ResetChannel(w http.ResponseWriter, r *http.Request) {
	key := channel.NewKey(chi.URLParam(r, "source"), chi.URLParam(r, "id"))

	h.tracker.Reset(key.ID, key.Source)
	if h.metricsCollector != nil {
		h.metricsCollector.Publish(metrics.MetricEvent{
			Type:      metrics.EventChannelReset,
			Timestamp: time.Now(),
			Channel:   key,
		})
	}

	h.logger.Info("Channel reset by operator",
		slog.String("channel", key.String()),
		slog.String("remote", r.RemoteAddr))

	h.writeJSON(w, http.StatusOK, map[string]any{
		"source":     key.Source,
		"channel_id": key.ID,
		"health":     h.tracker.Status(key.ID, key.Source),
	})
}

type speedTestRequest struct {
	ChannelIDs []string `json:"channel_ids"`
	TimeoutMS  int64    `json:"timeout_ms"`
}

// SpeedTest probes the requested channels, or all configured channels when
// none are named, and returns them ranked.
func (h *AdminHandler) SpeedTest(w http.ResponseWriter, r *http.Request) {
	var req speedTestRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	targets := h.channels
	if len(req.ChannelIDs) > 0 {
		var unknown []string
		targets, unknown = h.selectChannels(req.ChannelIDs)
		if len(unknown) > 0 {
			h.writeJSON(w, http.StatusNotFound, map[string]any{
				"error":    "unknown channel",
				"channels": unknown,
			})
			return
		}
	}

	timeout := h.prober.Config().Clamp(time.Duration(req.TimeoutMS) * time.Millisecond)
	results := h.prober.ProbeMany(targets, timeout)

	views := make([]probeView, len(results))
	for i, result := range results {
		views[i] = newProbeView(result)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"timeout_ms": timeout.Milliseconds(),
		"results":    views,
	})
}

func (h *AdminHandler) CachedResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, ok := h.prober.Cached(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "no fresh result for channel")
		return
	}
	h.writeJSON(w, http.StatusOK, newProbeView(result))
}

func (h *AdminHandler) selectChannels(ids []string) (selected []channel.Channel, unknown []string) {
	byID := make(map[string]channel.Channel, len(h.channels))
	for _, ch := range h.channels {
		byID[ch.ID] = ch
	}
	for _, id := range ids {
		ch, ok := byID[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		selected = append(selected, ch)
	}
	return selected, unknown
}

func (h *AdminHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", slog.String("error", err.Error()))
	}
}

func (h *AdminHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
