// Package metrics exports session counters in Prometheus format.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hammamikhairi/smartlearn/internal/domain"
	"github.com/hammamikhairi/smartlearn/internal/logger"
	"github.com/hammamikhairi/smartlearn/internal/panel"
	"github.com/hammamikhairi/smartlearn/internal/pipeline"
)

const namespace = "smartlearn"

// Collector records turns, stage failures and panel transitions. It
// satisfies both panel.Observer and pipeline.Observer.
type Collector struct {
	reg *prometheus.Registry
	log *logger.Logger

	turns       *prometheus.CounterVec
	failures    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	durations   *prometheus.HistogramVec
}

var (
	_ panel.Observer    = (*Collector)(nil)
	_ pipeline.Observer = (*Collector)(nil)
)

// New registers the session metrics on a fresh registry, together with
// the Go runtime and process collectors.
func New(log *logger.Logger) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Collector{
		reg: reg,
		log: log,
		turns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Voice turns by outcome.",
		}, []string{"outcome"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Pipeline stage failures by stage.",
		}, []string{"stage"}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "panel_transitions_total",
			Help:      "Panel switches by target panel and kind.",
		}, []string{"panel", "kind"}),
		durations: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"stage"}),
	}
}

// PanelSwitched runs under the display lock and only bumps a counter.
func (c *Collector) PanelSwitched(p domain.Panel, scheduled bool) {
	kind := "immediate"
	if scheduled {
		kind = "scheduled"
	}
	c.transitions.WithLabelValues(p.String(), kind).Inc()
}

func (c *Collector) StageCompleted(stage string, elapsed time.Duration, err error) {
	c.durations.WithLabelValues(stage).Observe(elapsed.Seconds())
	if err != nil {
		c.failures.WithLabelValues(stage).Inc()
	}
}

func (c *Collector) TurnCompleted(outcome string) {
	c.turns.WithLabelValues(outcome).Inc()
}

// Handler serves the registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{Registry: c.reg})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	c.log.Info("metrics: listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
