// Package metrics exposes alarm delivery counters for Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "alarm"

// Metrics holds the collectors. It satisfies delivery.Observer.
type Metrics struct {
	registry *prometheus.Registry

	deliveries       *prometheus.CounterVec
	dismissals       prometheus.Counter
	playbackFailures prometheus.Counter
	ringing          prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		deliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deliveries_total",
				Help:      "Alarm deliveries by the channel that reported them",
			},
			[]string{"channel"},
		),
		dismissals: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dismissals_total",
			Help:      "Ringing alarms dismissed",
		}),
		playbackFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_failures_total",
			Help:      "Swallowed alarm sound failures",
		}),
		ringing: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ringing",
			Help:      "1 while an alarm is ringing",
		}),
	}
}

func (m *Metrics) Delivered(channel string) {
	m.deliveries.WithLabelValues(channel).Inc()
}

func (m *Metrics) Dismissed() {
	m.dismissals.Inc()
}

// PlaybackFailed is meant for audio.Controller.OnFailure.
func (m *Metrics) PlaybackFailed(error) {
	m.playbackFailures.Inc()
}

func (m *Metrics) SetRinging(ringing bool) {
	if ringing {
		m.ringing.Set(1)
		return
	}
	m.ringing.Set(0)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve listens on addr until ctx is done. An empty addr disables it.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *zap.SugaredLogger) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Infof("Serving metrics on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Metrics server stopped: %v", err)
		}
	}()
}
