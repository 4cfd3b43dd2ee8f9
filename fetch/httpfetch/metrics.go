// Copyright 2021 The xhr Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpfetch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gogama/xhr/transient"
)

const namespace = "xhr_fetch"

// Metrics holds the Prometheus collectors a Service updates. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	// Attempts counts transport attempts by outcome ("response",
	// "error") and transient error category.
	Attempts *prometheus.CounterVec
	// Fetches counts finished fetches by outcome ("ok", "error",
	// "cancelled").
	Fetches *prometheus.CounterVec
	// Retries counts attempts that were repeated.
	Retries prometheus.Counter
	// BodyBytes counts response body bytes delivered to listeners.
	BodyBytes prometheus.Counter
	// InFlight is the number of fetches in progress.
	InFlight prometheus.Gauge
	// Duration observes fetch durations in seconds.
	Duration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil
// reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Attempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Transport attempts by outcome and transient error category.",
		}, []string{"outcome", "category"}),
		Fetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Finished fetches by outcome.",
		}, []string{"outcome"}),
		Retries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Transport attempts repeated under the retry policy.",
		}),
		BodyBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "body_bytes_total",
			Help:      "Response body bytes delivered to listeners.",
		}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "in_flight",
			Help:      "Fetches in progress.",
		}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "duration_seconds",
			Help:      "Fetch duration from submission to completion.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) attempt(err error) {
	if m == nil {
		return
	}
	outcome := "response"
	if err != nil {
		outcome = "error"
	}
	m.Attempts.WithLabelValues(outcome, transient.Categorize(err).String()).Inc()
}

func (m *Metrics) retry() {
	if m == nil {
		return
	}
	m.Retries.Inc()
}

func (m *Metrics) bytes(n int) {
	if m == nil {
		return
	}
	m.BodyBytes.Add(float64(n))
}

func (m *Metrics) start() {
	if m == nil {
		return
	}
	m.InFlight.Inc()
}

func (m *Metrics) finish(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.InFlight.Dec()
	m.Fetches.WithLabelValues(outcome).Inc()
	m.Duration.Observe(d.Seconds())
}
