// SPDX-License-Identifier: EPL-2.0

package driver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects counters for every voice loop of the drivers it is given
// to. A nil *Metrics records nothing.
type Metrics struct {
	periods      *prometheus.CounterVec
	underruns    *prometheus.CounterVec
	pullDuration *prometheus.HistogramVec
	voices       *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with registry.
func NewMetrics(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		periods: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audmix_driver_periods_total",
				Help: "Total number of periods written to outputs",
			},
			[]string{"backend"},
		),
		underruns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audmix_driver_underruns_total",
				Help: "Total number of periods replaced by silence because the voice had nothing to play",
			},
			[]string{"backend"},
		),
		pullDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "audmix_driver_pull_duration_seconds",
				Help:    "Time taken to pull one period from a streaming voice",
				Buckets: prometheus.ExponentialBuckets(0.00005, 2, 12), // 50us to ~100ms
			},
			[]string{"backend"},
		),
		voices: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "audmix_driver_voices",
				Help: "Number of voices allocated on the driver",
			},
			[]string{"backend"},
		),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.periods.Describe(ch)
	m.underruns.Describe(ch)
	m.pullDuration.Describe(ch)
	m.voices.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.periods.Collect(ch)
	m.underruns.Collect(ch)
	m.pullDuration.Collect(ch)
	m.voices.Collect(ch)
}

func (m *Metrics) recordPeriod(backend string) {
	if m != nil {
		m.periods.WithLabelValues(backend).Inc()
	}
}

func (m *Metrics) recordUnderrun(backend string) {
	if m != nil {
		m.underruns.WithLabelValues(backend).Inc()
	}
}

func (m *Metrics) recordPull(backend string, d time.Duration) {
	if m != nil {
		m.pullDuration.WithLabelValues(backend).Observe(d.Seconds())
	}
}

func (m *Metrics) addVoices(backend string, n int) {
	if m != nil {
		m.voices.WithLabelValues(backend).Add(float64(n))
	}
}
