// Package rmetrics exports Prometheus metrics for [rdemux.Demux] values.
package rmetrics

import (
	"errors"
	"strings"

	"github.com/gordian-engine/rill"
	"github.com/prometheus/client_golang/prometheus"
)

// Source is the read-only view of a demux that a [Collector] samples.
// Any [*rdemux.Demux] satisfies Source.
type Source interface {
	Names() []string
	ConsumerCount(name string) int
	Backpressure(name string) int
}

// CollectorConfig is the configuration passed to [NewCollector].
type CollectorConfig struct {
	// Prefix for every metric name. Required.
	Namespace string

	// The demux to sample on each collection. Required.
	Source Source
}

// Collector is a [prometheus.Collector] reporting, per stream name,
// the number of consumers and the highest consumer backpressure.
//
// Values are sampled at collection time.
type Collector struct {
	src Source

	consumers    *prometheus.Desc
	backpressure *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a new Collector.
// It panics if cfg is invalid.
func NewCollector(cfg CollectorConfig) *Collector {
	var panicErrs error
	if strings.TrimSpace(cfg.Namespace) == "" {
		panicErrs = errors.Join(panicErrs, errors.New("CollectorConfig.Namespace must not be empty"))
	}
	if cfg.Source == nil {
		panicErrs = errors.Join(panicErrs, errors.New("CollectorConfig.Source must not be nil"))
	}
	if panicErrs != nil {
		panic(panicErrs)
	}

	return &Collector{
		src: cfg.Source,

		consumers: prometheus.NewDesc(
			prometheus.BuildFQName(cfg.Namespace, "", "consumers"),
			"Number of consumers registered on the named stream.",
			[]string{"name"}, nil,
		),
		backpressure: prometheus.NewDesc(
			prometheus.BuildFQName(cfg.Namespace, "", "backpressure_max"),
			"Highest number of unread results among the named stream's consumers.",
			[]string{"name"}, nil,
		),
	}
}

// Describe is part of the implementation of prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.consumers
	ch <- c.backpressure
}

// Collect is part of the implementation of prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, name := range c.src.Names() {
		ch <- prometheus.MustNewConstMetric(
			c.consumers, prometheus.GaugeValue,
			float64(c.src.ConsumerCount(name)), name,
		)
		ch <- prometheus.MustNewConstMetric(
			c.backpressure, prometheus.GaugeValue,
			float64(c.src.Backpressure(name)), name,
		)
	}
}

// Removals counts removed consumers per stream name.
// Pass [*Removals.Observe] as the OnConsumerRemoved hook of an [rdemux.Config].
type Removals struct {
	removed *prometheus.CounterVec
}

// NewRemovals returns a Removals counter named <namespace>_consumers_removed_total.
func NewRemovals(namespace string) *Removals {
	return &Removals{
		removed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consumers_removed_total",
			Help:      "Number of consumers removed from the named stream.",
		}, []string{"name"}),
	}
}

// Observe records the removal of one consumer from the named stream.
func (r *Removals) Observe(name string, _ rill.ConsumerID) {
	r.removed.WithLabelValues(name).Inc()
}

// Describe is part of the implementation of prometheus.Collector.
func (r *Removals) Describe(ch chan<- *prometheus.Desc) { r.removed.Describe(ch) }

// Collect is part of the implementation of prometheus.Collector.
func (r *Removals) Collect(ch chan<- prometheus.Metric) { r.removed.Collect(ch) }
