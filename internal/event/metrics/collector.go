// Package metrics exports bus statistics to Prometheus.
package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/vetobus/internal/event"
)

const namespace = "vetobus"

var (
	publishedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "bus", "published_total"),
		"Events accepted for delivery.",
		[]string{"bus"}, nil)
	outcomeDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "bus", "publish_outcomes_total"),
		"Publish calls by outcome.",
		[]string{"bus", "outcome"}, nil)
	invocationsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "bus", "listener_invocations_total"),
		"Listener calls by role.",
		[]string{"bus", "role"}, nil)
	panicsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "bus", "listener_panics_total"),
		"Listener panics.",
		[]string{"bus"}, nil)
	listenerSecondsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "bus", "listener_seconds_total"),
		"Cumulative time spent in listeners.",
		[]string{"bus"}, nil)
	registrationsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "bus", "listeners"),
		"Listener registrations by role.",
		[]string{"bus", "role"}, nil)
)

// Collector is a prometheus.Collector over every bus of a registry plus any
// number of anonymous buses. Statistics are read at scrape time.
type Collector struct {
	registry *event.Registry

	mu        sync.Mutex
	anonymous []*event.Bus
}

// NewCollector creates a collector for the named buses of reg, which may be
// nil, and for the given anonymous buses.
func NewCollector(reg *event.Registry, anonymous ...*event.Bus) *Collector {
	return &Collector{registry: reg, anonymous: anonymous}
}

// Track adds a bus to the collector. A bus already collected is reported
// once. Distinct buses that share a name, e.g. from two registries, are
// labelled "<name>#2", "<name>#3" in collection order.
func (c *Collector) Track(b *event.Bus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anonymous = append(c.anonymous, b)
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- publishedDesc
	ch <- outcomeDesc
	ch <- invocationsDesc
	ch <- panicsDesc
	ch <- listenerSecondsDesc
	ch <- registrationsDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	names := make(map[string]bool)
	for _, b := range c.buses() {
		name := b.Name()
		for n := 2; names[name]; n++ {
			name = fmt.Sprintf("%s#%d", b.Name(), n)
		}
		names[name] = true
		st := b.Stats()

		counter := func(d *prometheus.Desc, v uint64, labels ...string) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), append([]string{name}, labels...)...)
		}
		counter(publishedDesc, st.Published)
		counter(outcomeDesc, st.Delivered, "delivered")
		counter(outcomeDesc, st.Vetoed, "vetoed")
		counter(outcomeDesc, st.Failed, "failed")
		counter(outcomeDesc, st.Rejected, "rejected")
		counter(invocationsDesc, st.VetoChecks, "veto")
		counter(invocationsDesc, st.Deliveries, "subscriber")
		counter(panicsDesc, st.Panics)

		ch <- prometheus.MustNewConstMetric(listenerSecondsDesc, prometheus.CounterValue, st.ListenerTime.Seconds(), name)
		ch <- prometheus.MustNewConstMetric(registrationsDesc, prometheus.GaugeValue, float64(st.VetoListeners), name, "veto")
		ch <- prometheus.MustNewConstMetric(registrationsDesc, prometheus.GaugeValue, float64(st.Subscribers), name, "subscriber")
	}
}

// buses returns each bus once: the registry's in creation order, then the
// tracked ones.
func (c *Collector) buses() []*event.Bus {
	var out []*event.Bus
	if c.registry != nil {
		out = c.registry.Buses()
	}
	seen := make(map[*event.Bus]bool, len(out))
	for _, b := range out {
		seen[b] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range c.anonymous {
		if !seen[b] {
			seen[b] = true
			out = append(out, b)
		}
	}
	return out
}
