// Package metrics exports road network activity as Prometheus collectors.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/talgya/roadworks/internal/pathfind"
	"github.com/talgya/roadworks/internal/transport"
)

const (
	namespace = "roadworks"
	subsystem = "network"
)

// Collector holds every roadworks metric. Each collector is owned by one
// registry; tests build their own.
type Collector struct {
	searches       *prometheus.CounterVec
	searchExpanded *prometheus.HistogramVec
	events         *prometheus.CounterVec
	delivered      prometheus.Counter
	ticks          prometheus.Counter

	workers    prometheus.Gauge
	inTransit  prometheus.Gauge
	congestion *prometheus.GaugeVec
}

// NewCollector creates the metric set.
func NewCollector() *Collector {
	return &Collector{
		searches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pathfind",
				Name:      "searches_total",
				Help:      "Path searches by mode and outcome",
			},
			[]string{"mode", "result"},
		),
		searchExpanded: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pathfind",
				Name:      "expanded_nodes",
				Help:      "Nodes expanded per search",
				Buckets:   []float64{1, 4, 16, 64, 256, 1024, 4096},
			},
			[]string{"mode"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "events_total",
				Help:      "Worker events by kind",
			},
			[]string{"kind"},
		),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "items_delivered_total",
			Help:      "Items that reached the end of their route",
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ticks_total",
			Help:      "Network steps taken",
		}),
		workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "workers",
			Help:      "Workers bound to a road",
		}),
		inTransit: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "items_in_transit",
			Help:      "Items dispatched and not yet delivered",
		}),
		congestion: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "road_congestion",
				Help:      "Items waiting at a road's flags for that road",
			},
			[]string{"road"},
		),
	}
}

// Register adds every metric to reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, m := range []prometheus.Collector{
		c.searches,
		c.searchExpanded,
		c.events,
		c.delivered,
		c.ticks,
		c.workers,
		c.inTransit,
		c.congestion,
	} {
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// RecordSearch counts one finished search.
func (c *Collector) RecordSearch(res pathfind.Result) {
	result := "not_found"
	if res.Found {
		result = "found"
	}
	mode := res.Mode.String()
	c.searches.WithLabelValues(mode, result).Inc()
	c.searchExpanded.WithLabelValues(mode).Observe(float64(res.Expanded))
}

// RecordStep counts the events of one network step.
func (c *Collector) RecordStep(events []transport.Event) {
	c.ticks.Inc()
	for kind, n := range transport.CountByKind(events) {
		c.events.WithLabelValues(string(kind)).Add(float64(n))
		if kind == transport.EventDeliver {
			c.delivered.Add(float64(n))
		}
	}
}

// Observe samples the gauges from the network's current state.
func (c *Collector) Observe(n *transport.Network) {
	c.workers.Set(float64(len(n.Workers())))
	c.inTransit.Set(float64(len(n.Items())))
	c.congestion.Reset()
	for _, r := range n.Roads() {
		c.congestion.WithLabelValues(strconv.Itoa(int(r.ID))).Set(r.Congestion())
	}
}
