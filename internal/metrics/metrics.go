// Package metrics exports the outcome of a scan as Prometheus metrics in the
// node_exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/peerwatch/peerwatch/internal/peer"
)

// Run is the subset of a scan report that is exported.
type Run struct {
	Started       time.Time
	Duration      time.Duration
	Lines         int
	Parsed        int
	Skipped       int
	New           int
	Refreshed     int
	Banned        int
	BannedEvicted int
	Expired       int
	// Entries counts stored entries per direction after the run.
	Entries map[peer.Direction]int
}

// RunCollector exposes one Run as constant metrics.
type RunCollector struct {
	run Run

	lastRunDesc      *prometheus.Desc
	durationDesc     *prometheus.Desc
	linesDesc        *prometheus.Desc
	connectionsDesc  *prometheus.Desc
	bannedDesc       *prometheus.Desc
	removedDesc      *prometheus.Desc
	storeEntriesDesc *prometheus.Desc
}

// NewRunCollector builds a collector for run.
func NewRunCollector(run Run) *RunCollector {
	return &RunCollector{
		run:              run,
		lastRunDesc:      prometheus.NewDesc("peerwatch_last_run_timestamp_seconds", "Unix time the last successful scan started", nil, nil),
		durationDesc:     prometheus.NewDesc("peerwatch_last_run_duration_seconds", "Wall time of the last successful scan", nil, nil),
		linesDesc:        prometheus.NewDesc("peerwatch_socket_lines", "Socket table lines read by the last scan", nil, nil),
		connectionsDesc:  prometheus.NewDesc("peerwatch_connections", "Public established connections seen by the last scan", []string{"result"}, nil),
		bannedDesc:       prometheus.NewDesc("peerwatch_banned_ips", "IPs in the ban list snapshot of the last scan", nil, nil),
		removedDesc:      prometheus.NewDesc("peerwatch_entries_removed", "Store entries removed by the last scan", []string{"reason"}, nil),
		storeEntriesDesc: prometheus.NewDesc("peerwatch_store_entries", "Entries in the peer store after the last scan", []string{"direction"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *RunCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.lastRunDesc
	ch <- c.durationDesc
	ch <- c.linesDesc
	ch <- c.connectionsDesc
	ch <- c.bannedDesc
	ch <- c.removedDesc
	ch <- c.storeEntriesDesc
}

// Collect implements prometheus.Collector.
func (c *RunCollector) Collect(ch chan<- prometheus.Metric) {
	r := c.run
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}

	gauge(c.lastRunDesc, float64(r.Started.UnixNano())/1e9)
	gauge(c.durationDesc, r.Duration.Seconds())
	gauge(c.linesDesc, float64(r.Lines))

	gauge(c.connectionsDesc, float64(r.Parsed), "parsed")
	gauge(c.connectionsDesc, float64(r.Skipped), "skipped")
	gauge(c.connectionsDesc, float64(r.New), "new")
	gauge(c.connectionsDesc, float64(r.Refreshed), "refreshed")

	gauge(c.bannedDesc, float64(r.Banned))
	gauge(c.removedDesc, float64(r.BannedEvicted), "banned")
	gauge(c.removedDesc, float64(r.Expired), "expired")

	for _, d := range []peer.Direction{peer.DirectionIn, peer.DirectionOut} {
		gauge(c.storeEntriesDesc, float64(r.Entries[d]), string(d))
	}
}

// WriteTextfile renders run into path atomically. node_exporter only picks up
// files ending in ".prom".
func WriteTextfile(path string, run Run) error {
	registry := prometheus.NewRegistry()
	if err := registry.Register(NewRunCollector(run)); err != nil {
		return fmt.Errorf("register run collector: %w", err)
	}

	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
