package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scan metrics
var (
	ScansTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_browser_scans_total",
			Help: "Total number of catalog scans",
		},
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "video_browser_scan_duration_seconds",
			Help:    "Catalog scan duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ScanVideosFound = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_browser_scan_videos_found",
			Help: "Number of videos discovered by the most recent scan",
		},
	)
)

// Task metrics
var (
	TasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_browser_tasks_total",
			Help: "Total number of artifact tasks by terminal state",
		},
		[]string{"kind", "outcome"}, // kind: thumbnail|filmstrip; outcome: completed|canceled|failed
	)

	TasksInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "video_browser_tasks_in_flight",
			Help: "Number of artifact tasks currently running",
		},
		[]string{"kind"},
	)

	TaskQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_browser_task_queue_depth",
			Help: "Number of artifact tasks waiting for a worker",
		},
	)

	FramesGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_browser_filmstrip_frames_generated_total",
			Help: "Total number of filmstrip frames generated",
		},
	)
)

// External command metrics
var (
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_browser_commands_total",
			Help: "Total number of external media command invocations",
		},
		[]string{"command", "status"}, // status: success|error
	)

	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_browser_command_duration_seconds",
			Help:    "External media command duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"command"},
	)
)

// Store metrics
var (
	StoreQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_browser_store_queries_total",
			Help: "Total number of state store queries",
		},
		[]string{"operation", "status"},
	)
)
