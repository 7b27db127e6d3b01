// Package metrics defines the Prometheus metrics for the video browser
// core: catalog scans, artifact tasks, external command invocations, and
// state store queries. Metrics are registered via promauto at package init.
package metrics
