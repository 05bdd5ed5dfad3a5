// Package metrics provides Prometheus metrics for the eventboard service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Delete flow outcomes used as label values.
const (
	DeleteRequested = "requested"
	DeleteCancelled = "cancelled"
	DeleteSucceeded = "succeeded"
	DeleteFailed    = "failed"
	DeleteRejected  = "rejected"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Listing
	sortsTotal   *prometheus.CounterVec
	sortLatency  prometheus.Histogram
	sortErrors   prometheus.Counter
	deleteEvents *prometheus.CounterVec
	navigations  prometheus.Counter

	// Events
	eventsCreated    prometheus.Counter
	duplicateCreates prometheus.Counter

	// Snapshot
	snapshotRefreshes       prometheus.Counter
	snapshotRefreshErrors   prometheus.Counter
	snapshotRefreshDuration prometheus.Histogram
	snapshotVersion         prometheus.Gauge
	snapshotEvents          prometheus.Gauge

	// Store
	storeLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // avoids default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "eventboard",
		subsystem:        "listing",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// Enabled reports whether observations are recorded.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval returns how often gauge updaters should run.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.customLabels)

	m.sortsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "sorts_total",
		Help:        "Number of listing sorts by field and direction",
		ConstLabels: constLabels,
	}, []string{"field", "direction"})

	m.sortLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "sort_latency_milliseconds",
		Help:        "Time spent ordering a listing snapshot",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	})

	m.sortErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "sort_errors_total",
		Help:        "Sort requests rejected for an unknown field or direction",
		ConstLabels: constLabels,
	})

	m.deleteEvents = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "delete_flow_total",
		Help:        "Guarded delete flow transitions by outcome",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	m.navigations = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "row_navigations_total",
		Help:        "Row activations that navigated to the event detail view",
		ConstLabels: constLabels,
	})

	m.eventsCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "events_created_total",
		Help:        "Events created through the API",
		ConstLabels: constLabels,
	})

	m.duplicateCreates = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "events_create_duplicates_total",
		Help:        "Create requests answered from the idempotency cache",
		ConstLabels: constLabels,
	})

	m.snapshotRefreshes = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "snapshot_refreshes_total",
		Help:        "Listing snapshot reloads",
		ConstLabels: constLabels,
	})

	m.snapshotRefreshErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "snapshot_refresh_errors_total",
		Help:        "Listing snapshot reloads that failed",
		ConstLabels: constLabels,
	})

	m.snapshotRefreshDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "snapshot_refresh_duration_milliseconds",
		Help:        "Time spent loading a listing snapshot from the store",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	})

	m.snapshotVersion = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "snapshot_version",
		Help:        "Version of the currently published snapshot",
		ConstLabels: constLabels,
	})

	m.snapshotEvents = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "snapshot_events",
		Help:        "Number of events in the currently published snapshot",
		ConstLabels: constLabels,
	})

	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "store",
		Name:        "operation_latency_milliseconds",
		Help:        "Store operation latency by driver and operation",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	}, []string{"driver", "op"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "requests_total",
		Help:        "HTTP requests by endpoint, method and status",
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "errors",
		Name:        "by_component_total",
		Help:        "Errors by component and type",
		ConstLabels: constLabels,
	}, []string{"component", "type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "memory_bytes",
		Help:        "Heap bytes allocated",
		ConstLabels: constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "goroutines",
		Help:        "Number of goroutines",
		ConstLabels: constLabels,
	})
}

// RecordSort counts a sort and observes how long it took.
func (m *Manager) RecordSort(field, direction string, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.sortsTotal.WithLabelValues(field, direction).Inc()
	m.sortLatency.Observe(latencyMs)
}

// RecordSortError counts a rejected sort request.
func (m *Manager) RecordSortError() {
	if !m.enabled {
		return
	}
	m.sortErrors.Inc()
}

// RecordDelete counts a delete flow transition.
func (m *Manager) RecordDelete(outcome string) {
	if !m.enabled {
		return
	}
	m.deleteEvents.WithLabelValues(outcome).Inc()
}

// RecordNavigation counts a row navigation.
func (m *Manager) RecordNavigation() {
	if !m.enabled {
		return
	}
	m.navigations.Inc()
}

// RecordEventCreated counts a created event.
func (m *Manager) RecordEventCreated() {
	if !m.enabled {
		return
	}
	m.eventsCreated.Inc()
}

// RecordDuplicateCreate counts a create answered from the idempotency cache.
func (m *Manager) RecordDuplicateCreate() {
	if !m.enabled {
		return
	}
	m.duplicateCreates.Inc()
}

// RecordSnapshotRefresh observes a successful snapshot reload.
func (m *Manager) RecordSnapshotRefresh(version uint64, events int, durationMs float64) {
	if !m.enabled {
		return
	}
	m.snapshotRefreshes.Inc()
	m.snapshotRefreshDuration.Observe(durationMs)
	m.snapshotVersion.Set(float64(version))
	m.snapshotEvents.Set(float64(events))
}

// RecordSnapshotRefreshError counts a failed snapshot reload.
func (m *Manager) RecordSnapshotRefreshError() {
	if !m.enabled {
		return
	}
	m.snapshotRefreshErrors.Inc()
}

// RecordStoreLatency observes a store operation.
func (m *Manager) RecordStoreLatency(driver, op string, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.storeLatency.WithLabelValues(driver, op).Observe(latencyMs)
}

// RecordHTTPRequest counts a request and observes its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, status string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, status).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(durationMs)
}

// RecordError counts an error for a component.
func (m *Manager) RecordError(component, errorType string) {
	if !m.enabled {
		return
	}
	m.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystem sets memory and goroutine gauges.
func (m *Manager) UpdateSystem(memoryBytes uint64, goroutines int) {
	if !m.enabled {
		return
	}
	m.systemMemoryUsage.Set(float64(memoryBytes))
	m.systemGoroutineCount.Set(float64(goroutines))
}

// Package-level helpers write to the global manager.

func RecordSort(field, direction string, latencyMs float64) {
	globalManager.RecordSort(field, direction, latencyMs)
}

func RecordSortError() { globalManager.RecordSortError() }

func RecordDelete(outcome string) { globalManager.RecordDelete(outcome) }

func RecordNavigation() { globalManager.RecordNavigation() }

func RecordEventCreated() { globalManager.RecordEventCreated() }

func RecordDuplicateCreate() { globalManager.RecordDuplicateCreate() }

func RecordSnapshotRefresh(version uint64, events int, durationMs float64) {
	globalManager.RecordSnapshotRefresh(version, events, durationMs)
}

func RecordSnapshotRefreshError() { globalManager.RecordSnapshotRefreshError() }

func RecordStoreLatency(driver, op string, latencyMs float64) {
	globalManager.RecordStoreLatency(driver, op, latencyMs)
}

func RecordHTTPRequest(endpoint, method, status string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, status, durationMs)
}

func RecordError(component, errorType string) { globalManager.RecordError(component, errorType) }

func UpdateSystem(memoryBytes uint64, goroutines int) {
	globalManager.UpdateSystem(memoryBytes, goroutines)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Since returns the elapsed milliseconds since start as a float.
func Since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
