// internal/utils/metrics.go
package utils

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// MetricsCollector keeps process-local counters, gauges and histograms.
type MetricsCollector struct {
	mu         sync.RWMutex
	counters   map[string]*int64
	gauges     map[string]*int64
	histograms map[string]*histogram
}

type histogram struct {
	mu    sync.Mutex
	count int64
	sum   int64
	min   int64
	max   int64
}

var (
	globalMetrics *MetricsCollector
	metricsOnce   sync.Once
)

// NewMetricsCollector returns an empty collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:   make(map[string]*int64),
		gauges:     make(map[string]*int64),
		histograms: make(map[string]*histogram),
	}
}

// GetMetricsCollector returns the global metrics collector
func GetMetricsCollector() *MetricsCollector {
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsCollector()
	})
	return globalMetrics
}

// slot returns the value cell for name, creating it under the write lock on first use.
func (m *MetricsCollector) slot(set map[string]*int64, name string) *int64 {
	m.mu.RLock()
	v, ok := set[name]
	m.mu.RUnlock()
	if ok {
		return v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok = set[name]; !ok {
		v = new(int64)
		set[name] = v
	}
	return v
}

// IncrementCounter adds one to a counter.
func (m *MetricsCollector) IncrementCounter(name string) {
	atomic.AddInt64(m.slot(m.counters, name), 1)
}

// AddCounter adds value to a counter.
func (m *MetricsCollector) AddCounter(name string, value int64) {
	atomic.AddInt64(m.slot(m.counters, name), value)
}

// SetGauge stores value in a gauge.
func (m *MetricsCollector) SetGauge(name string, value int64) {
	atomic.StoreInt64(m.slot(m.gauges, name), value)
}

// AddGauge moves a gauge by delta.
func (m *MetricsCollector) AddGauge(name string, delta int64) {
	atomic.AddInt64(m.slot(m.gauges, name), delta)
}

// GetCounterValue returns the current counter value, zero if unknown.
func (m *MetricsCollector) GetCounterValue(name string) int64 {
	m.mu.RLock()
	v, ok := m.counters[name]
	m.mu.RUnlock()
	if !ok {
		return 0
	}
	return atomic.LoadInt64(v)
}

// GetGauge returns the current gauge value, zero if unknown.
func (m *MetricsCollector) GetGauge(name string) int64 {
	m.mu.RLock()
	v, ok := m.gauges[name]
	m.mu.RUnlock()
	if !ok {
		return 0
	}
	return atomic.LoadInt64(v)
}

// RecordHistogram records one observation.
func (m *MetricsCollector) RecordHistogram(name string, value int64) {
	m.mu.RLock()
	h, ok := m.histograms[name]
	m.mu.RUnlock()

	if !ok {
		m.mu.Lock()
		if h, ok = m.histograms[name]; !ok {
			h = &histogram{min: value, max: value}
			m.histograms[name] = h
		}
		m.mu.Unlock()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	if value < h.min {
		h.min = value
	}
	if value > h.max {
		h.max = value
	}
}

// GetMetrics returns a snapshot of everything collected so far.
func (m *MetricsCollector) GetMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counters := make(map[string]int64, len(m.counters))
	for name, v := range m.counters {
		counters[name] = atomic.LoadInt64(v)
	}
	gauges := make(map[string]int64, len(m.gauges))
	for name, v := range m.gauges {
		gauges[name] = atomic.LoadInt64(v)
	}
	histograms := make(map[string]map[string]int64, len(m.histograms))
	for name, h := range m.histograms {
		h.mu.Lock()
		histograms[name] = map[string]int64{"count": h.count, "sum": h.sum, "min": h.min, "max": h.max}
		h.mu.Unlock()
	}

	return map[string]interface{}{
		"counters":   counters,
		"gauges":     gauges,
		"histograms": histograms,
	}
}

// StudioMetrics records the service-level events worth counting.
type StudioMetrics struct {
	metrics *MetricsCollector
	logger  *Logger
}

// NewStudioMetrics binds the recorder to a collector and logger.
func NewStudioMetrics(metrics *MetricsCollector, logger *Logger) *StudioMetrics {
	return &StudioMetrics{metrics: metrics, logger: logger}
}

// Collector exposes the underlying collector.
func (sm *StudioMetrics) Collector() *MetricsCollector {
	return sm.metrics
}

// RecordAPIRequest records one HTTP request handled by the router.
func (sm *StudioMetrics) RecordAPIRequest(route, method string, statusCode int, duration time.Duration) {
	sm.metrics.IncrementCounter("api_requests_total")
	sm.metrics.IncrementCounter("api_requests_" + method + "_" + route)
	sm.metrics.IncrementCounter("api_responses_" + strconv.Itoa(statusCode/100) + "xx")
	sm.metrics.RecordHistogram("api_response_time_ms", duration.Milliseconds())
}

// RecordGatewayCall records one exchange with the generation backend.
func (sm *StudioMetrics) RecordGatewayCall(endpoint string, duration time.Duration, err error) {
	sm.metrics.IncrementCounter("gateway_requests_total")
	sm.metrics.IncrementCounter("gateway_requests_" + endpoint)
	sm.metrics.RecordHistogram("gateway_latency_ms", duration.Milliseconds())
	if err != nil {
		sm.metrics.IncrementCounter("gateway_errors_total")
		sm.logger.Debug("gateway call failed", map[string]interface{}{
			"endpoint": endpoint,
			"duration": duration.Milliseconds(),
			"error":    err,
		})
	}
}

// RecordGeneration counts how panel generations ended: success, failure or stale.
func (sm *StudioMetrics) RecordGeneration(outcome string) {
	sm.metrics.IncrementCounter("panel_generations_" + outcome)
}

// RecordExport counts produced exports per format.
func (sm *StudioMetrics) RecordExport(format string, size int) {
	sm.metrics.IncrementCounter("exports_" + format)
	sm.metrics.AddCounter("export_bytes_total", int64(size))
}

// StartReporting logs a metrics summary every interval until ctx is done.
func (sm *StudioMetrics) StartReporting(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sm.logger.Info("periodic metrics report", sm.metrics.GetMetrics())
			}
		}
	}()
}
