package seisclust

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordCluster is called after each clustering run.
	RecordCluster(method string, duration time.Duration, err error)

	// RecordRegroup is called after each re-threshold regrouping.
	RecordRegroup(duration time.Duration, err error)

	// RecordSave is called after each archive save.
	RecordSave(duration time.Duration, err error)

	// RecordLoad is called after each archive load.
	RecordLoad(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCluster(string, time.Duration, error) {}
func (NoopMetricsCollector) RecordRegroup(time.Duration, error)         {}
func (NoopMetricsCollector) RecordSave(time.Duration, error)            {}
func (NoopMetricsCollector) RecordLoad(time.Duration, error)            {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	ClusterCount      atomic.Int64
	ClusterErrors     atomic.Int64
	ClusterTotalNanos atomic.Int64
	RegroupCount      atomic.Int64
	RegroupErrors     atomic.Int64
	SaveCount         atomic.Int64
	SaveErrors        atomic.Int64
	LoadCount         atomic.Int64
	LoadErrors        atomic.Int64
}

func (m *BasicMetricsCollector) RecordCluster(_ string, d time.Duration, err error) {
	m.ClusterCount.Add(1)
	m.ClusterTotalNanos.Add(int64(d))
	if err != nil {
		m.ClusterErrors.Add(1)
	}
}

func (m *BasicMetricsCollector) RecordRegroup(_ time.Duration, err error) {
	m.RegroupCount.Add(1)
	if err != nil {
		m.RegroupErrors.Add(1)
	}
}

func (m *BasicMetricsCollector) RecordSave(_ time.Duration, err error) {
	m.SaveCount.Add(1)
	if err != nil {
		m.SaveErrors.Add(1)
	}
}

func (m *BasicMetricsCollector) RecordLoad(_ time.Duration, err error) {
	m.LoadCount.Add(1)
	if err != nil {
		m.LoadErrors.Add(1)
	}
}
