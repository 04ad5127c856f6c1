package goIntake

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter. The values are dense so the
// engine can keep counters in a fixed array.
type MetricID uint16

const (
	// MetricCredentialIssued counts credentials persisted by IssueCredential.
	MetricCredentialIssued MetricID = iota
	// MetricIssueFailure counts IssueCredential calls that returned an error.
	MetricIssueFailure
	// MetricIssueThrottled counts issue calls rejected by the issuance throttle.
	MetricIssueThrottled
	// MetricValidateSuccess counts successful validations.
	MetricValidateSuccess
	// MetricValidateNotFound counts validations for unknown case ids.
	MetricValidateNotFound
	// MetricValidateExpired counts validations for deactivated credentials.
	MetricValidateExpired
	// MetricValidateMismatch counts validations with a wrong passcode.
	MetricValidateMismatch
	// MetricRateLimitHit counts requests the sliding window denied.
	MetricRateLimitHit
	// MetricCredentialDeactivated counts active to used transitions.
	MetricCredentialDeactivated
	// MetricReportFinalized counts reports written by FinalizeReport.
	MetricReportFinalized
	// MetricFinalizeFailure counts FinalizeReport calls that returned an error.
	MetricFinalizeFailure
	// MetricReportDeleted counts reports removed by DeleteReport.
	MetricReportDeleted
	// MetricValidateLatency is the only histogram: ValidateCredential latency.
	MetricValidateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a lock-free set of counters and one latency histogram. A nil or
// disabled Metrics ignores every call.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only MetricValidateLatency has
// a histogram; other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricValidateLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter, and the latency buckets when histograms are
// enabled. Disabled metrics yield empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricValidateLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricValidateLatency].buckets[i])
		}
		s.Histograms[MetricValidateLatency] = buckets
	}

	return s
}

// bucket upper bounds in ms: 5, 10, 25, 50, 100, 250, 500, +Inf
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
