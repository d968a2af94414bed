package s3

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for object fetches.
// A nil *Metrics records nothing.
type Metrics struct {
	requests  *prometheus.CounterVec
	latency   prometheus.Histogram
	bytesRead prometheus.Counter
}

// NewMetrics creates fetch metrics and registers them on reg.
// A nil reg leaves the collectors unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "s3url",
		Subsystem: "fetch",
		Name:      "requests_total",
		Help:      "Total number of GetObject requests, partitioned by result.",
	}, []string{"result"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "s3url",
		Subsystem: "fetch",
		Name:      "duration_seconds",
		Help:      "Histogram of GetObject latencies.",
		Buckets:   prometheus.DefBuckets,
	})
	bytesRead := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "s3url",
		Subsystem: "fetch",
		Name:      "bytes_read_total",
		Help:      "Total number of object bytes read by callers.",
	})

	if reg != nil {
		_ = reg.Register(requests)
		_ = reg.Register(latency)
		_ = reg.Register(bytesRead)
	}

	return &Metrics{
		requests:  requests,
		latency:   latency,
		bytesRead: bytesRead,
	}
}

func (m *Metrics) observeFetch(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(result).Inc()
	m.latency.Observe(elapsed.Seconds())
}

func (m *Metrics) addBytesRead(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesRead.Add(float64(n))
}
