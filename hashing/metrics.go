package hashing

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "passlib"

var (
	backendProbes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "backend_probes_total",
			Help:      "Checksum engine probes partitioned by scheme, engine and result.",
		},
		[]string{"scheme", "engine", "result"},
	)

	verifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "verify_total",
			Help:      "Completed password verifications partitioned by scheme and result.",
		},
		[]string{"scheme", "result"},
	)

	verifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "verify_duration_seconds",
			Help:      "Distribution of password verification durations in seconds.",
			Buckets:   []float64{0.001, 0.010, 0.050, 0.100, 0.250, 0.500, 1.0, 3.0},
		},
		[]string{"scheme"},
	)
)

// RegisterMetrics registers the package collectors with reg.  Collectors
// that are already registered with reg are ignored, so it is safe to call
// more than once.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{backendProbes, verifications, verifyDuration} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}

func observeProbe(scheme, engine string, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	backendProbes.WithLabelValues(scheme, engine, result).Inc()
}

func observeVerify(name SchemeName, ok bool) {
	result := "mismatch"
	if ok {
		result = "match"
	}
	verifications.WithLabelValues(string(name), result).Inc()
}

// verifyTimer starts timing a verification; call the returned function when
// it completes.
func verifyTimer(name SchemeName) func() {
	timer := prometheus.NewTimer(verifyDuration.WithLabelValues(string(name)))
	return func() { timer.ObserveDuration() }
}
