package ivf

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cwbudde/algo-cmb/sims/hashdict"
	"github.com/cwbudde/algo-cmb/sky/maps"
)

// Metrics holds the collectors shared by instrumented filters.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the filter collectors with reg. Registering twice on
// the same registry reuses the existing collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ivf_sim_teb_total",
		Help: "Number of filtered simulations, by filter and result.",
	}, []string{"filter", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ivf_sim_teb_duration_seconds",
		Help:    "Time spent filtering one simulation.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"filter"})

	var err error
	if calls, err = register(reg, calls); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	return &Metrics{calls: calls, duration: duration}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

type instrumented struct {
	Library
	name    string
	metrics *Metrics
}

// Instrument wraps lib so every SimTEB call is counted and timed under the
// label name.
func Instrument(lib Library, name string, m *Metrics) Library {
	if m == nil {
		return lib
	}
	return &instrumented{Library: lib, name: name, metrics: m}
}

func (l *instrumented) SimTEB(i int) (*maps.TEBFFT, error) {
	start := time.Now()
	teb, err := l.Library.SimTEB(i)
	l.metrics.duration.WithLabelValues(l.name).Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	l.metrics.calls.WithLabelValues(l.name, result).Inc()
	return teb, err
}

func (l *instrumented) ObsHashDict() hashdict.Dict {
	if s, ok := l.Library.(obsSourced); ok {
		return s.ObsHashDict()
	}
	return nil
}
