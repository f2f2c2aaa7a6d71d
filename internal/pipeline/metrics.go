package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Faultbox/tilemesh/internal/batch"
)

type metrics struct {
	processed prometheus.Counter
	skipped   prometheus.Counter
	filtered  prometheus.Counter
	batches   prometheus.Counter
	cancelled prometheus.Counter
	inFlight  prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tilemesh",
			Subsystem: "pipeline",
			Name:      name,
			Help:      help,
		})
	}
	m := &metrics{
		processed: counter("features_processed_total", "Features merged into a batch."),
		skipped:   counter("features_skipped_total", "Features dropped for bad or degenerate geometry."),
		filtered:  counter("features_filtered_total", "Features rejected by the property filter."),
		batches:   counter("batches_sealed_total", "Batches handed to the materializer."),
		cancelled: counter("tiles_cancelled_total", "Tiles cancelled before completion."),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tilemesh",
			Subsystem: "pipeline",
			Name:      "tiles_in_flight",
			Help:      "Tiles submitted and not yet finished.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.processed, m.skipped, m.filtered, m.batches, m.cancelled, m.inFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// counting wraps a materializer and counts accepted batches.
func (m *metrics) counting(next batch.Materializer) batch.Materializer {
	return batch.MaterializerFunc(func(s *batch.Sealed) error {
		if err := next.Materialize(s); err != nil {
			return err
		}
		m.batches.Inc()
		return nil
	})
}
