package monitor

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var IndexLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "historydb",
	Subsystem: "index",
	Name:      "lookups",
}, []string{"index", "path"})

var IndexLoads = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "historydb",
	Subsystem: "index",
	Name:      "loads",
}, []string{"index", "result"})

var IndexPurges = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "historydb",
	Subsystem: "index",
	Name:      "purges",
}, []string{"index", "kind"})

// Register adds the index collectors to reg. Registering twice is not an error.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{IndexLookups, IndexLoads, IndexPurges} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}
