package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once       sync.Once
	collectors []prometheus.Collector
)

// register enqueues collectors from a file's init; nothing is exported to
// a registry until MustRegister runs.
func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// MustRegister exports every enqueued collector to reg, or to the default
// registry when reg is nil. Only the first call has an effect.
func MustRegister(reg ...prometheus.Registerer) {
	once.Do(func() {
		var r prometheus.Registerer = prometheus.DefaultRegisterer
		if len(reg) > 0 && reg[0] != nil {
			r = reg[0]
		}
		r.MustRegister(collectors...)
	})
}

// norm keeps label cardinality down: "OpenAI " and "openai" count once.
func norm(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	return s
}
