package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(buildInfo, poolConns, cacheLookups, sessionLocks)
}

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mentor_build_info",
			Help: "Always 1; labels carry the running version and commit.",
		},
		[]string{"version", "commit"},
	)

	poolConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mentor_db_pool_connections",
			Help: "Postgres pool connections by state.",
		},
		[]string{"state"}, // total, idle, acquired
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentor_cache_lookups_total",
			Help: "Redis read-through cache lookups by cache and result.",
		},
		[]string{"cache", "result"}, // hit, miss, error
	)

	sessionLocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentor_session_lock_total",
			Help: "Per-session turn lock attempts by result.",
		},
		[]string{"result"}, // acquired, busy, error
	)
)

func SetBuildInfo(version, commit string) {
	buildInfo.Reset()
	buildInfo.WithLabelValues(version, commit).Set(1)
}

func SetPoolConns(total, idle, acquired int32) {
	poolConns.WithLabelValues("total").Set(float64(total))
	poolConns.WithLabelValues("idle").Set(float64(idle))
	poolConns.WithLabelValues("acquired").Set(float64(acquired))
}

func IncCacheLookup(cache, result string) {
	cacheLookups.WithLabelValues(norm(cache), norm(result)).Inc()
}

func IncSessionLock(result string) {
	sessionLocks.WithLabelValues(norm(result)).Inc()
}
