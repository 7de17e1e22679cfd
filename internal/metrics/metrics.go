package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BootstrapsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streakcraft_session_bootstraps_total",
		Help: "Startup session checks by outcome (authenticated, anonymous, error).",
	}, []string{"outcome"})

	LogoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streakcraft_logouts_total",
		Help: "Local sign-outs, labelled by the backend call's outcome.",
	}, []string{"remote"})

	GuardRedirectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streakcraft_guard_redirects_total",
		Help: "Requests redirected by the route guard, by the state that caused it.",
	}, []string{"state"})

	ActiveLoads = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streakcraft_active_loads",
		Help: "Browser application loads currently tracked by the shell.",
	})

	CrossOriginRejectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streakcraft_cross_origin_rejects_total",
		Help: "State-changing requests refused for lacking same-origin proof.",
	})
)
