// Package observability exposes the service's prometheus metrics.
package observability

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	GamesResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wishing_games_resolved_total",
		Help: "Resolved fountain sessions by payout tier.",
	}, []string{"tier"})

	PayoutsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wishing_payouts_total",
		Help: "Payout transactions successfully submitted.",
	})

	PayoutFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wishing_payout_failures_total",
		Help: "Payouts that failed to construct or submit and were flagged for manual reconciliation.",
	})

	JackpotsWon = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wishing_jackpots_total",
		Help: "Jackpot tier hits.",
	})

	FountainPool = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wishing_fountain_pool",
		Help: "Current fountain pool counter.",
	})
)

// Handler adapts the prometheus handler to gin.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
