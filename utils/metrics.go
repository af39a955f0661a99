package utils

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus counters for the betting pipeline.
var (
	ReactionBetsPlaced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "betbot_reaction_bets_placed_total",
		Help: "Reaction bets finalized, by contestant id",
	}, []string{"contestant"})

	ReactionBetsRemoved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "betbot_reaction_bets_removed_total",
		Help: "Reaction bets cancelled by users, by contestant id",
	}, []string{"contestant"})

	ProgrammaticRemovalsSuppressed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "betbot_programmatic_removals_suppressed_total",
		Help: "Removal events ignored because the bot issued them itself",
	})

	LiveMessageRefreshes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "betbot_live_message_refreshes_total",
		Help: "Batched live message refreshes performed",
	})

	DiscordAPIErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "betbot_discord_api_errors_total",
		Help: "Discord API call failures, by operation",
	}, []string{"op"})
)

// RegisterMetrics registers all bot counters with the default registry.
// Safe to call once from main.
func RegisterMetrics() {
	prometheus.MustRegister(
		ReactionBetsPlaced,
		ReactionBetsRemoved,
		ProgrammaticRemovalsSuppressed,
		LiveMessageRefreshes,
		DiscordAPIErrors,
	)
}

// MetricsHandler returns the promhttp handler for mounting on the health
// server.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
