package metrics

import (
	"net/http"

	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	Namespace       = "ballotbox"
	BallotSubsystem = "ballot"
	CommandLabel    = "command"
	OutcomeLabel    = "outcome"
)

// BallotMetrics counts ballot commands by command and outcome.
type BallotMetrics struct {
	CommandsTotal metrics.Counter

	gatherer stdprometheus.Gatherer
}

// PromBallotMetrics registers the counters on a private registry so several
// instances can coexist in one process.
func PromBallotMetrics() *BallotMetrics {
	registry := stdprometheus.NewRegistry()
	commands := stdprometheus.NewCounterVec(stdprometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: BallotSubsystem,
		Name:      "commands_total",
		Help:      "Total number of ballot commands by outcome.",
	}, []string{CommandLabel, OutcomeLabel})
	registry.MustRegister(commands)

	return &BallotMetrics{
		CommandsTotal: kitprometheus.NewCounter(commands),
		gatherer:      registry,
	}
}

func (m *BallotMetrics) ObserveCommand(command string, outcome string) {
	m.CommandsTotal.With(CommandLabel, command, OutcomeLabel, outcome).Add(1)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *BallotMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
