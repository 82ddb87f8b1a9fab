package arena

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	matchesResolved      *prometheus.CounterVec
	matchAttempts        prometheus.Histogram
	admissions           *prometheus.CounterVec
	payouts              *prometheus.CounterVec
	tournamentsCompleted prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		matchesResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agora_matches_resolved_total",
			Help: "Resolved matches by game type and how the winner was decided",
		}, []string{"game_type", "decided_by"}),
		matchAttempts: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "agora_match_attempts",
			Help:    "Attempts needed to resolve a match",
			Buckets: []float64{1, 2, 3, 4, 5},
		}),
		admissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agora_admissions_total",
			Help: "Arena join attempts by result",
		}, []string{"result"}),
		payouts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agora_payouts_total",
			Help: "Prize payouts by result",
		}, []string{"result"}),
		tournamentsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "agora_tournaments_completed_total",
			Help: "Tournaments that reached completed",
		}),
	}
}

func (m *Metrics) matchResolved(gameType, decidedBy string, attempts int) {
	if m == nil {
		return
	}
	m.matchesResolved.WithLabelValues(gameType, decidedBy).Inc()
	m.matchAttempts.Observe(float64(attempts))
}

func (m *Metrics) admission(result string) {
	if m == nil {
		return
	}
	m.admissions.WithLabelValues(result).Inc()
}

func (m *Metrics) payout(result string) {
	if m == nil {
		return
	}
	m.payouts.WithLabelValues(result).Inc()
}

func (m *Metrics) tournamentCompleted() {
	if m == nil {
		return
	}
	m.tournamentsCompleted.Inc()
}
