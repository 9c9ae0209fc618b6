package metrics

import (
	"context"
	"net/http"
	"strconv"

	"quiz-battle-arena/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector turns lifecycle events into Prometheus series. It is registered as an
// event publisher, so it sees exactly what every other sink sees.
type Collector struct {
	registry *prometheus.Registry

	events       *prometheus.CounterVec
	completions  *prometheus.CounterVec
	ratingDeltas prometheus.Histogram
	badges       *prometheus.CounterVec
	matchScores  prometheus.Histogram
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "battle_events_total",
				Help: "Lifecycle events published, by type",
			},
			[]string{"type"},
		),
		completions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "battle_completions_total",
				Help: "Completed battles, split by whether the time limit forced completion",
			},
			[]string{"timed_out"},
		),
		ratingDeltas: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "battle_rating_delta",
			Help:    "Rating points gained by the winner",
			Buckets: []float64{1, 4, 8, 12, 16, 20, 24, 28, 32},
		}),
		badges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "battle_badges_awarded_total",
				Help: "Badges awarded, by badge",
			},
			[]string{"badge"},
		),
		matchScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "queue_match_score",
			Help:    "Match score of queue pairings",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
	}
	c.registry.MustRegister(c.events, c.completions, c.ratingDeltas, c.badges, c.matchScores)
	return c
}

func (c *Collector) Publish(_ context.Context, event domain.Event) error {
	c.events.WithLabelValues(string(event.Kind())).Inc()
	switch e := event.(type) {
	case domain.BattleCompletedEvent:
		c.completions.WithLabelValues(strconv.FormatBool(e.TimedOut)).Inc()
		c.ratingDeltas.Observe(float64(e.WinnerDelta))
	case domain.BadgeEarned:
		c.badges.WithLabelValues(e.Badge.String()).Inc()
	case domain.QueueMatchedEvent:
		c.matchScores.Observe(float64(e.Score))
	}
	return nil
}

// WatchQueue exposes the waiting-player count, read from stats at scrape time.
func (c *Collector) WatchQueue(stats func(context.Context) (domain.QueueStats, error)) {
	c.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "queue_waiting_players",
			Help: "Players currently waiting for a match",
		},
		func() float64 {
			s, err := stats(context.Background())
			if err != nil {
				return 0
			}
			return float64(s.Waiting)
		},
	))
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
