package api

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iksnae/llm-unify/internal"
	"github.com/iksnae/llm-unify/internal/search"
	"github.com/iksnae/llm-unify/internal/storage"
)

const gaugeTimeout = 2 * time.Second

// Metrics holds the Prometheus collectors for the API.
//
// Metrics:
//   - llm_unify_http_requests_total{method,route,status}
//   - llm_unify_http_request_duration_seconds{route}
//   - llm_unify_search_queries_total
//   - llm_unify_conversations_deleted_total
//   - llm_unify_conversations, llm_unify_messages, llm_unify_index_postings (sampled on scrape)
type Metrics struct {
	RequestsTotal        *prometheus.CounterVec
	RequestDuration      *prometheus.HistogramVec
	SearchQueriesTotal   prometheus.Counter
	ConversationsDeleted prometheus.Counter
}

// NewMetrics registers the collectors with reg. Each server gets its own
// registry so several can coexist in one process.
func NewMetrics(reg prometheus.Registerer, repo *storage.ConversationRepository, engine *search.Engine) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_unify_http_requests_total",
				Help: "Total number of HTTP requests served",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_unify_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		SearchQueriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "llm_unify_search_queries_total",
			Help: "Total number of search queries executed",
		}),
		ConversationsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "llm_unify_conversations_deleted_total",
			Help: "Total number of delete requests applied",
		}),
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "llm_unify_conversations",
		Help: "Number of stored conversations",
	}, func() float64 {
		convs, _ := sampleCount(repo)
		return float64(convs)
	})
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "llm_unify_messages",
		Help: "Number of stored messages",
	}, func() float64 {
		_, msgs := sampleCount(repo)
		return float64(msgs)
	})
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "llm_unify_index_postings",
		Help: "Number of search index postings",
	}, func() float64 {
		ctx, cancel := context.WithTimeout(context.Background(), gaugeTimeout)
		defer cancel()
		stats, err := engine.Stats(ctx)
		if err != nil {
			internal.LogWarn("Failed to sample index stats: %v", err)
			return 0
		}
		return float64(stats.Postings)
	})

	return m
}

func sampleCount(repo *storage.ConversationRepository) (int, int) {
	ctx, cancel := context.WithTimeout(context.Background(), gaugeTimeout)
	defer cancel()
	convs, msgs, err := repo.Count(ctx)
	if err != nil {
		internal.LogWarn("Failed to sample conversation count: %v", err)
		return 0, 0
	}
	return convs, msgs
}

func (m *Metrics) observeRequest(method, route string, status int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
