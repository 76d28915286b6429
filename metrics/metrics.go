// Package metrics records search progress.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector receives progress events from a search.
type Collector interface {
	// RecordEvaluations is called with the number of evaluator calls made
	// for one generation.
	RecordEvaluations(n int)
	// RecordCacheHits is called with the number of particles of one
	// generation whose merit came from the fitness cache.
	RecordCacheHits(n int)
	// RecordGeneration is called after generation gen completes with the
	// global best merit and feature count and the generation's wall time.
	RecordGeneration(gen int, merit float64, features int, d time.Duration)
}

// Noop discards all events.
type Noop struct{}

func (Noop) RecordEvaluations(int)                             {}
func (Noop) RecordCacheHits(int)                               {}
func (Noop) RecordGeneration(int, float64, int, time.Duration) {}

// Basic keeps in-memory totals.
type Basic struct {
	Evaluations atomic.Int64
	CacheHits   atomic.Int64
	Generations atomic.Int64
}

func (b *Basic) RecordEvaluations(n int) { b.Evaluations.Add(int64(n)) }
func (b *Basic) RecordCacheHits(n int)   { b.CacheHits.Add(int64(n)) }

func (b *Basic) RecordGeneration(int, float64, int, time.Duration) { b.Generations.Add(1) }

type Prometheus struct {
	evaluations prometheus.Counter
	cacheHits   prometheus.Counter
	generations prometheus.Counter
	generation  prometheus.Gauge
	bestMerit   prometheus.Gauge
	bestSize    prometheus.Gauge
	genSeconds  prometheus.Histogram
}

// NewPrometheus creates the gpso collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Prometheus{
		evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gpso",
			Name:      "evaluations_total",
			Help:      "Subset evaluator calls.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gpso",
			Name:      "cache_hits_total",
			Help:      "Particles scored from the fitness cache.",
		}),
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gpso",
			Name:      "generations_total",
			Help:      "Completed generations, including initial populations.",
		}),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gpso",
			Name:      "generation",
			Help:      "Most recently completed generation.",
		}),
		bestMerit: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gpso",
			Name:      "best_merit",
			Help:      "Merit of the global best subset.",
		}),
		bestSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gpso",
			Name:      "best_features",
			Help:      "Number of attributes in the global best subset.",
		}),
		genSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gpso",
			Name:      "generation_seconds",
			Help:      "Wall time per generation.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
	for _, c := range []prometheus.Collector{p.evaluations, p.cacheHits, p.generations, p.generation, p.bestMerit, p.bestSize, p.genSeconds} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) RecordEvaluations(n int) { p.evaluations.Add(float64(n)) }
func (p *Prometheus) RecordCacheHits(n int)   { p.cacheHits.Add(float64(n)) }

func (p *Prometheus) RecordGeneration(gen int, merit float64, features int, d time.Duration) {
	p.generations.Inc()
	p.generation.Set(float64(gen))
	p.bestMerit.Set(merit)
	p.bestSize.Set(float64(features))
	p.genSeconds.Observe(d.Seconds())
}
