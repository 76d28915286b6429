// Package search runs the generational geometric PSO attribute subset
// search and produces its result and textual report.
package search

import (
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Baaaaam/gpso"
	"github.com/Baaaaam/gpso/metrics"
	"github.com/Baaaaam/gpso/pop"
	"github.com/Baaaaam/gpso/rangeset"
	"github.com/Baaaaam/gpso/swarm"
)

type State int

const (
	Uninitialized State = iota
	Initialized
	Running
	Converged
	Exhausted
	Done
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Converged:
		return "converged"
	case Exhausted:
		return "exhausted"
	case Done:
		return "done"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// DefaultTop is the number of ranked subsets kept in Result.Top.
const DefaultTop = 5

// GenerationBest is the global best after one generation.
type GenerationBest struct {
	Gen        int
	Merit      float64
	Features   int
	Attributes []int
}

type Result struct {
	// Attributes are the 0-based indices selected by the global best.
	Attributes []int
	Merit      float64
	Features   int
	// Generations is the last generation run, not counting the initial
	// population.
	Generations int
	Converged   bool
	Evaluations int
	CacheHits   int
	// History holds the global best after every generation, starting with
	// the initial population.
	History []GenerationBest
	// Top holds the best distinct subsets evaluated during the run.
	Top []gpso.Entry
	// Report holds the reported generations followed by the configuration
	// summary.
	Report string
}

type Option func(*Searcher)

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Searcher) {
		s.log = l
	}
}

func WithMetrics(c metrics.Collector) Option {
	return func(s *Searcher) {
		s.metrics = c
	}
}

// WithDB traces every generation into db.  See swarm.DB.
func WithDB(db *sql.DB) Option {
	return func(s *Searcher) {
		s.db = db
	}
}

// WithEvaler sets the strategy used for fitness cache misses.  By default
// a gpso.SerialEvaler is used, or a gpso.ParallelEvaler when
// Config.Workers > 1.
func WithEvaler(e gpso.Evaler) Option {
	return func(s *Searcher) {
		s.evaler = e
	}
}

// WithRng replaces the random stream seeded from Config.Seed.
func WithRng(r gpso.Rng) Option {
	return func(s *Searcher) {
		s.rng = r
	}
}

// WithTop sets how many ranked subsets Result.Top holds.
func WithTop(n int) Option {
	return func(s *Searcher) {
		s.top = n
	}
}

type Searcher struct {
	cfg     gpso.Config
	log     logrus.FieldLogger
	metrics metrics.Collector
	db      *sql.DB
	evaler  gpso.Evaler
	rng     gpso.Rng
	top     int
	state   State
	start   string
}

// New validates cfg and returns a Searcher for it.
func New(cfg gpso.Config, opts ...Option) (*Searcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Searcher{
		cfg:     cfg,
		log:     gpso.NoopLogger(),
		metrics: metrics.Noop{},
		top:     DefaultTop,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.evaler == nil {
		if cfg.Workers > 1 {
			s.evaler = gpso.ParallelEvaler{Workers: cfg.Workers}
		} else {
			s.evaler = gpso.SerialEvaler{}
		}
	}
	return s, nil
}

// Search runs the swarm over the attributes of data using ev to score
// subsets.  ev must be a gpso.SubsetEvaluator.  Any evaluator failure aborts
// the search and no result is returned.
func Search(cfg gpso.Config, ev gpso.Evaluator, data gpso.Dataset, opts ...Option) (*Result, error) {
	s, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return s.Search(ev, data)
}

func (s *Searcher) Config() gpso.Config { return s.cfg }

func (s *Searcher) State() State { return s.state }

// String returns the configuration summary of the last search.
func (s *Searcher) String() string { return s.cfg.Summary(s.start) }

func (s *Searcher) Search(ev gpso.Evaluator, data gpso.Dataset) (*Result, error) {
	s.state = Uninitialized
	s.start = ""
	defer func() { s.state = Done }()

	sev, err := gpso.AsSubsetEvaluator(ev)
	if err != nil {
		return nil, err
	}

	schema := gpso.Schema{NAttr: data.NumAttributes(), Class: -1}
	if data.HasClass() && !gpso.IsUnsupervised(ev) {
		schema.Class = data.ClassIndex()
	}

	var start []int
	if s.cfg.StartSet != "" {
		start, err = rangeset.Indices(s.cfg.StartSet, schema.NAttr-1)
		if err != nil {
			return nil, fmt.Errorf("%w: start set: %w", gpso.ErrInvalidConfig, err)
		}
		shown := make([]int, 0, len(start))
		for _, i := range start {
			if i != schema.Class {
				shown = append(shown, i)
			}
		}
		s.start = rangeset.Format(shown)
	}

	rng := s.rng
	if rng == nil {
		rng = rand.New(rand.NewSource(s.cfg.Seed))
	}

	pos, best, err := pop.New(rng, s.cfg.PopulationSize, schema, start)
	if err != nil {
		return nil, err
	}
	s.state = Initialized

	cev := gpso.NewCacheEvaler(s.evaler, gpso.NewCache())
	it, err := swarm.NewIterator(cev, rng, swarm.NewPopulation(pos, best),
		swarm.Weights(s.cfg.InertiaWeight, s.cfg.SocialWeight, s.cfg.IndividualWeight),
		swarm.Mutation(s.cfg.MutationProb),
		swarm.ClassIndex(schema.Class),
		swarm.DB(s.db),
	)
	if err != nil {
		return nil, err
	}

	log := s.log.WithFields(logrus.Fields{
		"attributes": schema.NAttr,
		"class":      schema.Class,
		"population": s.cfg.PopulationSize,
	})
	log.WithField("iterations", s.cfg.Iterations).Info("starting pso search")

	r := &Result{}
	rep := &reporter{}
	run := &generation{it: it, cev: cev, res: r, metrics: s.metrics, log: log}

	if _, err := run.do(sev, false); err != nil {
		return nil, err
	}
	rep.add(0, it.Pop)
	s.state = Running

	converged := false
	for g := 1; g <= s.cfg.Iterations && !converged; g++ {
		if converged, err = run.do(sev, true); err != nil {
			return nil, err
		}
		if g == s.cfg.Iterations || g%s.cfg.ReportFrequency == 0 || converged {
			rep.add(g, it.Pop)
		}
	}

	if converged {
		s.state = Converged
		log.WithField("generation", it.Count()).Info("swarm converged")
	} else {
		s.state = Exhausted
	}

	gbest := it.Best()
	r.Attributes = gbest.Pos.Indices()
	r.Merit = gbest.Merit
	r.Features = gbest.Features
	r.Generations = it.Count()
	r.Converged = converged
	r.Evaluations = it.Neval()
	r.CacheHits = cev.Hits()
	r.Top = cev.Cache.Ranked(s.top)
	r.Report = rep.String() + "\n" + s.cfg.Summary(s.start)

	log.WithFields(logrus.Fields{
		"merit":       r.Merit,
		"features":    r.Features,
		"generations": r.Generations,
		"evaluations": r.Evaluations,
		"cache_hits":  r.CacheHits,
	}).Info("pso search finished")
	return r, nil
}

// generation runs and records one generation of a search.
type generation struct {
	it      *swarm.Iterator
	cev     *gpso.CacheEvaler
	res     *Result
	metrics metrics.Collector
	log     logrus.FieldLogger
}

func (g *generation) do(ev gpso.SubsetEvaluator, move bool) (converged bool, err error) {
	t0 := time.Now()
	neval, hits := g.it.Neval(), g.cev.Hits()

	if move {
		converged, err = g.it.Iterate(ev)
	} else {
		converged, err = g.it.Evaluate(ev)
	}
	g.metrics.RecordEvaluations(g.it.Neval() - neval)
	if err != nil {
		g.log.WithError(err).WithField("generation", g.it.Count()).Error("pso search aborted")
		return false, err
	}
	g.metrics.RecordCacheHits(g.cev.Hits() - hits)

	best := g.it.Best()
	g.metrics.RecordGeneration(g.it.Count(), best.Merit, best.Features, time.Since(t0))
	g.res.History = append(g.res.History, GenerationBest{
		Gen:        g.it.Count(),
		Merit:      best.Merit,
		Features:   best.Features,
		Attributes: best.Pos.Indices(),
	})

	st := g.it.Stats()
	g.log.WithFields(logrus.Fields{
		"generation": g.it.Count(),
		"best":       best.Merit,
		"features":   best.Features,
		"min":        st.Min,
		"max":        st.Max,
		"avg":        st.Avg,
		"cached":     g.cev.Cache.Len(),
	}).Debug("generation evaluated")
	return converged, nil
}
