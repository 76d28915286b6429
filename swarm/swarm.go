// Package swarm implements a geometric particle swarm over attribute
// subsets.  Particle positions are bit vectors and particles move by
// three-parent bitwise masked crossover (3PBMCX) toward their personal best
// and the global best, followed by bit-flip mutation.  For details see:
//
//	Moraglio, A., Di Chio, C., and Poli, R. "Geometric Particle Swarm
//	Optimisation", EuroGP 2007, LNCS 4445, pp. 125-136.
package swarm

import (
	"database/sql"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/Baaaaam/gpso"
	"github.com/Baaaaam/gpso/bitvec"
)

type Particle struct {
	Id  int
	Pos *bitvec.Vector
	// Merit is the raw evaluator score of Pos.
	Merit float64
	// Scaled is Merit after linear fitness scaling.  It is only used for
	// reporting.
	Scaled    float64
	Best      *bitvec.Vector
	BestMerit float64
	evaluated bool
}

// Update records the merit of p's current position and replaces p's
// personal best if the position is better under gpso.Better.
func (p *Particle) Update(merit float64) {
	p.Merit = merit
	if !p.evaluated || gpso.Better(merit, p.Pos.Count(), p.BestMerit, p.Best.Count()) {
		p.Best.CopyFrom(p.Pos)
		p.BestMerit = merit
	}
	p.evaluated = true
}

type Population []*Particle

// NewPopulation pairs each position with its personal best.
func NewPopulation(pos, best []*bitvec.Vector) Population {
	if len(pos) != len(best) {
		panic("swarm: position and personal best counts differ")
	}
	pop := make(Population, len(pos))
	for i := range pos {
		pop[i] = &Particle{Id: i, Pos: pos[i], Best: best[i]}
	}
	return pop
}

// Positions returns the live position vectors of the population.
func (pop Population) Positions() []*bitvec.Vector {
	vs := make([]*bitvec.Vector, len(pop))
	for i, p := range pop {
		vs[i] = p.Pos
	}
	return vs
}

func (pop Population) Merits() []float64 {
	vals := make([]float64, len(pop))
	for i, p := range pop {
		vals[i] = p.Merit
	}
	return vals
}

// Stats summarizes the raw merits of one generation.
type Stats struct {
	Min, Max, Sum, Avg float64
	// ScaledSum is the sum of scaled merits, filled in by Scale.
	ScaledSum float64
}

func (pop Population) Stats() Stats {
	vals := pop.Merits()
	sum := floats.Sum(vals)
	return Stats{
		Min: floats.Min(vals),
		Max: floats.Max(vals),
		Sum: sum,
		Avg: sum / float64(len(vals)),
	}
}

// fmultiple is the expected number of copies of the best member under
// linear scaling.
const fmultiple = 2.0

// Scale sets each particle's Scaled merit using linear scaling
// (Goldberg's prescale/scalepop) and returns the scaled sum.  The average
// merit is preserved and the best member maps to fmultiple times the
// average unless that would push the worst member negative, in which case
// the worst maps to zero.  If the population is flat the coefficients are
// not finite and Scaled is set to Merit.
func Scale(pop Population, st Stats) float64 {
	var a, b float64
	if st.Min > (fmultiple*st.Avg-st.Max)/(fmultiple-1) {
		delta := st.Max - st.Avg
		a = (fmultiple - 1) * st.Avg / delta
		b = st.Avg * (st.Max - fmultiple*st.Avg) / delta
	} else {
		delta := st.Avg - st.Min
		a = st.Avg / delta
		b = -st.Min * st.Avg / delta
	}

	identity := !finite(a) || !finite(b)
	sum := 0.0
	for _, p := range pop {
		if identity {
			p.Scaled = p.Merit
		} else {
			p.Scaled = math.Abs(a*p.Merit + b)
		}
		sum += p.Scaled
	}
	return sum
}

func finite(x float64) bool { return !math.IsInf(x, 0) && !math.IsNaN(x) }

// Tracker holds the best position found so far by any particle.
type Tracker struct {
	Pos      *bitvec.Vector
	Merit    float64
	Features int
}

// Check finds the best particle of pop and makes it the global best if it
// beats the current one.  A population whose merits are all equal is
// converged: its best is then the particle with the fewest features and
// Check reports true.
func (t *Tracker) Check(pop Population, st Stats) (converged bool) {
	var local *Particle
	b := -math.MaxFloat64
	if st.Max-st.Min > 0 {
		count := math.MaxInt
		for _, p := range pop {
			if p.Merit > b {
				b = p.Merit
				local = p
				count = p.Pos.Count()
			} else if gpso.Eq(p.Merit, b) {
				if c := p.Pos.Count(); c < count {
					b = p.Merit
					local = p
					count = c
				}
			}
		}
	} else {
		lowest := math.MaxInt
		for _, p := range pop {
			if c := p.Pos.Count(); c < lowest {
				lowest = c
				local = p
				b = p.Merit
			}
		}
		converged = true
	}

	count := local.Pos.Count()
	if t.Pos == nil || gpso.Better(b, count, t.Merit, t.Features) {
		t.Pos = local.Pos.Clone()
		t.Merit = b
		t.Features = count
	}
	return converged
}

// Clone returns a copy of t that shares no storage with it.
func (t Tracker) Clone() Tracker {
	if t.Pos != nil {
		t.Pos = t.Pos.Clone()
	}
	return t
}

type Option func(*Iterator)

// Weights sets the 3PBMCX weights of the current position, the global best
// and the personal best.
func Weights(inertia, social, individual float64) Option {
	return func(it *Iterator) {
		it.Inertia = inertia
		it.Social = social
		it.Individual = individual
	}
}

func Mutation(prob float64) Option {
	return func(it *Iterator) {
		it.MutationProb = prob
	}
}

// ClassIndex marks attribute i as the class; mutation never sets it.
func ClassIndex(i int) Option {
	return func(it *Iterator) {
		it.Class = i
	}
}

func DB(db *sql.DB) Option {
	return func(it *Iterator) {
		it.Db = db
	}
}

// Iterator advances a swarm one generation at a time.  Generation 0 is the
// initial population: call Evaluate once, then Iterate for each following
// generation.
type Iterator struct {
	Pop Population
	gpso.Evaler
	Rng          gpso.Rng
	Inertia      float64
	Social       float64
	Individual   float64
	MutationProb float64
	// Class is the class attribute index or -1.
	Class int
	Db    *sql.DB
	count int
	neval int
	stats Stats
	best  Tracker
}

func NewIterator(e gpso.Evaler, rng gpso.Rng, pop Population, opts ...Option) (*Iterator, error) {
	if e == nil {
		e = gpso.SerialEvaler{}
	}
	it := &Iterator{
		Pop:          pop,
		Evaler:       e,
		Rng:          rng,
		Inertia:      gpso.DefaultInertiaWeight,
		Social:       gpso.DefaultSocialWeight,
		Individual:   gpso.DefaultIndividualWeight,
		MutationProb: gpso.DefaultMutationProb,
		Class:        -1,
	}
	for _, opt := range opts {
		opt(it)
	}
	if err := it.initdb(); err != nil {
		return nil, err
	}
	return it, nil
}

// Evaluate scores the current positions, updates personal bests, population
// statistics, scaled merits and the global best, and reports whether the
// population has converged.
func (it *Iterator) Evaluate(ev gpso.SubsetEvaluator) (converged bool, err error) {
	vals, n, err := it.Evaler.Eval(ev, it.Pop.Positions()...)
	it.neval += n
	if err != nil {
		return false, err
	}
	for i, p := range it.Pop {
		p.Update(vals[i])
	}

	it.stats = it.Pop.Stats()
	it.stats.ScaledSum = Scale(it.Pop, it.stats)
	converged = it.best.Check(it.Pop, it.stats)

	if err := it.updateDb(); err != nil {
		return converged, err
	}
	return converged, nil
}

// Move applies 3PBMCX and then mutation to every particle in index order.
func (it *Iterator) Move() {
	for _, p := range it.Pop {
		Crossover(it.Rng, p, it.best.Pos, it.Inertia, it.Social)
		Mutate(it.Rng, p.Pos, it.MutationProb, it.Class)
	}
}

// Iterate runs one full generation: move, then evaluate.
func (it *Iterator) Iterate(ev gpso.SubsetEvaluator) (converged bool, err error) {
	it.count++
	it.Move()
	return it.Evaluate(ev)
}

// Count returns the current generation number.
func (it *Iterator) Count() int { return it.count }

// Neval returns the number of evaluator calls made so far.
func (it *Iterator) Neval() int { return it.neval }

func (it *Iterator) Stats() Stats { return it.stats }

// Best returns a copy of the global best.
func (it *Iterator) Best() Tracker { return it.best.Clone() }
