// Package bench provides subset evaluation problems with known optima for
// testing the swarm, plus a tabular dataset and a correlation based subset
// evaluator for running it on real data.
package bench

import (
	"fmt"

	"github.com/Baaaaam/gpso"
	"github.com/Baaaaam/gpso/bitvec"
	"github.com/Baaaaam/gpso/search"
)

var AllProblems = []Problem{
	Sparse{NAttr: 5, Class: 4},
	Sparse{NAttr: 40, Class: -1},
	Target{NAttr: 10, Class: 9, Relevant: []int{1, 3, 5}, Penalty: 0.5},
	Target{NAttr: 30, Class: 29, Relevant: []int{0, 4, 8, 15, 16, 23}, Penalty: 0.25},
	Target{NAttr: 100, Class: 99, Relevant: []int{2, 7, 11, 13, 42, 64, 80}, Penalty: 1},
}

type Problem interface {
	gpso.SubsetEvaluator
	gpso.Dataset
	// Optimum returns the best merit and one subset achieving it.
	Optimum() (merit float64, attrs []int)
	Name() string
}

// Sparse scores a subset by minus its size, so the empty subset is optimal.
type Sparse struct {
	NAttr int
	Class int
}

func (p Sparse) Name() string { return fmt.Sprintf("Sparse_%vD", p.NAttr) }

func (p Sparse) EvaluateSubset(v *bitvec.Vector) (float64, error) {
	return -float64(v.Count()), nil
}

func (p Sparse) Optimum() (float64, []int) { return 0, []int{} }

func (p Sparse) NumAttributes() int { return p.NAttr }
func (p Sparse) HasClass() bool     { return p.Class >= 0 }
func (p Sparse) ClassIndex() int    { return p.Class }

// Target scores one point per relevant attribute selected and subtracts
// Penalty for every other attribute selected.
type Target struct {
	NAttr    int
	Class    int
	Relevant []int
	Penalty  float64
}

func (p Target) Name() string { return fmt.Sprintf("Target_%vD_%vR", p.NAttr, len(p.Relevant)) }

func (p Target) EvaluateSubset(v *bitvec.Vector) (float64, error) {
	if v.Len() != p.NAttr {
		return 0, fmt.Errorf("subset has %v attributes, want %v", v.Len(), p.NAttr)
	}
	hits := 0
	for _, i := range p.Relevant {
		if v.Test(i) {
			hits++
		}
	}
	extra := v.Count() - hits
	return float64(hits) - p.Penalty*float64(extra), nil
}

func (p Target) Optimum() (float64, []int) {
	attrs := make([]int, 0, len(p.Relevant))
	for _, i := range p.Relevant {
		if i != p.Class {
			attrs = append(attrs, i)
		}
	}
	return float64(len(attrs)), attrs
}

func (p Target) NumAttributes() int { return p.NAttr }
func (p Target) HasClass() bool     { return p.Class >= 0 }
func (p Target) ClassIndex() int    { return p.Class }

// Benchmark runs one search of p and returns the result together with the
// distance between the optimum merit and the merit found.
func Benchmark(cfg gpso.Config, p Problem, opts ...search.Option) (r *search.Result, gap float64, err error) {
	r, err = search.Search(cfg, p, p, opts...)
	if err != nil {
		return nil, 0, err
	}
	optimum, _ := p.Optimum()
	return r, optimum - r.Merit, nil
}
