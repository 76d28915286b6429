package search

import (
	"database/sql"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/Baaaaam/gpso"
	"github.com/Baaaaam/gpso/bitvec"
	"github.com/Baaaaam/gpso/metrics"
	"github.com/Baaaaam/gpso/swarm"
)

// sparse rewards small subsets.
var sparse = gpso.SubsetFunc(func(v *bitvec.Vector) float64 { return -float64(v.Count()) })

// recorder counts evaluations per content and fails if the class bit is
// ever set.
type recorder struct {
	mu    sync.Mutex
	class int
	calls map[bitvec.Key]int
	fn    func(v *bitvec.Vector) float64
	bad   int
}

func newRecorder(class int, fn func(v *bitvec.Vector) float64) *recorder {
	return &recorder{class: class, calls: map[bitvec.Key]int{}, fn: fn}
}

func (r *recorder) EvaluateSubset(v *bitvec.Vector) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[v.Key()]++
	if r.class >= 0 && v.Test(r.class) {
		r.bad++
	}
	return r.fn(v), nil
}

type unsupervised struct{ gpso.SubsetFunc }

func (unsupervised) Unsupervised() bool { return true }

// target rewards overlap with a fixed subset and penalizes extras.
func target(relevant ...int) func(v *bitvec.Vector) float64 {
	return func(v *bitvec.Vector) float64 {
		m := 0.0
		for _, i := range v.Indices() {
			hit := false
			for _, r := range relevant {
				hit = hit || r == i
			}
			if hit {
				m++
			} else {
				m -= 0.5
			}
		}
		return m
	}
}

func cfg(mod func(*gpso.Config)) gpso.Config {
	c := gpso.DefaultConfig()
	if mod != nil {
		mod(&c)
	}
	return c
}

// reportBlocks returns the subsets listed in each generation block.
func reportBlocks(report string) [][]string {
	var blocks [][]string
	for _, line := range strings.Split(report, "\n") {
		switch {
		case line == "Initial population" || strings.HasPrefix(line, "Generation: "):
			blocks = append(blocks, nil)
		case strings.HasPrefix(line, "merit"):
		case strings.Count(line, "\t") == 2 && len(blocks) > 0:
			cols := strings.Split(line, "\t")
			blocks[len(blocks)-1] = append(blocks[len(blocks)-1], cols[2])
		}
	}
	return blocks
}

func TestNewInvalidConfig(t *testing.T) {
	mods := []func(*gpso.Config){
		func(c *gpso.Config) { c.InertiaWeight, c.SocialWeight, c.IndividualWeight = 0.3, 0.3, 0.3 },
		func(c *gpso.Config) { c.PopulationSize = 0 },
		func(c *gpso.Config) { c.MutationProb = 1.5 },
		func(c *gpso.Config) { c.Iterations = 0 },
	}
	for _, mod := range mods {
		_, err := New(cfg(mod))
		assert.ErrorIs(t, err, gpso.ErrInvalidConfig)
	}
}

func TestSearchEvaluatorType(t *testing.T) {
	s, err := New(cfg(nil))
	require.NoError(t, err)
	_, err = s.Search(struct{}{}, gpso.Schema{NAttr: 5, Class: 4})
	assert.ErrorIs(t, err, gpso.ErrEvaluatorType)
	assert.Equal(t, Done, s.State())
}

func TestSearchEvaluationFailure(t *testing.T) {
	calls := 0
	ev := failAfter{n: 3, calls: &calls}
	r, err := Search(cfg(nil), ev, gpso.Schema{NAttr: 10, Class: 9})
	assert.ErrorIs(t, err, gpso.ErrEvaluation)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Nil(t, r)
	assert.Equal(t, 3, calls, "evaluation was retried after a failure")
}

type failAfter struct {
	n     int
	calls *int
}

func (f failAfter) EvaluateSubset(v *bitvec.Vector) (float64, error) {
	*f.calls++
	if *f.calls >= f.n {
		return 0, assert.AnError
	}
	return float64(v.Count()), nil
}

func TestSearchDeterministic(t *testing.T) {
	c := cfg(func(c *gpso.Config) {
		c.Seed = 42
		c.ReportFrequency = 5
		c.MutationProb = 0.05
	})
	data := gpso.Schema{NAttr: 25, Class: 24}
	ev := gpso.SubsetFunc(target(1, 3, 7, 11))

	r1, err := Search(c, ev, data)
	require.NoError(t, err)
	r2, err := Search(c, ev, data)
	require.NoError(t, err)

	assert.Equal(t, r1.Attributes, r2.Attributes)
	assert.Equal(t, r1.Report, r2.Report)
	assert.Equal(t, r1.History, r2.History)

	c.Seed = 43
	r3, err := Search(c, ev, data)
	require.NoError(t, err)
	assert.NotEqual(t, r1.Report, r3.Report)
}

func TestSearchParallelMatchesSerial(t *testing.T) {
	data := gpso.Schema{NAttr: 30, Class: -1}
	ev := gpso.SubsetFunc(target(0, 5, 6, 20, 29))

	serial, err := Search(cfg(func(c *gpso.Config) { c.MutationProb = 0.02 }), ev, data)
	require.NoError(t, err)
	parallel, err := Search(cfg(func(c *gpso.Config) { c.MutationProb = 0.02; c.Workers = 4 }), ev, data)
	require.NoError(t, err)

	assert.Equal(t, serial.Attributes, parallel.Attributes)
	assert.Equal(t, serial.Report, parallel.Report)
	assert.Equal(t, serial.Evaluations, parallel.Evaluations)
}

func TestSearchInvariants(t *testing.T) {
	const class = 14
	rec := newRecorder(class, target(2, 4, 6, 8))
	bm := &metrics.Basic{}
	r, err := Search(cfg(func(c *gpso.Config) {
		c.Iterations = 40
		c.MutationProb = 0.1
		c.ReportFrequency = 1
	}), rec, gpso.Schema{NAttr: 15, Class: class}, WithMetrics(bm))
	require.NoError(t, err)

	assert.Zero(t, rec.bad, "class attribute was selected")
	assert.NotContains(t, r.Attributes, class)

	for k, n := range rec.calls {
		assert.Equal(t, 1, n, "subset %x evaluated %v times", k, n)
	}
	assert.Equal(t, len(rec.calls), r.Evaluations)
	assert.Equal(t, int64(r.Evaluations), bm.Evaluations.Load())
	assert.Equal(t, int64(r.CacheHits), bm.CacheHits.Load())
	assert.Equal(t, int64(len(r.History)), bm.Generations.Load())
	assert.Equal(t, (r.Generations+1)*20, r.Evaluations+r.CacheHits)

	require.Len(t, r.History, r.Generations+1)
	for i := 1; i < len(r.History); i++ {
		prev, cur := r.History[i-1], r.History[i]
		assert.GreaterOrEqual(t, cur.Merit, prev.Merit, "global best regressed at %v", cur.Gen)
		if cur.Merit == prev.Merit {
			assert.LessOrEqual(t, cur.Features, prev.Features)
		}
		assert.NotContains(t, cur.Attributes, class)
	}

	last := r.History[len(r.History)-1]
	assert.Equal(t, r.Attributes, last.Attributes)
	assert.Equal(t, r.Merit, last.Merit)
	require.NotEmpty(t, r.Top)
	assert.Equal(t, r.Merit, r.Top[0].Merit)
}

func TestSearchConverges(t *testing.T) {
	flat := gpso.SubsetFunc(func(*bitvec.Vector) float64 { return 1 })
	s, err := New(cfg(func(c *gpso.Config) { c.Iterations = 50 }))
	require.NoError(t, err)

	r, err := s.Search(flat, gpso.Schema{NAttr: 12, Class: 11})
	require.NoError(t, err)
	assert.True(t, r.Converged)
	assert.Equal(t, 1, r.Generations, "converged population did not stop the search")
	assert.Equal(t, Done, s.State())

	blocks := reportBlocks(r.Report)
	require.Len(t, blocks, 2, "initial population and the converged generation are reported")
	fewest := 1 << 30
	for _, b := range blocks {
		for _, subset := range b {
			if n := len(strings.Fields(subset)); n < fewest {
				fewest = n
			}
		}
	}
	assert.Equal(t, fewest, r.Features)
	assert.Len(t, r.Attributes, fewest)
}

func TestSearchScenarioSparse(t *testing.T) {
	c := cfg(func(c *gpso.Config) {
		c.PopulationSize = 4
		c.Iterations = 3
		c.InertiaWeight, c.SocialWeight, c.IndividualWeight = 0.33, 0.33, 0.34
		c.MutationProb = 0
		c.ReportFrequency = 1
	})
	rec := newRecorder(4, func(v *bitvec.Vector) float64 { return -float64(v.Count()) })
	r, err := Search(c, rec, gpso.Schema{NAttr: 5, Class: 4})
	require.NoError(t, err)

	assert.Zero(t, rec.bad)
	assert.NotContains(t, r.Attributes, 4)
	for i := 1; i < len(r.History); i++ {
		assert.LessOrEqual(t, r.History[i].Features, r.History[i-1].Features)
		assert.NotContains(t, r.History[i].Attributes, 4)
	}
	assert.Equal(t, len(r.History), len(reportBlocks(r.Report)))
}

func TestSearchStartSet(t *testing.T) {
	c := cfg(func(c *gpso.Config) {
		c.StartSet = "1,3"
		c.PopulationSize = 4
		c.Iterations = 1
	})
	s, err := New(c)
	require.NoError(t, err)
	r, err := s.Search(sparse, gpso.Schema{NAttr: 5, Class: 4})
	require.NoError(t, err)

	blocks := reportBlocks(r.Report)
	require.NotEmpty(t, blocks)
	assert.Equal(t, "1 3 ", blocks[0][0])
	assert.Contains(t, r.Report, "\tStart set: 1,3\n")
	assert.Contains(t, s.String(), "\tStart set: 1,3\n")
}

func TestSearchStartSetDropsClass(t *testing.T) {
	c := cfg(func(c *gpso.Config) { c.StartSet = "2,last"; c.Iterations = 1 })

	r, err := Search(c, sparse, gpso.Schema{NAttr: 5, Class: 4})
	require.NoError(t, err)
	assert.Equal(t, "2 ", reportBlocks(r.Report)[0][0])

	// an unsupervised evaluator keeps the class attribute
	r, err = Search(c, unsupervised{sparse}, gpso.Schema{NAttr: 5, Class: 4})
	require.NoError(t, err)
	assert.Equal(t, "2 5 ", reportBlocks(r.Report)[0][0])
}

func TestSearchStartSetInvalid(t *testing.T) {
	_, err := Search(cfg(func(c *gpso.Config) { c.StartSet = "1,9" }), sparse, gpso.Schema{NAttr: 5, Class: 4})
	assert.ErrorIs(t, err, gpso.ErrInvalidConfig)
}

func TestSearchNoAttributes(t *testing.T) {
	_, err := Search(cfg(nil), sparse, gpso.Schema{NAttr: 1, Class: 0})
	assert.ErrorIs(t, err, gpso.ErrNoAttributes)
}

func TestSearchReportFrequency(t *testing.T) {
	r, err := Search(cfg(func(c *gpso.Config) {
		c.Iterations = 10
		c.ReportFrequency = 4
		c.MutationProb = 0.2
	}), gpso.SubsetFunc(target(0, 1)), gpso.Schema{NAttr: 40, Class: -1})
	require.NoError(t, err)

	want := []string{"Initial population"}
	for _, g := range []int{4, 8, 10} {
		if g <= r.Generations {
			want = append(want, "Generation: "+strconv.Itoa(g))
		}
	}
	if r.Converged && r.Generations%4 != 0 && r.Generations != 10 {
		want = append(want, "Generation: "+strconv.Itoa(r.Generations))
	}
	var got []string
	for _, line := range strings.Split(r.Report, "\n") {
		if line == "Initial population" || strings.HasPrefix(line, "Generation: ") {
			got = append(got, line)
		}
	}
	assert.Equal(t, want, got)
	assert.True(t, strings.HasSuffix(r.Report, "\tSeed: 1\n"), "configuration summary must trail the report")
	assert.Len(t, reportBlocks(r.Report)[0], 20)
}

func TestSearchDB(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	r, err := Search(cfg(func(c *gpso.Config) { c.Iterations = 5 }), sparse, gpso.Schema{NAttr: 8, Class: 7}, WithDB(db))
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+swarm.TblBest).Scan(&count))
	assert.Equal(t, r.Generations+1, count)
}

func TestNum(t *testing.T) {
	assert.Equal(t, "      -3", num(-3, 8, 5))
	assert.Equal(t, " 0.33333", num(1.0/3, 8, 5))
	assert.Equal(t, "     0.5", num(0.5, 8, 5))
	assert.Equal(t, "       0", num(-0.000001, 8, 5))
	assert.Equal(t, "123456789.5", num(123456789.5, 8, 5))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "converged", Converged.String())
	assert.Equal(t, "State(42)", State(42).String())
}
