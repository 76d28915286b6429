package gpso

import (
	"fmt"
	"math"
	"strings"
)

const (
	DefaultPopulationSize   = 20
	DefaultIterations       = 20
	DefaultMutationProb     = 0.01
	DefaultInertiaWeight    = 0.33
	DefaultSocialWeight     = 0.33
	DefaultIndividualWeight = 0.34
	DefaultSeed             = 1
)

// weightTol bounds how far the three crossover weights may sum away from 1.
const weightTol = 1e-9

// Config holds the search parameters.  It is treated as immutable once
// validated.
type Config struct {
	// PopulationSize is the number of particles in the swarm.
	PopulationSize int `mapstructure:"population" yaml:"population"`
	// Iterations is the maximum number of generations after the initial one.
	Iterations int `mapstructure:"iterations" yaml:"iterations"`
	// MutationProb is the per-bit flip probability applied after crossover.
	MutationProb float64 `mapstructure:"mutation" yaml:"mutation"`
	// InertiaWeight, SocialWeight and IndividualWeight partition [0,1) among
	// the current position, the global best and the personal best in 3PBMCX.
	// They must sum to 1.
	InertiaWeight    float64 `mapstructure:"inertia" yaml:"inertia"`
	SocialWeight     float64 `mapstructure:"social" yaml:"social"`
	IndividualWeight float64 `mapstructure:"individual" yaml:"individual"`
	// StartSet is an optional 1-based attribute range such as "1,3,5-7".
	// When set it becomes the first member of the initial population.
	StartSet string `mapstructure:"start" yaml:"start"`
	// ReportFrequency controls how often a generation is written to the
	// report.
	ReportFrequency int   `mapstructure:"report" yaml:"report"`
	Seed            int64 `mapstructure:"seed" yaml:"seed"`
	// Workers > 1 evaluates particles of a generation concurrently.
	Workers int `mapstructure:"workers" yaml:"workers"`
}

func DefaultConfig() Config {
	return Config{
		PopulationSize:   DefaultPopulationSize,
		Iterations:       DefaultIterations,
		MutationProb:     DefaultMutationProb,
		InertiaWeight:    DefaultInertiaWeight,
		SocialWeight:     DefaultSocialWeight,
		IndividualWeight: DefaultIndividualWeight,
		ReportFrequency:  DefaultIterations,
		Seed:             DefaultSeed,
	}
}

func (c Config) Validate() error {
	switch {
	case c.PopulationSize < 1:
		return fmt.Errorf("%w: population size set to %v, cannot be less than 1", ErrInvalidConfig, c.PopulationSize)
	case math.Abs(c.InertiaWeight+c.SocialWeight+c.IndividualWeight-1) > weightTol:
		return fmt.Errorf("%w: inertia weight %v, social weight %v, individual weight %v: the sum must be equal to 1",
			ErrInvalidConfig, c.InertiaWeight, c.SocialWeight, c.IndividualWeight)
	case !(c.MutationProb >= 0 && c.MutationProb <= 1):
		return fmt.Errorf("%w: mutation probability set to %v, it must be in [0, 1]", ErrInvalidConfig, c.MutationProb)
	case c.Iterations < 1:
		return fmt.Errorf("%w: iterations set to %v, cannot be less than 1", ErrInvalidConfig, c.Iterations)
	case c.ReportFrequency < 1:
		return fmt.Errorf("%w: report frequency set to %v, cannot be less than 1", ErrInvalidConfig, c.ReportFrequency)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers set to %v, cannot be negative", ErrInvalidConfig, c.Workers)
	}
	for _, w := range []float64{c.InertiaWeight, c.SocialWeight, c.IndividualWeight} {
		if w < 0 {
			return fmt.Errorf("%w: crossover weight %v is negative", ErrInvalidConfig, w)
		}
	}
	return nil
}

func (c Config) String() string { return c.Summary(c.StartSet) }

// Summary renders the configuration block of a search report using start
// as the description of the start set.
func (c Config) Summary(start string) string {
	if start == "" {
		start = "no attributes"
	}
	var b strings.Builder
	b.WriteString("\tPSO Search.\n\tStart set: " + start)
	fmt.Fprintf(&b, "\n\tPopulation size: %v", c.PopulationSize)
	fmt.Fprintf(&b, "\n\tNumber of iterations: %v", c.Iterations)
	fmt.Fprintf(&b, "\n\tMutation probability: %v", c.MutationProb)
	fmt.Fprintf(&b, "\n\tInertia weight: %v", c.InertiaWeight)
	fmt.Fprintf(&b, "\n\tSocial weight: %v", c.SocialWeight)
	fmt.Fprintf(&b, "\n\tIndividual weight: %v", c.IndividualWeight)
	fmt.Fprintf(&b, "\n\tReport frequency: %v", c.ReportFrequency)
	fmt.Fprintf(&b, "\n\tSeed: %v\n", c.Seed)
	return b.String()
}
