package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Baaaaam/gpso/swarm"
)

type reporter struct {
	b strings.Builder
}

// add appends one population block: a title, a header and one row per
// particle with its merit, scaled merit and 1-based attributes.
func (r *reporter) add(gen int, pop swarm.Population) {
	if gen == 0 {
		r.b.WriteString("\nInitial population\n")
	} else {
		fmt.Fprintf(&r.b, "\nGeneration: %v\n", gen)
	}
	r.b.WriteString("merit   \tscaled  \tsubset\n")
	for _, p := range pop {
		fmt.Fprintf(&r.b, "%s\t%s\t%s\n", num(p.Merit, 8, 5), num(p.Scaled, 8, 5), p.Pos)
	}
}

func (r *reporter) String() string { return r.b.String() }

// num formats v with at most prec decimals, trailing zeros removed, right
// aligned in width.
func num(v float64, width, prec int) string {
	s := strconv.FormatFloat(v, 'f', prec, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		s = "0"
	}
	if pad := width - len(s); pad > 0 {
		s = strings.Repeat(" ", pad) + s
	}
	return s
}
