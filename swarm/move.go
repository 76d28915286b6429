package swarm

import (
	"github.com/Baaaaam/gpso"
	"github.com/Baaaaam/gpso/bitvec"
)

// Crossover moves p by 3PBMCX.  For each bit one uniform draw r selects the
// donor: r < inertia keeps p's bit, r < inertia+social copies gbest's bit,
// and anything else copies p's personal best bit.  Every bit of the result
// therefore equals the same bit of one of the three parents.
func Crossover(rng gpso.Rng, p *Particle, gbest *bitvec.Vector, inertia, social float64) {
	n := p.Pos.Len()
	for i := 0; i < n; i++ {
		r := rng.Float64()
		switch {
		case r < inertia:
		case r < inertia+social:
			p.Pos.SetTo(i, gbest.Test(i))
		default:
			p.Pos.SetTo(i, p.Best.Test(i))
		}
	}
}

// Mutate flips each bit of v with probability prob, one draw per bit.  The
// bit at class is drawn for but never flipped.
func Mutate(rng gpso.Rng, v *bitvec.Vector, prob float64, class int) {
	n := v.Len()
	for i := 0; i < n; i++ {
		if rng.Float64() < prob && i != class {
			v.Flip(i)
		}
	}
}
