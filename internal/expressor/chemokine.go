package expressor

import (
	"math"
	"math/rand/v2"

	"github.com/kalden/ppsim/internal/constants"
	"github.com/kalden/ppsim/internal/simerr"
	"github.com/kalden/ppsim/internal/space"
)

// NoBias is the neighbour index returned when no chemokine gradient is sensed.
const NoBias = 99

// Decision is the outcome of one chemotaxis decision.
type Decision struct {
	// Index is the chosen Moore neighbour (0..8) or NoBias.
	Index int
	// Adjuster is the percentage chance of following the strongest signal.
	Adjuster int
	// TotalSignal is the sum of raw neighbour signals.
	TotalSignal float64
	// MaxSignal is the strongest scaled (×100) neighbour signal.
	MaxSignal float64
	// Signals holds the scaled signal per neighbour index; -1 marks a
	// neighbour dropped by edge correction.
	Signals [9]float64
	// Angle is the movement direction in radians, in [0, 2π).
	Angle float64
}

// Biased reports whether the decision followed a gradient.
func (d Decision) Biased() bool { return d.Index != NoBias }

// CalcChemoLevel evaluates the ligand sigmoid at distance and zeroes values
// below cutoff.
func CalcChemoLevel(distance, linearAdjust, sigmoidThreshold, cutoff float64) float64 {
	v := 1 / (1 + math.Exp(linearAdjust*distance-sigmoidThreshold))
	if v < cutoff {
		return 0
	}
	return v
}

// ChemokineReceptor is a CXCR5/CCR7 receptor on migrating cells.
type ChemokineReceptor struct {
	name            string
	EffectThreshold float64
}

// NewChemokineReceptor builds a receptor from threshold.
func NewChemokineReceptor(name string, p Params) (*ChemokineReceptor, error) {
	if err := p.checkKnown(name, "threshold"); err != nil {
		return nil, err
	}
	th, err := p.required(name, "threshold")
	if err != nil {
		return nil, err
	}
	if err := simerr.CheckProbability(name+".threshold", th); err != nil {
		return nil, err
	}
	return &ChemokineReceptor{name: name, EffectThreshold: th}, nil
}

func (r *ChemokineReceptor) Kind() Kind   { return KindChemokineReceptor }
func (r *ChemokineReceptor) Name() string { return r.name }

// ChooseDirection samples chemokine over the Moore neighbourhood of pos and
// picks a movement angle. The strongest neighbour is followed with a
// probability equal to its scaled signal; otherwise a random neighbour's
// sector is used. With no sensed signal the angle is uniform.
func (r *ChemokineReceptor) ChooseDirection(lat space.Lattice, pos space.Point, emitters []Emitter, rng *rand.Rand) Decision {
	center := lat.Round(pos)
	height := float64(lat.Height)

	var signals SignalMap
	d := Decision{Index: NoBias}
	for k, nb := range lat.Moore(center.Col, center.Row, 1) {
		if nb.Center() {
			signals.Put(0, k)
			continue
		}
		if lat.WrapsX(center.Col, nb.Col, 1) {
			d.Signals[k] = -1
			continue
		}
		at := space.Point{X: float64(center.Col + nb.DX), Y: float64(center.Row + nb.DY)}
		s := r.signalAt(at, emitters, height)
		d.Signals[k] = s * constants.SignalScale
		signals.Put(s*constants.SignalScale, k)
		d.TotalSignal += s
	}

	maxKey, maxIdx, _ := signals.Last()
	d.MaxSignal = maxKey
	if d.TotalSignal > 0 && maxKey > r.EffectThreshold {
		d.Adjuster = int(math.Floor(maxKey))
	}

	if d.Adjuster > 0 {
		roll := rng.IntN(100) + 1
		if roll < d.Adjuster {
			d.Index = maxIdx
		} else {
			d.Index = rng.IntN(9)
		}
	}

	d.Angle = SectorAngle(d.Index, rng)
	return d
}

// signalAt returns the strongest signal any emitter produces at p. Each
// emitter contributes through its first ChemokineSource only.
func (r *ChemokineReceptor) signalAt(p space.Point, emitters []Emitter, height float64) float64 {
	best := 0.0
	for _, e := range emitters {
		if !e.EmitsChemokine() {
			continue
		}
		src, ok := First[ChemokineSource](e.Expressors())
		if !ok {
			continue
		}
		la, st := src.ChemokineParams()
		dist := space.ToroidalDistance(p, e.Position(), height)
		if v := CalcChemoLevel(dist, la, st, r.EffectThreshold); v > best {
			best = v
		}
	}
	return best
}

type sector struct {
	low  float64
	span float64
}

// sectors maps each non-centre neighbour index to the compass range it
// points into, in degrees. Index 7 (+X) wraps through zero and is handled in
// SectorAngle.
var sectors = map[int]sector{
	0: {low: 203, span: 47},
	1: {low: 158, span: 45},
	2: {low: 113, span: 45},
	3: {low: 250, span: 43},
	5: {low: 68, span: 45},
	6: {low: 293, span: 45},
	8: {low: 23, span: 45},
}

// SectorAngle draws a uniform angle in radians from the sector of neighbour
// index k. The centre index and NoBias draw from the full circle.
func SectorAngle(k int, rng *rand.Rand) float64 {
	var deg float64
	switch k {
	case 7:
		u := rng.Float64() * 45
		if u < 22 {
			deg = 338 + u
		} else {
			deg = u - 22
		}
	default:
		s, ok := sectors[k]
		if !ok {
			deg = rng.Float64() * 360
		} else {
			deg = s.low + rng.Float64()*s.span
		}
	}
	return deg * math.Pi / 180
}
