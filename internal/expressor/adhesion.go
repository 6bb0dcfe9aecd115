package expressor

import (
	"math"

	"github.com/kalden/ppsim/internal/constants"
	"github.com/kalden/ppsim/internal/simerr"
)

// AdhesionExpressor is the integrin (α4β1/α4β7) side of adhesion, carried by
// migrating cells.
type AdhesionExpressor struct {
	name                   string
	MaxAdhesionProbability float64
}

// NewAdhesionExpressor builds an integrin expressor from max_probability.
func NewAdhesionExpressor(name string, p Params) (*AdhesionExpressor, error) {
	if err := p.checkKnown(name, "max_probability"); err != nil {
		return nil, err
	}
	maxP, err := p.required(name, "max_probability")
	if err != nil {
		return nil, err
	}
	if err := simerr.CheckProbability(name+".max_probability", maxP); err != nil {
		return nil, err
	}
	return &AdhesionExpressor{name: name, MaxAdhesionProbability: maxP}, nil
}

func (a *AdhesionExpressor) Kind() Kind   { return KindAdhesion }
func (a *AdhesionExpressor) Name() string { return a.name }

// AdhesionProbability returns min(strength, MaxAdhesionProbability).
func (a *AdhesionExpressor) AdhesionProbability(strength float64) float64 {
	if strength < 0 {
		return 0
	}
	return math.Min(strength, a.MaxAdhesionProbability)
}

// AdhesionFactor is a VCAM/ICAM/MAdCAM expressor on stromal cells. Its
// expression level rises by Increment on every adhesion.
type AdhesionFactor struct {
	name            string
	ExpressionLevel float64
	Slope           float64
	Increment       float64
}

// NewAdhesionFactor builds an adhesion factor from slope, expression_level
// and increment.
func NewAdhesionFactor(name string, p Params) (*AdhesionFactor, error) {
	if err := p.checkKnown(name, "slope", "expression_level", "increment"); err != nil {
		return nil, err
	}
	slope, err := p.required(name, "slope")
	if err != nil {
		return nil, err
	}
	f := &AdhesionFactor{
		name:            name,
		Slope:           slope,
		ExpressionLevel: p.optional("expression_level", 0),
		Increment:       p.optional("increment", constants.DefaultAdhesionIncrement),
	}
	switch {
	case f.Slope < 0:
		return nil, simerr.Invariantf(name+".slope", "must be non-negative, got %v", f.Slope)
	case f.ExpressionLevel < 0:
		return nil, simerr.Invariantf(name+".expression_level", "must be non-negative, got %v", f.ExpressionLevel)
	case f.Increment < 0:
		return nil, simerr.Invariantf(name+".increment", "must be non-negative, got %v", f.Increment)
	}
	return f, nil
}

func (f *AdhesionFactor) Kind() Kind   { return KindAdhesionFactor }
func (f *AdhesionFactor) Name() string { return f.name }

// AdhesionStrength returns Slope × ExpressionLevel.
func (f *AdhesionFactor) AdhesionStrength() float64 {
	return f.Slope * f.ExpressionLevel
}

// Upregulate raises the expression level by one increment.
func (f *AdhesionFactor) Upregulate() {
	f.ExpressionLevel += f.Increment
}
