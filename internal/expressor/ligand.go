package expressor

import (
	"github.com/kalden/ppsim/internal/constants"
	"github.com/kalden/ppsim/internal/simerr"
)

// ChemokineLigand is a CXCL13/CCL19/CCL21 expressor on stromal cells.
//
// The emitted signal at distance d is 1/(1+e^(LinearAdjust*d - SigmoidThreshold)).
// Each adhesion moves LinearAdjust one Reducer step toward MaxExpressionValue
// and never past it.
type ChemokineLigand struct {
	name               string
	SigmoidThreshold   float64
	LinearAdjust       float64
	MaxExpressionValue float64
	Reducer            float64
}

// NewChemokineLigand builds a ligand from linear_adjust, max_expression,
// sig_threshold and reducer.
func NewChemokineLigand(name string, p Params) (*ChemokineLigand, error) {
	if err := p.checkKnown(name, "linear_adjust", "max_expression", "sig_threshold", "reducer"); err != nil {
		return nil, err
	}
	la, err := p.required(name, "linear_adjust")
	if err != nil {
		return nil, err
	}
	maxExp, err := p.required(name, "max_expression")
	if err != nil {
		return nil, err
	}
	l := &ChemokineLigand{
		name:               name,
		LinearAdjust:       la,
		MaxExpressionValue: maxExp,
		SigmoidThreshold:   p.optional("sig_threshold", constants.DefaultSigmoidThreshold),
		Reducer:            p.optional("reducer", constants.DefaultChemokineReducer),
	}
	switch {
	case l.LinearAdjust <= 0:
		return nil, simerr.Invariantf(name+".linear_adjust", "must be positive, got %v", l.LinearAdjust)
	case l.MaxExpressionValue <= 0:
		return nil, simerr.Invariantf(name+".max_expression", "must be positive, got %v", l.MaxExpressionValue)
	case l.Reducer < 0:
		return nil, simerr.Invariantf(name+".reducer", "must be non-negative, got %v", l.Reducer)
	}
	return l, nil
}

func (l *ChemokineLigand) Kind() Kind   { return KindChemokineLigand }
func (l *ChemokineLigand) Name() string { return l.name }

// ChemokineParams returns the current linear adjustment and sigmoid threshold.
func (l *ChemokineLigand) ChemokineParams() (float64, float64) {
	return l.LinearAdjust, l.SigmoidThreshold
}

// Upregulate steps LinearAdjust toward MaxExpressionValue.
func (l *ChemokineLigand) Upregulate() {
	switch {
	case l.LinearAdjust > l.MaxExpressionValue:
		l.LinearAdjust -= l.Reducer
		if l.LinearAdjust < l.MaxExpressionValue {
			l.LinearAdjust = l.MaxExpressionValue
		}
	case l.LinearAdjust < l.MaxExpressionValue:
		l.LinearAdjust += l.Reducer
		if l.LinearAdjust > l.MaxExpressionValue {
			l.LinearAdjust = l.MaxExpressionValue
		}
	}
}
