// Package expressor implements the receptor and ligand models carried by
// cells: integrin adhesion, VCAM-family adhesion factors, chemokine
// receptors and chemokine ligands.
//
// Expressors are resolved from string keys through a Registry at load time.
// Cells interact with them through small capability interfaces rather than
// concrete types, so a stromal cell contributes a chemokine signal from
// whichever expressor in its list first satisfies ChemokineSource.
package expressor

import (
	"math/rand/v2"
	"sort"

	"github.com/kalden/ppsim/internal/simerr"
	"github.com/kalden/ppsim/internal/space"
)

// Kind identifies an expressor variant.
type Kind string

const (
	KindAdhesion          Kind = "adhesion"
	KindAdhesionFactor    Kind = "adhesion_factor"
	KindChemokineReceptor Kind = "chemokine_receptor"
	KindChemokineLigand   Kind = "chemokine_ligand"
)

// Expressor is a pluggable receptor or ligand model.
type Expressor interface {
	// Kind returns the variant.
	Kind() Kind
	// Name returns the registry key the expressor was built from.
	Name() string
}

// ChemokineSource is implemented by ligands that emit a chemokine signal.
type ChemokineSource interface {
	Expressor
	// ChemokineParams returns the sigmoid linear adjustment and threshold.
	ChemokineParams() (linearAdjust, sigmoidThreshold float64)
}

// AdhesionSource is implemented by adhesion factors expressed on stromal
// cells.
type AdhesionSource interface {
	Expressor
	// AdhesionStrength returns slope × expression level.
	AdhesionStrength() float64
}

// AdhesionGate is implemented by the integrin side of adhesion.
type AdhesionGate interface {
	Expressor
	// AdhesionProbability caps a source strength at the maximum adhesion
	// probability.
	AdhesionProbability(strength float64) float64
}

// Upregulator is implemented by expressors whose expression strengthens on
// each adhesion contact.
type Upregulator interface {
	Upregulate()
}

// Emitter is a cell that may emit chemokine.
type Emitter interface {
	space.Positioned
	// EmitsChemokine reports whether the cell is currently in an expressing
	// state and not stopped.
	EmitsChemokine() bool
	// Expressors returns the cell's ordered expressor list.
	Expressors() []Expressor
}

// DirectionChooser is implemented by receptors that steer migration.
type DirectionChooser interface {
	Expressor
	ChooseDirection(lat space.Lattice, pos space.Point, emitters []Emitter, rng *rand.Rand) Decision
}

// First returns the first expressor in list that satisfies T.
func First[T any](list []Expressor) (T, bool) {
	for _, e := range list {
		if v, ok := e.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Params holds the numeric parameters of one configured expressor.
type Params map[string]float64

// required returns a parameter that must be present.
func (p Params) required(expressor, name string) (float64, error) {
	v, ok := p[name]
	if !ok {
		return 0, simerr.Configf(expressor+"."+name, "required parameter missing")
	}
	return v, nil
}

// optional returns a parameter or its default.
func (p Params) optional(name string, def float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return def
}

// checkKnown rejects parameters the expressor does not understand.
func (p Params) checkKnown(expressor string, names ...string) error {
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}
	var unknown []string
	for k := range p {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return simerr.Configf(expressor, "unknown parameters %v (valid: %v)", unknown, names)
}
