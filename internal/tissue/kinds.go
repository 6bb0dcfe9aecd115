package tissue

import (
	"sort"

	"github.com/kalden/ppsim/internal/simerr"
)

// Variant is the closed set of agent implementations.
type Variant int

const (
	VariantStromal Variant = iota
	VariantDecoy
	VariantMigrating
)

// CellKind describes a configurable cell class.
type CellKind struct {
	Class   string
	Variant Variant

	// InitialState is the state an activated grid cell, or a newly admitted
	// migrating cell, starts in.
	InitialState State

	// EngagedState is the migrating state used while in contact (LTin) or
	// adhered (LTi).
	EngagedState State

	// SignalsContact marks migrating cells that mature organizers on contact.
	SignalsContact bool
}

// Kinds resolves cell class keys from configuration.
type Kinds struct {
	kinds map[string]CellKind
}

// DefaultKinds returns the built-in cell classes.
func DefaultKinds() *Kinds {
	k := &Kinds{kinds: make(map[string]CellKind)}
	k.Register(CellKind{Class: "LTo", Variant: VariantStromal, InitialState: StateRETLigand})
	k.Register(CellKind{Class: "RLNonStromal", Variant: VariantDecoy, InitialState: StateDecoy})
	k.Register(CellKind{
		Class:          "LTin",
		Variant:        VariantMigrating,
		InitialState:   StateLTinMigrating,
		EngagedState:   StateLTinContact,
		SignalsContact: true,
	})
	k.Register(CellKind{
		Class:        "LTi",
		Variant:      VariantMigrating,
		InitialState: StateLTiMigrating,
		EngagedState: StateLTiAdhered,
	})
	return k
}

// Register adds or replaces a class.
func (k *Kinds) Register(kind CellKind) {
	k.kinds[kind.Class] = kind
}

// Keys returns the registered class keys in sorted order.
func (k *Kinds) Keys() []string {
	keys := make([]string, 0, len(k.kinds))
	for key := range k.kinds {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns the class registered under key.
func (k *Kinds) Lookup(key string) (CellKind, error) {
	kind, ok := k.kinds[key]
	if !ok {
		return CellKind{}, simerr.Configf("class", "unknown cell class %q (valid: %v)", key, k.Keys())
	}
	return kind, nil
}
