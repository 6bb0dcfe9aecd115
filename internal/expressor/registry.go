package expressor

import (
	"sort"

	"github.com/kalden/ppsim/internal/simerr"
)

// Factory builds one expressor instance from configured parameters.
type Factory func(name string, p Params) (Expressor, error)

// Registry resolves configured expressor keys to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with every built-in expressor under both
// its receptor-family key and its descriptive alias.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	adhesion := func(name string, p Params) (Expressor, error) { return NewAdhesionExpressor(name, p) }
	factor := func(name string, p Params) (Expressor, error) { return NewAdhesionFactor(name, p) }
	receptor := func(name string, p Params) (Expressor, error) { return NewChemokineReceptor(name, p) }
	ligand := func(name string, p Params) (Expressor, error) { return NewChemokineLigand(name, p) }

	r.Register("A4b1_a4b7", adhesion)
	r.Register(string(KindAdhesion), adhesion)
	r.Register("VCAM_ICAM_MAdCAM", factor)
	r.Register(string(KindAdhesionFactor), factor)
	r.Register("CXCR5_CCR7", receptor)
	r.Register(string(KindChemokineReceptor), receptor)
	r.Register("CXCL13_CCL19_CCL21", ligand)
	r.Register(string(KindChemokineLigand), ligand)
	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(key string, f Factory) {
	r.factories[key] = f
}

// Has reports whether key is registered.
func (r *Registry) Has(key string) bool {
	_, ok := r.factories[key]
	return ok
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// New builds the expressor registered under key.
func (r *Registry) New(key string, p Params) (Expressor, error) {
	f, ok := r.factories[key]
	if !ok {
		return nil, simerr.Configf("expressor", "unknown kind %q (valid: %v)", key, r.Keys())
	}
	return f(key, p)
}
