package chart

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is a thread-safe map of chart kinds by tag, used to build charts
// from declarative definitions.
type Registry struct {
	mu       sync.RWMutex
	variants map[string]Variant
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{variants: make(map[string]Variant)}
}

// Register adds v under its tag. Duplicate registrations overwrite the
// previous entry.
func (r *Registry) Register(v Variant) error {
	if v == nil || v.Tag() == "" {
		return fmt.Errorf("chart: variant tag cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variants[v.Tag()] = v
	return nil
}

// Lookup returns the variant registered under tag.
func (r *Registry) Lookup(tag string) (Variant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.variants[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChartType, tag)
	}
	return v, nil
}

// Types returns every registered tag, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.variants))
	for tag := range r.variants {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// New creates a chart of the kind registered under tag.
func (r *Registry) New(tag string, width, height int, opts ...Option) (*Chart, error) {
	v, err := r.Lookup(tag)
	if err != nil {
		return nil, err
	}
	return New(v, width, height, opts...)
}

var (
	globalOnce     sync.Once
	globalRegistry *Registry
)

// Global returns the package-level registry, holding every built-in kind.
func Global() *Registry {
	globalOnce.Do(func() {
		globalRegistry = NewRegistry()
		for _, v := range Variants() {
			_ = globalRegistry.Register(v)
		}
	})
	return globalRegistry
}

// Lookup finds a chart kind in the global registry.
func Lookup(tag string) (Variant, error) { return Global().Lookup(tag) }

// Types lists the chart kinds in the global registry.
func Types() []string { return Global().Types() }
