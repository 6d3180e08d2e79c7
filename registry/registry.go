// Package registry holds the table of SDMX providers a catalog is built from.
//
// The table is an explicit value passed to catalog constructors, never
// process-wide state. Default returns a fresh copy of the built-in table on
// every call, so tests and servers can modify their own copy freely.
package registry

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrInvalidRegistry is returned when a registry document cannot be used.
var ErrInvalidRegistry = errors.New("invalid provider registry")

// Provider describes a remote organization publishing data over the SDMX
// 2.1 REST protocol.
type Provider struct {
	// ID is the short provider identifier (e.g., "ECB", "ESTAT").
	ID string `yaml:"id"`

	// Name is the human readable provider name.
	Name string `yaml:"name"`

	// URL is the REST service root, without a trailing slash.
	URL string `yaml:"url"`

	// AgencyID is the maintenance agency used in structure queries.
	// Empty means "all".
	AgencyID string `yaml:"agency_id,omitempty"`

	// Excluded marks providers that do not serve dataflow listings.
	// Excluded providers are kept in the registry but never browsed.
	Excluded bool `yaml:"excluded,omitempty"`

	// Headers are sent with every request to this provider.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// Registry is an ordered set of providers keyed by ID.
type Registry struct {
	providers map[string]Provider
}

// New creates a registry from the given providers.
// Later duplicates replace earlier ones.
func New(providers ...Provider) (*Registry, error) {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if err := r.Add(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add inserts or replaces a provider.
func (r *Registry) Add(p Provider) error {
	if p.ID == "" {
		return fmt.Errorf("%w: provider id is required", ErrInvalidRegistry)
	}
	if p.URL == "" && !p.Excluded {
		return fmt.Errorf("%w: provider %s has no url", ErrInvalidRegistry, p.ID)
	}
	if p.Name == "" {
		p.Name = p.ID
	}
	r.providers[p.ID] = p
	return nil
}

// Lookup returns the provider with the given id.
func (r *Registry) Lookup(id string) (Provider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// All returns every provider, excluded ones included, sorted by id.
func (r *Registry) All() []Provider {
	out := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Available returns the providers that support dataflow browsing, sorted by id.
func (r *Registry) Available() []Provider {
	all := r.All()
	out := all[:0]
	for _, p := range all {
		if !p.Excluded {
			out = append(out, p)
		}
	}
	return out
}

// Merge overlays other on r. Providers in other replace same-id providers in r.
func (r *Registry) Merge(other *Registry) {
	if other == nil {
		return
	}
	for id, p := range other.providers {
		r.providers[id] = p
	}
}

// document is the YAML shape of a registry file:
//
//	providers:
//	  - id: ECB
//	    name: European Central Bank
//	    url: https://data-api.ecb.europa.eu/service
type document struct {
	Providers []Provider `yaml:"providers"`
}

// Load reads a YAML registry document.
func Load(r io.Reader) (*Registry, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return New()
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegistry, err)
	}
	return New(doc.Providers...)
}

// LoadFile reads a YAML registry document from path.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open registry file: %w", err)
	}
	defer f.Close()
	return Load(f)
}
