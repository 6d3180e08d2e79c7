package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hugr-lab/sdmx-go/client"
	"github.com/hugr-lab/sdmx-go/registry"
)

// SourceCatalog is the root of the tree: one key per available provider.
type SourceCatalog struct {
	registry *registry.Registry
	client   client.Client
	opts     Options
	logger   *slog.Logger

	dataflows *LazyCache[*DataflowCatalog]
}

// NewSourceCatalog creates the root catalog from reg. Excluded providers are
// left out. No remote call is made; a provider's dataflows are listed the
// first time it is looked up, through a session created for it by c.
func NewSourceCatalog(reg *registry.Registry, c client.Client, opts Options) *SourceCatalog {
	opts = opts.withDefaults()
	s := &SourceCatalog{
		registry: reg,
		client:   c,
		opts:     opts,
		logger:   opts.Logger,
	}
	s.dataflows = NewLazyCache(s.materialize)
	for _, p := range reg.Available() {
		s.dataflows.Register(p.ID)
	}
	return s
}

func (s *SourceCatalog) materialize(ctx context.Context, id string) (*DataflowCatalog, error) {
	p, _ := s.registry.Lookup(id)
	session, err := s.client.Session(p)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Provider session opened", "provider", id, "url", p.URL)
	return NewDataflowCatalog(ctx, session, s.opts)
}

// Keys returns the available provider ids, sorted.
func (s *SourceCatalog) Keys() []string {
	return s.dataflows.Keys()
}

// Contains reports whether id is an available provider.
func (s *SourceCatalog) Contains(id string) bool {
	return s.dataflows.Contains(id)
}

// Providers returns the available providers, sorted by id.
func (s *SourceCatalog) Providers() []registry.Provider {
	return s.registry.Available()
}

// Provider returns the available provider with the given id.
func (s *SourceCatalog) Provider(id string) (registry.Provider, error) {
	if !s.dataflows.Contains(id) {
		return registry.Provider{}, fmt.Errorf("%w: provider %s", ErrUnknownKey, id)
	}
	p, _ := s.registry.Lookup(id)
	return p, nil
}

// Get returns the dataflow catalog of a provider, listing its dataflows on
// first access.
func (s *SourceCatalog) Get(ctx context.Context, id string) (*DataflowCatalog, error) {
	c, err := s.dataflows.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", id, err)
	}
	return c, nil
}

// Dataset is a shortcut for Get followed by DataflowCatalog.Get.
func (s *SourceCatalog) Dataset(ctx context.Context, provider, dataflow string) (*DatasetEntry, error) {
	c, err := s.Get(ctx, provider)
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, dataflow)
}
