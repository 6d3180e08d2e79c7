package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hugr-lab/sdmx-go/client"
)

// DataflowCatalog lists the dataflows of one provider.
//
// Every dataflow is reachable by its id and by its name; both keys resolve
// to the same *DatasetEntry. Entries are built from the dataflow's
// structure on first access and never re-fetched.
type DataflowCatalog struct {
	provider string
	session  client.Session
	opts     Options
	logger   *slog.Logger

	flows []client.Dataflow
	byID  map[string]client.Dataflow

	// names maps dataflow names to ids.
	names map[string]string

	entries *LazyCache[*DatasetEntry]
}

// NewDataflowCatalog lists the dataflows of the session's provider and
// returns a catalog keyed by their ids and names. The listing is the only
// remote call made; entries are fetched on demand through the same session.
func NewDataflowCatalog(ctx context.Context, session client.Session, opts Options) (*DataflowCatalog, error) {
	opts = opts.withDefaults()

	start := time.Now()
	flows, err := session.ListDataflows(ctx)
	if err != nil {
		return nil, err
	}

	c := newDataflowCatalog(session, flows, opts)
	c.entries = NewLazyCache(c.materialize)
	c.register(nil)

	c.logger.Debug("Dataflows listed",
		"dataflows", len(c.flows),
		"keys", c.entries.Len(),
		"duration", time.Since(start),
	)
	return c, nil
}

func newDataflowCatalog(session client.Session, flows []client.Dataflow, opts Options) *DataflowCatalog {
	c := &DataflowCatalog{
		provider: session.Provider(),
		session:  session,
		opts:     opts,
		logger:   opts.Logger.With("provider", session.Provider()),
		byID:     make(map[string]client.Dataflow, len(flows)),
		names:    make(map[string]string, len(flows)),
	}
	for _, f := range flows {
		if _, dup := c.byID[f.ID]; dup {
			continue
		}
		c.flows = append(c.flows, f)
		c.byID[f.ID] = f
	}
	return c
}

// register adds the id and name keys of every dataflow to the cache.
// A name that collides with another dataflow's id or name is skipped.
// With a parent, a name is only added when the parent resolves it to the
// same dataflow.
func (c *DataflowCatalog) register(parent *DataflowCatalog) {
	for _, f := range c.flows {
		c.entries.Register(f.ID)
	}
	for _, f := range c.flows {
		if f.Name == "" || f.Name == f.ID {
			continue
		}
		if parent != nil && parent.names[f.Name] != f.ID {
			continue
		}
		if !c.entries.Alias(f.Name, f.ID) {
			c.logger.Debug("Dataflow name not addressable", "dataflow", f.ID, "name", f.Name)
			continue
		}
		c.names[f.Name] = f.ID
	}
}

func (c *DataflowCatalog) materialize(ctx context.Context, id string) (*DatasetEntry, error) {
	start := time.Now()
	st, err := c.session.Structure(ctx, id)
	if err != nil {
		c.logger.Debug("Structure fetch failed", "dataflow", id, "error", err)
		return nil, err
	}
	entry := newDatasetEntry(c.provider, c.byID[id], st, c.session, c.opts)
	c.logger.Debug("Dataset materialized",
		"dataflow", id,
		"parameters", len(entry.params),
		"duration", time.Since(start),
	)
	return entry, nil
}

// Provider returns the provider id.
func (c *DataflowCatalog) Provider() string {
	return c.provider
}

// Keys returns dataflow ids and names in listing order: all ids first,
// followed by the names.
func (c *DataflowCatalog) Keys() []string {
	return c.entries.Keys()
}

// Len returns the number of keys.
func (c *DataflowCatalog) Len() int {
	return c.entries.Len()
}

// Contains reports whether key is a dataflow id or name.
func (c *DataflowCatalog) Contains(key string) bool {
	return c.entries.Contains(key)
}

// Dataflows returns the listed dataflows in listing order.
func (c *DataflowCatalog) Dataflows() []client.Dataflow {
	out := make([]client.Dataflow, len(c.flows))
	copy(out, c.flows)
	return out
}

// Descriptor returns the listed descriptor for a dataflow id or name
// without fetching its structure.
func (c *DataflowCatalog) Descriptor(key string) (client.Dataflow, error) {
	id, ok := c.entries.Resolve(key)
	if !ok {
		return client.Dataflow{}, fmt.Errorf("%w: dataflow %s of %s", ErrUnknownKey, key, c.provider)
	}
	return c.byID[id], nil
}

// Get returns the dataset entry for a dataflow id or name, fetching the
// dataflow's structure on first access.
func (c *DataflowCatalog) Get(ctx context.Context, key string) (*DatasetEntry, error) {
	entry, err := c.entries.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("dataflow %s of %s: %w", key, c.provider, err)
	}
	return entry, nil
}

// Materialized reports whether the entry for key has been built.
func (c *DataflowCatalog) Materialized(key string) bool {
	return c.entries.Materialized(key)
}
