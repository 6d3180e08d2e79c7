package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"gopkg.in/yaml.v3"

	"github.com/hugr-lab/sdmx-go/client"
	"github.com/hugr-lab/sdmx-go/table"
)

// DatasetDriver is the driver name reported for dataset entries.
const DatasetDriver = "sdmx_dataset"

// DatasetEntry is the terminal catalog node for one dataflow.
//
// Entries are immutable. Bind returns a new entry carrying the overridden
// values; the receiver keeps its own.
type DatasetEntry struct {
	provider  string
	flow      client.Dataflow
	structure *client.Structure
	params    []*Parameter
	values    map[string]any

	session client.Session
	alloc   memory.Allocator
	logger  *slog.Logger
}

func newDatasetEntry(provider string, flow client.Dataflow, st *client.Structure, session client.Session, opts Options) *DatasetEntry {
	params := DeriveParameters(st, opts.Now())
	values := make(map[string]any, len(params))
	for _, p := range params {
		values[p.Name] = p.defaultValue()
	}
	return &DatasetEntry{
		provider:  provider,
		flow:      flow,
		structure: st,
		params:    params,
		values:    values,
		session:   session,
		alloc:     opts.Allocator,
		logger:    opts.Logger.With("provider", provider, "dataflow", flow.ID),
	}
}

// Name returns the dataflow id.
func (e *DatasetEntry) Name() string {
	return e.flow.ID
}

// Description returns the dataflow name.
func (e *DatasetEntry) Description() string {
	return e.flow.Name
}

// Driver returns DatasetDriver.
func (e *DatasetEntry) Driver() string {
	return DatasetDriver
}

// Dataflow returns the descriptor the entry was built from.
func (e *DatasetEntry) Dataflow() client.Dataflow {
	return e.flow
}

// Structure returns the dataflow's structural metadata.
// The returned value must not be modified.
func (e *DatasetEntry) Structure() *client.Structure {
	return e.structure
}

// Parameters returns the parameters in declaration order.
func (e *DatasetEntry) Parameters() []*Parameter {
	return slices.Clone(e.params)
}

// Parameter returns the parameter called name.
func (e *DatasetEntry) Parameter(name string) (*Parameter, error) {
	for _, p := range e.params {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: parameter %s of %s", ErrUnknownKey, name, e.flow.ID)
}

// Provider returns the id of the provider publishing the dataflow.
func (e *DatasetEntry) Provider() string {
	return e.provider
}

// Args binds every parameter to a late-bound placeholder.
func (e *DatasetEntry) Args() map[string]string {
	args := make(map[string]string, len(e.params))
	for _, p := range e.params {
		args[p.Name] = "{{ " + p.Name + " }}"
	}
	return args
}

// Metadata describes where the entry comes from.
func (e *DatasetEntry) Metadata() map[string]string {
	return map[string]string{
		"provider_id":  e.provider,
		"dataflow_id":  e.flow.ID,
		"agency_id":    e.flow.AgencyID,
		"version":      e.flow.Version,
		"structure_id": e.structure.StructureID,
	}
}

// Values returns a copy of the bound values.
func (e *DatasetEntry) Values() map[string]any {
	out := make(map[string]any, len(e.values))
	for k, v := range e.values {
		if codes, ok := v.([]string); ok {
			v = slices.Clone(codes)
		}
		out[k] = v
	}
	return out
}

// Bind validates overrides and returns a new entry with them applied on
// top of the receiver's values. Unknown parameter names return
// ErrUnknownKey; rejected values return ErrInvalidCode.
func (e *DatasetEntry) Bind(overrides map[string]any) (*DatasetEntry, error) {
	values := e.Values()

	for _, name := range slices.Sorted(maps.Keys(overrides)) {
		p, err := e.Parameter(name)
		if err != nil {
			return nil, err
		}
		v, err := p.Validate(overrides[name])
		if err != nil {
			return nil, err
		}
		// The start period is always sent; unsetting it restores the default.
		if name == ParamStartPeriod && v == "" {
			v = p.defaultValue()
		}
		values[name] = v
	}

	if _, err := BuildQuery(e.params, values); err != nil {
		return nil, err
	}

	bound := *e
	bound.values = values
	return &bound, nil
}

// Query builds the remote request for the bound values.
func (e *DatasetEntry) Query() (*Query, error) {
	return BuildQuery(e.params, e.values)
}

// ArrowSchema returns the schema Read produces, or nil when it depends on
// the data (wide layouts).
func (e *DatasetEntry) ArrowSchema() (*arrow.Schema, error) {
	q, err := e.Query()
	if err != nil {
		return nil, err
	}
	return table.Schema(e.structure, q.Shaping)
}

// Read fetches the data selected by the bound values.
// The caller owns the returned batch and must release it.
func (e *DatasetEntry) Read(ctx context.Context) (arrow.RecordBatch, error) {
	q, err := e.Query()
	if err != nil {
		return nil, err
	}

	var dims []string
	for _, d := range e.structure.Dimensions {
		if !d.Time {
			dims = append(dims, d.ID)
		}
	}

	start := time.Now()
	msg, err := e.session.Data(ctx, client.DataRequest{
		DataflowID: e.flow.ID,
		Dimensions: dims,
		Key:        q.Key,
		Params:     q.Params,
	})
	if err != nil {
		return nil, err
	}

	rec, err := table.Convert(msg, e.structure, q.Shaping, e.alloc)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("Dataset read",
		"observations", len(msg.Observations),
		"rows", rec.NumRows(),
		"index", q.Shaping.Index,
		"duration", time.Since(start),
	)
	return rec, nil
}

type entryDoc struct {
	Description string            `yaml:"description"`
	Driver      string            `yaml:"driver"`
	Args        map[string]string `yaml:"args"`
	Parameters  *yaml.Node        `yaml:"parameters"`
	Metadata    map[string]string `yaml:"metadata"`
}

type parameterDoc struct {
	Description string   `yaml:"description"`
	Type        string   `yaml:"type"`
	Allowed     []string `yaml:"allowed,omitempty"`
	Default     any      `yaml:"default"`
}

// Describe renders the entry as a YAML catalog source, with parameters in
// declaration order and their current bound values as defaults.
func (e *DatasetEntry) Describe() ([]byte, error) {
	params := yaml.Node{Kind: yaml.MappingNode}
	for _, p := range e.params {
		doc := parameterDoc{
			Description: p.Description,
			Type:        p.Kind.String(),
			Default:     e.values[p.Name],
		}
		for _, c := range p.Allowed() {
			doc.Allowed = append(doc.Allowed, c.ID)
		}

		var value yaml.Node
		if err := value.Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to encode parameter %s: %w", p.Name, err)
		}
		params.Content = append(params.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: p.Name},
			&value,
		)
	}

	out := map[string]entryDoc{
		e.flow.ID: {
			Description: e.flow.Name,
			Driver:      DatasetDriver,
			Args:        e.Args(),
			Parameters:  &params,
			Metadata:    e.Metadata(),
		},
	}
	data, err := yaml.Marshal(map[string]any{"sources": out})
	if err != nil {
		return nil, fmt.Errorf("failed to encode entry %s: %w", e.flow.ID, err)
	}
	return data, nil
}
