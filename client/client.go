// Package client talks to remote SDMX providers.
//
// A Client hands out one Session per provider; the catalog keeps that
// session for the lifetime of the provider's dataflow catalog and issues
// every listing, structure and data request through it. The REST
// implementation speaks SDMX 2.1: SDMX-ML for structures and SDMX-CSV for
// data.
//
// All methods block until the remote call returns or ctx is done.
// Implementations MUST be goroutine-safe.
package client

import (
	"context"
	"errors"

	"github.com/hugr-lab/sdmx-go/registry"
)

var (
	// ErrRemoteMetadata indicates a dataflow listing or structure request
	// failed, or returned a message without the expected content.
	ErrRemoteMetadata = errors.New("remote metadata error")

	// ErrRemoteData indicates a data request failed.
	ErrRemoteData = errors.New("remote data error")
)

// Client creates provider sessions.
type Client interface {
	// Session returns a session bound to provider p.
	// Sessions are not shared between providers.
	Session(p registry.Provider) (Session, error)
}

// Session issues requests against a single provider.
type Session interface {
	// Provider returns the provider id this session is bound to.
	Provider() string

	// ListDataflows returns every dataflow the provider publishes.
	ListDataflows(ctx context.Context) ([]Dataflow, error)

	// Structure returns the structural metadata of one dataflow,
	// narrowed by its content constraint when the provider publishes one.
	Structure(ctx context.Context, dataflowID string) (*Structure, error)

	// Data fetches observations for a dataflow.
	Data(ctx context.Context, req DataRequest) (*Message, error)
}

// Dataflow describes one dataflow as listed by a provider.
type Dataflow struct {
	ID          string
	Name        string
	AgencyID    string
	Version     string
	StructureID string
}

// Code is one entry of a code list.
type Code struct {
	ID    string
	Label string
}

// Dimension is one axis of a dataflow's data structure.
type Dimension struct {
	ID       string
	Name     string
	Position int

	// Time is set for the time dimension.
	Time bool

	// Codes holds the enumerated representation.
	// Nil for dimensions that are not coded.
	Codes []Code
}

// Coded reports whether the dimension has an enumerated representation.
func (d Dimension) Coded() bool {
	return d.Codes != nil
}

// AttachmentLevel tells where an attribute value is attached.
type AttachmentLevel byte

// Attachment levels, named by the letters used in shaping options.
const (
	AttachObservation AttachmentLevel = 'o'
	AttachSeries      AttachmentLevel = 's'
	AttachGroup       AttachmentLevel = 'g'
	AttachDataset     AttachmentLevel = 'd'
)

// Attribute is a data structure attribute.
type Attribute struct {
	ID    string
	Name  string
	Level AttachmentLevel
}

// Structure is the structural metadata of one dataflow.
type Structure struct {
	DataflowID  string
	Name        string
	StructureID string

	// Dimensions are ordered by position.
	Dimensions []Dimension

	Attributes []Attribute

	// Constraint maps dimension ids to the codes actually present in the
	// dataflow. Nil when the provider publishes no usable constraint.
	Constraint map[string][]string
}

// DimensionIDs returns the dimension ids in positional order.
func (s *Structure) DimensionIDs() []string {
	ids := make([]string, len(s.Dimensions))
	for i, d := range s.Dimensions {
		ids[i] = d.ID
	}
	return ids
}

// TimeDimension returns the id of the time dimension, or "" if none.
func (s *Structure) TimeDimension() string {
	for _, d := range s.Dimensions {
		if d.Time {
			return d.ID
		}
	}
	return ""
}

// DataRequest selects data from one dataflow.
type DataRequest struct {
	DataflowID string

	// Dimensions are the dataflow's non-time dimension ids in key order.
	Dimensions []string

	// Key maps dimension ids to selected codes. Missing dimensions are wildcards.
	Key map[string][]string

	// Params are passed as query parameters (startPeriod, endPeriod).
	Params map[string]string
}

// Observation is one row of a data message.
type Observation struct {
	// Key maps dimension ids to codes.
	Key        map[string]string
	Period     string
	Value      string
	Attributes map[string]string
}

// Message holds the observations returned by a data request.
type Message struct {
	DataflowID   string
	Observations []Observation
}
