// Package table converts SDMX data messages into Arrow record batches.
//
// Three layouts are supported:
//   - IndexNone ("object"): long layout, one row per observation.
//   - IndexDatetime: wide layout indexed by the period start timestamp,
//     one value column per series.
//   - IndexPeriod: wide layout indexed by a date32 period column that
//     carries the frequency in its field metadata.
package table

import (
	"errors"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/sdmx-go/client"
)

// ErrShaping indicates an invalid shaping configuration or data that
// cannot be shaped as requested.
var ErrShaping = errors.New("invalid shaping")

// IndexKind selects the table layout.
type IndexKind string

// Index kinds.
const (
	IndexNone     IndexKind = "object"
	IndexDatetime IndexKind = "datetime"
	IndexPeriod   IndexKind = "period"
)

// Value dtypes.
const (
	DTypeFloat64 = "float64"
	DTypeFloat32 = "float32"
	DTypeInt64   = "int64"
	DTypeString  = "string"
)

// Column names of the long layout that do not come from the structure.
const (
	ColumnTime  = client.ColumnTime
	ColumnValue = client.ColumnValue
)

// FreqMetadataKey is the field metadata key holding the frequency of a
// period index column.
const FreqMetadataKey = "sdmx.freq"

// Shaping configures the conversion of a data message.
type Shaping struct {
	// DType is the type of value columns. Empty means float64.
	DType string

	// Attributes lists attachment levels whose attributes are included
	// in the long layout, as letters of "osgd". Empty includes none.
	Attributes string

	// Index selects the layout. Empty means IndexNone.
	Index IndexKind

	// FreqDim is the frequency dimension. Empty means auto-detect.
	FreqDim string

	// TimeDim is the time dimension. Empty means auto-detect.
	TimeDim string
}

// Validate checks the shaping options.
func (s Shaping) Validate() error {
	switch s.DType {
	case "", DTypeFloat64, DTypeFloat32, DTypeInt64, DTypeString:
	default:
		return fmt.Errorf("%w: unsupported dtype %q", ErrShaping, s.DType)
	}
	for _, r := range s.Attributes {
		if !strings.ContainsRune("osgd", r) {
			return fmt.Errorf("%w: attribute level %q not in \"osgd\"", ErrShaping, r)
		}
	}
	switch s.Index {
	case "", IndexNone, IndexDatetime, IndexPeriod:
	default:
		return fmt.Errorf("%w: unsupported index type %q", ErrShaping, s.Index)
	}
	return nil
}

// Wide reports whether the shaping produces a wide layout.
func (s Shaping) Wide() bool {
	return s.Index == IndexDatetime || s.Index == IndexPeriod
}

func (s Shaping) valueType() arrow.DataType {
	switch s.DType {
	case DTypeFloat32:
		return arrow.PrimitiveTypes.Float32
	case DTypeInt64:
		return arrow.PrimitiveTypes.Int64
	case DTypeString:
		return arrow.BinaryTypes.String
	default:
		return arrow.PrimitiveTypes.Float64
	}
}

// timeDim resolves the time dimension id.
func (s Shaping) timeDim(st *client.Structure) string {
	if s.TimeDim != "" {
		return s.TimeDim
	}
	if td := st.TimeDimension(); td != "" {
		return td
	}
	return ColumnTime
}

// freqDim resolves the frequency dimension id, or "" when the structure
// has none.
func (s Shaping) freqDim(st *client.Structure) string {
	if s.FreqDim != "" {
		return s.FreqDim
	}
	for _, d := range st.Dimensions {
		if !d.Time && strings.Contains(d.ID, "FREQ") {
			return d.ID
		}
	}
	return ""
}

// Schema returns the schema of the long layout for st.
// Wide layouts depend on the series present in the data, so Schema
// returns nil for them.
func Schema(st *client.Structure, s Shaping) (*arrow.Schema, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Wide() {
		return nil, nil
	}
	return longSchema(st, s), nil
}

func longSchema(st *client.Structure, s Shaping) *arrow.Schema {
	timeDim := s.timeDim(st)

	fields := make([]arrow.Field, 0, len(st.Dimensions)+len(st.Attributes)+2)
	for _, d := range st.Dimensions {
		if d.Time || d.ID == timeDim {
			continue
		}
		fields = append(fields, arrow.Field{Name: d.ID, Type: arrow.BinaryTypes.String, Nullable: true})
	}
	fields = append(fields,
		arrow.Field{Name: timeDim, Type: arrow.BinaryTypes.String, Nullable: true},
		arrow.Field{Name: ColumnValue, Type: s.valueType(), Nullable: true},
	)
	for _, a := range st.Attributes {
		if !strings.ContainsRune(s.Attributes, rune(a.Level)) {
			continue
		}
		fields = append(fields, arrow.Field{Name: a.ID, Type: arrow.BinaryTypes.String, Nullable: true})
	}
	return arrow.NewSchema(fields, nil)
}
