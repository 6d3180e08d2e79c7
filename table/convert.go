package table

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/sdmx-go/client"
)

// Convert builds a record batch from msg, laid out according to s.
// st must be the structure of the dataflow msg was fetched from.
// The caller owns the returned batch and must release it.
func Convert(msg *client.Message, st *client.Structure, s Shaping, alloc memory.Allocator) (arrow.RecordBatch, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if alloc == nil {
		alloc = memory.DefaultAllocator
	}
	if s.Wide() {
		return convertWide(msg, st, s, alloc)
	}
	return convertLong(msg, st, s, alloc)
}

func convertLong(msg *client.Message, st *client.Structure, s Shaping, alloc memory.Allocator) (arrow.RecordBatch, error) {
	schema := longSchema(st, s)
	timeDim := s.timeDim(st)

	builder := array.NewRecordBuilder(alloc, schema)
	defer builder.Release()

	for n, obs := range msg.Observations {
		for i, f := range schema.Fields() {
			var raw string
			switch f.Name {
			case timeDim:
				raw = obs.Period
			case ColumnValue:
				raw = obs.Value
			default:
				if v, ok := obs.Key[f.Name]; ok {
					raw = v
				} else {
					raw = obs.Attributes[f.Name]
				}
			}
			if err := appendValue(builder.Field(i), raw); err != nil {
				return nil, fmt.Errorf("observation %d, column %s: %w", n, f.Name, err)
			}
		}
	}

	return builder.NewRecordBatch(), nil
}

func convertWide(msg *client.Message, st *client.Structure, s Shaping, alloc memory.Allocator) (arrow.RecordBatch, error) {
	timeDim := s.timeDim(st)
	freqDim := s.freqDim(st)

	var seriesDims []string
	for _, d := range st.Dimensions {
		if d.Time || d.ID == timeDim || d.ID == freqDim {
			continue
		}
		seriesDims = append(seriesDims, d.ID)
	}

	times := make(map[int64]time.Time)
	series := make(map[string]map[int64]string)
	freqs := make(map[string]struct{})

	for _, obs := range msg.Observations {
		start, inferred, err := ParsePeriod(obs.Period)
		if err != nil {
			return nil, err
		}
		freq := inferred
		if v := obs.Key[freqDim]; freqDim != "" && v != "" {
			freq = v
		}
		freqs[freq] = struct{}{}

		name := seriesName(obs, seriesDims)
		cells, ok := series[name]
		if !ok {
			cells = make(map[int64]string)
			series[name] = cells
		}
		ts := start.Unix()
		if _, dup := cells[ts]; dup {
			return nil, fmt.Errorf("%w: duplicate observation for series %s at %s", ErrShaping, name, obs.Period)
		}
		cells[ts] = obs.Value
		times[ts] = start
	}

	if len(freqs) > 1 {
		return nil, fmt.Errorf("%w: %s index needs a single frequency, data has %s",
			ErrShaping, s.Index, strings.Join(sortedSet(freqs), ","))
	}

	var freq string
	for f := range freqs {
		freq = f
	}

	index := arrow.Field{Name: timeDim, Type: arrow.FixedWidthTypes.Timestamp_s}
	if s.Index == IndexPeriod {
		index.Type = arrow.FixedWidthTypes.Date32
		if freq != "" {
			index.Metadata = arrow.NewMetadata([]string{FreqMetadataKey}, []string{freq})
		}
	}

	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]arrow.Field, 0, len(names)+1)
	fields = append(fields, index)
	for _, name := range names {
		fields = append(fields, arrow.Field{Name: name, Type: s.valueType(), Nullable: true})
	}
	schema := arrow.NewSchema(fields, nil)

	stamps := make([]int64, 0, len(times))
	for ts := range times {
		stamps = append(stamps, ts)
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i] < stamps[j] })

	builder := array.NewRecordBuilder(alloc, schema)
	defer builder.Release()

	for _, ts := range stamps {
		switch b := builder.Field(0).(type) {
		case *array.TimestampBuilder:
			b.Append(arrow.Timestamp(ts))
		case *array.Date32Builder:
			b.Append(arrow.Date32FromTime(times[ts]))
		}
		for i, name := range names {
			raw, ok := series[name][ts]
			if !ok {
				builder.Field(i + 1).AppendNull()
				continue
			}
			if err := appendValue(builder.Field(i+1), raw); err != nil {
				return nil, fmt.Errorf("series %s at %s: %w", name, times[ts].Format(time.DateOnly), err)
			}
		}
	}

	return builder.NewRecordBatch(), nil
}

// seriesName joins the codes of dims with ".". Data without series
// dimensions is a single OBS_VALUE column.
func seriesName(obs client.Observation, dims []string) string {
	if len(dims) == 0 {
		return ColumnValue
	}
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = obs.Key[d]
	}
	return strings.Join(parts, ".")
}

// appendValue appends raw to b, converting to the builder's type.
// An empty string is appended as null.
func appendValue(b array.Builder, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		b.AppendNull()
		return nil
	}

	switch b := b.(type) {
	case *array.StringBuilder:
		b.Append(raw)
	case *array.Float64Builder:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%w: %q is not a float64", ErrShaping, raw)
		}
		b.Append(v)
	case *array.Float32Builder:
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return fmt.Errorf("%w: %q is not a float32", ErrShaping, raw)
		}
		b.Append(float32(v))
	case *array.Int64Builder:
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			b.Append(v)
			return nil
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%w: %q is not an int64", ErrShaping, raw)
		}
		if math.IsNaN(f) {
			b.AppendNull()
			return nil
		}
		if f != math.Trunc(f) {
			return fmt.Errorf("%w: %q is not an int64", ErrShaping, raw)
		}
		b.Append(int64(f))
	default:
		return fmt.Errorf("%w: unsupported column type %s", ErrShaping, b.Type())
	}
	return nil
}

func sortedSet(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
