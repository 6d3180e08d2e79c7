package catalog

import (
	"fmt"

	"github.com/hugr-lab/sdmx-go/table"
)

// Query is a validated request ready for the remote data call.
type Query struct {
	// Key maps dimension ids to selected codes. Wildcard dimensions are
	// omitted.
	Key map[string][]string

	// Params are the time range request parameters.
	Params map[string]string

	// Shaping configures the conversion of the response.
	Shaping table.Shaping
}

// BuildQuery turns bound values of params into a Query. Values must have
// been validated by the parameters. BuildQuery performs no I/O.
//
// The end period is dropped when it sorts before the start period, which
// leaves the range open towards the latest available data.
func BuildQuery(params []*Parameter, values map[string]any) (*Query, error) {
	q := &Query{
		Key:    make(map[string][]string),
		Params: make(map[string]string),
	}

	for _, p := range params {
		if p.Kind != KindCodes {
			continue
		}
		codes, ok := values[p.Name].([]string)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not bound to codes", ErrInvalidCode, p.Name)
		}
		if len(codes) == 0 || (len(codes) == 1 && codes[0] == Sentinel) {
			continue
		}
		q.Key[p.Name] = codes
	}

	str := func(name string) string {
		s, _ := values[name].(string)
		return s
	}
	dim := func(name string) string {
		if s := str(name); s != Sentinel {
			return s
		}
		return ""
	}

	start, end := str(ParamStartPeriod), str(ParamEndPeriod)
	if start == "" {
		return nil, fmt.Errorf("%w: %s is required", ErrInvalidCode, ParamStartPeriod)
	}
	q.Params[ParamStartPeriod] = start
	if end != "" && end >= start {
		q.Params[ParamEndPeriod] = end
	}

	q.Shaping = table.Shaping{
		DType:      str(ParamDType),
		Attributes: str(ParamAttributes),
		Index:      table.IndexKind(str(ParamIndexType)),
	}
	switch q.Shaping.Index {
	case table.IndexDatetime:
		q.Shaping.FreqDim = dim(ParamFreqDim)
	case table.IndexPeriod:
		q.Shaping.FreqDim = dim(ParamFreqDim)
		q.Shaping.TimeDim = dim(ParamTimeDim)
	}
	if err := q.Shaping.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}
