package catalog

import (
	"strconv"
	"strings"
	"time"

	"github.com/hugr-lab/sdmx-go/client"
	"github.com/hugr-lab/sdmx-go/table"
)

// Names of the auxiliary parameters appended after the dimension parameters.
const (
	ParamStartPeriod = "startPeriod"
	ParamEndPeriod   = "endPeriod"
	ParamDType       = "dtype"
	ParamAttributes  = "attributes"
	ParamIndexType   = "index_type"
	ParamFreqDim     = "freq_dim"
	ParamTimeDim     = "time_dim"
)

// DeriveParameters builds the ordered parameter list of a dataset from its
// structure: one multi-code parameter per coded dimension, followed by the
// auxiliary time range and shaping parameters.
//
// A coded dimension named in the structure's constraint allows only the
// codes present in both the constraint and its code list. Dimensions
// without an enumerated representation produce no parameter.
func DeriveParameters(st *client.Structure, now time.Time) []*Parameter {
	params := make([]*Parameter, 0, len(st.Dimensions)+7)
	var dimCodes, codedDims []client.Code

	freqDefault := Sentinel
	timeDefault := Sentinel

	for _, d := range st.Dimensions {
		dimCodes = append(dimCodes, client.Code{ID: d.ID, Label: d.Name})
		if timeDefault == Sentinel && strings.Contains(d.ID, "TIME") {
			timeDefault = d.ID
		}
		if !d.Coded() {
			continue
		}

		codes := d.Codes
		if allowed, ok := st.Constraint[d.ID]; ok {
			codes = narrow(d.Codes, allowed)
		}
		description := d.Name
		if description == "" {
			description = d.ID
		}
		params = append(params, NewCodesParameter(d.ID, description, codes))
		codedDims = append(codedDims, client.Code{ID: d.ID, Label: d.Name})

		if freqDefault == Sentinel && strings.Contains(d.ID, "FREQ") {
			freqDefault = d.ID
		}
	}

	indexKinds := []client.Code{
		{ID: string(table.IndexNone), Label: "long table, one row per observation"},
		{ID: string(table.IndexDatetime), Label: "wide table indexed by period start"},
		{ID: string(table.IndexPeriod), Label: "wide table indexed by period"},
	}

	params = append(params,
		NewStringParameter(ParamStartPeriod, "start of the time range", strconv.Itoa(now.Year()-1)),
		NewStringParameter(ParamEndPeriod, "end of the time range, open if empty", ""),
		NewStringParameter(ParamDType, "type of the value columns: float64, float32, int64 or string", ""),
		NewStringParameter(ParamAttributes, "attachment levels of included attributes, a subset of \"osgd\"", ""),
		NewCodeParameter(ParamIndexType, "layout of the result", indexKinds, string(table.IndexNone)),
		NewCodeParameter(ParamFreqDim, "frequency dimension for wide layouts", append([]client.Code{{ID: Sentinel}}, codedDims...), freqDefault),
		NewCodeParameter(ParamTimeDim, "time dimension for the period layout", append([]client.Code{{ID: Sentinel}}, dimCodes...), timeDefault),
	)
	return params
}

// narrow keeps the codes listed in allowed, in code list order.
func narrow(codes []client.Code, allowed []string) []client.Code {
	keep := make(map[string]struct{}, len(allowed))
	for _, id := range allowed {
		keep[id] = struct{}{}
	}
	out := make([]client.Code, 0, len(allowed))
	for _, c := range codes {
		if _, ok := keep[c.ID]; ok {
			out = append(out, c)
		}
	}
	return out
}
