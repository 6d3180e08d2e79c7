package client

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// SDMX-CSV 1.0 column names with fixed meaning.
const (
	ColumnDataflow = "DATAFLOW"
	ColumnTime     = "TIME_PERIOD"
	ColumnValue    = "OBS_VALUE"
)

// ParseCSV decodes an SDMX-CSV data message.
// dims lists the dataflow's dimension ids; every other column except
// DATAFLOW, the time period and the observation value is read as an attribute.
// Headers of the form "ID: Label" are accepted.
func ParseCSV(r io.Reader, dataflowID string, dims []string) (*Message, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &Message{DataflowID: dataflowID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read csv header: %v", ErrRemoteData, err)
	}

	isDim := make(map[string]bool, len(dims))
	for _, d := range dims {
		isDim[d] = true
	}

	const (
		colSkip = iota
		colDim
		colTime
		colValue
		colAttr
	)
	kinds := make([]int, len(header))
	names := make([]string, len(header))
	for i, h := range header {
		id, _, _ := strings.Cut(h, ":")
		id = strings.TrimSpace(strings.TrimPrefix(id, "\ufeff"))
		names[i] = id
		switch {
		case id == ColumnDataflow:
			kinds[i] = colSkip
		case id == ColumnTime:
			kinds[i] = colTime
		case id == ColumnValue:
			kinds[i] = colValue
		case isDim[id]:
			kinds[i] = colDim
		default:
			kinds[i] = colAttr
		}
	}

	msg := &Message{DataflowID: dataflowID}
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read csv line %d: %v", ErrRemoteData, line, err)
		}

		obs := Observation{Key: make(map[string]string, len(dims))}
		for i, v := range rec {
			if i >= len(kinds) {
				break
			}
			v = strings.TrimSpace(v)
			switch kinds[i] {
			case colDim:
				code, _, _ := strings.Cut(v, ":")
				obs.Key[names[i]] = strings.TrimSpace(code)
			case colTime:
				obs.Period = v
			case colValue:
				obs.Value = v
			case colAttr:
				if v == "" {
					continue
				}
				if obs.Attributes == nil {
					obs.Attributes = make(map[string]string)
				}
				obs.Attributes[names[i]] = v
			}
		}
		msg.Observations = append(msg.Observations, obs)
	}

	return msg, nil
}
