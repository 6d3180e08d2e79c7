// Package serialize provides catalog serialization to Arrow IPC format.
// Used by ListFlights RPC to serialize and compress catalog listings.
package serialize

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/sdmx-go/client"
	"github.com/hugr-lab/sdmx-go/registry"
)

// ProvidersSchema is the layout of a provider listing.
var ProvidersSchema = arrow.NewSchema([]arrow.Field{
	{Name: "provider_id", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "name", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "url", Type: arrow.BinaryTypes.String, Nullable: false},
}, nil)

// DataflowsSchema is the layout of a dataflow listing.
var DataflowsSchema = arrow.NewSchema([]arrow.Field{
	{Name: "provider_id", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "dataflow_id", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "name", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "agency_id", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "version", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "structure_id", Type: arrow.BinaryTypes.String, Nullable: true},
}, nil)

// SerializeProviders serializes a provider listing to Arrow IPC format.
func SerializeProviders(providers []registry.Provider, allocator memory.Allocator) ([]byte, error) {
	builder := array.NewRecordBuilder(allocator, ProvidersSchema)
	defer builder.Release()

	idBuilder := builder.Field(0).(*array.StringBuilder)
	nameBuilder := builder.Field(1).(*array.StringBuilder)
	urlBuilder := builder.Field(2).(*array.StringBuilder)

	for _, p := range providers {
		idBuilder.Append(p.ID)
		nameBuilder.Append(p.Name)
		urlBuilder.Append(p.URL)
	}

	record := builder.NewRecordBatch()
	defer record.Release()

	return writeIPC(record, allocator)
}

// SerializeDataflows serializes the dataflow listing of one provider to
// Arrow IPC format. Empty optional fields are written as nulls.
func SerializeDataflows(provider string, flows []client.Dataflow, allocator memory.Allocator) ([]byte, error) {
	builder := array.NewRecordBuilder(allocator, DataflowsSchema)
	defer builder.Release()

	providerBuilder := builder.Field(0).(*array.StringBuilder)
	idBuilder := builder.Field(1).(*array.StringBuilder)
	nameBuilder := builder.Field(2).(*array.StringBuilder)
	optional := []*array.StringBuilder{
		builder.Field(3).(*array.StringBuilder),
		builder.Field(4).(*array.StringBuilder),
		builder.Field(5).(*array.StringBuilder),
	}

	for _, f := range flows {
		providerBuilder.Append(provider)
		idBuilder.Append(f.ID)
		nameBuilder.Append(f.Name)
		for i, v := range []string{f.AgencyID, f.Version, f.StructureID} {
			if v == "" {
				optional[i].AppendNull()
				continue
			}
			optional[i].Append(v)
		}
	}

	record := builder.NewRecordBatch()
	defer record.Release()

	return writeIPC(record, allocator)
}

func writeIPC(record arrow.RecordBatch, allocator memory.Allocator) ([]byte, error) {
	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(record.Schema()), ipc.WithAllocator(allocator))
	defer writer.Close()

	if err := writer.Write(record); err != nil {
		return nil, fmt.Errorf("failed to write IPC record: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close IPC writer: %w", err)
	}

	return buf.Bytes(), nil
}
