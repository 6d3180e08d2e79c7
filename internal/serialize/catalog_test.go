package serialize

import (
	"bytes"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/sdmx-go/client"
	"github.com/hugr-lab/sdmx-go/registry"
)

func readIPC(t *testing.T, data []byte) arrow.RecordBatch {
	t.Helper()

	reader, err := ipc.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to create IPC reader: %v", err)
	}
	defer reader.Release()

	if !reader.Next() {
		t.Fatalf("Expected one record, reader error: %v", reader.Err())
	}
	record := reader.RecordBatch()
	record.Retain()
	return record
}

func TestSerializeProviders(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer alloc.AssertSize(t, 0)

	providers := []registry.Provider{
		{ID: "BIS", Name: "Bank for International Settlements", URL: "https://stats.bis.org/api/v1"},
		{ID: "ECB", Name: "European Central Bank", URL: "https://data-api.ecb.europa.eu/service"},
	}

	data, err := SerializeProviders(providers, alloc)
	if err != nil {
		t.Fatalf("SerializeProviders() failed: %v", err)
	}

	record := readIPC(t, data)
	defer record.Release()

	if !record.Schema().Equal(ProvidersSchema) {
		t.Errorf("Unexpected schema: %s", record.Schema())
	}
	if record.NumRows() != 2 {
		t.Fatalf("Expected 2 rows, got %d", record.NumRows())
	}
	ids := record.Column(0).(*array.String)
	if ids.Value(0) != "BIS" || ids.Value(1) != "ECB" {
		t.Errorf("Unexpected provider ids: %v", ids)
	}
}

func TestSerializeDataflows(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer alloc.AssertSize(t, 0)

	flows := []client.Dataflow{
		{ID: "EXR", Name: "Exchange Rates", AgencyID: "ECB", Version: "1.0", StructureID: "ECB_EXR1"},
		{ID: "ICP", Name: "Inflation"},
	}

	data, err := SerializeDataflows("ECB", flows, alloc)
	if err != nil {
		t.Fatalf("SerializeDataflows() failed: %v", err)
	}

	record := readIPC(t, data)
	defer record.Release()

	if record.NumRows() != 2 || record.NumCols() != 6 {
		t.Fatalf("Expected 2x6 record, got %dx%d", record.NumRows(), record.NumCols())
	}
	provider := record.Column(0).(*array.String)
	if provider.Value(1) != "ECB" {
		t.Errorf("Expected provider ECB, got %q", provider.Value(1))
	}
	names := record.Column(2).(*array.String)
	if names.Value(0) != "Exchange Rates" {
		t.Errorf("Expected name Exchange Rates, got %q", names.Value(0))
	}
	version := record.Column(4)
	if version.IsNull(0) || !version.IsNull(1) {
		t.Error("Expected empty version to be null")
	}
}

func TestCompressCatalogRoundTrip(t *testing.T) {
	data, err := SerializeProviders([]registry.Provider{
		{ID: "ECB", Name: "European Central Bank", URL: "https://data-api.ecb.europa.eu/service"},
	}, memory.DefaultAllocator)
	if err != nil {
		t.Fatalf("SerializeProviders() failed: %v", err)
	}

	compressed, err := CompressCatalog(data)
	if err != nil {
		t.Fatalf("CompressCatalog() failed: %v", err)
	}
	restored, err := DecompressCatalog(compressed)
	if err != nil {
		t.Fatalf("DecompressCatalog() failed: %v", err)
	}
	if !bytes.Equal(restored, data) {
		t.Error("Decompressed data differs from the original")
	}

	empty, err := CompressCatalog(nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("Expected empty output for empty input, got %d bytes, %v", len(empty), err)
	}
}
