package flight

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/sdmx-go/internal/msgpack"
	"github.com/hugr-lab/sdmx-go/internal/serialize"
)

func listFlights(t *testing.T, env *testEnv, expression string) (*flight.FlightInfo, error) {
	t.Helper()

	stream, err := env.client.ListFlights(context.Background(), &flight.Criteria{Expression: []byte(expression)})
	if err != nil {
		t.Fatalf("ListFlights failed: %v", err)
	}
	return stream.Recv()
}

func listingRows(t *testing.T, info *flight.FlightInfo) int64 {
	t.Helper()

	data, err := serialize.DecompressCatalog(info.GetEndpoint()[0].GetTicket().GetTicket())
	if err != nil {
		t.Fatalf("failed to decompress listing: %v", err)
	}
	reader, err := ipc.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to read listing: %v", err)
	}
	defer reader.Release()

	var rows int64
	for reader.Next() {
		rows += reader.RecordBatch().NumRows()
	}
	return rows
}

func TestListFlightsProviders(t *testing.T) {
	env := setupTestEnv(t)

	info, err := listFlights(t, env, "")
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if rows := listingRows(t, info); rows != 2 {
		t.Errorf("Expected 2 available providers, got %d", rows)
	}
	if env.fake.opened() != 0 {
		t.Errorf("Listing providers must not open sessions, got %d", env.fake.opened())
	}
}

func TestListFlightsDataflows(t *testing.T) {
	env := setupTestEnv(t)

	info, err := listFlights(t, env, "ECB")
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if rows := listingRows(t, info); rows != 2 {
		t.Errorf("Expected 2 dataflows, got %d", rows)
	}
	if got := info.GetFlightDescriptor().GetPath(); len(got) != 1 || got[0] != "ECB" {
		t.Errorf("Unexpected descriptor path %v", got)
	}

	if _, err := listFlights(t, env, "OECD_JSON"); status.Code(err) != codes.NotFound {
		t.Errorf("Expected NotFound for excluded provider, got %v", err)
	}
}

func TestGetFlightInfoPath(t *testing.T) {
	env := setupTestEnv(t)

	info, err := env.client.GetFlightInfo(context.Background(), &flight.FlightDescriptor{
		Type: flight.DescriptorPATH,
		Path: []string{"ECB", "Exchange Rates"},
	})
	if err != nil {
		t.Fatalf("GetFlightInfo failed: %v", err)
	}

	schema, err := flight.DeserializeSchema(info.GetSchema(), memory.DefaultAllocator)
	if err != nil {
		t.Fatalf("failed to deserialize schema: %v", err)
	}
	var names []string
	for _, f := range schema.Fields() {
		names = append(names, f.Name)
	}
	want := []string{"FREQ", "CURRENCY", "TIME_PERIOD", "OBS_VALUE"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Expected fields %v, got %v", want, names)
	}

	ticket, err := DecodeTicket(info.GetEndpoint()[0].GetTicket().GetTicket())
	if err != nil {
		t.Fatalf("DecodeTicket failed: %v", err)
	}
	if ticket.Dataflow != "EXR" {
		t.Errorf("Expected ticket to carry the dataflow id, got %q", ticket.Dataflow)
	}
	if ticket.Params["startPeriod"] != "2023" {
		t.Errorf("Expected default start period in ticket, got %v", ticket.Params["startPeriod"])
	}
}

func commandDescriptor(t *testing.T, provider, dataflow string, params map[string]any) *flight.FlightDescriptor {
	t.Helper()

	cmd, err := msgpack.Encode(TicketData{Provider: provider, Dataflow: dataflow, Params: params})
	if err != nil {
		t.Fatalf("failed to encode command: %v", err)
	}
	return &flight.FlightDescriptor{Type: flight.DescriptorCMD, Cmd: cmd}
}

func TestGetFlightInfoErrors(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name string
		desc *flight.FlightDescriptor
		want codes.Code
	}{
		{"short path", &flight.FlightDescriptor{Type: flight.DescriptorPATH, Path: []string{"ECB"}}, codes.InvalidArgument},
		{"bad command", &flight.FlightDescriptor{Type: flight.DescriptorCMD, Cmd: []byte{0xc1}}, codes.InvalidArgument},
		{"unknown provider", commandDescriptor(t, "NOPE", "EXR", nil), codes.NotFound},
		{"unknown dataflow", commandDescriptor(t, "ECB", "NOPE", nil), codes.NotFound},
		{"structure failure", commandDescriptor(t, "ECB", "ICP", nil), codes.Unavailable},
		{"invalid code", commandDescriptor(t, "ECB", "EXR", map[string]any{"CURRENCY": "USD+XX"}), codes.InvalidArgument},
		{"unknown parameter", commandDescriptor(t, "ECB", "EXR", map[string]any{"COLOR": "red"}), codes.NotFound},
		{"invalid dtype", commandDescriptor(t, "ECB", "EXR", map[string]any{"dtype": "decimal"}), codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.client.GetFlightInfo(context.Background(), tt.desc)
			if status.Code(err) != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestGetFlightInfoWideLayoutOmitsSchema(t *testing.T) {
	env := setupTestEnv(t)

	info, err := env.client.GetFlightInfo(context.Background(),
		commandDescriptor(t, "ECB", "EXR", map[string]any{"index_type": "datetime"}))
	if err != nil {
		t.Fatalf("GetFlightInfo failed: %v", err)
	}
	if len(info.GetSchema()) != 0 {
		t.Error("Expected no schema for a wide layout")
	}
}

func TestDoGet(t *testing.T) {
	env := setupTestEnv(t)
	ctx := metadata.AppendToOutgoingContext(context.Background(), HeaderTraceID, "trace-1")

	info, err := env.client.GetFlightInfo(ctx,
		commandDescriptor(t, "ECB", "EXR", map[string]any{"CURRENCY": "US dollar", "FREQ": []string{"A"}}))
	if err != nil {
		t.Fatalf("GetFlightInfo failed: %v", err)
	}

	stream, err := env.client.DoGet(ctx, info.GetEndpoint()[0].GetTicket())
	if err != nil {
		t.Fatalf("DoGet failed: %v", err)
	}
	reader, err := flight.NewRecordReader(stream)
	if err != nil {
		t.Fatalf("failed to create record reader: %v", err)
	}
	defer reader.Release()

	var rows int64
	for reader.Next() {
		rec := reader.RecordBatch()
		rows += rec.NumRows()
		values := rec.Column(3).(*array.Float64)
		if values.Value(0) != 1.0530 {
			t.Errorf("Unexpected first value %v", values.Value(0))
		}
	}
	if rows != 2 {
		t.Errorf("Expected 2 rows, got %d", rows)
	}

	req := env.fake.session("ECB").lastRequest()
	wantKey := map[string][]string{"CURRENCY": {"USD"}, "FREQ": {"A"}}
	if !reflect.DeepEqual(req.Key, wantKey) {
		t.Errorf("Expected key %v, got %v", wantKey, req.Key)
	}
	if req.Params["startPeriod"] != "2023" {
		t.Errorf("Expected startPeriod 2023, got %v", req.Params)
	}
}

func TestDoGetInvalidTicket(t *testing.T) {
	env := setupTestEnv(t)

	stream, err := env.client.DoGet(context.Background(), &flight.Ticket{Ticket: []byte("nope")})
	if err != nil {
		t.Fatalf("DoGet failed: %v", err)
	}
	if _, err := stream.Recv(); status.Code(err) != codes.InvalidArgument {
		t.Errorf("Expected InvalidArgument, got %v", err)
	}
}

func doAction(t *testing.T, env *testEnv, actionType string, body any) ([]byte, error) {
	t.Helper()

	var data []byte
	if body != nil {
		var err error
		if data, err = msgpack.Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	stream, err := env.client.DoAction(context.Background(), &flight.Action{Type: actionType, Body: data})
	if err != nil {
		t.Fatalf("DoAction failed: %v", err)
	}
	result, err := stream.Recv()
	if err != nil {
		return nil, err
	}
	return result.GetBody(), nil
}

func TestDoActionListProviders(t *testing.T) {
	env := setupTestEnv(t)

	body, err := doAction(t, env, ActionListProviders, nil)
	if err != nil {
		t.Fatalf("list_providers failed: %v", err)
	}
	var resp struct {
		Providers []ProviderInfo `msgpack:"providers"`
	}
	if err := msgpack.Decode(body, &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Providers) != 2 || resp.Providers[0].ID != "BIS" || resp.Providers[1].ID != "ECB" {
		t.Errorf("Unexpected providers %+v", resp.Providers)
	}
}

func TestDoActionListDataflowsAndSearch(t *testing.T) {
	env := setupTestEnv(t)

	body, err := doAction(t, env, ActionListDataflows, map[string]string{"provider": "ECB"})
	if err != nil {
		t.Fatalf("list_dataflows failed: %v", err)
	}
	var all DataflowList
	if err := msgpack.Decode(body, &all); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	wantKeys := []string{"EXR", "ICP", "Exchange Rates", "Inflation"}
	if !reflect.DeepEqual(all.Keys, wantKeys) {
		t.Errorf("Expected keys %v, got %v", wantKeys, all.Keys)
	}

	body, err = doAction(t, env, ActionSearch, map[string]string{"provider": "ECB", "text": "exchange"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	var found DataflowList
	if err := msgpack.Decode(body, &found); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(found.Dataflows) != 1 || found.Dataflows[0].ID != "EXR" {
		t.Errorf("Unexpected search result %+v", found)
	}

	if _, err := doAction(t, env, ActionSearch, map[string]string{"provider": "NOPE"}); status.Code(err) != codes.NotFound {
		t.Errorf("Expected NotFound, got %v", err)
	}
}

func TestDoActionParameters(t *testing.T) {
	env := setupTestEnv(t)

	body, err := doAction(t, env, ActionParameters, TicketData{
		Provider: "ECB",
		Dataflow: "EXR",
		Params:   map[string]any{"CURRENCY": "USD+JPY"},
	})
	if err != nil {
		t.Fatalf("parameters failed: %v", err)
	}
	var resp struct {
		Parameters []ParameterInfo `msgpack:"parameters"`
	}
	if err := msgpack.Decode(body, &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Parameters) != 9 {
		t.Fatalf("Expected 9 parameters, got %d", len(resp.Parameters))
	}
	currency := resp.Parameters[1]
	if currency.Name != "CURRENCY" || currency.Type != "list[str]" {
		t.Errorf("Unexpected parameter %+v", currency)
	}
	if !reflect.DeepEqual(currency.Allowed, []string{"*", "USD", "JPY"}) {
		t.Errorf("Unexpected allowed codes %v", currency.Allowed)
	}
	if v, ok := currency.Value.([]any); !ok || len(v) != 2 {
		t.Errorf("Expected bound value [USD JPY], got %#v", currency.Value)
	}
}

func TestDoActionDescribe(t *testing.T) {
	env := setupTestEnv(t)

	body, err := doAction(t, env, ActionDescribe, TicketData{Provider: "ECB", Dataflow: "Exchange Rates"})
	if err != nil {
		t.Fatalf("describe failed: %v", err)
	}
	doc := string(body)
	for _, want := range []string{"sources:", "EXR:", "driver: sdmx_dataset", "{{ CURRENCY }}"} {
		if !strings.Contains(doc, want) {
			t.Errorf("Expected %q in describe output:\n%s", want, doc)
		}
	}
}

func TestDoActionUnknown(t *testing.T) {
	env := setupTestEnv(t)

	if _, err := doAction(t, env, "create_transaction", nil); status.Code(err) != codes.Unimplemented {
		t.Errorf("Expected Unimplemented, got %v", err)
	}
	if _, err := doAction(t, env, ActionListDataflows, nil); status.Code(err) != codes.InvalidArgument {
		t.Errorf("Expected InvalidArgument for missing body, got %v", err)
	}
}
