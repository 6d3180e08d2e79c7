package flight

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/hugr-lab/sdmx-go/catalog"
	"github.com/hugr-lab/sdmx-go/client"
	"github.com/hugr-lab/sdmx-go/registry"
)

// fakeSession serves one dataflow with a fixed structure and message.
type fakeSession struct {
	provider string

	mu       sync.Mutex
	requests []client.DataRequest
}

func (s *fakeSession) Provider() string { return s.provider }

func (s *fakeSession) ListDataflows(ctx context.Context) ([]client.Dataflow, error) {
	return []client.Dataflow{
		{ID: "EXR", Name: "Exchange Rates", AgencyID: "ECB", Version: "1.0", StructureID: "ECB_EXR1"},
		{ID: "ICP", Name: "Inflation", AgencyID: "ECB", Version: "1.0", StructureID: "ECB_ICP1"},
	}, nil
}

func (s *fakeSession) Structure(ctx context.Context, id string) (*client.Structure, error) {
	if id != "EXR" {
		return nil, client.ErrRemoteMetadata
	}
	return &client.Structure{
		DataflowID:  "EXR",
		StructureID: "ECB_EXR1",
		Dimensions: []client.Dimension{
			{ID: "FREQ", Name: "Frequency", Position: 1, Codes: []client.Code{{ID: "A", Label: "Annual"}, {ID: "M", Label: "Monthly"}}},
			{ID: "CURRENCY", Name: "Currency", Position: 2, Codes: []client.Code{{ID: "USD", Label: "US dollar"}, {ID: "JPY", Label: "Japanese yen"}}},
			{ID: "TIME_PERIOD", Name: "Time period", Position: 3, Time: true},
		},
	}, nil
}

func (s *fakeSession) Data(ctx context.Context, req client.DataRequest) (*client.Message, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return &client.Message{
		DataflowID: "EXR",
		Observations: []client.Observation{
			{Key: map[string]string{"FREQ": "A", "CURRENCY": "USD"}, Period: "2022", Value: "1.0530"},
			{Key: map[string]string{"FREQ": "A", "CURRENCY": "USD"}, Period: "2023", Value: "1.0813"},
		},
	}, nil
}

func (s *fakeSession) lastRequest() client.DataRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

type fakeClient struct {
	mu       sync.Mutex
	sessions map[string]*fakeSession
}

func (c *fakeClient) Session(p registry.Provider) (client.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessions == nil {
		c.sessions = make(map[string]*fakeSession)
	}
	s := &fakeSession{provider: p.ID}
	c.sessions[p.ID] = s
	return s, nil
}

func (c *fakeClient) session(id string) *fakeSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[id]
}

func (c *fakeClient) opened() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// testEnv runs a Flight server over a fake provider client.
type testEnv struct {
	server   *grpc.Server
	client   flight.FlightServiceClient
	conn     *grpc.ClientConn
	listener net.Listener
	fake     *fakeClient
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	reg, err := registry.New(
		registry.Provider{ID: "ECB", Name: "European Central Bank", URL: "https://data-api.ecb.europa.eu/service"},
		registry.Provider{ID: "BIS", Name: "Bank for International Settlements", URL: "https://stats.bis.org/api/v1"},
		registry.Provider{ID: "OECD_JSON", Excluded: true},
	)
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}

	fake := &fakeClient{}
	sources := catalog.NewSourceCatalog(reg, fake, catalog.Options{
		Logger: discardLogger,
		Now:    func() time.Time { return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) },
	})

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(discardLogger)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor(discardLogger)),
	)
	RegisterFlightServer(server, NewServer(sources, memory.NewGoAllocator(), discardLogger, ""))

	listener, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	go server.Serve(listener)

	conn, err := grpc.NewClient(listener.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		listener.Close()
		server.Stop()
		t.Fatalf("failed to create client: %v", err)
	}

	env := &testEnv{
		server:   server,
		client:   flight.NewFlightServiceClient(conn),
		conn:     conn,
		listener: listener,
		fake:     fake,
	}
	t.Cleanup(env.cleanup)
	return env
}

func (e *testEnv) cleanup() {
	e.conn.Close()
	e.server.Stop()
	e.listener.Close()
}
