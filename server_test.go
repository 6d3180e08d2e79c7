package sdmx

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/sdmx-go/auth"
	"github.com/hugr-lab/sdmx-go/client"
	"github.com/hugr-lab/sdmx-go/registry"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type nopClient struct {
	sessions int
}

func (c *nopClient) Session(p registry.Provider) (client.Session, error) {
	c.sessions++
	return nil, errors.New("not connected")
}

func TestOpen(t *testing.T) {
	c := &nopClient{}
	reg, _ := registry.New(
		registry.Provider{ID: "ECB", URL: "https://data-api.ecb.europa.eu/service"},
		registry.Provider{ID: "OECD_JSON", Excluded: true},
	)

	sources, err := Open(Config{Registry: reg, Client: c, Logger: discardLogger})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if keys := sources.Keys(); len(keys) != 1 || keys[0] != "ECB" {
		t.Errorf("Expected [ECB], got %v", keys)
	}
	if c.sessions != 0 {
		t.Errorf("Open must not open sessions, got %d", c.sessions)
	}

	if _, err := sources.Get(context.Background(), "ECB"); err == nil {
		t.Error("Expected session error to propagate")
	}
}

func TestOpenDefaultRegistry(t *testing.T) {
	sources, err := Open(Config{Client: &nopClient{}, Logger: discardLogger})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if !sources.Contains("ECB") {
		t.Errorf("Expected default registry to contain ECB, got %v", sources.Keys())
	}
}

func TestInvalidConfig(t *testing.T) {
	empty, _ := registry.New(registry.Provider{ID: "X", Excluded: true})

	tests := []struct {
		name   string
		config Config
	}{
		{"negative message size", Config{MaxMessageSize: -1}},
		{"no available providers", Config{Registry: empty}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := NewServer(grpc.NewServer(), tt.config); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
			if _, err := Open(tt.config); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig from Open, got %v", err)
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	level := slog.LevelDebug
	config := Config{
		Client:         &nopClient{},
		LogLevel:       &level,
		MaxMessageSize: 32 << 20,
		Address:        "localhost:50051",
	}

	opts := ServerOptions(config)
	if len(opts) != 4 {
		t.Errorf("Expected interceptors and size limits, got %d options", len(opts))
	}

	grpcServer := grpc.NewServer(opts...)
	defer grpcServer.Stop()
	if err := NewServer(grpcServer, config); err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}
	if _, ok := grpcServer.GetServiceInfo()["arrow.flight.protocol.FlightService"]; !ok {
		t.Error("Expected Flight service to be registered")
	}
}

func TestServerAuth(t *testing.T) {
	config := Config{
		Client: &nopClient{},
		Logger: discardLogger,
		Auth:   auth.StaticTokens(map[string]string{"secret": "svc"}),
	}

	grpcServer := grpc.NewServer(ServerOptions(config)...)
	if err := NewServer(grpcServer, config); err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}
	lis, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatal(err)
	}
	go grpcServer.Serve(lis)
	t.Cleanup(grpcServer.Stop)

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	c := flight.NewFlightServiceClient(conn)

	listProviders := func(ctx context.Context) error {
		stream, err := c.ListFlights(ctx, &flight.Criteria{})
		if err != nil {
			return err
		}
		for {
			if _, err := stream.Recv(); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
		}
	}

	if err := listProviders(context.Background()); status.Code(err) != codes.Unauthenticated {
		t.Errorf("Expected Unauthenticated without token, got %v", err)
	}

	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer secret")
	if err := listProviders(ctx); err != nil {
		t.Errorf("Expected success with token, got %v", err)
	}
}
