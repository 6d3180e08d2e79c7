// Package sdmx serves a lazily browsed catalog of SDMX statistical data
// over Apache Arrow Flight, compatible with the DuckDB Airport extension.
//
// The catalog is a three level tree:
//
//   - providers, enumerated from a registry without any remote call;
//   - dataflows of a provider, listed with one remote call the first time
//     the provider is opened and addressable by id or by name;
//   - datasets, whose selectable parameters are derived from the
//     dataflow's structure the first time it is opened.
//
// Each level is materialized at most once, including under concurrent
// access. Binding parameter values produces a new dataset entry; reading a
// bound entry builds the SDMX data query, fetches the observations and
// converts them to an Arrow record batch.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "log"
//	    "net"
//
//	    "google.golang.org/grpc"
//
//	    "github.com/hugr-lab/sdmx-go"
//	)
//
//	func main() {
//	    config := sdmx.Config{Address: "localhost:50051"}
//	    grpcServer := grpc.NewServer(sdmx.ServerOptions(config)...)
//	    if err := sdmx.NewServer(grpcServer, config); err != nil {
//	        log.Fatal(err)
//	    }
//	    lis, _ := net.Listen("tcp", ":50051")
//	    grpcServer.Serve(lis)
//	}
//
// # Library Use
//
// Open returns the root of the tree without starting a server:
//
//	sources, _ := sdmx.Open(sdmx.Config{})
//	flows, _ := sources.Get(ctx, "ECB")
//	exr, _ := flows.Get(ctx, "Exchange Rates")
//	bound, _ := exr.Bind(map[string]any{"CURRENCY": "USD+JPY", "FREQ": "M"})
//	rec, _ := bound.Read(ctx)
//	defer rec.Release()
//
// # Flight Mapping
//
//   - ListFlights: empty criteria lists providers, a provider id lists its
//     dataflows. Payloads are Arrow IPC compressed with ZStandard.
//   - GetFlightInfo: a PATH [provider, dataflow] or a msgpack CMD
//     {provider, dataflow, params} binds parameters and returns a ticket.
//   - DoGet: reads the ticket's dataset and streams the record batch.
//   - DoAction: list_providers, list_dataflows, search, parameters and
//     describe.
//
// # Server Lifecycle
//
// The package registers Flight service handlers on a user-provided
// grpc.Server but does NOT manage server lifecycle (start/stop/listen).
//
// # Memory Management
//
// Arrow uses manual reference counting. Callers MUST call Release() on
// record batches returned by DatasetEntry.Read.
package sdmx
