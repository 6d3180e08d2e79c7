package flight

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/sdmx-go/catalog"
	"github.com/hugr-lab/sdmx-go/internal/msgpack"
)

// Action types served by DoAction.
const (
	ActionListProviders = "list_providers"
	ActionListDataflows = "list_dataflows"
	ActionSearch        = "search"
	ActionParameters    = "parameters"
	ActionDescribe      = "describe"
)

// ProviderInfo is one provider in a list_providers response.
type ProviderInfo struct {
	ID   string `msgpack:"id"`
	Name string `msgpack:"name"`
	URL  string `msgpack:"url"`
}

// DataflowInfo is one dataflow in a list_dataflows or search response.
type DataflowInfo struct {
	ID          string `msgpack:"id"`
	Name        string `msgpack:"name"`
	AgencyID    string `msgpack:"agency_id,omitempty"`
	Version     string `msgpack:"version,omitempty"`
	StructureID string `msgpack:"structure_id,omitempty"`
}

// DataflowList is the list_dataflows and search response.
// Keys holds every lookup key (ids and names) in catalog order.
type DataflowList struct {
	Provider  string         `msgpack:"provider"`
	Keys      []string       `msgpack:"keys"`
	Dataflows []DataflowInfo `msgpack:"dataflows"`
}

// ParameterInfo describes one parameter in a parameters response.
// Value is the currently bound value.
type ParameterInfo struct {
	Name        string   `msgpack:"name"`
	Description string   `msgpack:"description"`
	Type        string   `msgpack:"type"`
	Allowed     []string `msgpack:"allowed,omitempty"`
	Value       any      `msgpack:"value"`
}

// DoAction executes catalog browsing actions.
// Request and response bodies are MessagePack except for describe,
// which returns a YAML document.
func (s *Server) DoAction(action *flight.Action, stream flight.FlightService_DoActionServer) error {
	ctx := EnrichContextMetadata(stream.Context())

	s.logger.Debug("DoAction called",
		append(logAttrs(ctx),
			"type", action.GetType(),
			"body_size", len(action.GetBody()),
		)...,
	)

	var (
		body []byte
		err  error
	)
	switch action.GetType() {
	case ActionListProviders:
		body, err = s.handleListProviders()
	case ActionListDataflows:
		body, err = s.handleListDataflows(ctx, action)
	case ActionSearch:
		body, err = s.handleSearch(ctx, action)
	case ActionParameters:
		body, err = s.handleParameters(ctx, action)
	case ActionDescribe:
		body, err = s.handleDescribe(ctx, action)
	default:
		return status.Errorf(codes.Unimplemented, "unknown action type: %s", action.GetType())
	}
	if err != nil {
		s.logger.Error("Action failed", "type", action.GetType(), "error", err)
		return toStatus(err)
	}

	if err := stream.Send(&flight.Result{Body: body}); err != nil {
		s.logger.Error("Failed to send result", "type", action.GetType(), "error", err)
		return status.Errorf(codes.Internal, "failed to send result: %v", err)
	}
	return nil
}

func (s *Server) handleListProviders() ([]byte, error) {
	providers := s.sources.Providers()
	out := make([]ProviderInfo, 0, len(providers))
	for _, p := range providers {
		out = append(out, ProviderInfo{ID: p.ID, Name: p.Name, URL: p.URL})
	}
	return msgpack.Encode(map[string]any{"providers": out})
}

// handleListDataflows lists the dataflows of one provider.
//
// Request format (MessagePack):
//
//	{"provider": "ECB"}
func (s *Server) handleListDataflows(ctx context.Context, action *flight.Action) ([]byte, error) {
	var params struct {
		Provider string `msgpack:"provider"`
	}
	if err := decodeBody(action.GetBody(), &params); err != nil {
		return nil, err
	}

	dataflows, err := s.sources.Get(ctx, params.Provider)
	if err != nil {
		return nil, err
	}
	return msgpack.Encode(dataflowList(dataflows))
}

// handleSearch filters the dataflows of one provider by name or id.
// No structure is fetched.
//
// Request format (MessagePack):
//
//	{"provider": "ECB", "text": "exchange"}
func (s *Server) handleSearch(ctx context.Context, action *flight.Action) ([]byte, error) {
	var params struct {
		Provider string `msgpack:"provider"`
		Text     string `msgpack:"text"`
	}
	if err := decodeBody(action.GetBody(), &params); err != nil {
		return nil, err
	}

	dataflows, err := s.sources.Get(ctx, params.Provider)
	if err != nil {
		return nil, err
	}
	return msgpack.Encode(dataflowList(dataflows.Search(params.Text)))
}

// handleParameters returns the parameters of a dataset with their values
// after binding the optional params of the request.
//
// Request format (MessagePack): TicketData.
func (s *Server) handleParameters(ctx context.Context, action *flight.Action) ([]byte, error) {
	entry, err := s.bindBody(ctx, action.GetBody())
	if err != nil {
		return nil, err
	}

	values := entry.Values()
	out := make([]ParameterInfo, 0, len(entry.Parameters()))
	for _, p := range entry.Parameters() {
		info := ParameterInfo{
			Name:        p.Name,
			Description: p.Description,
			Type:        p.Kind.String(),
			Value:       values[p.Name],
		}
		for _, c := range p.Allowed() {
			info.Allowed = append(info.Allowed, c.ID)
		}
		out = append(out, info)
	}
	return msgpack.Encode(map[string]any{
		"provider":   entry.Provider(),
		"dataflow":   entry.Dataflow().ID,
		"parameters": out,
	})
}

// handleDescribe returns the YAML catalog source of a dataset.
//
// Request format (MessagePack): TicketData.
func (s *Server) handleDescribe(ctx context.Context, action *flight.Action) ([]byte, error) {
	entry, err := s.bindBody(ctx, action.GetBody())
	if err != nil {
		return nil, err
	}
	return entry.Describe()
}

func (s *Server) bindBody(ctx context.Context, body []byte) (*catalog.DatasetEntry, error) {
	req, err := DecodeTicket(body)
	if err != nil {
		return nil, err
	}
	return s.bind(ctx, req)
}

func decodeBody(body []byte, v any) error {
	if err := msgpack.Decode(body, v); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid parameters: %v", err)
	}
	return nil
}

func dataflowList(c *catalog.DataflowCatalog) DataflowList {
	flows := c.Dataflows()
	out := DataflowList{
		Provider:  c.Provider(),
		Keys:      c.Keys(),
		Dataflows: make([]DataflowInfo, 0, len(flows)),
	}
	for _, f := range flows {
		out.Dataflows = append(out.Dataflows, DataflowInfo{
			ID:          f.ID,
			Name:        f.Name,
			AgencyID:    f.AgencyID,
			Version:     f.Version,
			StructureID: f.StructureID,
		})
	}
	return out
}
