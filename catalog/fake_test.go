package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hugr-lab/sdmx-go/client"
	"github.com/hugr-lab/sdmx-go/registry"
)

var errUnavailable = errors.New("provider unavailable")

// fakeSession is a client.Session serving fixed metadata and counting calls.
type fakeSession struct {
	provider   string
	flows      []client.Dataflow
	structures map[string]*client.Structure
	message    *client.Message

	mu             sync.Mutex
	listCalls      int
	structureCalls map[string]int
	failStructure  int
	requests       []client.DataRequest
}

func newFakeSession(provider string) *fakeSession {
	return &fakeSession{
		provider: provider,
		flows: []client.Dataflow{
			{ID: "EXR", Name: "Exchange Rates", AgencyID: "ECB", Version: "1.0", StructureID: "ECB_EXR1"},
			{ID: "IRS", Name: "Interest Rates", AgencyID: "ECB", Version: "1.0", StructureID: "ECB_IRS1"},
			{ID: "BSI", Name: "Balance Sheet Items", AgencyID: "ECB", Version: "1.0", StructureID: "ECB_BSI1"},
		},
		structures: map[string]*client.Structure{
			"EXR": exrStructure(),
		},
		message: &client.Message{
			DataflowID: "EXR",
			Observations: []client.Observation{
				{
					Key:    map[string]string{"FREQ": "A", "CURRENCY": "USD"},
					Period: "2020", Value: "1.1422",
				},
				{
					Key:    map[string]string{"FREQ": "A", "CURRENCY": "USD"},
					Period: "2021", Value: "1.1827",
				},
			},
		},
		structureCalls: make(map[string]int),
	}
}

func exrStructure() *client.Structure {
	return &client.Structure{
		DataflowID:  "EXR",
		Name:        "Exchange Rates",
		StructureID: "ECB_EXR1",
		Dimensions: []client.Dimension{
			{ID: "FREQ", Name: "Frequency", Position: 1, Codes: []client.Code{
				{ID: "A", Label: "Annual"}, {ID: "M", Label: "Monthly"}, {ID: "Q", Label: "Quarterly"}, {ID: "D", Label: "Daily"},
			}},
			{ID: "CURRENCY", Name: "Currency", Position: 2, Codes: []client.Code{
				{ID: "USD", Label: "US dollar"}, {ID: "JPY", Label: "Japanese yen"}, {ID: "GBP", Label: "Pound sterling"}, {ID: "EUR", Label: "Euro"},
			}},
			{ID: "EXR_SUFFIX", Name: "Series suffix", Position: 3},
			{ID: "TIME_PERIOD", Name: "Time period", Position: 4, Time: true},
		},
		Attributes: []client.Attribute{
			{ID: "OBS_STATUS", Level: client.AttachObservation},
		},
		Constraint: map[string][]string{
			"CURRENCY": {"USD", "JPY", "GBP"},
		},
	}
}

func (s *fakeSession) Provider() string {
	return s.provider
}

func (s *fakeSession) ListDataflows(ctx context.Context) ([]client.Dataflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	return s.flows, nil
}

func (s *fakeSession) Structure(ctx context.Context, id string) (*client.Structure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.structureCalls[id]++
	if s.failStructure > 0 {
		s.failStructure--
		return nil, errUnavailable
	}
	st, ok := s.structures[id]
	if !ok {
		return nil, client.ErrRemoteMetadata
	}
	return st, nil
}

func (s *fakeSession) Data(ctx context.Context, req client.DataRequest) (*client.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return s.message, nil
}

func (s *fakeSession) structureCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.structureCalls[id]
}

func (s *fakeSession) totalStructureCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.structureCalls {
		n += c
	}
	return n
}

// fakeClient hands out one fakeSession per provider and counts sessions.
type fakeClient struct {
	mu       sync.Mutex
	sessions map[string]*fakeSession
	opened   int
}

func (c *fakeClient) Session(p registry.Provider) (client.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opened++
	if c.sessions == nil {
		c.sessions = make(map[string]*fakeSession)
	}
	s, ok := c.sessions[p.ID]
	if !ok {
		s = newFakeSession(p.ID)
		c.sessions[p.ID] = s
	}
	return s, nil
}

func testOptions() Options {
	return Options{
		Now: func() time.Time { return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) },
	}
}

func testRegistry() *registry.Registry {
	reg, err := registry.New(
		registry.Provider{ID: "ECB", Name: "European Central Bank", URL: "https://data-api.ecb.europa.eu/service"},
		registry.Provider{ID: "BIS", Name: "Bank for International Settlements", URL: "https://stats.bis.org/api/v1"},
		registry.Provider{ID: "OECD_JSON", Excluded: true},
	)
	if err != nil {
		panic(err)
	}
	return reg
}
