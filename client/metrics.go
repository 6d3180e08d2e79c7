package client

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hugr-lab/sdmx-go/registry"
)

// Metrics holds the collectors recorded by an instrumented client.
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics creates and registers remote call collectors on reg.
// A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sdmx",
			Subsystem: "remote",
			Name:      "requests_total",
			Help:      "Remote SDMX requests by provider, operation and outcome.",
		}, []string{"provider", "operation", "outcome"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sdmx",
			Subsystem: "remote",
			Name:      "request_duration_seconds",
			Help:      "Duration of remote SDMX requests.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"provider", "operation"}),
	}
}

// Instrument wraps c so that every session call is recorded in m.
func Instrument(c Client, m *Metrics) Client {
	return &instrumentedClient{next: c, metrics: m}
}

type instrumentedClient struct {
	next    Client
	metrics *Metrics
}

func (c *instrumentedClient) Session(p registry.Provider) (Session, error) {
	s, err := c.next.Session(p)
	if err != nil {
		return nil, err
	}
	return &instrumentedSession{next: s, metrics: c.metrics}, nil
}

type instrumentedSession struct {
	next    Session
	metrics *Metrics
}

func (s *instrumentedSession) observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	provider := s.next.Provider()
	s.metrics.Requests.WithLabelValues(provider, op, outcome).Inc()
	s.metrics.Duration.WithLabelValues(provider, op).Observe(time.Since(start).Seconds())
}

func (s *instrumentedSession) Provider() string {
	return s.next.Provider()
}

func (s *instrumentedSession) ListDataflows(ctx context.Context) (flows []Dataflow, err error) {
	start := time.Now()
	defer func() { s.observe("dataflows", start, err) }()
	return s.next.ListDataflows(ctx)
}

func (s *instrumentedSession) Structure(ctx context.Context, dataflowID string) (st *Structure, err error) {
	start := time.Now()
	defer func() { s.observe("structure", start, err) }()
	return s.next.Structure(ctx, dataflowID)
}

func (s *instrumentedSession) Data(ctx context.Context, req DataRequest) (msg *Message, err error) {
	start := time.Now()
	defer func() { s.observe("data", start, err) }()
	return s.next.Data(ctx, req)
}
