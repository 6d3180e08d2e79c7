package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/hugr-lab/sdmx-go/registry"
)

// Media types requested from SDMX 2.1 REST services.
const (
	MediaTypeStructure = "application/vnd.sdmx.structure+xml;version=2.1"
	MediaTypeDataCSV   = "application/vnd.sdmx.data+csv;version=1.0.0"
)

// DefaultTimeout bounds a single HTTP request when no client is supplied.
const DefaultTimeout = 2 * time.Minute

// RESTOptions configures the REST client.
type RESTOptions struct {
	// HTTPClient performs requests.
	// OPTIONAL: a client with DefaultTimeout and a gzip/zstd decoding
	// transport is created if nil.
	HTTPClient *http.Client

	// Timeout bounds a single request of the default HTTP client.
	// OPTIONAL: Uses DefaultTimeout if 0. Ignored when HTTPClient is set.
	Timeout time.Duration

	// UserAgent is sent with every request.
	// OPTIONAL: defaults to "sdmx-go".
	UserAgent string

	// Logger for request logging.
	// OPTIONAL: Uses slog.Default() if nil.
	Logger *slog.Logger
}

// REST is a Client for SDMX 2.1 REST web services.
type REST struct {
	http      *http.Client
	userAgent string
	logger    *slog.Logger
}

// NewREST creates a REST client.
func NewREST(opts RESTOptions) *REST {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{
			Timeout:   timeout,
			Transport: gzhttp.Transport(http.DefaultTransport),
		}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "sdmx-go"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &REST{http: hc, userAgent: ua, logger: logger}
}

// Session implements Client.
func (c *REST) Session(p registry.Provider) (Session, error) {
	if p.Excluded {
		return nil, fmt.Errorf("%w: provider %s does not support dataflow queries", ErrRemoteMetadata, p.ID)
	}
	base, err := url.Parse(p.URL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: provider %s has invalid url %q", ErrRemoteMetadata, p.ID, p.URL)
	}
	agency := p.AgencyID
	if agency == "" {
		agency = "all"
	}
	return &restSession{
		client:   c,
		provider: p,
		base:     base,
		agency:   agency,
		logger:   c.logger.With("provider", p.ID),
	}, nil
}

type restSession struct {
	client   *REST
	provider registry.Provider
	base     *url.URL
	agency   string
	logger   *slog.Logger
}

func (s *restSession) Provider() string {
	return s.provider.ID
}

func (s *restSession) ListDataflows(ctx context.Context) ([]Dataflow, error) {
	u := s.base.JoinPath("dataflow", s.agency, "all", "latest")

	body, err := s.get(ctx, u, MediaTypeStructure)
	if err != nil {
		return nil, fmt.Errorf("%w: list dataflows of %s: %v", ErrRemoteMetadata, s.provider.ID, err)
	}
	if body == nil {
		return nil, fmt.Errorf("%w: provider %s returned no dataflows", ErrRemoteMetadata, s.provider.ID)
	}

	flows, err := ParseDataflows(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Dataflows listed", "count", len(flows))
	return flows, nil
}

func (s *restSession) Structure(ctx context.Context, dataflowID string) (*Structure, error) {
	u := s.base.JoinPath("dataflow", s.agency, dataflowID, "latest")
	u.RawQuery = url.Values{"references": {"all"}}.Encode()

	body, err := s.get(ctx, u, MediaTypeStructure)
	if err != nil {
		return nil, fmt.Errorf("%w: structure of %s/%s: %v", ErrRemoteMetadata, s.provider.ID, dataflowID, err)
	}
	if body == nil {
		return nil, fmt.Errorf("%w: dataflow %s/%s not found", ErrRemoteMetadata, s.provider.ID, dataflowID)
	}

	st, err := ParseStructure(bytes.NewReader(body), dataflowID)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Structure fetched",
		"dataflow", dataflowID,
		"dimensions", len(st.Dimensions),
		"constrained", st.Constraint != nil,
	)
	return st, nil
}

func (s *restSession) Data(ctx context.Context, req DataRequest) (*Message, error) {
	u := s.base.JoinPath("data", req.DataflowID, DataKey(req.Dimensions, req.Key))
	if len(req.Params) > 0 {
		q := url.Values{}
		for k, v := range req.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	body, err := s.get(ctx, u, MediaTypeDataCSV)
	if err != nil {
		return nil, fmt.Errorf("%w: data of %s/%s: %v", ErrRemoteData, s.provider.ID, req.DataflowID, err)
	}
	if body == nil {
		// 404 on a data query means the selection matched nothing.
		return &Message{DataflowID: req.DataflowID}, nil
	}

	msg, err := ParseCSV(bytes.NewReader(body), req.DataflowID, req.Dimensions)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Data fetched",
		"dataflow", req.DataflowID,
		"selected", sortedKeys(req.Key),
		"observations", len(msg.Observations),
	)
	return msg, nil
}

// get performs a GET request. A 404 response yields a nil body and no error.
func (s *restSession) get(ctx context.Context, u *url.URL, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", s.client.userAgent)
	for k, v := range s.provider.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := s.client.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	s.logger.Debug("SDMX request",
		"url", u.String(),
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil
	}
	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// DataKey builds the positional SDMX key for dims.
// Codes of one dimension are joined with "+", wildcard positions are left
// empty, and a key without any selection is "all".
func DataKey(dims []string, key map[string][]string) string {
	parts := make([]string, len(dims))
	selected := false
	for i, d := range dims {
		codes := key[d]
		if len(codes) == 0 {
			continue
		}
		parts[i] = strings.Join(codes, "+")
		selected = true
	}
	if !selected {
		return "all"
	}
	return strings.Join(parts, ".")
}

// sortedKeys returns the keys of m in lexical order.
func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
