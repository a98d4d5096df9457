// Package upstream is the Databricks workspace client the adapter uses for
// endpoint metadata and model invocations.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"servingbridge/internal/adapter"
	"servingbridge/internal/types"
)

// defaultTimeout bounds a single metadata or invocation request. Agent
// endpoints can take a while on cold starts, so it is generous.
const defaultTimeout = 2 * time.Minute

// endpointInfo is the subset of the serving-endpoints API response the
// client reads.
type endpointInfo struct {
	Name                 string `json:"name"`
	Task                 string `json:"task"`
	CreationTimestamp    int64  `json:"creation_timestamp"`
	LastUpdatedTimestamp int64  `json:"last_updated_timestamp"`
	State                struct {
		Ready        string `json:"ready"`
		ConfigUpdate string `json:"config_update"`
	} `json:"state"`
}

// EndpointSummary describes one serving endpoint for listings and info
// output.
type EndpointSummary struct {
	Name        string
	TaskType    string
	Ready       string
	CreatedAt   time.Time
	LastUpdated time.Time
}

// Client talks to the Databricks serving-endpoints REST API. It implements
// resolver.MetadataSource and adapter.Transport.
type Client struct {
	http    *resty.Client
	verbose bool
}

// New creates a workspace client for the given host, authenticated with a
// bearer token. Requests are never retried here: invocation failures are
// treated as non-transient by the adapter, and retry policy belongs to the
// caller.
func New(host, token string, timeout time.Duration, verbose bool) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := resty.New().
		SetBaseURL(strings.TrimRight(host, "/")).
		SetAuthToken(token).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: hc, verbose: verbose}
}

// GetTaskType fetches the task type the endpoint advertises. It never
// guesses: an unreachable metadata API or an endpoint without a task field
// is an error for the resolver to surface.
func (c *Client) GetTaskType(ctx context.Context, endpointID string) (string, error) {
	info, err := c.getEndpoint(ctx, endpointID)
	if err != nil {
		return "", err
	}
	return info.Task, nil
}

// GetEndpoint fetches metadata for one endpoint.
func (c *Client) GetEndpoint(ctx context.Context, endpointID string) (EndpointSummary, error) {
	info, err := c.getEndpoint(ctx, endpointID)
	if err != nil {
		return EndpointSummary{}, err
	}
	return summarize(info), nil
}

func (c *Client) getEndpoint(ctx context.Context, endpointID string) (endpointInfo, error) {
	var info endpointInfo
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&info).
		SetPathParam("name", endpointID).
		Get("/api/2.0/serving-endpoints/{name}")
	if err != nil {
		return endpointInfo{}, fmt.Errorf("fetching endpoint metadata: %w", err)
	}
	if resp.IsError() {
		return endpointInfo{}, fmt.Errorf("endpoint metadata returned HTTP %d: %s", resp.StatusCode(), bodyPreview(resp.Body()))
	}
	return info, nil
}

// ListEndpoints fetches every serving endpoint in the workspace.
func (c *Client) ListEndpoints(ctx context.Context) ([]EndpointSummary, error) {
	var out struct {
		Endpoints []endpointInfo `json:"endpoints"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/api/2.0/serving-endpoints")
	if err != nil {
		return nil, fmt.Errorf("listing endpoints: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("listing endpoints returned HTTP %d: %s", resp.StatusCode(), bodyPreview(resp.Body()))
	}
	summaries := make([]EndpointSummary, 0, len(out.Endpoints))
	for _, info := range out.Endpoints {
		summaries = append(summaries, summarize(info))
	}
	return summaries, nil
}

// Invoke posts a payload to the endpoint's invocation URL and decodes the
// JSON reply. Failures come back as classified *adapter.TransportError
// values with the raw upstream diagnostic text preserved.
func (c *Client) Invoke(ctx context.Context, endpointID string, payload types.WirePayload) (types.WireResponse, error) {
	requestID := uuid.NewString()
	if c.verbose {
		slog.Info("upstream.invoke",
			"endpoint", endpointID,
			"request_id", requestID,
			"payload_fields", payloadFields(payload),
		)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Request-Id", requestID).
		SetBody(payload).
		SetPathParam("name", endpointID).
		Post("/serving-endpoints/{name}/invocations")
	if err != nil {
		return nil, classifyInvokeErr(endpointID, err)
	}

	if c.verbose {
		slog.Info("upstream.response",
			"endpoint", endpointID,
			"request_id", requestID,
			"status", resp.StatusCode(),
		)
	}

	if resp.IsError() {
		kind := adapter.TransportConnectivity
		// 400/422 are the endpoint schema validator speaking
		// ("Model is missing inputs [...]").
		if resp.StatusCode() == http.StatusBadRequest || resp.StatusCode() == http.StatusUnprocessableEntity {
			kind = adapter.TransportSchemaRejection
		}
		return nil, &adapter.TransportError{
			Endpoint: endpointID,
			Kind:     kind,
			Status:   resp.StatusCode(),
			Body:     bodyPreview(resp.Body()),
		}
	}

	return decodeResponse(resp.Body()), nil
}

// decodeResponse turns the invocation body into a WireResponse. Non-object
// replies are folded into a {"content": ...} envelope so the normalizer's
// lenient acceptance can still surface them.
func decodeResponse(body []byte) types.WireResponse {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err == nil {
		switch v := decoded.(type) {
		case map[string]any:
			return types.WireResponse(v)
		case string:
			return types.WireResponse{"content": v}
		}
	}
	return types.WireResponse{"content": strings.TrimSpace(string(body))}
}

func classifyInvokeErr(endpointID string, err error) error {
	kind := adapter.TransportConnectivity
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = adapter.TransportTimeout
	}
	return &adapter.TransportError{Endpoint: endpointID, Kind: kind, Err: err}
}

func summarize(info endpointInfo) EndpointSummary {
	s := EndpointSummary{
		Name:     info.Name,
		TaskType: info.Task,
		Ready:    info.State.Ready,
	}
	if info.CreationTimestamp > 0 {
		s.CreatedAt = time.UnixMilli(info.CreationTimestamp)
	}
	if info.LastUpdatedTimestamp > 0 {
		s.LastUpdated = time.UnixMilli(info.LastUpdatedTimestamp)
	}
	return s
}

// payloadFields lists the payload's top-level field names for logging.
// Message content never hits the log.
func payloadFields(payload types.WirePayload) []string {
	fields := make([]string, 0, len(payload))
	for k := range payload {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// bodyPreview collapses an error body onto one line and caps its length so
// upstream diagnostics stay loggable verbatim.
func bodyPreview(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const maxLen = 512
	if len(clean) <= maxLen {
		return clean
	}
	return clean[:maxLen] + "..."
}
