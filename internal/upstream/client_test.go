package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"servingbridge/internal/adapter"
	"servingbridge/internal/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "test-token", timeout, false)
}

func TestGetTaskType(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method: got %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/2.0/serving-endpoints/my-agent" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("authorization: got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"my-agent","task":"agent/v1/responses","state":{"ready":"READY"}}`))
	}, 0)

	task, err := c.GetTaskType(context.Background(), "my-agent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task != "agent/v1/responses" {
		t.Errorf("task: got %q, want agent/v1/responses", task)
	}
}

func TestGetTaskTypeHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error_code":"RESOURCE_DOES_NOT_EXIST","message":"Endpoint not found"}`))
	}, 0)

	_, err := c.GetTaskType(context.Background(), "missing-ep")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error should carry the status: %v", err)
	}
	if !strings.Contains(err.Error(), "Endpoint not found") {
		t.Errorf("error should carry the upstream body: %v", err)
	}
}

func TestInvoke(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: got %s, want POST", r.Method)
		}
		if r.URL.Path != "/serving-endpoints/my-chat/invocations" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		if r.Header.Get("X-Request-Id") == "" {
			t.Error("expected a request id header")
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}
		if _, ok := body["messages"]; !ok {
			t.Error("payload should carry the messages field")
		}
		if got := body["max_tokens"]; got != float64(64) {
			t.Errorf("max_tokens: got %v, want 64", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`))
	}, 0)

	payload := types.WirePayload{
		"messages":   []map[string]any{{"role": "user", "content": "hi"}},
		"max_tokens": 64,
	}
	resp, err := c.Invoke(context.Background(), "my-chat", payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := resp["choices"]; !ok {
		t.Errorf("response should carry choices, got %v", resp)
	}
}

func TestInvokeSchemaRejection(t *testing.T) {
	const diagnostic = `{"error_code":"BAD_REQUEST","message":"Model is missing inputs ['input']. Note that there were extra inputs: ['messages']"}`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(diagnostic))
	}, 0)

	_, err := c.Invoke(context.Background(), "responses-ep", types.WirePayload{"messages": []any{}})
	var te *adapter.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *adapter.TransportError, got %v", err)
	}
	if te.Kind != adapter.TransportSchemaRejection {
		t.Errorf("kind: got %s, want schema_rejection", te.Kind)
	}
	if te.Timeout() {
		t.Error("a schema rejection must not read as a timeout")
	}
	if te.Status != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", te.Status)
	}
	if !strings.Contains(te.Body, "extra inputs") {
		t.Errorf("raw diagnostic should be preserved, got %q", te.Body)
	}
}

func TestInvokeTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`{}`))
	}, 50*time.Millisecond)

	_, err := c.Invoke(context.Background(), "slow-ep", types.WirePayload{})
	var te *adapter.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *adapter.TransportError, got %v", err)
	}
	if te.Kind != adapter.TransportTimeout {
		t.Errorf("kind: got %s, want timeout", te.Kind)
	}
	if !te.Timeout() {
		t.Error("Timeout() should report true")
	}
}

func TestInvokeConnectivityError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listens anymore
	c := New(srv.URL, "test-token", 0, false)

	_, err := c.Invoke(context.Background(), "gone-ep", types.WirePayload{})
	var te *adapter.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *adapter.TransportError, got %v", err)
	}
	if te.Kind != adapter.TransportConnectivity {
		t.Errorf("kind: got %s, want connectivity", te.Kind)
	}
}

func TestInvokeNonObjectResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`"plain string prediction"`))
	}, 0)

	resp, err := c.Invoke(context.Background(), "odd-ep", types.WirePayload{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := resp["content"]; got != "plain string prediction" {
		t.Errorf("content: got %v, want the folded string", got)
	}
}

func TestListEndpoints(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/2.0/serving-endpoints" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"endpoints":[
			{"name":"chat-ep","task":"llm/v1/chat","state":{"ready":"READY"}},
			{"name":"agent-ep","task":"agent/v1/responses","state":{"ready":"NOT_READY"},"creation_timestamp":1700000000000}
		]}`))
	}, 0)

	endpoints, err := c.ListEndpoints(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(endpoints) != 2 {
		t.Fatalf("got %d endpoints, want 2", len(endpoints))
	}
	if endpoints[0].Name != "chat-ep" || endpoints[0].TaskType != "llm/v1/chat" || endpoints[0].Ready != "READY" {
		t.Errorf("unexpected first endpoint: %+v", endpoints[0])
	}
	if endpoints[1].CreatedAt.IsZero() {
		t.Error("creation timestamp should be decoded")
	}
}
