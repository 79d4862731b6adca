package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vietddude/annotator/internal/resilience"
)

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, req request)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected method POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %s", ct)
		}
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode body: %v", err)
			return
		}
		handler(w, req)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClient_ListProjects(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, req request) {
		if req.Query != listProjectsQuery {
			t.Errorf("unexpected query %q", req.Query)
		}
		_, _ = w.Write([]byte(`{"data":{"projects":[{"id":"p1","name":"Birds"},{"id":"p2","name":"Cars"}]}}`))
	})

	c := NewClient(server.URL, "", 5*time.Second)
	projects, err := c.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(projects) != 2 || projects[0].ID != "p1" || projects[1].Name != "Cars" {
		t.Errorf("unexpected projects %+v", projects)
	}
}

func TestClient_SendsVariablesAndToken(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		var req request
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Variables["id"] != "t1" || req.Variables["status"] != "done" {
			t.Errorf("unexpected variables %+v", req.Variables)
		}
		_, _ = w.Write([]byte(`{"data":{"updateTaskStatus":{"id":"t1","status":"done"}}}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "secret", 5*time.Second)
	task, err := c.UpdateTaskStatus(context.Background(), "t1", "done")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Status != "done" {
		t.Errorf("unexpected task %+v", task)
	}
	if auth != "Bearer secret" {
		t.Errorf("expected bearer token, got %q", auth)
	}
}

func TestClient_HTTPErrorCarriesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient(server.URL, "", 5*time.Second)
	_, err := c.ListImages(context.Background())

	var gqlErr *Error
	if !errors.As(err, &gqlErr) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if gqlErr.StatusCode() != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", gqlErr.StatusCode())
	}
	if !resilience.IsRetryableGraphQLError(err) {
		t.Error("expected 5xx to be retryable")
	}
}

func TestClient_GraphQLErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		status    int
		retryable bool
	}{
		{
			name:      "explicit status",
			body:      `{"errors":[{"message":"boom","extensions":{"status":503}}]}`,
			status:    503,
			retryable: true,
		},
		{
			name:      "mapped code",
			body:      `{"errors":[{"message":"bad input","extensions":{"code":"BAD_USER_INPUT"}}]}`,
			status:    400,
			retryable: false,
		},
		{
			name:      "unknown code",
			body:      `{"errors":[{"message":"weird"}]}`,
			status:    0,
			retryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewClient(server.URL, "", 5*time.Second)
			_, err := c.ListTasks(context.Background())

			var gqlErr *Error
			if !errors.As(err, &gqlErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if gqlErr.Status != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, gqlErr.Status)
			}
			if got := resilience.IsRetryableGraphQLError(err); got != tt.retryable {
				t.Errorf("expected retryable=%v, got %v", tt.retryable, got)
			}
		})
	}
}

func TestClient_TransportErrorIsNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewClient(url, "", time.Second)
	err := c.Ping(context.Background())
	if err == nil {
		t.Fatal("expected error from closed server")
	}
	var netErr net.Error
	if !errors.As(err, &netErr) && !resilience.IsNetworkError(err) {
		t.Errorf("expected network error, got %v", err)
	}
	if !resilience.IsNetworkError(err) {
		t.Errorf("expected store policy to treat %v as network error", err)
	}
}
