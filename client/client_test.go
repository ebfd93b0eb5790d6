package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/GaryOcean428/gary-zero-sub006/rfc"
)

// newEchoServer answers every request by applying respond to the decoded
// request, and records how many requests actually arrived.
func newEchoServer(t *testing.T, respond func(req *rfc.CallRequest) *rfc.CallResponse) (*httptest.Server, *int) {
	t.Helper()
	count := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count++
		if r.Method != http.MethodPost || r.URL.Path != rfc.DefaultPath {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req rfc.CallRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Undecodable request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(respond(&req))
	}))
	t.Cleanup(srv.Close)
	return srv, &count
}

func TestCallSuccess(t *testing.T) {
	srv, _ := newEchoServer(t, func(req *rfc.CallRequest) *rfc.CallResponse {
		if req.Secret != "s3cret" {
			return rfc.NewError(rfc.ErrorKindAuthorization, "secret mismatch")
		}
		if req.Module != "calendar" || req.Function != "create_event" {
			t.Errorf("Wrong target: %s.%s", req.Module, req.Function)
		}
		return rfc.NewResult(map[string]any{"id": "evt-1", "title": req.Kwargs["title"]})
	})

	c, err := New(srv.URL, "s3cret")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := c.Call(context.Background(), "calendar", "create_event",
		nil, map[string]any{"title": "Standup", "start_time": "2025-01-01T09:00"})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	m, ok := result.(map[string]any)
	if !ok || m["id"] != "evt-1" || m["title"] != "Standup" {
		t.Errorf("Unexpected result: %v", result)
	}
}

func TestCallRemoteErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		kind     rfc.ErrorKind
		sentinel error
	}{
		{"authorization", rfc.ErrorKindAuthorization, rfc.ErrAuthorization},
		{"unknown function", rfc.ErrorKindUnknownFunction, rfc.ErrUnknownFunction},
		{"application", rfc.ErrorKindApplication, rfc.ErrApplication},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newEchoServer(t, func(req *rfc.CallRequest) *rfc.CallResponse {
				return rfc.NewError(tt.kind, "rejected")
			})
			c, err := New(srv.URL, "s3cret")
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}

			_, err = c.Call(context.Background(), "m", "f", nil, nil)
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("Call error = %v, want %v", err, tt.sentinel)
			}
			// The kind distinction survives deserialization.
			var remote *rfc.RemoteError
			if !errors.As(err, &remote) || remote.Kind != tt.kind {
				t.Errorf("Remote kind lost: %v", err)
			}
		})
	}
}

func TestCallNon2xxIsRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, "s3cret")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, err = c.Call(context.Background(), "m", "f", nil, nil)
	var remote *rfc.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("Call error = %v, want RemoteError", err)
	}
	var terr *rfc.TransportError
	if errors.As(err, &terr) {
		t.Error("Non-2xx classified as transport failure")
	}
}

func TestCallConnectionRefusedIsTransportError(t *testing.T) {
	// Reserve a port and close it so nothing is listening there.
	srv := httptest.NewServer(http.NotFoundHandler())
	dead := srv.URL
	srv.Close()

	c, err := New(dead, "s3cret")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, err = c.Call(context.Background(), "m", "f", nil, nil)
	var terr *rfc.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("Call error = %v, want TransportError", err)
	}
	if terr.Timeout {
		t.Error("Connection refused flagged as timeout")
	}
}

func TestCallTimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release // Server never answers in time
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c, err := New(srv.URL, "s3cret", WithTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, err = c.Call(context.Background(), "m", "f", nil, nil)
	var terr *rfc.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("Call error = %v, want TransportError", err)
	}
	if !terr.Timeout {
		t.Errorf("Timeout flag not set on %v", err)
	}
}

func TestNewRejectsEmptySecret(t *testing.T) {
	if _, err := New("http://localhost:1", ""); err == nil {
		t.Fatal("New accepted an empty secret")
	}
}

func TestCallRejectsUnserializableArgs(t *testing.T) {
	srv, count := newEchoServer(t, func(req *rfc.CallRequest) *rfc.CallResponse {
		return rfc.NewResult(nil)
	})
	c, err := New(srv.URL, "s3cret")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, err = c.Call(context.Background(), "m", "f", []any{make(chan int)}, nil)
	if err == nil {
		t.Fatal("Call accepted a channel argument")
	}
	if *count != 0 {
		t.Error("Unserializable request still reached the server")
	}
}

func TestRetryOnlyRetriesTransportErrors(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), 3, time.Millisecond, func(ctx context.Context) (any, error) {
		calls++
		return nil, &rfc.RemoteError{Kind: rfc.ErrorKindApplication, Message: "boom"}
	})
	if !errors.Is(err, rfc.ErrApplication) {
		t.Fatalf("Retry error = %v, want application error", err)
	}
	if calls != 1 {
		t.Errorf("RemoteError was retried %d times", calls-1)
	}

	calls = 0
	result, err := Retry(context.Background(), 3, time.Millisecond, func(ctx context.Context) (any, error) {
		calls++
		if calls < 3 {
			return nil, &rfc.TransportError{Op: "post", Err: errors.New("connection refused")}
		}
		return "recovered", nil
	})
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if result != "recovered" || calls != 3 {
		t.Errorf("Retry = %v after %d calls", result, calls)
	}
}

func TestRetryGivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), 2, time.Millisecond, func(ctx context.Context) (any, error) {
		calls++
		return nil, &rfc.TransportError{Op: "post", Err: errors.New("unreachable")}
	})
	var terr *rfc.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("Retry error = %v, want TransportError", err)
	}
	if calls != 3 { // First call + two retries
		t.Errorf("Retry made %d calls, want 3", calls)
	}
}
