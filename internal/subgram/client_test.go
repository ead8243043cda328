package subgram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestOpDefaultsAndAuth(t *testing.T) {
	var got OpRequest
	var auth, requestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/request-op/" {
			t.Errorf("path = %s, want /request-op/", r.URL.Path)
		}
		auth = r.Header.Get("Auth")
		requestID = r.Header.Get("Request-Id")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		_, _ = w.Write([]byte(`{"status":"ok","code":200}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")
	resp, err := client.RequestOp(context.Background(), OpRequest{UserID: 42, ChatID: 42})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != StatusOK {
		t.Fatalf("status = %s, want ok", resp.Status)
	}
	if auth != "secret" {
		t.Fatalf("Auth header = %q, want secret", auth)
	}
	if requestID == "" {
		t.Fatal("Request-Id header missing")
	}
	if got.Action != ActionSubscribe {
		t.Fatalf("action = %q, want %q", got.Action, ActionSubscribe)
	}
	if got.MaxOP != DefaultMaxOP {
		t.Fatalf("MaxOP = %d, want %d", got.MaxOP, DefaultMaxOP)
	}
}

func TestRequestOpWarningLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"warning","code":200,"links":[{"link":"https://t.me/x","resource_name":"X"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")
	resp, err := client.RequestOp(context.Background(), OpRequest{UserID: 1, ChatID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != StatusWarning || len(resp.Links) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
