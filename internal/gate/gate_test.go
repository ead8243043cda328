package gate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"starsref-bot/internal/flyer"
	"starsref-bot/internal/subgram"
)

const (
	subgramWarning = `{"status":"warning","code":200,"links":[
		{"link":"https://t.me/sponsor_one","resource_name":"Sponsor One"},
		{"link":"https://t.me/sponsor_two","resource_name":"Sponsor Two"}]}`
	subgramOK = `{"status":"ok","code":200}`
)

func jsonServer(t *testing.T, body string, hits *int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits != nil {
			atomic.AddInt64(hits, 1)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func identity() Identity {
	return Identity{UserID: 42, ChatID: 42, FirstName: "Test", LanguageCode: "ru"}
}

func TestSponsorPendingShortCircuits(t *testing.T) {
	var flyerHits int64
	subSrv := jsonServer(t, subgramWarning, nil)
	flySrv := jsonServer(t, `{"skip":true}`, &flyerHits)

	eval := NewEvaluator(flyer.NewClient(flySrv.URL, "key"), subgram.NewClient(subSrv.URL, "key"))
	decision := eval.Evaluate(context.Background(), identity())

	if decision.Admitted {
		t.Fatal("admitted despite pending sponsor actions")
	}
	if len(decision.Actions) != 2 {
		t.Fatalf("actions = %d, want 2", len(decision.Actions))
	}
	if decision.Actions[0].Label != "Sponsor One" || decision.Actions[0].URL != "https://t.me/sponsor_one" {
		t.Fatalf("unexpected first action: %+v", decision.Actions[0])
	}
	if atomic.LoadInt64(&flyerHits) != 0 {
		t.Fatal("verification provider queried on the sponsor-pending branch")
	}
}

func TestAdmitWhenBothProvidersPass(t *testing.T) {
	subSrv := jsonServer(t, subgramOK, nil)
	flySrv := jsonServer(t, `{"skip":true}`, nil)

	eval := NewEvaluator(flyer.NewClient(flySrv.URL, "key"), subgram.NewClient(subSrv.URL, "key"))
	decision := eval.Evaluate(context.Background(), identity())

	if !decision.Admitted {
		t.Fatal("denied with both providers passing")
	}
	if len(decision.Actions) != 0 {
		t.Fatalf("actions = %d, want 0", len(decision.Actions))
	}
}

func TestVerifierDenyIsSilent(t *testing.T) {
	subSrv := jsonServer(t, subgramOK, nil)
	flySrv := jsonServer(t, `{"skip":false}`, nil)

	eval := NewEvaluator(flyer.NewClient(flySrv.URL, "key"), subgram.NewClient(subSrv.URL, "key"))
	decision := eval.Evaluate(context.Background(), identity())

	if decision.Admitted {
		t.Fatal("admitted despite verifier deny")
	}
	// The verifier messages the user itself: no actions to render.
	if len(decision.Actions) != 0 {
		t.Fatalf("actions = %d, want 0", len(decision.Actions))
	}
}

func TestSponsorTransportFailureDenies(t *testing.T) {
	subSrv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	subSrv.Close() // unreachable
	flySrv := jsonServer(t, `{"skip":true}`, nil)

	eval := NewEvaluator(flyer.NewClient(flySrv.URL, "key"), subgram.NewClient(subSrv.URL, "key"))
	decision := eval.Evaluate(context.Background(), identity())

	if decision.Admitted {
		t.Fatal("admitted while the sponsor provider is unreachable")
	}
	if len(decision.Actions) != 0 {
		t.Fatalf("actions = %d, want 0", len(decision.Actions))
	}
}

func TestVerifierTransportFailureAdmits(t *testing.T) {
	subSrv := jsonServer(t, subgramOK, nil)
	flySrv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	flySrv.Close() // unreachable

	eval := NewEvaluator(flyer.NewClient(flySrv.URL, "key"), subgram.NewClient(subSrv.URL, "key"))
	decision := eval.Evaluate(context.Background(), identity())

	if !decision.Admitted {
		t.Fatal("denied while the verification provider is unreachable")
	}
}

func TestVerifierErrorFieldAdmits(t *testing.T) {
	subSrv := jsonServer(t, subgramOK, nil)
	flySrv := jsonServer(t, `{"skip":false,"error":"unknown key"}`, nil)

	eval := NewEvaluator(flyer.NewClient(flySrv.URL, "key"), subgram.NewClient(subSrv.URL, "key"))
	decision := eval.Evaluate(context.Background(), identity())

	// A protocol-level error from the verifier is a provider failure, not a
	// deny: fail-open applies.
	if !decision.Admitted {
		t.Fatal("denied on verifier protocol error")
	}
}
