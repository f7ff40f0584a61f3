package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"cuops/internal/config"
	"cuops/internal/engine"
)

type capturedDelivery struct {
	header http.Header
	body   webhookEvent
}

func TestWebhookDispatcherDeliversNewEvents(t *testing.T) {
	var (
		mu        sync.Mutex
		delivered []capturedDelivery
	)
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var evt webhookEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			t.Errorf("decode delivery: %v", err)
		}
		mu.Lock()
		delivered = append(delivered, capturedDelivery{header: r.Header.Clone(), body: evt})
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer receiver.Close()

	cfg := config.Default()
	cfg.Webhooks = []config.WebhookConfig{{URL: receiver.URL, Secret: "s3cret", Events: []string{"idea.submitted"}}}
	srv, cleanup := newTestServerWithConfig(t, cfg)
	defer cleanup()
	ctx := context.Background()

	if _, err := srv.Engine.CreateCustomer(ctx, engine.CustomerInput{Name: "Before start", ActorID: "tester"}); err != nil {
		t.Fatal(err)
	}
	d := newWebhookDispatcher(srv.Engine, nil)
	if d == nil {
		t.Fatalf("dispatcher not created")
	}
	// The first pass only positions the cursor at the newest event.
	d.dispatchAll(ctx)

	c, err := srv.Engine.CreateCustomer(ctx, engine.CustomerInput{Name: "Acme", ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	idea, err := srv.Engine.SubmitIdea(ctx, engine.IdeaInput{CustomerID: c.ID, Title: "Hook me", ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	d.dispatchAll(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(delivered))
	}
	got := delivered[0]
	if got.body.Type != "idea.submitted" || got.body.EntityID != idea.ID || got.body.CustomerID != c.ID {
		t.Fatalf("unexpected delivery %+v", got.body)
	}
	if got.header.Get("X-Cuops-Event") != "idea.submitted" || got.header.Get("X-Cuops-Secret") != "s3cret" {
		t.Fatalf("unexpected headers %v", got.header)
	}
}

func TestWebhookDispatcherRetriesFailedDelivery(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer receiver.Close()

	cfg := config.Default()
	cfg.Webhooks = []config.WebhookConfig{{URL: receiver.URL}}
	srv, cleanup := newTestServerWithConfig(t, cfg)
	defer cleanup()
	ctx := context.Background()

	d := newWebhookDispatcher(srv.Engine, nil)
	d.dispatchAll(ctx)
	if _, err := srv.Engine.CreateCustomer(ctx, engine.CustomerInput{Name: "Acme", ActorID: "tester"}); err != nil {
		t.Fatal(err)
	}
	d.dispatchAll(ctx)
	d.dispatchAll(ctx)

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Fatalf("expected one failed and one successful attempt, got %d calls", calls)
	}
}

func TestWebhookDispatcherDisabledWithoutHooks(t *testing.T) {
	if d := newWebhookDispatcher(engine.Engine{Config: config.Default()}, nil); d != nil {
		t.Fatalf("expected no dispatcher without webhooks")
	}
}

func TestWebhookDispatcherScopedToCustomer(t *testing.T) {
	var (
		mu        sync.Mutex
		delivered []webhookEvent
	)
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var evt webhookEvent
		if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
			t.Errorf("decode delivery: %v", err)
		}
		mu.Lock()
		delivered = append(delivered, evt)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer receiver.Close()

	cfg := config.Default()
	srv, cleanup := newTestServerWithConfig(t, cfg)
	defer cleanup()
	ctx := context.Background()

	acme, err := srv.Engine.CreateCustomer(ctx, engine.CustomerInput{Name: "Acme", ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	other, err := srv.Engine.CreateCustomer(ctx, engine.CustomerInput{Name: "Other", ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	srv.Engine.Config.Webhooks = []config.WebhookConfig{{URL: receiver.URL, CustomerID: acme.ID}}
	d := newWebhookDispatcher(srv.Engine, nil)
	d.dispatchAll(ctx)

	for _, customerID := range []string{acme.ID, other.ID, ""} {
		if _, err := srv.Engine.SubmitIdea(ctx, engine.IdeaInput{CustomerID: customerID, Title: "Idea", ActorID: "tester"}); err != nil {
			t.Fatal(err)
		}
	}
	d.dispatchAll(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 1 {
		t.Fatalf("expected 1 delivery for the scoped customer, got %d", len(delivered))
	}
	if delivered[0].CustomerID != acme.ID || delivered[0].Type != "idea.submitted" {
		t.Fatalf("unexpected delivery %+v", delivered[0])
	}
}
