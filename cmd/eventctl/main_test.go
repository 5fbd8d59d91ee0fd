package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-factory/internal/chain"
	"github.com/Shivanand-hulikatti/event-factory/internal/factory"
	"github.com/Shivanand-hulikatti/event-factory/internal/handler"
	"github.com/Shivanand-hulikatti/event-factory/internal/model"
	"github.com/Shivanand-hulikatti/event-factory/internal/repository"
	"github.com/Shivanand-hulikatti/event-factory/internal/retry"
	"github.com/Shivanand-hulikatti/event-factory/internal/service"
)

func newServer(t *testing.T) (*httptest.Server, *chain.Runtime) {
	t.Helper()
	rt := chain.NewRuntime(repository.NewMemoryStore(), chain.Options{
		Backoff: retry.NewBackoff(3, time.Millisecond, 5*time.Millisecond, chain.IsConflict),
	})
	t.Cleanup(rt.Close)
	fs := service.NewFactoryService(rt, "events.near", factory.Settings{})
	if err := fs.Deploy(t.Context()); err != nil {
		t.Fatalf("deploy factory: %v", err)
	}
	srv := httptest.NewServer(handler.NewRouter(handler.NewFactoryHandler(fs), handler.NewEventHandler(service.NewEventService(rt))))
	t.Cleanup(srv.Close)
	return srv, rt
}

func eventctl(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(append([]string{"--server", srv.URL}, args...), &out)
	return out.String(), err
}

func TestCreateAndBuy(t *testing.T) {
	srv, rt := newServer(t)

	out, err := eventctl(t, srv, "--account", "host.near", "create", "spacejam", "--title", "Space Jam", "--date", "2030-01-02T15:04:05Z")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var entry model.FactoryEntry
	if err := json.Unmarshal([]byte(out), &entry); err != nil || entry.Status != model.StatusPending {
		t.Fatalf("create output = %q (%v)", out, err)
	}
	rt.Wait()

	steps := [][]string{
		{"--account", "host.near", "set-max-tickets", "spacejam.events.near", "5"},
		{"--account", "host.near", "set-price", "spacejam.events.near", "10"},
		{"--account", "host.near", "go-public", "spacejam.events.near"},
		{"--account", "alice.near", "--deposit", "10", "buy", "spacejam.events.near"},
	}
	for _, step := range steps {
		if _, err := eventctl(t, srv, step...); err != nil {
			t.Fatalf("%v: %v", step, err)
		}
	}

	out, err = eventctl(t, srv, "has-ticket", "spacejam.events.near", "alice.near")
	if err != nil || !strings.Contains(out, `"has_ticket": true`) {
		t.Fatalf("has-ticket = %q, %v", out, err)
	}

	out, err = eventctl(t, srv, "show", "spacejam.events.near", "details")
	if err != nil || !strings.Contains(out, `"title": "Space Jam"`) {
		t.Fatalf("show details = %q, %v", out, err)
	}
}

func TestServerErrorsSurface(t *testing.T) {
	srv, _ := newServer(t)
	_, err := eventctl(t, srv, "--account", "host.near", "go-public", "ghost.events.near")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("err = %v, want 404", err)
	}
}

func TestUsageErrors(t *testing.T) {
	srv, _ := newServer(t)
	if _, err := eventctl(t, srv, "bogus"); err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("unknown command: err = %v", err)
	}
	if _, err := eventctl(t, srv, "buy"); err == nil || !strings.Contains(err.Error(), "usage") {
		t.Errorf("missing args: err = %v", err)
	}
	if _, err := eventctl(t, srv, "set-max-tickets", "x.near", "-1"); err == nil {
		t.Error("negative max tickets accepted")
	}
	out, err := eventctl(t, srv, "--help")
	if err != nil || !strings.Contains(out, "buy <address>") {
		t.Errorf("help = %q, %v", out, err)
	}
}
