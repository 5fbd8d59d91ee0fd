package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-factory/internal/chain"
	"github.com/Shivanand-hulikatti/event-factory/internal/factory"
	"github.com/Shivanand-hulikatti/event-factory/internal/model"
	"github.com/Shivanand-hulikatti/event-factory/internal/repository"
	"github.com/Shivanand-hulikatti/event-factory/internal/retry"
	"github.com/Shivanand-hulikatti/event-factory/internal/service"
)

type testServer struct {
	t      *testing.T
	rt     *chain.Runtime
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	rt := chain.NewRuntime(repository.NewMemoryStore(), chain.Options{
		Workers: 2,
		Backoff: retry.NewBackoff(3, time.Millisecond, 5*time.Millisecond, chain.IsConflict),
	})
	t.Cleanup(rt.Close)

	fs := service.NewFactoryService(rt, "events.near", factory.Settings{MinDeposit: model.NewAmount(100)})
	if err := fs.Deploy(t.Context()); err != nil {
		t.Fatalf("deploy factory: %v", err)
	}
	router := NewRouter(NewFactoryHandler(fs), NewEventHandler(service.NewEventService(rt)))
	return &testServer{t: t, rt: rt, router: router}
}

// do sends a request as account with deposit attached and returns the recorder.
func (s *testServer) do(method, path, account, deposit, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if account != "" {
		req.Header.Set(HeaderAccount, account)
	}
	if deposit != "" {
		req.Header.Set(HeaderDeposit, deposit)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) expect(rec *httptest.ResponseRecorder, status int) {
	s.t.Helper()
	if rec.Code != status {
		s.t.Fatalf("status = %d, want %d; body = %s", rec.Code, status, rec.Body.String())
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

// createEvent provisions name through the factory and returns its address.
func (s *testServer) createEvent(name, host string) string {
	s.t.Helper()
	body := `{"name":"` + name + `","details":{"date":0,"title":"Test"}}`
	rec := s.do(http.MethodPost, "/factory/events", host, "100", body)
	s.expect(rec, http.StatusAccepted)
	if entry := decode[model.FactoryEntry](s.t, rec); entry.Status != model.StatusPending {
		s.t.Fatalf("entry status = %s, want pending", entry.Status)
	}
	s.rt.Wait()

	rec = s.do(http.MethodGet, "/factory/events/"+name, "", "", "")
	s.expect(rec, http.StatusOK)
	entry := decode[model.FactoryEntry](s.t, rec)
	if entry.Status != model.StatusSucceeded {
		s.t.Fatalf("entry = %+v, want succeeded", entry)
	}
	return string(entry.Address)
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/health", "", "", "")
	s.expect(rec, http.StatusOK)
	if got := decode[map[string]string](t, rec); got["status"] != "ok" {
		t.Fatalf("body = %v", got)
	}
}

func TestFactoryEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/factory/events", "", "", "")
	s.expect(rec, http.StatusOK)
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("empty list = %s, want []", got)
	}

	addr := s.createEvent("spacejam", "host.near")
	if addr != "spacejam.events.near" {
		t.Fatalf("address = %s", addr)
	}

	rec = s.do(http.MethodGet, "/factory/events", "", "", "")
	s.expect(rec, http.StatusOK)
	if got := decode[[]string](t, rec); len(got) != 1 || got[0] != "spacejam" {
		t.Fatalf("names = %v", got)
	}

	body := `{"name":"spacejam","details":{"date":0}}`
	s.expect(s.do(http.MethodPost, "/factory/events", "host.near", "100", body), http.StatusConflict)
	s.expect(s.do(http.MethodPost, "/factory/events", "host.near", "99", `{"name":"other","details":{}}`), http.StatusPaymentRequired)
	s.expect(s.do(http.MethodPost, "/factory/events", "host.near", "100", `{"name":"_","details":{}}`), http.StatusBadRequest)
	s.expect(s.do(http.MethodPost, "/factory/events", "", "100", `{"name":"other","details":{}}`), http.StatusForbidden)
	s.expect(s.do(http.MethodPost, "/factory/events", "host.near", "lots", `{"name":"other","details":{}}`), http.StatusBadRequest)
	s.expect(s.do(http.MethodPost, "/factory/events", "host.near", "100", `{"bogus":true}`), http.StatusBadRequest)
	s.expect(s.do(http.MethodGet, "/factory/events/missing", "", "", ""), http.StatusNotFound)
}

func TestTicketLifecycle(t *testing.T) {
	s := newTestServer(t)
	addr := s.createEvent("gala", "host.near")
	base := "/events/" + addr

	s.expect(s.do(http.MethodGet, base, "", "", ""), http.StatusForbidden)
	s.expect(s.do(http.MethodPost, base+"/tickets", "alice.near", "100", ""), http.StatusForbidden)

	s.expect(s.do(http.MethodPost, base+"/cohosts", "host.near", "", `{"account":"co.near"}`), http.StatusNoContent)
	s.expect(s.do(http.MethodPost, base+"/cohosts", "co.near", "", `{"account":"x.near"}`), http.StatusForbidden)
	s.expect(s.do(http.MethodPut, base+"/max-tickets", "co.near", "", `{"max_tickets":1}`), http.StatusNoContent)
	s.expect(s.do(http.MethodPut, base+"/ticket-price", "co.near", "", `{"price":"100"}`), http.StatusNoContent)
	s.expect(s.do(http.MethodPut, base+"/details", "co.near", "", `{"date":5,"title":"Gala night"}`), http.StatusNoContent)
	s.expect(s.do(http.MethodPost, base+"/public", "co.near", "", ""), http.StatusNoContent)
	s.expect(s.do(http.MethodPost, base+"/public", "co.near", "1", ""), http.StatusBadRequest)

	s.expect(s.do(http.MethodPost, base+"/tickets", "alice.near", "99", ""), http.StatusPaymentRequired)
	rec := s.do(http.MethodPost, base+"/tickets", "alice.near", "120", "")
	s.expect(rec, http.StatusCreated)
	purchase := decode[map[string]string](t, rec)
	if purchase["paid"] != "100" || purchase["refunded"] != "20" {
		t.Fatalf("purchase = %v", purchase)
	}
	s.expect(s.do(http.MethodPost, base+"/tickets", "bob.near", "100", ""), http.StatusConflict)
	s.expect(s.do(http.MethodPut, base+"/max-tickets", "host.near", "", `{"max_tickets":0}`), http.StatusBadRequest)

	rec = s.do(http.MethodGet, base+"/tickets/alice.near", "", "", "")
	s.expect(rec, http.StatusOK)
	if got := decode[map[string]bool](t, rec); !got["has_ticket"] {
		t.Fatalf("has_ticket = %v", got)
	}

	rec = s.do(http.MethodGet, base, "", "", "")
	s.expect(rec, http.StatusOK)
	ev := decode[model.Event](t, rec)
	if ev.TicketsSold != 1 || ev.Balance.String() != "100" || ev.Details.Title != "Gala night" || ev.Host != "host.near" {
		t.Fatalf("event = %+v", ev)
	}

	s.expect(s.do(http.MethodGet, base+"/guests", "alice.near", "", ""), http.StatusForbidden)
	rec = s.do(http.MethodGet, base+"/guests", "co.near", "", "")
	s.expect(rec, http.StatusOK)
	if got := decode[[]string](t, rec); len(got) != 1 || got[0] != "alice.near" {
		t.Fatalf("guests = %v", got)
	}

	rec = s.do(http.MethodPost, base+"/payout", "co.near", "", "")
	s.expect(rec, http.StatusOK)
	if got := decode[map[string]string](t, rec); got["paid"] != "100" {
		t.Fatalf("payout = %v", got)
	}
	s.expect(s.do(http.MethodPost, base+"/payout", "host.near", "", ""), http.StatusConflict)

	rec = s.do(http.MethodGet, "/accounts/host.near/balance", "", "", "")
	s.expect(rec, http.StatusOK)
	if got := decode[map[string]string](t, rec); got["balance"] != "100" {
		t.Fatalf("host balance = %v", got)
	}

	s.expect(s.do(http.MethodDelete, base+"/guests/alice.near", "co.near", "", ""), http.StatusNoContent)
	s.expect(s.do(http.MethodDelete, base+"/cohosts/co.near", "host.near", "", ""), http.StatusNoContent)
	s.expect(s.do(http.MethodPost, base+"/public", "co.near", "", ""), http.StatusForbidden)
}

func TestSingleFieldReads(t *testing.T) {
	s := newTestServer(t)
	addr := s.createEvent("reads", "host.near")
	base := "/events/" + addr

	tests := []struct {
		path string
		want string
	}{
		{"/host", `{"host":"host.near"}`},
		{"/cohosts", `[]`},
		{"/ticket-price", `{"price":"0"}`},
		{"/max-tickets", `{"max_tickets":0}`},
		{"/tickets-sold", `{"tickets_sold":0}`},
		{"/balance", `{"account":"reads.events.near","balance":"0"}`},
		{"/details", `{"date":0,"location":"","title":"Test","description":"","image_url":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := s.do(http.MethodGet, base+tt.path, "host.near", "", "")
			s.expect(rec, http.StatusOK)
			if got := strings.TrimSpace(rec.Body.String()); got != tt.want {
				t.Fatalf("body = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPrivateEventReads(t *testing.T) {
	s := newTestServer(t)
	addr := s.createEvent("hidden", "host.near")
	base := "/events/" + addr

	for _, path := range []string{"", "/details", "/cohosts", "/ticket-price", "/balance"} {
		s.expect(s.do(http.MethodGet, base+path, "", "", ""), http.StatusForbidden)
		s.expect(s.do(http.MethodGet, base+path, "stranger.near", "", ""), http.StatusForbidden)
	}
	for _, path := range []string{"/host", "/max-tickets", "/tickets-sold", "/tickets/alice.near"} {
		s.expect(s.do(http.MethodGet, base+path, "", "", ""), http.StatusOK)
	}

	// The caller header is trimmed the same way for reads and calls.
	s.expect(s.do(http.MethodGet, base+"/details", "  host.near ", "", ""), http.StatusOK)
	s.expect(s.do(http.MethodGet, base+"/guests", " host.near", "", ""), http.StatusOK)
	s.expect(s.do(http.MethodPost, base+"/public", "host.near ", "", ""), http.StatusNoContent)
	s.expect(s.do(http.MethodGet, base+"/details", "", "", ""), http.StatusOK)
}

func TestUnknownEvent(t *testing.T) {
	s := newTestServer(t)
	s.expect(s.do(http.MethodGet, "/events/ghost.events.near/host", "", "", ""), http.StatusNotFound)
	s.expect(s.do(http.MethodGet, "/events/NOT-VALID/host", "", "", ""), http.StatusBadRequest)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodOptions, "/factory/events", "", "", "")
	s.expect(rec, http.StatusNoContent)
	if got := rec.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, HeaderAccount) {
		t.Fatalf("allowed headers = %q", got)
	}
}
