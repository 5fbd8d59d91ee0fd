// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Shivanand-hulikatti/event-factory/internal/chain"
	"github.com/Shivanand-hulikatti/event-factory/internal/model"
	"github.com/Shivanand-hulikatti/event-factory/internal/repository"
	"github.com/Shivanand-hulikatti/event-factory/internal/service"
	"github.com/go-chi/chi/v5"
)

// Headers carrying the caller's identity and the payment attached to a call.
const (
	HeaderAccount = "X-Account-Id"
	HeaderDeposit = "X-Attached-Deposit"
)

// EventHandler holds the HTTP handlers for event contracts.
type EventHandler struct {
	svc *service.EventService
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

// FactoryHandler holds the HTTP handlers for the factory.
type FactoryHandler struct {
	svc *service.FactoryService
}

// NewFactoryHandler constructs a FactoryHandler.
func NewFactoryHandler(svc *service.FactoryService) *FactoryHandler {
	return &FactoryHandler{svc: svc}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps a contract error onto an HTTP status.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, model.ErrInsufficientPayment):
		writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, model.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrCapacityExceeded),
		errors.Is(err, model.ErrAlreadyTicketed),
		errors.Is(err, model.ErrNameTaken),
		errors.Is(err, model.ErrNothingToPay),
		errors.Is(err, model.ErrNotInitialized),
		errors.Is(err, model.ErrAlreadyInitialized):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, repository.ErrConflict):
		writeError(w, http.StatusServiceUnavailable, "too much contention, try again")
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// caller reads the caller identity from the request.
func caller(r *http.Request) model.AccountID {
	return model.AccountID(strings.TrimSpace(r.Header.Get(HeaderAccount)))
}

// callFrom reads the caller identity and attached deposit from the request.
func callFrom(r *http.Request) (chain.Call, error) {
	call := chain.Call{Sender: caller(r)}
	if raw := r.Header.Get(HeaderDeposit); raw != "" {
		deposit, err := model.ParseAmount(raw)
		if err != nil {
			return chain.Call{}, fmt.Errorf("%s: %w", HeaderDeposit, err)
		}
		call.Deposit = deposit
	}
	return call, nil
}

func address(r *http.Request) model.AccountID {
	return model.AccountID(chi.URLParam(r, "address"))
}

func accountParam(r *http.Request) model.AccountID {
	return model.AccountID(chi.URLParam(r, "account"))
}

// ─── Factory ──────────────────────────────────────────────────────────────────

// CreateEvent handles POST /factory/events
// Records a pending entry and schedules the event contract's creation.
func (h *FactoryHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	call, err := callFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	entry, err := h.svc.CreateEvent(r.Context(), call, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, entry)
}

// ListEvents handles GET /factory/events
// Returns the names of successfully created events in creation order.
func (h *FactoryHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.ListEvents(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if names == nil {
		names = []string{}
	}

	writeJSON(w, http.StatusOK, names)
}

// GetEntry handles GET /factory/events/{name}
// Returns the provisioning status of a named event.
func (h *FactoryHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.svc.GetEntry(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// ─── Event reads ──────────────────────────────────────────────────────────────

// GetEvent handles GET /events/{address}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := h.svc.GetEvent(r.Context(), address(r), caller(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// GetHost handles GET /events/{address}/host
func (h *EventHandler) GetHost(w http.ResponseWriter, r *http.Request) {
	host, err := h.svc.GetHost(r.Context(), address(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]model.AccountID{"host": host})
}

// GetCohosts handles GET /events/{address}/cohosts
func (h *EventHandler) GetCohosts(w http.ResponseWriter, r *http.Request) {
	cohosts, err := h.svc.GetCohosts(r.Context(), address(r), caller(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cohosts)
}

// GetDetails handles GET /events/{address}/details
func (h *EventHandler) GetDetails(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetDetails(r.Context(), address(r), caller(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// GetTicketPrice handles GET /events/{address}/ticket-price
func (h *EventHandler) GetTicketPrice(w http.ResponseWriter, r *http.Request) {
	price, err := h.svc.GetTicketPrice(r.Context(), address(r), caller(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.TicketPriceRequest{Price: price})
}

// GetMaxTickets handles GET /events/{address}/max-tickets
func (h *EventHandler) GetMaxTickets(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.GetMaxTickets(r.Context(), address(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.MaxTicketsRequest{MaxTickets: n})
}

// GetTicketsSold handles GET /events/{address}/tickets-sold
func (h *EventHandler) GetTicketsSold(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.GetTicketsSold(r.Context(), address(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint32{"tickets_sold": n})
}

// GetBalance handles GET /events/{address}/balance
func (h *EventHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.svc.GetBalance(r.Context(), address(r), caller(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.BalanceResponse{Account: address(r), Balance: balance})
}

// GetGuests handles GET /events/{address}/guests
// Only the host and cohosts may list guests.
func (h *EventHandler) GetGuests(w http.ResponseWriter, r *http.Request) {
	guests, err := h.svc.GetGuests(r.Context(), address(r), caller(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, guests)
}

// HasTicket handles GET /events/{address}/tickets/{account}
func (h *EventHandler) HasTicket(w http.ResponseWriter, r *http.Request) {
	has, err := h.svc.HasTicket(r.Context(), address(r), accountParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"has_ticket": has})
}

// ─── Event mutations ──────────────────────────────────────────────────────────

// mutate runs op with the request's call and answers 204 on success.
func mutate(w http.ResponseWriter, r *http.Request, op func(chain.Call) error) {
	call, err := callFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := op(call); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// mutateWith decodes a JSON body into dst before running op.
func mutateWith(w http.ResponseWriter, r *http.Request, dst any, op func(chain.Call) error) {
	if err := decodeJSON(r, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	mutate(w, r, op)
}

// AddCohost handles POST /events/{address}/cohosts
func (h *EventHandler) AddCohost(w http.ResponseWriter, r *http.Request) {
	var req model.AccountRequest
	mutateWith(w, r, &req, func(call chain.Call) error {
		return h.svc.AddCohost(r.Context(), address(r), call, req.Account)
	})
}

// RemoveCohost handles DELETE /events/{address}/cohosts/{account}
func (h *EventHandler) RemoveCohost(w http.ResponseWriter, r *http.Request) {
	mutate(w, r, func(call chain.Call) error {
		return h.svc.RemoveCohost(r.Context(), address(r), call, accountParam(r))
	})
}

// AddGuest handles POST /events/{address}/guests
func (h *EventHandler) AddGuest(w http.ResponseWriter, r *http.Request) {
	var req model.AccountRequest
	mutateWith(w, r, &req, func(call chain.Call) error {
		return h.svc.AddGuest(r.Context(), address(r), call, req.Account)
	})
}

// RemoveGuest handles DELETE /events/{address}/guests/{account}
func (h *EventHandler) RemoveGuest(w http.ResponseWriter, r *http.Request) {
	mutate(w, r, func(call chain.Call) error {
		return h.svc.RemoveGuest(r.Context(), address(r), call, accountParam(r))
	})
}

// SetDetails handles PUT /events/{address}/details
func (h *EventHandler) SetDetails(w http.ResponseWriter, r *http.Request) {
	var req model.EventDetails
	mutateWith(w, r, &req, func(call chain.Call) error {
		return h.svc.SetDetails(r.Context(), address(r), call, req)
	})
}

// SetMaxTickets handles PUT /events/{address}/max-tickets
func (h *EventHandler) SetMaxTickets(w http.ResponseWriter, r *http.Request) {
	var req model.MaxTicketsRequest
	mutateWith(w, r, &req, func(call chain.Call) error {
		return h.svc.SetMaxTickets(r.Context(), address(r), call, req.MaxTickets)
	})
}

// SetTicketPrice handles PUT /events/{address}/ticket-price
func (h *EventHandler) SetTicketPrice(w http.ResponseWriter, r *http.Request) {
	var req model.TicketPriceRequest
	mutateWith(w, r, &req, func(call chain.Call) error {
		return h.svc.SetTicketPrice(r.Context(), address(r), call, req.Price)
	})
}

// GoPublic handles POST /events/{address}/public
func (h *EventHandler) GoPublic(w http.ResponseWriter, r *http.Request) {
	mutate(w, r, func(call chain.Call) error {
		return h.svc.GoPublic(r.Context(), address(r), call)
	})
}

// BuyTicket handles POST /events/{address}/tickets
// The attached deposit pays for the ticket; any excess is refunded.
func (h *EventHandler) BuyTicket(w http.ResponseWriter, r *http.Request) {
	call, err := callFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.svc.BuyTicket(r.Context(), address(r), call)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// PayHosts handles POST /events/{address}/payout
func (h *EventHandler) PayHosts(w http.ResponseWriter, r *http.Request) {
	call, err := callFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	paid, err := h.svc.PayHosts(r.Context(), address(r), call)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]model.Amount{"paid": paid})
}

// AccountBalance handles GET /accounts/{account}/balance
// Returns what the account has received from contracts.
func (h *EventHandler) AccountBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.svc.AccountBalance(r.Context(), accountParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.BalanceResponse{Account: accountParam(r), Balance: balance})
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
