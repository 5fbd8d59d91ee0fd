package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the HTTP API over the factory and event handlers.
func NewRouter(factory *FactoryHandler, events *EventHandler) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger)                  // structured access log
	r.Use(CORS)                    // permissive CORS for browser wallets

	r.Get("/health", HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/factory/events", func(r chi.Router) {
		r.Post("/", factory.CreateEvent)
		r.Get("/", factory.ListEvents)
		r.Get("/{name}", factory.GetEntry)
	})

	r.Route("/events/{address}", func(r chi.Router) {
		r.Get("/", events.GetEvent)
		r.Get("/host", events.GetHost)
		r.Get("/details", events.GetDetails)
		r.Get("/ticket-price", events.GetTicketPrice)
		r.Get("/max-tickets", events.GetMaxTickets)
		r.Get("/tickets-sold", events.GetTicketsSold)
		r.Get("/balance", events.GetBalance)

		r.Get("/cohosts", events.GetCohosts)
		r.Post("/cohosts", events.AddCohost)
		r.Delete("/cohosts/{account}", events.RemoveCohost)

		r.Get("/guests", events.GetGuests)
		r.Post("/guests", events.AddGuest)
		r.Delete("/guests/{account}", events.RemoveGuest)

		r.Put("/details", events.SetDetails)
		r.Put("/max-tickets", events.SetMaxTickets)
		r.Put("/ticket-price", events.SetTicketPrice)

		r.Post("/public", events.GoPublic)
		r.Post("/tickets", events.BuyTicket)
		r.Get("/tickets/{account}", events.HasTicket)
		r.Post("/payout", events.PayHosts)
	})

	r.Get("/accounts/{account}/balance", events.AccountBalance)

	return r
}
