// Package model defines the core domain types for the event factory and the
// per-event ticketing contracts.
package model

// EventDetails is the descriptive part of an event. Date is a Unix timestamp
// with nanosecond resolution.
type EventDetails struct {
	Date        int64  `json:"date"`
	Location    string `json:"location"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

// Validate checks the only structural invariant details carry.
func (d EventDetails) Validate() error {
	if d.Date < 0 {
		return invalidf("event date must not be negative")
	}
	return nil
}

// Event is the full state of one event contract.
type Event struct {
	Host        AccountID    `json:"host"`
	Cohosts     []AccountID  `json:"cohosts"`
	Guests      []AccountID  `json:"guests"`
	Details     EventDetails `json:"details"`
	TicketPrice Amount       `json:"ticket_price"`
	MaxTickets  uint32       `json:"max_tickets"`
	TicketsSold uint32       `json:"tickets_sold"`
	IsPublic    bool         `json:"is_public"`
	Balance     Amount       `json:"balance"`
}

// Remaining returns the number of tickets still available.
func (e *Event) Remaining() uint32 {
	if e.TicketsSold >= e.MaxTickets {
		return 0
	}
	return e.MaxTickets - e.TicketsSold
}

// IsFull returns true when no tickets remain.
func (e *Event) IsFull() bool {
	return e.TicketsSold >= e.MaxTickets
}

// EntryStatus is the provisioning state of a factory entry.
type EntryStatus string

const (
	StatusPending   EntryStatus = "pending"
	StatusSucceeded EntryStatus = "succeeded"
	StatusFailed    EntryStatus = "failed"
)

// FactoryEntry records one attempt to create a named event contract.
// Address is only set once the entry has succeeded.
type FactoryEntry struct {
	Name      string      `json:"name"`
	Status    EntryStatus `json:"status"`
	Address   AccountID   `json:"address,omitempty"`
	Creator   AccountID   `json:"creator"`
	Deposit   Amount      `json:"deposit"`
	Attempt   string      `json:"attempt"`
	CreatedAt int64       `json:"created_at"`
}

// Blocks reports whether the entry keeps its name from being reused.
func (e *FactoryEntry) Blocks() bool {
	return e.Status == StatusPending || e.Status == StatusSucceeded
}

// CreateEventRequest is the payload for asking the factory to create an event.
type CreateEventRequest struct {
	Name    string       `json:"name"`
	Details EventDetails `json:"details"`
}

// AccountRequest carries a single account, e.g. a cohost or guest to add.
type AccountRequest struct {
	Account AccountID `json:"account"`
}

// MaxTicketsRequest is the payload for set_max_tickets.
type MaxTicketsRequest struct {
	MaxTickets uint32 `json:"max_tickets"`
}

// TicketPriceRequest is the payload for set_ticket_price.
type TicketPriceRequest struct {
	Price Amount `json:"price"`
}

// BalanceResponse reports how much an account has received from contracts.
type BalanceResponse struct {
	Account AccountID `json:"account"`
	Balance Amount    `json:"balance"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
