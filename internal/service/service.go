// Package service orchestrates HTTP-level requests into contract calls on the
// runtime: it resolves addresses, attaches the caller and deposit, and picks
// the contract entry point.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Shivanand-hulikatti/event-factory/internal/chain"
	"github.com/Shivanand-hulikatti/event-factory/internal/event"
	"github.com/Shivanand-hulikatti/event-factory/internal/factory"
	"github.com/Shivanand-hulikatti/event-factory/internal/metrics"
	"github.com/Shivanand-hulikatti/event-factory/internal/model"
)

// EventService runs event contract operations.
type EventService struct {
	rt *chain.Runtime
}

// NewEventService constructs an EventService over rt.
func NewEventService(rt *chain.Runtime) *EventService {
	return &EventService{rt: rt}
}

func (s *EventService) view(ctx context.Context, address model.AccountID, m chain.Method, sender model.AccountID, fn func(*event.Contract) error) error {
	if err := address.Validate(); err != nil {
		return err
	}
	return s.rt.View(ctx, address, m, sender, func(c *chain.Context) error {
		return fn(event.Bind(c))
	})
}

func (s *EventService) execute(ctx context.Context, address model.AccountID, m chain.Method, call chain.Call, fn func(*event.Contract) error) error {
	if err := address.Validate(); err != nil {
		return err
	}
	return s.rt.Execute(ctx, address, m, call, func(c *chain.Context) error {
		return fn(event.Bind(c))
	})
}

// GetEvent returns the full event as seen by sender.
func (s *EventService) GetEvent(ctx context.Context, address, sender model.AccountID) (*model.Event, error) {
	var ev *model.Event
	err := s.view(ctx, address, event.MethodGetEvent, sender, func(e *event.Contract) (err error) {
		ev, err = e.GetEvent()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

// GetHost returns the host of the event.
func (s *EventService) GetHost(ctx context.Context, address model.AccountID) (model.AccountID, error) {
	var host model.AccountID
	err := s.view(ctx, address, event.MethodGetHost, "", func(e *event.Contract) (err error) {
		host, err = e.GetHost()
		return err
	})
	return host, err
}

// GetCohosts returns the cohosts of the event as seen by sender.
func (s *EventService) GetCohosts(ctx context.Context, address, sender model.AccountID) ([]model.AccountID, error) {
	var cohosts []model.AccountID
	err := s.view(ctx, address, event.MethodGetCohosts, sender, func(e *event.Contract) (err error) {
		cohosts, err = e.GetCohosts()
		return err
	})
	return cohosts, err
}

// GetDetails returns the descriptive details of the event as seen by sender.
func (s *EventService) GetDetails(ctx context.Context, address, sender model.AccountID) (model.EventDetails, error) {
	var d model.EventDetails
	err := s.view(ctx, address, event.MethodGetDetails, sender, func(e *event.Contract) (err error) {
		d, err = e.GetDetails()
		return err
	})
	return d, err
}

// GetTicketPrice returns the ticket price as seen by sender.
func (s *EventService) GetTicketPrice(ctx context.Context, address, sender model.AccountID) (model.Amount, error) {
	var price model.Amount
	err := s.view(ctx, address, event.MethodGetTicketPrice, sender, func(e *event.Contract) (err error) {
		price, err = e.GetTicketPrice()
		return err
	})
	return price, err
}

// GetMaxTickets returns the capacity.
func (s *EventService) GetMaxTickets(ctx context.Context, address model.AccountID) (uint32, error) {
	var n uint32
	err := s.view(ctx, address, event.MethodGetMaxTickets, "", func(e *event.Contract) (err error) {
		n, err = e.GetMaxTickets()
		return err
	})
	return n, err
}

// GetTicketsSold returns the number of tickets sold.
func (s *EventService) GetTicketsSold(ctx context.Context, address model.AccountID) (uint32, error) {
	var n uint32
	err := s.view(ctx, address, event.MethodGetTicketsSold, "", func(e *event.Contract) (err error) {
		n, err = e.GetTicketsSold()
		return err
	})
	return n, err
}

// GetBalance returns the revenue held by the event as seen by sender.
func (s *EventService) GetBalance(ctx context.Context, address, sender model.AccountID) (model.Amount, error) {
	var balance model.Amount
	err := s.view(ctx, address, event.MethodGetBalance, sender, func(e *event.Contract) (err error) {
		balance, err = e.GetBalance()
		return err
	})
	return balance, err
}

// GetGuests returns the guest list. sender must be the host or a cohost.
func (s *EventService) GetGuests(ctx context.Context, address, sender model.AccountID) ([]model.AccountID, error) {
	var guests []model.AccountID
	err := s.view(ctx, address, event.MethodGetGuests, sender, func(e *event.Contract) (err error) {
		guests, err = e.GetGuests()
		return err
	})
	return guests, err
}

// HasTicket reports whether account holds a ticket.
func (s *EventService) HasTicket(ctx context.Context, address, account model.AccountID) (bool, error) {
	var has bool
	err := s.view(ctx, address, event.MethodHasTicket, "", func(e *event.Contract) (err error) {
		has, err = e.HasTicket(account)
		return err
	})
	return has, err
}

// AddCohost grants account cohost privileges.
func (s *EventService) AddCohost(ctx context.Context, address model.AccountID, call chain.Call, account model.AccountID) error {
	return s.execute(ctx, address, event.MethodAddCohost, call, func(e *event.Contract) error {
		return e.AddCohost(account)
	})
}

// RemoveCohost revokes account's cohost privileges.
func (s *EventService) RemoveCohost(ctx context.Context, address model.AccountID, call chain.Call, account model.AccountID) error {
	return s.execute(ctx, address, event.MethodRemoveCohost, call, func(e *event.Contract) error {
		return e.RemoveCohost(account)
	})
}

// AddGuest puts account on the guest list.
func (s *EventService) AddGuest(ctx context.Context, address model.AccountID, call chain.Call, account model.AccountID) error {
	return s.execute(ctx, address, event.MethodAddGuest, call, func(e *event.Contract) error {
		return e.AddGuest(account)
	})
}

// RemoveGuest takes account off the guest list.
func (s *EventService) RemoveGuest(ctx context.Context, address model.AccountID, call chain.Call, account model.AccountID) error {
	return s.execute(ctx, address, event.MethodRemoveGuest, call, func(e *event.Contract) error {
		return e.RemoveGuest(account)
	})
}

// SetDetails replaces the event details.
func (s *EventService) SetDetails(ctx context.Context, address model.AccountID, call chain.Call, details model.EventDetails) error {
	return s.execute(ctx, address, event.MethodSetDetails, call, func(e *event.Contract) error {
		return e.SetDetails(details)
	})
}

// SetMaxTickets changes the capacity.
func (s *EventService) SetMaxTickets(ctx context.Context, address model.AccountID, call chain.Call, n uint32) error {
	return s.execute(ctx, address, event.MethodSetMaxTickets, call, func(e *event.Contract) error {
		return e.SetMaxTickets(n)
	})
}

// SetTicketPrice changes the ticket price.
func (s *EventService) SetTicketPrice(ctx context.Context, address model.AccountID, call chain.Call, price model.Amount) error {
	return s.execute(ctx, address, event.MethodSetTicketPrice, call, func(e *event.Contract) error {
		return e.SetTicketPrice(price)
	})
}

// GoPublic opens ticket sales.
func (s *EventService) GoPublic(ctx context.Context, address model.AccountID, call chain.Call) error {
	return s.execute(ctx, address, event.MethodGoPublic, call, func(e *event.Contract) error {
		return e.GoPublic()
	})
}

// BuyTicket sells call.Sender a ticket for the attached deposit.
func (s *EventService) BuyTicket(ctx context.Context, address model.AccountID, call chain.Call) (*event.Purchase, error) {
	var p *event.Purchase
	err := s.execute(ctx, address, event.MethodBuyTicket, call, func(e *event.Contract) (err error) {
		p, err = e.BuyTicket()
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.TicketsSold.Inc()
	slog.Info("ticket sold", "address", address, "buyer", call.Sender, "paid", p.Paid.String())
	return p, nil
}

// PayHosts pays the event balance out to the host and returns the amount.
func (s *EventService) PayHosts(ctx context.Context, address model.AccountID, call chain.Call) (model.Amount, error) {
	var paid model.Amount
	err := s.execute(ctx, address, event.MethodPayHosts, call, func(e *event.Contract) (err error) {
		paid, err = e.PayHosts()
		return err
	})
	if err != nil {
		return model.Amount{}, err
	}
	metrics.Payouts.Inc()
	slog.Info("hosts paid", "address", address, "amount", paid.String())
	return paid, nil
}

// AccountBalance returns what account has received from contracts.
func (s *EventService) AccountBalance(ctx context.Context, account model.AccountID) (model.Amount, error) {
	if err := account.Validate(); err != nil {
		return model.Amount{}, err
	}
	return s.rt.Balance(ctx, account)
}

// FactoryService runs factory contract operations against the factory
// deployed at one account.
type FactoryService struct {
	rt      *chain.Runtime
	account model.AccountID
	cfg     factory.Settings
}

// NewFactoryService constructs a FactoryService for the factory at account.
func NewFactoryService(rt *chain.Runtime, account model.AccountID, cfg factory.Settings) *FactoryService {
	return &FactoryService{rt: rt, account: account, cfg: cfg}
}

// Account is the factory's own address.
func (s *FactoryService) Account() model.AccountID {
	return s.account
}

// Deploy installs the factory contract at its account if it is not there yet.
func (s *FactoryService) Deploy(ctx context.Context) error {
	return s.rt.Genesis(ctx, s.account, chain.KindFactory)
}

// CreateEvent validates the request and asks the factory to create the event.
// The returned entry is pending; poll GetEntry for the outcome.
func (s *FactoryService) CreateEvent(ctx context.Context, call chain.Call, req model.CreateEventRequest) (*model.FactoryEntry, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, fmt.Errorf("%w: event name is required", model.ErrInvalidArgument)
	}
	var entry *model.FactoryEntry
	err := s.rt.Execute(ctx, s.account, factory.MethodCreateEvent, call, func(c *chain.Context) (err error) {
		entry, err = factory.Bind(c, s.cfg).CreateEvent(req.Name, req.Details)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListEvents returns the names of successfully created events.
func (s *FactoryService) ListEvents(ctx context.Context) ([]string, error) {
	var names []string
	err := s.rt.View(ctx, s.account, factory.MethodGetEventNames, "", func(c *chain.Context) (err error) {
		names, err = factory.Bind(c, s.cfg).GetEventNames()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return names, nil
}

// GetEntry returns the provisioning record for name.
func (s *FactoryService) GetEntry(ctx context.Context, name string) (*model.FactoryEntry, error) {
	var entry *model.FactoryEntry
	err := s.rt.View(ctx, s.account, factory.MethodGetEntry, "", func(c *chain.Context) (err error) {
		entry, err = factory.Bind(c, s.cfg).GetEntry(name)
		return err
	})
	return entry, err
}
