// Package event implements the per-event ticketing contract: who may change
// what about one event, ticket sales bounded by capacity, and payout of the
// collected revenue to the host.
package event

import (
	"fmt"
	"slices"

	"github.com/Shivanand-hulikatti/event-factory/internal/chain"
	"github.com/Shivanand-hulikatti/event-factory/internal/model"
)

// Storage layout, relative to the contract's address.
const (
	keyHost        = "host"
	keyCohosts     = "cohosts"
	keyDetails     = "details"
	keyTicketPrice = "ticket_price"
	keyMaxTickets  = "max_tickets"
	keyTicketsSold = "tickets_sold"
	keyIsPublic    = "is_public"
	keyBalance     = "balance"
	guestPrefix    = "guests/"
)

// Role is the capability an account holds on an event. Higher roles include
// every capability of the lower ones.
type Role int

const (
	RoleNone Role = iota
	RoleGuest
	RoleCohost
	RoleHost
)

func (r Role) String() string {
	switch r {
	case RoleGuest:
		return "guest"
	case RoleCohost:
		return "cohost"
	case RoleHost:
		return "host"
	default:
		return "none"
	}
}

// Contract is the event contract bound to the execution context of one call.
type Contract struct {
	c *chain.Context
}

// Bind returns the contract for the call executing in c.
func Bind(c *chain.Context) *Contract {
	return &Contract{c: c}
}

// Initialize creates the event with the caller as host. It may run once.
func (e *Contract) Initialize(details model.EventDetails) error {
	initialized, err := chain.Has(e.c, keyHost)
	if err != nil {
		return err
	}
	if initialized {
		return model.ErrAlreadyInitialized
	}
	if err := details.Validate(); err != nil {
		return err
	}

	writes := []struct {
		key   string
		value any
	}{
		{keyHost, e.c.Sender()},
		{keyCohosts, []model.AccountID{}},
		{keyDetails, details},
		{keyTicketPrice, model.Amount{}},
		{keyMaxTickets, uint32(0)},
		{keyTicketsSold, uint32(0)},
		{keyIsPublic, false},
		{keyBalance, model.Amount{}},
	}
	for _, w := range writes {
		if err := chain.Save(e.c, w.key, w.value); err != nil {
			return err
		}
	}
	return nil
}

// ─── Reads ───────────────────────────────────────────────────────────────────

// Reads come in two tiers. The host, capacity, tickets sold and ticket
// ownership are open to anyone, so a private event's existence can be
// checked. The full event, details, cohosts, price and balance of a private
// event are only visible to its host, cohosts and guests.

// GetEvent returns the full event.
func (e *Contract) GetEvent() (*model.Event, error) {
	if err := e.visible(); err != nil {
		return nil, err
	}
	host, err := e.host()
	if err != nil {
		return nil, err
	}
	public, err := e.isPublic()
	if err != nil {
		return nil, err
	}

	ev := &model.Event{Host: host, IsPublic: public}
	if ev.Cohosts, err = e.cohosts(); err != nil {
		return nil, err
	}
	if ev.Guests, err = e.guests(); err != nil {
		return nil, err
	}
	if _, err := chain.Load(e.c, keyDetails, &ev.Details); err != nil {
		return nil, err
	}
	if ev.TicketPrice, err = chain.Amount(e.c, keyTicketPrice); err != nil {
		return nil, err
	}
	if ev.MaxTickets, err = e.counter(keyMaxTickets); err != nil {
		return nil, err
	}
	if ev.TicketsSold, err = e.counter(keyTicketsSold); err != nil {
		return nil, err
	}
	if ev.Balance, err = chain.Amount(e.c, keyBalance); err != nil {
		return nil, err
	}
	return ev, nil
}

// GetHost returns the host account.
func (e *Contract) GetHost() (model.AccountID, error) {
	return e.host()
}

// GetCohosts returns the cohosts in the order they were added.
func (e *Contract) GetCohosts() ([]model.AccountID, error) {
	if err := e.visible(); err != nil {
		return nil, err
	}
	return e.cohosts()
}

// GetDetails returns the descriptive details.
func (e *Contract) GetDetails() (model.EventDetails, error) {
	var d model.EventDetails
	if err := e.visible(); err != nil {
		return d, err
	}
	_, err := chain.Load(e.c, keyDetails, &d)
	return d, err
}

// GetTicketPrice returns the ticket price.
func (e *Contract) GetTicketPrice() (model.Amount, error) {
	if err := e.visible(); err != nil {
		return model.Amount{}, err
	}
	return chain.Amount(e.c, keyTicketPrice)
}

// GetMaxTickets returns the capacity.
func (e *Contract) GetMaxTickets() (uint32, error) {
	if _, err := e.host(); err != nil {
		return 0, err
	}
	return e.counter(keyMaxTickets)
}

// GetTicketsSold returns the number of guests.
func (e *Contract) GetTicketsSold() (uint32, error) {
	if _, err := e.host(); err != nil {
		return 0, err
	}
	return e.counter(keyTicketsSold)
}

// GetBalance returns the revenue held until payout.
func (e *Contract) GetBalance() (model.Amount, error) {
	if err := e.visible(); err != nil {
		return model.Amount{}, err
	}
	return chain.Amount(e.c, keyBalance)
}

// GetGuests returns the guest list. Only the host and cohosts may read it.
func (e *Contract) GetGuests() ([]model.AccountID, error) {
	if err := e.require(RoleCohost); err != nil {
		return nil, err
	}
	return e.guests()
}

// HasTicket reports whether account is on the guest list.
func (e *Contract) HasTicket(account model.AccountID) (bool, error) {
	if _, err := e.host(); err != nil {
		return false, err
	}
	return e.isGuest(account)
}

// ─── Host and cohost administration ─────────────────────────────────────────

// AddCohost grants account cohost privileges. Host only; adding an existing
// cohost is a no-op.
func (e *Contract) AddCohost(account model.AccountID) error {
	if err := e.require(RoleHost); err != nil {
		return err
	}
	if err := account.Validate(); err != nil {
		return err
	}
	if account == e.c.Sender() {
		return fmt.Errorf("%w: the host cannot also be a cohost", model.ErrInvalidArgument)
	}
	cohosts, err := e.cohosts()
	if err != nil {
		return err
	}
	if slices.Contains(cohosts, account) {
		return nil
	}
	return chain.Save(e.c, keyCohosts, append(cohosts, account))
}

// RemoveCohost revokes account's cohost privileges. Host only; removing a
// non-cohost is a no-op.
func (e *Contract) RemoveCohost(account model.AccountID) error {
	if err := e.require(RoleHost); err != nil {
		return err
	}
	cohosts, err := e.cohosts()
	if err != nil {
		return err
	}
	i := slices.Index(cohosts, account)
	if i < 0 {
		return nil
	}
	return chain.Save(e.c, keyCohosts, slices.Delete(cohosts, i, i+1))
}

// AddGuest puts account on the guest list without payment.
func (e *Contract) AddGuest(account model.AccountID) error {
	if err := e.require(RoleCohost); err != nil {
		return err
	}
	if err := account.Validate(); err != nil {
		return err
	}
	already, err := e.isGuest(account)
	if err != nil || already {
		return err
	}
	sold, limit, err := e.capacity()
	if err != nil {
		return err
	}
	if sold >= limit {
		return model.ErrCapacityExceeded
	}
	return e.admit(account, sold)
}

// RemoveGuest takes account off the guest list. Revenue already collected
// for the ticket stays in the balance.
func (e *Contract) RemoveGuest(account model.AccountID) error {
	if err := e.require(RoleCohost); err != nil {
		return err
	}
	present, err := e.isGuest(account)
	if err != nil || !present {
		return err
	}
	sold, err := e.counter(keyTicketsSold)
	if err != nil {
		return err
	}
	if err := chain.Remove(e.c, guestPrefix+string(account)); err != nil {
		return err
	}
	return chain.Save(e.c, keyTicketsSold, sold-1)
}

// SetDetails replaces the descriptive details.
func (e *Contract) SetDetails(details model.EventDetails) error {
	if err := e.require(RoleCohost); err != nil {
		return err
	}
	if err := details.Validate(); err != nil {
		return err
	}
	return chain.Save(e.c, keyDetails, details)
}

// SetMaxTickets changes the capacity. It may not drop below tickets sold.
func (e *Contract) SetMaxTickets(n uint32) error {
	if err := e.require(RoleCohost); err != nil {
		return err
	}
	sold, err := e.counter(keyTicketsSold)
	if err != nil {
		return err
	}
	if n < sold {
		return fmt.Errorf("%w: max tickets %d is below the %d already sold", model.ErrInvalidArgument, n, sold)
	}
	return chain.Save(e.c, keyMaxTickets, n)
}

// SetTicketPrice changes the price. The price is frozen once the event is
// public and has sold a ticket.
func (e *Contract) SetTicketPrice(price model.Amount) error {
	if err := e.require(RoleCohost); err != nil {
		return err
	}
	public, err := e.isPublic()
	if err != nil {
		return err
	}
	sold, err := e.counter(keyTicketsSold)
	if err != nil {
		return err
	}
	if public && sold > 0 {
		return fmt.Errorf("%w: the ticket price is locked once public tickets have sold", model.ErrInvalidArgument)
	}
	return chain.Save(e.c, keyTicketPrice, price)
}

// GoPublic opens ticket sales. It cannot be undone.
func (e *Contract) GoPublic() error {
	if err := e.require(RoleCohost); err != nil {
		return err
	}
	return chain.Save(e.c, keyIsPublic, true)
}

// ─── Sales and payout ───────────────────────────────────────────────────────

// Purchase is the outcome of a successful BuyTicket.
type Purchase struct {
	Paid     model.Amount `json:"paid"`
	Refunded model.Amount `json:"refunded"`
}

// BuyTicket sells the caller a ticket for the attached deposit. Anything paid
// above the ticket price is refunded to the caller.
func (e *Contract) BuyTicket() (*Purchase, error) {
	if _, err := e.host(); err != nil {
		return nil, err
	}
	public, err := e.isPublic()
	if err != nil {
		return nil, err
	}
	if !public {
		return nil, fmt.Errorf("%w: tickets are not on sale until the event is public", model.ErrNotAuthorized)
	}
	sold, limit, err := e.capacity()
	if err != nil {
		return nil, err
	}
	if sold >= limit {
		return nil, model.ErrCapacityExceeded
	}
	price, err := chain.Amount(e.c, keyTicketPrice)
	if err != nil {
		return nil, err
	}
	paid := e.c.Deposit()
	if paid.Cmp(price) < 0 {
		return nil, fmt.Errorf("%w: ticket costs %s, attached %s", model.ErrInsufficientPayment, price, paid)
	}
	buyer := e.c.Sender()
	already, err := e.isGuest(buyer)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, model.ErrAlreadyTicketed
	}

	if err := e.admit(buyer, sold); err != nil {
		return nil, err
	}
	balance, err := chain.Amount(e.c, keyBalance)
	if err != nil {
		return nil, err
	}
	if balance, err = balance.Add(price); err != nil {
		return nil, err
	}
	if err := chain.Save(e.c, keyBalance, balance); err != nil {
		return nil, err
	}
	excess, err := paid.Sub(price)
	if err != nil {
		return nil, err
	}
	if err := e.c.Transfer(buyer, excess); err != nil {
		return nil, err
	}
	return &Purchase{Paid: price, Refunded: excess}, nil
}

// PayHosts transfers the whole balance to the host.
func (e *Contract) PayHosts() (model.Amount, error) {
	if err := e.require(RoleCohost); err != nil {
		return model.Amount{}, err
	}
	balance, err := chain.Amount(e.c, keyBalance)
	if err != nil {
		return model.Amount{}, err
	}
	if balance.IsZero() {
		return model.Amount{}, model.ErrNothingToPay
	}
	host, err := e.host()
	if err != nil {
		return model.Amount{}, err
	}
	if err := e.c.Transfer(host, balance); err != nil {
		return model.Amount{}, err
	}
	if err := chain.Save(e.c, keyBalance, model.Amount{}); err != nil {
		return model.Amount{}, err
	}
	return balance, nil
}

// ─── Internal helpers ───────────────────────────────────────────────────────

func (e *Contract) host() (model.AccountID, error) {
	var host model.AccountID
	ok, err := chain.Load(e.c, keyHost, &host)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", model.ErrNotInitialized
	}
	return host, nil
}

// RoleOf returns the highest role account holds.
func (e *Contract) RoleOf(account model.AccountID) (Role, error) {
	host, err := e.host()
	if err != nil {
		return RoleNone, err
	}
	if account == "" {
		return RoleNone, nil
	}
	if account == host {
		return RoleHost, nil
	}
	cohosts, err := e.cohosts()
	if err != nil {
		return RoleNone, err
	}
	if slices.Contains(cohosts, account) {
		return RoleCohost, nil
	}
	guest, err := e.isGuest(account)
	if err != nil {
		return RoleNone, err
	}
	if guest {
		return RoleGuest, nil
	}
	return RoleNone, nil
}

// require fails with ErrNotAuthorized unless the caller holds at least want.
func (e *Contract) require(want Role) error {
	role, err := e.RoleOf(e.c.Sender())
	if err != nil {
		return err
	}
	if role < want {
		return fmt.Errorf("%w: %s lacks the %s role", model.ErrNotAuthorized, e.c.Sender(), want)
	}
	return nil
}

// visible fails with ErrNotAuthorized when the event is private and the
// caller holds no role on it.
func (e *Contract) visible() error {
	public, err := e.isPublic()
	if err != nil || public {
		return err
	}
	return e.require(RoleGuest)
}

func (e *Contract) cohosts() ([]model.AccountID, error) {
	var cohosts []model.AccountID
	if _, err := chain.Load(e.c, keyCohosts, &cohosts); err != nil {
		return nil, err
	}
	if cohosts == nil {
		cohosts = []model.AccountID{}
	}
	return cohosts, nil
}

func (e *Contract) guests() ([]model.AccountID, error) {
	keys, err := chain.Keys(e.c, guestPrefix)
	if err != nil {
		return nil, err
	}
	guests := make([]model.AccountID, len(keys))
	for i, k := range keys {
		guests[i] = model.AccountID(k)
	}
	return guests, nil
}

func (e *Contract) isGuest(account model.AccountID) (bool, error) {
	if account == "" {
		return false, nil
	}
	return chain.Has(e.c, guestPrefix+string(account))
}

func (e *Contract) isPublic() (bool, error) {
	var public bool
	_, err := chain.Load(e.c, keyIsPublic, &public)
	return public, err
}

func (e *Contract) counter(key string) (uint32, error) {
	var n uint32
	_, err := chain.Load(e.c, key, &n)
	return n, err
}

func (e *Contract) capacity() (sold, limit uint32, err error) {
	if sold, err = e.counter(keyTicketsSold); err != nil {
		return 0, 0, err
	}
	if limit, err = e.counter(keyMaxTickets); err != nil {
		return 0, 0, err
	}
	return sold, limit, nil
}

// admit adds account to the guest list; sold is the count before admission.
func (e *Contract) admit(account model.AccountID, sold uint32) error {
	if err := chain.Save(e.c, guestPrefix+string(account), true); err != nil {
		return err
	}
	return chain.Save(e.c, keyTicketsSold, sold+1)
}
