// Package factory implements the registry contract that creates uniquely
// named event contracts and tracks their provisioning.
package factory

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Shivanand-hulikatti/event-factory/internal/chain"
	"github.com/Shivanand-hulikatti/event-factory/internal/event"
	"github.com/Shivanand-hulikatti/event-factory/internal/model"
	"github.com/google/uuid"
)

const (
	keyNames    = "names"
	entryPrefix = "entries/"
)

// Settings are the deployment parameters of a factory.
type Settings struct {
	// MinDeposit is the least a creator must attach to cover the new
	// contract's storage.
	MinDeposit model.Amount
	// PendingTimeout, when positive, lets create_event reclaim a name whose
	// instantiation has been pending for at least this long.
	PendingTimeout time.Duration
	Logger         *slog.Logger
}

// Contract is the factory bound to the execution context of one call.
type Contract struct {
	c   *chain.Context
	cfg Settings
	log *slog.Logger
}

// Bind returns the factory for the call executing in c.
func Bind(c *chain.Context, cfg Settings) *Contract {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Contract{c: c, cfg: cfg, log: log.With("factory", c.Self())}
}

// CreateEvent records a pending entry for name and schedules instantiation of
// an event contract at <name>.<factory>. The attached deposit is forwarded to
// the new contract. The returned entry is normally still pending; its outcome
// is delivered to OnEventCreated. When an earlier attempt whose outcome was
// never reported turns out to have deployed the contract, that entry is
// returned as succeeded instead and nothing is deployed.
func (f *Contract) CreateEvent(name string, details model.EventDetails) (*model.FactoryEntry, error) {
	address, err := f.c.Self().SubAccount(name)
	if err != nil {
		return nil, err
	}
	if err := details.Validate(); err != nil {
		return nil, err
	}
	deposit := f.c.Deposit()
	if deposit.Cmp(f.cfg.MinDeposit) < 0 {
		return nil, fmt.Errorf("%w: creating an event requires a deposit of at least %s, attached %s",
			model.ErrInsufficientPayment, f.cfg.MinDeposit, deposit)
	}

	existing, err := f.entry(name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Blocks() && !f.stale(existing) {
			return nil, fmt.Errorf("%w: %s", model.ErrNameTaken, name)
		}
		// A superseded or unreported attempt may still have produced the
		// contract; if so the name belongs to it.
		kind, live, err := f.c.Deployed(address)
		if err != nil {
			return nil, err
		}
		if live && kind == chain.KindEvent {
			return f.adopt(existing, address)
		}
		if existing.Status == model.StatusPending {
			f.log.Warn("reclaiming stale pending event",
				"name", name,
				"attempt", existing.Attempt,
				"creator", existing.Creator,
			)
			if err := f.c.Transfer(existing.Creator, existing.Deposit); err != nil {
				return nil, err
			}
		}
	}

	entry := &model.FactoryEntry{
		Name:      name,
		Status:    model.StatusPending,
		Creator:   f.c.Sender(),
		Deposit:   deposit,
		Attempt:   uuid.NewString(),
		CreatedAt: f.c.BlockTime(),
	}
	if err := chain.Save(f.c, entryPrefix+name, entry); err != nil {
		return nil, err
	}
	if err := f.remember(name); err != nil {
		return nil, err
	}

	cfg := f.cfg
	attempt := entry.Attempt
	f.c.Deploy(chain.DeployRequest{
		Address: address,
		Kind:    chain.KindEvent,
		Deposit: deposit,
		Creator: entry.Creator,
		Init:    event.Init(details),
		Callback: func(c *chain.Context, success bool) error {
			return Bind(c, cfg).OnEventCreated(name, attempt, success)
		},
	})

	f.log.Info("event creation pending", "name", name, "address", address, "attempt", attempt)
	return entry, nil
}

// adopt finalizes entry as succeeded for the event contract already live at
// address. The caller's deposit is returned since nothing new is deployed.
func (f *Contract) adopt(entry *model.FactoryEntry, address model.AccountID) (*model.FactoryEntry, error) {
	if err := f.c.Transfer(f.c.Sender(), f.c.Deposit()); err != nil {
		return nil, err
	}
	entry.Status = model.StatusSucceeded
	entry.Address = address
	if err := chain.Save(f.c, entryPrefix+entry.Name, entry); err != nil {
		return nil, err
	}
	f.log.Info("event creation succeeded without callback", "name", entry.Name, "address", address, "attempt", entry.Attempt)
	return entry, nil
}

// OnEventCreated finalizes the entry for name once instantiation resolves.
// Only the factory itself may call it. Callbacks for entries that are no
// longer pending, or that belong to a superseded attempt, are ignored, so
// delivering the same outcome twice is harmless.
func (f *Contract) OnEventCreated(name, attempt string, success bool) error {
	if f.c.Sender() != f.c.Self() {
		return fmt.Errorf("%w: on_event_created is reserved for the factory", model.ErrNotAuthorized)
	}
	entry, err := f.entry(name)
	if err != nil {
		return err
	}
	if entry == nil || entry.Status != model.StatusPending || entry.Attempt != attempt {
		f.log.Debug("ignoring stale creation callback", "name", name, "attempt", attempt)
		return nil
	}

	if success {
		address, err := f.c.Self().SubAccount(name)
		if err != nil {
			return err
		}
		entry.Status = model.StatusSucceeded
		entry.Address = address
		f.log.Info("event creation succeeded", "name", name, "address", address)
	} else {
		entry.Status = model.StatusFailed
		if err := f.c.Transfer(entry.Creator, entry.Deposit); err != nil {
			return err
		}
		f.log.Warn("event creation failed", "name", name, "refunded", entry.Deposit.String())
	}
	return chain.Save(f.c, entryPrefix+name, entry)
}

// GetEventNames returns the names of successfully created events in the order
// they were first requested.
func (f *Contract) GetEventNames() ([]string, error) {
	names, err := f.names()
	if err != nil {
		return nil, err
	}
	succeeded := make([]string, 0, len(names))
	for _, name := range names {
		entry, err := f.entry(name)
		if err != nil {
			return nil, err
		}
		if entry != nil && entry.Status == model.StatusSucceeded {
			succeeded = append(succeeded, name)
		}
	}
	return succeeded, nil
}

// GetEntry returns the provisioning record for name.
func (f *Contract) GetEntry(name string) (*model.FactoryEntry, error) {
	entry, err := f.entry(name)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: no event named %q", model.ErrNotFound, name)
	}
	return entry, nil
}

func (f *Contract) entry(name string) (*model.FactoryEntry, error) {
	var entry model.FactoryEntry
	ok, err := chain.Load(f.c, entryPrefix+name, &entry)
	if err != nil || !ok {
		return nil, err
	}
	return &entry, nil
}

func (f *Contract) names() ([]string, error) {
	var names []string
	_, err := chain.Load(f.c, keyNames, &names)
	return names, err
}

// remember appends name to the insertion order the first time it is seen.
func (f *Contract) remember(name string) error {
	names, err := f.names()
	if err != nil {
		return err
	}
	if slices.Contains(names, name) {
		return nil
	}
	return chain.Save(f.c, keyNames, append(names, name))
}

func (f *Contract) stale(entry *model.FactoryEntry) bool {
	if entry.Status != model.StatusPending || f.cfg.PendingTimeout <= 0 {
		return false
	}
	return f.c.BlockTime()-entry.CreatedAt >= f.cfg.PendingTimeout.Nanoseconds()
}
