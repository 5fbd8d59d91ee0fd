// Package chain is the execution environment contracts run in. It supplies
// each call with the caller's identity, the attached deposit, the block time
// and storage scoped to the called contract, executes the call as a single
// store transaction, and instantiates new contracts asynchronously on behalf
// of the factory.
package chain

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/event-factory/internal/model"
	"github.com/Shivanand-hulikatti/event-factory/internal/repository"
)

// Kind names the contract code deployed at an address.
type Kind string

const (
	KindFactory Kind = "factory"
	KindEvent   Kind = "event"
)

// Method describes the entry point being invoked.
type Method struct {
	Contract Kind
	Name     string
	// Payable methods may receive an attached deposit. Every other method
	// rejects one, so funds are never silently absorbed.
	Payable bool
}

// Call is what a client supplies with a method invocation.
type Call struct {
	Sender  model.AccountID
	Deposit model.Amount
}

// Keys reserved by the runtime start with '$', which no account may contain.
const (
	codeKey      = "$code"
	ledgerPrefix = "$ledger/"
)

// Context is the execution context of one contract call.
type Context struct {
	ctx       context.Context
	self      model.AccountID
	call      Call
	blockTime int64
	txn       repository.Txn
	storage   repository.Txn
	deploys   []DeployRequest
}

func newContext(ctx context.Context, txn repository.Txn, self model.AccountID, call Call, blockTime int64) *Context {
	return &Context{
		ctx:       ctx,
		self:      self,
		call:      call,
		blockTime: blockTime,
		txn:       txn,
		storage:   repository.Scope(txn, string(self)),
	}
}

// Context returns the request context.
func (c *Context) Context() context.Context { return c.ctx }

// Self is the address of the contract being called.
func (c *Context) Self() model.AccountID { return c.self }

// Sender is the account that made the call.
func (c *Context) Sender() model.AccountID { return c.call.Sender }

// Deposit is the payment attached to the call.
func (c *Context) Deposit() model.Amount { return c.call.Deposit }

// BlockTime is the Unix time, in nanoseconds, at which the call executes.
func (c *Context) BlockTime() int64 { return c.blockTime }

// Storage is the contract's own key/value space.
func (c *Context) Storage() repository.Txn { return c.storage }

// Transfer sends amount from the contract to account. It takes effect only if
// the call commits.
func (c *Context) Transfer(to model.AccountID, amount model.Amount) error {
	if amount.IsZero() {
		return nil
	}
	if err := to.Validate(); err != nil {
		return fmt.Errorf("transfer recipient: %w", err)
	}
	return credit(c.ctx, c.txn, to, amount)
}

// DeployRequest asks the runtime to instantiate a contract once the current
// call commits.
type DeployRequest struct {
	// Address the new contract is created under. Instantiation fails if any
	// contract already lives there.
	Address model.AccountID
	Kind    Kind
	// Deposit is forwarded to the new account when instantiation succeeds.
	Deposit model.Amount
	// Init runs on the new contract as a call from Creator.
	Creator model.AccountID
	Init    func(c *Context) error
	// Callback runs on the deploying contract, as a call from itself, after
	// instantiation resolves.
	Callback func(c *Context, success bool) error

	deployer model.AccountID
}

// Deploy schedules req. Nothing happens if the current call fails.
func (c *Context) Deploy(req DeployRequest) {
	req.deployer = c.self
	c.deploys = append(c.deploys, req)
}

// Deployed reports which contract, if any, lives at address.
func (c *Context) Deployed(address model.AccountID) (Kind, bool, error) {
	return deployedKind(c.ctx, c.txn, address)
}
