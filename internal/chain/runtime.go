package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/event-factory/internal/codec"
	"github.com/Shivanand-hulikatti/event-factory/internal/metrics"
	"github.com/Shivanand-hulikatti/event-factory/internal/model"
	"github.com/Shivanand-hulikatti/event-factory/internal/repository"
	"github.com/Shivanand-hulikatti/event-factory/internal/retry"
)

// Options configures a Runtime. Zero values select defaults.
type Options struct {
	// Workers is the number of concurrent instantiations.
	Workers int
	// QueueSize bounds instantiations waiting for a worker; callers block
	// when it is full.
	QueueSize int
	// Backoff re-runs transactions that failed with repository.ErrConflict.
	Backoff *retry.Backoff
	// Clock supplies block time.
	Clock func() time.Time
	Logger *slog.Logger
}

// Runtime executes contract calls against a Store.
type Runtime struct {
	store   repository.Store
	backoff *retry.Backoff
	clock   func() time.Time
	log     *slog.Logger

	queue   chan DeployRequest
	workers sync.WaitGroup
	pending sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewRuntime starts a Runtime and its deploy workers.
func NewRuntime(store repository.Store, opts Options) *Runtime {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize < 0 {
		opts.QueueSize = 0
	}
	if opts.Backoff == nil {
		opts.Backoff = retry.NewBackoff(5, 10*time.Millisecond, time.Second, IsConflict)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	r := &Runtime{
		store:   store,
		backoff: opts.Backoff,
		clock:   opts.Clock,
		log:     opts.Logger,
		queue:   make(chan DeployRequest, opts.QueueSize),
	}
	for i := 0; i < opts.Workers; i++ {
		r.workers.Add(1)
		go r.worker(i)
	}
	return r
}

// IsConflict reports whether err is worth retrying from scratch.
func IsConflict(err error) bool {
	return errors.Is(err, repository.ErrConflict)
}

// Genesis deploys a contract of kind at address outside of any call, as the
// environment does for top-level accounts. It is a no-op if the same kind is
// already deployed there.
func (r *Runtime) Genesis(ctx context.Context, address model.AccountID, kind Kind) error {
	if err := address.Validate(); err != nil {
		return err
	}
	return r.update(ctx, func(txn repository.Txn) error {
		existing, ok, err := deployedKind(ctx, txn, address)
		if err != nil {
			return err
		}
		if ok {
			if existing != kind {
				return fmt.Errorf("%w: %s already holds a %s contract", model.ErrInvalidArgument, address, existing)
			}
			return nil
		}
		return setKind(ctx, txn, address, kind)
	})
}

// Execute runs fn as method on the contract at address. The call commits
// atomically; any error leaves storage untouched. Deploy requests made by fn
// are dispatched after the commit.
func (r *Runtime) Execute(ctx context.Context, address model.AccountID, m Method, call Call, fn func(*Context) error) error {
	start := time.Now()
	var deploys []DeployRequest

	err := r.update(ctx, func(txn repository.Txn) error {
		deploys = nil
		if call.Sender == "" {
			return fmt.Errorf("%w: caller identity is required", model.ErrNotAuthorized)
		}
		if err := call.Sender.Validate(); err != nil {
			return err
		}
		if !m.Payable && !call.Deposit.IsZero() {
			return fmt.Errorf("%w: %s does not accept an attached deposit", model.ErrInvalidArgument, m.Name)
		}
		c, err := r.enter(ctx, txn, address, m, call)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		deploys = c.deploys
		return nil
	})

	metrics.Calls.WithLabelValues(string(m.Contract), m.Name, metrics.Outcome(err)).Inc()
	metrics.CallDuration.WithLabelValues(string(m.Contract)).Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	for _, d := range deploys {
		r.enqueue(d)
	}
	return nil
}

// View runs fn as a read-only method. sender may be empty for anonymous reads.
func (r *Runtime) View(ctx context.Context, address model.AccountID, m Method, sender model.AccountID, fn func(*Context) error) error {
	err := r.store.View(ctx, func(txn repository.Txn) error {
		c, err := r.enter(ctx, txn, address, m, Call{Sender: sender})
		if err != nil {
			return err
		}
		return fn(c)
	})
	metrics.Calls.WithLabelValues(string(m.Contract), m.Name, metrics.Outcome(err)).Inc()
	return err
}

// Balance returns the total an account has received from contracts.
func (r *Runtime) Balance(ctx context.Context, account model.AccountID) (model.Amount, error) {
	var a model.Amount
	err := r.store.View(ctx, func(txn repository.Txn) error {
		var err error
		a, err = balance(ctx, txn, account)
		return err
	})
	return a, err
}

// Wait blocks until every scheduled instantiation, including its callback,
// has finished.
func (r *Runtime) Wait() {
	r.pending.Wait()
}

// Close drains the deploy queue and stops the workers.
func (r *Runtime) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.pending.Wait()
	close(r.queue)
	r.workers.Wait()
}

func (r *Runtime) update(ctx context.Context, fn func(repository.Txn) error) error {
	return r.backoff.Execute(ctx, func() error {
		return r.store.Update(ctx, fn)
	})
}

func (r *Runtime) enter(ctx context.Context, txn repository.Txn, address model.AccountID, m Method, call Call) (*Context, error) {
	kind, ok, err := deployedKind(ctx, txn, address)
	if err != nil {
		return nil, err
	}
	if !ok || kind != m.Contract {
		return nil, fmt.Errorf("%w: no %s contract at %s", model.ErrNotFound, m.Contract, address)
	}
	return newContext(ctx, txn, address, call, r.clock().UnixNano()), nil
}

func (r *Runtime) enqueue(req DeployRequest) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	r.pending.Add(1)
	if r.closed {
		// Nothing will pick the request up; resolve it as failed so the
		// deployer does not wait on it forever.
		r.log.Error("runtime closed, failing deployment", "address", req.Address)
		go func() {
			defer r.pending.Done()
			r.resolve(context.Background(), req, false)
		}()
		return
	}
	metrics.DeployQueueDepth.Inc()
	r.queue <- req
}

func (r *Runtime) worker(id int) {
	defer r.workers.Done()
	for req := range r.queue {
		metrics.DeployQueueDepth.Dec()
		r.instantiate(context.Background(), id, req)
		r.pending.Done()
	}
}

func (r *Runtime) instantiate(ctx context.Context, worker int, req DeployRequest) {
	err := r.update(ctx, func(txn repository.Txn) error {
		if err := req.Address.Validate(); err != nil {
			return err
		}
		if _, exists, err := deployedKind(ctx, txn, req.Address); err != nil {
			return err
		} else if exists {
			return fmt.Errorf("%w: account %s already exists", model.ErrInvalidArgument, req.Address)
		}
		if err := setKind(ctx, txn, req.Address, req.Kind); err != nil {
			return err
		}
		c := newContext(ctx, txn, req.Address, Call{Sender: req.Creator, Deposit: req.Deposit}, r.clock().UnixNano())
		if req.Init != nil {
			if err := req.Init(c); err != nil {
				return err
			}
		}
		return credit(ctx, txn, req.Address, req.Deposit)
	})

	success := err == nil
	if success {
		metrics.Deployments.WithLabelValues("succeeded").Inc()
		r.log.Info("contract instantiated",
			"worker_id", worker,
			"address", req.Address,
			"kind", req.Kind,
			"creator", req.Creator,
		)
	} else {
		metrics.Deployments.WithLabelValues("failed").Inc()
		r.log.Warn("contract instantiation failed",
			"worker_id", worker,
			"address", req.Address,
			"kind", req.Kind,
			"error", err,
		)
	}
	r.resolve(ctx, req, success)
}

// resolve delivers the completion callback to the deployer.
func (r *Runtime) resolve(ctx context.Context, req DeployRequest, success bool) {
	if req.Callback == nil {
		return
	}
	err := r.update(ctx, func(txn repository.Txn) error {
		c := newContext(ctx, txn, req.deployer, Call{Sender: req.deployer}, r.clock().UnixNano())
		return req.Callback(c, success)
	})
	if err != nil {
		r.log.Error("deployment callback failed",
			"deployer", req.deployer,
			"address", req.Address,
			"success", success,
			"error", err,
		)
	}
}

func deployedKind(ctx context.Context, txn repository.Txn, address model.AccountID) (Kind, bool, error) {
	data, ok, err := repository.Scope(txn, string(address)).Get(ctx, codeKey)
	if err != nil || !ok {
		return "", false, err
	}
	var kind Kind
	if err := codec.Unmarshal(data, &kind); err != nil {
		return "", false, fmt.Errorf("decode code of %s: %w", address, err)
	}
	return kind, true, nil
}

func setKind(ctx context.Context, txn repository.Txn, address model.AccountID, kind Kind) error {
	data, err := codec.Marshal(kind)
	if err != nil {
		return err
	}
	return repository.Scope(txn, string(address)).Put(ctx, codeKey, data)
}
