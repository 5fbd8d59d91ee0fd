package chain

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/event-factory/internal/codec"
	"github.com/Shivanand-hulikatti/event-factory/internal/model"
	"github.com/Shivanand-hulikatti/event-factory/internal/repository"
)

// The ledger records what each account has received from contracts:
// payouts, refunds and forwarded storage deposits.

func ledgerKey(account model.AccountID) string {
	return ledgerPrefix + string(account)
}

func balance(ctx context.Context, txn repository.Txn, account model.AccountID) (model.Amount, error) {
	var a model.Amount
	data, ok, err := txn.Get(ctx, ledgerKey(account))
	if err != nil || !ok {
		return a, err
	}
	if err := codec.Unmarshal(data, &a); err != nil {
		return a, fmt.Errorf("decode balance of %s: %w", account, err)
	}
	return a, nil
}

func credit(ctx context.Context, txn repository.Txn, account model.AccountID, amount model.Amount) error {
	if amount.IsZero() {
		return nil
	}
	current, err := balance(ctx, txn, account)
	if err != nil {
		return err
	}
	next, err := current.Add(amount)
	if err != nil {
		return fmt.Errorf("credit %s: %w", account, err)
	}
	data, err := codec.Marshal(next)
	if err != nil {
		return err
	}
	return txn.Put(ctx, ledgerKey(account), data)
}
