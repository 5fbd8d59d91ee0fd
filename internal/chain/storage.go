package chain

import (
	"fmt"

	"github.com/Shivanand-hulikatti/event-factory/internal/codec"
	"github.com/Shivanand-hulikatti/event-factory/internal/model"
)

// Load decodes the value stored under key into v and reports whether it exists.
func Load(c *Context, key string, v any) (bool, error) {
	data, ok, err := c.storage.Get(c.ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := codec.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Save encodes v under key.
func Save(c *Context, key string, v any) error {
	data, err := codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.storage.Put(c.ctx, key, data)
}

// Has reports whether key exists.
func Has(c *Context, key string) (bool, error) {
	_, ok, err := c.storage.Get(c.ctx, key)
	return ok, err
}

// Remove deletes key.
func Remove(c *Context, key string) error {
	return c.storage.Delete(c.ctx, key)
}

// Keys returns the keys under prefix with the prefix stripped, in key order.
func Keys(c *Context, prefix string) ([]string, error) {
	entries, err := c.storage.Scan(c.ctx, prefix)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key[len(prefix):]
	}
	return keys, nil
}

// Amount loads an amount, defaulting to zero.
func Amount(c *Context, key string) (model.Amount, error) {
	var a model.Amount
	_, err := Load(c, key, &a)
	return a, err
}
