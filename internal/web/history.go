package web

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/allegro/bigcache/v3"
)

// ErrNotFound is returned for request ids that are unknown or expired.
var ErrNotFound = errors.New("request not found")

const outcomePrefix = "outcome_"

// History remembers recent outcomes by request id for a limited time.
type History struct {
	cache *bigcache.BigCache
}

// NewHistory creates a History whose entries expire after ttl.
func NewHistory(ctx context.Context, ttl time.Duration) (*History, error) {
	cfg := bigcache.DefaultConfig(ttl)
	cfg.Verbose = false
	cache, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &History{cache: cache}, nil
}

// Put stores o under its id, replacing any earlier state.
func (h *History) Put(o *Outcome) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return h.cache.Set(outcomePrefix+o.ID, data)
}

// Get returns the outcome stored for id.
func (h *History) Get(id string) (*Outcome, error) {
	data, err := h.cache.Get(outcomePrefix + id)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var o Outcome
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// Close releases the cache.
func (h *History) Close() error {
	return h.cache.Close()
}
