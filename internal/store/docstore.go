// Package store holds the shared game document store: one mutable JSON
// document per room, with every write fanned out to subscribers. This is
// the single source of truth the clients render from.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Notifier receives every new document version after a write. The ws hub
// implements this; the indirection avoids an import cycle.
type Notifier interface {
	DocumentChanged(roomCode string, doc json.RawMessage)
}

// DocumentStore is the keyed shared-document contract: read-current,
// replace, shallow-merge patch, delete. No transactions and no concurrency
// token; ordering comes from the per-room worker upstream.
type DocumentStore interface {
	Get(ctx context.Context, roomCode string) (json.RawMessage, error)
	Set(ctx context.Context, roomCode string, doc json.RawMessage) error
	Patch(ctx context.Context, roomCode string, partial json.RawMessage) (json.RawMessage, error)
	Delete(ctx context.Context, roomCode string) error
}

type docStore struct {
	client   *redis.Client
	notifier Notifier
	ttl      time.Duration
}

// NewDocumentStore creates a Redis-backed document store. notifier may be
// nil for tooling that only reads.
func NewDocumentStore(client *redis.Client, notifier Notifier) DocumentStore {
	return &docStore{
		client:   client,
		notifier: notifier,
		ttl:      24 * time.Hour, // documents follow room lifetime
	}
}

func (d *docStore) key(roomCode string) string {
	return fmt.Sprintf("room:%s:doc", roomCode)
}

func (d *docStore) Get(ctx context.Context, roomCode string) (json.RawMessage, error) {
	data, err := d.client.Get(ctx, d.key(roomCode)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

func (d *docStore) Set(ctx context.Context, roomCode string, doc json.RawMessage) error {
	if err := d.client.Set(ctx, d.key(roomCode), []byte(doc), d.ttl).Err(); err != nil {
		return err
	}
	d.notify(roomCode, doc)
	return nil
}

// Patch shallow-merges partial into the stored document: top-level keys are
// replaced wholesale, including nested objects. Patching a missing document
// stores the partial as-is.
func (d *docStore) Patch(ctx context.Context, roomCode string, partial json.RawMessage) (json.RawMessage, error) {
	current, err := d.Get(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	merged, err := MergePatch(current, partial)
	if err != nil {
		return nil, err
	}
	if err := d.client.Set(ctx, d.key(roomCode), []byte(merged), d.ttl).Err(); err != nil {
		return nil, err
	}
	d.notify(roomCode, merged)
	return merged, nil
}

func (d *docStore) Delete(ctx context.Context, roomCode string) error {
	return d.client.Del(ctx, d.key(roomCode)).Err()
}

func (d *docStore) notify(roomCode string, doc json.RawMessage) {
	if d.notifier != nil {
		d.notifier.DocumentChanged(roomCode, doc)
	}
}

// MergePatch applies shallow-merge semantics at the top level of the
// document. A null value in the patch removes the key.
func MergePatch(doc, patch json.RawMessage) (json.RawMessage, error) {
	if len(doc) == 0 {
		return patch, nil
	}
	var base map[string]json.RawMessage
	if err := json.Unmarshal(doc, &base); err != nil {
		return nil, fmt.Errorf("merge base: %w", err)
	}
	var delta map[string]json.RawMessage
	if err := json.Unmarshal(patch, &delta); err != nil {
		return nil, fmt.Errorf("merge patch: %w", err)
	}
	for k, v := range delta {
		if string(v) == "null" {
			delete(base, k)
			continue
		}
		base[k] = v
	}
	return json.Marshal(base)
}
