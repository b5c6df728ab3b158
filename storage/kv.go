// Package storage provides session persistence for ironloop: a NATS KV
// backed store for deployments and an in-memory store for tests and
// embedded use. Both satisfy workflow.SessionStore.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/c360studio/semstreams/natsclient"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/loopworks/ironloop/workflow"
)

// SessionsBucket is the KV bucket holding one record per session.
const SessionsBucket = "IRONLOOP_SESSIONS"

// DefaultSessionTTL expires sessions with no activity. Expiry is a store
// policy: the workflow core never deletes sessions itself.
const DefaultSessionTTL = 24 * time.Hour

// KVSessionStore persists sessions in a NATS JetStream KV bucket.
type KVSessionStore struct {
	bucket jetstream.KeyValue
}

// NewKVSessionStore creates the session store, creating or updating the
// backing bucket. A zero ttl uses DefaultSessionTTL.
func NewKVSessionStore(ctx context.Context, nc *natsclient.Client, ttl time.Duration) (*KVSessionStore, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("get jetstream: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	// CreateOrUpdateKeyValue is idempotent and handles race conditions.
	bucket, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      SessionsBucket,
		Description: "Ironloop workflow sessions",
		TTL:         ttl,
		History:     5,
	})
	if err != nil {
		return nil, fmt.Errorf("create/update kv bucket: %w", err)
	}

	return &KVSessionStore{bucket: bucket}, nil
}

// Get retrieves a session by ID.
func (s *KVSessionStore) Get(ctx context.Context, sessionID string) (*workflow.Session, error) {
	entry, err := s.bucket.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", workflow.ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session workflow.Session
	if err := json.Unmarshal(entry.Value(), &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	return &session, nil
}

// Put stores a session, overwriting any previous record and refreshing the
// bucket TTL for the key.
func (s *KVSessionStore) Put(ctx context.Context, session *workflow.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if _, err := s.bucket.Put(ctx, session.SessionID, data); err != nil {
		return fmt.Errorf("put session: %w", err)
	}

	return nil
}

// List returns all live session IDs. Intended for diagnostics.
func (s *KVSessionStore) List(ctx context.Context) ([]string, error) {
	keys, err := s.bucket.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return keys, nil
}
