/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package message queues packed messages for connections without a reachable endpoint. The
// recipient collects them later (message pickup).
package message

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/hyperledger/aries-framework-go/spi/storage"
)

// Namespace is the store name of the message queue.
const Namespace = "messagequeue"

const queueTagPrefix = "queue_"

var logger = log.New("aries-framework/store/message")

// Repository queues packed messages per connection.
type Repository interface {
	// Add appends a packed message to the queue of connectionID.
	Add(ctx context.Context, connectionID string, payload []byte) error
	// Take removes and returns up to limit of the oldest queued messages, all of them when limit <= 0.
	Take(ctx context.Context, connectionID string, limit int) ([][]byte, error)
	// Count returns the number of queued messages.
	Count(ctx context.Context, connectionID string) (int, error)
}

type provider interface {
	StorageProvider() storage.Provider
}

type queuedMessage struct {
	Seq     int64  `json:"seq"`
	Payload []byte `json:"payload"`
}

// Store is a Repository on top of a storage.Store.
type Store struct {
	store storage.Store
	mu    sync.Mutex
	seq   int64
}

// New returns a storage backed message queue.
func New(p provider) (*Store, error) {
	store, err := p.StorageProvider().OpenStore(Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to open message queue store: %w", err)
	}

	return &Store{store: store, seq: time.Now().UnixNano()}, nil
}

// Add appends payload to the queue of connectionID.
func (s *Store) Add(_ context.Context, connectionID string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++

	b, err := json.Marshal(&queuedMessage{Seq: s.seq, Payload: payload})
	if err != nil {
		return fmt.Errorf("message queue add: %w", err)
	}

	key := fmt.Sprintf("%s_%020d", connectionID, s.seq)

	if err = s.store.Put(key, b, storage.Tag{Name: queueTag(connectionID)}); err != nil {
		return fmt.Errorf("message queue add: %w", err)
	}

	logger.Debugf("queued message for connection %s", connectionID)

	return nil
}

// Take removes and returns the oldest queued messages of connectionID.
func (s *Store) Take(_ context.Context, connectionID string, limit int) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, msgs, err := s.queued(connectionID)
	if err != nil {
		return nil, fmt.Errorf("message queue take: %w", err)
	}

	if limit > 0 && len(msgs) > limit {
		keys, msgs = keys[:limit], msgs[:limit]
	}

	ops := make([]storage.Operation, 0, len(keys))
	payloads := make([][]byte, 0, len(msgs))

	for i := range msgs {
		ops = append(ops, storage.Operation{Key: keys[i]})
		payloads = append(payloads, msgs[i].Payload)
	}

	if len(ops) > 0 {
		if err = s.store.Batch(ops); err != nil {
			return nil, fmt.Errorf("message queue take: %w", err)
		}
	}

	return payloads, nil
}

// Count returns the number of messages queued for connectionID.
func (s *Store) Count(_ context.Context, connectionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, _, err := s.queued(connectionID)
	if err != nil {
		return 0, fmt.Errorf("message queue count: %w", err)
	}

	return len(keys), nil
}

// queued returns the queue of connectionID, oldest first.
func (s *Store) queued(connectionID string) ([]string, []queuedMessage, error) {
	itr, err := s.store.Query(queueTag(connectionID))
	if err != nil {
		return nil, nil, err
	}

	defer func() {
		if errClose := itr.Close(); errClose != nil {
			logger.Errorf("failed to close iterator: %s", errClose.Error())
		}
	}()

	type entry struct {
		key string
		msg queuedMessage
	}

	var entries []entry

	more, err := itr.Next()
	if err != nil {
		return nil, nil, err
	}

	for more {
		key, err := itr.Key()
		if err != nil {
			return nil, nil, err
		}

		value, err := itr.Value()
		if err != nil {
			return nil, nil, err
		}

		var msg queuedMessage

		if err = json.Unmarshal(value, &msg); err != nil {
			return nil, nil, err
		}

		entries = append(entries, entry{key: key, msg: msg})

		more, err = itr.Next()
		if err != nil {
			return nil, nil, err
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].msg.Seq < entries[j].msg.Seq })

	keys := make([]string, len(entries))
	msgs := make([]queuedMessage, len(entries))

	for i := range entries {
		keys[i], msgs[i] = entries[i].key, entries[i].msg
	}

	return keys, msgs, nil
}

func queueTag(connectionID string) string {
	return queueTagPrefix + connectionID
}
