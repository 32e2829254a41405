/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package event

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hyperledger/aries-framework-go/component/log"
)

// DefaultWaitTimeout is the WaitFor timeout used when none is given.
const DefaultWaitTimeout = 120 * time.Second

var logger = log.New("aries-framework/didcomm/event")

var (
	// ErrNilChannel is returned when a nil channel is subscribed.
	ErrNilChannel = errors.New("channel is nil")
	// ErrWaitTimeout is returned by WaitFor when no matching event arrives in time.
	ErrWaitTimeout = errors.New("timed out waiting for event")
)

type subscription struct {
	ch     chan<- Event
	topics map[Topic]bool
	done   chan struct{}
}

func (s *subscription) wants(t Topic) bool {
	return len(s.topics) == 0 || s.topics[t]
}

// Bus is a thread-safe publish/subscribe registry of event channels.
type Bus struct {
	mu   sync.RWMutex
	subs []*subscription
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers ch for events of the given topics, of all topics when none is given.
// Publish blocks until the event is received, so subscribers must keep reading their channel.
func (b *Bus) Subscribe(ch chan<- Event, topics ...Topic) error {
	if ch == nil {
		return ErrNilChannel
	}

	sub := &subscription{ch: ch, topics: map[Topic]bool{}, done: make(chan struct{})}

	for _, t := range topics {
		sub.topics[t] = true
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return nil
}

// Unsubscribe removes every registration of ch.
func (b *Bus) Unsubscribe(ch chan<- Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := 0; i < len(b.subs); i++ {
		if b.subs[i].ch == ch {
			close(b.subs[i].done)
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			i--
		}
	}
}

// Publish delivers e to the subscribers of its topic in subscription order.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	subs := append(b.subs[:0:0], b.subs...)
	b.mu.RUnlock()

	for _, sub := range subs {
		if !sub.wants(e.Topic()) {
			continue
		}

		select {
		case sub.ch <- e:
		case <-sub.done:
		case <-ctx.Done():
			logger.Warnf("event %s not delivered: %s", e.Topic(), ctx.Err())

			return
		}
	}
}

// WaitFor blocks until an event accepted by match is published, ctx is done or timeout expires.
// A timeout <= 0 means DefaultWaitTimeout.
func (b *Bus) WaitFor(ctx context.Context, match func(Event) bool, timeout time.Duration, topics ...Topic) (Event, error) {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}

	ch := make(chan Event)

	if err := b.Subscribe(ch, topics...); err != nil {
		return nil, err
	}

	defer b.Unsubscribe(ch)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case e := <-ch:
			if match(e) {
				return e, nil
			}
		case <-timer.C:
			return nil, ErrWaitTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
