/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package http

import (
	"context"
	"sync"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/event"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/transport"
)

type received struct {
	packed  []byte
	session transport.Session
}

type mockProvider struct {
	mu       sync.Mutex
	received []received
	handle   func(ctx context.Context, packed []byte, s transport.Session) error
	sessions *transport.SessionRegistry
	noHandle bool
}

func newMockProvider(handle func(ctx context.Context, packed []byte, s transport.Session) error) *mockProvider {
	return &mockProvider{handle: handle, sessions: transport.NewSessionRegistry()}
}

func (p *mockProvider) InboundMessageHandler() transport.InboundMessageHandler {
	if p.noHandle {
		return nil
	}

	return func(ctx context.Context, packed []byte, s transport.Session) error {
		p.mu.Lock()
		p.received = append(p.received, received{packed: packed, session: s})
		p.mu.Unlock()

		if p.handle != nil {
			return p.handle(ctx, packed, s)
		}

		return nil
	}
}

func (p *mockProvider) Sessions() *transport.SessionRegistry {
	return p.sessions
}

func (p *mockProvider) EventBus() *event.Bus {
	return event.NewBus()
}

func (p *mockProvider) messages() []received {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]received(nil), p.received...)
}
