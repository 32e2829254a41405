/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/event"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/transport"
)

type received struct {
	packed  []byte
	session transport.Session
}

type mockProvider struct {
	handle   func(ctx context.Context, packed []byte, s transport.Session) error
	received chan received
	sessions *transport.SessionRegistry
	bus      *event.Bus
	noHandle bool
}

func newMockProvider(handle func(ctx context.Context, packed []byte, s transport.Session) error) *mockProvider {
	return &mockProvider{
		handle:   handle,
		received: make(chan received, 10),
		sessions: transport.NewSessionRegistry(),
		bus:      event.NewBus(),
	}
}

func (p *mockProvider) InboundMessageHandler() transport.InboundMessageHandler {
	if p.noHandle {
		return nil
	}

	return func(ctx context.Context, packed []byte, s transport.Session) error {
		p.received <- received{packed: packed, session: s}

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
	return p.bus
}

func (p *mockProvider) next(t *testing.T) received {
	t.Helper()

	select {
	case r := <-p.received:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for an inbound message")
	}

	return received{}
}

// startServer serves the inbound websocket handler of prov and returns its ws:// URL.
func startServer(t *testing.T, prov transport.Provider) string {
	t.Helper()

	handler, err := NewInboundHandler(prov)
	require.NoError(t, err)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func nextEvent(t *testing.T, ch <-chan event.Event) event.Event {
	t.Helper()

	select {
	case e := <-ch:
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for an event")
	}

	return nil
}
