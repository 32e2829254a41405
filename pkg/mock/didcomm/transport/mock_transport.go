/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package transport

import (
	"context"
	"sync"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/transport"
)

// MockOutboundTransport mock outbound transport structure.
type MockOutboundTransport struct {
	mu       sync.Mutex
	Schemes  []string
	SendErr  error
	SendFunc func(ctx context.Context, pkg *transport.OutboundPackage) error
	Sent     []*transport.OutboundPackage
	Started  bool
}

// NewMockOutboundTransport new MockOutboundTransport instance for schemes.
func NewMockOutboundTransport(schemes ...string) *MockOutboundTransport {
	return &MockOutboundTransport{Schemes: schemes}
}

// Start marks the transport started.
func (t *MockOutboundTransport) Start(transport.Provider) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Started = true

	return nil
}

// Stop marks the transport stopped.
func (t *MockOutboundTransport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Started = false

	return nil
}

// SupportedSchemes returns Schemes.
func (t *MockOutboundTransport) SupportedSchemes() []string {
	return t.Schemes
}

// SendMessage records pkg and returns SendErr.
func (t *MockOutboundTransport) SendMessage(ctx context.Context, pkg *transport.OutboundPackage) error {
	if t.SendFunc != nil {
		if err := t.SendFunc(ctx, pkg); err != nil {
			return err
		}
	} else if t.SendErr != nil {
		return t.SendErr
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.Sent = append(t.Sent, pkg)

	return nil
}

// SentPackages returns a copy of the packages sent so far.
func (t *MockOutboundTransport) SentPackages() []*transport.OutboundPackage {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]*transport.OutboundPackage(nil), t.Sent...)
}

// MockSession is a transport.Session recording what is sent over it.
type MockSession struct {
	*transport.BaseSession
	mu      sync.Mutex
	SendErr error
	Sent    [][]byte
	Closed  bool
}

// NewMockSession returns a session of kind.
func NewMockSession(kind string) *MockSession {
	return &MockSession{BaseSession: transport.NewBaseSession(kind)}
}

// Send records packed.
func (s *MockSession) Send(_ context.Context, packed []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SendErr != nil {
		return s.SendErr
	}

	s.Sent = append(s.Sent, packed)

	return nil
}

// Close marks the session closed.
func (s *MockSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Closed = true

	return nil
}

// SentMessages returns a copy of the messages sent so far.
func (s *MockSession) SentMessages() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([][]byte(nil), s.Sent...)
}

// MockInboundTransport keeps the provider it is started with.
type MockInboundTransport struct {
	EndpointValue string
	StartErr      error
	StopErr       error
	Provider      transport.Provider
	Stopped       bool
}

// Start keeps prov and returns StartErr.
func (t *MockInboundTransport) Start(prov transport.Provider) error {
	if t.StartErr != nil {
		return t.StartErr
	}

	t.Provider = prov

	return nil
}

// Stop marks the transport stopped and returns StopErr.
func (t *MockInboundTransport) Stop() error {
	t.Stopped = true

	return t.StopErr
}

// Endpoint returns EndpointValue.
func (t *MockInboundTransport) Endpoint() string {
	return t.EndpointValue
}
