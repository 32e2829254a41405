/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package http

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/transport"
)

const sessionType = "http"

var errResponseSent = errors.New("http session: response already sent")

// session is a single request/response exchange. A reply sent while the inbound message is
// processed becomes the response body.
type session struct {
	*transport.BaseSession
	mu       sync.Mutex
	response []byte
	closed   bool
}

func newSession() *session {
	return &session{BaseSession: transport.NewBaseSession(sessionType)}
}

func (s *session) Send(_ context.Context, packed []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return transport.ErrSessionClosed
	}

	if s.response != nil {
		return errResponseSent
	}

	s.response = packed

	return nil
}

func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

// result closes the session and returns the reply, nil when none was sent.
func (s *session) result() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return s.response
}
