/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ws

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/transport"
)

const sessionType = "ws"

// inboundSession is a websocket accepted by the inbound transport. Replies are written back over
// the socket as text frames.
type inboundSession struct {
	*transport.BaseSession
	mu        sync.Mutex
	conn      *websocket.Conn
	closed    bool
	closeOnce sync.Once
}

func newInboundSession(conn *websocket.Conn) *inboundSession {
	return &inboundSession{BaseSession: transport.NewBaseSession(sessionType), conn: conn}
}

func (s *inboundSession) Send(ctx context.Context, packed []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return transport.ErrSessionClosed
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := s.conn.SetWriteDeadline(deadline); err != nil {
			return fmt.Errorf("ws session %s: %w", s.ID(), err)
		}
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, packed); err != nil {
		return fmt.Errorf("ws session %s write: %w", s.ID(), err)
	}

	return nil
}

func (s *inboundSession) Close() error {
	var err error

	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		err = s.conn.Close()
	})

	return err
}
