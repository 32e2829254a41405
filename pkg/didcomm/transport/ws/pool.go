/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/event"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/transport"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/transport/internal"
)

const eventTimeout = 5 * time.Second

// socket is an outbound websocket. Messages the peer pushes over it are handled like inbound
// messages, with the socket as their session.
type socket struct {
	*transport.BaseSession
	conn         *websocket.Conn
	endpoint     string
	did          string
	connectionID string
	closeOnce    sync.Once
}

func (s *socket) Send(ctx context.Context, packed []byte) error {
	if err := s.conn.Write(ctx, websocket.MessageText, packed); err != nil {
		return fmt.Errorf("websocket write message : %w", err)
	}

	return nil
}

func (s *socket) Close() error {
	var err error

	s.closeOnce.Do(func() {
		err = s.conn.Close(websocket.StatusNormalClosure, "closing the connection")
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
			err = nil
		}
	})

	return err
}

// connPool keeps one outbound socket per endpoint.
type connPool struct {
	sync.RWMutex
	sockets  map[string]*socket
	handler  transport.InboundMessageHandler
	sessions *transport.SessionRegistry
	bus      *event.Bus
}

func newConnPool(prov transport.Provider) *connPool {
	return &connPool{
		sockets:  map[string]*socket{},
		handler:  prov.InboundMessageHandler(),
		sessions: prov.Sessions(),
		bus:      prov.EventBus(),
	}
}

func (d *connPool) fetch(socketID string) *socket {
	d.RLock()
	defer d.RUnlock()

	return d.sockets[socketID]
}

// resolve returns the open socket to the package endpoint, dialing it when needed.
func (d *connPool) resolve(ctx context.Context, pkg *transport.OutboundPackage) (*socket, error) {
	if s := d.fetch(pkg.Endpoint); s != nil {
		return s, nil
	}

	conn, _, err := websocket.Dial(ctx, pkg.Endpoint, nil) //nolint:bodyclose
	if err != nil {
		return nil, fmt.Errorf("websocket client : %w", err)
	}

	conn.SetReadLimit(maxFrameSize)

	s := &socket{
		BaseSession:  transport.NewBaseSession(sessionType),
		conn:         conn,
		endpoint:     pkg.Endpoint,
		did:          pkg.RecipientDID,
		connectionID: pkg.ConnectionID,
	}

	d.Lock()
	if existing, ok := d.sockets[pkg.Endpoint]; ok {
		d.Unlock()

		if err := s.Close(); err != nil {
			logger.Debugf("closing duplicate socket to %s: %v", pkg.Endpoint, err)
		}

		return existing, nil
	}

	d.sockets[pkg.Endpoint] = s
	d.Unlock()

	logger.Debugf("opened websocket %s to %s", s.ID(), pkg.Endpoint)

	d.publish(ctx, event.OutboundWebSocketOpened{SocketID: s.ID(), DID: s.did, ConnectionID: s.connectionID})

	go d.listener(s)

	return s, nil
}

func (d *connPool) listener(s *socket) {
	defer d.remove(s)

	for {
		_, frame, err := s.conn.Read(context.Background())
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				logger.Debugf("websocket %s read ended: %v", s.ID(), err)
			}

			return
		}

		packed, err := internal.DecodeFrame(frame, sessionType)
		if err != nil {
			logger.Errorf("failed to decode frame: %v", err)

			continue
		}

		if d.handler == nil {
			continue
		}

		if err = d.handler(context.Background(), packed, s); err != nil {
			logger.Errorf("incoming msg processing failed: %v", err)
		}
	}
}

func (d *connPool) remove(s *socket) {
	d.Lock()
	if d.sockets[s.endpoint] == s {
		delete(d.sockets, s.endpoint)
	}
	d.Unlock()

	if d.sessions != nil {
		d.sessions.Remove(s.ID())
	}

	if err := s.Close(); err != nil {
		logger.Debugf("connection close error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	d.publish(ctx, event.OutboundWebSocketClosed{SocketID: s.ID(), DID: s.did, ConnectionID: s.connectionID})
}

func (d *connPool) closeAll() {
	d.RLock()
	sockets := make([]*socket, 0, len(d.sockets))

	for _, s := range d.sockets {
		sockets = append(sockets, s)
	}
	d.RUnlock()

	for _, s := range sockets {
		if err := s.Close(); err != nil {
			logger.Debugf("connection close error: %v", err)
		}
	}
}

func (d *connPool) publish(ctx context.Context, e event.Event) {
	if d.bus != nil {
		d.bus.Publish(ctx, e)
	}
}
