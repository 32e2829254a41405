/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/transport"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/transport/internal"
)

var logger = log.New("aries-framework/ws")

const (
	readHeaderTimeout = 10 * time.Second
	maxFrameSize      = 10 << 20
)

// Inbound http(ws) type.
type Inbound struct {
	externalAddr string
	server       *http.Server
}

// NewInbound creates a new WebSocket inbound transport instance.
func NewInbound(internalAddr, externalAddr string) (*Inbound, error) {
	if internalAddr == "" {
		return nil, errors.New("websocket address is mandatory")
	}

	if externalAddr == "" {
		externalAddr = internalAddr
	}

	return &Inbound{
		externalAddr: externalAddr,
		server:       &http.Server{Addr: internalAddr, ReadHeaderTimeout: readHeaderTimeout},
	}, nil
}

// Start the http(ws) server.
func (i *Inbound) Start(prov transport.Provider) error {
	handler, err := NewInboundHandler(prov)
	if err != nil {
		return fmt.Errorf("websocket server start failed: %w", err)
	}

	i.server.Handler = handler

	listener, err := net.Listen("tcp", i.server.Addr)
	if err != nil {
		return fmt.Errorf("websocket server listen on %s: %w", i.server.Addr, err)
	}

	go func() {
		if err := i.server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("websocket server with address [%s] stopped, cause: %s", i.server.Addr, err)
		}
	}()

	return nil
}

// Stop the http(ws) server.
func (i *Inbound) Stop() error {
	if err := i.server.Shutdown(context.Background()); err != nil {
		return fmt.Errorf("websocket server shutdown failed: %w", err)
	}

	return nil
}

// Endpoint provides the http(ws) connection details.
func (i *Inbound) Endpoint() string {
	return i.externalAddr
}

// NewInboundHandler creates the handler that upgrades requests to websockets and feeds every
// frame to the inbound message handler.
func NewInboundHandler(prov transport.Provider) (http.Handler, error) {
	if prov == nil || prov.InboundMessageHandler() == nil {
		logger.Errorf("Error creating a new inbound handler: message handler function is nil")

		return nil, errors.New("creation of inbound handler failed")
	}

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		processRequest(w, r, &upgrader, prov)
	}), nil
}

func processRequest(w http.ResponseWriter, r *http.Request, upgrader *websocket.Upgrader, prov transport.Provider) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf("failed to upgrade the connection : %v", err)

		return
	}

	c.SetReadLimit(maxFrameSize)

	s := newInboundSession(c)

	defer func() {
		prov.Sessions().Remove(s.ID())

		if err := s.Close(); err != nil {
			logger.Debugf("failed to close connection: %v", err)
		}
	}()

	handle := prov.InboundMessageHandler()

	for {
		_, frame, err := c.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Errorf("Error reading request message: %v", err)
			}

			return
		}

		packed, err := internal.DecodeFrame(frame, sessionType)
		if err != nil {
			logger.Errorf("failed to decode frame: %v", err)

			continue
		}

		if err = handle(r.Context(), packed, s); err != nil {
			logger.Errorf("incoming msg processing failed: %v", err)
		}
	}
}
