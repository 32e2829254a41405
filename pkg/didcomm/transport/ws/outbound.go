/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ws

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/transport"
)

// OutboundClient websocket outbound. Sockets stay open after a send so the peer can push
// messages back, and are reused for later sends to the same endpoint.
type OutboundClient struct {
	pool *connPool
}

// NewOutbound creates a client for Outbound WS transport.
func NewOutbound() *OutboundClient {
	return &OutboundClient{}
}

// Start the outbound transport.
func (cs *OutboundClient) Start(prov transport.Provider) error {
	cs.pool = newConnPool(prov)

	return nil
}

// Stop closes all open sockets.
func (cs *OutboundClient) Stop() error {
	if cs.pool != nil {
		cs.pool.closeAll()
	}

	return nil
}

// SupportedSchemes returns ws and wss.
func (cs *OutboundClient) SupportedSchemes() []string {
	return []string{"ws", "wss"}
}

// SendMessage sends the package over the socket to its endpoint.
func (cs *OutboundClient) SendMessage(ctx context.Context, pkg *transport.OutboundPackage) error {
	if pkg.Endpoint == "" {
		return errors.New("url is mandatory")
	}

	if cs.pool == nil {
		return errors.New("websocket outbound transport not started")
	}

	s, err := cs.pool.resolve(ctx, pkg)
	if err != nil {
		return err
	}

	if err = s.Send(ctx, pkg.Payload); err != nil {
		return fmt.Errorf("send to %s: %w", pkg.Endpoint, err)
	}

	return nil
}
