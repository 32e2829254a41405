/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package transport defines the inbound and outbound transport contracts of the agent and keeps
// the registry of open inbound sessions used for return routing.
package transport

import (
	"context"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/event"
)

// InboundMessageHandler processes packed bytes received by a transport. session is the channel
// the bytes arrived on, nil when the transport cannot carry replies.
type InboundMessageHandler func(ctx context.Context, packed []byte, session Session) error

// Provider contains the dependencies transports receive on Start.
type Provider interface {
	InboundMessageHandler() InboundMessageHandler
	Sessions() *SessionRegistry
	EventBus() *event.Bus
}

// OutboundPackage is a packed message ready to be sent to an endpoint.
type OutboundPackage struct {
	// Payload is the packed message JSON.
	Payload      []byte
	Endpoint     string
	RecipientDID string
	ConnectionID string
	// ResponseRequested tells the transport to keep the channel open for a return routed reply.
	ResponseRequested bool
}

// OutboundTransport is the client side of the agent.
type OutboundTransport interface {
	Start(prov Provider) error
	Stop() error
	// SupportedSchemes lists the endpoint URI schemes the transport delivers to.
	SupportedSchemes() []string
	SendMessage(ctx context.Context, pkg *OutboundPackage) error
}

// InboundTransport is the server side of the agent.
type InboundTransport interface {
	Start(prov Provider) error
	Stop() error
	// Endpoint is the public address peers send to.
	Endpoint() string
}
