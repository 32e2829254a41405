/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package event

import (
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/message"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/store/connection"
)

// Topic names a kind of event.
type Topic string

const (
	// MessageProcessedTopic is published after every dispatched inbound message.
	MessageProcessedTopic Topic = "MessageProcessed"
	// OutboundWebSocketOpenedTopic is published when an outbound websocket connects.
	OutboundWebSocketOpenedTopic Topic = "OutboundWebSocketOpened"
	// OutboundWebSocketClosedTopic is published when an outbound websocket closes.
	OutboundWebSocketClosedTopic Topic = "OutboundWebSocketClosed"
	// StateChangedTopic is published by protocol services when a protocol record changes state.
	StateChangedTopic Topic = "StateChanged"
)

// Event is published on the Bus.
type Event interface {
	Topic() Topic
}

// MessageProcessed is published once an inbound message went through the dispatcher, whether its
// handler succeeded or not.
type MessageProcessed struct {
	Message    message.Message
	Connection *connection.Record
}

// Topic of the event.
func (MessageProcessed) Topic() Topic { return MessageProcessedTopic }

// OutboundWebSocketOpened is published when an outbound websocket connects.
type OutboundWebSocketOpened struct {
	SocketID     string
	DID          string
	ConnectionID string
}

// Topic of the event.
func (OutboundWebSocketOpened) Topic() Topic { return OutboundWebSocketOpenedTopic }

// OutboundWebSocketClosed is published when an outbound websocket closes.
type OutboundWebSocketClosed struct {
	SocketID     string
	DID          string
	ConnectionID string
}

// Topic of the event.
func (OutboundWebSocketClosed) Topic() Topic { return OutboundWebSocketClosedTopic }

// StateChanged is published by protocol services on a state transition. The core has no protocol
// state machines of its own, so it never publishes this event; handlers registered on the agent
// publish it on the agent's Bus.
type StateChanged struct {
	ProtocolName  string
	ThreadID      string
	ConnectionID  string
	PreviousState string
	State         string
}

// Topic of the event.
func (StateChanged) Topic() Topic { return StateChangedTopic }
