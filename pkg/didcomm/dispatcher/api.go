/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/dispatcher/outbound"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/message"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/store/connection"
)

// ErrConnectionNotReady is returned by AssertReadyConnection.
var ErrConnectionNotReady = errors.New("connection is not ready")

// InboundMessageContext is an unpacked inbound message with what is known about its origin.
type InboundMessageContext struct {
	Message    message.Message
	Connection *connection.Record
	// SenderKey and RecipientKey are the envelope keys, empty for plaintext messages.
	SenderKey    string
	RecipientKey string
	// SessionID is the transport session the message arrived on, if it can carry replies.
	SessionID  string
	ReceivedAt time.Time
}

// AssertReadyConnection returns the connection of the message, failing when there is none or it is
// not completed.
func (c *InboundMessageContext) AssertReadyConnection() (*connection.Record, error) {
	if c.Connection == nil {
		return nil, fmt.Errorf("no connection associated with incoming message %s: %w", c.Message.Type(),
			ErrConnectionNotReady)
	}

	if !c.Connection.IsReady() {
		return nil, fmt.Errorf("connection %s is in state %s: %w", c.Connection.ConnectionID, c.Connection.State,
			ErrConnectionNotReady)
	}

	return c.Connection, nil
}

// Reply is the message a handler answers with. It is sent either to Connection or, for connectionless
// exchanges, to Service from SenderKey.
type Reply struct {
	Payload    message.Message
	Connection *connection.Record
	Service    *outbound.ResolvedService
	SenderKey  string
}

// Handler handles inbound messages of the types it supports.
type Handler interface {
	SupportedMessages() []message.Type
	Handle(ctx context.Context, msgCtx *InboundMessageContext) (*Reply, error)
}

// HandlerFunc handles one message.
type HandlerFunc func(ctx context.Context, msgCtx *InboundMessageContext) (*Reply, error)

type funcHandler struct {
	types []message.Type
	fn    HandlerFunc
}

// NewHandler returns a Handler serving types with fn.
func NewHandler(fn HandlerFunc, types ...message.Type) Handler {
	return &funcHandler{types: types, fn: fn}
}

func (h *funcHandler) SupportedMessages() []message.Type { return h.types }

func (h *funcHandler) Handle(ctx context.Context, msgCtx *InboundMessageContext) (*Reply, error) {
	return h.fn(ctx, msgCtx)
}

// ProblemReporter is implemented by handler errors that are answered with a problem report.
type ProblemReporter interface {
	error
	ProblemReport(version message.Version) (message.Message, error)
}

// MessageSender delivers replies, implemented by *outbound.MessageSender.
type MessageSender interface {
	SendV1(ctx context.Context, msg *outbound.OutboundMessage, opts ...outbound.SendOption) error
	SendV2(ctx context.Context, msg *message.V2, mode outbound.SendingMode, transports []string, proxy string) error
	PackAndSendMessage(ctx context.Context, params *outbound.PackAndSendParams) error
}
