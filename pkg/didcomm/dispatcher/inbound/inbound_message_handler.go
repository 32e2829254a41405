/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package inbound

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/dispatcher"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/envelope"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/message"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/transport"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/doc/did"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/store/connection"
)

var logger = log.New("aries-framework/didcomm/dispatcher/inbound")

// ConnectionLookup finds the connection an inbound message belongs to.
type ConnectionLookup interface {
	GetConnectionRecordByKeys(myVerKey, theirVerKey string) (*connection.Record, error)
	GetConnectionRecordByDIDs(myDID, theirDID string) (*connection.Record, error)
}

// Dispatcher routes unpacked messages, implemented by *dispatcher.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, msgCtx *dispatcher.InboundMessageContext) error
}

type provider interface {
	EnvelopeService() envelope.Packager
	ConnectionLookup() ConnectionLookup
	Dispatcher() Dispatcher
	Sessions() *transport.SessionRegistry
	GetDIDsBackOffDuration() time.Duration
	GetDIDsMaxRetries() uint64
	MessageValidators() *message.Validators
}

// MessageHandler handles packed inbound messages: it unpacks them, finds their connection, keeps
// the transport session when the sender asked for return routing and dispatches the message.
type MessageHandler struct {
	envelope               envelope.Packager
	connections            ConnectionLookup
	dispatcher             Dispatcher
	sessions               *transport.SessionRegistry
	validators             *message.Validators
	getDIDsBackOffDuration time.Duration
	getDIDsMaxRetries      uint64
}

// NewInboundMessageHandler creates an inbound message handler.
func NewInboundMessageHandler(p provider) *MessageHandler {
	return &MessageHandler{
		envelope:               p.EnvelopeService(),
		connections:            p.ConnectionLookup(),
		dispatcher:             p.Dispatcher(),
		sessions:               p.Sessions(),
		validators:             p.MessageValidators(),
		getDIDsBackOffDuration: p.GetDIDsBackOffDuration(),
		getDIDsMaxRetries:      p.GetDIDsMaxRetries(),
	}
}

// HandlerFunc returns the MessageHandler's transport.InboundMessageHandler function.
func (handler *MessageHandler) HandlerFunc() transport.InboundMessageHandler {
	return handler.HandleInbound
}

// HandleInbound processes packed bytes received on session, which is nil for transports that
// cannot carry replies.
func (handler *MessageHandler) HandleInbound(ctx context.Context, packed []byte, session transport.Session) error {
	decrypted, err := handler.envelope.Unpack(ctx, envelope.ParsePackedMessage(packed))
	if err != nil {
		return fmt.Errorf("inbound message handler: %w", err)
	}

	msg, err := message.Parse(decrypted.Plaintext)
	if err != nil {
		return fmt.Errorf("inbound message handler: %w", err)
	}

	if err = handler.validators.Validate(msg); err != nil {
		return fmt.Errorf("inbound message handler: %w", err)
	}

	conn, err := handler.findConnection(ctx, decrypted, msg)
	if err != nil {
		return fmt.Errorf("inbound message handler: %w", err)
	}

	msgCtx := &dispatcher.InboundMessageContext{
		Message:      msg,
		Connection:   conn,
		SenderKey:    decrypted.Sender,
		RecipientKey: decrypted.Recipient,
		ReceivedAt:   time.Now(),
	}

	if session != nil && handler.keepSession(session, msgCtx) {
		msgCtx.SessionID = session.ID()
	}

	logger.Debugf("received %s (connection %t)", msg.Type(), conn != nil)

	return handler.dispatcher.Dispatch(ctx, msgCtx)
}

// keepSession binds session to the connection of msgCtx when the sender asked for replies over it.
// Replies over a session are V1 envelopes packed for the sender key.
func (handler *MessageHandler) keepSession(session transport.Session, msgCtx *dispatcher.InboundMessageContext) bool {
	msg := msgCtx.Message

	rr := msg.ReturnRoute()
	if rr != message.ReturnRouteAll && rr != message.ReturnRouteThread {
		return false
	}

	if msg.Version() != message.DIDCommV1 || msgCtx.SenderKey == "" {
		return false
	}

	var connectionID string
	if msgCtx.Connection != nil {
		connectionID = msgCtx.Connection.ConnectionID
	}

	session.Bind(connectionID, &envelope.V1Params{
		RecipientKeys: []string{msgCtx.SenderKey},
		SenderKey:     msgCtx.RecipientKey,
	}, msg)
	handler.sessions.Save(session)

	return true
}

// findConnection looks the connection up by envelope keys for V1 and by DIDs for V2. A message
// without a known connection is dispatched without one; store failures are retried.
func (handler *MessageHandler) findConnection(ctx context.Context, decrypted *envelope.DecryptedMessage,
	msg message.Message) (*connection.Record, error) {
	var lookup func() (*connection.Record, error)

	switch m := msg.(type) {
	case *message.V1:
		if decrypted.Sender == "" || decrypted.Recipient == "" {
			return nil, nil
		}

		lookup = func() (*connection.Record, error) {
			return handler.connections.GetConnectionRecordByKeys(decrypted.Recipient, decrypted.Sender)
		}
	case *message.V2:
		myDID, theirDID := v2DIDs(decrypted, m)
		if myDID == "" || theirDID == "" {
			return nil, nil
		}

		lookup = func() (*connection.Record, error) {
			return handler.connections.GetConnectionRecordByDIDs(myDID, theirDID)
		}
	default:
		return nil, nil
	}

	var record *connection.Record

	err := backoff.Retry(func() error {
		var err error

		record, err = lookup()
		if connection.IsNotFound(err) {
			record = nil

			return nil
		}

		return err
	}, backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(handler.getDIDsBackOffDuration), handler.getDIDsMaxRetries),
		ctx,
	))
	if err != nil {
		return nil, fmt.Errorf("find connection: %w", err)
	}

	return record, nil
}

func v2DIDs(decrypted *envelope.DecryptedMessage, msg *message.V2) (string, string) {
	myDID := did.ExtractDIDFromKID(decrypted.Recipient)
	if myDID == "" {
		myDID = msg.Recipient()
	}

	theirDID := msg.From
	if theirDID == "" {
		theirDID = did.ExtractDIDFromKID(decrypted.Sender)
	}

	return myDID, theirDID
}
