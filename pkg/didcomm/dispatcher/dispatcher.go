/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package dispatcher routes unpacked inbound messages to the handler registered for their type and
// delivers the handler's reply.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/dispatcher/outbound"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/event"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/message"
)

var logger = log.New("aries-framework/didcomm/dispatcher")

var (
	// ErrUnhandledMessageType is returned when no registered handler supports the message type.
	ErrUnhandledMessageType = errors.New("no handler for message type")
	// ErrHandlerFailure wraps the error of a handler that could not be answered with a problem report.
	ErrHandlerFailure = errors.New("message handler failed")
)

// Provider contains the dependencies of the Dispatcher.
type Provider interface {
	MessageSender() MessageSender
	EventBus() *event.Bus
}

// Option configures the Dispatcher.
type Option func(d *Dispatcher)

// WithCatchErrors makes Dispatch log handler failures instead of returning them.
func WithCatchErrors(catch bool) Option {
	return func(d *Dispatcher) {
		d.catchErrors = catch
	}
}

// Dispatcher keeps the handler table. Handlers registered first take precedence.
type Dispatcher struct {
	sender      MessageSender
	bus         *event.Bus
	catchErrors bool

	mu       sync.RWMutex
	handlers []Handler
}

// New returns a Dispatcher without handlers.
func New(p Provider, opts ...Option) *Dispatcher {
	d := &Dispatcher{sender: p.MessageSender(), bus: p.EventBus()}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// RegisterHandler appends h to the handler table.
func (d *Dispatcher) RegisterHandler(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers = append(d.handlers, h)
}

// Dispatch hands msgCtx to the first handler supporting its message type and delivers the reply.
// A handler error carrying a problem report is answered to the connection instead of returned.
func (d *Dispatcher) Dispatch(ctx context.Context, msgCtx *InboundMessageContext) error {
	msg := msgCtx.Message

	h := d.handlerFor(msg.Type())
	if h == nil {
		return fmt.Errorf("%w: %s", ErrUnhandledMessageType, msg.Type())
	}

	reply, err := h.Handle(ctx, msgCtx)
	if err != nil {
		reply, err = d.handleFailure(msgCtx, err)
		if err != nil {
			return err
		}
	}

	if reply != nil {
		if err = d.deliver(ctx, reply); err != nil {
			return fmt.Errorf("reply to %s: %w", msg.Type(), err)
		}
	}

	d.bus.Publish(ctx, event.MessageProcessed{Message: msg, Connection: msgCtx.Connection})

	return nil
}

func (d *Dispatcher) handleFailure(msgCtx *InboundMessageContext, handleErr error) (*Reply, error) {
	msg := msgCtx.Message

	var reporter ProblemReporter
	if errors.As(handleErr, &reporter) && msgCtx.Connection != nil {
		report, err := reporter.ProblemReport(msg.Version())
		if err == nil {
			report.SetThread(msg.ThreadID(), "")

			if v2, ok := report.(*message.V2); ok {
				v2.From = msgCtx.Connection.MyDID
				v2.To = []string{msgCtx.Connection.TheirDID}
			}

			logger.Warnf("answering %s with a problem report: %s", msg.Type(), handleErr)

			return &Reply{Payload: report, Connection: msgCtx.Connection}, nil
		}

		logger.Errorf("create problem report for %s: %s", msg.Type(), err)
	}

	logger.Errorf("handle %s: %s", msg.Type(), handleErr)

	if d.catchErrors {
		return nil, nil
	}

	return nil, fmt.Errorf("%w: %s: %w", ErrHandlerFailure, msg.Type(), handleErr)
}

func (d *Dispatcher) deliver(ctx context.Context, reply *Reply) error {
	if reply.Service != nil {
		return d.sender.PackAndSendMessage(ctx, &outbound.PackAndSendParams{
			Message:     reply.Payload,
			Service:     reply.Service,
			SenderKey:   reply.SenderKey,
			ReturnRoute: true,
			Connection:  reply.Connection,
		})
	}

	switch payload := reply.Payload.(type) {
	case *message.V2:
		if len(payload.To) == 0 && reply.Connection != nil {
			payload.To = []string{reply.Connection.TheirDID}
		}

		if payload.From == "" && reply.Connection != nil {
			payload.From = reply.Connection.MyDID
		}

		return d.sender.SendV2(ctx, payload, outbound.Encrypted, nil, "")
	case *message.V1:
		if reply.Connection == nil {
			return outbound.ErrNoService
		}

		return d.sender.SendV1(ctx, &outbound.OutboundMessage{Payload: payload, Connection: reply.Connection})
	default:
		return fmt.Errorf("unsupported reply %T", reply.Payload)
	}
}

func (d *Dispatcher) handlerFor(typeURI string) Handler {
	parsed, err := message.ParseType(typeURI)
	if err != nil {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, h := range d.handlers {
		for _, t := range h.SupportedMessages() {
			if t.Supports(parsed) {
				return h
			}
		}
	}

	return nil
}

// SupportedMessageTypes returns the message types of all handlers in registration order.
func (d *Dispatcher) SupportedMessageTypes() []message.Type {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var types []message.Type

	for _, h := range d.handlers {
		types = append(types, h.SupportedMessages()...)
	}

	return types
}

// SupportedProtocols returns the distinct protocol URIs of the supported message types.
func (d *Dispatcher) SupportedProtocols() []string {
	var (
		protocols []string
		seen      = map[string]struct{}{}
	)

	for _, t := range d.SupportedMessageTypes() {
		if _, ok := seen[t.ProtocolURI]; ok {
			continue
		}

		seen[t.ProtocolURI] = struct{}{}
		protocols = append(protocols, t.ProtocolURI)
	}

	return protocols
}

// FilterSupportedProtocolsByMessageFamilies returns the supported protocols starting with one of
// families.
func (d *Dispatcher) FilterSupportedProtocolsByMessageFamilies(families []string) []string {
	var protocols []string

	for _, p := range d.SupportedProtocols() {
		for _, f := range families {
			if strings.HasPrefix(p, f) {
				protocols = append(protocols, p)

				break
			}
		}
	}

	return protocols
}

// MessageTypeFor returns the registered type that handles typeURI.
func (d *Dispatcher) MessageTypeFor(typeURI string) (message.Type, bool) {
	parsed, err := message.ParseType(typeURI)
	if err != nil {
		return message.Type{}, false
	}

	for _, t := range d.SupportedMessageTypes() {
		if t.Supports(parsed) {
			return t, true
		}
	}

	return message.Type{}, false
}
