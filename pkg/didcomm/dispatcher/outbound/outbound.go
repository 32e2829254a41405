/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package outbound delivers DIDComm messages: over an open inbound session, to the services of
// the recipient's DID document, or into the pickup queue when no endpoint answers.
package outbound

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hyperledger/aries-framework-go/component/log"
	"golang.org/x/exp/slices"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/envelope"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/message"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/transport"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/doc/did"
	vdrapi "github.com/ArtemPivovarov/aries-framework-javascript/pkg/framework/aries/api/vdr"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/store/connection"
	msgstore "github.com/ArtemPivovarov/aries-framework-javascript/pkg/store/message"
)

var logger = log.New("aries-framework/didcomm/dispatcher")

var (
	// ErrUndeliverableMessage is matched by errors.Is on an *UndeliverableError.
	ErrUndeliverableMessage = errors.New("message is undeliverable")
	// ErrDIDResolutionFailed is returned when the recipient DID cannot be resolved.
	ErrDIDResolutionFailed = errors.New("unable to resolve did document")
	// ErrNoCompatibleService is returned when no service of the recipient uses an allowed transport.
	ErrNoCompatibleService = errors.New("no compatible service found")
	// ErrNoOutboundTransport is returned when no registered transport handles the endpoint scheme.
	ErrNoOutboundTransport = errors.New("no outbound transport")
	// ErrNoConnection is returned when a message needs a connection and has none.
	ErrNoConnection = errors.New("no connection")
	// ErrNoService is returned when neither a service nor a connection addresses a message.
	ErrNoService = errors.New("no service or connection to send the message to")
	// ErrNoTransportScheme is returned when the service endpoint has no scheme.
	ErrNoTransportScheme = errors.New("missing endpoint scheme")
	// ErrNoRecipientKeys is returned when a V1 service has no recipient keys.
	ErrNoRecipientKeys = errors.New("service has no recipient keys")
	// ErrNoRecipient is returned when an encrypted V2 message has no recipient.
	ErrNoRecipient = errors.New("message has no recipient")
	// ErrNoSender is returned when a signed V2 message has no sender.
	ErrNoSender = errors.New("message has no sender")
	// ErrMessageValidationFailed is returned before sending a message that fails validation.
	ErrMessageValidationFailed = message.ErrValidation
)

// UndeliverableError is returned by SendV1 when every delivery attempt failed.
type UndeliverableError struct {
	ConnectionID string
	TheirLabel   string
	// Err joins the error of every attempt.
	Err error
}

func (e *UndeliverableError) Error() string {
	msg := fmt.Sprintf("message is undeliverable to connection %s (%s)", e.ConnectionID, e.TheirLabel)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Is matches ErrUndeliverableMessage.
func (e *UndeliverableError) Is(target error) bool {
	return target == ErrUndeliverableMessage //nolint:errorlint
}

func (e *UndeliverableError) Unwrap() error {
	return e.Err
}

// SendingMode selects how SendV2 protects a message.
type SendingMode int

const (
	// Plain sends the message unprotected.
	Plain SendingMode = iota
	// Signed sends a JWS signed by the sender DID.
	Signed
	// Encrypted sends a JWE for the first recipient.
	Encrypted
)

// OutboundMessage is a message addressed through a connection.
type OutboundMessage struct {
	Payload    message.Message
	Connection *connection.Record
}

// PackAndSendParams are the parameters of PackAndSendMessage.
type PackAndSendParams struct {
	Message     message.Message
	Service     *ResolvedService
	SenderKey   string
	ReturnRoute bool
	Connection  *connection.Record
}

// Provider contains the dependencies of the MessageSender.
type Provider interface {
	EnvelopeService() envelope.Packager
	VDRegistry() vdrapi.Registry
	Sessions() *transport.SessionRegistry
	MessageRepository() msgstore.Repository
	OutboundTransports() []transport.OutboundTransport
	// TransportPriority lists the endpoint schemes SendV2 picks services by, most preferred first.
	TransportPriority() []string
	MessageValidators() *message.Validators
}

// MessageSender sends messages to other agents.
type MessageSender struct {
	packer     envelope.Packager
	vdr        vdrapi.Registry
	services   *ServiceResolver
	sessions   *transport.SessionRegistry
	queue      msgstore.Repository
	priority   []string
	validators *message.Validators
	mu         sync.RWMutex
	transports []transport.OutboundTransport
}

// New returns a MessageSender using the transports of p.
func New(p Provider) *MessageSender {
	return &MessageSender{
		packer:     p.EnvelopeService(),
		vdr:        p.VDRegistry(),
		services:   NewServiceResolver(p.VDRegistry()),
		sessions:   p.Sessions(),
		queue:      p.MessageRepository(),
		priority:   p.TransportPriority(),
		validators: p.MessageValidators(),
		transports: append([]transport.OutboundTransport(nil), p.OutboundTransports()...),
	}
}

// RegisterOutboundTransport adds t after the transports already registered.
func (o *MessageSender) RegisterOutboundTransport(t transport.OutboundTransport) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.transports = append(o.transports, t)
}

// OutboundTransports returns the registered transports in registration order.
func (o *MessageSender) OutboundTransports() []transport.OutboundTransport {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return append([]transport.OutboundTransport(nil), o.transports...)
}

// Services returns the resolver the sender uses to look up DIDComm services.
func (o *MessageSender) Services() *ServiceResolver {
	return o.services
}

type sendOptions struct {
	schemes     []string
	restrictive bool
}

// SendOption configures SendV1.
type SendOption func(opts *sendOptions)

// WithTransportPriority orders candidate services by the position of their scheme in schemes.
// Services with unlisted schemes come last, or are skipped when restrictive is set.
func WithTransportPriority(schemes []string, restrictive bool) SendOption {
	return func(opts *sendOptions) {
		opts.schemes = schemes
		opts.restrictive = restrictive
	}
}

// SendV1 delivers msg to its connection. A session opened by the peer for this thread is tried
// first, then each service of the peer, then the pickup queue.
func (o *MessageSender) SendV1(ctx context.Context, msg *OutboundMessage, opts ...SendOption) error {
	if msg == nil || msg.Connection == nil {
		return ErrNoConnection
	}

	options := &sendOptions{}
	for _, opt := range opts {
		opt(options)
	}

	conn, payload := msg.Connection, msg.Payload

	var errs []error

	if s, ok := o.sessions.FindByConnectionID(conn.ConnectionID); ok {
		inbound := s.InboundMessage()
		if inbound != nil && inbound.HasReturnRouting(payload.ThreadID()) {
			err := o.sendToSession(ctx, payload, s)
			if err == nil {
				logger.Debugf("sent %s over %s session %s", payload.Type(), s.Type(), s.ID())

				return nil
			}

			logger.Warnf("send %s over session %s: %s", payload.Type(), s.ID(), err)
			errs = append(errs, fmt.Errorf("session %s: %w", s.ID(), err))
		}
	}

	services, queue, err := o.servicesFor(ctx, conn)
	if err != nil {
		return err
	}

	services = prioritize(services, options.schemes, options.restrictive)

	returnRoute := !transport.HasInboundEndpoint(o.ownDocument(ctx, conn))

	for i := range services {
		svc := &services[i]

		err = o.PackAndSendMessage(ctx, &PackAndSendParams{
			Message:     payload,
			Service:     svc,
			SenderKey:   conn.MyVerKey,
			ReturnRoute: returnRoute,
			Connection:  conn,
		})
		if err == nil {
			return nil
		}

		logger.Debugf("send %s to service %s at %s: %s", payload.Type(), svc.ID, svc.Endpoint, err)
		errs = append(errs, fmt.Errorf("service %s: %w", svc.ID, err))
	}

	if queue != nil {
		return o.enqueue(ctx, payload, queue, conn)
	}

	err = &UndeliverableError{ConnectionID: conn.ConnectionID, TheirLabel: conn.TheirLabel, Err: errors.Join(errs...)}
	logger.Errorf("%s", err)

	return err
}

func (o *MessageSender) sendToSession(ctx context.Context, payload message.Message, s transport.Session) error {
	keys := s.Keys()
	if keys == nil {
		return errors.New("session has no keys")
	}

	packed, err := o.packer.PackEncrypted(ctx, payload, keys)
	if err != nil {
		return err
	}

	return s.Send(ctx, packed)
}

func (o *MessageSender) enqueue(ctx context.Context, payload message.Message, queue *ResolvedService,
	conn *connection.Record) error {
	packed, err := o.packer.PackEncrypted(ctx, payload, &envelope.V1Params{
		RecipientKeys: queue.RecipientKeys,
		RoutingKeys:   queue.RoutingKeys,
		SenderKey:     conn.MyVerKey,
	})
	if err != nil {
		return fmt.Errorf("pack queued message: %w", err)
	}

	if err = o.queue.Add(ctx, conn.ConnectionID, packed); err != nil {
		return fmt.Errorf("queue message: %w", err)
	}

	logger.Debugf("queued %s for connection %s", payload.Type(), conn.ConnectionID)

	return nil
}

// servicesFor returns the services of the peer of conn and its queue service, if any.
func (o *MessageSender) servicesFor(ctx context.Context, conn *connection.Record) ([]ResolvedService,
	*ResolvedService, error) {
	var (
		all []ResolvedService
		err error
	)

	if strings.HasPrefix(conn.TheirDID, "did:") {
		all, err = o.services.ResolveServicesFromDID(ctx, conn.TheirDID)
		if err != nil {
			return nil, nil, err
		}
	}

	if len(all) == 0 && conn.TheirDIDDoc != nil {
		all, err = o.services.ResolveDocServices(ctx, conn.TheirDIDDoc)
		if err != nil {
			return nil, nil, err
		}
	}

	var (
		services []ResolvedService
		queue    *ResolvedService
	)

	for i := range all {
		if all[i].IsQueue() {
			if queue == nil {
				queue = &all[i]
			}

			continue
		}

		services = append(services, all[i])
	}

	return services, queue, nil
}

func (o *MessageSender) ownDocument(ctx context.Context, conn *connection.Record) *did.Doc {
	if conn.MyDIDDoc != nil || !strings.HasPrefix(conn.MyDID, "did:") {
		return conn.MyDIDDoc
	}

	res, err := o.vdr.Resolve(ctx, conn.MyDID)
	if err != nil || res == nil {
		return nil
	}

	return res.DIDDocument
}

func prioritize(services []ResolvedService, schemes []string, restrictive bool) []ResolvedService {
	if len(schemes) == 0 && !restrictive {
		return services
	}

	var out []ResolvedService

	for _, s := range services {
		if restrictive && !slices.Contains(schemes, s.ProtocolScheme()) {
			continue
		}

		out = append(out, s)
	}

	slices.SortStableFunc(out, func(a, b ResolvedService) int {
		return schemeRank(schemes, a.ProtocolScheme()) - schemeRank(schemes, b.ProtocolScheme())
	})

	return out
}

func schemeRank(schemes []string, scheme string) int {
	if i := slices.Index(schemes, scheme); i >= 0 {
		return i
	}

	return len(schemes)
}

// SendV2 sends a V2 message to its first recipient, protected as mode asks. transports are
// schemes preferred over the configured priority. With a proxy DID the packed message is handed to
// the proxy's service instead.
func (o *MessageSender) SendV2(ctx context.Context, msg *message.V2, mode SendingMode, transports []string,
	proxy string) error {
	var svc *ResolvedService

	switch {
	case len(msg.To) == 0 && len(transports) == 0:
		logger.Debugf("message %s has no recipient, not sent", msg.ID())

		return nil
	case len(msg.To) == 0:
		svc = &ResolvedService{ID: transports[0], Endpoint: transports[0]}
	default:
		var err error

		svc, err = o.findRecipientService(ctx, msg.To[0], transports)
		if err != nil {
			return err
		}
	}

	var (
		payload []byte
		err     error
	)

	switch mode {
	case Plain:
		payload, err = json.Marshal(msg)
	case Signed:
		payload, err = o.packSigned(ctx, msg, svc)
	case Encrypted:
		payload, err = o.packEncryptedV2(ctx, msg)
	default:
		err = fmt.Errorf("unknown sending mode %d", mode)
	}

	if err != nil {
		return fmt.Errorf("send %s: %w", msg.Type(), err)
	}

	if proxy != "" {
		return o.SendMessageToDID(ctx, payload, proxy)
	}

	return o.SendOutboundPackage(ctx, &transport.OutboundPackage{
		Payload:      payload,
		Endpoint:     svc.Endpoint,
		RecipientDID: msg.Recipient(),
	}, svc.ProtocolScheme())
}

func (o *MessageSender) packSigned(ctx context.Context, msg *message.V2, svc *ResolvedService) ([]byte, error) {
	if msg.From == "" {
		return nil, ErrNoSender
	}

	return o.packer.PackSigned(ctx, msg, &envelope.SignedParams{SignByDID: msg.From, ServiceID: svc.ID})
}

func (o *MessageSender) packEncryptedV2(ctx context.Context, msg *message.V2) ([]byte, error) {
	recipient := msg.Recipient()
	if recipient == "" {
		return nil, ErrNoRecipient
	}

	return o.packer.PackEncrypted(ctx, msg, &envelope.V2Params{ToDID: recipient, FromDID: msg.From})
}

// SendMessageToDID sends an already packed payload to the best service of didID.
func (o *MessageSender) SendMessageToDID(ctx context.Context, payload []byte, didID string) error {
	svc, err := o.findRecipientService(ctx, didID, nil)
	if err != nil {
		return err
	}

	return o.SendOutboundPackage(ctx, &transport.OutboundPackage{
		Payload:      payload,
		Endpoint:     svc.Endpoint,
		RecipientDID: didID,
	}, svc.ProtocolScheme())
}

// findRecipientService picks the first service of didID, in transport priority order, whose scheme
// is allowed.
func (o *MessageSender) findRecipientService(ctx context.Context, didID string,
	transports []string) (*ResolvedService, error) {
	doc, err := o.services.resolve(ctx, didID)
	if err != nil {
		return nil, err
	}

	priority := append(append([]string(nil), transports...), o.priority...)

	candidates := make([]ResolvedService, 0, len(doc.Service))
	for _, s := range doc.Service {
		candidates = append(candidates, ResolvedService{
			ID:            s.ID,
			Type:          s.Type,
			Priority:      s.Priority,
			RecipientKeys: s.RecipientKeys,
			RoutingKeys:   s.RoutingKeys,
			Endpoint:      s.ServiceEndpoint,
		})
	}

	slices.SortStableFunc(candidates, func(a, b ResolvedService) int {
		return schemeRank(priority, a.ProtocolScheme()) - schemeRank(priority, b.ProtocolScheme())
	})

	for i := range candidates {
		if slices.Contains(priority, candidates[i].ProtocolScheme()) {
			return &candidates[i], nil
		}
	}

	return nil, fmt.Errorf("%w for did %s", ErrNoCompatibleService, didID)
}

// PackAndSendMessage packs params.Message for params.Service and sends it with the transport
// matching the service scheme.
func (o *MessageSender) PackAndSendMessage(ctx context.Context, params *PackAndSendParams) error {
	if len(o.OutboundTransports()) == 0 {
		return ErrNoOutboundTransport
	}

	if params.Service == nil && params.Connection == nil {
		return ErrNoService
	}

	var scheme string
	if params.Service != nil {
		scheme = params.Service.ProtocolScheme()
	}

	if scheme == "" {
		return ErrNoTransportScheme
	}

	if params.ReturnRoute {
		params.Message.SetReturnRouting(message.ReturnRouteAll)
	}

	if err := o.validators.Validate(params.Message); err != nil {
		return err
	}

	pkg, err := o.PackMessage(ctx, params)
	if err != nil {
		return err
	}

	pkg.Endpoint = params.Service.Endpoint
	if params.Connection != nil {
		pkg.ConnectionID = params.Connection.ConnectionID
	}

	return o.SendOutboundPackage(ctx, pkg, scheme)
}

// PackMessage packs params.Message. V2 messages are encrypted to the connection's DID, V1 messages
// to the service keys.
func (o *MessageSender) PackMessage(ctx context.Context, params *PackAndSendParams) (*transport.OutboundPackage,
	error) {
	var encryptParams envelope.EncryptParams

	switch params.Message.(type) {
	case *message.V2:
		if params.Connection == nil || params.Connection.TheirDID == "" {
			return nil, ErrNoConnection
		}

		encryptParams = &envelope.V2Params{ToDID: params.Connection.TheirDID, FromDID: params.Connection.MyDID}
	case *message.V1:
		if params.Service == nil {
			return nil, ErrNoService
		}

		if len(params.Service.RecipientKeys) == 0 {
			return nil, ErrNoRecipientKeys
		}

		encryptParams = &envelope.V1Params{
			RecipientKeys: params.Service.RecipientKeys,
			RoutingKeys:   params.Service.RoutingKeys,
			SenderKey:     params.SenderKey,
		}
	default:
		return nil, fmt.Errorf("pack message: %w", envelope.ErrUnsupportedVersion)
	}

	packed, err := o.packer.PackEncrypted(ctx, params.Message, encryptParams)
	if err != nil {
		return nil, fmt.Errorf("pack message: %w", err)
	}

	rr := params.Message.ReturnRoute()

	return &transport.OutboundPackage{
		Payload:           packed,
		ResponseRequested: rr == message.ReturnRouteAll || rr == message.ReturnRouteThread,
	}, nil
}

// SendOutboundPackage sends pkg with the first transport supporting scheme, or with the first
// registered transport when scheme is empty.
func (o *MessageSender) SendOutboundPackage(ctx context.Context, pkg *transport.OutboundPackage,
	scheme string) error {
	transports := o.OutboundTransports()

	var selected transport.OutboundTransport

	for _, t := range transports {
		if scheme == "" || slices.Contains(t.SupportedSchemes(), scheme) {
			selected = t

			break
		}
	}

	if selected == nil {
		return fmt.Errorf("%w for scheme '%s'", ErrNoOutboundTransport, scheme)
	}

	if err := selected.SendMessage(ctx, pkg); err != nil {
		return fmt.Errorf("send to %s: %w", pkg.Endpoint, err)
	}

	return nil
}
