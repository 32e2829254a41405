/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package context creates a framework Provider context to add optional (non default) framework services and provides
// simple accessor methods to those same services.
package context

import (
	"fmt"
	"time"

	"github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/dispatcher"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/dispatcher/inbound"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/envelope"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/event"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/message"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/transport"
	vdrapi "github.com/ArtemPivovarov/aries-framework-javascript/pkg/framework/aries/api/vdr"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/kms"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/store/connection"
	didstore "github.com/ArtemPivovarov/aries-framework-javascript/pkg/store/did"
	msgstore "github.com/ArtemPivovarov/aries-framework-javascript/pkg/store/message"
)

const (
	defaultGetDIDsMaxRetries = 3
)

// Provider supplies the framework configuration to client objects.
type Provider struct {
	storeProvider          storage.Provider
	kms                    kms.KeyManager
	vdr                    vdrapi.Registry
	envelope               envelope.Packager
	messageSender          dispatcher.MessageSender
	dispatcher             inbound.Dispatcher
	messageRepository      msgstore.Repository
	outboundTransports     []transport.OutboundTransport
	transportPriority      []string
	messageValidators      *message.Validators
	sessions               *transport.SessionRegistry
	eventBus               *event.Bus
	didStore               *didstore.Store
	serviceEndpoint        string
	frameworkID            string
	getDIDsMaxRetries      uint64
	getDIDsBackOffDuration time.Duration
	inboundMessageHandler  transport.InboundMessageHandler
	connectionRecorder     *connection.Recorder
}

// New instantiates a new context provider.
func New(opts ...ProviderOption) (*Provider, error) {
	ctxProvider := Provider{
		getDIDsMaxRetries:      defaultGetDIDsMaxRetries,
		getDIDsBackOffDuration: time.Second,
	}

	for _, opt := range opts {
		err := opt(&ctxProvider)
		if err != nil {
			return nil, fmt.Errorf("option failed: %w", err)
		}
	}

	if ctxProvider.storeProvider != nil && ctxProvider.connectionRecorder == nil {
		recorder, err := connection.NewRecorder(&ctxProvider)
		if err != nil {
			return nil, fmt.Errorf("initialize context connection recorder: %w", err)
		}

		ctxProvider.connectionRecorder = recorder
	}

	return &ctxProvider, nil
}

// ConnectionLookup returns the connection lookup of this context's store, nil without a store.
func (p *Provider) ConnectionLookup() inbound.ConnectionLookup {
	if p.connectionRecorder == nil {
		return nil
	}

	return p.connectionRecorder
}

// ConnectionRecorder returns the connection recorder of this context's store.
func (p *Provider) ConnectionRecorder() *connection.Recorder {
	return p.connectionRecorder
}

// OutboundTransports returns the outbound transports.
func (p *Provider) OutboundTransports() []transport.OutboundTransport {
	return p.outboundTransports
}

// TransportPriority returns the endpoint schemes preferred when sending DIDComm V2 messages.
func (p *Provider) TransportPriority() []string {
	return p.transportPriority
}

// MessageValidators returns the type specific message validators, nil when none were injected.
func (p *Provider) MessageValidators() *message.Validators {
	return p.messageValidators
}

// KMS returns a Key Management Service.
func (p *Provider) KMS() kms.KeyManager {
	return p.kms
}

// EnvelopeService returns the envelope packer.
func (p *Provider) EnvelopeService() envelope.Packager {
	return p.envelope
}

// MessageSender returns the outbound message sender.
func (p *Provider) MessageSender() dispatcher.MessageSender {
	return p.messageSender
}

// Dispatcher returns the inbound message dispatcher.
func (p *Provider) Dispatcher() inbound.Dispatcher {
	return p.dispatcher
}

// MessageRepository returns the queue of messages kept for agents without an inbound endpoint.
func (p *Provider) MessageRepository() msgstore.Repository {
	return p.messageRepository
}

// Sessions returns the transport session registry.
func (p *Provider) Sessions() *transport.SessionRegistry {
	return p.sessions
}

// EventBus returns the agent event bus.
func (p *Provider) EventBus() *event.Bus {
	return p.eventBus
}

// DIDStore returns the store of the agent's own DIDs.
func (p *Provider) DIDStore() *didstore.Store {
	return p.didStore
}

// ServiceEndpoint returns an service endpoint. This endpoint is put in the DID Document service of the
// agent's DIDs to receive messages.
func (p *Provider) ServiceEndpoint() string {
	return p.serviceEndpoint
}

// InboundMessageHandler return an inbound message handler.
func (p *Provider) InboundMessageHandler() transport.InboundMessageHandler {
	if p.inboundMessageHandler != nil {
		return p.inboundMessageHandler
	}

	return inbound.NewInboundMessageHandler(p).HandlerFunc()
}

// StorageProvider return a storage provider.
func (p *Provider) StorageProvider() storage.Provider {
	return p.storeProvider
}

// VDRegistry returns a vdr registry.
func (p *Provider) VDRegistry() vdrapi.Registry {
	return p.vdr
}

// AriesFrameworkID returns the id of the framework instance.
func (p *Provider) AriesFrameworkID() string {
	return p.frameworkID
}

// GetDIDsMaxRetries returns get DIDs max retries.
func (p *Provider) GetDIDsMaxRetries() uint64 {
	return p.getDIDsMaxRetries
}

// GetDIDsBackOffDuration returns get DIDs backoff duration.
func (p *Provider) GetDIDsBackOffDuration() time.Duration {
	return p.getDIDsBackOffDuration
}

// ProviderOption configures the framework.
type ProviderOption func(opts *Provider) error

// WithOutboundTransports injects an outbound transports into the context.
func WithOutboundTransports(transports ...transport.OutboundTransport) ProviderOption {
	return func(opts *Provider) error {
		opts.outboundTransports = transports
		return nil
	}
}

// WithTransportPriority injects the preferred endpoint schemes into the context.
func WithTransportPriority(schemes ...string) ProviderOption {
	return func(opts *Provider) error {
		opts.transportPriority = schemes
		return nil
	}
}

// WithMessageValidators injects the type specific message validators into the context.
func WithMessageValidators(validators *message.Validators) ProviderOption {
	return func(opts *Provider) error {
		opts.messageValidators = validators
		return nil
	}
}

// WithGetDIDsMaxRetries sets max retries.
func WithGetDIDsMaxRetries(retries uint64) ProviderOption {
	return func(opts *Provider) error {
		opts.getDIDsMaxRetries = retries
		return nil
	}
}

// WithGetDIDsBackOffDuration sets backoff duration.
func WithGetDIDsBackOffDuration(duration time.Duration) ProviderOption {
	return func(opts *Provider) error {
		opts.getDIDsBackOffDuration = duration
		return nil
	}
}

// WithKMS injects a kms service into the context.
func WithKMS(k kms.KeyManager) ProviderOption {
	return func(opts *Provider) error {
		opts.kms = k
		return nil
	}
}

// WithEnvelopeService injects the envelope packer into the context.
func WithEnvelopeService(e envelope.Packager) ProviderOption {
	return func(opts *Provider) error {
		opts.envelope = e
		return nil
	}
}

// WithMessageSender injects the outbound message sender into the context.
func WithMessageSender(s dispatcher.MessageSender) ProviderOption {
	return func(opts *Provider) error {
		opts.messageSender = s
		return nil
	}
}

// WithDispatcher injects the inbound message dispatcher into the context.
func WithDispatcher(d inbound.Dispatcher) ProviderOption {
	return func(opts *Provider) error {
		opts.dispatcher = d
		return nil
	}
}

// WithMessageRepository injects the message queue into the context.
func WithMessageRepository(r msgstore.Repository) ProviderOption {
	return func(opts *Provider) error {
		opts.messageRepository = r
		return nil
	}
}

// WithSessions injects the transport session registry into the context.
func WithSessions(s *transport.SessionRegistry) ProviderOption {
	return func(opts *Provider) error {
		opts.sessions = s
		return nil
	}
}

// WithEventBus injects the event bus into the context.
func WithEventBus(b *event.Bus) ProviderOption {
	return func(opts *Provider) error {
		opts.eventBus = b
		return nil
	}
}

// WithDIDStore injects the own DID store into the context.
func WithDIDStore(s *didstore.Store) ProviderOption {
	return func(opts *Provider) error {
		opts.didStore = s
		return nil
	}
}

// WithConnectionRecorder injects a connection recorder, replacing the one created on the storage provider.
func WithConnectionRecorder(r *connection.Recorder) ProviderOption {
	return func(opts *Provider) error {
		opts.connectionRecorder = r
		return nil
	}
}

// WithVDRegistry injects a vdr service into the context.
func WithVDRegistry(vdr vdrapi.Registry) ProviderOption {
	return func(opts *Provider) error {
		opts.vdr = vdr
		return nil
	}
}

// WithServiceEndpoint injects an service transport endpoint into the context.
func WithServiceEndpoint(endpoint string) ProviderOption {
	return func(opts *Provider) error {
		opts.serviceEndpoint = endpoint
		return nil
	}
}

// WithStorageProvider injects a storage provider into the context.
func WithStorageProvider(s storage.Provider) ProviderOption {
	return func(opts *Provider) error {
		opts.storeProvider = s
		return nil
	}
}

// WithAriesFrameworkID injects the framework ID into the context.
func WithAriesFrameworkID(id string) ProviderOption {
	return func(opts *Provider) error {
		opts.frameworkID = id
		return nil
	}
}

// WithInboundMessageHandler injects an inbound message handler, replacing the unpack and dispatch pipeline.
func WithInboundMessageHandler(h transport.InboundMessageHandler) ProviderOption {
	return func(opts *Provider) error {
		opts.inboundMessageHandler = h
		return nil
	}
}
