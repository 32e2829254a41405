/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package aries

import (
	stdctx "context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/dispatcher"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/dispatcher/inbound"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/dispatcher/outbound"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/envelope"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/event"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/message"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/transport"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/doc/did"
	vdrapi "github.com/ArtemPivovarov/aries-framework-javascript/pkg/framework/aries/api/vdr"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/framework/context"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/kms"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/kms/localkms"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/store/connection"
	didstore "github.com/ArtemPivovarov/aries-framework-javascript/pkg/store/did"
	msgstore "github.com/ArtemPivovarov/aries-framework-javascript/pkg/store/message"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/vdr"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/vdr/key"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/vdr/peer"
)

var logger = log.New("aries-framework/framework")

// Aries provides access to the context being managed by the framework. The context can be used to create aries clients.
type Aries struct {
	config             Config
	storeProvider      storage.Provider
	kms                kms.KeyManager
	vdr                []vdrapi.VDR
	vdrRegistry        vdrapi.Registry
	peerVDR            *peer.VDR
	envelope           envelope.Packager
	sessions           *transport.SessionRegistry
	eventBus           *event.Bus
	messageRepository  msgstore.Repository
	messageSender      *outbound.MessageSender
	dispatcher         *dispatcher.Dispatcher
	handlers           []dispatcher.Handler
	validators         *message.Validators
	inboundHandler     *inbound.MessageHandler
	outboundTransports []transport.OutboundTransport
	inboundTransports  []transport.InboundTransport
	connectionRecorder *connection.Recorder
	didStore           *didstore.Store
	id                 string
}

// Option configures the framework.
type Option func(opts *Aries) error

// New initializes the Aries framework based on the set of options provided. This function returns a framework
// which can be used to manage Aries clients by getting the framework context.
func New(opts ...Option) (*Aries, error) {
	frameworkOpts := &Aries{config: DefaultConfig(), validators: message.NewValidators()}

	// generate framework configs from options
	for _, option := range opts {
		err := option(frameworkOpts)
		if err != nil {
			closeErr := frameworkOpts.Close()
			return nil, fmt.Errorf("close err: %v Error in option passed to New: %w", closeErr, err)
		}
	}

	// generate a random framework ID
	frameworkOpts.id = uuid.New().String()

	// get the default framework options
	err := defFrameworkOpts(frameworkOpts)
	if err != nil {
		return nil, fmt.Errorf("default option initialization failed: %w", err)
	}

	if err = setLogLevel(frameworkOpts.config.LogLevel); err != nil {
		return nil, err
	}

	return initializeServices(frameworkOpts)
}

func initializeServices(frameworkOpts *Aries) (*Aries, error) {
	// Order of initializing service is important
	steps := []func(*Aries) error{
		createKMS,
		createStores,
		createVDR,
		createEnvelopeService,
		createMessageSender,
		createDispatcher,
		startTransports,
	}

	for _, step := range steps {
		if err := step(frameworkOpts); err != nil {
			closeErr := frameworkOpts.Close()
			if closeErr != nil {
				logger.Warnf("close after failed initialization: %s", closeErr)
			}

			return nil, err
		}
	}

	return frameworkOpts, nil
}

func setLogLevel(logLevel string) error {
	if logLevel == "" {
		return nil
	}

	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level '%s' : %w", logLevel, err)
	}

	log.SetLevel("", level)

	logger.Debugf("logger level set to %s", logLevel)

	return nil
}

// WithConfig replaces the agent settings. Zero fields take their default values.
func WithConfig(cfg Config) Option {
	return func(opts *Aries) error {
		opts.config = cfg
		return nil
	}
}

// WithLabel sets the name the agent presents to other agents.
func WithLabel(label string) Option {
	return func(opts *Aries) error {
		opts.config.Label = label
		return nil
	}
}

// WithEndpoints sets the endpoints published in the agent's DID documents.
func WithEndpoints(endpoints ...string) Option {
	return func(opts *Aries) error {
		opts.config.Endpoints = endpoints
		return nil
	}
}

// WithTransportPriority sets the preferred endpoint schemes, most preferred first.
func WithTransportPriority(schemes ...string) Option {
	return func(opts *Aries) error {
		opts.config.Transports = schemes
		return nil
	}
}

// WithCatchErrors makes the agent log handler failures instead of returning them to the transport.
func WithCatchErrors(catch bool) Option {
	return func(opts *Aries) error {
		opts.config.CatchErrors = catch
		return nil
	}
}

// WithDIDMarker sets the marker of the DID the agent sends from by default.
func WithDIDMarker(marker string) Option {
	return func(opts *Aries) error {
		opts.config.DIDMarker = marker
		return nil
	}
}

// WithWaitTimeout bounds WaitForMessage.
func WithWaitTimeout(timeout time.Duration) Option {
	return func(opts *Aries) error {
		opts.config.WaitTimeout = timeout
		return nil
	}
}

// WithLogLevel sets the level of all framework loggers.
func WithLogLevel(level string) Option {
	return func(opts *Aries) error {
		opts.config.LogLevel = level
		return nil
	}
}

// WithConnectionLookup sets how often and how fast the connection of an inbound message is looked up again
// when the store fails.
func WithConnectionLookup(retries uint64, interval time.Duration) Option {
	return func(opts *Aries) error {
		opts.config.ConnectionLookupRetries = retries
		opts.config.ConnectionLookupInterval = interval

		return nil
	}
}

// WithResolutionCache sizes the cache of resolved DID documents.
func WithResolutionCache(size int, ttl time.Duration) Option {
	return func(opts *Aries) error {
		opts.config.ResolutionCacheSize = size
		opts.config.ResolutionCacheTTL = ttl

		return nil
	}
}

// WithOutboundTransports injects an outbound transports to the Aries framework.
func WithOutboundTransports(outboundTransports ...transport.OutboundTransport) Option {
	return func(opts *Aries) error {
		opts.outboundTransports = append(opts.outboundTransports, outboundTransports...)
		return nil
	}
}

// WithInboundTransport injects an inbound transport to the Aries framework.
func WithInboundTransport(inboundTransport ...transport.InboundTransport) Option {
	return func(opts *Aries) error {
		opts.inboundTransports = append(opts.inboundTransports, inboundTransport...)
		return nil
	}
}

// WithStoreProvider injects a storage provider to the Aries framework.
func WithStoreProvider(prov storage.Provider) Option {
	return func(opts *Aries) error {
		opts.storeProvider = prov
		return nil
	}
}

// WithKMS injects a KMS service to the Aries framework.
func WithKMS(k kms.KeyManager) Option {
	return func(opts *Aries) error {
		opts.kms = k
		return nil
	}
}

// WithVDR injects a VDR service to the Aries framework. VDRs given here are asked before the
// built-in did:peer and did:key ones.
func WithVDR(v vdrapi.VDR) Option {
	return func(opts *Aries) error {
		opts.vdr = append(opts.vdr, v)
		return nil
	}
}

// WithMessageRepository injects the queue keeping messages for agents without an inbound endpoint.
func WithMessageRepository(r msgstore.Repository) Option {
	return func(opts *Aries) error {
		opts.messageRepository = r
		return nil
	}
}

// WithHandlers registers message handlers, earlier handlers taking precedence.
func WithHandlers(handlers ...dispatcher.Handler) Option {
	return func(opts *Aries) error {
		opts.handlers = append(opts.handlers, handlers...)
		return nil
	}
}

// WithMessageValidator adds fn to the checks run on sent and received messages of type typeURI.
func WithMessageValidator(typeURI string, fn message.ValidatorFunc) Option {
	return func(opts *Aries) error {
		opts.validators.Register(typeURI, fn)
		return nil
	}
}

// Context provides a handle to the framework context.
func (a *Aries) Context() (*context.Provider, error) {
	return context.New(
		context.WithStorageProvider(a.storeProvider),
		context.WithConnectionRecorder(a.connectionRecorder),
		context.WithDIDStore(a.didStore),
		context.WithKMS(a.kms),
		context.WithVDRegistry(a.vdrRegistry),
		context.WithEnvelopeService(a.envelope),
		context.WithMessageSender(a.messageSender),
		context.WithDispatcher(a.dispatcher),
		context.WithMessageRepository(a.messageRepository),
		context.WithOutboundTransports(a.outboundTransports...),
		context.WithTransportPriority(a.config.Transports...),
		context.WithMessageValidators(a.validators),
		context.WithSessions(a.sessions),
		context.WithEventBus(a.eventBus),
		context.WithServiceEndpoint(serviceEndpoint(a)),
		context.WithAriesFrameworkID(a.id),
		context.WithGetDIDsMaxRetries(a.config.ConnectionLookupRetries),
		context.WithGetDIDsBackOffDuration(a.config.ConnectionLookupInterval),
	)
}

// Config returns the agent settings.
func (a *Aries) Config() Config {
	cfg := a.config
	cfg.Endpoints = append([]string(nil), a.config.Endpoints...)
	cfg.Transports = append([]string(nil), a.config.Transports...)

	return cfg
}

// Dispatcher returns the inbound message dispatcher.
func (a *Aries) Dispatcher() *dispatcher.Dispatcher {
	return a.dispatcher
}

// RegisterHandler adds h to the handlers of inbound messages.
func (a *Aries) RegisterHandler(h dispatcher.Handler) {
	a.dispatcher.RegisterHandler(h)
}

// MessageSender returns the outbound message sender.
func (a *Aries) MessageSender() *outbound.MessageSender {
	return a.messageSender
}

// Connections returns the connection store.
func (a *Aries) Connections() *connection.Recorder {
	return a.connectionRecorder
}

// DIDStore returns the store of the agent's own DIDs.
func (a *Aries) DIDStore() *didstore.Store {
	return a.didStore
}

// KMS returns the key manager.
func (a *Aries) KMS() kms.KeyManager {
	return a.kms
}

// VDRegistry returns the DID resolver registry.
func (a *Aries) VDRegistry() vdrapi.Registry {
	return a.vdrRegistry
}

// EventBus returns the agent event bus.
func (a *Aries) EventBus() *event.Bus {
	return a.eventBus
}

// CreatePeerDID derives a peer DID from doc and saves the resolved document under marker in the DID store.
func (a *Aries) CreatePeerDID(doc *did.Doc, numAlgo peer.NumAlgo, marker string) (*did.Doc, error) {
	p, err := a.peerVDR.Create(doc, numAlgo)
	if err != nil {
		return nil, fmt.Errorf("create peer did: %w", err)
	}

	resolved, err := p.DIDDocument()
	if err != nil {
		return nil, fmt.Errorf("create peer did: %w", err)
	}

	if err = a.didStore.SaveDID(marker, resolved); err != nil {
		return nil, fmt.Errorf("create peer did: %w", err)
	}

	return resolved, nil
}

// OwnDID returns the DID saved under marker, or under the configured marker when marker is empty.
func (a *Aries) OwnDID(marker string) (string, error) {
	if marker == "" {
		marker = a.config.DIDMarker
	}

	id, err := a.didStore.GetDIDByMarker(marker)
	if err != nil {
		return "", fmt.Errorf("own did for marker %s: %w", marker, err)
	}

	return id, nil
}

// ReceiveMessage processes a packed message that did not arrive through an inbound transport.
func (a *Aries) ReceiveMessage(ctx stdctx.Context, packed []byte) error {
	return a.inboundHandler.HandleInbound(ctx, packed, nil)
}

// WaitForMessage blocks until a message of the thread threadID has been processed, ctx is done or
// the configured wait timeout expires.
func (a *Aries) WaitForMessage(ctx stdctx.Context, threadID string) (message.Message, error) {
	e, err := a.eventBus.WaitFor(ctx, func(e event.Event) bool {
		processed, ok := e.(event.MessageProcessed)

		return ok && processed.Message.ThreadID() == threadID
	}, a.config.WaitTimeout, event.MessageProcessedTopic)
	if err != nil {
		return nil, fmt.Errorf("wait for message of thread %s: %w", threadID, err)
	}

	processed, ok := e.(event.MessageProcessed)
	if !ok {
		return nil, errors.New("unexpected event type")
	}

	return processed.Message, nil
}

// Close frees resources being maintained by the framework.
func (a *Aries) Close() error {
	var errs []error

	for _, inbound := range a.inboundTransports {
		if err := inbound.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("inbound transport close failed: %w", err))
		}
	}

	for _, outbound := range a.outboundTransports {
		if err := outbound.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("outbound transport close failed: %w", err))
		}
	}

	if a.vdrRegistry != nil {
		if err := a.vdrRegistry.Close(); err != nil {
			errs = append(errs, fmt.Errorf("vdr registry close failed: %w", err))
		}
	}

	if a.storeProvider != nil {
		if err := a.storeProvider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close the store: %w", err))
		}
	}

	return errors.Join(errs...)
}

func createKMS(frameworkOpts *Aries) error {
	if frameworkOpts.kms != nil {
		return nil
	}

	ctx, err := context.New(context.WithStorageProvider(frameworkOpts.storeProvider))
	if err != nil {
		return fmt.Errorf("create context failed: %w", err)
	}

	frameworkOpts.kms, err = localkms.New(ctx)
	if err != nil {
		return fmt.Errorf("create KMS failed: %w", err)
	}

	return nil
}

func createStores(frameworkOpts *Aries) error {
	ctx, err := context.New(context.WithStorageProvider(frameworkOpts.storeProvider))
	if err != nil {
		return fmt.Errorf("create context failed: %w", err)
	}

	frameworkOpts.connectionRecorder = ctx.ConnectionRecorder()

	frameworkOpts.didStore, err = didstore.New(ctx)
	if err != nil {
		return fmt.Errorf("create did store failed: %w", err)
	}

	if frameworkOpts.messageRepository == nil {
		frameworkOpts.messageRepository, err = msgstore.New(ctx)
		if err != nil {
			return fmt.Errorf("create message queue failed: %w", err)
		}
	}

	frameworkOpts.sessions = transport.NewSessionRegistry()
	frameworkOpts.eventBus = event.NewBus()

	return nil
}

func createVDR(frameworkOpts *Aries) error {
	ctx, err := context.New(context.WithStorageProvider(frameworkOpts.storeProvider))
	if err != nil {
		return fmt.Errorf("create context failed: %w", err)
	}

	opts := make([]vdr.Option, 0, len(frameworkOpts.vdr)+3)
	for _, v := range frameworkOpts.vdr {
		opts = append(opts, vdr.WithVDR(v))
	}

	frameworkOpts.peerVDR, err = peer.New(ctx)
	if err != nil {
		return fmt.Errorf("create new vdr peer failed: %w", err)
	}

	opts = append(opts,
		vdr.WithVDR(frameworkOpts.peerVDR),
		vdr.WithVDR(key.New()),
		vdr.WithCache(frameworkOpts.config.ResolutionCacheSize, frameworkOpts.config.ResolutionCacheTTL),
	)

	frameworkOpts.vdrRegistry = vdr.New(opts...)

	return nil
}

func createEnvelopeService(frameworkOpts *Aries) error {
	ctx, err := context.New(
		context.WithKMS(frameworkOpts.kms),
		context.WithVDRegistry(frameworkOpts.vdrRegistry),
	)
	if err != nil {
		return fmt.Errorf("create context failed: %w", err)
	}

	frameworkOpts.envelope = envelope.New(ctx)

	return nil
}

func createMessageSender(frameworkOpts *Aries) error {
	ctx, err := context.New(
		context.WithEnvelopeService(frameworkOpts.envelope),
		context.WithVDRegistry(frameworkOpts.vdrRegistry),
		context.WithSessions(frameworkOpts.sessions),
		context.WithMessageRepository(frameworkOpts.messageRepository),
		context.WithOutboundTransports(frameworkOpts.outboundTransports...),
		context.WithTransportPriority(frameworkOpts.config.Transports...),
		context.WithMessageValidators(frameworkOpts.validators),
	)
	if err != nil {
		return fmt.Errorf("context creation failed: %w", err)
	}

	frameworkOpts.messageSender = outbound.New(ctx)

	return nil
}

func createDispatcher(frameworkOpts *Aries) error {
	ctx, err := context.New(
		context.WithMessageSender(frameworkOpts.messageSender),
		context.WithEventBus(frameworkOpts.eventBus),
	)
	if err != nil {
		return fmt.Errorf("context creation failed: %w", err)
	}

	frameworkOpts.dispatcher = dispatcher.New(ctx, dispatcher.WithCatchErrors(frameworkOpts.config.CatchErrors))

	for _, h := range frameworkOpts.handlers {
		frameworkOpts.dispatcher.RegisterHandler(h)
	}

	return nil
}

func startTransports(frameworkOpts *Aries) error {
	ctx, err := context.New(
		context.WithEnvelopeService(frameworkOpts.envelope),
		context.WithConnectionRecorder(frameworkOpts.connectionRecorder),
		context.WithDispatcher(frameworkOpts.dispatcher),
		context.WithSessions(frameworkOpts.sessions),
		context.WithEventBus(frameworkOpts.eventBus),
		context.WithMessageValidators(frameworkOpts.validators),
		context.WithGetDIDsMaxRetries(frameworkOpts.config.ConnectionLookupRetries),
		context.WithGetDIDsBackOffDuration(frameworkOpts.config.ConnectionLookupInterval),
	)
	if err != nil {
		return fmt.Errorf("context creation failed: %w", err)
	}

	frameworkOpts.inboundHandler = inbound.NewInboundMessageHandler(ctx)
	handlerCtx, err := context.New(
		context.WithInboundMessageHandler(frameworkOpts.inboundHandler.HandlerFunc()),
		context.WithSessions(frameworkOpts.sessions),
		context.WithEventBus(frameworkOpts.eventBus),
	)
	if err != nil {
		return fmt.Errorf("context creation failed: %w", err)
	}

	for _, inbound := range frameworkOpts.inboundTransports {
		// Start the inbound transport
		if err = inbound.Start(handlerCtx); err != nil {
			return fmt.Errorf("inbound transport start failed: %w", err)
		}
	}

	// Start the outbound transport
	for _, outbound := range frameworkOpts.outboundTransports {
		if err = outbound.Start(handlerCtx); err != nil {
			return fmt.Errorf("outbound transport start failed: %w", err)
		}
	}

	return nil
}

func serviceEndpoint(frameworkOpts *Aries) string {
	if len(frameworkOpts.config.Endpoints) > 0 {
		return frameworkOpts.config.Endpoints[0]
	}

	if len(frameworkOpts.inboundTransports) > 0 {
		return frameworkOpts.inboundTransports[0].Endpoint()
	}

	return defaultEndpoint
}
