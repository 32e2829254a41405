/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package http

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/pkg/errors"
	"github.com/rs/cors"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/transport"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/transport/internal"
)

var logger = log.New("aries-framework/http")

const (
	defaultPath           = "/"
	defaultProcessTimeout = 30 * time.Second
	readHeaderTimeout     = 10 * time.Second
	maxPayloadSize        = 10 << 20
)

// InboundOpt is an inbound HTTP transport option.
type InboundOpt func(i *Inbound)

// WithPath sets the path envelopes are posted to.
func WithPath(path string) InboundOpt {
	return func(i *Inbound) {
		i.path = path
	}
}

// WithProcessTimeout bounds the processing of one inbound message.
func WithProcessTimeout(timeout time.Duration) InboundOpt {
	return func(i *Inbound) {
		i.processTimeout = timeout
	}
}

// Inbound http type.
type Inbound struct {
	externalAddr   string
	path           string
	processTimeout time.Duration
	server         *http.Server
}

// NewInbound creates a new HTTP inbound transport instance. externalAddr is the endpoint
// published to peers, internalAddr when empty.
func NewInbound(internalAddr, externalAddr string, opts ...InboundOpt) (*Inbound, error) {
	if internalAddr == "" {
		return nil, errors.New("http address is mandatory")
	}

	if externalAddr == "" {
		externalAddr = internalAddr
	}

	i := &Inbound{
		externalAddr:   externalAddr,
		path:           defaultPath,
		processTimeout: defaultProcessTimeout,
		server:         &http.Server{Addr: internalAddr, ReadHeaderTimeout: readHeaderTimeout},
	}

	for _, opt := range opts {
		opt(i)
	}

	return i, nil
}

// Start the http server.
func (i *Inbound) Start(prov transport.Provider) error {
	handler, err := NewInboundHandler(prov, i.path, i.processTimeout)
	if err != nil {
		return fmt.Errorf("http server start failed: %w", err)
	}

	i.server.Handler = handler

	listener, err := net.Listen("tcp", i.server.Addr)
	if err != nil {
		return errors.Wrapf(err, "http server listen on %s", i.server.Addr)
	}

	go func() {
		if err := i.server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("http server with address [%s] stopped, cause: %s", i.server.Addr, err)
		}
	}()

	return nil
}

// Stop the http server.
func (i *Inbound) Stop() error {
	if err := i.server.Shutdown(context.Background()); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	return nil
}

// Endpoint provides the http connection details.
func (i *Inbound) Endpoint() string {
	return i.externalAddr
}

// NewInboundHandler creates the http handler that accepts DIDComm envelopes posted to path.
func NewInboundHandler(prov transport.Provider, path string, processTimeout time.Duration) (http.Handler, error) {
	if prov == nil || prov.InboundMessageHandler() == nil {
		logger.Errorf("Error creating a new inbound handler: message handler function is nil")

		return nil, errors.New("creation of inbound handler failed")
	}

	router := mux.NewRouter()
	router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		processPOSTRequest(w, r, prov, processTimeout)
	}).Methods(http.MethodPost)

	return cors.New(cors.Options{
		AllowedMethods: []string{http.MethodPost},
		AllowedHeaders: []string{"Origin", "Accept", "Content-Type"},
	}).Handler(router), nil
}

func processPOSTRequest(w http.ResponseWriter, r *http.Request, prov transport.Provider, timeout time.Duration) {
	if ct := r.Header.Get("Content-Type"); !transport.IsAcceptedMediaType(ct) {
		http.Error(w, fmt.Sprintf("Unsupported Content-type \"%s\"", ct), http.StatusUnsupportedMediaType)

		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadSize))
	if err != nil {
		logger.Errorf("Error reading request body: %s - returning Code: %d", err, http.StatusInternalServerError)
		http.Error(w, "Failed to read payload", http.StatusInternalServerError)

		return
	}

	packed, err := internal.DecodeFrame(body, sessionType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	s := newSession()

	defer prov.Sessions().Remove(s.ID())

	if err = prov.InboundMessageHandler()(ctx, packed, s); err != nil {
		logger.Errorf("incoming msg processing failed: %s", err)
		s.result()
		http.Error(w, "failed to process the message", http.StatusInternalServerError)

		return
	}

	response := s.result()
	if response == nil {
		w.WriteHeader(http.StatusAccepted)

		return
	}

	w.Header().Set("Content-Type", transport.MediaTypeFor(response))
	w.WriteHeader(http.StatusOK)

	if _, err = w.Write(response); err != nil {
		logger.Errorf("failed to write response: %s", err)
	}
}
