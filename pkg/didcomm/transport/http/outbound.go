/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/transport"
)

const defaultOutboundTimeout = 30 * time.Second

// OutboundHTTPOpt is an outbound HTTP transport option.
type OutboundHTTPOpt func(o *OutboundHTTPClient)

// WithOutboundHTTPClient option is for creating an Outbound HTTP transport using an http.Client instance.
func WithOutboundHTTPClient(client *http.Client) OutboundHTTPOpt {
	return func(o *OutboundHTTPClient) {
		o.client = client
	}
}

// WithOutboundTimeout option is for creating an Outbound HTTP transport using a client timeout value.
func WithOutboundTimeout(timeout time.Duration) OutboundHTTPOpt {
	return func(o *OutboundHTTPClient) {
		o.client.Timeout = timeout
	}
}

// WithOutboundTLSConfig option is for creating an Outbound HTTP transport using a tls.Config instance.
func WithOutboundTLSConfig(tlsConfig *tls.Config) OutboundHTTPOpt {
	return func(o *OutboundHTTPClient) {
		o.client = &http.Client{
			Timeout:   o.client.Timeout,
			Transport: &http.Transport{TLSClientConfig: tlsConfig},
		}
	}
}

// OutboundHTTPClient represents the Outbound HTTP transport instance.
type OutboundHTTPClient struct {
	client  *http.Client
	handler transport.InboundMessageHandler
}

// NewOutbound creates a new instance of Outbound HTTP transport to Post requests to other Agents.
func NewOutbound(opts ...OutboundHTTPOpt) *OutboundHTTPClient {
	o := &OutboundHTTPClient{client: &http.Client{Timeout: defaultOutboundTimeout}}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Start keeps the inbound handler a response body is passed to.
func (o *OutboundHTTPClient) Start(prov transport.Provider) error {
	o.handler = prov.InboundMessageHandler()

	return nil
}

// Stop closes idle connections.
func (o *OutboundHTTPClient) Stop() error {
	o.client.CloseIdleConnections()

	return nil
}

// SupportedSchemes returns http and https.
func (o *OutboundHTTPClient) SupportedSchemes() []string {
	return []string{"http", "https"}
}

// SendMessage posts the package to its endpoint. A non empty response is a return routed message
// and goes to the inbound handler.
func (o *OutboundHTTPClient) SendMessage(ctx context.Context, pkg *transport.OutboundPackage) error {
	if pkg.Endpoint == "" {
		return errors.New("http outbound: endpoint is mandatory")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pkg.Endpoint, bytes.NewReader(pkg.Payload))
	if err != nil {
		return errors.Wrap(err, "http outbound: create request")
	}

	req.Header.Set("Content-Type", transport.MediaTypeFor(pkg.Payload))

	resp, err := o.client.Do(req)
	if err != nil {
		logger.Errorf("posting DIDComm envelope to agent at [%s] failed: %s", pkg.Endpoint, err)

		return errors.Wrapf(err, "http outbound: post to %s", pkg.Endpoint)
	}

	defer func() {
		if e := resp.Body.Close(); e != nil {
			logger.Errorf("closing response body: %s", e)
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return errors.Errorf("http outbound: received non success POST HTTP status from agent at [%s]: %s",
			pkg.Endpoint, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadSize))
	if err != nil {
		return errors.Wrap(err, "http outbound: read response")
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if o.handler == nil {
		logger.Warnf("dropping response from %s: transport not started", pkg.Endpoint)

		return nil
	}

	if err = o.handler(ctx, body, nil); err != nil {
		logger.Errorf("processing response from %s failed: %s", pkg.Endpoint, err)
	}

	return nil
}
