/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package defaults provides framework options wiring the bundled transports and stores.
package defaults

import (
	"fmt"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/transport/http"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/transport/ws"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/framework/aries"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/store/message/redis"
)

// WithInboundHTTPAddr return new default http inbound transport. externalAddr is the endpoint
// published to other agents, inboundAddr when empty.
func WithInboundHTTPAddr(inboundAddr, externalAddr string, opts ...http.InboundOpt) aries.Option {
	return func(a *aries.Aries) error {
		inbound, err := http.NewInbound(inboundAddr, externalAddr, opts...)
		if err != nil {
			return fmt.Errorf("http inbound transport initialization failed: %w", err)
		}

		return aries.WithInboundTransport(inbound)(a)
	}
}

// WithInboundWSAddr return new default ws inbound transport.
func WithInboundWSAddr(inboundAddr, externalAddr string) aries.Option {
	return func(opts *aries.Aries) error {
		inbound, err := ws.NewInbound(inboundAddr, externalAddr)
		if err != nil {
			return fmt.Errorf("ws inbound transport initialization failed: %w", err)
		}

		return aries.WithInboundTransport(inbound)(opts)
	}
}

// WithRedisMessageQueue keeps messages for agents without an inbound endpoint in the Redis server
// at url.
func WithRedisMessageQueue(url string, opts ...redis.Option) aries.Option {
	return func(a *aries.Aries) error {
		repository, err := redis.NewFromURL(url, opts...)
		if err != nil {
			return fmt.Errorf("redis message queue initialization failed: %w", err)
		}

		return aries.WithMessageRepository(repository)(a)
	}
}
