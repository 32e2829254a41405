/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transport

import (
	"fmt"
	"strings"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/transport"
	arieshttp "github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/transport/http"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/transport/ws"
)

// ProviderFactory represents the default transport provider factory.
type ProviderFactory struct {
	httpOpts []arieshttp.OutboundHTTPOpt
}

// NewProviderFactory returns the default transport provider factory.
func NewProviderFactory(httpOpts ...arieshttp.OutboundHTTPOpt) *ProviderFactory {
	return &ProviderFactory{httpOpts: httpOpts}
}

// CreateOutboundTransports returns one outbound transport per transport family named by schemes,
// in the order the families first appear.
func (f *ProviderFactory) CreateOutboundTransports(schemes ...string) ([]transport.OutboundTransport, error) {
	var (
		transports []transport.OutboundTransport
		http, sock bool
	)

	for _, scheme := range schemes {
		switch strings.ToLower(scheme) {
		case "http", "https":
			if !http {
				transports = append(transports, arieshttp.NewOutbound(f.httpOpts...))
				http = true
			}
		case "ws", "wss":
			if !sock {
				transports = append(transports, ws.NewOutbound())
				sock = true
			}
		default:
			return nil, fmt.Errorf("no outbound transport for scheme %q", scheme)
		}
	}

	return transports, nil
}
