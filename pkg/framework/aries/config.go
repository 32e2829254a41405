/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package aries

import (
	"time"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/event"
)

const (
	defaultEndpoint      = "didcomm:transport/queue"
	defaultDIDMarker     = "default"
	defaultLookupRetries = 3
	defaultLookupBackoff = time.Second
	defaultCacheSize     = 100
	defaultCacheTTL      = 5 * time.Minute
)

// Config holds the agent settings. It is fixed once New returns.
type Config struct {
	// Label is the name the agent presents to other agents.
	Label string
	// Endpoints are published in the agent's DID documents. The endpoints of the inbound
	// transports are used when empty.
	Endpoints []string
	// Transports lists endpoint schemes by preference. It orders the services a message is sent to.
	Transports []string
	// CatchErrors logs handler failures instead of returning them to the transport.
	CatchErrors bool
	// DIDMarker selects the DID the agent sends from when no other marker is given.
	DIDMarker   string
	WaitTimeout time.Duration
	LogLevel    string
	// ConnectionLookupRetries and ConnectionLookupInterval bound the retries of the inbound
	// connection lookup.
	ConnectionLookupRetries  uint64
	ConnectionLookupInterval time.Duration
	ResolutionCacheSize      int
	ResolutionCacheTTL       time.Duration
}

// DefaultConfig returns the settings used for everything not set by an option.
func DefaultConfig() Config {
	return Config{
		Transports:               []string{"https", "http", "wss", "ws"},
		DIDMarker:                defaultDIDMarker,
		WaitTimeout:              event.DefaultWaitTimeout,
		ConnectionLookupRetries:  defaultLookupRetries,
		ConnectionLookupInterval: defaultLookupBackoff,
		ResolutionCacheSize:      defaultCacheSize,
		ResolutionCacheTTL:       defaultCacheTTL,
	}
}

// withDefaults fills the zero fields of c from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()

	if len(c.Transports) == 0 {
		c.Transports = def.Transports
	}

	if c.DIDMarker == "" {
		c.DIDMarker = def.DIDMarker
	}

	if c.WaitTimeout <= 0 {
		c.WaitTimeout = def.WaitTimeout
	}

	if c.ConnectionLookupRetries == 0 {
		c.ConnectionLookupRetries = def.ConnectionLookupRetries
	}

	if c.ConnectionLookupInterval <= 0 {
		c.ConnectionLookupInterval = def.ConnectionLookupInterval
	}

	if c.ResolutionCacheSize <= 0 {
		c.ResolutionCacheSize = def.ResolutionCacheSize
	}

	if c.ResolutionCacheTTL <= 0 {
		c.ResolutionCacheTTL = def.ResolutionCacheTTL
	}

	return c
}
