/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vdr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bluele/gcache"
	"github.com/hyperledger/aries-framework-go/component/log"

	diddoc "github.com/ArtemPivovarov/aries-framework-javascript/pkg/doc/did"
	vdrapi "github.com/ArtemPivovarov/aries-framework-javascript/pkg/framework/aries/api/vdr"
)

const (
	defaultCacheSize = 100
	defaultCacheTTL  = 5 * time.Minute
)

var logger = log.New("aries-framework/vdr")

// Option is a vdr instance option.
type Option func(opts *Registry)

// Registry vdr registry.
type Registry struct {
	vdr      []vdrapi.VDR
	cache    gcache.Cache
	cacheTTL time.Duration
}

// New return new instance of vdr.
func New(opts ...Option) *Registry {
	baseVDR := &Registry{cacheTTL: defaultCacheTTL}

	// Apply options
	for _, opt := range opts {
		opt(baseVDR)
	}

	if baseVDR.cache == nil {
		baseVDR.cache = gcache.New(defaultCacheSize).LRU().Build()
	}

	return baseVDR
}

// Resolve did document. When resolution fails the returned resolution carries the
// error code and message alongside the error.
func (r *Registry) Resolve(ctx context.Context, did string) (*diddoc.DocResolution, error) {
	if cached, err := r.cache.Get(did); err == nil {
		if res, ok := cached.(*diddoc.DocResolution); ok {
			return res, nil
		}
	}

	didMethod, err := GetDidMethod(did)
	if err != nil {
		return failedResolution(diddoc.InvalidDID, err), err
	}

	// resolve did method
	method, err := r.resolveVDR(didMethod)
	if err != nil {
		return failedResolution(diddoc.MethodNotSupport, err), err
	}

	// Obtain the DID Document
	didDocResolution, err := method.Read(ctx, did)
	if err != nil {
		if errors.Is(err, vdrapi.ErrNotFound) {
			return failedResolution(diddoc.NotFound, err), err
		}

		err = fmt.Errorf("did method read failed: %w", err)

		return failedResolution(diddoc.NotFound, err), err
	}

	if didDocResolution.DIDDocument != nil {
		if err := r.cache.SetWithExpire(did, didDocResolution, r.cacheTTL); err != nil {
			logger.Warnf("cache resolution of %s: %s", did, err)
		}
	}

	return didDocResolution, nil
}

// Evict drops a cached resolution, used when a peer rotates its DID document.
func (r *Registry) Evict(did string) {
	r.cache.Remove(did)
}

// Close frees resources being maintained by vdr.
func (r *Registry) Close() error {
	r.cache.Purge()

	for _, v := range r.vdr {
		if err := v.Close(); err != nil {
			return fmt.Errorf("close vdr: %w", err)
		}
	}

	return nil
}

func (r *Registry) resolveVDR(method string) (vdrapi.VDR, error) {
	for _, v := range r.vdr {
		if v.Accept(method) {
			return v, nil
		}
	}

	return nil, fmt.Errorf("did method %s not supported for vdr", method)
}

func failedResolution(code string, err error) *diddoc.DocResolution {
	return &diddoc.DocResolution{ResolutionMetadata: diddoc.ResolutionMetadata{Error: code, Message: err.Error()}}
}

// WithVDR adds did method implementation for store.
func WithVDR(method vdrapi.VDR) Option {
	return func(opts *Registry) {
		opts.vdr = append(opts.vdr, method)
	}
}

// WithCache sets the size and TTL of the resolution cache.
func WithCache(size int, ttl time.Duration) Option {
	return func(opts *Registry) {
		opts.cache = gcache.New(size).LRU().Build()
		opts.cacheTTL = ttl
	}
}

// GetDidMethod get did method.
func GetDidMethod(didID string) (string, error) {
	// For now we do simple validation
	const numPartsDID = 3

	didParts := strings.Split(didID, ":")
	if len(didParts) < numPartsDID || didParts[0] != "did" {
		return "", fmt.Errorf("wrong format did input: %s", didID)
	}

	return didParts[1], nil
}
