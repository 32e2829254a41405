/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vdr

import (
	"context"
	"errors"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/doc/did"
)

// ErrNotFound is returned when a DID resolver does not find the DID.
var ErrNotFound = errors.New("DID not found")

// Registry vdr registry.
type Registry interface {
	Resolve(ctx context.Context, did string) (*did.DocResolution, error)
	Close() error
}

// VDR verifiable data registry interface.
type VDR interface {
	Read(ctx context.Context, did string) (*did.DocResolution, error)
	Accept(method string) bool
	Close() error
}
