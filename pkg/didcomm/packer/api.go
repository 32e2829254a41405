/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package packer

import (
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/kms"
)

// Provider interface for Packer ctx.
type Provider interface {
	KMS() kms.KeyManager
}

// Envelope is the result of unpacking a DIDComm envelope.
type Envelope struct {
	// Message is the unpacked plaintext.
	Message []byte
	// FromKey identifies the sender key: a base58 verkey for legacy envelopes, a DID key ID for JOSE
	// envelopes. Empty for anonymous envelopes.
	FromKey string
	// ToKey identifies the recipient key that opened the envelope.
	ToKey string
}
