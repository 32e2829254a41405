/*
 Copyright SecureKey Technologies Inc. All Rights Reserved.

 SPDX-License-Identifier: Apache-2.0
*/

package kms

import (
	"crypto"
	"errors"
)

// KeyType is the type of key managed by the KMS.
type KeyType string

const (
	// ED25519Type is an Ed25519 signing key. DIDComm V1 envelopes also use it for encryption
	// after conversion to Curve25519.
	ED25519Type = KeyType("ED25519")
	// X25519ECDHKWType is an X25519 key agreement key.
	X25519ECDHKWType = KeyType("X25519ECDHKW")
	// NISTP256ECDHKWType is a P-256 key agreement key used by DIDComm V2 JWE envelopes.
	NISTP256ECDHKWType = KeyType("NISTP256ECDHKW")
)

// ErrKeyNotFound is returned when no key is stored under the requested key ID.
var ErrKeyNotFound = errors.New("key not found")

// KeyManager creates and stores agent keys. Key IDs are the base58 encoded public key bytes
// (the "verkey" for Ed25519 keys) so both DIDComm generations can look keys up from the
// material they find in an envelope or a DID document.
type KeyManager interface {
	// Create a new key of type kt and return its key ID and public key bytes.
	Create(kt KeyType) (string, []byte, error)
	// ImportPrivateKey stores an existing private key and returns its key ID and public key bytes.
	ImportPrivateKey(privKey crypto.PrivateKey, kt KeyType) (string, []byte, error)
	// PrivateKey returns the private key stored under keyID.
	PrivateKey(keyID string) (crypto.PrivateKey, KeyType, error)
	// HasKey reports whether a key is stored under keyID.
	HasKey(keyID string) bool
}

// Provider supplies a KeyManager.
type Provider interface {
	KMS() KeyManager
}
