/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cryptoutil

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"errors"
	"fmt"

	"github.com/teserakt-io/golang-ed25519/extra25519"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/kms"
)

// Curve25519KeySize number of bytes in a Curve25519 public or private key.
const Curve25519KeySize = 32

// NonceSize size of a nonce used by Box encryption.
const NonceSize = 24

// ErrInvalidKey is used when a key is invalid.
var ErrInvalidKey = errors.New("invalid key")

// PublicEd25519toCurve25519 takes an Ed25519 public key and provides the corresponding Curve25519 public key.
func PublicEd25519toCurve25519(pub []byte) ([]byte, error) {
	if len(pub) == 0 {
		return nil, errors.New("key is nil")
	}

	if len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%d-byte key size is invalid", len(pub))
	}

	pkOut := new([Curve25519KeySize]byte)
	pKIn := new([Curve25519KeySize]byte)
	copy(pKIn[:], pub)

	success := extra25519.PublicKeyToCurve25519(pkOut, pKIn)
	if !success {
		return nil, errors.New("error converting public key")
	}

	return pkOut[:], nil
}

// SecretEd25519toCurve25519 converts a secret key from Ed25519 to curve25519 format.
func SecretEd25519toCurve25519(priv []byte) ([]byte, error) {
	if len(priv) == 0 {
		return nil, errors.New("key is nil")
	}

	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%d-byte key size is invalid", len(priv))
	}

	sKIn := new([ed25519.PrivateKeySize]byte)
	copy(sKIn[:], priv)

	sKOut := new([Curve25519KeySize]byte)
	extra25519.PrivateKeyToCurve25519(sKOut, sKIn)

	return sKOut[:], nil
}

// PublicKey converts raw public key bytes of type kt into a Go crypto public key:
// ed25519.PublicKey, *ecdsa.PublicKey (from a compressed point) or the raw X25519 bytes.
func PublicKey(kt kms.KeyType, raw []byte) (crypto.PublicKey, error) {
	switch kt {
	case kms.ED25519Type:
		if len(raw) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("ed25519 public key: %w", ErrInvalidKey)
		}

		return ed25519.PublicKey(raw), nil
	case kms.X25519ECDHKWType:
		if len(raw) != Curve25519KeySize {
			return nil, fmt.Errorf("x25519 public key: %w", ErrInvalidKey)
		}

		return raw, nil
	case kms.NISTP256ECDHKWType:
		x, y := elliptic.UnmarshalCompressed(elliptic.P256(), raw)
		if x == nil {
			x, y = elliptic.Unmarshal(elliptic.P256(), raw) //nolint:staticcheck
		}

		if x == nil {
			return nil, fmt.Errorf("P-256 public key: %w", ErrInvalidKey)
		}

		return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
	default:
		return nil, fmt.Errorf("public key of type %s: %w", kt, ErrInvalidKey)
	}
}
