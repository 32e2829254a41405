/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fingerprint

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/kms"
)

const (
	// source: https://github.com/multiformats/multicodec/blob/master/table.csv.
	x25519pub  = 0xec   // Curve25519 public key in multicodec table
	ed25519pub = 0xed   // Ed25519 public key in multicodec table
	p256pub    = 0x1200 // P-256 compressed public key in multicodec table
)

// ErrUnsupportedKey is returned for keys with no multicodec mapping.
var ErrUnsupportedKey = errors.New("unsupported public key")

// CreateDIDKey creates a did:key ID using the multicodec key fingerprint as per the did:key format spec found at:
// https://w3c-ccg.github.io/did-method-key/#format.
func CreateDIDKey(pubKey []byte) (string, string) {
	methodID := KeyFingerprint(ed25519pub, pubKey)
	didKey := fmt.Sprintf("did:key:%s", methodID)
	keyID := fmt.Sprintf("%s#%s", didKey, methodID)

	return didKey, keyID
}

// Multicodec returns the multicodec code for kt.
func Multicodec(kt kms.KeyType) (uint64, error) {
	switch kt {
	case kms.ED25519Type:
		return ed25519pub, nil
	case kms.X25519ECDHKWType:
		return x25519pub, nil
	case kms.NISTP256ECDHKWType:
		return p256pub, nil
	default:
		return 0, fmt.Errorf("multicodec for %s: %w", kt, ErrUnsupportedKey)
	}
}

// KeyTypeFingerprint generates the multicodec fingerprint of a key of type kt.
func KeyTypeFingerprint(kt kms.KeyType, pubKeyValue []byte) (string, error) {
	code, err := Multicodec(kt)
	if err != nil {
		return "", err
	}

	return KeyFingerprint(code, pubKeyValue), nil
}

// KeyFingerprint generates a multicode fingerprint for pubKeyValue (raw key []byte).
// It is mainly used as the controller ID (methodSpecification ID) of a did key.
func KeyFingerprint(code uint64, pubKeyValue []byte) string {
	multicodecValue := multicodec(code)
	mcLength := len(multicodecValue)
	buf := make([]uint8, mcLength+len(pubKeyValue))
	copy(buf, multicodecValue)
	copy(buf[mcLength:], pubKeyValue)

	return fmt.Sprintf("z%s", base58.Encode(buf))
}

func multicodec(code uint64) []byte {
	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, code)

	return buf[:n]
}

// PubKeyFromFingerprint extracts the raw public key and its type from a multicodec fingerprint.
func PubKeyFromFingerprint(fingerprint string) ([]byte, kms.KeyType, error) {
	// MULTIBASE(base58-btc, MULTICODEC(public-key-type, raw-public-key-bytes))
	if !strings.HasPrefix(fingerprint, "z") {
		return nil, "", fmt.Errorf("pubKeyFromFingerprint: unknown multibase prefix in %q", fingerprint)
	}

	mc := base58.Decode(fingerprint[1:])

	code, n := binary.Uvarint(mc)
	if n <= 0 {
		return nil, "", fmt.Errorf("pubKeyFromFingerprint: invalid multicodec prefix in %q", fingerprint)
	}

	var (
		kt      kms.KeyType
		keySize int
	)

	switch code {
	case ed25519pub:
		kt, keySize = kms.ED25519Type, 32
	case x25519pub:
		kt, keySize = kms.X25519ECDHKWType, 32
	case p256pub:
		kt, keySize = kms.NISTP256ECDHKWType, 33
	default:
		return nil, "", fmt.Errorf("pubKeyFromFingerprint: multicodec code %#x: %w", code, ErrUnsupportedKey)
	}

	if len(mc)-n != keySize {
		return nil, "", fmt.Errorf("pubKeyFromFingerprint: invalid %s key length %d", kt, len(mc)-n)
	}

	return mc[n:], kt, nil
}
