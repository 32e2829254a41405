/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package legacy

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/nacl/box"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/internal/cryptoutil"
)

// makeNonce builds the libsodium sealed box nonce: blake2b(epk || recPub) truncated to 24 bytes.
func makeNonce(pub1, pub2 []byte) (*[cryptoutil.NonceSize]byte, error) {
	var nonce [cryptoutil.NonceSize]byte

	nonceWriter, err := blake2b.New(cryptoutil.NonceSize, nil)
	if err != nil {
		return nil, err
	}

	if _, err = nonceWriter.Write(pub1); err != nil {
		return nil, err
	}

	if _, err = nonceWriter.Write(pub2); err != nil {
		return nil, err
	}

	copy(nonce[:], nonceWriter.Sum(nil))

	return &nonce, nil
}

// sodiumBoxSeal anonymously encrypts msg for recPub (crypto_box_seal).
func sodiumBoxSeal(msg []byte, recPub *[cryptoutil.Curve25519KeySize]byte, randSource io.Reader) ([]byte, error) {
	epk, esk, err := box.GenerateKey(randSource)
	if err != nil {
		return nil, err
	}

	nonce, err := makeNonce(epk[:], recPub[:])
	if err != nil {
		return nil, err
	}

	return box.Seal(epk[:], msg, nonce, recPub, esk), nil
}

// sodiumBoxSealOpen reverses sodiumBoxSeal (crypto_box_seal_open).
func sodiumBoxSealOpen(msg []byte, recPub, recPriv *[cryptoutil.Curve25519KeySize]byte) ([]byte, error) {
	if len(msg) < cryptoutil.Curve25519KeySize+box.Overhead {
		return nil, errors.New("sealed box too short")
	}

	var epk [cryptoutil.Curve25519KeySize]byte

	copy(epk[:], msg[:cryptoutil.Curve25519KeySize])

	nonce, err := makeNonce(epk[:], recPub[:])
	if err != nil {
		return nil, err
	}

	out, ok := box.Open(nil, msg[cryptoutil.Curve25519KeySize:], nonce, &epk, recPriv)
	if !ok {
		return nil, errors.New("failed to unpack sealed box")
	}

	return out, nil
}

func curvePub(edPub []byte) (*[cryptoutil.Curve25519KeySize]byte, error) {
	pub, err := cryptoutil.PublicEd25519toCurve25519(edPub)
	if err != nil {
		return nil, fmt.Errorf("convert public key: %w", err)
	}

	var out [cryptoutil.Curve25519KeySize]byte

	copy(out[:], pub)

	return &out, nil
}

func curvePriv(edPriv []byte) (*[cryptoutil.Curve25519KeySize]byte, error) {
	priv, err := cryptoutil.SecretEd25519toCurve25519(edPriv)
	if err != nil {
		return nil, fmt.Errorf("convert private key: %w", err)
	}

	var out [cryptoutil.Curve25519KeySize]byte

	copy(out[:], priv)

	return &out, nil
}
