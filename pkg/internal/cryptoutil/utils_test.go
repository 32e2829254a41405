/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cryptoutil

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/curve25519"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/kms"
)

func TestEd25519toCurve25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	curvePub, err := PublicEd25519toCurve25519(pub)
	require.NoError(t, err)

	curvePriv, err := SecretEd25519toCurve25519(priv)
	require.NoError(t, err)

	derived, err := curve25519.X25519(curvePriv, curve25519.Basepoint)
	require.NoError(t, err)
	require.Equal(t, curvePub, derived)

	_, err = PublicEd25519toCurve25519(nil)
	require.EqualError(t, err, "key is nil")

	_, err = PublicEd25519toCurve25519([]byte{1, 2})
	require.EqualError(t, err, "2-byte key size is invalid")

	_, err = SecretEd25519toCurve25519(nil)
	require.EqualError(t, err, "key is nil")
}

func TestPublicKey(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	k, err := PublicKey(kms.ED25519Type, pub)
	require.NoError(t, err)
	require.Equal(t, pub, k)

	ec, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	k, err = PublicKey(kms.NISTP256ECDHKWType, elliptic.MarshalCompressed(elliptic.P256(), ec.X, ec.Y))
	require.NoError(t, err)
	require.True(t, ec.PublicKey.Equal(k))

	_, err = PublicKey(kms.NISTP256ECDHKWType, []byte{1})
	require.ErrorIs(t, err, ErrInvalidKey)

	_, err = PublicKey(kms.X25519ECDHKWType, []byte{1})
	require.ErrorIs(t, err, ErrInvalidKey)

	_, err = PublicKey("RSA", nil)
	require.ErrorIs(t, err, ErrInvalidKey)
}
