/*
 Copyright SecureKey Technologies Inc. All Rights Reserved.

 SPDX-License-Identifier: Apache-2.0
*/

package localkms

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/btcsuite/btcutil/base58"
	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/stretchr/testify/require"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/kms"
)

type mockProvider struct {
	storageProvider storage.Provider
}

func (m *mockProvider) StorageProvider() storage.Provider {
	return m.storageProvider
}

type failingProvider struct {
	storage.Provider
	err error
}

func (f *failingProvider) OpenStore(string) (storage.Store, error) {
	return nil, f.err
}

func newKMS(t *testing.T) *LocalKMS {
	t.Helper()

	k, err := New(&mockProvider{storageProvider: mem.NewProvider()})
	require.NoError(t, err)

	return k
}

func TestNew(t *testing.T) {
	t.Run("open store error", func(t *testing.T) {
		_, err := New(&mockProvider{storageProvider: &failingProvider{err: errors.New("open error")}})
		require.ErrorContains(t, err, "open error")
	})
}

func TestLocalKMS_Create(t *testing.T) {
	k := newKMS(t)

	t.Run("ed25519", func(t *testing.T) {
		kid, pub, err := k.Create(kms.ED25519Type)
		require.NoError(t, err)
		require.Len(t, pub, ed25519.PublicKeySize)
		require.Equal(t, base58.Encode(pub), kid)
		require.True(t, k.HasKey(kid))

		priv, kt, err := k.PrivateKey(kid)
		require.NoError(t, err)
		require.Equal(t, kms.ED25519Type, kt)
		require.Equal(t, ed25519.PublicKey(pub), priv.(ed25519.PrivateKey).Public())
	})

	t.Run("x25519", func(t *testing.T) {
		kid, pub, err := k.Create(kms.X25519ECDHKWType)
		require.NoError(t, err)
		require.Len(t, pub, 32)

		priv, kt, err := k.PrivateKey(kid)
		require.NoError(t, err)
		require.Equal(t, kms.X25519ECDHKWType, kt)
		require.Len(t, priv.([]byte), 32)
	})

	t.Run("P-256", func(t *testing.T) {
		kid, pub, err := k.Create(kms.NISTP256ECDHKWType)
		require.NoError(t, err)
		require.Len(t, pub, 33)

		priv, kt, err := k.PrivateKey(kid)
		require.NoError(t, err)
		require.Equal(t, kms.NISTP256ECDHKWType, kt)

		ecPriv, ok := priv.(*ecdsa.PrivateKey)
		require.True(t, ok)
		require.True(t, ecPriv.Curve.IsOnCurve(ecPriv.X, ecPriv.Y))
	})

	t.Run("unsupported type", func(t *testing.T) {
		_, _, err := k.Create("RSA")
		require.ErrorContains(t, err, "not supported")
	})
}

func TestLocalKMS_PrivateKey(t *testing.T) {
	k := newKMS(t)

	_, _, err := k.PrivateKey("missing")
	require.ErrorIs(t, err, kms.ErrKeyNotFound)
	require.False(t, k.HasKey("missing"))

	_, _, err = k.ImportPrivateKey([]byte("short"), kms.ED25519Type)
	require.ErrorContains(t, err, "invalid ed25519 private key")
}
