/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package peer

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/stretchr/testify/require"

	vdrapi "github.com/ArtemPivovarov/aries-framework-javascript/pkg/framework/aries/api/vdr"
)

type mockProvider struct {
	storageProvider storage.Provider
}

func (m *mockProvider) StorageProvider() storage.Provider {
	return m.storageProvider
}

type failingProvider struct {
	storage.Provider
}

func (f *failingProvider) OpenStore(string) (storage.Store, error) {
	return nil, errors.New("open store failed")
}

func TestVDR(t *testing.T) {
	_, err := New(&mockProvider{storageProvider: &failingProvider{}})
	require.ErrorContains(t, err, "open store failed")

	v, err := New(&mockProvider{storageProvider: mem.NewProvider()})
	require.NoError(t, err)
	require.True(t, v.Accept("peer"))
	require.False(t, v.Accept("key"))

	t.Run("numAlgo 1 genesis document is stored", func(t *testing.T) {
		p, err := v.Create(numAlgo2TestDoc(t), GenesisDoc)
		require.NoError(t, err)

		res, err := v.Read(context.Background(), p.String())
		require.NoError(t, err)
		require.Equal(t, p.String(), res.DIDDocument.ID)

		expected, err := p.DIDDocument()
		require.NoError(t, err)
		require.Equal(t, expected, res.DIDDocument)
	})

	t.Run("numAlgo 2 is not stored", func(t *testing.T) {
		p, err := v.Create(numAlgo2TestDoc(t), MultipleInceptionKeyWithoutDoc)
		require.NoError(t, err)

		res, err := v.Read(context.Background(), p.String())
		require.NoError(t, err)
		require.Len(t, res.DIDDocument.Service, 1)
	})

	t.Run("numAlgo 0", func(t *testing.T) {
		res, err := v.Read(context.Background(), numAlgo0DID)
		require.NoError(t, err)
		require.Equal(t, numAlgo0DID, res.DIDDocument.ID)
	})

	t.Run("unknown numAlgo 1 DID", func(t *testing.T) {
		p, err := FromDIDDocument(numAlgo2TestDoc(t), GenesisDoc)
		require.NoError(t, err)

		_, err = v.Read(context.Background(), p.String())
		require.ErrorIs(t, err, vdrapi.ErrNotFound)
	})

	t.Run("invalid DID", func(t *testing.T) {
		_, err := v.Read(context.Background(), "did:peer:9abc")
		require.ErrorIs(t, err, ErrInvalidPeerDID)
	})

	t.Run("store without genesis document", func(t *testing.T) {
		p, err := FromDID(numAlgo0DID)
		require.NoError(t, err)
		require.ErrorIs(t, v.Store(p), ErrMissingGenesisDocument)
	})

	require.NoError(t, v.Close())
}
