/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package envelope

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/btcsuite/btcutil/base58"
	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/stretchr/testify/require"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/common/model"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/message"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/doc/did"
	vdrapi "github.com/ArtemPivovarov/aries-framework-javascript/pkg/framework/aries/api/vdr"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/kms"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/kms/localkms"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/vdr"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/vdr/fingerprint"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/vdr/peer"
)

const basicMessage = "https://didcomm.org/basicmessage/1.0/message"

type storageProvider struct {
	p storage.Provider
}

func (s *storageProvider) StorageProvider() storage.Provider {
	return s.p
}

type mockProvider struct {
	kms kms.KeyManager
	vdr vdrapi.Registry
}

func (m *mockProvider) KMS() kms.KeyManager {
	return m.kms
}

func (m *mockProvider) VDRegistry() vdrapi.Registry {
	return m.vdr
}

type agent struct {
	svc    *Service
	verKey string
	did    string
}

func newRegistry(t *testing.T) vdrapi.Registry {
	t.Helper()

	peerVDR, err := peer.New(&storageProvider{p: mem.NewProvider()})
	require.NoError(t, err)

	return vdr.New(vdr.WithVDR(peerVDR))
}

func newAgent(t *testing.T, registry vdrapi.Registry) *agent {
	t.Helper()

	k, err := localkms.New(&storageProvider{p: mem.NewProvider()})
	require.NoError(t, err)

	verKey, authPub, err := k.Create(kms.ED25519Type)
	require.NoError(t, err)

	_, kaPub, err := k.Create(kms.NISTP256ECDHKWType)
	require.NoError(t, err)

	auth := did.NewVerificationMethod("#auth", "", kms.ED25519Type, authPub)
	ka := did.NewVerificationMethod("#ka", "", kms.NISTP256ECDHKWType, kaPub)

	p, err := peer.FromDIDDocument(did.BuildDoc(
		did.WithVerificationMethod(*auth, *ka),
		did.WithAuthentication(*did.NewReferencedVerification(auth)),
		did.WithKeyAgreement(*did.NewReferencedVerification(ka)),
	), peer.MultipleInceptionKeyWithoutDoc)
	require.NoError(t, err)

	return &agent{
		svc:    New(&mockProvider{kms: k, vdr: registry}),
		verKey: verKey,
		did:    p.String(),
	}
}

func newV1(t *testing.T) *message.V1 {
	t.Helper()

	msg, err := message.NewV1(basicMessage, map[string]interface{}{"content": "hello"})
	require.NoError(t, err)

	return msg
}

func newV2(t *testing.T, from, to string) *message.V2 {
	t.Helper()

	msg, err := message.NewV2("https://didcomm.org/basicmessage/2.0/message", from, []string{to},
		map[string]interface{}{"content": "hello"})
	require.NoError(t, err)

	return msg
}

func unpack(t *testing.T, a *agent, packed []byte) *DecryptedMessage {
	t.Helper()

	out, err := a.svc.Unpack(context.Background(), ParsePackedMessage(packed))
	require.NoError(t, err)

	return out
}

func TestV1RoundTrip(t *testing.T) {
	registry := newRegistry(t)
	alice := newAgent(t, registry)
	bob := newAgent(t, registry)

	msg := newV1(t)

	t.Run("authcrypt", func(t *testing.T) {
		packed, err := alice.svc.PackEncrypted(context.Background(), msg, &V1Params{
			RecipientKeys: []string{bob.verKey},
			SenderKey:     alice.verKey,
		})
		require.NoError(t, err)
		require.Equal(t, Encrypted, ParsePackedMessage(packed).Type)
		require.True(t, IsV1Envelope(packed))

		out := unpack(t, bob, packed)
		require.Equal(t, message.DIDCommV1, out.Version)
		require.Equal(t, alice.verKey, out.Sender)
		require.Equal(t, bob.verKey, out.Recipient)

		parsed, err := message.Parse(out.Plaintext)
		require.NoError(t, err)
		require.Equal(t, msg.ID(), parsed.ID())
	})

	t.Run("anoncrypt to a did:key recipient", func(t *testing.T) {
		didKey, _ := fingerprint.CreateDIDKey(base58.Decode(bob.verKey))

		packed, err := alice.svc.PackEncrypted(context.Background(), msg, &V1Params{
			RecipientKeys: []string{didKey},
		})
		require.NoError(t, err)

		out := unpack(t, bob, packed)
		require.Empty(t, out.Sender)
		require.Equal(t, bob.verKey, out.Recipient)
	})
}

func TestV1Forward(t *testing.T) {
	registry := newRegistry(t)
	alice := newAgent(t, registry)
	bob := newAgent(t, registry)
	mediator := newAgent(t, registry)

	packed, err := alice.svc.PackEncrypted(context.Background(), newV1(t), &V1Params{
		RecipientKeys: []string{bob.verKey},
		RoutingKeys:   []string{mediator.verKey},
		SenderKey:     alice.verKey,
	})
	require.NoError(t, err)

	outer := unpack(t, mediator, packed)
	require.Empty(t, outer.Sender)

	forward := model.Forward{}
	require.NoError(t, json.Unmarshal(outer.Plaintext, &forward))
	require.Equal(t, model.ForwardType, forward.Type)
	require.Equal(t, bob.verKey, forward.To)

	inner := unpack(t, bob, forward.Msg)
	require.Equal(t, alice.verKey, inner.Sender)

	_, err = bob.svc.Unpack(context.Background(), ParsePackedMessage(packed))
	require.Error(t, err)
}

func TestV2RoundTrip(t *testing.T) {
	registry := newRegistry(t)
	alice := newAgent(t, registry)
	bob := newAgent(t, registry)

	t.Run("anoncrypt", func(t *testing.T) {
		msg := newV2(t, "", bob.did)

		packed, err := alice.svc.PackEncrypted(context.Background(), msg, &V2Params{ToDID: bob.did})
		require.NoError(t, err)
		require.False(t, IsV1Envelope(packed))

		out := unpack(t, bob, packed)
		require.Equal(t, message.DIDCommV2, out.Version)
		require.Empty(t, out.Sender)
		require.Equal(t, bob.did, did.ExtractDIDFromKID(out.Recipient))

		parsed, err := message.Parse(out.Plaintext)
		require.NoError(t, err)
		require.Equal(t, msg.ID(), parsed.ID())
	})

	t.Run("authenticated", func(t *testing.T) {
		msg := newV2(t, alice.did, bob.did)

		packed, err := alice.svc.PackEncrypted(context.Background(), msg,
			&V2Params{ToDID: bob.did, FromDID: alice.did})
		require.NoError(t, err)

		out := unpack(t, bob, packed)
		require.Equal(t, alice.did, did.ExtractDIDFromKID(out.Sender))
	})

	t.Run("signed", func(t *testing.T) {
		msg := newV2(t, alice.did, bob.did)

		packed, err := alice.svc.PackSigned(context.Background(), msg, &SignedParams{SignByDID: alice.did})
		require.NoError(t, err)
		require.Equal(t, Signed, ParsePackedMessage(packed).Type)

		out := unpack(t, bob, packed)
		require.Equal(t, message.DIDCommV2, out.Version)
		require.Equal(t, alice.did, did.ExtractDIDFromKID(out.Sender))
	})

	t.Run("plain", func(t *testing.T) {
		b, err := json.Marshal(newV2(t, alice.did, bob.did))
		require.NoError(t, err)

		out := unpack(t, bob, b)
		require.Equal(t, b, out.Plaintext)
		require.Equal(t, message.DIDCommV2, out.Version)

		v1, err := json.Marshal(newV1(t))
		require.NoError(t, err)
		require.Equal(t, message.DIDCommV1, unpack(t, bob, v1).Version)
	})
}

func TestPack_Errors(t *testing.T) {
	registry := newRegistry(t)
	alice := newAgent(t, registry)

	t.Run("V2 without a recipient DID fails before any crypto", func(t *testing.T) {
		svc := &Service{}

		_, err := svc.PackEncrypted(context.Background(), newV2(t, alice.did, ""), &V2Params{FromDID: alice.did})
		require.ErrorIs(t, err, ErrNoConnection)
	})

	t.Run("V1 messages cannot be signed", func(t *testing.T) {
		_, err := alice.svc.PackSigned(context.Background(), newV1(t), &SignedParams{SignByDID: alice.did})
		require.ErrorIs(t, err, ErrUnsupportedOperation)
	})

	t.Run("unknown variant", func(t *testing.T) {
		_, err := alice.svc.PackEncrypted(context.Background(), nil, &V1Params{})
		require.ErrorIs(t, err, ErrUnsupportedVersion)

		_, err = alice.svc.PackSigned(context.Background(), nil, &SignedParams{})
		require.ErrorIs(t, err, ErrUnsupportedVersion)

		_, err = alice.svc.Unpack(context.Background(), PackedMessage{Type: "compressed"})
		require.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("parameters of the other generation", func(t *testing.T) {
		_, err := alice.svc.PackEncrypted(context.Background(), newV1(t), &V2Params{ToDID: alice.did})
		require.ErrorContains(t, err, "V1 message needs V1 parameters")

		_, err = alice.svc.PackEncrypted(context.Background(), newV2(t, "", alice.did), &V1Params{})
		require.ErrorContains(t, err, "V2 message needs V2 parameters")
	})

	t.Run("invalid keys", func(t *testing.T) {
		_, err := alice.svc.PackEncrypted(context.Background(), newV1(t), &V1Params{RecipientKeys: []string{"0OIl"}})
		require.ErrorContains(t, err, "is not base58")

		_, err = alice.svc.PackEncrypted(context.Background(), newV1(t), &V1Params{
			RecipientKeys: []string{alice.verKey},
			RoutingKeys:   []string{"did:key:zInvalid"},
		})
		require.ErrorContains(t, err, "routing key")
	})
}

func TestParsePackedMessage(t *testing.T) {
	require.Equal(t, Encrypted, ParsePackedMessage([]byte(`{"protected":"e30","ciphertext":"x"}`)).Type)
	require.Equal(t, Signed, ParsePackedMessage([]byte(`{"payload":"e30","signatures":[]}`)).Type)
	require.Equal(t, Signed, ParsePackedMessage([]byte(`{"payload":"e30","signature":"x"}`)).Type)
	require.Equal(t, Plain, ParsePackedMessage([]byte(`{"@type":"x"}`)).Type)
	require.Equal(t, Plain, ParsePackedMessage([]byte(`not json`)).Type)
}
