/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/btcsuite/btcutil/base58"
	"github.com/stretchr/testify/require"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/kms"
)

//nolint:lll
const validDoc = `{
  "@context": ["https://www.w3.org/ns/did/v1", {"@base": "did:example:alice"}],
  "id": "did:example:alice",
  "verificationMethod": [
    {
      "id": "did:example:alice#key-1",
      "type": "Ed25519VerificationKey2018",
      "controller": "did:example:alice",
      "publicKeyBase58": "B12NYF8RrR3h41TDCTJojY59usg3mbtbjnFs7Eud1Y6u"
    },
    {
      "id": "did:example:alice#key-2",
      "type": "X25519KeyAgreementKey2020",
      "controller": "did:example:alice",
      "publicKeyMultibase": "z6LSbysY2xFMRpGMhb7tFTLMpeuPRaqaWM1yECx2AtzE3KCc"
    }
  ],
  "authentication": [
    "#key-1",
    {
      "id": "did:example:alice#key-3",
      "type": "Ed25519VerificationKey2018",
      "controller": "did:example:alice",
      "publicKeyBase58": "H3C2AVvLMv6gmMNam3uVAjZpfkcJCwDwnZn6z3wXmqPV"
    }
  ],
  "keyAgreement": ["did:example:alice#key-2"],
  "service": [
    {
      "id": "did:example:alice#indy",
      "type": "IndyAgent",
      "priority": 0,
      "recipientKeys": ["B12NYF8RrR3h41TDCTJojY59usg3mbtbjnFs7Eud1Y6u"],
      "serviceEndpoint": "https://agent.example.com"
    },
    {
      "id": "did:example:alice#didcomm-1",
      "type": "DIDCommMessaging",
      "serviceEndpoint": {
        "uri": "wss://agent.example.com/ws",
        "accept": ["didcomm/v2"],
        "routingKeys": ["did:example:mediator#key-1"]
      }
    }
  ]
}`

func TestParse(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		d, err := Parse("did:peer:0z6MkpTHR8VNsBxYAAWHut2Geadd9jSwuBV8xRoAnwWsdvktH")
		require.NoError(t, err)
		require.Equal(t, "peer", d.Method)
		require.Equal(t, "0z6MkpTHR8VNsBxYAAWHut2Geadd9jSwuBV8xRoAnwWsdvktH", d.MethodSpecificID)
		require.Equal(t, "did:peer:0z6MkpTHR8VNsBxYAAWHut2Geadd9jSwuBV8xRoAnwWsdvktH", d.String())
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := Parse("not-a-did")
		require.ErrorContains(t, err, "invalid did")
	})
}

func TestExtractDIDFromKID(t *testing.T) {
	require.Equal(t, "did:example:alice", ExtractDIDFromKID("did:example:alice#key-1"))
	require.Equal(t, "did:example:alice", ExtractDIDFromKID("did:example:alice"))
}

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(validDoc))
	require.NoError(t, err)

	require.Equal(t, []string{ContextV1}, doc.Context)
	require.Equal(t, "did:example:alice", doc.ID)
	require.Len(t, doc.VerificationMethod, 2)
	require.Equal(t, base58.Decode("B12NYF8RrR3h41TDCTJojY59usg3mbtbjnFs7Eud1Y6u"), doc.VerificationMethod[0].Value)
	require.Equal(t, kms.X25519ECDHKWType, doc.VerificationMethod[1].KeyType())
	require.Len(t, doc.VerificationMethod[1].Value, 32)

	require.Len(t, doc.Authentication, 2)
	require.False(t, doc.Authentication[0].Embedded)
	require.Equal(t, "did:example:alice#key-1", doc.Authentication[0].VerificationMethod.ID)
	require.True(t, doc.Authentication[1].Embedded)

	require.Len(t, doc.Service, 2)
	require.Equal(t, "wss://agent.example.com/ws", doc.Service[1].ServiceEndpoint)
	require.Equal(t, []string{"didcomm/v2"}, doc.Service[1].Accept)
	require.Equal(t, []string{"did:example:mediator#key-1"}, doc.Service[1].RoutingKeys)
	require.Equal(t, "wss", doc.Service[1].ProtocolScheme())

	t.Run("round trip", func(t *testing.T) {
		b, err := doc.JSONBytes()
		require.NoError(t, err)

		doc2, err := ParseDocument(b)
		require.NoError(t, err)
		require.Equal(t, doc, doc2)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := ParseDocument([]byte("{"))
		require.Error(t, err)
	})

	t.Run("missing key value", func(t *testing.T) {
		_, err := ParseDocument([]byte(`{"id":"did:example:a","verificationMethod":[{"id":"#k","type":"Ed25519VerificationKey2018"}]}`))
		require.ErrorContains(t, err, "public key value is missing")
	})

	t.Run("unsupported endpoint", func(t *testing.T) {
		_, err := ParseDocument([]byte(`{"id":"did:example:a","service":[{"id":"#s","type":"x","serviceEndpoint":1}]}`))
		require.ErrorContains(t, err, "unsupported serviceEndpoint type")
	})

	t.Run("legacy publicKey member", func(t *testing.T) {
		legacy := `{"@context":"https://w3id.org/did/v1","id":"did:example:a","publicKey":[{"id":"did:example:a#k",
"type":"Ed25519VerificationKey2018","publicKeyBase58":"B12NYF8RrR3h41TDCTJojY59usg3mbtbjnFs7Eud1Y6u"}]}`
		d, err := ParseDocument([]byte(legacy))
		require.NoError(t, err)
		require.Equal(t, []string{"https://w3id.org/did/v1"}, d.Context)
		require.Len(t, d.VerificationMethod, 1)
	})
}

func TestVerificationMethod_JWK(t *testing.T) {
	t.Run("P-256", func(t *testing.T) {
		priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)

		compressed := elliptic.MarshalCompressed(elliptic.P256(), priv.X, priv.Y)
		vm := NewVerificationMethod("did:example:a#p256", "did:example:a", kms.NISTP256ECDHKWType, compressed)
		require.Equal(t, JSONWebKey2020, vm.Type)

		b, err := json.Marshal(vm)
		require.NoError(t, err)
		require.Contains(t, string(b), `"publicKeyJwk"`)
		require.Contains(t, string(b), `"crv":"P-256"`)

		parsed := &VerificationMethod{}
		require.NoError(t, json.Unmarshal(b, parsed))
		require.Equal(t, compressed, parsed.Value)
		require.Equal(t, kms.NISTP256ECDHKWType, parsed.KeyType())

		pub, err := parsed.PublicKey()
		require.NoError(t, err)
		require.True(t, priv.PublicKey.Equal(pub))
	})

	t.Run("Ed25519", func(t *testing.T) {
		pub, _, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)

		vm := &VerificationMethod{ID: "#k", Type: JSONWebKey2020, Value: pub}

		b, err := json.Marshal(vm)
		require.NoError(t, err)
		require.Contains(t, string(b), `"crv":"Ed25519"`)

		parsed := &VerificationMethod{}
		require.NoError(t, json.Unmarshal(b, parsed))
		require.Equal(t, []byte(pub), parsed.Value)
		require.Equal(t, kms.ED25519Type, parsed.KeyType())
	})

	t.Run("unsupported type", func(t *testing.T) {
		vm := &VerificationMethod{ID: "#k", Type: "RsaVerificationKey2018", Value: []byte{1}}

		_, err := vm.PublicKey()
		require.ErrorContains(t, err, "unsupported type")
	})
}

func TestBuildDoc(t *testing.T) {
	vm := NewVerificationMethod("did:example:a#k", "did:example:a", kms.ED25519Type, make([]byte, 32))

	doc := BuildDoc(
		WithVerificationMethod(*vm),
		WithAuthentication(*NewReferencedVerification(vm)),
		WithKeyAgreement(*NewEmbeddedVerification(
			NewVerificationMethod("did:example:a#x", "did:example:a", kms.X25519ECDHKWType, make([]byte, 32)))),
		WithService(Service{ID: "did:example:a#s", Type: DIDCommServiceType, ServiceEndpoint: "http://a"}),
	)

	b, err := doc.JSONBytes()
	require.NoError(t, err)

	raw := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(b, &raw))
	require.Equal(t, []interface{}{"did:example:a#k"}, raw["authentication"])
	require.Len(t, raw["keyAgreement"], 1)
	require.IsType(t, map[string]interface{}{}, raw["keyAgreement"].([]interface{})[0])
}
