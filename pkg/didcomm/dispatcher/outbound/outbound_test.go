/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package outbound

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/btcsuite/btcutil/base58"
	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/stretchr/testify/require"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/envelope"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/message"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/transport"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/doc/did"
	vdrapi "github.com/ArtemPivovarov/aries-framework-javascript/pkg/framework/aries/api/vdr"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/internal/cryptoutil"
	mockenvelope "github.com/ArtemPivovarov/aries-framework-javascript/pkg/mock/didcomm/envelope"
	mocktransport "github.com/ArtemPivovarov/aries-framework-javascript/pkg/mock/didcomm/transport"
	mockvdr "github.com/ArtemPivovarov/aries-framework-javascript/pkg/mock/vdr"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/store/connection"
	msgstore "github.com/ArtemPivovarov/aries-framework-javascript/pkg/store/message"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/vdr"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/vdr/fingerprint"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/vdr/key"
)

const basicMessageV1 = "https://didcomm.org/basicmessage/1.0/message"

type mockProvider struct {
	packer     *mockenvelope.MockPacker
	registry   vdrapi.Registry
	sessions   *transport.SessionRegistry
	queue      msgstore.Repository
	transports []transport.OutboundTransport
	priority   []string
	validators *message.Validators
}

func (p *mockProvider) EnvelopeService() envelope.Packager { return p.packer }
func (p *mockProvider) VDRegistry() vdrapi.Registry { return p.registry }
func (p *mockProvider) Sessions() *transport.SessionRegistry { return p.sessions }
func (p *mockProvider) MessageRepository() msgstore.Repository { return p.queue }
func (p *mockProvider) OutboundTransports() []transport.OutboundTransport { return p.transports }
func (p *mockProvider) TransportPriority() []string { return p.priority }
func (p *mockProvider) MessageValidators() *message.Validators { return p.validators }

type storageProvider struct {
	storage.Provider
}

func (s storageProvider) StorageProvider() storage.Provider { return s.Provider }

func newProvider(t *testing.T, registry vdrapi.Registry, transports ...transport.OutboundTransport) *mockProvider {
	t.Helper()

	queue, err := msgstore.New(storageProvider{mem.NewProvider()})
	require.NoError(t, err)

	return &mockProvider{
		packer:     &mockenvelope.MockPacker{},
		registry:   registry,
		sessions:   transport.NewSessionRegistry(),
		queue:      queue,
		transports: transports,
		priority:   []string{"https", "http", "wss", "ws"},
	}
}

type peer struct {
	pub ed25519.PublicKey
	doc *did.Doc
}

// newPeer builds a document whose did-communication services reference its X25519 key.
func newPeer(t *testing.T, id string, endpoints ...string) *peer {
	t.Helper()

	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	curve, err := cryptoutil.PublicEd25519toCurve25519(pub)
	require.NoError(t, err)

	doc := &did.Doc{
		Context: []string{did.ContextV1},
		ID:      id,
		VerificationMethod: []did.VerificationMethod{
			{ID: id + "#key-1", Type: did.Ed25519VerificationKey2018, Controller: id, Value: pub},
			{ID: id + "#key-x", Type: did.X25519KeyAgreementKey2019, Controller: id, Value: curve},
		},
	}

	for _, ep := range endpoints {
		doc.Service = append(doc.Service, did.Service{
			ID:              id + "#svc-" + ep,
			Type:            did.DIDCommServiceType,
			RecipientKeys:   []string{"#key-x"},
			ServiceEndpoint: ep,
		})
	}

	return &peer{pub: pub, doc: doc}
}

func newV1(t *testing.T) *message.V1 {
	t.Helper()

	msg, err := message.NewV1(basicMessageV1, map[string]interface{}{"content": "hello"})
	require.NoError(t, err)

	return msg
}

func TestServiceResolver(t *testing.T) {
	bob := newPeer(t, "did:example:bob", "https://bob.example")

	mediatorPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	_, mediatorKeyID := fingerprint.CreateDIDKey(mediatorPub)

	bob.doc.Service[0].RoutingKeys = []string{mediatorKeyID}
	bob.doc.Service = append(bob.doc.Service, did.Service{
		ID:              "#indy",
		Type:            did.IndyAgentServiceType,
		Priority:        1,
		RecipientKeys:   []string{"rawBase58Key"},
		ServiceEndpoint: "ws://bob.example",
	})

	registry := vdr.New(
		vdr.WithVDR(key.New()),
		vdr.WithVDR(&mockvdr.MockVDR{
			AcceptFunc: func(method string) bool { return method == "example" },
			ReadFunc: func(_ context.Context, didID string) (*did.DocResolution, error) {
				if didID == bob.doc.ID {
					return &did.DocResolution{DIDDocument: bob.doc}, nil
				}

				return nil, vdrapi.ErrNotFound
			},
		}),
	)

	r := NewServiceResolver(registry)

	t.Run("keys become base58 verkeys", func(t *testing.T) {
		services, err := r.ResolveServicesFromDID(context.Background(), bob.doc.ID)
		require.NoError(t, err)
		require.Len(t, services, 2)

		require.Equal(t, "#indy", services[0].ID)
		require.Equal(t, []string{"rawBase58Key"}, services[0].RecipientKeys)
		require.Equal(t, "ws", services[0].ProtocolScheme())

		require.Equal(t, []string{base58.Encode(bob.pub)}, services[1].RecipientKeys)
		require.Equal(t, []string{base58.Encode(mediatorPub)}, services[1].RoutingKeys)
	})

	t.Run("unresolvable DID", func(t *testing.T) {
		_, err := r.ResolveServicesFromDID(context.Background(), "did:example:nobody")
		require.ErrorIs(t, err, ErrDIDResolutionFailed)
		require.ErrorIs(t, err, vdrapi.ErrNotFound)
	})

	t.Run("unknown key reference", func(t *testing.T) {
		doc := &did.Doc{ID: "did:example:broken", Service: []did.Service{{
			ID: "#svc", Type: did.DIDCommServiceType, RecipientKeys: []string{"#missing"}, ServiceEndpoint: "https://x",
		}}}

		_, err := r.ResolveDocServices(context.Background(), doc)
		require.ErrorIs(t, err, did.ErrKeyNotFound)
	})
}

func TestMessageSender_SendV1(t *testing.T) {
	bob := newPeer(t, "did:example:bob", "https://bob.example", "ws://bob.example")

	newConnection := func() *connection.Record {
		return &connection.Record{
			ConnectionID: "conn-1",
			State:        connection.StateCompleted,
			TheirLabel:   "bob",
			MyDID:        "did:example:alice",
			TheirDID:     bob.doc.ID,
			MyVerKey:     "aliceVerKey",
			MyDIDDoc: &did.Doc{ID: "did:example:alice", Service: []did.Service{{
				ID: "#svc", Type: did.DIDCommServiceType, ServiceEndpoint: "https://alice.example",
			}}},
		}
	}

	t.Run("return routed session is used first", func(t *testing.T) {
		httpTransport := mocktransport.NewMockOutboundTransport("http", "https")
		p := newProvider(t, &mockvdr.MockVDRegistry{}, httpTransport)

		inbound := newV1(t)
		inbound.SetReturnRouting(message.ReturnRouteAll)

		session := mocktransport.NewMockSession("http")
		session.Bind("conn-1", &envelope.V1Params{RecipientKeys: []string{"bobVerKey"}, SenderKey: "aliceVerKey"}, inbound)
		p.sessions.Save(session)

		err := New(p).SendV1(context.Background(), &OutboundMessage{Payload: newV1(t), Connection: newConnection()})
		require.NoError(t, err)

		require.Len(t, session.SentMessages(), 1)
		require.Empty(t, httpTransport.SentPackages())

		calls := p.packer.PackCalls()
		require.Len(t, calls, 1)
		require.Equal(t, []string{"bobVerKey"}, calls[0].EncryptParams.(*envelope.V1Params).RecipientKeys)
	})

	t.Run("failed session falls back to services", func(t *testing.T) {
		httpTransport := mocktransport.NewMockOutboundTransport("http", "https")
		p := newProvider(t, &mockvdr.MockVDRegistry{MemStore: map[string]*did.Doc{bob.doc.ID: bob.doc}}, httpTransport)

		inbound := newV1(t)
		inbound.SetReturnRouting(message.ReturnRouteAll)

		session := mocktransport.NewMockSession("ws")
		session.SendErr = transport.ErrSessionClosed
		session.Bind("conn-1", &envelope.V1Params{RecipientKeys: []string{"bobVerKey"}}, inbound)
		p.sessions.Save(session)

		err := New(p).SendV1(context.Background(), &OutboundMessage{Payload: newV1(t), Connection: newConnection()})
		require.NoError(t, err)
		require.Len(t, httpTransport.SentPackages(), 1)
	})

	t.Run("first succeeding service wins", func(t *testing.T) {
		var httpAttempts int

		httpTransport := mocktransport.NewMockOutboundTransport("http", "https")
		httpTransport.SendFunc = func(context.Context, *transport.OutboundPackage) error {
			httpAttempts++

			return errors.New("connection refused")
		}

		wsTransport := mocktransport.NewMockOutboundTransport("ws", "wss")

		p := newProvider(t, &mockvdr.MockVDRegistry{MemStore: map[string]*did.Doc{bob.doc.ID: bob.doc}},
			httpTransport, wsTransport)

		err := New(p).SendV1(context.Background(), &OutboundMessage{Payload: newV1(t), Connection: newConnection()})
		require.NoError(t, err)
		require.Equal(t, 1, httpAttempts)

		sent := wsTransport.SentPackages()
		require.Len(t, sent, 1)
		require.Equal(t, "ws://bob.example", sent[0].Endpoint)
		require.Equal(t, "conn-1", sent[0].ConnectionID)
		require.False(t, sent[0].ResponseRequested)

		v1 := p.packer.PackCalls()[0].EncryptParams.(*envelope.V1Params)
		require.Equal(t, []string{base58.Encode(bob.pub)}, v1.RecipientKeys)
		require.Equal(t, "aliceVerKey", v1.SenderKey)
	})

	t.Run("transport priority reorders services", func(t *testing.T) {
		httpTransport := mocktransport.NewMockOutboundTransport("http", "https")
		wsTransport := mocktransport.NewMockOutboundTransport("ws", "wss")

		p := newProvider(t, &mockvdr.MockVDRegistry{MemStore: map[string]*did.Doc{bob.doc.ID: bob.doc}},
			httpTransport, wsTransport)

		err := New(p).SendV1(context.Background(), &OutboundMessage{Payload: newV1(t), Connection: newConnection()},
			WithTransportPriority([]string{"ws"}, false))
		require.NoError(t, err)
		require.Empty(t, httpTransport.SentPackages())
		require.Len(t, wsTransport.SentPackages(), 1)
	})

	t.Run("restrictive priority drops unlisted schemes", func(t *testing.T) {
		httpTransport := mocktransport.NewMockOutboundTransport("http", "https")

		p := newProvider(t, &mockvdr.MockVDRegistry{MemStore: map[string]*did.Doc{bob.doc.ID: bob.doc}}, httpTransport)

		err := New(p).SendV1(context.Background(), &OutboundMessage{Payload: newV1(t), Connection: newConnection()},
			WithTransportPriority([]string{"ipc"}, true))
		require.ErrorIs(t, err, ErrUndeliverableMessage)
		require.Empty(t, httpTransport.SentPackages())
	})

	t.Run("restrictive priority without schemes drops every service", func(t *testing.T) {
		httpTransport := mocktransport.NewMockOutboundTransport("http", "https")

		p := newProvider(t, &mockvdr.MockVDRegistry{MemStore: map[string]*did.Doc{bob.doc.ID: bob.doc}}, httpTransport)

		err := New(p).SendV1(context.Background(), &OutboundMessage{Payload: newV1(t), Connection: newConnection()},
			WithTransportPriority(nil, true))
		require.ErrorIs(t, err, ErrUndeliverableMessage)
		require.Empty(t, httpTransport.SentPackages())
	})

	t.Run("no inbound endpoint requests return route", func(t *testing.T) {
		httpTransport := mocktransport.NewMockOutboundTransport("http", "https")
		p := newProvider(t, &mockvdr.MockVDRegistry{MemStore: map[string]*did.Doc{bob.doc.ID: bob.doc}}, httpTransport)

		conn := newConnection()
		conn.MyDIDDoc.Service[0].ServiceEndpoint = did.QueueServiceEndpoint

		payload := newV1(t)
		require.NoError(t, New(p).SendV1(context.Background(), &OutboundMessage{Payload: payload, Connection: conn}))

		require.Equal(t, message.ReturnRouteAll, payload.ReturnRoute())
		require.True(t, httpTransport.SentPackages()[0].ResponseRequested)
	})

	t.Run("queue fallback stores one message", func(t *testing.T) {
		queued := newPeer(t, "did:example:mobile", "https://mobile.example")
		queued.doc.Service = append(queued.doc.Service, did.Service{
			ID:              "#queue",
			Type:            did.IndyAgentServiceType,
			RecipientKeys:   []string{"mobileVerKey"},
			ServiceEndpoint: did.QueueServiceEndpoint,
		})

		httpTransport := mocktransport.NewMockOutboundTransport("http", "https")
		httpTransport.SendErr = errors.New("unreachable")

		p := newProvider(t, &mockvdr.MockVDRegistry{MemStore: map[string]*did.Doc{queued.doc.ID: queued.doc}},
			httpTransport)

		conn := newConnection()
		conn.TheirDID = queued.doc.ID

		require.NoError(t, New(p).SendV1(context.Background(), &OutboundMessage{Payload: newV1(t), Connection: conn}))

		count, err := p.queue.Count(context.Background(), "conn-1")
		require.NoError(t, err)
		require.Equal(t, 1, count)

		calls := p.packer.PackCalls()
		last := calls[len(calls)-1].EncryptParams.(*envelope.V1Params)
		require.Equal(t, []string{"mobileVerKey"}, last.RecipientKeys)
		require.Equal(t, "aliceVerKey", last.SenderKey)
	})

	t.Run("undeliverable joins attempt errors", func(t *testing.T) {
		httpTransport := mocktransport.NewMockOutboundTransport("http", "https")
		httpTransport.SendErr = errors.New("unreachable")

		p := newProvider(t, &mockvdr.MockVDRegistry{MemStore: map[string]*did.Doc{bob.doc.ID: bob.doc}}, httpTransport)

		err := New(p).SendV1(context.Background(), &OutboundMessage{Payload: newV1(t), Connection: newConnection()})
		require.ErrorIs(t, err, ErrUndeliverableMessage)
		require.ErrorIs(t, err, ErrNoOutboundTransport)
		require.ErrorContains(t, err, "unreachable")

		var undeliverable *UndeliverableError
		require.True(t, errors.As(err, &undeliverable))
		require.Equal(t, "conn-1", undeliverable.ConnectionID)
		require.Equal(t, "bob", undeliverable.TheirLabel)
	})

	t.Run("legacy document of the connection", func(t *testing.T) {
		httpTransport := mocktransport.NewMockOutboundTransport("http", "https")
		p := newProvider(t, &mockvdr.MockVDRegistry{}, httpTransport)

		conn := newConnection()
		conn.TheirDID = "legacy-did"
		conn.TheirDIDDoc = &did.Doc{ID: "legacy-did", Service: []did.Service{{
			ID: "#indy", Type: did.IndyAgentServiceType, RecipientKeys: []string{"bobVerKey"},
			ServiceEndpoint: "https://legacy.example",
		}}}

		require.NoError(t, New(p).SendV1(context.Background(), &OutboundMessage{Payload: newV1(t), Connection: conn}))
		require.Equal(t, "https://legacy.example", httpTransport.SentPackages()[0].Endpoint)
	})

	t.Run("resolution failure", func(t *testing.T) {
		p := newProvider(t, &mockvdr.MockVDRegistry{}, mocktransport.NewMockOutboundTransport("https"))

		err := New(p).SendV1(context.Background(), &OutboundMessage{Payload: newV1(t), Connection: newConnection()})
		require.ErrorIs(t, err, ErrDIDResolutionFailed)
	})

	t.Run("missing connection", func(t *testing.T) {
		p := newProvider(t, &mockvdr.MockVDRegistry{})

		require.ErrorIs(t, New(p).SendV1(context.Background(), &OutboundMessage{Payload: newV1(t)}), ErrNoConnection)
	})
}

func TestMessageSender_PackAndSendMessage(t *testing.T) {
	svc := &ResolvedService{ID: "#svc", RecipientKeys: []string{"bobVerKey"}, Endpoint: "https://bob.example"}

	t.Run("no transport", func(t *testing.T) {
		p := newProvider(t, &mockvdr.MockVDRegistry{})

		err := New(p).PackAndSendMessage(context.Background(), &PackAndSendParams{Message: newV1(t), Service: svc})
		require.ErrorIs(t, err, ErrNoOutboundTransport)
	})

	t.Run("no service or connection", func(t *testing.T) {
		p := newProvider(t, &mockvdr.MockVDRegistry{}, mocktransport.NewMockOutboundTransport("https"))

		err := New(p).PackAndSendMessage(context.Background(), &PackAndSendParams{Message: newV1(t)})
		require.ErrorIs(t, err, ErrNoService)
	})

	t.Run("endpoint without scheme", func(t *testing.T) {
		p := newProvider(t, &mockvdr.MockVDRegistry{}, mocktransport.NewMockOutboundTransport("https"))

		err := New(p).PackAndSendMessage(context.Background(), &PackAndSendParams{
			Message: newV1(t), Service: &ResolvedService{RecipientKeys: []string{"k"}},
		})
		require.ErrorIs(t, err, ErrNoTransportScheme)
	})

	t.Run("invalid message is not sent", func(t *testing.T) {
		httpTransport := mocktransport.NewMockOutboundTransport("https")
		p := newProvider(t, &mockvdr.MockVDRegistry{}, httpTransport)

		msg, err := message.NewV1("not-a-type", nil)
		require.NoError(t, err)

		err = New(p).PackAndSendMessage(context.Background(), &PackAndSendParams{Message: msg, Service: svc})
		require.ErrorIs(t, err, ErrMessageValidationFailed)
		require.Empty(t, p.packer.PackCalls())
		require.Empty(t, httpTransport.SentPackages())
	})

	t.Run("agent validators run before packing", func(t *testing.T) {
		httpTransport := mocktransport.NewMockOutboundTransport("https")
		p := newProvider(t, &mockvdr.MockVDRegistry{}, httpTransport)
		p.validators = message.NewValidators()
		p.validators.Register(basicMessageV1, func(msg message.Message) error {
			if msg.(*message.V1).Fields["content"] == nil {
				return errors.New("content is required")
			}

			return nil
		})

		msg, err := message.NewV1(basicMessageV1, nil)
		require.NoError(t, err)

		err = New(p).PackAndSendMessage(context.Background(), &PackAndSendParams{Message: msg, Service: svc})
		require.ErrorIs(t, err, ErrMessageValidationFailed)
		require.ErrorContains(t, err, "content is required")
		require.Empty(t, httpTransport.SentPackages())

		msg.Fields["content"] = "hi"
		require.NoError(t, New(p).PackAndSendMessage(context.Background(),
			&PackAndSendParams{Message: msg, Service: svc}))
		require.Len(t, httpTransport.SentPackages(), 1)
	})

	t.Run("V2 without connection fails before packing", func(t *testing.T) {
		p := newProvider(t, &mockvdr.MockVDRegistry{}, mocktransport.NewMockOutboundTransport("https"))

		msg, err := message.NewV2("https://didcomm.org/basicmessage/2.0/message", "", nil, map[string]interface{}{})
		require.NoError(t, err)

		err = New(p).PackAndSendMessage(context.Background(), &PackAndSendParams{Message: msg, Service: svc})
		require.ErrorIs(t, err, ErrNoConnection)
		require.Empty(t, p.packer.PackCalls())
	})

	t.Run("V2 is encrypted to the connection DID", func(t *testing.T) {
		httpTransport := mocktransport.NewMockOutboundTransport("https")
		p := newProvider(t, &mockvdr.MockVDRegistry{}, httpTransport)

		msg, err := message.NewV2("https://didcomm.org/basicmessage/2.0/message", "", nil, map[string]interface{}{})
		require.NoError(t, err)

		err = New(p).PackAndSendMessage(context.Background(), &PackAndSendParams{
			Message:    msg,
			Service:    svc,
			Connection: &connection.Record{ConnectionID: "c", MyDID: "did:example:alice", TheirDID: "did:example:bob"},
		})
		require.NoError(t, err)

		v2 := p.packer.PackCalls()[0].EncryptParams.(*envelope.V2Params)
		require.Equal(t, "did:example:bob", v2.ToDID)
		require.Equal(t, "did:example:alice", v2.FromDID)
		require.Equal(t, "c", httpTransport.SentPackages()[0].ConnectionID)
	})

	t.Run("V1 service without keys", func(t *testing.T) {
		p := newProvider(t, &mockvdr.MockVDRegistry{}, mocktransport.NewMockOutboundTransport("https"))

		err := New(p).PackAndSendMessage(context.Background(), &PackAndSendParams{
			Message: newV1(t), Service: &ResolvedService{Endpoint: "https://bob.example"},
		})
		require.ErrorIs(t, err, ErrNoRecipientKeys)
	})
}

func TestMessageSender_SendOutboundPackage(t *testing.T) {
	first := mocktransport.NewMockOutboundTransport("ws")
	second := mocktransport.NewMockOutboundTransport("https")

	s := New(newProvider(t, &mockvdr.MockVDRegistry{}, first))
	s.RegisterOutboundTransport(second)

	require.NoError(t, s.SendOutboundPackage(context.Background(), &transport.OutboundPackage{}, "https"))
	require.Len(t, second.SentPackages(), 1)

	require.NoError(t, s.SendOutboundPackage(context.Background(), &transport.OutboundPackage{}, ""))
	require.Len(t, first.SentPackages(), 1)

	err := s.SendOutboundPackage(context.Background(), &transport.OutboundPackage{}, "ipc")
	require.ErrorIs(t, err, ErrNoOutboundTransport)
}

func TestMessageSender_SendV2(t *testing.T) {
	const typeURI = "https://didcomm.org/basicmessage/2.0/message"

	carol := &did.Doc{ID: "did:example:carol", Service: []did.Service{
		{ID: "did:example:carol#ws", Type: did.DIDCommV2ServiceType, ServiceEndpoint: "ws://carol.example"},
		{ID: "did:example:carol#https", Type: did.DIDCommV2ServiceType, ServiceEndpoint: "https://carol.example"},
	}}
	proxy := &did.Doc{ID: "did:example:proxy", Service: []did.Service{
		{ID: "did:example:proxy#https", Type: did.DIDCommV2ServiceType, ServiceEndpoint: "https://proxy.example"},
	}}

	setup := func(t *testing.T) (*mockProvider, *mocktransport.MockOutboundTransport,
		*mocktransport.MockOutboundTransport) {
		t.Helper()

		httpTransport := mocktransport.NewMockOutboundTransport("http", "https")
		wsTransport := mocktransport.NewMockOutboundTransport("ws", "wss")

		registry := &mockvdr.MockVDRegistry{}
		registry.Store(carol)
		registry.Store(proxy)

		return newProvider(t, registry, httpTransport, wsTransport), httpTransport, wsTransport
	}

	newV2 := func(t *testing.T, from string, to ...string) *message.V2 {
		t.Helper()

		msg, err := message.NewV2(typeURI, from, to, map[string]interface{}{"content": "hi"})
		require.NoError(t, err)

		return msg
	}

	t.Run("plain follows configured priority", func(t *testing.T) {
		p, httpTransport, _ := setup(t)

		require.NoError(t, New(p).SendV2(context.Background(), newV2(t, "", carol.ID), Plain, nil, ""))

		sent := httpTransport.SentPackages()
		require.Len(t, sent, 1)
		require.Equal(t, "https://carol.example", sent[0].Endpoint)
		require.Equal(t, carol.ID, sent[0].RecipientDID)
		require.Contains(t, string(sent[0].Payload), `"content":"hi"`)
		require.Empty(t, p.packer.PackCalls())
	})

	t.Run("requested transports come first", func(t *testing.T) {
		p, _, wsTransport := setup(t)

		require.NoError(t, New(p).SendV2(context.Background(), newV2(t, "", carol.ID), Plain, []string{"ws"}, ""))
		require.Len(t, wsTransport.SentPackages(), 1)
	})

	t.Run("signed", func(t *testing.T) {
		p, _, _ := setup(t)

		err := New(p).SendV2(context.Background(), newV2(t, "", carol.ID), Signed, nil, "")
		require.ErrorIs(t, err, ErrNoSender)

		require.NoError(t, New(p).SendV2(context.Background(), newV2(t, "did:example:alice", carol.ID), Signed, nil, ""))

		calls := p.packer.PackCalls()
		require.Len(t, calls, 1)
		require.Equal(t, "did:example:alice", calls[0].SignedParams.SignByDID)
		require.Equal(t, "did:example:carol#https", calls[0].SignedParams.ServiceID)
	})

	t.Run("encrypted", func(t *testing.T) {
		p, _, _ := setup(t)

		require.NoError(t, New(p).SendV2(context.Background(), newV2(t, "did:example:alice", carol.ID), Encrypted,
			nil, ""))

		v2 := p.packer.PackCalls()[0].EncryptParams.(*envelope.V2Params)
		require.Equal(t, carol.ID, v2.ToDID)
		require.Equal(t, "did:example:alice", v2.FromDID)
	})

	t.Run("no recipient", func(t *testing.T) {
		p, httpTransport, _ := setup(t)
		s := New(p)

		require.NoError(t, s.SendV2(context.Background(), newV2(t, ""), Plain, nil, ""))
		require.Empty(t, httpTransport.SentPackages())

		require.NoError(t, s.SendV2(context.Background(), newV2(t, ""), Plain, []string{"https://mediator.example"}, ""))
		require.Equal(t, "https://mediator.example", httpTransport.SentPackages()[0].Endpoint)

		err := s.SendV2(context.Background(), newV2(t, ""), Encrypted, []string{"https://mediator.example"}, "")
		require.ErrorIs(t, err, ErrNoRecipient)
	})

	t.Run("no compatible service", func(t *testing.T) {
		p, _, _ := setup(t)
		p.priority = []string{"ipc"}

		err := New(p).SendV2(context.Background(), newV2(t, "", carol.ID), Plain, nil, "")
		require.ErrorIs(t, err, ErrNoCompatibleService)
	})

	t.Run("unresolvable recipient", func(t *testing.T) {
		p, _, _ := setup(t)

		err := New(p).SendV2(context.Background(), newV2(t, "", "did:example:nobody"), Plain, nil, "")
		require.ErrorIs(t, err, ErrDIDResolutionFailed)
		require.ErrorContains(t, err, did.NotFound)
	})

	t.Run("proxy", func(t *testing.T) {
		p, httpTransport, _ := setup(t)

		require.NoError(t, New(p).SendV2(context.Background(), newV2(t, "", carol.ID), Plain, []string{"ws"}, proxy.ID))

		sent := httpTransport.SentPackages()
		require.Len(t, sent, 1)
		require.Equal(t, "https://proxy.example", sent[0].Endpoint)
		require.Equal(t, proxy.ID, sent[0].RecipientDID)
	})
}
