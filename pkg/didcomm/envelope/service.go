/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package envelope

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/common/model"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/message"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/packer/jose"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/packer/legacy"
	vdrapi "github.com/ArtemPivovarov/aries-framework-javascript/pkg/framework/aries/api/vdr"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/kms"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/vdr/fingerprint"
)

var logger = log.New("aries-framework/didcomm/envelope")

// Provider contains dependencies for the envelope service.
type Provider interface {
	KMS() kms.KeyManager
	VDRegistry() vdrapi.Registry
}

// Service packs and unpacks DIDComm envelopes of both generations.
type Service struct {
	legacy *legacy.Packer
	jose   *jose.Packer
}

// New returns a new envelope service.
func New(p Provider) *Service {
	return &Service{
		legacy: legacy.New(p),
		jose:   jose.New(p),
	}
}

// PackEncrypted packs msg into an encrypted envelope. V1 messages take *V1Params, V2 messages *V2Params.
func (s *Service) PackEncrypted(ctx context.Context, msg message.Message, params EncryptParams) ([]byte, error) {
	switch m := msg.(type) {
	case *message.V1:
		p, ok := params.(*V1Params)
		if !ok {
			return nil, fmt.Errorf("envelope.PackEncrypted: V1 message needs V1 parameters, got %T", params)
		}

		return s.packV1(m, p)
	case *message.V2:
		p, ok := params.(*V2Params)
		if !ok {
			return nil, fmt.Errorf("envelope.PackEncrypted: V2 message needs V2 parameters, got %T", params)
		}

		return s.packV2(ctx, m, p)
	default:
		return nil, fmt.Errorf("envelope.PackEncrypted: %T: %w", msg, ErrUnsupportedVersion)
	}
}

func (s *Service) packV1(msg *message.V1, params *V1Params) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("envelope.PackEncrypted: marshal: %w", err)
	}

	recipients, err := decodeKeys(params.RecipientKeys)
	if err != nil {
		return nil, fmt.Errorf("envelope.PackEncrypted: recipient keys: %w", err)
	}

	var sender []byte

	if params.SenderKey != "" {
		sender, err = decodeKey(params.SenderKey)
		if err != nil {
			return nil, fmt.Errorf("envelope.PackEncrypted: sender key: %w", err)
		}
	}

	packed, err := s.legacy.Pack(payload, sender, recipients)
	if err != nil {
		return nil, fmt.Errorf("envelope.PackEncrypted: %w", err)
	}

	if len(params.RoutingKeys) == 0 {
		return packed, nil
	}

	return s.wrapForward(packed, params.RecipientKeys, params.RoutingKeys)
}

// wrapForward wraps a packed message in a forward message for each routing key, the outermost
// envelope being for the last routing key.
func (s *Service) wrapForward(packed []byte, recipientKeys, routingKeys []string) ([]byte, error) {
	to := ""
	if len(recipientKeys) > 0 {
		to = recipientKeys[0]
	}

	for _, routingKey := range routingKeys {
		forward, err := json.Marshal(&model.Forward{
			Type: model.ForwardType,
			ID:   uuid.New().String(),
			To:   to,
			Msg:  packed,
		})
		if err != nil {
			return nil, fmt.Errorf("envelope.PackEncrypted: marshal forward: %w", err)
		}

		key, err := decodeKey(routingKey)
		if err != nil {
			return nil, fmt.Errorf("envelope.PackEncrypted: routing key: %w", err)
		}

		packed, err = s.legacy.Pack(forward, nil, [][]byte{key})
		if err != nil {
			return nil, fmt.Errorf("envelope.PackEncrypted: forward: %w", err)
		}

		logger.Debugf("wrapped message for %s in a forward to %s", to, routingKey)

		to = routingKey
	}

	return packed, nil
}

func (s *Service) packV2(ctx context.Context, msg *message.V2, params *V2Params) ([]byte, error) {
	if params.ToDID == "" {
		return nil, fmt.Errorf("envelope.PackEncrypted: %w", ErrNoConnection)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("envelope.PackEncrypted: marshal: %w", err)
	}

	var packed []byte

	if params.FromDID != "" {
		packed, err = s.jose.PackAuth(ctx, payload, params.FromDID, params.ToDID)
	} else {
		packed, err = s.jose.PackAnon(ctx, payload, params.ToDID)
	}

	if err != nil {
		return nil, fmt.Errorf("envelope.PackEncrypted: %w", err)
	}

	return packed, nil
}

// PackSigned signs a V2 message with the authentication key of params.SignByDID.
func (s *Service) PackSigned(ctx context.Context, msg message.Message, params *SignedParams) ([]byte, error) {
	switch m := msg.(type) {
	case *message.V1:
		return nil, fmt.Errorf("envelope.PackSigned: V1 messages cannot be signed: %w", ErrUnsupportedOperation)
	case *message.V2:
		payload, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("envelope.PackSigned: marshal: %w", err)
		}

		signed, err := s.jose.Sign(ctx, payload, params.SignByDID)
		if err != nil {
			return nil, fmt.Errorf("envelope.PackSigned: %w", err)
		}

		logger.Debugf("signed message %s for service %s", m.ID(), params.ServiceID)

		return signed, nil
	default:
		return nil, fmt.Errorf("envelope.PackSigned: %T: %w", msg, ErrUnsupportedVersion)
	}
}

// Unpack opens a packed message. Encrypted envelopes are routed to the legacy packer when their
// protected header is a JWM/1.0 Anoncrypt or Authcrypt header, to the JOSE packer otherwise.
func (s *Service) Unpack(ctx context.Context, packed PackedMessage) (*DecryptedMessage, error) {
	switch packed.Type {
	case Plain:
		return &DecryptedMessage{Plaintext: packed.Message, Version: plaintextVersion(packed.Message)}, nil
	case Signed:
		payload, kid, err := s.jose.Verify(ctx, packed.Message)
		if err != nil {
			return nil, fmt.Errorf("envelope.Unpack: %w", err)
		}

		return &DecryptedMessage{Plaintext: payload, Sender: kid, Version: message.DIDCommV2}, nil
	case Encrypted:
		return s.unpackEncrypted(ctx, packed.Message)
	default:
		return nil, fmt.Errorf("envelope.Unpack: packed type %q: %w", packed.Type, ErrUnsupportedVersion)
	}
}

func (s *Service) unpackEncrypted(ctx context.Context, data []byte) (*DecryptedMessage, error) {
	header, err := protectedHeader(data)
	if err != nil {
		return nil, fmt.Errorf("envelope.Unpack: %w", err)
	}

	if legacy.IsLegacyHeader(header.Typ, header.Alg) {
		env, e := s.legacy.Unpack(data)
		if e != nil {
			return nil, fmt.Errorf("envelope.Unpack: %w", e)
		}

		return &DecryptedMessage{
			Plaintext: env.Message,
			Sender:    env.FromKey,
			Recipient: env.ToKey,
			Version:   message.DIDCommV1,
		}, nil
	}

	env, err := s.jose.Unpack(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("envelope.Unpack: %w", err)
	}

	return &DecryptedMessage{
		Plaintext: env.Message,
		Sender:    env.FromKey,
		Recipient: env.ToKey,
		Version:   message.DIDCommV2,
	}, nil
}

type header struct {
	Typ string `json:"typ"`
	Alg string `json:"alg"`
}

func protectedHeader(data []byte) (*header, error) {
	env := struct {
		Protected string `json:"protected"`
	}{}

	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(env.Protected, "="))
	if err != nil {
		return nil, fmt.Errorf("decode protected header: %w", err)
	}

	h := &header{}

	if err = json.Unmarshal(b, h); err != nil {
		return nil, fmt.Errorf("protected header: %w", err)
	}

	return h, nil
}

func decodeKeys(keys []string) ([][]byte, error) {
	out := make([][]byte, 0, len(keys))

	for _, k := range keys {
		b, err := decodeKey(k)
		if err != nil {
			return nil, err
		}

		out = append(out, b)
	}

	return out, nil
}

// decodeKey returns the raw Ed25519 key of a base58 verkey or a did:key DID (URL).
func decodeKey(key string) ([]byte, error) {
	if strings.HasPrefix(key, "did:key:") {
		fp := strings.TrimPrefix(key, "did:key:")
		if i := strings.Index(fp, "#"); i >= 0 {
			fp = fp[:i]
		}

		pub, kt, err := fingerprint.PubKeyFromFingerprint(fp)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", key, err)
		}

		if kt != kms.ED25519Type {
			return nil, fmt.Errorf("key %s: %s keys cannot be used in V1 envelopes", key, kt)
		}

		return pub, nil
	}

	b := base58.Decode(key)
	if len(b) == 0 {
		return nil, fmt.Errorf("key %q is not base58", key)
	}

	return b, nil
}

// IsV1Envelope reports whether data is a DIDComm V1 (JWM/1.0) encrypted envelope.
func IsV1Envelope(data []byte) bool {
	h, err := protectedHeader(data)

	return err == nil && legacy.IsLegacyHeader(h.Typ, h.Alg)
}
