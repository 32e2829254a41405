/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package envelope packs DIDComm messages into encrypted, signed or plaintext envelopes and
// unpacks them again, choosing the DIDComm generation from the message or the envelope header.
package envelope

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/message"
)

var (
	// ErrUnsupportedVersion is returned for a message or envelope of an unknown DIDComm generation.
	ErrUnsupportedVersion = errors.New("unsupported DIDComm version")
	// ErrUnsupportedOperation is returned when a generation does not support the requested packing.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrNoConnection is returned when a V2 message is encrypted without a recipient DID.
	ErrNoConnection = errors.New("no connection")
)

// PackedType tells how a packed message is protected.
type PackedType string

const (
	// Plain is an unprotected JSON message.
	Plain PackedType = "plain"
	// Signed is a JWS.
	Signed PackedType = "signed"
	// Encrypted is a legacy envelope or a JWE.
	Encrypted PackedType = "encrypted"
)

// PackedMessage is a message as received from a transport.
type PackedMessage struct {
	Type    PackedType
	Message []byte
}

// EncryptParams are the key parameters of PackEncrypted, either *V1Params or *V2Params.
type EncryptParams interface {
	encryptParams()
}

// V1Params are the keys of a DIDComm V1 envelope. Keys are base58 verkeys or did:key DIDs.
type V1Params struct {
	RecipientKeys []string
	RoutingKeys   []string
	// SenderKey authcrypts the envelope. Without it the envelope is anoncrypted.
	SenderKey string
}

func (*V1Params) encryptParams() {}

// V2Params address a DIDComm V2 envelope.
type V2Params struct {
	ToDID string
	// FromDID signs the message before encryption when set.
	FromDID string
}

func (*V2Params) encryptParams() {}

// SignedParams are the parameters of PackSigned.
type SignedParams struct {
	SignByDID string
	ServiceID string
}

// DecryptedMessage is the result of Unpack. Sender and Recipient are base58 verkeys for V1 and
// DID URL key IDs for V2.
type DecryptedMessage struct {
	Plaintext []byte
	Sender    string
	Recipient string
	Version   message.Version
}

// Packager packs and unpacks envelopes, implemented by *Service.
type Packager interface {
	PackEncrypted(ctx context.Context, msg message.Message, params EncryptParams) ([]byte, error)
	PackSigned(ctx context.Context, msg message.Message, params *SignedParams) ([]byte, error)
	Unpack(ctx context.Context, packed PackedMessage) (*DecryptedMessage, error)
}

// ParsePackedMessage classifies raw transport bytes by their JSON shape.
func ParsePackedMessage(data []byte) PackedMessage {
	shape := map[string]json.RawMessage{}

	if err := json.Unmarshal(data, &shape); err != nil {
		return PackedMessage{Type: Plain, Message: data}
	}

	_, protected := shape["protected"]
	_, ciphertext := shape["ciphertext"]
	_, payload := shape["payload"]
	_, signatures := shape["signatures"]
	_, signature := shape["signature"]

	switch {
	case protected && ciphertext:
		return PackedMessage{Type: Encrypted, Message: data}
	case payload && (signatures || signature):
		return PackedMessage{Type: Signed, Message: data}
	default:
		return PackedMessage{Type: Plain, Message: data}
	}
}

// plaintextVersion tells the generation of a plaintext message: V1 messages carry "@type".
func plaintextVersion(data []byte) message.Version {
	shape := map[string]json.RawMessage{}

	if err := json.Unmarshal(data, &shape); err == nil {
		if _, ok := shape["@type"]; ok {
			return message.DIDCommV1
		}
	}

	return message.DIDCommV2
}
