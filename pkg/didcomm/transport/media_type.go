/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transport

import (
	"mime"

	"golang.org/x/exp/slices"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/envelope"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/message"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/packer/jose"
)

const (
	// MediaTypeV1EncryptedEnvelope is the media type for DIDComm V1 encrypted envelopes as per Aries RFC 0044.
	MediaTypeV1EncryptedEnvelope = "application/didcomm-envelope-enc"
	// MediaTypeV1Legacy is the pre RFC 0044 media type still sent by older agents.
	MediaTypeV1Legacy = "application/ssi-agent-wire"
	// MediaTypeV2EncryptedEnvelope is the media type for DIDComm V2 encrypted envelopes.
	MediaTypeV2EncryptedEnvelope = jose.EncryptedMediaType
	// MediaTypeV2Signed is the media type for DIDComm V2 signed envelopes.
	MediaTypeV2Signed = jose.SignedMediaType
	// MediaTypeV2Plaintext is the media type for DIDComm V2 plaintext messages.
	MediaTypeV2Plaintext = message.PlaintextMediaType
	// MediaTypeJSON is accepted for plaintext messages.
	MediaTypeJSON = "application/json"
)

var acceptedMediaTypes = []string{ //nolint:gochecknoglobals
	MediaTypeV1EncryptedEnvelope, MediaTypeV1Legacy, MediaTypeV2EncryptedEnvelope,
	MediaTypeV2Signed, MediaTypeV2Plaintext, MediaTypeJSON,
}

// MediaTypeFor returns the content type to send packed bytes with.
func MediaTypeFor(packed []byte) string {
	switch envelope.ParsePackedMessage(packed).Type {
	case envelope.Encrypted:
		if envelope.IsV1Envelope(packed) {
			return MediaTypeV1EncryptedEnvelope
		}

		return MediaTypeV2EncryptedEnvelope
	case envelope.Signed:
		return MediaTypeV2Signed
	default:
		return MediaTypeV2Plaintext
	}
}

// IsAcceptedMediaType reports whether an inbound content type carries a DIDComm message.
// Parameters such as charset are ignored.
func IsAcceptedMediaType(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return slices.Contains(acceptedMediaTypes, mt)
}
