/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package legacy

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/packer"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/kms"
)

// EncodingType is the `typ` string identifier in a message that identifies the format as being legacy.
const EncodingType = "JWM/1.0"

const (
	// AuthcryptAlg is the protected header `alg` of envelopes that disclose their sender.
	AuthcryptAlg = "Authcrypt"
	// AnoncryptAlg is the protected header `alg` of anonymous envelopes.
	AnoncryptAlg = "Anoncrypt"

	encAlg = "chacha20poly1305_ietf"
)

var logger = log.New("aries-framework/packer/legacy")

// ErrNoRecipientKey is returned by Unpack when none of the envelope recipients is held by the KMS.
var ErrNoRecipientKey = errors.New("no recipient key found in kms")

// Packer packs and unpacks legacy (DIDComm V1) Aries envelopes.
// Note: only Chacha20Poly1305 (C20P) is supported for the content encryption.
type Packer struct {
	randSource io.Reader
	kms        kms.KeyManager
}

// New will create a Packer that encrypts messages using the legacy Aries format.
func New(ctx packer.Provider) *Packer {
	return &Packer{
		randSource: rand.Reader,
		kms:        ctx.KMS(),
	}
}

// legacyEnvelope is the full payload envelope for the JSON message.
type legacyEnvelope struct {
	Protected  string `json:"protected,omitempty"`
	IV         string `json:"iv,omitempty"`
	CipherText string `json:"ciphertext,omitempty"`
	Tag        string `json:"tag,omitempty"`
}

// protected is the protected header of the JSON envelope.
type protected struct {
	Enc        string      `json:"enc,omitempty"`
	Typ        string      `json:"typ,omitempty"`
	Alg        string      `json:"alg,omitempty"`
	Recipients []recipient `json:"recipients,omitempty"`
}

// recipient holds the data for a recipient in the envelope header.
type recipient struct {
	EncryptedKey string          `json:"encrypted_key,omitempty"`
	Header       recipientHeader `json:"header,omitempty"`
}

// recipientHeader holds the header data for a recipient.
type recipientHeader struct {
	KID    string `json:"kid,omitempty"`
	Sender string `json:"sender,omitempty"`
	IV     string `json:"iv,omitempty"`
}

// EncodingType returns the type of the encoding, as in the `Typ` field of the envelope header.
func (p *Packer) EncodingType() string {
	return EncodingType
}

// IsLegacyHeader reports whether a decoded protected header belongs to a legacy envelope.
func IsLegacyHeader(typ, alg string) bool {
	return typ == EncodingType && (alg == AuthcryptAlg || alg == AnoncryptAlg)
}

func encode(b []byte) string {
	return base64.URLEncoding.EncodeToString(b)
}

// decode accepts both padded and unpadded base64url, other agents emit either.
func decode(s string) ([]byte, error) {
	b, err := base64.URLEncoding.DecodeString(s)
	if err == nil {
		return b, nil
	}

	return base64.RawURLEncoding.DecodeString(s)
}
