/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"context"
	"crypto"
	"encoding/base64"
	"encoding/json"
	"fmt"

	gojose "github.com/go-jose/go-jose/v3"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/packer"
)

type rawHeader struct {
	KID string `json:"kid,omitempty"`
}

type rawJWE struct {
	Protected  string    `json:"protected,omitempty"`
	Header     rawHeader `json:"header,omitempty"`
	Recipients []struct {
		Header rawHeader `json:"header,omitempty"`
	} `json:"recipients,omitempty"`
}

// RecipientKIDs lists the recipient key IDs of a JWE in its JSON serialization. A single recipient
// may be carried in the protected or the shared unprotected header.
func RecipientKIDs(envelope []byte) ([]string, error) {
	raw := rawJWE{}

	if err := json.Unmarshal(envelope, &raw); err != nil {
		return nil, err
	}

	var kids []string

	if raw.Protected != "" {
		b, err := base64.RawURLEncoding.DecodeString(raw.Protected)
		if err != nil {
			return nil, fmt.Errorf("decode protected header: %w", err)
		}

		h := rawHeader{}

		if err = json.Unmarshal(b, &h); err != nil {
			return nil, fmt.Errorf("protected header: %w", err)
		}

		if h.KID != "" {
			kids = append(kids, h.KID)
		}
	}

	if raw.Header.KID != "" {
		kids = append(kids, raw.Header.KID)
	}

	for _, r := range raw.Recipients {
		if r.Header.KID != "" {
			kids = append(kids, r.Header.KID)
		}
	}

	return kids, nil
}

// Unpack decrypts a JWE with the first recipient key held by the KMS. When the content is a signed
// message it is verified and the signing key ID is reported as the sender.
func (p *Packer) Unpack(ctx context.Context, envelope []byte) (*packer.Envelope, error) {
	kids, err := RecipientKIDs(envelope)
	if err != nil {
		return nil, fmt.Errorf("jose unpack: %w", err)
	}

	kid, priv, err := p.recipientKey(ctx, kids)
	if err != nil {
		return nil, fmt.Errorf("jose unpack: %w", err)
	}

	jwe, err := gojose.ParseEncrypted(string(envelope))
	if err != nil {
		return nil, fmt.Errorf("jose unpack: %w", err)
	}

	_, _, plaintext, err := jwe.DecryptMulti(priv)
	if err != nil {
		return nil, fmt.Errorf("jose unpack: decrypt: %w", err)
	}

	if cty, _ := jwe.Header.ExtraHeaders[gojose.HeaderContentType].(string); cty != SignedMediaType {
		return &packer.Envelope{Message: plaintext, ToKey: kid}, nil
	}

	payload, from, err := p.Verify(ctx, plaintext)
	if err != nil {
		return nil, fmt.Errorf("jose unpack: %w", err)
	}

	return &packer.Envelope{Message: payload, FromKey: from, ToKey: kid}, nil
}

func (p *Packer) recipientKey(ctx context.Context, kids []string) (string, crypto.PrivateKey, error) {
	for _, kid := range kids {
		pub, kt, err := p.resolveKey(ctx, kid)
		if err != nil {
			logger.Debugf("skip recipient %s: %s", kid, err)

			continue
		}

		keyID, err := kmsKeyID(pub, kt)
		if err != nil || !p.kms.HasKey(keyID) {
			continue
		}

		priv, _, err := p.kms.PrivateKey(keyID)
		if err != nil {
			return "", nil, err
		}

		return kid, priv, nil
	}

	return "", nil, ErrNoRecipientKey
}
