/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"context"
	"fmt"

	gojose "github.com/go-jose/go-jose/v3"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/internal/cryptoutil"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/kms"
)

// PackAnon encrypts payload for every supported key agreement key of toDID (ECDH-ES+A256KW, A256GCM).
func (p *Packer) PackAnon(ctx context.Context, payload []byte, toDID string) ([]byte, error) {
	return p.encrypt(ctx, payload, toDID, "")
}

// PackAuth signs payload with the authentication key of fromDID and encrypts the resulting JWS for toDID.
func (p *Packer) PackAuth(ctx context.Context, payload []byte, fromDID, toDID string) ([]byte, error) {
	signed, err := p.Sign(ctx, payload, fromDID)
	if err != nil {
		return nil, err
	}

	return p.encrypt(ctx, signed, toDID, SignedMediaType)
}

func (p *Packer) encrypt(ctx context.Context, payload []byte, toDID, cty string) ([]byte, error) {
	doc, err := p.resolve(ctx, toDID)
	if err != nil {
		return nil, fmt.Errorf("jose encrypt: %w", err)
	}

	vms, err := doc.KeyAgreementMethods()
	if err != nil {
		return nil, fmt.Errorf("jose encrypt: %w", err)
	}

	var recipients []gojose.Recipient

	for i := range vms {
		if vms[i].KeyType() != kms.NISTP256ECDHKWType {
			continue
		}

		pub, err := cryptoutil.PublicKey(kms.NISTP256ECDHKWType, vms[i].Value)
		if err != nil {
			return nil, fmt.Errorf("jose encrypt: key %s: %w", vms[i].ID, err)
		}

		recipients = append(recipients, gojose.Recipient{
			Algorithm: gojose.ECDH_ES_A256KW,
			Key:       pub,
			KeyID:     vms[i].ID,
		})
	}

	if len(recipients) == 0 {
		return nil, fmt.Errorf("jose encrypt: key agreement key of %s: %w", toDID, ErrNoSupportedKey)
	}

	opts := (&gojose.EncrypterOptions{}).WithType(EncryptedMediaType)
	if cty != "" {
		opts = opts.WithContentType(gojose.ContentType(cty))
	}

	encrypter, err := gojose.NewMultiEncrypter(gojose.A256GCM, recipients, opts)
	if err != nil {
		return nil, fmt.Errorf("jose encrypt: new encrypter: %w", err)
	}

	jwe, err := encrypter.Encrypt(payload)
	if err != nil {
		return nil, fmt.Errorf("jose encrypt: %w", err)
	}

	logger.Debugf("encrypted message for %d key(s) of %s", len(recipients), toDID)

	return []byte(jwe.FullSerialize()), nil
}
