/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"context"
	"crypto"
	"errors"
	"fmt"

	gojose "github.com/go-jose/go-jose/v3"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/doc/did"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/internal/cryptoutil"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/kms"
)

// Sign creates a JWS over payload with the first authentication key of signByDID held by the KMS.
func (p *Packer) Sign(ctx context.Context, payload []byte, signByDID string) ([]byte, error) {
	doc, err := p.resolve(ctx, signByDID)
	if err != nil {
		return nil, fmt.Errorf("jose sign: %w", err)
	}

	vm, priv, err := p.signingKey(doc)
	if err != nil {
		return nil, fmt.Errorf("jose sign: %w", err)
	}

	alg := gojose.EdDSA
	if vm.KeyType() == kms.NISTP256ECDHKWType {
		alg = gojose.ES256
	}

	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: alg, Key: gojose.JSONWebKey{Key: priv, KeyID: vm.ID}},
		(&gojose.SignerOptions{}).WithType(SignedMediaType),
	)
	if err != nil {
		return nil, fmt.Errorf("jose sign: new signer: %w", err)
	}

	jws, err := signer.Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("jose sign: %w", err)
	}

	logger.Debugf("signed message with %s", vm.ID)

	return []byte(jws.FullSerialize()), nil
}

func (p *Packer) signingKey(doc *did.Doc) (*did.VerificationMethod, crypto.PrivateKey, error) {
	vms, err := doc.AuthenticationMethods()
	if err != nil {
		return nil, nil, err
	}

	for i := range vms {
		kt := vms[i].KeyType()
		if kt != kms.ED25519Type && kt != kms.NISTP256ECDHKWType {
			continue
		}

		keyID, err := kmsKeyID(vms[i].Value, kt)
		if err != nil || !p.kms.HasKey(keyID) {
			continue
		}

		priv, _, err := p.kms.PrivateKey(keyID)
		if err != nil {
			return nil, nil, err
		}

		return &vms[i], priv, nil
	}

	return nil, nil, fmt.Errorf("authentication key of %s: %w", doc.ID, ErrNoSupportedKey)
}

// Verify checks a JWS and returns its payload and the key ID of the signature that verified.
func (p *Packer) Verify(ctx context.Context, envelope []byte) ([]byte, string, error) {
	jws, err := gojose.ParseSigned(string(envelope))
	if err != nil {
		return nil, "", fmt.Errorf("jose verify: %w", err)
	}

	var errs []error

	for _, sig := range jws.Signatures {
		kid := sig.Header.KeyID
		if kid == "" {
			continue
		}

		pub, kt, err := p.resolveKey(ctx, kid)
		if err != nil {
			errs = append(errs, err)

			continue
		}

		pubKey, err := cryptoutil.PublicKey(kt, pub)
		if err != nil {
			errs = append(errs, err)

			continue
		}

		_, verified, payload, err := jws.VerifyMulti(pubKey)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kid, err))

			continue
		}

		if verified.Header.KeyID == kid {
			return payload, kid, nil
		}
	}

	if len(errs) == 0 {
		return nil, "", errors.New("jose verify: no signature with a key ID")
	}

	return nil, "", fmt.Errorf("jose verify: %w", errors.Join(errs...))
}
