/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package jose packs DIDComm V2 envelopes: JWE for encrypted messages and JWS for signed ones.
// Keys are addressed by DID URL key IDs and looked up through DID resolution, private keys come
// from the KMS.
package jose

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/doc/did"
	vdrapi "github.com/ArtemPivovarov/aries-framework-javascript/pkg/framework/aries/api/vdr"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/internal/cryptoutil"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/kms"
)

const (
	// EncryptedMediaType is the `typ` of DIDComm V2 JWE envelopes.
	EncryptedMediaType = "application/didcomm-encrypted+json"
	// SignedMediaType is the `typ` of DIDComm V2 JWS envelopes.
	SignedMediaType = "application/didcomm-signed+json"
)

var logger = log.New("aries-framework/packer/jose")

var (
	// ErrNoSupportedKey is returned when a DID document has no key the packer can use.
	ErrNoSupportedKey = errors.New("no supported key")
	// ErrNoRecipientKey is returned by Unpack when none of the envelope recipients is held by the KMS.
	ErrNoRecipientKey = errors.New("no recipient key found in kms")
)

// Provider contains the dependencies of the JOSE packer.
type Provider interface {
	KMS() kms.KeyManager
	VDRegistry() vdrapi.Registry
}

// Packer packs DIDComm V2 envelopes.
type Packer struct {
	kms kms.KeyManager
	vdr vdrapi.Registry
}

// New creates a JOSE Packer.
func New(p Provider) *Packer {
	return &Packer{kms: p.KMS(), vdr: p.VDRegistry()}
}

func (p *Packer) resolve(ctx context.Context, didID string) (*did.Doc, error) {
	res, err := p.vdr.Resolve(ctx, didID)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", didID, err)
	}

	return res.DIDDocument, nil
}

// resolveKey dereferences a DID URL key ID.
func (p *Packer) resolveKey(ctx context.Context, kid string) ([]byte, kms.KeyType, error) {
	doc, err := p.resolve(ctx, did.ExtractDIDFromKID(kid))
	if err != nil {
		return nil, "", err
	}

	return doc.VerificationKey(kid)
}

// kmsKeyID returns the ID a public key is stored under in the KMS.
func kmsKeyID(pub []byte, kt kms.KeyType) (string, error) {
	if kt == kms.NISTP256ECDHKWType && len(pub) != 33 {
		k, err := cryptoutil.PublicKey(kt, pub)
		if err != nil {
			return "", err
		}

		ecKey := k.(*ecdsa.PublicKey) //nolint:forcetypeassert

		pub = elliptic.MarshalCompressed(ecKey.Curve, ecKey.X, ecKey.Y)
	}

	return base58.Encode(pub), nil
}
