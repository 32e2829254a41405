/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package peer

import (
	"fmt"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/doc/did"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/internal/cryptoutil"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/kms"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/vdr/fingerprint"
)

// FromKey creates a numAlgo 0 peer DID from a public key.
func FromKey(pubKey []byte, kt kms.KeyType) (*DID, error) {
	fp, err := fingerprint.KeyTypeFingerprint(kt, pubKey)
	if err != nil {
		return nil, fmt.Errorf("peer.FromKey: %w", err)
	}

	return FromDID(didPrefix + "0" + fp)
}

func numAlgo0Doc(didID string) (*did.Doc, error) {
	fp := identifierWithoutNumAlgo(didID)

	pubKey, kt, err := fingerprint.PubKeyFromFingerprint(fp)
	if err != nil {
		return nil, fmt.Errorf("peer.DIDDocument: %w", err)
	}

	return KeyDocument(didID, fp, pubKey, kt)
}

// KeyDocument builds the document of a DID fully described by one key, as used by numAlgo 0 peer
// DIDs and did:key. The verification method fragment is the key fingerprint. An Ed25519 key gets
// its X25519 conversion as key agreement.
func KeyDocument(didID, fp string, pubKey []byte, kt kms.KeyType) (*did.Doc, error) {
	vm := did.NewVerificationMethod(didID+"#"+fp, didID, kt, pubKey)
	ref := did.NewReferencedVerification(vm)

	switch kt {
	case kms.ED25519Type:
		curvePub, err := cryptoutil.PublicEd25519toCurve25519(pubKey)
		if err != nil {
			return nil, fmt.Errorf("key document: %w", err)
		}

		curveFP, err := fingerprint.KeyTypeFingerprint(kms.X25519ECDHKWType, curvePub)
		if err != nil {
			return nil, fmt.Errorf("key document: %w", err)
		}

		ka := did.NewVerificationMethod(didID+"#"+curveFP, didID, kms.X25519ECDHKWType, curvePub)

		doc := did.BuildDoc(
			did.WithVerificationMethod(*vm, *ka),
			did.WithAuthentication(*ref),
			did.WithKeyAgreement(*did.NewReferencedVerification(ka)),
		)
		doc.Context = append(doc.Context, did.ContextEd25519V1, did.ContextX25519V1)
		doc.ID = didID
		doc.AssertionMethod = []did.Verification{*ref}
		doc.CapabilityInvocation = []did.Verification{*ref}
		doc.CapabilityDelegation = []did.Verification{*ref}

		return doc, nil
	case kms.X25519ECDHKWType:
		doc := did.BuildDoc(did.WithVerificationMethod(*vm), did.WithKeyAgreement(*ref))
		doc.Context = append(doc.Context, did.ContextX25519V1)
		doc.ID = didID

		return doc, nil
	case kms.NISTP256ECDHKWType:
		doc := did.BuildDoc(did.WithVerificationMethod(*vm), did.WithAuthentication(*ref), did.WithKeyAgreement(*ref))
		doc.Context = append(doc.Context, did.ContextJWSV1)
		doc.ID = didID
		doc.AssertionMethod = []did.Verification{*ref}

		return doc, nil
	}

	return nil, fmt.Errorf("key document: key type %s: %w", kt, fingerprint.ErrUnsupportedKey)
}
