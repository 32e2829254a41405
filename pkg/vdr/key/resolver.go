/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package key

import (
	"context"
	"fmt"
	"regexp"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/doc/did"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/vdr/fingerprint"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/vdr/peer"
)

var methodIDRegex = regexp.MustCompile(`^z[1-9a-km-zA-HJ-NP-Z]{46,48}$`)

// Read expands did:key value to a DID document.
func (v *VDR) Read(_ context.Context, didKey string) (*did.DocResolution, error) {
	parsed, err := did.Parse(didKey)
	if err != nil {
		return nil, fmt.Errorf("pub:key vdr Read: failed to parse DID document: %w", err)
	}

	if parsed.Method != DIDMethod {
		return nil, fmt.Errorf("pub:key vdr Read: unsupported did method %s", parsed.Method)
	}

	if !methodIDRegex.MatchString(parsed.MethodSpecificID) {
		return nil, fmt.Errorf("vdr Read: invalid did:key method ID: %s", parsed.MethodSpecificID)
	}

	pubKeyBytes, kt, err := fingerprint.PubKeyFromFingerprint(parsed.MethodSpecificID)
	if err != nil {
		return nil, fmt.Errorf("pub:key vdr Read: failed to get key fingerPrint: %w", err)
	}

	didDoc, err := peer.KeyDocument(didKey, parsed.MethodSpecificID, pubKeyBytes, kt)
	if err != nil {
		return nil, fmt.Errorf("creating did document from public key failed: %w", err)
	}

	return &did.DocResolution{DIDDocument: didDoc}, nil
}
