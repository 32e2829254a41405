/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package peer implements the did:peer method: deriving peer DIDs from keys or documents
// (numAlgo 0, 1 and 2) and resolving them back to DID documents.
package peer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/doc/did"
)

const (
	// DIDMethod is the peer DID method name.
	DIDMethod = "peer"

	didPrefix = "did:peer:"
)

// NumAlgo selects how the method specific identifier of a peer DID is generated.
type NumAlgo int

const (
	// InceptionKeyWithoutDoc derives the DID from a single key (method 0).
	InceptionKeyWithoutDoc NumAlgo = 0
	// GenesisDoc derives the DID from the hash of a stored genesis document (method 1).
	GenesisDoc NumAlgo = 1
	// MultipleInceptionKeyWithoutDoc encodes keys and services in the DID itself (method 2).
	MultipleInceptionKeyWithoutDoc NumAlgo = 2
)

var (
	// ErrInvalidPeerDID is returned for identifiers not matching the peer DID grammar.
	ErrInvalidPeerDID = errors.New("invalid peer did")
	// ErrMissingGenesisDocument is returned when a numAlgo 1 DID has no retained genesis document.
	ErrMissingGenesisDocument = errors.New("no did document provided for method 1 peer did")
	// ErrUnknownNumAlgo is returned when no numAlgo was given and none can be inferred.
	ErrUnknownNumAlgo = errors.New("could not determine numAlgo")
	// ErrUnsupportedNumAlgo is returned for numAlgo values the operation cannot handle.
	ErrUnsupportedNumAlgo = errors.New("unsupported numAlgo")
)

const base58Chars = `[1-9a-km-zA-HJ-NP-Z]`

var peerDIDRegex = regexp.MustCompile(`^did:peer:(([01](z)(` + base58Chars + `{46,48}))|` +
	`(2((\.[AEVID](z)(` + base58Chars + `{46,48}))+(\.(S)[0-9a-zA-Z=_-]*)*)))$`)

// DID is an immutable peer DID. A numAlgo 1 DID carries the genesis document it was derived from.
type DID struct {
	did        string
	genesisDoc *did.Doc
}

// FromDID parses a peer DID string.
func FromDID(didID string) (*DID, error) {
	if !peerDIDRegex.MatchString(didID) {
		return nil, fmt.Errorf("peer.FromDID: '%s': %w", didID, ErrInvalidPeerDID)
	}

	return &DID{did: didID}, nil
}

// FromDIDDocument derives a peer DID from doc. A zero numAlgo is inferred from a did:peer document id.
func FromDIDDocument(doc *did.Doc, numAlgo NumAlgo) (*DID, error) {
	if numAlgo == 0 && strings.HasPrefix(doc.ID, didPrefix) {
		p, err := FromDID(doc.ID)
		if err != nil {
			return nil, fmt.Errorf("peer.FromDIDDocument: %w", err)
		}

		numAlgo = p.NumAlgo()
	} else if numAlgo == 0 {
		return nil, fmt.Errorf("peer.FromDIDDocument: the document id must contain the numAlgo "+
			"or the numAlgo must be provided: %w", ErrUnknownNumAlgo)
	}

	switch numAlgo {
	case GenesisDoc:
		return fromGenesisDoc(doc)
	case MultipleInceptionKeyWithoutDoc:
		return fromNumAlgo2Doc(doc)
	}

	return nil, fmt.Errorf("peer.FromDIDDocument: numAlgo %d: %w", numAlgo, ErrUnsupportedNumAlgo)
}

// String returns the DID.
func (p *DID) String() string {
	return p.did
}

// NumAlgo is the first character of the method specific identifier.
func (p *DID) NumAlgo() NumAlgo {
	return NumAlgo(p.did[len(didPrefix)] - '0')
}

// DIDDocument returns the document of the DID. Documents of numAlgo 0 and 2 are derived from the
// identifier alone, numAlgo 1 returns a copy of the genesis document.
func (p *DID) DIDDocument() (*did.Doc, error) {
	switch p.NumAlgo() {
	case InceptionKeyWithoutDoc:
		return numAlgo0Doc(p.did)
	case GenesisDoc:
		if p.genesisDoc == nil {
			return nil, fmt.Errorf("peer.DIDDocument: %s: %w", p.did, ErrMissingGenesisDocument)
		}

		return genesisDocFor(p.did, p.genesisDoc)
	case MultipleInceptionKeyWithoutDoc:
		return numAlgo2Doc(p.did)
	}

	return nil, fmt.Errorf("peer.DIDDocument: numAlgo %d: %w", p.NumAlgo(), ErrUnsupportedNumAlgo)
}

func identifierWithoutNumAlgo(didID string) string {
	return didID[len(didPrefix)+1:]
}
