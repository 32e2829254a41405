/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package peer

import (
	"fmt"

	"github.com/jinzhu/copier"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multihash"
	"golang.org/x/exp/slices"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/doc/did"
)

// fromGenesisDoc hashes the JSON of doc without its id. The hash depends on the field order of the
// document serialization, documents produced elsewhere may hash differently.
func fromGenesisDoc(doc *did.Doc) (*DID, error) {
	genesis := &did.Doc{}

	if err := copier.Copy(genesis, doc); err != nil {
		return nil, fmt.Errorf("peer.FromDIDDocument: copy genesis document: %w", err)
	}

	genesis.ID = ""

	docBytes, err := genesis.JSONBytes()
	if err != nil {
		return nil, fmt.Errorf("peer.FromDIDDocument: %w", err)
	}

	mh, err := multihash.Sum(docBytes, multihash.SHA2_256, -1)
	if err != nil {
		return nil, fmt.Errorf("peer.FromDIDDocument: multihash: %w", err)
	}

	id, err := multibase.Encode(multibase.Base58BTC, mh)
	if err != nil {
		return nil, fmt.Errorf("peer.FromDIDDocument: multibase: %w", err)
	}

	p, err := FromDID(didPrefix + "1" + id)
	if err != nil {
		return nil, err
	}

	p.genesisDoc = genesis

	return p, nil
}

// NewGenesisDID returns the numAlgo 1 DID didID with its retained genesis document.
func NewGenesisDID(didID string, genesisDoc *did.Doc) (*DID, error) {
	p, err := FromDID(didID)
	if err != nil {
		return nil, err
	}

	if p.NumAlgo() != GenesisDoc {
		return nil, fmt.Errorf("peer.NewGenesisDID: numAlgo %d: %w", p.NumAlgo(), ErrUnsupportedNumAlgo)
	}

	p.genesisDoc = genesisDoc

	return p, nil
}

// GenesisDocument returns the retained genesis document (nil unless numAlgo is 1).
func (p *DID) GenesisDocument() *did.Doc {
	return p.genesisDoc
}

// genesisDocFor copies genesis with its id set to didID. The top level slices are copied so edits of the
// returned document never reach the retained genesis document.
func genesisDocFor(didID string, genesis *did.Doc) (*did.Doc, error) {
	doc := &did.Doc{}

	if err := copier.Copy(doc, genesis); err != nil {
		return nil, fmt.Errorf("peer.DIDDocument: copy genesis document: %w", err)
	}

	doc.ID = didID
	doc.Context = slices.Clone(genesis.Context)
	doc.AlsoKnownAs = slices.Clone(genesis.AlsoKnownAs)
	doc.Controller = slices.Clone(genesis.Controller)
	doc.VerificationMethod = slices.Clone(genesis.VerificationMethod)
	doc.Authentication = slices.Clone(genesis.Authentication)
	doc.AssertionMethod = slices.Clone(genesis.AssertionMethod)
	doc.KeyAgreement = slices.Clone(genesis.KeyAgreement)
	doc.CapabilityInvocation = slices.Clone(genesis.CapabilityInvocation)
	doc.CapabilityDelegation = slices.Clone(genesis.CapabilityDelegation)
	doc.Service = slices.Clone(genesis.Service)

	return doc, nil
}

