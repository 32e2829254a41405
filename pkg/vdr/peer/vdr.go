/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package peer

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/doc/did"
	vdrapi "github.com/ArtemPivovarov/aries-framework-javascript/pkg/framework/aries/api/vdr"
)

// StoreNamespace store name space for genesis documents of numAlgo 1 DIDs.
const StoreNamespace = "peer"

var logger = log.New("aries-framework/vdr/peer")

type provider interface {
	StorageProvider() storage.Provider
}

// VDR implements did:peer resolution. Numalgo 0 and 2 DIDs resolve from the identifier, numAlgo 1
// DIDs from the genesis documents kept in the store.
type VDR struct {
	store storage.Store
}

// New return new instance of peer vdr implementation.
func New(p provider) (*VDR, error) {
	didDBStore, err := p.StorageProvider().OpenStore(StoreNamespace)
	if err != nil {
		return nil, fmt.Errorf("open store : %w", err)
	}

	return &VDR{store: didDBStore}, nil
}

// Accept did method.
func (v *VDR) Accept(method string) bool {
	return method == DIDMethod
}

// Create derives a peer DID from doc and keeps its genesis document when numAlgo is 1.
func (v *VDR) Create(doc *did.Doc, numAlgo NumAlgo) (*DID, error) {
	p, err := FromDIDDocument(doc, numAlgo)
	if err != nil {
		return nil, err
	}

	if p.NumAlgo() == GenesisDoc {
		if err := v.Store(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Store saves the genesis document of a numAlgo 1 DID.
func (v *VDR) Store(p *DID) error {
	if p.genesisDoc == nil {
		return fmt.Errorf("peer vdr store %s: %w", p.did, ErrMissingGenesisDocument)
	}

	docBytes, err := p.genesisDoc.JSONBytes()
	if err != nil {
		return fmt.Errorf("peer vdr store %s: %w", p.did, err)
	}

	if err := v.store.Put(p.did, docBytes); err != nil {
		return fmt.Errorf("peer vdr store %s: %w", p.did, err)
	}

	logger.Debugf("stored genesis document of %s", p.did)

	return nil
}

// Read resolves a peer DID.
func (v *VDR) Read(_ context.Context, didID string) (*did.DocResolution, error) {
	p, err := FromDID(didID)
	if err != nil {
		return nil, err
	}

	if p.NumAlgo() == GenesisDoc {
		docBytes, err := v.store.Get(didID)
		if err != nil {
			if errors.Is(err, storage.ErrDataNotFound) {
				return nil, fmt.Errorf("peer vdr read %s: %w", didID, vdrapi.ErrNotFound)
			}

			return nil, fmt.Errorf("peer vdr read %s: %w", didID, err)
		}

		p.genesisDoc, err = did.ParseDocument(docBytes)
		if err != nil {
			return nil, fmt.Errorf("peer vdr read %s: %w", didID, err)
		}
	}

	doc, err := p.DIDDocument()
	if err != nil {
		return nil, err
	}

	return &did.DocResolution{DIDDocument: doc}, nil
}

// Close frees resources being maintained by VDR.
func (v *VDR) Close() error {
	return nil
}
