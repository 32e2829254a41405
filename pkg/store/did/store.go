/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"errors"
	"fmt"

	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/doc/did"
)

const (
	// NameSpace for did store.
	NameSpace = "didstore"

	didMarkerKey        = "didmarker_"
	didMarkerKeyPattern = didMarkerKey + "%s"
)

var logger = log.New("aries-framework/store/did")

// ErrMarkerRequired is returned when a DID is saved without a marker.
var ErrMarkerRequired = errors.New("did marker is mandatory")

// Record links a marker to the DID it selects.
type Record struct {
	Marker string `json:"marker,omitempty"`
	ID     string `json:"id,omitempty"`
}

// Store keeps the agent's own DID documents. A marker tags the DID the agent sends from in a given
// role, for example the public DID it puts in out-of-band invitations.
type Store struct {
	store storage.Store
}

type provider interface {
	StorageProvider() storage.Provider
}

// New returns a new did store.
func New(ctx provider) (*Store, error) {
	store, err := ctx.StorageProvider().OpenStore(NameSpace)
	if err != nil {
		return nil, fmt.Errorf("failed to open did store: %w", err)
	}

	err = ctx.StorageProvider().SetStoreConfig(NameSpace, storage.StoreConfiguration{TagNames: []string{didMarkerKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to set store configuration: %w", err)
	}

	return &Store{store: store}, nil
}

// SaveDID saves a did doc and points marker at it. A marker already in use moves to the new DID.
func (s *Store) SaveDID(marker string, didDoc *did.Doc) error {
	if marker == "" {
		return ErrMarkerRequired
	}

	docBytes, err := didDoc.JSONBytes()
	if err != nil {
		return fmt.Errorf("failed to marshal didDoc: %w", err)
	}

	if err := s.store.Put(didDoc.ID, docBytes); err != nil {
		return fmt.Errorf("failed to put didDoc: %w", err)
	}

	if err := s.store.Put(didMarkerDataKey(marker), []byte(didDoc.ID), storage.Tag{Name: didMarkerKey}); err != nil {
		return fmt.Errorf("store did marker to id map : %w", err)
	}

	logger.Debugf("saved %s as %s", didDoc.ID, marker)

	return nil
}

// GetDID retrieves a didDoc based on ID.
func (s *Store) GetDID(id string) (*did.Doc, error) {
	docBytes, err := s.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get did doc: %w", err)
	}

	didDoc, err := did.ParseDocument(docBytes)
	if err != nil {
		return nil, fmt.Errorf("umarshalling didDoc failed: %w", err)
	}

	return didDoc, nil
}

// GetDIDByMarker retrieves the id of the DID marker points at.
func (s *Store) GetDIDByMarker(marker string) (string, error) {
	idBytes, err := s.store.Get(didMarkerDataKey(marker))
	if err != nil {
		return "", fmt.Errorf("fetch did doc id based on marker : %w", err)
	}

	return string(idBytes), nil
}

// GetDIDRecords retrieves the marker records.
func (s *Store) GetDIDRecords() ([]*Record, error) {
	itr, err := s.store.Query(didMarkerKey)
	if err != nil {
		return nil, fmt.Errorf("query did markers: %w", err)
	}

	defer func() {
		errClose := itr.Close()
		if errClose != nil {
			logger.Errorf("failed to close iterator: %s", errClose.Error())
		}
	}()

	var records []*Record

	more, err := itr.Next()
	if err != nil {
		return nil, fmt.Errorf("query did markers: %w", err)
	}

	for more {
		key, err := itr.Key()
		if err != nil {
			return nil, fmt.Errorf("query did markers: %w", err)
		}

		id, err := itr.Value()
		if err != nil {
			return nil, fmt.Errorf("query did markers: %w", err)
		}

		records = append(records, &Record{Marker: getDIDMarker(key), ID: string(id)})

		more, err = itr.Next()
		if err != nil {
			return nil, fmt.Errorf("query did markers: %w", err)
		}
	}

	return records, nil
}

func didMarkerDataKey(marker string) string {
	return fmt.Sprintf(didMarkerKeyPattern, marker)
}

func getDIDMarker(dataKey string) string {
	return dataKey[len(didMarkerKey):]
}
