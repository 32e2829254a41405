/*
 *
 * Copyright SecureKey Technologies Inc. All Rights Reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 * /
 *
 */

package connection

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/doc/did"
)

const (
	// Namespace is namespace of connection store name.
	Namespace           = "connection"
	keyPattern          = "%s_%s"
	connIDKeyPrefix     = "conn"
	didConnMapKeyPrefix = "didconn"
	keyConnMapKeyPrefix = "keyconn"
	keySeparator        = "_"
)

// Connection states.
const (
	StateInvited   = "invited"
	StateRequested = "requested"
	StateResponded = "responded"
	StateCompleted = "completed"
	StateAbandoned = "abandoned"
)

var logger = log.New("aries-framework/store/connection")

// KeyPrefix is prefix builder for storage keys.
type KeyPrefix func(...string) string

type provider interface {
	StorageProvider() storage.Provider
}

// Record contain info about a DIDComm connection.
type Record struct {
	ConnectionID string
	State        string
	ThreadID     string
	TheirLabel   string
	MyDID        string
	TheirDID     string
	// MyVerKey is the base58 key V1 envelopes of this connection are sent from.
	MyVerKey    string
	TheirVerKey string
	// MyDIDDoc and TheirDIDDoc are the documents exchanged when the DIDs are not resolvable.
	MyDIDDoc    *did.Doc `json:",omitempty"`
	TheirDIDDoc *did.Doc `json:",omitempty"`
}

// IsReady reports whether the connection completed its exchange.
func (r *Record) IsReady() bool {
	return r.State == StateCompleted
}

// NewLookup returns new connection lookup instance.
// Lookup is read only connection store. It provides connection record related query features.
func NewLookup(p provider) (*Lookup, error) {
	store, err := p.StorageProvider().OpenStore(Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to open store to create new connection lookup: %w", err)
	}

	err = p.StorageProvider().SetStoreConfig(Namespace, storage.StoreConfiguration{TagNames: []string{connIDKeyPrefix}})
	if err != nil {
		return nil, fmt.Errorf("failed to set store config: %w", err)
	}

	return &Lookup{store: store}, nil
}

// Lookup takes care of connection related persistence features.
type Lookup struct {
	store storage.Store
}

// GetConnectionRecord return connection record based on the connection ID.
func (c *Lookup) GetConnectionRecord(connectionID string) (*Record, error) {
	var rec Record

	if err := getAndUnmarshal(getConnectionKeyPrefix()(connectionID), &rec, c.store); err != nil {
		return nil, fmt.Errorf("get connection record %s: %w", connectionID, err)
	}

	return &rec, nil
}

// GetConnectionIDByDIDs return connection id based on my and their DIDs.
func (c *Lookup) GetConnectionIDByDIDs(myDID, theirDID string) (string, error) {
	connectionIDBytes, err := c.store.Get(getDIDConnMapKeyPrefix()(myDID, theirDID))
	if err != nil {
		return "", fmt.Errorf("get did-connection map : %w", err)
	}

	return string(connectionIDBytes), nil
}

// GetConnectionRecordByDIDs returns the connection between myDID and theirDID.
func (c *Lookup) GetConnectionRecordByDIDs(myDID, theirDID string) (*Record, error) {
	id, err := c.GetConnectionIDByDIDs(myDID, theirDID)
	if err != nil {
		return nil, err
	}

	return c.GetConnectionRecord(id)
}

// GetConnectionRecordByKeys returns the connection whose V1 keys are myVerKey (recipient of an inbound
// envelope) and theirVerKey (its sender).
func (c *Lookup) GetConnectionRecordByKeys(myVerKey, theirVerKey string) (*Record, error) {
	connectionIDBytes, err := c.store.Get(getKeyConnMapKeyPrefix()(myVerKey, theirVerKey))
	if err != nil {
		return nil, fmt.Errorf("get key-connection map : %w", err)
	}

	return c.GetConnectionRecord(string(connectionIDBytes))
}

// QueryConnectionRecords returns all connection records.
func (c *Lookup) QueryConnectionRecords() ([]*Record, error) {
	itr, err := c.store.Query(connIDKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to query store: %w", err)
	}

	defer func() {
		if errClose := itr.Close(); errClose != nil {
			logger.Errorf("failed to close records iterator: %s", errClose.Error())
		}
	}()

	var records []*Record

	more, err := itr.Next()
	if err != nil {
		return nil, fmt.Errorf("failed to get next set of data from iterator: %w", err)
	}

	for more {
		value, err := itr.Value()
		if err != nil {
			return nil, fmt.Errorf("failed to get value from iterator: %w", err)
		}

		var record Record

		if err = json.Unmarshal(value, &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal connection record: %w", err)
		}

		records = append(records, &record)

		more, err = itr.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to get next set of data from iterator: %w", err)
		}
	}

	return records, nil
}

// IsNotFound reports whether err means that no record exists.
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrDataNotFound)
}

func getAndUnmarshal(key string, target interface{}, store storage.Store) error {
	bytes, err := store.Get(key)
	if err != nil {
		return err
	}

	return json.Unmarshal(bytes, target)
}

// getConnectionKeyPrefix key prefix for connection record persisted.
func getConnectionKeyPrefix() KeyPrefix {
	return func(key ...string) string {
		return fmt.Sprintf(keyPattern, connIDKeyPrefix, strings.Join(key, keySeparator))
	}
}

// getDIDConnMapKeyPrefix key prefix for saving mapping between DIDs and ConnectionID.
func getDIDConnMapKeyPrefix() KeyPrefix {
	return func(key ...string) string {
		return fmt.Sprintf(keyPattern, didConnMapKeyPrefix, strings.Join(key, keySeparator))
	}
}

// getKeyConnMapKeyPrefix key prefix for saving mapping between verkeys and ConnectionID.
func getKeyConnMapKeyPrefix() KeyPrefix {
	return func(key ...string) string {
		return fmt.Sprintf(keyPattern, keyConnMapKeyPrefix, strings.Join(key, keySeparator))
	}
}
