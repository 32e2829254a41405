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

	"github.com/hyperledger/aries-framework-go/spi/storage"
)

const errMsgInvalidKey = "input key is invalid"

// NewRecorder returns new connection recorder.
// Recorder is read-write connection store which provides
// write features on top query features from Lookup.
func NewRecorder(p provider) (*Recorder, error) {
	lookup, err := NewLookup(p)
	if err != nil {
		return nil, fmt.Errorf("failed to create new connection recorder : %w", err)
	}

	return &Recorder{Lookup: lookup}, nil
}

// Recorder is read-write connection store.
type Recorder struct {
	*Lookup
}

// SaveConnectionRecord saves given connection record and its DID and verkey mappings.
func (c *Recorder) SaveConnectionRecord(record *Record) error {
	if record.ConnectionID == "" {
		return errors.New(errMsgInvalidKey)
	}

	bytes, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("save connection record: %w", err)
	}

	err = c.store.Put(getConnectionKeyPrefix()(record.ConnectionID), bytes, storage.Tag{Name: connIDKeyPrefix})
	if err != nil {
		return fmt.Errorf("save connection record: %w", err)
	}

	if record.MyDID != "" && record.TheirDID != "" {
		err = c.store.Put(getDIDConnMapKeyPrefix()(record.MyDID, record.TheirDID), []byte(record.ConnectionID))
		if err != nil {
			return fmt.Errorf("save did-connection map: %w", err)
		}
	}

	if record.MyVerKey != "" && record.TheirVerKey != "" {
		err = c.store.Put(getKeyConnMapKeyPrefix()(record.MyVerKey, record.TheirVerKey), []byte(record.ConnectionID))
		if err != nil {
			return fmt.Errorf("save key-connection map: %w", err)
		}
	}

	logger.Debugf("saved connection %s in state %s", record.ConnectionID, record.State)

	return nil
}

// RemoveConnection removes a connection record and its mappings.
func (c *Recorder) RemoveConnection(connectionID string) error {
	record, err := c.GetConnectionRecord(connectionID)
	if err != nil {
		return fmt.Errorf("remove connection: %w", err)
	}

	keys := []string{getConnectionKeyPrefix()(connectionID)}

	if record.MyDID != "" && record.TheirDID != "" {
		keys = append(keys, getDIDConnMapKeyPrefix()(record.MyDID, record.TheirDID))
	}

	if record.MyVerKey != "" && record.TheirVerKey != "" {
		keys = append(keys, getKeyConnMapKeyPrefix()(record.MyVerKey, record.TheirVerKey))
	}

	for _, k := range keys {
		if err := c.store.Delete(k); err != nil {
			return fmt.Errorf("remove connection %s: %w", connectionID, err)
		}
	}

	return nil
}
