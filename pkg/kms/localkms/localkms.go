/*
 Copyright SecureKey Technologies Inc. All Rights Reserved.

 SPDX-License-Identifier: Apache-2.0
*/

package localkms

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/btcsuite/btcutil/base58"
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"golang.org/x/crypto/curve25519"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/kms"
)

// Namespace is the store name used for key material.
const Namespace = "kmsdb"

var logger = log.New("aries-framework/kms/localkms")

type provider interface {
	StorageProvider() storage.Provider
}

type keyRecord struct {
	Type kms.KeyType `json:"type"`
	Key  []byte      `json:"key"`
}

// LocalKMS implements kms.KeyManager on top of a storage.Store. Keys are stored unwrapped,
// deployments needing key protection plug in their own kms.KeyManager.
type LocalKMS struct {
	store      storage.Store
	randSource io.Reader
}

// New will create a new (local) KMS service.
func New(p provider) (*LocalKMS, error) {
	store, err := p.StorageProvider().OpenStore(Namespace)
	if err != nil {
		return nil, fmt.Errorf("new: failed to open store: %w", err)
	}

	return &LocalKMS{store: store, randSource: rand.Reader}, nil
}

// Create a new key of type kt.
func (l *LocalKMS) Create(kt kms.KeyType) (string, []byte, error) {
	var (
		priv crypto.PrivateKey
		err  error
	)

	switch kt {
	case kms.ED25519Type:
		_, priv, err = ed25519.GenerateKey(l.randSource)
	case kms.X25519ECDHKWType:
		k := make([]byte, curve25519.ScalarSize)

		_, err = io.ReadFull(l.randSource, k)
		priv = k
	case kms.NISTP256ECDHKWType:
		priv, err = ecdsa.GenerateKey(elliptic.P256(), l.randSource)
	default:
		return "", nil, fmt.Errorf("create: key type %s not supported", kt)
	}

	if err != nil {
		return "", nil, fmt.Errorf("create: generate %s key: %w", kt, err)
	}

	return l.ImportPrivateKey(priv, kt)
}

// ImportPrivateKey stores privKey and returns its key ID and public key bytes.
func (l *LocalKMS) ImportPrivateKey(privKey crypto.PrivateKey, kt kms.KeyType) (string, []byte, error) {
	raw, pub, err := marshalPrivateKey(privKey, kt)
	if err != nil {
		return "", nil, fmt.Errorf("import private key: %w", err)
	}

	kid := base58.Encode(pub)

	recBytes, err := json.Marshal(&keyRecord{Type: kt, Key: raw})
	if err != nil {
		return "", nil, fmt.Errorf("import private key: marshal: %w", err)
	}

	if err = l.store.Put(kid, recBytes); err != nil {
		return "", nil, fmt.Errorf("import private key: store: %w", err)
	}

	logger.Debugf("stored %s key %s", kt, kid)

	return kid, pub, nil
}

// PrivateKey returns the private key stored under keyID.
func (l *LocalKMS) PrivateKey(keyID string) (crypto.PrivateKey, kms.KeyType, error) {
	recBytes, err := l.store.Get(keyID)
	if err != nil {
		if errors.Is(err, storage.ErrDataNotFound) {
			return nil, "", fmt.Errorf("private key %s: %w", keyID, kms.ErrKeyNotFound)
		}

		return nil, "", fmt.Errorf("private key %s: %w", keyID, err)
	}

	rec := &keyRecord{}

	if err = json.Unmarshal(recBytes, rec); err != nil {
		return nil, "", fmt.Errorf("private key %s: unmarshal: %w", keyID, err)
	}

	priv, err := unmarshalPrivateKey(rec.Key, rec.Type)
	if err != nil {
		return nil, "", fmt.Errorf("private key %s: %w", keyID, err)
	}

	return priv, rec.Type, nil
}

// HasKey reports whether a key is stored under keyID.
func (l *LocalKMS) HasKey(keyID string) bool {
	_, err := l.store.Get(keyID)

	return err == nil
}

func marshalPrivateKey(privKey crypto.PrivateKey, kt kms.KeyType) ([]byte, []byte, error) {
	switch kt {
	case kms.ED25519Type:
		k, ok := privKey.(ed25519.PrivateKey)
		if !ok || len(k) != ed25519.PrivateKeySize {
			return nil, nil, errors.New("invalid ed25519 private key")
		}

		return k, k.Public().(ed25519.PublicKey), nil
	case kms.X25519ECDHKWType:
		k, ok := privKey.([]byte)
		if !ok || len(k) != curve25519.ScalarSize {
			return nil, nil, errors.New("invalid x25519 private key")
		}

		pub, err := curve25519.X25519(k, curve25519.Basepoint)
		if err != nil {
			return nil, nil, err
		}

		return k, pub, nil
	case kms.NISTP256ECDHKWType:
		k, ok := privKey.(*ecdsa.PrivateKey)
		if !ok || k.Curve != elliptic.P256() {
			return nil, nil, errors.New("invalid P-256 private key")
		}

		return k.D.FillBytes(make([]byte, 32)), elliptic.MarshalCompressed(k.Curve, k.X, k.Y), nil
	default:
		return nil, nil, fmt.Errorf("key type %s not supported", kt)
	}
}

func unmarshalPrivateKey(raw []byte, kt kms.KeyType) (crypto.PrivateKey, error) {
	switch kt {
	case kms.ED25519Type:
		return ed25519.PrivateKey(raw), nil
	case kms.X25519ECDHKWType:
		return raw, nil
	case kms.NISTP256ECDHKWType:
		priv := &ecdsa.PrivateKey{D: new(big.Int).SetBytes(raw)}
		priv.Curve = elliptic.P256()
		priv.X, priv.Y = priv.Curve.ScalarBaseMult(raw)

		return priv, nil
	default:
		return nil, fmt.Errorf("key type %s not supported", kt)
	}
}
