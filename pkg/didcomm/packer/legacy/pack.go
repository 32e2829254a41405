/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package legacy

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcutil/base58"
	chacha "golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/poly1305"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/internal/cryptoutil"
)

// Pack will encode the payload argument using the legacy format.
// With a sender key the envelope is authcrypted: the sender verkey is sealed for every recipient and
// the content key is boxed with the sender's converted private key. Without one it is anoncrypted.
// senderKey and recipients are raw Ed25519 public keys.
func (p *Packer) Pack(payload, senderKey []byte, recipients [][]byte) ([]byte, error) {
	if len(recipients) == 0 {
		return nil, errors.New("empty recipients keys, must have at least one recipient")
	}

	var senderPriv *[cryptoutil.Curve25519KeySize]byte

	alg := AnoncryptAlg

	if len(senderKey) > 0 {
		var err error

		senderPriv, err = p.curvePrivateKey(base58.Encode(senderKey))
		if err != nil {
			return nil, fmt.Errorf("legacy pack: sender key: %w", err)
		}

		alg = AuthcryptAlg
	}

	nonce := make([]byte, chacha.NonceSize)
	if _, err := io.ReadFull(p.randSource, nonce); err != nil {
		return nil, fmt.Errorf("legacy pack: generate nonce: %w", err)
	}

	cek := make([]byte, chacha.KeySize)
	if _, err := io.ReadFull(p.randSource, cek); err != nil {
		return nil, fmt.Errorf("legacy pack: generate cek: %w", err)
	}

	recs, err := p.buildRecipients(cek, senderKey, senderPriv, recipients)
	if err != nil {
		return nil, fmt.Errorf("legacy pack: %w", err)
	}

	header := protected{
		Enc:        encAlg,
		Typ:        EncodingType,
		Alg:        alg,
		Recipients: recs,
	}

	protectedBytes, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("legacy pack: marshal protected header: %w", err)
	}

	protectedB64 := encode(protectedBytes)

	chachaCipher, err := chacha.New(cek)
	if err != nil {
		return nil, fmt.Errorf("legacy pack: %w", err)
	}

	// the additional data is the base64 encoded protected header
	sealed := chachaCipher.Seal(nil, nonce, payload, []byte(protectedB64))

	tagStart := len(sealed) - poly1305.TagSize

	env := legacyEnvelope{
		Protected:  protectedB64,
		IV:         encode(nonce),
		CipherText: encode(sealed[:tagStart]),
		Tag:        encode(sealed[tagStart:]),
	}

	out, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("legacy pack: marshal envelope: %w", err)
	}

	logger.Debugf("packed %s envelope for %d recipient(s)", alg, len(recipients))

	return out, nil
}

func (p *Packer) buildRecipients(cek, senderKey []byte, senderPriv *[cryptoutil.Curve25519KeySize]byte,
	recipients [][]byte) ([]recipient, error) {
	var cekArr [chacha.KeySize]byte

	copy(cekArr[:], cek)

	recs := make([]recipient, 0, len(recipients))

	for i, recKey := range recipients {
		recPub, err := curvePub(recKey)
		if err != nil {
			return nil, fmt.Errorf("recipient %d: %w", i, err)
		}

		var rec recipient

		if senderPriv == nil {
			rec, err = p.anonRecipient(cekArr[:], recKey, recPub)
		} else {
			rec, err = p.authRecipient(cekArr[:], senderKey, senderPriv, recKey, recPub)
		}

		if err != nil {
			return nil, fmt.Errorf("recipient %d: %w", i, err)
		}

		recs = append(recs, rec)
	}

	return recs, nil
}

func (p *Packer) anonRecipient(cek, recKey []byte, recPub *[cryptoutil.Curve25519KeySize]byte) (recipient, error) {
	encCEK, err := sodiumBoxSeal(cek, recPub, p.randSource)
	if err != nil {
		return recipient{}, err
	}

	return recipient{
		EncryptedKey: encode(encCEK),
		Header:       recipientHeader{KID: base58.Encode(recKey)},
	}, nil
}

func (p *Packer) authRecipient(cek, senderKey []byte, senderPriv *[cryptoutil.Curve25519KeySize]byte,
	recKey []byte, recPub *[cryptoutil.Curve25519KeySize]byte) (recipient, error) {
	var nonce [cryptoutil.NonceSize]byte

	if _, err := io.ReadFull(p.randSource, nonce[:]); err != nil {
		return recipient{}, err
	}

	encCEK := box.Seal(nil, cek, &nonce, recPub, senderPriv)

	encSender, err := sodiumBoxSeal([]byte(base58.Encode(senderKey)), recPub, p.randSource)
	if err != nil {
		return recipient{}, err
	}

	return recipient{
		EncryptedKey: encode(encCEK),
		Header: recipientHeader{
			KID:    base58.Encode(recKey),
			Sender: encode(encSender),
			IV:     encode(nonce[:]),
		},
	}, nil
}

func (p *Packer) curvePrivateKey(kid string) (*[cryptoutil.Curve25519KeySize]byte, error) {
	priv, _, err := p.kms.PrivateKey(kid)
	if err != nil {
		return nil, err
	}

	edPriv, ok := priv.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key %s is not an ed25519 key", kid)
	}

	return curvePriv(edPriv)
}
