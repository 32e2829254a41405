/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package legacy

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	chacha "golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/nacl/box"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/packer"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/internal/cryptoutil"
)

// Unpack will decode the envelope using the legacy format.
// The recipient key is the first envelope recipient held by the KMS.
func (p *Packer) Unpack(envelope []byte) (*packer.Envelope, error) {
	var envelopeData legacyEnvelope

	if err := json.Unmarshal(envelope, &envelopeData); err != nil {
		return nil, fmt.Errorf("legacy unpack: %w", err)
	}

	protectedBytes, err := decode(envelopeData.Protected)
	if err != nil {
		return nil, fmt.Errorf("legacy unpack: decode protected header: %w", err)
	}

	var protectedData protected

	if err = json.Unmarshal(protectedBytes, &protectedData); err != nil {
		return nil, fmt.Errorf("legacy unpack: %w", err)
	}

	if protectedData.Typ != EncodingType {
		return nil, fmt.Errorf("legacy unpack: message type %s not supported", protectedData.Typ)
	}

	if protectedData.Alg != AuthcryptAlg && protectedData.Alg != AnoncryptAlg {
		return nil, fmt.Errorf("legacy unpack: message format %s not supported", protectedData.Alg)
	}

	k, err := p.getCEK(protectedData.Recipients, protectedData.Alg == AuthcryptAlg)
	if err != nil {
		return nil, fmt.Errorf("legacy unpack: %w", err)
	}

	data, err := decodeCipherText(k.cek, &envelopeData)
	if err != nil {
		return nil, fmt.Errorf("legacy unpack: %w", err)
	}

	return &packer.Envelope{
		Message: data,
		FromKey: k.theirKey,
		ToKey:   k.myKey,
	}, nil
}

type keys struct {
	cek      []byte
	theirKey string
	myKey    string
}

func (p *Packer) getCEK(recipients []recipient, auth bool) (*keys, error) {
	idx := -1

	for i, candidate := range recipients {
		if p.kms.HasKey(candidate.Header.KID) {
			idx = i

			break
		}
	}

	if idx < 0 {
		return nil, ErrNoRecipientKey
	}

	recip := recipients[idx]
	recKey := base58.Decode(recip.Header.KID)

	recPub, err := curvePub(recKey)
	if err != nil {
		return nil, err
	}

	recPriv, err := p.curvePrivateKey(recip.Header.KID)
	if err != nil {
		return nil, err
	}

	encCEK, err := decode(recip.EncryptedKey)
	if err != nil {
		return nil, fmt.Errorf("decode encrypted key: %w", err)
	}

	if !auth {
		cek, e := sodiumBoxSealOpen(encCEK, recPub, recPriv)
		if e != nil {
			return nil, fmt.Errorf("failed to decrypt CEK: %w", e)
		}

		return &keys{cek: cek, myKey: recip.Header.KID}, nil
	}

	sender, senderPub, err := decodeSender(recip.Header.Sender, recPub, recPriv)
	if err != nil {
		return nil, err
	}

	nonceSlice, err := decode(recip.Header.IV)
	if err != nil {
		return nil, fmt.Errorf("decode iv: %w", err)
	}

	if len(nonceSlice) != cryptoutil.NonceSize {
		return nil, errors.New("invalid recipient iv size")
	}

	var nonce [cryptoutil.NonceSize]byte

	copy(nonce[:], nonceSlice)

	cek, ok := box.Open(nil, encCEK, &nonce, senderPub, recPriv)
	if !ok {
		return nil, errors.New("failed to decrypt CEK")
	}

	return &keys{cek: cek, theirKey: sender, myKey: recip.Header.KID}, nil
}

func decodeSender(b64Sender string, recPub, recPriv *[cryptoutil.Curve25519KeySize]byte) (string,
	*[cryptoutil.Curve25519KeySize]byte, error) {
	encSender, err := decode(b64Sender)
	if err != nil {
		return "", nil, fmt.Errorf("decode sender: %w", err)
	}

	senderVerKey, err := sodiumBoxSealOpen(encSender, recPub, recPriv)
	if err != nil {
		return "", nil, fmt.Errorf("open sender: %w", err)
	}

	senderPub, err := curvePub(base58.Decode(string(senderVerKey)))
	if err != nil {
		return "", nil, fmt.Errorf("sender: %w", err)
	}

	return string(senderVerKey), senderPub, nil
}

// decodeCipherText decodes (from base64) and decrypts the ciphertext using chacha20poly1305.
func decodeCipherText(cek []byte, envelope *legacyEnvelope) ([]byte, error) {
	cipherText, err := decode(envelope.CipherText)
	if err != nil {
		return nil, err
	}

	nonce, err := decode(envelope.IV)
	if err != nil {
		return nil, err
	}

	tag, err := decode(envelope.Tag)
	if err != nil {
		return nil, err
	}

	chachaCipher, err := chacha.New(cek)
	if err != nil {
		return nil, err
	}

	if len(nonce) != chachaCipher.NonceSize() {
		return nil, errors.New("invalid iv size")
	}

	payload := append(cipherText, tag...)

	return chachaCipher.Open(nil, nonce, payload, []byte(envelope.Protected))
}
