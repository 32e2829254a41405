/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package envelope

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/envelope"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/message"
)

// PackCall records the arguments of one pack call.
type PackCall struct {
	Message       message.Message
	EncryptParams envelope.EncryptParams
	SignedParams  *envelope.SignedParams
}

// MockPacker packs messages as their plain JSON and records every call.
type MockPacker struct {
	mu          sync.Mutex
	PackErr     error
	PackValue   []byte
	UnpackValue *envelope.DecryptedMessage
	UnpackErr   error
	Calls       []PackCall
}

// PackEncrypted records the call and returns PackValue or the message JSON.
func (m *MockPacker) PackEncrypted(_ context.Context, msg message.Message,
	params envelope.EncryptParams) ([]byte, error) {
	return m.pack(PackCall{Message: msg, EncryptParams: params})
}

// PackSigned records the call and returns PackValue or the message JSON.
func (m *MockPacker) PackSigned(_ context.Context, msg message.Message, params *envelope.SignedParams) ([]byte,
	error) {
	return m.pack(PackCall{Message: msg, SignedParams: params})
}

// Unpack returns UnpackValue and UnpackErr.
func (m *MockPacker) Unpack(context.Context, envelope.PackedMessage) (*envelope.DecryptedMessage, error) {
	return m.UnpackValue, m.UnpackErr
}

func (m *MockPacker) pack(call PackCall) ([]byte, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, call)
	m.mu.Unlock()

	if m.PackErr != nil {
		return nil, m.PackErr
	}

	if m.PackValue != nil {
		return m.PackValue, nil
	}

	return json.Marshal(call.Message)
}

// PackCalls returns a copy of the recorded calls.
func (m *MockPacker) PackCalls() []PackCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]PackCall(nil), m.Calls...)
}
