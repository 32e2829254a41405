/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vdr

import (
	"context"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/doc/did"
)

// MockVDR mock implementation of vdr
// to be used only for unit tests.
type MockVDR struct {
	AcceptValue bool
	AcceptFunc  func(method string) bool
	ReadFunc    func(ctx context.Context, didID string) (*did.DocResolution, error)
	CloseErr    error
}

// Read did.
func (m *MockVDR) Read(ctx context.Context, didID string) (*did.DocResolution, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx, didID)
	}

	return nil, nil
}

// Accept did.
func (m *MockVDR) Accept(method string) bool {
	if m.AcceptFunc != nil {
		return m.AcceptFunc(method)
	}

	return m.AcceptValue
}

// Close frees resources being maintained by vdr.
func (m *MockVDR) Close() error {
	return m.CloseErr
}
