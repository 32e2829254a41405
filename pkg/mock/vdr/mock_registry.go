/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vdr

import (
	"context"
	"sync"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/doc/did"
	vdrapi "github.com/ArtemPivovarov/aries-framework-javascript/pkg/framework/aries/api/vdr"
)

// MockVDRegistry mock implementation of vdr
// to be used only for unit tests.
type MockVDRegistry struct {
	mu          sync.Mutex
	MemStore    map[string]*did.Doc
	ResolveErr  error
	ResolveFunc func(ctx context.Context, didID string) (*did.DocResolution, error)
	Resolved    []string
}

// Store stores doc so that Resolve returns it.
func (m *MockVDRegistry) Store(doc *did.Doc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.MemStore == nil {
		m.MemStore = make(map[string]*did.Doc)
	}

	m.MemStore[doc.ID] = doc
}

// Resolve did document.
func (m *MockVDRegistry) Resolve(ctx context.Context, didID string) (*did.DocResolution, error) {
	m.mu.Lock()
	m.Resolved = append(m.Resolved, didID)
	doc, ok := m.MemStore[didID]
	m.mu.Unlock()

	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, didID)
	}

	if m.ResolveErr != nil {
		return &did.DocResolution{ResolutionMetadata: did.ResolutionMetadata{
			Error: did.NotFound, Message: m.ResolveErr.Error(),
		}}, m.ResolveErr
	}

	if !ok {
		return &did.DocResolution{ResolutionMetadata: did.ResolutionMetadata{
			Error: did.NotFound, Message: vdrapi.ErrNotFound.Error(),
		}}, vdrapi.ErrNotFound
	}

	return &did.DocResolution{DIDDocument: doc}, nil
}

// Close frees resources being maintained by vdr.
func (m *MockVDRegistry) Close() error {
	return nil
}
