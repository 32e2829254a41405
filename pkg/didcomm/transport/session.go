/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/envelope"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/message"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/doc/did"
)

// ErrSessionClosed is returned when a reply is sent over a closed session.
var ErrSessionClosed = errors.New("transport session closed")

// Session is an open inbound channel a reply can be sent back over.
type Session interface {
	ID() string
	// Type is the transport kind, e.g. "http" or "ws".
	Type() string
	// Keys are the V1 envelope keys a reply over the session is packed with.
	Keys() *envelope.V1Params
	// InboundMessage is the message that arrived on the session.
	InboundMessage() message.Message
	ConnectionID() string
	// Bind attaches the connection, reply keys and inbound message once the message is unpacked.
	Bind(connectionID string, keys *envelope.V1Params, inbound message.Message)
	Send(ctx context.Context, packed []byte) error
	Close() error
}

// BaseSession implements the metadata part of Session for transports to embed.
type BaseSession struct {
	mu           sync.RWMutex
	id           string
	kind         string
	connectionID string
	keys         *envelope.V1Params
	inbound      message.Message
}

// NewBaseSession creates session metadata with a fresh id.
func NewBaseSession(kind string) *BaseSession {
	return &BaseSession{id: uuid.New().String(), kind: kind}
}

// ID of the session.
func (s *BaseSession) ID() string { return s.id }

// Type of the session.
func (s *BaseSession) Type() string { return s.kind }

// Keys returns the reply keys.
func (s *BaseSession) Keys() *envelope.V1Params {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.keys
}

// InboundMessage returns the last message received on the session.
func (s *BaseSession) InboundMessage() message.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.inbound
}

// ConnectionID returns the bound connection.
func (s *BaseSession) ConnectionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.connectionID
}

// Bind sets the session metadata.
func (s *BaseSession) Bind(connectionID string, keys *envelope.V1Params, inbound message.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connectionID = connectionID
	s.keys = keys
	s.inbound = inbound
}

// SessionRegistry keeps the open sessions. Sessions are never persisted.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: map[string]Session{}}
}

// Save registers s under its id.
func (r *SessionRegistry) Save(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.ID()] = s
}

// Remove drops the session with the given id.
func (r *SessionRegistry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID)
}

// FindByConnectionID returns an open session bound to the connection.
func (r *SessionRegistry) FindByConnectionID(connectionID string) (Session, bool) {
	if connectionID == "" {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.sessions {
		if s.ConnectionID() == connectionID {
			return s, true
		}
	}

	return nil, false
}

// Len returns the number of open sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}

// HasInboundEndpoint reports whether doc has a DIDComm V1 service peers can reach directly, one that
// is not the queue pseudo service.
func HasInboundEndpoint(doc *did.Doc) bool {
	if doc == nil {
		return false
	}

	for _, s := range doc.DIDCommServices() {
		if s.ServiceEndpoint != did.QueueServiceEndpoint {
			return true
		}
	}

	return false
}
