/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package message holds the DIDComm message model: a union of DIDComm V1 and V2 messages with
// the thread and return route metadata shared by both generations.
package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

// Version of the DIDComm protocol generation.
type Version string

const (
	// DIDCommV1 is the Aries RFC generation.
	DIDCommV1 Version = "v1"
	// DIDCommV2 is the DIF DIDComm Messaging generation.
	DIDCommV2 Version = "v2"
)

// ReturnRoute asks the recipient to reply over the inbound transport.
type ReturnRoute string

const (
	// ReturnRouteNone disables return routing.
	ReturnRouteNone ReturnRoute = "none"
	// ReturnRouteThread returns messages of one thread.
	ReturnRouteThread ReturnRoute = "thread"
	// ReturnRouteAll returns all messages.
	ReturnRouteAll ReturnRoute = "all"
)

// PlaintextMediaType is the typ of DIDComm V2 plaintext messages.
const PlaintextMediaType = "application/didcomm-plain+json"

const (
	jsonIDV1        = "@id"
	jsonTypeV1      = "@type"
	jsonThreadV1    = "~thread"
	jsonTransportV1 = "~transport"
)

// Message is a DIDComm message, either *V1 or *V2.
type Message interface {
	ID() string
	Type() string
	Version() Version
	// ThreadID returns the thread id, the message id when the message starts a thread.
	ThreadID() string
	ParentThreadID() string
	ReturnRoute() ReturnRoute
	HasReturnRouting(threadID string) bool
	SetReturnRouting(rr ReturnRoute)
	SetThread(thid, pthid string)
	json.Marshaler

	sealed()
}

// Thread decorator.
type Thread struct {
	ID       string `json:"thid,omitempty" mapstructure:"thid"`
	ParentID string `json:"pthid,omitempty" mapstructure:"pthid"`
}

// Transport decorator.
type Transport struct {
	ReturnRoute       ReturnRoute `json:"return_route,omitempty" mapstructure:"return_route"`
	ReturnRouteThread string      `json:"return_route_thread,omitempty" mapstructure:"return_route_thread"`
}

// V1 is a DIDComm V1 message. Fields holds every member that is not a decorator handled here.
type V1 struct {
	id        string
	msgType   string
	Thread    *Thread
	Transport *Transport
	Fields    map[string]interface{}
}

// NewV1 creates a V1 message of type typeURI with a fresh id. body is a struct or map
// that becomes the message members.
func NewV1(typeURI string, body interface{}) (*V1, error) {
	fields, err := toMap(body)
	if err != nil {
		return nil, fmt.Errorf("new message %s: %w", typeURI, err)
	}

	for _, k := range []string{jsonIDV1, jsonTypeV1, jsonThreadV1, jsonTransportV1} {
		delete(fields, k)
	}

	return &V1{id: uuid.New().String(), msgType: typeURI, Fields: fields}, nil
}

// ID returns the message @id.
func (m *V1) ID() string { return m.id }

// Type returns the message @type.
func (m *V1) Type() string { return m.msgType }

// Version returns DIDCommV1.
func (m *V1) Version() Version { return DIDCommV1 }

// ThreadID returns the ~thread thid or the message id.
func (m *V1) ThreadID() string {
	if m.Thread != nil && m.Thread.ID != "" {
		return m.Thread.ID
	}

	return m.id
}

// ParentThreadID returns the ~thread pthid.
func (m *V1) ParentThreadID() string {
	if m.Thread == nil {
		return ""
	}

	return m.Thread.ParentID
}

// ReturnRoute returns the ~transport return_route.
func (m *V1) ReturnRoute() ReturnRoute {
	if m.Transport == nil {
		return ""
	}

	return m.Transport.ReturnRoute
}

// HasReturnRouting reports whether replies for threadID should use the inbound transport.
func (m *V1) HasReturnRouting(threadID string) bool {
	if m.Transport == nil {
		return false
	}

	return hasReturnRouting(m.Transport.ReturnRoute, m.Transport.ReturnRouteThread, threadID)
}

// SetReturnRouting sets the ~transport return_route.
func (m *V1) SetReturnRouting(rr ReturnRoute) {
	if m.Transport == nil {
		m.Transport = &Transport{}
	}

	m.Transport.ReturnRoute = rr
}

// SetThread sets the ~thread decorator.
func (m *V1) SetThread(thid, pthid string) {
	m.Thread = &Thread{ID: thid, ParentID: pthid}
}

// DecodeBody decodes the message members into v, honoring json tags.
func (m *V1) DecodeBody(v interface{}) error {
	return decode(m.Fields, v)
}

func (m *V1) sealed() {}

// MarshalJSON flattens decorators and members into a single JSON object.
func (m *V1) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(m.Fields)+4) //nolint:gomnd

	for k, v := range m.Fields {
		out[k] = v
	}

	out[jsonIDV1] = m.id
	out[jsonTypeV1] = m.msgType

	if m.Thread != nil {
		out[jsonThreadV1] = m.Thread
	}

	if m.Transport != nil {
		out[jsonTransportV1] = m.Transport
	}

	return json.Marshal(out)
}

// UnmarshalJSON reads a V1 message.
func (m *V1) UnmarshalJSON(data []byte) error {
	fields := map[string]interface{}{}

	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	id, _ := fields[jsonIDV1].(string)
	msgType, _ := fields[jsonTypeV1].(string)

	*m = V1{id: id, msgType: ReplaceLegacyDIDSovPrefix(msgType)}

	if raw, ok := fields[jsonThreadV1]; ok {
		m.Thread = &Thread{}

		if err := mapstructure.Decode(raw, m.Thread); err != nil {
			return fmt.Errorf("decode ~thread: %w", err)
		}
	}

	if raw, ok := fields[jsonTransportV1]; ok {
		m.Transport = &Transport{}

		if err := mapstructure.Decode(raw, m.Transport); err != nil {
			return fmt.Errorf("decode ~transport: %w", err)
		}
	}

	for _, k := range []string{jsonIDV1, jsonTypeV1, jsonThreadV1, jsonTransportV1} {
		delete(fields, k)
	}

	m.Fields = fields

	return nil
}

// V2 is a DIDComm V2 plaintext message.
type V2 struct {
	id          string
	msgType     string
	From        string
	To          []string
	Thid        string
	Pthid       string
	CreatedTime int64
	ExpiresTime int64
	Body        map[string]interface{}
	returnRoute ReturnRoute
}

type rawV2 struct {
	ID          string                 `json:"id"`
	Typ         string                 `json:"typ,omitempty"`
	Type        string                 `json:"type"`
	From        string                 `json:"from,omitempty"`
	To          []string               `json:"to,omitempty"`
	Thid        string                 `json:"thid,omitempty"`
	Pthid       string                 `json:"pthid,omitempty"`
	CreatedTime int64                  `json:"created_time,omitempty"`
	ExpiresTime int64                  `json:"expires_time,omitempty"`
	Body        map[string]interface{} `json:"body"`
	ReturnRoute ReturnRoute            `json:"return_route,omitempty"`
}

// NewV2 creates a V2 message of type typeURI with a fresh id and the current creation time.
func NewV2(typeURI, from string, to []string, body interface{}) (*V2, error) {
	fields, err := toMap(body)
	if err != nil {
		return nil, fmt.Errorf("new message %s: %w", typeURI, err)
	}

	return &V2{
		id:          uuid.New().String(),
		msgType:     typeURI,
		From:        from,
		To:          to,
		CreatedTime: time.Now().Unix(),
		Body:        fields,
	}, nil
}

// ID returns the message id.
func (m *V2) ID() string { return m.id }

// Type returns the message type.
func (m *V2) Type() string { return m.msgType }

// Version returns DIDCommV2.
func (m *V2) Version() Version { return DIDCommV2 }

// ThreadID returns thid or the message id.
func (m *V2) ThreadID() string {
	if m.Thid != "" {
		return m.Thid
	}

	return m.id
}

// ParentThreadID returns pthid.
func (m *V2) ParentThreadID() string { return m.Pthid }

// ReturnRoute returns the return_route header.
func (m *V2) ReturnRoute() ReturnRoute { return m.returnRoute }

// HasReturnRouting reports whether replies for threadID should use the inbound transport.
func (m *V2) HasReturnRouting(threadID string) bool {
	return hasReturnRouting(m.returnRoute, m.ThreadID(), threadID)
}

// SetReturnRouting sets the return_route header.
func (m *V2) SetReturnRouting(rr ReturnRoute) { m.returnRoute = rr }

// SetThread sets thid and pthid.
func (m *V2) SetThread(thid, pthid string) {
	m.Thid = thid
	m.Pthid = pthid
}

// Recipient returns the first recipient DID, or an empty string.
func (m *V2) Recipient() string {
	if len(m.To) == 0 {
		return ""
	}

	return m.To[0]
}

// DecodeBody decodes the message body into v, honoring json tags.
func (m *V2) DecodeBody(v interface{}) error {
	return decode(m.Body, v)
}

func (m *V2) sealed() {}

// MarshalJSON marshals the plaintext message.
func (m *V2) MarshalJSON() ([]byte, error) {
	body := m.Body
	if body == nil {
		body = map[string]interface{}{}
	}

	return json.Marshal(&rawV2{
		ID:          m.id,
		Typ:         PlaintextMediaType,
		Type:        m.msgType,
		From:        m.From,
		To:          m.To,
		Thid:        m.Thid,
		Pthid:       m.Pthid,
		CreatedTime: m.CreatedTime,
		ExpiresTime: m.ExpiresTime,
		Body:        body,
		ReturnRoute: m.returnRoute,
	})
}

// UnmarshalJSON reads a V2 plaintext message.
func (m *V2) UnmarshalJSON(data []byte) error {
	raw := &rawV2{}

	if err := json.Unmarshal(data, raw); err != nil {
		return err
	}

	*m = V2{
		id:          raw.ID,
		msgType:     raw.Type,
		From:        raw.From,
		To:          raw.To,
		Thid:        raw.Thid,
		Pthid:       raw.Pthid,
		CreatedTime: raw.CreatedTime,
		ExpiresTime: raw.ExpiresTime,
		Body:        raw.Body,
		returnRoute: raw.ReturnRoute,
	}

	return nil
}

// Parse reads a plaintext message, V1 when it has an @type member and V2 otherwise.
func Parse(data []byte) (Message, error) {
	probe := map[string]json.RawMessage{}

	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}

	if _, ok := probe[jsonTypeV1]; ok {
		m := &V1{}

		if err := json.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("parse V1 message: %w", err)
		}

		return m, nil
	}

	if _, ok := probe["type"]; ok {
		m := &V2{}

		if err := json.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("parse V2 message: %w", err)
		}

		return m, nil
	}

	return nil, errors.New("parse message: no message type")
}

func hasReturnRouting(rr ReturnRoute, routedThread, threadID string) bool {
	switch rr {
	case ReturnRouteAll:
		return true
	case ReturnRouteThread:
		return routedThread != "" && routedThread == threadID
	default:
		return false
	}
}

func toMap(body interface{}) (map[string]interface{}, error) {
	if body == nil {
		return map[string]interface{}{}, nil
	}

	if m, ok := body.(map[string]interface{}); ok {
		return m, nil
	}

	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}

	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, fmt.Errorf("body must be a JSON object: %w", err)
	}

	return fields, nil
}

func decode(input map[string]interface{}, v interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     v,
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}
