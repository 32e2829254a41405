/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package model

import "encoding/json"

// ForwardType is the routing protocol forward message type.
const ForwardType = "https://didcomm.org/routing/1.0/forward"

// Forward wraps a packed message for a mediator. To is the next recipient key and Msg the
// packed message for it.
type Forward struct {
	Type string          `json:"@type"`
	ID   string          `json:"@id"`
	To   string          `json:"to"`
	Msg  json.RawMessage `json:"msg"`
}
