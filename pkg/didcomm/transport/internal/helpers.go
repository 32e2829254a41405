/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package internal

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyFrame is returned for a frame without payload.
var ErrEmptyFrame = errors.New("empty payload")

// DecodeFrame returns the packed message carried by a transport frame. Some agents send the
// envelope as a JSON string holding the base64url encoded envelope.
func DecodeFrame(frame []byte, source string) ([]byte, error) {
	frame = bytes.TrimSpace(frame)
	if len(frame) == 0 {
		return nil, fmt.Errorf("frame from %s: %w", source, ErrEmptyFrame)
	}

	if frame[0] != '"' {
		return frame, nil
	}

	var encoded string

	if err := json.Unmarshal(frame, &encoded); err != nil {
		return nil, fmt.Errorf("quoted frame from %s: %w", source, err)
	}

	decoded, err := base64.URLEncoding.DecodeString(encoded)
	if err == nil {
		return decoded, nil
	}

	decoded, errRaw := base64.RawURLEncoding.DecodeString(encoded)
	if errRaw != nil {
		return nil, fmt.Errorf("not base64 encoded message error from %s: URLEncoding error: %s, RawURLEncoding error: %w",
			source, err.Error(), errRaw)
	}

	return decoded, nil
}
