/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package message

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrValidation is returned when a message fails validation.
var ErrValidation = errors.New("message validation failed")

// ValidatorFunc validates a message of one type.
type ValidatorFunc func(msg Message) error

// Validators holds the type specific validators of an agent. The zero value and nil are usable and
// run only the generic checks.
type Validators struct {
	mu     sync.RWMutex
	byType map[string][]ValidatorFunc
}

// NewValidators creates an empty validator table.
func NewValidators() *Validators {
	return &Validators{byType: map[string][]ValidatorFunc{}}
}

// Register adds fn for messages of type typeURI. Validators run after the generic checks.
func (v *Validators) Register(typeURI string, fn ValidatorFunc) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.byType == nil {
		v.byType = map[string][]ValidatorFunc{}
	}

	v.byType[typeURI] = append(v.byType[typeURI], fn)
}

// Validate checks the generic message structure and runs the validators registered for its type.
func (v *Validators) Validate(msg Message) error {
	if err := Validate(msg); err != nil {
		return err
	}

	if v == nil {
		return nil
	}

	v.mu.RLock()
	fns := append([]ValidatorFunc(nil), v.byType[msg.Type()]...)
	v.mu.RUnlock()

	for _, fn := range fns {
		if err := fn(msg); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrValidation, msg.Type(), err)
		}
	}

	return nil
}

// Validate checks the generic message structure: id, type, return route and the V2 addressing fields.
func Validate(msg Message) error {
	if err := validateStructure(msg); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	return nil
}

func validateStructure(msg Message) error {
	if msg.ID() == "" {
		return errors.New("missing message id")
	}

	if _, err := ParseType(msg.Type()); err != nil {
		return err
	}

	switch rr := msg.ReturnRoute(); rr {
	case "", ReturnRouteNone, ReturnRouteThread, ReturnRouteAll:
	default:
		return fmt.Errorf("invalid return route '%s'", rr)
	}

	switch m := msg.(type) {
	case *V1:
		return nil
	case *V2:
		if m.From != "" && !strings.HasPrefix(m.From, "did:") {
			return fmt.Errorf("from '%s' is not a DID", m.From)
		}

		for _, to := range m.To {
			if !strings.HasPrefix(to, "did:") {
				return fmt.Errorf("recipient '%s' is not a DID", to)
			}
		}

		if m.ExpiresTime != 0 && m.CreatedTime != 0 && m.ExpiresTime < m.CreatedTime {
			return errors.New("expires_time is before created_time")
		}

		return nil
	default:
		return fmt.Errorf("unsupported message %T", msg)
	}
}
