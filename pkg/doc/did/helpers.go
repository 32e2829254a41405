/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/kms"
)

// Connectivity of a DID document.
type Connectivity string

const (
	// Online documents expose at least one service reachable over an online transport.
	Online = Connectivity("online")
	// Offline documents can only be reached through queues or return routes.
	Offline = Connectivity("offline")
)

var onlineSchemes = []string{"http", "https", "ws", "wss"} //nolint:gochecknoglobals

// DIDCommServices returns the DIDComm V1 services (IndyAgent and did-communication), sorted by
// descending priority. Services with the same priority keep their document order.
func (doc *Doc) DIDCommServices() []Service {
	var services []Service

	for _, s := range doc.Service {
		if s.Type == IndyAgentServiceType || s.Type == DIDCommServiceType {
			services = append(services, s)
		}
	}

	slices.SortStableFunc(services, func(a, b Service) int {
		switch {
		case a.Priority > b.Priority:
			return -1
		case a.Priority < b.Priority:
			return 1
		default:
			return 0
		}
	})

	return services
}

// ServicesByType returns the services with the given type, in document order.
func (doc *Doc) ServicesByType(serviceType string) []Service {
	var services []Service

	for _, s := range doc.Service {
		if s.Type == serviceType {
			services = append(services, s)
		}
	}

	return services
}

// RecipientKeys returns the distinct recipient keys of the DIDComm V1 services in priority order.
func (doc *Doc) RecipientKeys() []string {
	var keys []string

	for _, s := range doc.DIDCommServices() {
		for _, k := range s.RecipientKeys {
			if !slices.Contains(keys, k) {
				keys = append(keys, k)
			}
		}
	}

	return keys
}

// Connectivity reports whether the document has a service reachable over an online transport.
func (doc *Doc) Connectivity() Connectivity {
	for i := range doc.Service {
		if slices.Contains(onlineSchemes, doc.Service[i].ProtocolScheme()) {
			return Online
		}
	}

	return Offline
}

// DereferenceKey finds the verification method keyID refers to, looking at the top level
// verification methods first and then at embedded relationship entries. Relative references
// ("#key-1") match the absolute method IDs they end with.
func (doc *Doc) DereferenceKey(keyID string) (*VerificationMethod, error) {
	if vm := findVerificationMethod(doc.VerificationMethod, keyID); vm != nil {
		return vm, nil
	}

	for _, rel := range [][]Verification{
		doc.Authentication, doc.AssertionMethod, doc.KeyAgreement,
		doc.CapabilityInvocation, doc.CapabilityDelegation,
	} {
		for i := range rel {
			if rel[i].Embedded && idMatches(rel[i].VerificationMethod.ID, keyID) {
				vm := rel[i].VerificationMethod

				return &vm, nil
			}
		}
	}

	return nil, fmt.Errorf("dereference %s: %w", keyID, ErrKeyNotFound)
}

// VerificationKey returns the raw public key and key type of the method keyID refers to.
func (doc *Doc) VerificationKey(keyID string) ([]byte, kms.KeyType, error) {
	vm, err := doc.DereferenceKey(keyID)
	if err != nil {
		return nil, "", err
	}

	return vm.Value, vm.KeyType(), nil
}

// KeyAgreementMethods returns the resolved key agreement methods with DID qualified IDs. A document
// without a keyAgreement section falls back to its first verification method.
func (doc *Doc) KeyAgreementMethods() ([]VerificationMethod, error) {
	return doc.resolveRelationship("keyAgreement", doc.KeyAgreement)
}

// AuthenticationMethods returns the resolved authentication methods. A document without an
// authentication section falls back to its first verification method.
func (doc *Doc) AuthenticationMethods() ([]VerificationMethod, error) {
	return doc.resolveRelationship("authentication", doc.Authentication)
}

// AgreementKeyID returns the ID of the first key agreement method.
func (doc *Doc) AgreementKeyID() (string, error) {
	vms, err := doc.KeyAgreementMethods()
	if err != nil {
		return "", err
	}

	return vms[0].ID, nil
}

// AuthenticationKeyID returns the ID of the first authentication method.
func (doc *Doc) AuthenticationKeyID() (string, error) {
	vms, err := doc.AuthenticationMethods()
	if err != nil {
		return "", err
	}

	return vms[0].ID, nil
}

func (doc *Doc) resolveRelationship(name string, rel []Verification) ([]VerificationMethod, error) {
	if len(rel) == 0 {
		if len(doc.VerificationMethod) == 0 {
			return nil, fmt.Errorf("%s of %s: %w", name, doc.ID, ErrKeyNotFound)
		}

		return []VerificationMethod{doc.qualified(doc.VerificationMethod[0])}, nil
	}

	vms := make([]VerificationMethod, 0, len(rel))

	for i := range rel {
		if rel[i].Embedded || len(rel[i].VerificationMethod.Value) > 0 {
			vms = append(vms, doc.qualified(rel[i].VerificationMethod))

			continue
		}

		vm, err := doc.DereferenceKey(rel[i].VerificationMethod.ID)
		if err != nil {
			return nil, fmt.Errorf("%s of %s: %w", name, doc.ID, err)
		}

		vms = append(vms, doc.qualified(*vm))
	}

	return vms, nil
}

// qualified returns vm with a relative ID ("#key-1") prefixed by the document DID.
func (doc *Doc) qualified(vm VerificationMethod) VerificationMethod {
	if doc.ID != "" && strings.HasPrefix(vm.ID, "#") {
		vm.ID = doc.ID + vm.ID
	}

	return vm
}

func findVerificationMethod(vms []VerificationMethod, keyID string) *VerificationMethod {
	for i := range vms {
		if idMatches(vms[i].ID, keyID) {
			return &vms[i]
		}
	}

	return nil
}

func idMatches(id, ref string) bool {
	if id == "" || ref == "" {
		return false
	}

	return id == ref || strings.HasSuffix(id, ref) || (strings.HasPrefix(id, "#") && strings.HasSuffix(ref, id))
}
