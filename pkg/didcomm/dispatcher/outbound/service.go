/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package outbound

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/doc/did"
	vdrapi "github.com/ArtemPivovarov/aries-framework-javascript/pkg/framework/aries/api/vdr"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/internal/cryptoutil"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/kms"
)

// ResolvedService is a DIDComm service whose keys are base58 verkeys ready for V1 packing.
type ResolvedService struct {
	ID            string
	Type          string
	Priority      uint
	RecipientKeys []string
	RoutingKeys   []string
	Endpoint      string
}

// ProtocolScheme returns the endpoint scheme, the whole endpoint when it has no scheme separator.
func (s *ResolvedService) ProtocolScheme() string {
	scheme, _, _ := strings.Cut(s.Endpoint, ":")

	return scheme
}

// IsQueue reports whether the service stores messages for pickup.
func (s *ResolvedService) IsQueue() bool {
	return s.Endpoint == did.QueueServiceEndpoint
}

// ServiceResolver turns DID document services into ResolvedServices.
type ServiceResolver struct {
	vdr vdrapi.Registry
}

// NewServiceResolver returns a resolver dereferencing keys through vdr.
func NewServiceResolver(vdr vdrapi.Registry) *ServiceResolver {
	return &ServiceResolver{vdr: vdr}
}

// ResolveServicesFromDID resolves didID and returns its DIDComm V1 services by descending priority.
func (r *ServiceResolver) ResolveServicesFromDID(ctx context.Context, didID string) ([]ResolvedService, error) {
	doc, err := r.resolve(ctx, didID)
	if err != nil {
		return nil, err
	}

	return r.ResolveDocServices(ctx, doc)
}

// ResolveDocServices returns the DIDComm V1 services of doc by descending priority.
//
// IndyAgent services carry base58 keys already. did-communication services reference keys in the
// document. X25519 agreement keys are swapped for the Ed25519 key they were converted from, since
// V1 envelopes are packed with Ed25519 verkeys.
func (r *ServiceResolver) ResolveDocServices(ctx context.Context, doc *did.Doc) ([]ResolvedService, error) {
	var services []ResolvedService

	for _, svc := range doc.DIDCommServices() {
		resolved := ResolvedService{
			ID:       svc.ID,
			Type:     svc.Type,
			Priority: svc.Priority,
			Endpoint: svc.ServiceEndpoint,
		}

		if svc.Type == did.IndyAgentServiceType {
			resolved.RecipientKeys = append(resolved.RecipientKeys, svc.RecipientKeys...)
			resolved.RoutingKeys = append(resolved.RoutingKeys, svc.RoutingKeys...)
			services = append(services, resolved)

			continue
		}

		for _, ref := range svc.RecipientKeys {
			key, err := r.keyFromReference(ctx, doc, ref)
			if err != nil {
				return nil, fmt.Errorf("service %s recipient key: %w", svc.ID, err)
			}

			resolved.RecipientKeys = append(resolved.RecipientKeys, key)
		}

		for _, ref := range svc.RoutingKeys {
			key, err := r.keyFromReference(ctx, doc, ref)
			if err != nil {
				return nil, fmt.Errorf("service %s routing key: %w", svc.ID, err)
			}

			resolved.RoutingKeys = append(resolved.RoutingKeys, key)
		}

		services = append(services, resolved)
	}

	return services, nil
}

func (r *ServiceResolver) resolve(ctx context.Context, didID string) (*did.Doc, error) {
	res, err := r.vdr.Resolve(ctx, didID)
	if err == nil && res != nil && res.DIDDocument != nil {
		return res.DIDDocument, nil
	}

	if err == nil {
		err = errors.New("no document")
	}

	code, msg := "", ""
	if res != nil {
		code, msg = res.ResolutionMetadata.Error, res.ResolutionMetadata.Message
	}

	return nil, fmt.Errorf("%w for did '%s' (%s %s): %w", ErrDIDResolutionFailed, didID, code, msg, err)
}

// keyFromReference returns the base58 verkey ref points at. ref is a raw base58 key, a reference
// relative to doc, or a DID URL of another document such as a mediator's did:key.
func (r *ServiceResolver) keyFromReference(ctx context.Context, doc *did.Doc, ref string) (string, error) {
	if !strings.HasPrefix(ref, "#") && !strings.HasPrefix(ref, "did:") {
		return ref, nil
	}

	target := doc

	if strings.HasPrefix(ref, "did:") {
		if owner := did.ExtractDIDFromKID(ref); owner != doc.ID {
			other, err := r.resolve(ctx, owner)
			if err != nil {
				return "", err
			}

			target = other
		}
	}

	vm, err := dereference(target, ref)
	if err != nil {
		return "", err
	}

	if vm.KeyType() == kms.X25519ECDHKWType {
		edKey, err := ed25519For(target, vm.Value)
		if err != nil {
			return "", err
		}

		return base58.Encode(edKey), nil
	}

	return base58.Encode(vm.Value), nil
}

func dereference(doc *did.Doc, ref string) (*did.VerificationMethod, error) {
	if !strings.Contains(ref, "#") && len(doc.VerificationMethod) > 0 {
		vm := doc.VerificationMethod[0]

		return &vm, nil
	}

	return doc.DereferenceKey(ref)
}

func ed25519For(doc *did.Doc, x25519 []byte) ([]byte, error) {
	for i := range doc.VerificationMethod {
		vm := &doc.VerificationMethod[i]
		if vm.KeyType() != kms.ED25519Type {
			continue
		}

		converted, err := cryptoutil.PublicEd25519toCurve25519(vm.Value)
		if err != nil {
			continue
		}

		if bytes.Equal(converted, x25519) {
			return vm.Value, nil
		}
	}

	return nil, fmt.Errorf("no Ed25519 key of %s converts to the X25519 key: %w", doc.ID, did.ErrKeyNotFound)
}
