/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package peer

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/doc/did"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/kms"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/vdr/fingerprint"
)

type purpose byte

const (
	purposeAssertion            purpose = 'A'
	purposeEncryption           purpose = 'E'
	purposeVerification         purpose = 'V'
	purposeCapabilityInvocation purpose = 'I'
	purposeCapabilityDelegation purpose = 'D'
	purposeService              purpose = 'S'
)

// purposeOrder is the order in which key purposes are written to a numAlgo 2 DID.
var purposeOrder = []purpose{ //nolint:gochecknoglobals
	purposeAssertion,
	purposeEncryption,
	purposeVerification,
	purposeCapabilityInvocation,
	purposeCapabilityDelegation,
}

var (
	abbreviations = map[string]string{ //nolint:gochecknoglobals
		"type":             "t",
		"serviceEndpoint":  "s",
		"routingKeys":      "r",
		"accept":           "a",
		"DIDCommMessaging": "dm",
	}
	expansions = reverse(abbreviations) //nolint:gochecknoglobals
)

func reverse(m map[string]string) map[string]string {
	r := make(map[string]string, len(m))

	for k, v := range m {
		r[v] = k
	}

	return r
}

func relationship(doc *did.Doc, p purpose) *[]did.Verification {
	switch p {
	case purposeAssertion:
		return &doc.AssertionMethod
	case purposeEncryption:
		return &doc.KeyAgreement
	case purposeVerification:
		return &doc.Authentication
	case purposeCapabilityInvocation:
		return &doc.CapabilityInvocation
	case purposeCapabilityDelegation:
		return &doc.CapabilityDelegation
	}

	return nil
}

func fromNumAlgo2Doc(doc *did.Doc) (*DID, error) {
	var sb strings.Builder

	sb.WriteString(didPrefix + "2")

	for _, p := range purposeOrder {
		for _, v := range *relationship(doc, p) {
			vm := v.VerificationMethod

			if !v.Embedded && len(vm.Value) == 0 {
				resolved, err := doc.DereferenceKey(vm.ID)
				if err != nil {
					return nil, fmt.Errorf("peer.FromDIDDocument: %w", err)
				}

				vm = *resolved
			}

			fp, err := fingerprint.KeyTypeFingerprint(vm.KeyType(), vm.Value)
			if err != nil {
				return nil, fmt.Errorf("peer.FromDIDDocument: key %s: %w", vm.ID, err)
			}

			sb.WriteString("." + string(p) + fp)
		}
	}

	if len(doc.Service) > 0 {
		encoded, err := encodeServices(doc.Service)
		if err != nil {
			return nil, fmt.Errorf("peer.FromDIDDocument: %w", err)
		}

		sb.WriteString("." + string(purposeService) + encoded)
	}

	return FromDID(sb.String())
}

func encodeServices(services []did.Service) (string, error) {
	abbreviated := make([]map[string]interface{}, 0, len(services))

	for _, s := range services {
		m := map[string]interface{}{
			"t": abbreviate(s.Type),
			"s": s.ServiceEndpoint,
		}

		if len(s.RoutingKeys) > 0 {
			m["r"] = s.RoutingKeys
		}

		if len(s.Accept) > 0 {
			m["a"] = s.Accept
		}

		if len(s.RecipientKeys) > 0 {
			m["recipientKeys"] = s.RecipientKeys
		}

		if s.Priority > 0 {
			m["priority"] = s.Priority
		}

		abbreviated = append(abbreviated, m)
	}

	var (
		b   []byte
		err error
	)

	if len(abbreviated) == 1 {
		b, err = json.Marshal(abbreviated[0])
	} else {
		b, err = json.Marshal(abbreviated)
	}

	if err != nil {
		return "", fmt.Errorf("encode services: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

func abbreviate(value string) string {
	if a, ok := abbreviations[value]; ok {
		return a
	}

	return value
}

func expand(value string) string {
	if e, ok := expansions[value]; ok {
		return e
	}

	return value
}

func numAlgo2Doc(didID string) (*did.Doc, error) {
	doc := did.BuildDoc()
	doc.ID = didID

	keyIndex := map[string]string{}
	contexts := map[string]bool{}

	var serviceIndex int

	for _, element := range strings.Split(identifierWithoutNumAlgo(didID), ".")[1:] {
		p, value := purpose(element[0]), element[1:]

		if p == purposeService {
			services, err := decodeServices(didID, value, serviceIndex)
			if err != nil {
				return nil, fmt.Errorf("peer.DIDDocument: %w", err)
			}

			serviceIndex += len(services)
			doc.Service = append(doc.Service, services...)

			continue
		}

		pubKey, kt, err := fingerprint.PubKeyFromFingerprint(value)
		if err != nil {
			return nil, fmt.Errorf("peer.DIDDocument: %w", err)
		}

		vmID, ok := keyIndex[value]
		if !ok {
			vmID = didID + "#" + strings.TrimPrefix(value, "z")
			keyIndex[value] = vmID

			doc.VerificationMethod = append(doc.VerificationMethod,
				*did.NewVerificationMethod(vmID, didID, kt, pubKey))

			if ctx := keyContext(kt); !contexts[ctx] {
				contexts[ctx] = true
				doc.Context = append(doc.Context, ctx)
			}
		}

		vm := did.NewVerificationMethod(vmID, didID, kt, pubKey)
		rel := relationship(doc, p)
		*rel = append(*rel, *did.NewReferencedVerification(vm))
	}

	return doc, nil
}

func keyContext(kt kms.KeyType) string {
	switch kt {
	case kms.ED25519Type:
		return did.ContextEd25519V1
	case kms.X25519ECDHKWType:
		return did.ContextX25519V1
	default:
		return did.ContextJWSV1
	}
}

func decodeServices(didID, encoded string, startIndex int) ([]did.Service, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return nil, fmt.Errorf("decode service segment: %w", err)
	}

	var raws []map[string]interface{}

	if strings.HasPrefix(strings.TrimSpace(string(b)), "[") {
		err = json.Unmarshal(b, &raws)
	} else {
		var single map[string]interface{}

		err = json.Unmarshal(b, &single)
		raws = append(raws, single)
	}

	if err != nil {
		return nil, fmt.Errorf("unmarshal service segment: %w", err)
	}

	services := make([]did.Service, 0, len(raws))

	for i, raw := range raws {
		expanded := map[string]interface{}{}

		for k, v := range raw {
			if s, ok := v.(string); ok && k == "t" {
				v = expand(s)
			}

			expanded[expand(k)] = v
		}

		serviceType, _ := expanded["type"].(string)
		expanded["id"] = fmt.Sprintf("%s#%s-%d", didID, strings.ToLower(serviceType), startIndex+i)

		serviceBytes, err := json.Marshal(expanded)
		if err != nil {
			return nil, err
		}

		doc, err := did.ParseDocument([]byte(`{"service":[` + string(serviceBytes) + `]}`))
		if err != nil {
			return nil, fmt.Errorf("service %d: %w", startIndex+i, err)
		}

		services = append(services, doc.Service...)
	}

	return services, nil
}
