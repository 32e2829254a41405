/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/go-jose/go-jose/v3"
	"github.com/mitchellh/mapstructure"
	"github.com/multiformats/go-multibase"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/internal/cryptoutil"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/kms"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/vdr/fingerprint"
)

const (
	// ContextV1 of the DID document.
	ContextV1 = "https://www.w3.org/ns/did/v1"
	// ContextEd25519V1 is the security context for Ed25519 2018 keys.
	ContextEd25519V1 = "https://w3id.org/security/suites/ed25519-2018/v1"
	// ContextX25519V1 is the security context for X25519 2019 keys.
	ContextX25519V1 = "https://w3id.org/security/suites/x25519-2019/v1"
	// ContextJWSV1 is the security context for JsonWebKey2020 keys.
	ContextJWSV1 = "https://w3id.org/security/suites/jws-2020/v1"
)

// Service types.
const (
	// IndyAgentServiceType is a DIDComm V1 service whose recipient keys are raw base58 verkeys.
	IndyAgentServiceType = "IndyAgent"
	// DIDCommServiceType is a DIDComm V1 service whose recipient keys are key references.
	DIDCommServiceType = "did-communication"
	// DIDCommV2ServiceType is a DIDComm V2 service.
	DIDCommV2ServiceType = "DIDCommMessaging"
)

// Verification method types.
const (
	Ed25519VerificationKey2018 = "Ed25519VerificationKey2018"
	Ed25519VerificationKey2020 = "Ed25519VerificationKey2020"
	X25519KeyAgreementKey2019  = "X25519KeyAgreementKey2019"
	X25519KeyAgreementKey2020  = "X25519KeyAgreementKey2020"
	JSONWebKey2020             = "JsonWebKey2020"
	Multikey                   = "Multikey"
)

// QueueServiceEndpoint marks a service whose messages are stored for later pickup instead of sent.
const QueueServiceEndpoint = "didcomm:transport/queue"

// ErrKeyNotFound is returned when a key reference cannot be dereferenced in a document.
var ErrKeyNotFound = errors.New("key not found in DID document")

var didRegex = regexp.MustCompile(`^did:[a-z0-9]+:(:+|[:a-zA-Z0-9-_\.%]+)*[a-zA-Z0-9-_\.%]+$`)

// DID is parsed according to the generic syntax: https://w3c.github.io/did-core/#generic-did-syntax
type DID struct {
	Scheme           string // Scheme is always "did"
	Method           string // Method is the specific DID methods
	MethodSpecificID string // MethodSpecificID is the unique ID computed or assigned by the DID method
}

// String returns a string representation of this DID
func (d *DID) String() string {
	return fmt.Sprintf("%s:%s:%s", d.Scheme, d.Method, d.MethodSpecificID)
}

// Parse parses the string according to the generic DID syntax.
// See https://w3c.github.io/did-core/#generic-did-syntax.
func Parse(did string) (*DID, error) {
	if !didRegex.MatchString(did) {
		return nil, fmt.Errorf(
			"invalid did: %s. Make sure it conforms to the generic DID syntax: https://w3c.github.io/did-core/#generic-did-syntax", //nolint:lll
			did)
	}

	parts := strings.SplitN(did, ":", 3)

	return &DID{
		Scheme:           "did",
		Method:           parts[1],
		MethodSpecificID: parts[2],
	}, nil
}

// ExtractDIDFromKID returns the DID part of a key id (everything before the fragment).
func ExtractDIDFromKID(kid string) string {
	did, _, _ := strings.Cut(kid, "#")

	return did
}

// Doc DID Document definition
type Doc struct {
	Context              []string
	ID                   string
	AlsoKnownAs          []string
	Controller           []string
	VerificationMethod   []VerificationMethod
	Authentication       []Verification
	AssertionMethod      []Verification
	KeyAgreement         []Verification
	CapabilityInvocation []Verification
	CapabilityDelegation []Verification
	Service              []Service
}

// VerificationMethod DID doc verification method. Value holds the raw public key bytes,
// P-256 keys are kept in compressed form.
type VerificationMethod struct {
	ID         string
	Type       string
	Controller string
	Value      []byte
}

// Verification is an entry of a verification relationship (authentication, keyAgreement...).
// A reference keeps only the method ID until it is dereferenced against the document.
type Verification struct {
	VerificationMethod VerificationMethod
	Embedded           bool
}

// Service DID doc service
type Service struct {
	ID              string
	Type            string
	Priority        uint
	RecipientKeys   []string
	RoutingKeys     []string
	ServiceEndpoint string
	Accept          []string
}

// NewVerificationMethod creates a verification method of the conventional type for kt.
func NewVerificationMethod(id, controller string, kt kms.KeyType, value []byte) *VerificationMethod {
	vmType := JSONWebKey2020

	switch kt {
	case kms.ED25519Type:
		vmType = Ed25519VerificationKey2018
	case kms.X25519ECDHKWType:
		vmType = X25519KeyAgreementKey2019
	}

	return &VerificationMethod{ID: id, Type: vmType, Controller: controller, Value: value}
}

// NewReferencedVerification wraps vm as a relationship entry referencing it by ID.
func NewReferencedVerification(vm *VerificationMethod) *Verification {
	return &Verification{VerificationMethod: *vm}
}

// NewEmbeddedVerification wraps vm as an embedded relationship entry.
func NewEmbeddedVerification(vm *VerificationMethod) *Verification {
	return &Verification{VerificationMethod: *vm, Embedded: true}
}

// KeyType returns the kms key type of the method, or an empty string when the type is not known.
func (vm *VerificationMethod) KeyType() kms.KeyType {
	switch vm.Type {
	case Ed25519VerificationKey2018, Ed25519VerificationKey2020:
		return kms.ED25519Type
	case X25519KeyAgreementKey2019, X25519KeyAgreementKey2020:
		return kms.X25519ECDHKWType
	case JSONWebKey2020, Multikey:
		switch len(vm.Value) {
		case ed25519.PublicKeySize:
			return kms.ED25519Type
		case 33, 65: // compressed or uncompressed P-256 point
			return kms.NISTP256ECDHKWType
		}
	}

	return ""
}

// PublicKey returns the method's key as a crypto.PublicKey.
func (vm *VerificationMethod) PublicKey() (interface{}, error) {
	kt := vm.KeyType()
	if kt == "" {
		return nil, fmt.Errorf("verification method %s: unsupported type %s", vm.ID, vm.Type)
	}

	return cryptoutil.PublicKey(kt, vm.Value)
}

// ProtocolScheme returns the scheme of the service endpoint (e.g. "http", "ws", "didcomm").
func (s *Service) ProtocolScheme() string {
	scheme, _, found := strings.Cut(s.ServiceEndpoint, ":")
	if !found {
		return ""
	}

	return scheme
}

type rawDoc struct {
	Context              stringOrArray     `json:"@context,omitempty"`
	ID                   string            `json:"id,omitempty"`
	AlsoKnownAs          []string          `json:"alsoKnownAs,omitempty"`
	Controller           stringOrArray     `json:"controller,omitempty"`
	VerificationMethod   []json.RawMessage `json:"verificationMethod,omitempty"`
	PublicKey            []json.RawMessage `json:"publicKey,omitempty"`
	Authentication       []json.RawMessage `json:"authentication,omitempty"`
	AssertionMethod      []json.RawMessage `json:"assertionMethod,omitempty"`
	KeyAgreement         []json.RawMessage `json:"keyAgreement,omitempty"`
	CapabilityInvocation []json.RawMessage `json:"capabilityInvocation,omitempty"`
	CapabilityDelegation []json.RawMessage `json:"capabilityDelegation,omitempty"`
	Service              []rawService      `json:"service,omitempty"`
}

type rawVerificationMethod struct {
	ID                 string           `json:"id"`
	Type               string           `json:"type"`
	Controller         string           `json:"controller,omitempty"`
	PublicKeyBase58    string           `json:"publicKeyBase58,omitempty"`
	PublicKeyMultibase string           `json:"publicKeyMultibase,omitempty"`
	PublicKeyJwk       *jose.JSONWebKey `json:"publicKeyJwk,omitempty"`
}

type rawService struct {
	ID              string      `json:"id"`
	Type            string      `json:"type"`
	Priority        uint        `json:"priority,omitempty"`
	RecipientKeys   []string    `json:"recipientKeys,omitempty"`
	RoutingKeys     []string    `json:"routingKeys,omitempty"`
	ServiceEndpoint interface{} `json:"serviceEndpoint"`
	Accept          []string    `json:"accept,omitempty"`
}

// serviceEndpointObject is the DIDComm V2 map form of serviceEndpoint.
type serviceEndpointObject struct {
	URI         string   `mapstructure:"uri"`
	Accept      []string `mapstructure:"accept"`
	RoutingKeys []string `mapstructure:"routingKeys"`
}

type stringOrArray []string

func (s *stringOrArray) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = []string{single}

		return nil
	}

	var many []interface{}
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or array: %w", err)
	}

	// JSON-LD contexts may embed objects, only the string entries are kept.
	*s = nil

	for _, e := range many {
		if str, ok := e.(string); ok {
			*s = append(*s, str)
		}
	}

	return nil
}

// ParseDocument creates an instance of DIDDocument by reading a JSON document from bytes
func ParseDocument(data []byte) (*Doc, error) {
	doc := &Doc{}

	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse DID document: %w", err)
	}

	return doc, nil
}

// JSONBytes converts document to json bytes
func (doc *Doc) JSONBytes() ([]byte, error) {
	byteDoc, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("JSON marshalling of document failed: %w", err)
	}

	return byteDoc, nil
}

// UnmarshalJSON unmarshals a DID document. The legacy "publicKey" member is read as verification methods.
func (doc *Doc) UnmarshalJSON(data []byte) error {
	raw := &rawDoc{}

	if err := json.Unmarshal(data, raw); err != nil {
		return fmt.Errorf("JSON unmarshalling of did doc bytes failed: %w", err)
	}

	vms, err := populateVerificationMethods(append(raw.VerificationMethod, raw.PublicKey...))
	if err != nil {
		return err
	}

	relationships := []struct {
		raw    []json.RawMessage
		target *[]Verification
	}{
		{raw.Authentication, &doc.Authentication},
		{raw.AssertionMethod, &doc.AssertionMethod},
		{raw.KeyAgreement, &doc.KeyAgreement},
		{raw.CapabilityInvocation, &doc.CapabilityInvocation},
		{raw.CapabilityDelegation, &doc.CapabilityDelegation},
	}

	for _, r := range relationships {
		*r.target, err = populateVerifications(r.raw, vms)
		if err != nil {
			return err
		}
	}

	services, err := populateServices(raw.Service)
	if err != nil {
		return err
	}

	doc.Context = raw.Context
	doc.ID = raw.ID
	doc.AlsoKnownAs = raw.AlsoKnownAs
	doc.Controller = raw.Controller
	doc.VerificationMethod = vms
	doc.Service = services

	return nil
}

// MarshalJSON marshals the document in its W3C JSON representation.
func (doc Doc) MarshalJSON() ([]byte, error) {
	raw := &rawDoc{
		Context:     doc.Context,
		ID:          doc.ID,
		AlsoKnownAs: doc.AlsoKnownAs,
		Controller:  doc.Controller,
	}

	var err error

	for i := range doc.VerificationMethod {
		var b []byte

		b, err = json.Marshal(&doc.VerificationMethod[i])
		if err != nil {
			return nil, err
		}

		raw.VerificationMethod = append(raw.VerificationMethod, b)
	}

	relationships := []struct {
		src    []Verification
		target *[]json.RawMessage
	}{
		{doc.Authentication, &raw.Authentication},
		{doc.AssertionMethod, &raw.AssertionMethod},
		{doc.KeyAgreement, &raw.KeyAgreement},
		{doc.CapabilityInvocation, &raw.CapabilityInvocation},
		{doc.CapabilityDelegation, &raw.CapabilityDelegation},
	}

	for _, r := range relationships {
		*r.target, err = populateRawVerifications(r.src)
		if err != nil {
			return nil, err
		}
	}

	for _, s := range doc.Service {
		raw.Service = append(raw.Service, rawService{
			ID:              s.ID,
			Type:            s.Type,
			Priority:        s.Priority,
			RecipientKeys:   s.RecipientKeys,
			RoutingKeys:     s.RoutingKeys,
			ServiceEndpoint: s.ServiceEndpoint,
			Accept:          s.Accept,
		})
	}

	return json.Marshal(raw)
}

// MarshalJSON marshals the verification method with the key encoding conventional for its type.
func (vm VerificationMethod) MarshalJSON() ([]byte, error) {
	raw := &rawVerificationMethod{ID: vm.ID, Type: vm.Type, Controller: vm.Controller}

	switch vm.Type {
	case JSONWebKey2020:
		pub, err := vm.PublicKey()
		if err != nil {
			return nil, err
		}

		raw.PublicKeyJwk = &jose.JSONWebKey{Key: pub}
	case Ed25519VerificationKey2020, X25519KeyAgreementKey2020, Multikey:
		fp, err := fingerprint.KeyTypeFingerprint(vm.KeyType(), vm.Value)
		if err != nil {
			return nil, fmt.Errorf("verification method %s: %w", vm.ID, err)
		}

		raw.PublicKeyMultibase = fp
	default:
		raw.PublicKeyBase58 = base58.Encode(vm.Value)
	}

	return json.Marshal(raw)
}

// UnmarshalJSON unmarshals a verification method from any of the base58, multibase or JWK encodings.
func (vm *VerificationMethod) UnmarshalJSON(data []byte) error {
	raw := &rawVerificationMethod{}

	if err := json.Unmarshal(data, raw); err != nil {
		return fmt.Errorf("unmarshal verification method: %w", err)
	}

	value, err := decodeKeyValue(raw)
	if err != nil {
		return fmt.Errorf("verification method %s: %w", raw.ID, err)
	}

	*vm = VerificationMethod{ID: raw.ID, Type: raw.Type, Controller: raw.Controller, Value: value}

	return nil
}

func decodeKeyValue(raw *rawVerificationMethod) ([]byte, error) {
	switch {
	case raw.PublicKeyBase58 != "":
		return base58.Decode(raw.PublicKeyBase58), nil
	case raw.PublicKeyMultibase != "":
		if value, _, err := fingerprint.PubKeyFromFingerprint(raw.PublicKeyMultibase); err == nil {
			return value, nil
		}

		_, value, err := multibase.Decode(raw.PublicKeyMultibase)
		if err != nil {
			return nil, fmt.Errorf("decode publicKeyMultibase: %w", err)
		}

		return value, nil
	case raw.PublicKeyJwk != nil:
		switch key := raw.PublicKeyJwk.Key.(type) {
		case ed25519.PublicKey:
			return key, nil
		case *ecdsa.PublicKey:
			if key.Curve != elliptic.P256() {
				return nil, fmt.Errorf("unsupported JWK curve %s", key.Curve.Params().Name)
			}

			return elliptic.MarshalCompressed(key.Curve, key.X, key.Y), nil
		default:
			return nil, fmt.Errorf("unsupported JWK key type %T", key)
		}
	default:
		return nil, errors.New("public key value is missing")
	}
}

func populateVerificationMethods(raws []json.RawMessage) ([]VerificationMethod, error) {
	vms := make([]VerificationMethod, 0, len(raws))

	for _, r := range raws {
		var vm VerificationMethod

		if err := json.Unmarshal(r, &vm); err != nil {
			return nil, err
		}

		vms = append(vms, vm)
	}

	return vms, nil
}

func populateVerifications(raws []json.RawMessage, vms []VerificationMethod) ([]Verification, error) {
	var verifications []Verification

	for _, r := range raws {
		var keyID string

		if err := json.Unmarshal(r, &keyID); err == nil {
			vm := VerificationMethod{ID: keyID}

			if found := findVerificationMethod(vms, keyID); found != nil {
				vm = *found
			}

			verifications = append(verifications, Verification{VerificationMethod: vm})

			continue
		}

		var vm VerificationMethod

		if err := json.Unmarshal(r, &vm); err != nil {
			return nil, err
		}

		verifications = append(verifications, Verification{VerificationMethod: vm, Embedded: true})
	}

	return verifications, nil
}

func populateRawVerifications(verifications []Verification) ([]json.RawMessage, error) {
	var raws []json.RawMessage

	for i := range verifications {
		v := &verifications[i]

		var (
			b   []byte
			err error
		)

		if v.Embedded {
			b, err = json.Marshal(&v.VerificationMethod)
		} else {
			b, err = json.Marshal(v.VerificationMethod.ID)
		}

		if err != nil {
			return nil, err
		}

		raws = append(raws, b)
	}

	return raws, nil
}

func populateServices(raws []rawService) ([]Service, error) {
	services := make([]Service, 0, len(raws))

	for i := range raws {
		r := &raws[i]

		service := Service{
			ID:            r.ID,
			Type:          r.Type,
			Priority:      r.Priority,
			RecipientKeys: r.RecipientKeys,
			RoutingKeys:   r.RoutingKeys,
			Accept:        r.Accept,
		}

		switch endpoint := r.ServiceEndpoint.(type) {
		case string:
			service.ServiceEndpoint = endpoint
		case map[string]interface{}:
			obj := &serviceEndpointObject{}

			if err := mapstructure.Decode(endpoint, obj); err != nil {
				return nil, fmt.Errorf("service %s: decode serviceEndpoint: %w", r.ID, err)
			}

			service.ServiceEndpoint = obj.URI

			if len(service.Accept) == 0 {
				service.Accept = obj.Accept
			}

			if len(service.RoutingKeys) == 0 {
				service.RoutingKeys = obj.RoutingKeys
			}
		case nil:
		default:
			return nil, fmt.Errorf("service %s: unsupported serviceEndpoint type %T", r.ID, endpoint)
		}

		services = append(services, service)
	}

	return services, nil
}

// DocOption provides options to build DID Doc.
type DocOption func(opts *Doc)

// WithVerificationMethod DID doc VerificationMethod.
func WithVerificationMethod(vms ...VerificationMethod) DocOption {
	return func(opts *Doc) {
		opts.VerificationMethod = append(opts.VerificationMethod, vms...)
	}
}

// WithAuthentication sets the verification methods for authentication: https://w3c.github.io/did-core/#authentication.
func WithAuthentication(auth ...Verification) DocOption {
	return func(opts *Doc) {
		opts.Authentication = append(opts.Authentication, auth...)
	}
}

// WithKeyAgreement sets the key agreement methods.
func WithKeyAgreement(ka ...Verification) DocOption {
	return func(opts *Doc) {
		opts.KeyAgreement = append(opts.KeyAgreement, ka...)
	}
}

// WithService DID doc services.
func WithService(svc ...Service) DocOption {
	return func(opts *Doc) {
		opts.Service = append(opts.Service, svc...)
	}
}

// BuildDoc creates the DID Doc from options.
func BuildDoc(opts ...DocOption) *Doc {
	doc := &Doc{Context: []string{ContextV1}}

	for _, opt := range opts {
		opt(doc)
	}

	return doc
}
