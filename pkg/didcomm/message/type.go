/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package message

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// LegacyDIDSovPrefix is the message family prefix used before https://didcomm.org/.
const LegacyDIDSovPrefix = "did:sov:BzCbsNYhMrjHiqZDTUASHg;spec"

// DIDCommOrgPrefix is the message family prefix of the Aries RFC protocols.
const DIDCommOrgPrefix = "https://didcomm.org"

var typeRegex = regexp.MustCompile(`^(.+)/([^/\\]+)/(\d+)\.(\d+)/([^/\\]+)$`)

// Type is a parsed message type URI such as https://didcomm.org/connections/1.0/invitation.
type Type struct {
	// DocumentURI is the message family, e.g. https://didcomm.org
	DocumentURI     string
	ProtocolName    string
	ProtocolVersion string
	Major           int
	Minor           int
	MessageName     string
	// ProtocolURI is the type URI without the message name.
	ProtocolURI    string
	MessageTypeURI string
	// Strict requires an exact minor version when the type is used as a handler descriptor.
	Strict bool
}

// ParseType parses a message type URI.
func ParseType(uri string) (Type, error) {
	m := typeRegex.FindStringSubmatch(uri)
	if m == nil {
		return Type{}, fmt.Errorf("invalid message type uri '%s'", uri)
	}

	major, err := strconv.Atoi(m[3])
	if err != nil {
		return Type{}, fmt.Errorf("invalid major version in '%s': %w", uri, err)
	}

	minor, err := strconv.Atoi(m[4])
	if err != nil {
		return Type{}, fmt.Errorf("invalid minor version in '%s': %w", uri, err)
	}

	protocolVersion := m[3] + "." + m[4]
	protocolURI := m[1] + "/" + m[2] + "/" + protocolVersion

	return Type{
		DocumentURI:     m[1],
		ProtocolName:    m[2],
		ProtocolVersion: protocolVersion,
		Major:           major,
		Minor:           minor,
		MessageName:     m[5],
		ProtocolURI:     protocolURI,
		MessageTypeURI:  protocolURI + "/" + m[5],
	}, nil
}

// MustParseType is like ParseType but panics for invalid URIs. It is meant for handler descriptors.
func MustParseType(uri string) Type {
	t, err := ParseType(uri)
	if err != nil {
		panic(err)
	}

	return t
}

// StrictType returns a descriptor that only matches the exact minor version of uri.
func StrictType(uri string) Type {
	t := MustParseType(uri)
	t.Strict = true

	return t
}

// Supports reports whether a handler descriptor t accepts a message of type other. Family, protocol,
// major version and message name must be equal; the minor version may differ unless t is strict.
func (t Type) Supports(other Type) bool {
	if t.DocumentURI != other.DocumentURI || t.ProtocolName != other.ProtocolName ||
		t.Major != other.Major || t.MessageName != other.MessageName {
		return false
	}

	return !t.Strict || t.Minor == other.Minor
}

// String returns the message type URI.
func (t Type) String() string {
	return t.MessageTypeURI
}

// ReplaceLegacyDIDSovPrefix rewrites a did:sov family prefix to https://didcomm.org.
func ReplaceLegacyDIDSovPrefix(uri string) string {
	if strings.HasPrefix(uri, LegacyDIDSovPrefix) {
		return DIDCommOrgPrefix + strings.TrimPrefix(uri, LegacyDIDSovPrefix)
	}

	return uri
}
