/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

// Resolution metadata error codes.
const (
	NotFound         = "notFound"
	InvalidDID       = "invalidDid"
	MethodNotSupport = "methodNotSupported"
)

// DocResolution is the result of resolving a DID.
type DocResolution struct {
	DIDDocument        *Doc
	ResolutionMetadata ResolutionMetadata
}

// ResolutionMetadata carries the resolver error code and message when resolution fails.
type ResolutionMetadata struct {
	Error   string
	Message string
}
