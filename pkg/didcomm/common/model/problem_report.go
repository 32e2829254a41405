/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package model

import (
	"fmt"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/message"
)

const (
	// ProblemReportType is the DIDComm V1 problem report message type.
	ProblemReportType = "https://didcomm.org/notification/1.0/problem-report"
	// ProblemReportV2Type is the DIDComm V2 problem report message type.
	ProblemReportV2Type = "https://didcomm.org/report-problem/2.0/problem-report"
)

// ProblemReport problem report definition
type ProblemReport struct {
	Description Code        `json:"description"`
	WebRedirect interface{} `json:"~web-redirect,omitempty"`
}

// Code represents a problem report code.
type Code struct {
	Code string `json:"code"`
	En   string `json:"en,omitempty"`
}

// ProblemReportV2Body represents body for ProblemReportV2.
type ProblemReportV2Body struct {
	Code        string      `json:"code,omitempty"`
	Comment     string      `json:"comment,omitempty"`
	Args        []string    `json:"args,omitempty"`
	EscalateTo  string      `json:"escalate_to,omitempty"`
	WebRedirect interface{} `json:"~web-redirect,omitempty"`
}

// ProblemReportError is a handler error that is reported to the peer as a problem report.
type ProblemReportError struct {
	Code        string
	Description string
	// Type overrides the problem report message type for protocols with their own report type.
	Type string
	Err  error
}

// NewProblemReportError creates a problem report error with code and description.
func NewProblemReportError(code, description string) *ProblemReportError {
	return &ProblemReportError{Code: code, Description: description}
}

func (e *ProblemReportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("problem report %s: %s: %s", e.Code, e.Description, e.Err)
	}

	return fmt.Sprintf("problem report %s: %s", e.Code, e.Description)
}

func (e *ProblemReportError) Unwrap() error {
	return e.Err
}

// ProblemReport builds the problem report message in the given DIDComm generation.
func (e *ProblemReportError) ProblemReport(version message.Version) (message.Message, error) {
	if version == message.DIDCommV2 {
		typ := e.Type
		if typ == "" {
			typ = ProblemReportV2Type
		}

		return message.NewV2(typ, "", nil, &ProblemReportV2Body{Code: e.Code, Comment: e.Description})
	}

	typ := e.Type
	if typ == "" {
		typ = ProblemReportType
	}

	return message.NewV1(typ, &ProblemReport{Description: Code{Code: e.Code, En: e.Description}})
}
