/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/message"
)

func TestProblemReportError(t *testing.T) {
	cause := errors.New("bad state")
	err := &ProblemReportError{Code: "request_not_accepted", Description: "no", Err: cause}
	require.ErrorIs(t, err, cause)
	require.Equal(t, "problem report request_not_accepted: no: bad state", err.Error())
	require.Equal(t, "problem report c: d", NewProblemReportError("c", "d").Error())

	t.Run("V1", func(t *testing.T) {
		msg, e := err.ProblemReport(message.DIDCommV1)
		require.NoError(t, e)
		require.Equal(t, ProblemReportType, msg.Type())

		report := &ProblemReport{}
		require.NoError(t, msg.(*message.V1).DecodeBody(report))
		require.Equal(t, "request_not_accepted", report.Description.Code)
		require.Equal(t, "no", report.Description.En)
	})

	t.Run("V2", func(t *testing.T) {
		msg, e := err.ProblemReport(message.DIDCommV2)
		require.NoError(t, e)
		require.Equal(t, ProblemReportV2Type, msg.Type())

		body := &ProblemReportV2Body{}
		require.NoError(t, msg.(*message.V2).DecodeBody(body))
		require.Equal(t, "request_not_accepted", body.Code)
	})

	t.Run("custom type", func(t *testing.T) {
		custom := &ProblemReportError{Code: "c", Type: "https://didcomm.org/connections/1.0/problem_report"}

		msg, e := custom.ProblemReport(message.DIDCommV1)
		require.NoError(t, e)
		require.Equal(t, "https://didcomm.org/connections/1.0/problem_report", msg.Type())
	})
}
