/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

type mockServer struct {
	host   string
	router http.Handler
	err    error
}

func (s *mockServer) ListenAndServe(host string, router http.Handler) error {
	s.host = host
	s.router = router

	return s.err
}

func (s *mockServer) status(t *testing.T) statusResponse {
	t.Helper()

	require.NotNil(t, s.router)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))

	return status
}

func TestStartCmdContents(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	require.Equal(t, "start", startCmd.Use)
	require.Equal(t, "Start an agent", startCmd.Short)
	require.Equal(t, "Start an Aries DIDComm agent", startCmd.Long)

	checkFlagPropertiesCorrect(t, startCmd, AgentHostFlagName, AgentHostFlagShorthand, AgentHostFlagUsage)
	checkFlagPropertiesCorrect(t, startCmd, AgentInboundHostFlagName,
		AgentInboundHostFlagShorthand, AgentInboundHostFlagUsage)
	checkFlagPropertiesCorrect(t, startCmd, AgentInboundExternalFlagName,
		AgentInboundExternalFlagShorthand, AgentInboundExternalFlagUsage)
	checkFlagPropertiesCorrect(t, startCmd, AgentLabelFlagName, AgentLabelFlagShorthand, AgentLabelFlagUsage)
	checkFlagPropertiesCorrect(t, startCmd, AgentConfigFileFlagName,
		AgentConfigFileFlagShorthand, AgentConfigFileFlagUsage)
	checkFlagPropertiesCorrect(t, startCmd, AgentRedisURLFlagName, "", AgentRedisURLFlagUsage)
	checkFlagPropertiesCorrect(t, startCmd, AgentWSInboundHostFlagName, "", AgentWSInboundHostFlagUsage)
}

func checkFlagPropertiesCorrect(t *testing.T, cmd *cobra.Command, flagName, flagShorthand, flagUsage string) {
	flag := cmd.Flag(flagName)

	require.NotNil(t, flag)
	require.Equal(t, flagName, flag.Name)
	require.Equal(t, flagShorthand, flag.Shorthand)
	require.Equal(t, flagUsage, flag.Usage)
	require.Equal(t, "", flag.Value.String())
}

func TestStartCmdWithBlankHostArg(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	startCmd.SetArgs([]string{"--" + AgentInboundHostFlagName, "127.0.0.1:0"})

	err = startCmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), strings.ToLower(MissingHostErrorMessage))
}

func TestStartCmdWithoutInboundHost(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	startCmd.SetArgs([]string{"--" + AgentHostFlagName, "localhost:8080"})

	err = startCmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), strings.ToLower(MissingInboundHostErrorMessage))
}

func TestStartCmdValidArgs(t *testing.T) {
	server := &mockServer{}

	startCmd, err := Cmd(server)
	require.NoError(t, err)

	startCmd.SetArgs([]string{
		"--" + AgentHostFlagName, "localhost:8080",
		"--" + AgentInboundHostFlagName, "127.0.0.1:0",
		"--" + AgentInboundExternalFlagName, "http://alice.example",
		"--" + AgentLabelFlagName, "alice",
		"--" + AgentTransportsFlagName, "http,ws",
		"--" + AgentCatchErrorsFlagName,
		"--" + AgentLogLevelFlagName, "info",
	})

	require.NoError(t, startCmd.Execute())
	require.Equal(t, "localhost:8080", server.host)

	status := server.status(t)
	require.NotEmpty(t, status.ID)
	require.Equal(t, "alice", status.Label)
	require.Equal(t, "http://alice.example", status.Endpoint)
	require.Equal(t, []string{"http", "ws"}, status.Transports)
}

func TestStartCmdFromEnv(t *testing.T) {
	t.Setenv("ARIESD_API_HOST", "localhost:8081")
	t.Setenv("ARIESD_WS_INBOUND_HOST", "127.0.0.1:0")
	t.Setenv("ARIESD_WS_INBOUND_HOST_EXTERNAL", "ws://bob.example")
	t.Setenv("ARIESD_LABEL", "bob")
	t.Setenv("ARIESD_TRANSPORTS", "ws,http")

	server := &mockServer{}

	startCmd, err := Cmd(server)
	require.NoError(t, err)

	startCmd.SetArgs([]string{})

	require.NoError(t, startCmd.Execute())
	require.Equal(t, "localhost:8081", server.host)

	status := server.status(t)
	require.Equal(t, "bob", status.Label)
	require.Equal(t, "ws://bob.example", status.Endpoint)
	require.Equal(t, []string{"ws", "http"}, status.Transports)
}

func TestStartCmdFromConfigFile(t *testing.T) {
	t.Run("config file values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "agentd.yaml")
		require.NoError(t, os.WriteFile(path, []byte(
			"api-host: localhost:8082\n"+
				"inbound-host: 127.0.0.1:0\n"+
				"inbound-host-external: http://carol.example\n"+
				"label: carol\n"+
				"transports:\n  - https\n  - http\n"), 0o600))

		server := &mockServer{}

		startCmd, err := Cmd(server)
		require.NoError(t, err)

		startCmd.SetArgs([]string{"--" + AgentConfigFileFlagName, path, "--" + AgentLabelFlagName, "dave"})

		require.NoError(t, startCmd.Execute())
		require.Equal(t, "localhost:8082", server.host)

		status := server.status(t)
		require.Equal(t, "dave", status.Label)
		require.Equal(t, "http://carol.example", status.Endpoint)
		require.Equal(t, []string{"https", "http"}, status.Transports)
	})

	t.Run("missing config file", func(t *testing.T) {
		startCmd, err := Cmd(&mockServer{})
		require.NoError(t, err)

		startCmd.SetArgs([]string{"--" + AgentConfigFileFlagName, filepath.Join(t.TempDir(), "missing.yaml")})

		err = startCmd.Execute()
		require.Error(t, err)
		require.Contains(t, err.Error(), "read config file")
	})
}

func TestStartCmdFailures(t *testing.T) {
	t.Run("invalid log level", func(t *testing.T) {
		startCmd, err := Cmd(&mockServer{})
		require.NoError(t, err)

		startCmd.SetArgs([]string{
			"--" + AgentHostFlagName, "localhost:8080",
			"--" + AgentInboundHostFlagName, "127.0.0.1:0",
			"--" + AgentLogLevelFlagName, "loud",
		})

		err = startCmd.Execute()
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to initialize framework")
	})

	t.Run("invalid redis url", func(t *testing.T) {
		startCmd, err := Cmd(&mockServer{})
		require.NoError(t, err)

		startCmd.SetArgs([]string{
			"--" + AgentHostFlagName, "localhost:8080",
			"--" + AgentInboundHostFlagName, "127.0.0.1:0",
			"--" + AgentRedisURLFlagName, "mysql://localhost",
		})

		err = startCmd.Execute()
		require.Error(t, err)
		require.Contains(t, err.Error(), "redis message queue initialization failed")
	})

	t.Run("server error", func(t *testing.T) {
		startCmd, err := Cmd(&mockServer{err: errors.New("address in use")})
		require.NoError(t, err)

		startCmd.SetArgs([]string{
			"--" + AgentHostFlagName, "localhost:8080",
			"--" + AgentInboundHostFlagName, "127.0.0.1:0",
		})

		err = startCmd.Execute()
		require.Error(t, err)
		require.Contains(t, err.Error(), "address in use")
	})
}
