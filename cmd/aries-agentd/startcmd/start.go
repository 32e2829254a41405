/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/framework/aries"
	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/framework/aries/defaults"
)

const (
	// EnvPrefix prefixes the environment variables read for every flag, ARIESD_INBOUND_HOST for inbound-host.
	EnvPrefix = "ARIESD"

	// AgentHostFlagName is the flag name for the agent host command line argument.
	AgentHostFlagName = "api-host"

	// AgentHostFlagShorthand is the flag shorthand name for the agent host command line argument.
	AgentHostFlagShorthand = "a"

	// AgentHostFlagUsage is the usage text for the host command line argument.
	AgentHostFlagUsage = "Host Name:Port of the status API"

	// AgentInboundHostFlagName is the flag name for the agent inbound host command line argument.
	AgentInboundHostFlagName = "inbound-host"

	// AgentInboundHostFlagShorthand is the flag shorthand for the agent inbound host command line argument.
	AgentInboundHostFlagShorthand = "i"

	// AgentInboundHostFlagUsage is the usage text for the agent inbound host command line argument.
	AgentInboundHostFlagUsage = "HTTP Inbound Host Name:Port"

	// AgentInboundExternalFlagName is the flag name for the published http inbound endpoint.
	AgentInboundExternalFlagName = "inbound-host-external"

	// AgentInboundExternalFlagShorthand is the flag shorthand for the published http inbound endpoint.
	AgentInboundExternalFlagShorthand = "e"

	// AgentInboundExternalFlagUsage is the usage text for the published http inbound endpoint.
	AgentInboundExternalFlagUsage = "HTTP Inbound endpoint published to other agents"

	// AgentWSInboundHostFlagName is the flag name for the ws inbound host.
	AgentWSInboundHostFlagName = "ws-inbound-host"

	// AgentWSInboundHostFlagUsage is the usage text for the ws inbound host.
	AgentWSInboundHostFlagUsage = "WebSocket Inbound Host Name:Port"

	// AgentWSInboundExternalFlagName is the flag name for the published ws inbound endpoint.
	AgentWSInboundExternalFlagName = "ws-inbound-host-external"

	// AgentWSInboundExternalFlagUsage is the usage text for the published ws inbound endpoint.
	AgentWSInboundExternalFlagUsage = "WebSocket Inbound endpoint published to other agents"

	// AgentLabelFlagName is the flag name for the agent label.
	AgentLabelFlagName = "label"

	// AgentLabelFlagShorthand is the flag shorthand for the agent label.
	AgentLabelFlagShorthand = "l"

	// AgentLabelFlagUsage is the usage text for the agent label.
	AgentLabelFlagUsage = "Label presented to other agents"

	// AgentTransportsFlagName is the flag name for the transport priority.
	AgentTransportsFlagName = "transports"

	// AgentTransportsFlagShorthand is the flag shorthand for the transport priority.
	AgentTransportsFlagShorthand = "t"

	// AgentTransportsFlagUsage is the usage text for the transport priority.
	AgentTransportsFlagUsage = "Endpoint schemes in order of preference"

	// AgentLogLevelFlagName is the flag name for the log level.
	AgentLogLevelFlagName = "log-level"

	// AgentLogLevelFlagUsage is the usage text for the log level.
	AgentLogLevelFlagUsage = "Log level: CRITICAL, ERROR, WARNING, INFO or DEBUG"

	// AgentRedisURLFlagName is the flag name for the redis message queue url.
	AgentRedisURLFlagName = "redis-url"

	// AgentRedisURLFlagUsage is the usage text for the redis message queue url.
	AgentRedisURLFlagUsage = "Redis URL of the queue of messages for agents without an endpoint"

	// AgentCatchErrorsFlagName is the flag name for catching handler errors.
	AgentCatchErrorsFlagName = "catch-errors"

	// AgentCatchErrorsFlagUsage is the usage text for catching handler errors.
	AgentCatchErrorsFlagUsage = "Log handler failures instead of returning them to the transport"

	// AgentDIDMarkerFlagName is the flag name for the default DID marker.
	AgentDIDMarkerFlagName = "did-marker"

	// AgentDIDMarkerFlagUsage is the usage text for the default DID marker.
	AgentDIDMarkerFlagUsage = "Marker of the DID messages are sent from"

	// AgentWaitTimeoutFlagName is the flag name for the message wait timeout.
	AgentWaitTimeoutFlagName = "wait-timeout"

	// AgentWaitTimeoutFlagUsage is the usage text for the message wait timeout.
	AgentWaitTimeoutFlagUsage = "Timeout of waiting for a message of a thread"

	// AgentConfigFileFlagName is the flag name for the configuration file.
	AgentConfigFileFlagName = "config"

	// AgentConfigFileFlagShorthand is the flag shorthand for the configuration file.
	AgentConfigFileFlagShorthand = "c"

	// AgentConfigFileFlagUsage is the usage text for the configuration file.
	AgentConfigFileFlagUsage = "Configuration file, any format viper reads"

	// MissingHostErrorMessage is the error message shown when the user provides a blank host argument.
	MissingHostErrorMessage = "Unable to start aries agentd, host not provided"

	// MissingInboundHostErrorMessage is the error message shown when the user provides no inbound host.
	MissingInboundHostErrorMessage = "Unable to start aries agentd, inbound transport host not provided"
)

var logger = log.New("aries-framework/agentd")

type server interface {
	ListenAndServe(host string, router http.Handler) error
}

// HTTPServer represents an actual server implementation.
type HTTPServer struct{}

// ListenAndServe starts the server using the standard Go HTTP server implementation.
func (s *HTTPServer) ListenAndServe(host string, router http.Handler) error {
	return http.ListenAndServe(host, router) // nolint:gosec
}

type agentParameters struct {
	server            server
	host              string
	inboundHost       string
	inboundExternal   string
	wsInboundHost     string
	wsInboundExternal string
	label             string
	transports        []string
	logLevel          string
	redisURL          string
	catchErrors       bool
	didMarker         string
	waitTimeout       time.Duration
}

// Cmd returns the Cobra start command.
func Cmd(server server) (*cobra.Command, error) {
	v := viper.New()

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start an agent",
		Long:  `Start an Aries DIDComm agent`,

		RunE: func(cmd *cobra.Command, args []string) error {
			parameters, err := getAgentParameters(v, cmd, server)
			if err != nil {
				return err
			}

			err = startAgent(parameters)
			if err != nil {
				return fmt.Errorf("unable to start agent: %w", err)
			}

			return nil
		},
	}

	createFlags(startCmd)

	if err := v.BindPFlags(startCmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return startCmd, nil
}

func createFlags(startCmd *cobra.Command) {
	flags := startCmd.Flags()

	flags.StringP(AgentHostFlagName, AgentHostFlagShorthand, "", AgentHostFlagUsage)
	flags.StringP(AgentInboundHostFlagName, AgentInboundHostFlagShorthand, "", AgentInboundHostFlagUsage)
	flags.StringP(AgentInboundExternalFlagName, AgentInboundExternalFlagShorthand, "", AgentInboundExternalFlagUsage)
	flags.String(AgentWSInboundHostFlagName, "", AgentWSInboundHostFlagUsage)
	flags.String(AgentWSInboundExternalFlagName, "", AgentWSInboundExternalFlagUsage)
	flags.StringP(AgentLabelFlagName, AgentLabelFlagShorthand, "", AgentLabelFlagUsage)
	flags.StringSliceP(AgentTransportsFlagName, AgentTransportsFlagShorthand, nil, AgentTransportsFlagUsage)
	flags.String(AgentLogLevelFlagName, "", AgentLogLevelFlagUsage)
	flags.String(AgentRedisURLFlagName, "", AgentRedisURLFlagUsage)
	flags.Bool(AgentCatchErrorsFlagName, false, AgentCatchErrorsFlagUsage)
	flags.String(AgentDIDMarkerFlagName, "", AgentDIDMarkerFlagUsage)
	flags.Duration(AgentWaitTimeoutFlagName, 0, AgentWaitTimeoutFlagUsage)
	flags.StringP(AgentConfigFileFlagName, AgentConfigFileFlagShorthand, "", AgentConfigFileFlagUsage)
}

func getAgentParameters(v *viper.Viper, cmd *cobra.Command, server server) (*agentParameters, error) {
	if cfgFile := v.GetString(AgentConfigFileFlagName); cfgFile != "" {
		v.SetConfigFile(cfgFile)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", cfgFile, err)
		}

		logger.Infof("using config file %s", v.ConfigFileUsed())
	}

	transports := v.GetStringSlice(AgentTransportsFlagName)
	if !cmd.Flags().Changed(AgentTransportsFlagName) && len(transports) == 1 {
		// environment values are a single comma separated string
		transports = strings.Split(transports[0], ",")
	}

	return &agentParameters{
		server:            server,
		host:              v.GetString(AgentHostFlagName),
		inboundHost:       v.GetString(AgentInboundHostFlagName),
		inboundExternal:   v.GetString(AgentInboundExternalFlagName),
		wsInboundHost:     v.GetString(AgentWSInboundHostFlagName),
		wsInboundExternal: v.GetString(AgentWSInboundExternalFlagName),
		label:             v.GetString(AgentLabelFlagName),
		transports:        transports,
		logLevel:          v.GetString(AgentLogLevelFlagName),
		redisURL:          v.GetString(AgentRedisURLFlagName),
		catchErrors:       v.GetBool(AgentCatchErrorsFlagName),
		didMarker:         v.GetString(AgentDIDMarkerFlagName),
		waitTimeout:       v.GetDuration(AgentWaitTimeoutFlagName),
	}, nil
}

func frameworkOptions(parameters *agentParameters) ([]aries.Option, error) {
	if parameters.host == "" {
		return nil, errors.New(strings.ToLower(MissingHostErrorMessage))
	}

	if parameters.inboundHost == "" && parameters.wsInboundHost == "" {
		return nil, errors.New(strings.ToLower(MissingInboundHostErrorMessage))
	}

	opts := []aries.Option{
		aries.WithLabel(parameters.label),
		aries.WithCatchErrors(parameters.catchErrors),
		aries.WithDIDMarker(parameters.didMarker),
		aries.WithWaitTimeout(parameters.waitTimeout),
		aries.WithLogLevel(parameters.logLevel),
	}

	if len(parameters.transports) > 0 {
		opts = append(opts, aries.WithTransportPriority(parameters.transports...))
	}

	if parameters.inboundHost != "" {
		opts = append(opts, defaults.WithInboundHTTPAddr(parameters.inboundHost, parameters.inboundExternal))
	}

	if parameters.wsInboundHost != "" {
		opts = append(opts, defaults.WithInboundWSAddr(parameters.wsInboundHost, parameters.wsInboundExternal))
	}

	if parameters.redisURL != "" {
		opts = append(opts, defaults.WithRedisMessageQueue(parameters.redisURL))
	}

	return opts, nil
}

func startAgent(parameters *agentParameters) error {
	opts, err := frameworkOptions(parameters)
	if err != nil {
		return err
	}

	framework, err := aries.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to start aries agentd on port [%s], failed to initialize framework :  %w",
			parameters.host, err)
	}

	defer func() {
		if closeErr := framework.Close(); closeErr != nil {
			logger.Warnf("failed to close framework: %s", closeErr)
		}
	}()

	router, err := statusRouter(framework)
	if err != nil {
		return fmt.Errorf("failed to start aries agentd on port [%s], failed to get aries context : %w",
			parameters.host, err)
	}

	logger.Infof("Starting aries agentd on host [%s]", parameters.host)

	err = parameters.server.ListenAndServe(parameters.host, router)
	if err != nil {
		return fmt.Errorf("failed to start aries agentd on port [%s], cause:  %w", parameters.host, err)
	}

	return nil
}

type statusResponse struct {
	ID         string   `json:"id"`
	Label      string   `json:"label,omitempty"`
	Endpoint   string   `json:"endpoint"`
	Transports []string `json:"transports"`
}

func statusRouter(framework *aries.Aries) (*mux.Router, error) {
	ctx, err := framework.Context()
	if err != nil {
		return nil, err
	}

	status := statusResponse{
		ID:         ctx.AriesFrameworkID(),
		Label:      framework.Config().Label,
		Endpoint:   ctx.ServiceEndpoint(),
		Transports: ctx.TransportPriority(),
	}

	router := mux.NewRouter()
	router.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if err := json.NewEncoder(w).Encode(status); err != nil {
			logger.Errorf("failed to write status response: %s", err)
		}
	}).Methods(http.MethodGet)

	return router, nil
}
