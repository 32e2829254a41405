/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package defaults

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/framework/aries"
)

func TestWithInboundHTTPAddr(t *testing.T) {
	t.Run("test inbound with http addr - success", func(t *testing.T) {
		a, err := aries.New(WithInboundHTTPAddr("127.0.0.1:0", "http://agent.example"))
		require.NoError(t, err)

		ctx, err := a.Context()
		require.NoError(t, err)
		require.Equal(t, "http://agent.example", ctx.ServiceEndpoint())

		require.NoError(t, a.Close())
	})

	t.Run("test inbound with http addr - empty address", func(t *testing.T) {
		_, err := aries.New(WithInboundHTTPAddr("", ""))
		require.Error(t, err)
		require.Contains(t, err.Error(), "http inbound transport initialization failed")
	})
}

func TestWithInboundWSAddr(t *testing.T) {
	t.Run("test inbound with ws addr - success", func(t *testing.T) {
		a, err := aries.New(WithInboundWSAddr("127.0.0.1:0", "ws://agent.example"))
		require.NoError(t, err)
		require.NoError(t, a.Close())
	})

	t.Run("test inbound with ws addr - empty address", func(t *testing.T) {
		_, err := aries.New(WithInboundWSAddr("", ""))
		require.Error(t, err)
		require.Contains(t, err.Error(), "ws inbound transport initialization failed")
	})
}

func TestWithRedisMessageQueue(t *testing.T) {
	t.Run("valid url", func(t *testing.T) {
		a, err := aries.New(WithRedisMessageQueue("redis://localhost:6379/0"))
		require.NoError(t, err)

		ctx, err := a.Context()
		require.NoError(t, err)
		require.NotNil(t, ctx.MessageRepository())

		require.NoError(t, a.Close())
	})

	t.Run("invalid url", func(t *testing.T) {
		_, err := aries.New(WithRedisMessageQueue("mysql://localhost"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "redis message queue initialization failed")
	})
}
