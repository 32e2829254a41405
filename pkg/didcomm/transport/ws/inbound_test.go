/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ws

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/ArtemPivovarov/aries-framework-javascript/pkg/didcomm/transport"
)

func TestInbound(t *testing.T) {
	_, err := NewInbound("", "")
	require.Error(t, err)

	inbound, err := NewInbound("127.0.0.1:0", "")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:0", inbound.Endpoint())

	inbound, err = NewInbound("127.0.0.1:0", "wss://agent.example.com")
	require.NoError(t, err)
	require.Equal(t, "wss://agent.example.com", inbound.Endpoint())

	require.Error(t, inbound.Start(&mockProvider{noHandle: true}))

	require.NoError(t, inbound.Start(newMockProvider(nil)))
	require.NoError(t, inbound.Stop())
}

func TestInboundHandler(t *testing.T) {
	_, err := NewInboundHandler(nil)
	require.Error(t, err)

	prov := newMockProvider(func(ctx context.Context, packed []byte, s transport.Session) error {
		if string(packed) == `{"fail":true}` {
			return errors.New("processing failed")
		}

		s.Bind("conn-1", nil, nil)

		return s.Send(ctx, append([]byte("reply:"), packed...))
	})

	url := startServer(t, prov)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, _, err := websocket.Dial(ctx, url, nil) //nolint:bodyclose
	require.NoError(t, err)

	t.Run("reply over the session", func(t *testing.T) {
		require.NoError(t, client.Write(ctx, websocket.MessageText, []byte(`{"id":"1"}`)))

		r := prov.next(t)
		require.Equal(t, `{"id":"1"}`, string(r.packed))
		require.Equal(t, "ws", r.session.Type())
		require.Equal(t, "conn-1", r.session.ConnectionID())

		_, reply, err := client.Read(ctx)
		require.NoError(t, err)
		require.Equal(t, `reply:{"id":"1"}`, string(reply))
	})

	t.Run("quoted base64 frame", func(t *testing.T) {
		frame := fmt.Sprintf("%q", base64.URLEncoding.EncodeToString([]byte(`{"id":"2"}`)))
		require.NoError(t, client.Write(ctx, websocket.MessageText, []byte(frame)))

		require.Equal(t, `{"id":"2"}`, string(prov.next(t).packed))

		_, _, err := client.Read(ctx)
		require.NoError(t, err)
	})

	t.Run("failures keep the socket open", func(t *testing.T) {
		require.NoError(t, client.Write(ctx, websocket.MessageText, []byte(`"!!!"`)))
		require.NoError(t, client.Write(ctx, websocket.MessageText, []byte(`{"fail":true}`)))
		require.Equal(t, `{"fail":true}`, string(prov.next(t).packed))

		require.NoError(t, client.Write(ctx, websocket.MessageText, []byte(`{"id":"3"}`)))
		require.Equal(t, `{"id":"3"}`, string(prov.next(t).packed))

		_, reply, err := client.Read(ctx)
		require.NoError(t, err)
		require.Equal(t, `reply:{"id":"3"}`, string(reply))
	})

	require.NoError(t, client.Close(websocket.StatusNormalClosure, "done"))
}

func TestInboundSession_Closed(t *testing.T) {
	prov := newMockProvider(nil)
	url := startServer(t, prov)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, _, err := websocket.Dial(ctx, url, nil) //nolint:bodyclose
	require.NoError(t, err)

	require.NoError(t, client.Write(ctx, websocket.MessageText, []byte(`{"id":"1"}`)))
	s := prov.next(t).session
	prov.sessions.Save(s)
	require.Equal(t, 1, prov.sessions.Len())

	require.NoError(t, client.Close(websocket.StatusNormalClosure, "done"))

	require.Eventually(t, func() bool { return prov.sessions.Len() == 0 }, 5*time.Second, 10*time.Millisecond)
	require.ErrorIs(t, s.Send(ctx, []byte("late")), transport.ErrSessionClosed)
}
