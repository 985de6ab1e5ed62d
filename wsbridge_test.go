// SPDX-License-Identifier: MIT

package wsbridge_test

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"testing"
	stdlibtime "time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverline/wsbridge"
	"github.com/riverline/wsbridge/fixture"
)

const (
	connCount    = 20
	msgsPerConn  = 10
	testDeadline = 30 * stdlibtime.Second
	serverWSURL  = "ws://localhost:9543/"
	serverAddr   = "localhost:9543"
)

//nolint:funlen // A single test owns the listening port for its whole lifetime.
func TestLiveServerEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), testDeadline)
	defer cancel()
	echoFunc := func(channel wsbridge.Channel, msg *wsbridge.Message) error {
		reply := wsbridge.NewTextMessage("server reply:" + msg.String())
		for {
			err := channel.Send(reply)
			if errors.Is(err, wsbridge.ErrNotReady) {
				stdlibtime.Sleep(stdlibtime.Millisecond)

				continue
			}
			if err != nil {
				return err
			}

			return channel.Flush()
		}
	}
	service := fixture.NewTestServer(ctx, cancel, echoFunc)
	waitForServer(t, ctx)

	verifyFallbackRouting(t)
	verifyHandshakeRejection(t)

	wg := new(sync.WaitGroup)
	for i := 0; i < connCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runEchoSession(ctx, t)
		}()
	}
	wg.Wait()

	deadline := stdlibtime.Now().Add(10 * stdlibtime.Second)
	for service.ReaderExited.Load() != uint64(connCount) {
		if stdlibtime.Now().After(deadline) {
			t.Fatalf("only %v/%v sessions finished", service.ReaderExited.Load(), connCount)
		}
		stdlibtime.Sleep(100 * stdlibtime.Millisecond)
	}
	require.EqualValues(t, connCount, service.HandleCalls.Load())
}

func runEchoSession(ctx context.Context, t *testing.T) {
	t.Helper()
	client, err := fixture.NewWebsocketClient(ctx, serverWSURL)
	if !assert.NoError(t, err) {
		return
	}
	expected := make([]string, 0, msgsPerConn)
	for i := 0; i < msgsPerConn; i++ {
		msg := uuid.NewString()
		expected = append(expected, "server reply:"+msg)
		if !assert.NoError(t, client.SendText(msg)) {
			return
		}
	}
	received := make([]string, 0, msgsPerConn)
	for msg := range client.Received() {
		received = append(received, string(msg))
		if len(received) == msgsPerConn {
			break
		}
	}
	assert.Equal(t, expected, received)

	if assert.NoError(t, client.Ping([]byte("ribbit"))) {
		select {
		case payload := <-client.Pongs():
			assert.Equal(t, []byte("ribbit"), payload)
		case <-ctx.Done():
			assert.Fail(t, "no pong before the test deadline")
		}
	}
	assert.NoError(t, client.Close())
}

func waitForServer(t *testing.T, ctx context.Context) {
	t.Helper()
	for ctx.Err() == nil {
		conn, err := net.DialTimeout("tcp", serverAddr, stdlibtime.Second)
		if err == nil {
			require.NoError(t, conn.Close())

			return
		}
		stdlibtime.Sleep(50 * stdlibtime.Millisecond)
	}
	t.Fatal("server never started listening")
}

// Non-upgrade requests land on the plain gin routes.
func verifyFallbackRouting(t *testing.T) {
	t.Helper()
	resp, err := http.Get("http://" + serverAddr + "/health")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// A request that asks for the upgrade but flunks a precondition is rejected
// before any connection take-over happens.
func verifyHandshakeRejection(t *testing.T) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", serverAddr, stdlibtime.Second)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, conn.Close())
	}()
	_, err = fmt.Fprintf(conn, "GET / HTTP/1.1\r\nHost: %v\r\nConnection: Upgrade\r\nUpgrade: websocket\r\n"+
		"Sec-WebSocket-Version: 8\r\nSec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n\r\n", serverAddr)
	require.NoError(t, err)
	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
