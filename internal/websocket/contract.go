// SPDX-License-Identifier: MIT

package websocket

import (
	"bufio"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	stdlibtime "time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/riverline/wsbridge/internal"
)

type (
	srv struct {
		server  *http.Server
		cfg     *internal.Config
		handler http.HandlerFunc
	}
	// channel owns the hijacked connection for its whole lifetime. The reading
	// side runs on the session goroutine via Receive; the writing side is a
	// single pump goroutine draining out, so conn writes stay serialized.
	channel struct {
		conn         net.Conn
		reader       *wsutil.Reader
		out          chan wsWrite
		closeChannel chan struct{}
		closeOnce    sync.Once
		wmu          sync.Mutex
		writeErr     atomic.Pointer[error]
		readTimeout  stdlibtime.Duration
		writeTimeout stdlibtime.Duration
		peerClose    ws.StatusCode
		eof          bool
	}
	wsWrite struct {
		flushed chan<- struct{}
		data    []byte
		opCode  ws.OpCode
	}
	// hijackedConn drains bytes the HTTP layer already buffered before the
	// hand-over, then reads from the raw connection. Borrowed from the way
	// gorilla/websocket recycles the server's bufio.Reader.
	hijackedConn struct {
		br *bufio.Reader
		net.Conn
	}
)

const (
	defaultOutboundBufferSize = 16
	// closeWriteTimeout caps the close-frame write during Close, so releasing
	// the transport stays prompt even when the peer stopped reading.
	closeWriteTimeout = 1 * stdlibtime.Second
)
