// SPDX-License-Identifier: MIT

package websocket

import (
	"io"
	"net"
	"net/http"
	stdlibtime "time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/riverline/wsbridge/internal"
	"github.com/riverline/wsbridge/log"
	"github.com/riverline/wsbridge/terror"
	"github.com/riverline/wsbridge/time"
)

func newChannel(conn net.Conn, cfg *internal.Config) *channel {
	bufferSize := cfg.WSServer.OutboundBufferSize
	if bufferSize <= 0 {
		bufferSize = defaultOutboundBufferSize
	}
	ch := &channel{
		conn:         conn,
		out:          make(chan wsWrite, bufferSize),
		closeChannel: make(chan struct{}),
		readTimeout:  cfg.WSServer.ReadTimeout,
		writeTimeout: cfg.WSServer.WriteTimeout,
	}
	ch.reader = &wsutil.Reader{
		Source:         conn,
		State:          ws.StateServerSide,
		CheckUTF8:      true,
		OnIntermediate: ch.handleControl,
	}
	go ch.writePump()

	return ch
}

// Receive pulls frames until a text or binary one arrives. Control frames are
// consumed along the way and never surface: pings get a best-effort pong,
// pongs are discarded, a close frame (like a transport EOF) ends the stream
// with io.EOF. Anything else terminates it with a frame error.
func (ch *channel) Receive() (*internal.Message, error) {
	if ch.eof {
		return nil, io.EOF
	}
	for {
		if ch.readTimeout > 0 {
			_ = ch.conn.SetReadDeadline(time.Now().Add(ch.readTimeout)) //nolint:errcheck // It is not crucial if we ignore it here.
		}
		hdr, err := ch.reader.NextFrame()
		if err != nil {
			return nil, ch.endOfStream(err)
		}
		if hdr.OpCode.IsControl() {
			if err = ch.handleControl(hdr, ch.reader); err != nil {
				return nil, ch.endOfStream(err)
			}

			continue
		}
		payload, err := io.ReadAll(ch.reader)
		if err != nil {
			return nil, ch.endOfStream(err)
		}
		if hdr.OpCode == ws.OpText {
			return internal.NewTextMessage(string(payload)), nil
		}

		return internal.NewBinaryMessage(payload), nil
	}
}

// handleControl doubles as the reader's intermediate-frame callback, so
// control frames interleaved into a fragmented message take the same path.
func (ch *channel) handleControl(hdr ws.Header, rd io.Reader) error {
	payload := make([]byte, hdr.Length)
	if _, err := io.ReadFull(rd, payload); err != nil {
		return errors.Wrap(err, "failed to read control frame payload")
	}
	switch hdr.OpCode {
	case ws.OpPing:
		// Pings are just suggestions. If the outbound buffer has no room the
		// reply is dropped on the floor, no buffering, no retry.
		select {
		case ch.out <- wsWrite{opCode: ws.OpPong, data: payload}:
		default:
			log.Debug("pong reply dropped, outbound buffer is full")
		}
	case ws.OpClose:
		code, reason := ws.ParseCloseFrameData(payload)

		return wsutil.ClosedError{Code: code, Reason: reason}
	case ws.OpPong:
	default:
	}

	return nil
}

// endOfStream folds the frame-layer error into the channel contract: close
// frames and transport EOF are the normal end of the sequence, everything
// else is a terminal frame error carrying the websocket failure.
func (ch *channel) endOfStream(err error) error {
	ch.eof = true
	var closed wsutil.ClosedError
	if errors.As(err, &closed) {
		ch.peerClose = closed.Code

		return io.EOF
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return io.EOF
	}

	return terror.New(errors.Wrap(err, "websocket frame failure"), map[string]any{"peerCloseCode": ch.peerClose})
}

// Send submits the message to the outbound buffer without blocking. When the
// buffer is full it returns ErrNotReady and the caller retries the same
// message later; the channel never queues unsent items on its behalf.
func (ch *channel) Send(msg *internal.Message) error {
	if err := ch.writeFailure(); err != nil {
		return err
	}
	select {
	case <-ch.closeChannel:
		return errors.Wrap(io.ErrClosedPipe, "send on closed websocket channel")
	default:
	}
	opCode := ws.OpText
	if msg.IsBinary() {
		opCode = ws.OpBinary
	}
	select {
	case <-ch.closeChannel:
		return errors.Wrap(io.ErrClosedPipe, "send on closed websocket channel")
	case ch.out <- wsWrite{opCode: opCode, data: msg.Bytes()}:
		// Close can race the enqueue; once it won, the pump is gone and the
		// message would never reach the wire, so the caller has to know.
		select {
		case <-ch.closeChannel:
			return errors.Wrap(io.ErrClosedPipe, "send on closed websocket channel")
		default:
			return nil
		}
	default:
		return internal.ErrNotReady
	}
}

// Flush blocks until every previously accepted message reached the transport.
func (ch *channel) Flush() error {
	flushed := make(chan struct{})
	select {
	case ch.out <- wsWrite{flushed: flushed}:
	case <-ch.closeChannel:
		return errors.Wrap(io.ErrClosedPipe, "flush on closed websocket channel")
	}
	select {
	case <-flushed:
		return ch.writeFailure()
	case <-ch.closeChannel:
		return errors.Wrap(io.ErrClosedPipe, "flush on closed websocket channel")
	}
}

// Close emits a best-effort close frame and releases the transport. The frame
// write is bounded by a short deadline and the connection is closed regardless
// of its outcome, so a peer that stopped reading cannot pin the channel.
// Subsequent calls are no-ops.
func (ch *channel) Close() error {
	var err error
	ch.closeOnce.Do(func() {
		close(ch.closeChannel)
		timeout := ch.writeTimeout
		if timeout <= 0 || timeout > closeWriteTimeout {
			timeout = closeWriteTimeout
		}
		// This also unwedges an in-flight pump write, so the frame below never
		// waits on a stalled peer for longer than the deadline.
		_ = ch.conn.SetWriteDeadline(time.Now().Add(timeout)) //nolint:errcheck // Best effort.
		err = multierror.Append( //nolint:wrapcheck // .
			ch.writeFrame(ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, ""), timeout),
			ch.conn.Close(),
		).ErrorOrNil()
	})

	return errors.Wrap(err, "failed to close websocket channel")
}

func (ch *channel) writePump() {
	for {
		select {
		case <-ch.closeChannel:
			return
		case msg := <-ch.out:
			if msg.flushed != nil {
				close(msg.flushed)

				continue
			}
			if err := ch.writeFrame(msg.opCode, msg.data, ch.writeTimeout); err != nil {
				ch.writeErr.CompareAndSwap(nil, &err)
				log.Error(errors.Wrap(err, "failed to send message to websocket"))
			}
		}
	}
}

func (ch *channel) writeFrame(opCode ws.OpCode, data []byte, timeout stdlibtime.Duration) error {
	ch.wmu.Lock()
	defer ch.wmu.Unlock()
	var err error
	if timeout > 0 {
		err = multierror.Append(nil, ch.conn.SetWriteDeadline(time.Now().Add(timeout)))
	}
	err = multierror.Append(err,
		wsutil.WriteServerMessage(ch.conn, opCode, data),
	).ErrorOrNil()

	if flusher, ok := ch.conn.(http.Flusher); err == nil && ok {
		flusher.Flush()
	}

	return errors.Wrap(err, "failed to write data to websocket")
}

func (ch *channel) writeFailure() error {
	if err := ch.writeErr.Load(); err != nil {
		return terror.New(errors.Wrap(*err, "websocket transport failure"), nil)
	}

	return nil
}

func multiClose(err error, conn net.Conn) error {
	return multierror.Append(err, conn.Close()).ErrorOrNil() //nolint:wrapcheck // .
}
