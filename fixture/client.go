// SPDX-License-Identifier: MIT

package fixture

import (
	"context"
	stdlibtime "time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/riverline/wsbridge/log"
	"github.com/riverline/wsbridge/time"
)

const clientWriteWait = 5 * stdlibtime.Second

// NewWebsocketClient dials the server with an independent websocket
// implementation, so the handshake and framing are exercised against a peer
// we did not write ourselves.
func NewWebsocketClient(ctx context.Context, url string) (Client, error) {
	conn, _, err := gorillaws.DefaultDialer.DialContext(ctx, url, nil) //nolint:bodyclose // Closed by the dialer on the upgrade path.
	if err != nil {
		return nil, errors.Wrapf(err, "failed to establish websocket conn to %v", url)
	}
	c := &wsocketClient{
		conn:          conn,
		inputMessages: make(chan []byte),
		pongs:         make(chan []byte, 1),
	}
	conn.SetPongHandler(func(payload string) error {
		select {
		case c.pongs <- []byte(payload):
		default:
		}

		return nil
	})
	go c.read(ctx)

	return c, nil
}

func (c *wsocketClient) read(ctx context.Context) {
	for ctx.Err() == nil {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		if len(msg) > 0 {
			c.closeMx.Lock()
			if !c.closed {
				c.inputMessages <- msg
			}
			c.closeMx.Unlock()
		}
	}
}

func (c *wsocketClient) Received() <-chan []byte {
	return c.inputMessages
}

// Pongs exposes automatic pong replies the server sent back for our pings.
func (c *wsocketClient) Pongs() <-chan []byte {
	return c.pongs
}

func (c *wsocketClient) SendText(text string) error {
	return c.writeMessage(gorillaws.TextMessage, []byte(text))
}

func (c *wsocketClient) SendBinary(data []byte) error {
	return c.writeMessage(gorillaws.BinaryMessage, data)
}

func (c *wsocketClient) Ping(payload []byte) error {
	c.writeMx.Lock()
	defer c.writeMx.Unlock()

	return errors.Wrap(c.conn.WriteControl(gorillaws.PingMessage, payload, time.Now().Add(clientWriteWait)), "client: failed to ping")
}

func (c *wsocketClient) writeMessage(messageType int, data []byte) error {
	c.writeMx.Lock()
	defer c.writeMx.Unlock()

	return errors.Wrap(c.conn.WriteMessage(messageType, data), "client: failed to send message to websocket")
}

func (c *wsocketClient) Close() error {
	c.closeMx.Lock()
	if c.closed {
		c.closeMx.Unlock()

		return nil
	}
	c.closed = true
	close(c.inputMessages)
	c.closeMx.Unlock()
	c.writeMx.Lock()
	wErr := c.conn.WriteControl(gorillaws.CloseMessage,
		gorillaws.FormatCloseMessage(gorillaws.CloseNormalClosure, ""), time.Now().Add(clientWriteWait))
	c.writeMx.Unlock()
	if wErr != nil && !errors.Is(wErr, gorillaws.ErrCloseSent) {
		log.Error(errors.Wrap(wErr, "client: failed to write close frame"))
	}

	return errors.Wrap(c.conn.Close(), "client: failed to close websocket conn")
}
