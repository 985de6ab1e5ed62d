// SPDX-License-Identifier: MIT

package internal

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
)

// Public API.

type (
	Server interface {
		ListenAndServe(ctx context.Context) error
		Shutdown(ctx context.Context) error
	}
	// Channel is the duplex message view of one upgraded connection. It carries
	// only text and binary messages; ping, pong and close frames are handled
	// internally and never surface here. Receive returns io.EOF once the peer
	// sent a close frame or went away, which is the normal end of the stream.
	Channel interface {
		Receive() (*Message, error)
		Send(msg *Message) error
		Flush() error
		io.Closer
	}
	// Handler is invoked exactly once per accepted connection, on its own
	// goroutine, detached from the originating HTTP exchange. A non-nil error
	// is logged and the channel is closed; it is never propagated further.
	Handler interface {
		Handle(ctx context.Context, channel Channel) error
	}
	Message struct {
		payload []byte
		binary  bool
	}

	Config struct {
		WSServer struct {
			CertPath           string        `yaml:"certPath"`
			KeyPath            string        `yaml:"keyPath"`
			Port               uint16        `yaml:"port"`
			WriteTimeout       time.Duration `yaml:"writeTimeout"`
			ReadTimeout        time.Duration `yaml:"readTimeout"`
			OutboundBufferSize int           `yaml:"outboundBufferSize"`
		} `yaml:"wsServer"`
		Development bool `yaml:"development"`
	}
)

// ErrNotReady is returned by Channel.Send when the outbound buffer cannot
// accept another message right away. The caller owns the message and retries
// it later; nothing is queued on its behalf.
var ErrNotReady = errors.New("outbound buffer not ready")

// Private API.

type (
	customCancelContext struct {
		context.Context //nolint:containedctx // Custom implementation.
		ch              <-chan struct{}
	}
)
