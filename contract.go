// SPDX-License-Identifier: MIT

package wsbridge

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/riverline/wsbridge/internal"
)

type (
	Server interface {
		// ListenAndServe starts everything and blocks indefinitely.
		ListenAndServe(ctx context.Context, cancel context.CancelFunc)
	}

	// Service supplies the per-connection handler plus any plain HTTP routes.
	// Handle is invoked exactly once per accepted websocket connection, on its
	// own goroutine, with the duplex message channel.
	Service interface {
		internal.Handler
		RegisterRoutes(router *Router)
		Init(ctx context.Context, cancel context.CancelFunc)
		Close(ctx context.Context) error
	}
	Router  = gin.Engine
	Channel = internal.Channel
	Message = internal.Message
)

// ErrNotReady is Channel.Send's backpressure signal; retry the same message.
var ErrNotReady = internal.ErrNotReady

func NewTextMessage(text string) *Message {
	return internal.NewTextMessage(text)
}

func NewBinaryMessage(data []byte) *Message {
	return internal.NewBinaryMessage(data)
}

type (
	srv struct {
		wsServer internal.Server
		cfg      *internal.Config
		router   *gin.Engine
		quit     chan<- os.Signal
		service  Service
	}
)
