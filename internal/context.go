// SPDX-License-Identifier: MIT

package internal

import (
	"context"
)

// NewCustomCancelContext ties cancellation of the session context to the
// channel's close signal instead of the originating request context, because
// the websocket session outlives the HTTP exchange that spawned it.
func NewCustomCancelContext(reqCtx context.Context, ch <-chan struct{}) context.Context {
	return customCancelContext{Context: reqCtx, ch: ch}
}

func (c customCancelContext) Done() <-chan struct{} {
	return c.ch
}

func (c customCancelContext) Err() error {
	select {
	case <-c.ch:
		return context.Canceled
	default:
		return nil
	}
}
