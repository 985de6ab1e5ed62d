// SPDX-License-Identifier: MIT

package websocket

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/pkg/errors"

	"github.com/riverline/wsbridge/internal"
	"github.com/riverline/wsbridge/internal/handshake"
	"github.com/riverline/wsbridge/log"
)

func New(cfg *internal.Config, wsHandler internal.Handler, fallback http.Handler) internal.Server {
	s := &srv{cfg: cfg}
	s.handler = s.handleWebSocket(wsHandler, fallback)

	return s
}

func (s *srv) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%v", s.cfg.WSServer.Port),
		Handler: s.handler,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}
	if s.cfg.WSServer.CertPath != "" && s.cfg.WSServer.KeyPath != "" {
		return s.server.ListenAndServeTLS(s.cfg.WSServer.CertPath, s.cfg.WSServer.KeyPath) //nolint:wrapcheck // .
	}

	return s.server.ListenAndServe() //nolint:wrapcheck // .
}

func (s *srv) Shutdown(_ context.Context) error {
	return errors.Wrapf(s.server.Close(), "failed to close server")
}

func (s *srv) handleWebSocket(wsHandler internal.Handler, fallback http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !handshake.IsUpgradeRequest(r) {
			if fallback != nil {
				fallback.ServeHTTP(w, r)

				return
			}
			w.WriteHeader(http.StatusMethodNotAllowed)

			return
		}
		acceptKey, err := handshake.Validate(r)
		if err != nil {
			log.Warn(fmt.Sprintf("websocket handshake rejected: %v", err))
			http.Error(w, err.Error(), http.StatusBadRequest)

			return
		}
		conn, err := s.upgrade(w, acceptKey)
		if err != nil {
			// The 101 path is already committed at this point, so the failure
			// is observable only here.
			log.Error(errors.Wrap(err, "websocket upgrade failed"))

			return
		}
		ch := newChannel(conn, s.cfg)
		go runSession(r.Context(), wsHandler, ch)
	}
}

// runSession drives the handler for one accepted connection. It is scheduled
// as its own goroutine because the session is logically unrelated to the
// completion of the originating HTTP exchange and may outlive it by hours.
func runSession(reqCtx context.Context, wsHandler internal.Handler, ch *channel) {
	ctx := internal.NewCustomCancelContext(reqCtx, ch.closeChannel)
	defer func() {
		if p := recover(); p != nil {
			log.Error(errors.Errorf("websocket session panicked: %v", p))
		}
		log.Error(ch.Close(), "failed to close websocket channel")
	}()
	log.Error(errors.Wrap(wsHandler.Handle(ctx, ch), "websocket session failed"))
}
