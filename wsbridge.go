// SPDX-License-Identifier: MIT

package wsbridge

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	appcfg "github.com/riverline/wsbridge/config"
	"github.com/riverline/wsbridge/internal"
	"github.com/riverline/wsbridge/internal/websocket"
	"github.com/riverline/wsbridge/log"
)

func New(service Service, cfgKey string) Server {
	var cfg internal.Config
	appcfg.MustLoadFromKey(cfgKey, &cfg)
	s := &srv{cfg: &cfg, service: service}
	s.setupRouter()
	s.wsServer = websocket.New(s.cfg, s.service, s.router)

	return s
}

func (s *srv) setupRouter() {
	if !s.cfg.Development {
		gin.SetMode(gin.ReleaseMode)
		s.router = gin.New()
		s.router.Use(gin.Recovery())
	} else {
		gin.ForceConsoleColor()
		s.router = gin.Default()
	}
	log.Info(fmt.Sprintf("GIN Mode: %v\n", gin.Mode()))
	s.router.HandleMethodNotAllowed = true
	s.router.RedirectFixedPath = true
	s.router.RemoveExtraSlash = true
	s.router.UseRawPath = true

	log.Info("registering routes...")
	s.service.RegisterRoutes(s.router)
	log.Info(fmt.Sprintf("%v routes registered", len(s.router.Routes())))
}

func (s *srv) ListenAndServe(ctx context.Context, cancel context.CancelFunc) {
	s.service.Init(ctx, cancel)
	go s.startServer(ctx)
	s.wait(ctx)
	s.shutDown() //nolint:contextcheck // Nope, we want to gracefully shutdown on a different context.
}

func (s *srv) startServer(ctx context.Context) {
	defer log.Info("server stopped listening")
	log.Info(fmt.Sprintf("server started listening on %v...", s.cfg.WSServer.Port))

	isUnexpectedError := func(err error) bool {
		return err != nil &&
			!errors.Is(err, io.EOF) &&
			!errors.Is(err, http.ErrServerClosed)
	}

	if err := s.wsServer.ListenAndServe(ctx); isUnexpectedError(err) {
		s.quit <- syscall.SIGTERM
		log.Error(errors.Wrap(err, "server.ListenAndServe failed"))
	}
}

func (s *srv) wait(ctx context.Context) {
	quit := make(chan os.Signal, 1)
	s.quit = quit
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case <-quit:
	}
}

func (s *srv) shutDown() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.shutdownServer(ctx)

	if err := s.service.Close(ctx); err != nil && !errors.Is(err, io.EOF) {
		log.Error(errors.Wrap(err, "state close failed"))
	} else {
		log.Info("state close succeeded")
	}
}

func (s *srv) shutdownServer(ctx context.Context) {
	log.Info("shutting down server...")

	if err := s.wsServer.Shutdown(ctx); err != nil && !errors.Is(err, io.EOF) {
		log.Error(errors.Wrap(err, "server shutdown failed"))
	} else {
		log.Info("server shutdown succeeded")
	}
}
