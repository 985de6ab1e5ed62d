// SPDX-License-Identifier: MIT

package fixture

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/riverline/wsbridge"
)

func NewTestServer(ctx context.Context, cancel context.CancelFunc, processingFunc func(channel wsbridge.Channel, msg *wsbridge.Message) error) *MockService {
	service := newMockService(processingFunc)
	server := wsbridge.New(service, applicationYamlKey)
	service.server = server
	go service.server.ListenAndServe(ctx, cancel)

	return service
}

func newMockService(processingFunc func(channel wsbridge.Channel, msg *wsbridge.Message) error) *MockService {
	return &MockService{processingFunc: processingFunc}
}

func (m *MockService) Handle(ctx context.Context, channel wsbridge.Channel) error {
	m.HandleCalls.Add(1)
	defer m.ReaderExited.Add(1)
	for ctx.Err() == nil {
		msg, err := channel.Receive()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return errors.Wrap(err, "fixture handler terminated by frame failure")
		}
		if err = m.processingFunc(channel, msg); err != nil {
			return errors.Wrap(err, "fixture handler processing failed")
		}
	}

	return nil
}

func (m *MockService) Init(_ context.Context, _ context.CancelFunc) {
}

func (m *MockService) Close(_ context.Context) error {
	return nil
}

func (m *MockService) RegisterRoutes(router *wsbridge.Router) {
	router.GET("/health", func(ginCtx *gin.Context) {
		ginCtx.String(http.StatusOK, "ok")
	})
}
