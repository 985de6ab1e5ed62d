// SPDX-License-Identifier: MIT

package fixture

import (
	"io"
	"sync"
	"sync/atomic"

	gorillaws "github.com/gorilla/websocket"

	"github.com/riverline/wsbridge"
)

type (
	MockService struct {
		server         wsbridge.Server
		processingFunc func(channel wsbridge.Channel, msg *wsbridge.Message) error
		HandleCalls    atomic.Uint64
		ReaderExited   atomic.Uint64
	}
	Client interface {
		Received() <-chan []byte
		Pongs() <-chan []byte
		SendText(text string) error
		SendBinary(data []byte) error
		Ping(payload []byte) error
		io.Closer
	}
)

const applicationYamlKey = "self"

type (
	wsocketClient struct {
		conn          *gorillaws.Conn
		inputMessages chan []byte
		pongs         chan []byte
		closed        bool
		closeMx       sync.Mutex
		writeMx       sync.Mutex
	}
)
