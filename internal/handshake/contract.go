// SPDX-License-Identifier: MIT

package handshake

import (
	"github.com/pkg/errors"
)

// Implements the server side of the RFC 6455 §1.3 opening handshake.

var (
	ErrWrongMethod             = errors.New("websocket handshake requires a GET request")
	ErrInvalidConnectionHeader = errors.New("connection header does not contain an upgrade token")
	ErrInvalidUpgradeHeader    = errors.New("upgrade header is not websocket")
	ErrInvalidVersionHeader    = errors.New("sec-websocket-version must be 13")
	ErrMissingSecKey           = errors.New("sec-websocket-key header is missing")
)

const (
	headerConnection = "Connection"
	headerUpgrade    = "Upgrade"
	headerSecVersion = "Sec-Websocket-Version"
	headerSecKey     = "Sec-Websocket-Key"
)

// Fixed GUID appended to the client key before hashing, per RFC 6455 §4.2.2.
const acceptGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"
