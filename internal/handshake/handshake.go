// SPDX-License-Identifier: MIT

package handshake

import (
	"crypto/sha1" //nolint:gosec // Mandated by RFC 6455.
	"encoding/base64"
	"net/http"
	"strings"
)

// IsUpgradeRequest reports whether the request even attempts a websocket
// upgrade. Requests that don't are left to the surrounding router; requests
// that do but fail Validate are rejected outright.
func IsUpgradeRequest(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get(headerUpgrade), "websocket")
}

// Validate checks the five upgrade preconditions and returns the computed
// accept key. It inspects the already-parsed request only; no side effects.
func Validate(r *http.Request) (acceptKey string, err error) {
	if r.Method != http.MethodGet {
		return "", ErrWrongMethod
	}
	if !connectionHasUpgrade(r.Header.Get(headerConnection)) {
		return "", ErrInvalidConnectionHeader
	}
	if !strings.EqualFold(r.Header.Get(headerUpgrade), "websocket") {
		return "", ErrInvalidUpgradeHeader
	}
	if r.Header.Get(headerSecVersion) != "13" {
		return "", ErrInvalidVersionHeader
	}
	key := r.Header.Get(headerSecKey)
	if key == "" {
		return "", ErrMissingSecKey
	}

	return AcceptKey(key), nil
}

func connectionHasUpgrade(value string) bool {
	for _, opt := range strings.Split(value, ", ") {
		if strings.EqualFold(opt, "upgrade") {
			return true
		}
	}

	return false
}

// AcceptKey derives the Sec-Websocket-Accept value proving the server
// understood the client nonce: base64(SHA1(key + acceptGUID)).
func AcceptKey(key string) string {
	hashed := sha1.Sum([]byte(key + acceptGUID)) //nolint:gosec // Mandated by RFC 6455.

	return base64.StdEncoding.EncodeToString(hashed[:])
}

// SwitchingProtocols renders the literal 101 response for the given accept
// key. The body is empty; the raw bytes go straight onto the hijacked
// connection.
func SwitchingProtocols(acceptKey string) []byte {
	p := make([]byte, 0, 128) //nolint:gomnd // Fits the fixed headers plus the key.
	p = append(p, "HTTP/1.1 101 Switching Protocols\r\n"...)
	p = append(p, "Connection: upgrade\r\n"...)
	p = append(p, "Upgrade: websocket\r\n"...)
	p = append(p, "Sec-Websocket-Accept: "...)
	p = append(p, acceptKey...)
	p = append(p, "\r\n\r\n"...)

	return p
}
