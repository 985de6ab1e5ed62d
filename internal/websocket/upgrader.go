// SPDX-License-Identifier: MIT

package websocket

import (
	"net"
	"net/http"

	"github.com/pkg/errors"

	"github.com/riverline/wsbridge/internal/handshake"
	"github.com/riverline/wsbridge/log"
)

// upgrade takes exclusive ownership of the raw connection from the HTTP layer
// and emits the switching-protocols response on it. From here on the
// connection belongs to the websocket layer; nobody else holds a reference.
func (*srv) upgrade(w http.ResponseWriter, acceptKey string) (net.Conn, error) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		log.Error(errors.New("http.ResponseWriter does not support hijack"))
		w.WriteHeader(http.StatusBadRequest)

		return nil, errors.New("transport does not support protocol upgrade")
	}
	conn, rw, err := hj.Hijack()
	if err != nil {
		return nil, errors.Wrap(err, "failed to take over the upgraded connection")
	}
	if rw.Reader.Buffered() > 0 {
		conn = &hijackedConn{Conn: conn, br: rw.Reader}
	}
	if _, err = conn.Write(handshake.SwitchingProtocols(acceptKey)); err != nil {
		return nil, errors.Wrap(multiClose(err, conn), "failed to write the switching protocols response")
	}

	return conn, nil
}

func (hc *hijackedConn) Read(p []byte) (int, error) {
	if hc.br != nil {
		if n := hc.br.Buffered(); len(p) > n {
			p = p[:n]
		}
		n, err := hc.br.Read(p)
		if hc.br.Buffered() == 0 {
			hc.br = nil
		}

		return n, err //nolint:wrapcheck // Proxy.
	}

	return hc.Conn.Read(p) //nolint:wrapcheck // Proxy.
}
