// SPDX-License-Identifier: MIT

package handshake

import (
	"bufio"
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sampleKey    = "dGhlIHNhbXBsZSBub25jZQ=="
	sampleAccept = "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
)

func upgradeRequest(mutate func(r *http.Request)) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Connection", "keep-alive, Upgrade")
	r.Header.Set("Upgrade", "websocket")
	r.Header.Set("Sec-Websocket-Version", "13")
	r.Header.Set("Sec-Websocket-Key", sampleKey)
	if mutate != nil {
		mutate(r)
	}

	return r
}

func TestAcceptKey(t *testing.T) {
	t.Parallel()
	// RFC 6455 §1.3 test vector.
	assert.Equal(t, sampleAccept, AcceptKey(sampleKey))
}

func TestValidateAcceptsWellFormedUpgrade(t *testing.T) {
	t.Parallel()
	acceptKey, err := Validate(upgradeRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, sampleAccept, acceptKey)
}

func TestValidateIsCaseInsensitiveWhereItShouldBe(t *testing.T) {
	t.Parallel()
	acceptKey, err := Validate(upgradeRequest(func(r *http.Request) {
		r.Header.Set("Connection", "UPGRADE")
		r.Header.Set("Upgrade", "WebSocket")
	}))
	require.NoError(t, err)
	assert.Equal(t, sampleAccept, acceptKey)
}

func TestValidateRejectsEveryBrokenPrecondition(t *testing.T) {
	t.Parallel()
	tests := []struct {
		mutate  func(r *http.Request)
		wantErr error
		name    string
	}{
		{
			name:    "non GET method",
			mutate:  func(r *http.Request) { r.Method = http.MethodPost },
			wantErr: ErrWrongMethod,
		},
		{
			name:    "connection header without upgrade token",
			mutate:  func(r *http.Request) { r.Header.Set("Connection", "keep-alive") },
			wantErr: ErrInvalidConnectionHeader,
		},
		{
			name:    "missing connection header",
			mutate:  func(r *http.Request) { r.Header.Del("Connection") },
			wantErr: ErrInvalidConnectionHeader,
		},
		{
			name:    "upgrade header is not websocket",
			mutate:  func(r *http.Request) { r.Header.Set("Upgrade", "h2c") },
			wantErr: ErrInvalidUpgradeHeader,
		},
		{
			name:    "unsupported version",
			mutate:  func(r *http.Request) { r.Header.Set("Sec-Websocket-Version", "8") },
			wantErr: ErrInvalidVersionHeader,
		},
		{
			name:    "missing key",
			mutate:  func(r *http.Request) { r.Header.Del("Sec-Websocket-Key") },
			wantErr: ErrMissingSecKey,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			acceptKey, err := Validate(upgradeRequest(tt.mutate))
			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, acceptKey)
		})
	}
}

func TestSwitchingProtocolsResponseLiteral(t *testing.T) {
	t.Parallel()
	raw := SwitchingProtocols(sampleAccept)
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(raw)), upgradeRequest(nil))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, resp.Body.Close())
	}()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	assert.Equal(t, "upgrade", resp.Header.Get("Connection"))
	assert.Equal(t, "websocket", resp.Header.Get("Upgrade"))
	assert.Equal(t, sampleAccept, resp.Header.Get("Sec-Websocket-Accept"))
	assert.EqualValues(t, 0, resp.ContentLength)
}
