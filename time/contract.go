// SPDX-License-Identifier: MIT

package time

import (
	stdlibtime "time"

	"github.com/goccy/go-json"
)

// Public API.

type (
	// Time is a UTC-pinned wrapper around the stdlib time, used for connection
	// deadlines and structured log timestamps.
	Time struct {
		*stdlibtime.Time
	}
)

// Private API.

var (
	_ json.UnmarshalerContext = (*Time)(nil)
	_ json.MarshalerContext   = (*Time)(nil)
)
