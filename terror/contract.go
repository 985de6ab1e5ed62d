// SPDX-License-Identifier: MIT

package terror

type (
	// Err is an error with structured data attached, so callers can tell
	// classes of failures apart (and log their detail) without parsing text.
	Err struct {
		error
		Data map[string]any `json:"data"`
	}
)
