// Package pagetoken encodes cache-row identifiers as opaque page tokens.
package pagetoken

import (
	"strconv"
	"strings"
)

// Encode renders a cache row id in a compact alphanumeric base.
func Encode(id int64) string {
	return strconv.FormatInt(id, 36)
}

// Decode parses a token back into a row id. Malformed or non-positive tokens
// return ok=false; the caller decides how to reject them.
func Decode(token string) (int64, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(token, 36, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
