package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	svcErr "github.com/martinotbusiness97-crypto/martiloveconect/internal/errors"
)

// DefaultPageSize applies when a request asks for no particular size.
const DefaultPageSize = 20

// MaxPageSize caps the page size a client may ask for.
const MaxPageSize = 100

// Cursor is the opaque pagination state we encode/decode.
// Timestamp (in millis) + ID establish a stable cursor over lists ordered
// newest first.
type Cursor struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts,omitempty"`
}

// After reports whether an entry (timestamp, id) comes after the cursor in
// newest-first order. The empty cursor precedes everything.
func (c Cursor) After(timestamp int64, id string) bool {
	if c.ID == "" && c.Timestamp == 0 {
		return true
	}
	if timestamp != c.Timestamp {
		return timestamp < c.Timestamp
	}
	return id < c.ID
}

// Encode converts a Cursor into a Base64 string.
func Encode(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Decode parses a Base64 string into a Cursor.
// Empty token → empty cursor (first page).
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}

	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, svcErr.InvalidArgument("invalid pagination token")
	}

	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return Cursor{}, svcErr.InvalidArgument("invalid pagination token")
	}
	return c, nil
}

// PageSize clamps a requested size into [1, MaxPageSize].
func PageSize(requested int) int {
	switch {
	case requested <= 0:
		return DefaultPageSize
	case requested > MaxPageSize:
		return MaxPageSize
	}
	return requested
}
