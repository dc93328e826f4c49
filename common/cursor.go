// file: common/cursor.go

package common

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidCursor indicates a pagination cursor that could not be decoded.
var ErrInvalidCursor = errors.New("invalid pagination cursor")

// Cursor marks a position in a transaction listing for keyset pagination.
// Listings are ordered newest first on (created_at, id), so the cursor
// carries both fields of the last row the client has seen.
type Cursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}

// EncodeCursor encodes a cursor as an opaque base64 JSON token.
func EncodeCursor(cursor Cursor) string {
	cursorBytes, _ := json.Marshal(cursor)
	return base64.StdEncoding.EncodeToString(cursorBytes)
}

// DecodeCursor decodes and validates a token produced by EncodeCursor.
func DecodeCursor(token string) (Cursor, error) {
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	var cursor Cursor
	if err := json.Unmarshal(decoded, &cursor); err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	if cursor.ID == "" || cursor.CreatedAt.IsZero() {
		return Cursor{}, ErrInvalidCursor
	}

	return cursor, nil
}
