package pagination

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Direction indicates which side of the cursor the next page lies on.
type Direction string

const (
	// DirectionForward pages through seq > cursor.
	DirectionForward Direction = "fwd"
	// DirectionBackward pages through seq < cursor.
	DirectionBackward Direction = "bwd"
)

// Cursor is the state behind a page token.
type Cursor struct {
	Seq int64     `json:"seq"`
	Dir Direction `json:"dir"`
	// FilterHash invalidates tokens when the filter changes.
	FilterHash string `json:"filter_hash,omitempty"`
	// OrderHash invalidates tokens when the order changes.
	OrderHash string `json:"order_hash,omitempty"`
}

// NewCursor builds the cursor for the page after seq.
func NewCursor(seq int64, dir Direction, filter string, orderBy string) Cursor {
	return Cursor{
		Seq:        seq,
		Dir:        dir,
		FilterHash: Hash(filter),
		OrderHash:  Hash(orderBy),
	}
}

// Encode encodes a cursor to an opaque base64 string.
func Encode(c Cursor) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// Decode decodes an opaque token.
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, fmt.Errorf("empty token")
	}

	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode base64: %w", err)
	}

	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, fmt.Errorf("unmarshal cursor: %w", err)
	}
	if c.Dir != DirectionForward && c.Dir != DirectionBackward {
		return Cursor{}, fmt.Errorf("invalid cursor direction: %q", c.Dir)
	}
	return c, nil
}

// Hash computes a short hash for cursor validation. Empty input hashes to
// the empty string.
func Hash(value string) string {
	if value == "" {
		return ""
	}
	h := sha256.Sum256([]byte(value))
	return hex.EncodeToString(h[:8])
}

// Validate checks the cursor was issued for the same filter and order.
func Validate(c Cursor, filter string, orderBy string) error {
	if c.FilterHash != Hash(filter) {
		return fmt.Errorf("filter changed since cursor was created")
	}
	if c.OrderHash != Hash(orderBy) {
		return fmt.Errorf("order_by changed since cursor was created")
	}
	return nil
}
