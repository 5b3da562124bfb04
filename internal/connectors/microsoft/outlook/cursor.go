package outlook

import (
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/custodia-labs/graphmail/internal/core/domain"
)

// CursorVersion is the current cursor format version.
const CursorVersion = 1

// ErrInvalidCursor indicates the cursor could not be decoded.
var ErrInvalidCursor = errors.New("outlook: invalid cursor format")

// Cursor is the continuation token for a folder listing.
type Cursor struct {
	// Version is the cursor format version for future compatibility.
	Version int    `json:"v"`
	Folder  string `json:"f"`
	Skip    int    `json:"s"`
	Top     int    `json:"t"`
	Unread  bool   `json:"u,omitempty"`
}

// NewCursor creates a cursor positioned at opts.
func NewCursor(opts domain.ListOptions) *Cursor {
	return &Cursor{
		Version: CursorVersion,
		Folder:  opts.Folder,
		Skip:    opts.Skip,
		Top:     opts.Limit,
		Unread:  opts.UnreadOnly,
	}
}

// Encode serialises the cursor to a URL-safe string.
func (c *Cursor) Encode() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// Next returns the cursor for the following page.
func (c *Cursor) Next() *Cursor {
	next := *c
	next.Skip += c.Top
	return &next
}

// Options converts the cursor back to list options.
func (c *Cursor) Options() domain.ListOptions {
	return domain.ListOptions{
		Folder:     c.Folder,
		UnreadOnly: c.Unread,
		Skip:       c.Skip,
		Limit:      c.Top,
	}
}

// DecodeCursor deserialises a cursor produced by Encode.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, ErrInvalidCursor
	}

	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, ErrInvalidCursor
	}

	// Version check for future migrations
	if cursor.Version < 1 || cursor.Version > CursorVersion || cursor.Folder == "" || cursor.Top <= 0 || cursor.Skip < 0 {
		return nil, ErrInvalidCursor
	}

	return &cursor, nil
}
