// internal/protocol/codec.go
package protocol

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// Codec converts between command/reply text and wire bytes.
type Codec struct {
	name string
	enc  encoding.Encoding // nil means strict UTF-8
}

// NewCodec resolves an encoding by its WHATWG label ("utf-8", "latin1", ...).
func NewCodec(name string) (*Codec, error) {
	label := strings.ToLower(strings.TrimSpace(name))
	if label == "" || label == "utf-8" || label == "utf8" {
		return &Codec{name: "utf-8"}, nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported text encoding %q: %w", name, err)
	}
	return &Codec{name: label, enc: enc}, nil
}

// Name returns the canonical label of the codec.
func (c *Codec) Name() string {
	return c.name
}

// Encode converts a command to wire bytes.
func (c *Codec) Encode(s string) ([]byte, error) {
	if c.enc == nil {
		return []byte(s), nil
	}
	b, err := c.enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("failed to encode command as %s: %w", c.name, err)
	}
	return b, nil
}

// Decode converts wire bytes to whitespace-trimmed text.
func (c *Codec) Decode(b []byte) (string, error) {
	if c.enc == nil {
		if !utf8.Valid(b) {
			return "", &OpError{Op: OpDecode, Kind: "text", Err: fmt.Errorf("invalid utf-8 in %q", b)}
		}
		return strings.TrimSpace(string(b)), nil
	}

	out, err := c.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", &OpError{Op: OpDecode, Kind: "text", Err: err}
	}
	return strings.TrimSpace(string(out)), nil
}
