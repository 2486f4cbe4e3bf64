// Package bridge implements the browser-integration bridge wire format of
// spec.md §6: a length-prefixed JSON channel over standard I/O, grounded
// character-for-character on
// original_source/app/src-tauri/src/bin/native-messaging-host.rs — the
// teacher's own stdio surfaces (internal/api/browser.go, an HTTP endpoint;
// internal/api/mcp.go, line-based JSON-RPC) do not match this framing.
package bridge

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// Request is the frame payload sent by the browser extension.
type Request struct {
	URL       string  `json:"url"`
	Cookies   *string `json:"cookies,omitempty"`
	Referrer  *string `json:"referrer,omitempty"`
	UserAgent *string `json:"user_agent,omitempty"`
}

// Response is the frame payload sent back to the browser extension.
type Response struct {
	Success bool    `json:"success"`
	Message *string `json:"message,omitempty"`
}

// ReadFrame reads one u32-little-endian-length-prefixed JSON frame from r
// and decodes it into a Request. io.EOF (or any read error reading the
// length prefix) is returned unwrapped so the caller can distinguish a
// clean shutdown from a parse failure.
func ReadFrame(r io.Reader) (Request, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return Request{}, err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Request{}, err
	}
	var req Request
	if err := json.Unmarshal(buf, &req); err != nil {
		return Request{}, &parseError{cause: err}
	}
	return req, nil
}

// parseError distinguishes a malformed frame body from an I/O failure
// reading the length prefix — ReadFrame's caller treats the former as
// "respond with Invalid message format and keep looping" and the latter
// as "EOF, exit cleanly", per the original's read_exact/continue-vs-break
// split.
type parseError struct{ cause error }

func (e *parseError) Error() string { return fmt.Sprintf("invalid message format: %v", e.cause) }
func (e *parseError) Unwrap() error { return e.cause }

// IsParseError reports whether err originated from a malformed frame body
// (as opposed to an I/O/EOF failure reading the frame itself).
func IsParseError(err error) bool {
	_, ok := err.(*parseError)
	return ok
}

// WriteFrame encodes resp as JSON and writes it as a u32-little-endian
// length prefix followed by the JSON bytes.
func WriteFrame(w io.Writer, resp Response) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
