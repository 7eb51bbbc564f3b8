// Package linedecode turns one base64(gzip(text)) line into UTF-8 bytes.
package linedecode

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/arc-self/wifi-ingest-worker/internal/ingesterr"
)

// Decode strips whitespace, base64-decodes (standard alphabet, padded),
// gunzips, and validates the result as UTF-8. A failure at any step
// returns ingesterr.ErrDecode; the caller logs and skips the line
// without aborting the file.
func Decode(line string) ([]byte, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil, fmt.Errorf("decode line: empty: %w", ingesterr.ErrDecode)
	}

	compressed, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("decode line: base64: %v: %w", err, ingesterr.ErrDecode)
	}

	gr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("decode line: gzip header: %v: %w", err, ingesterr.ErrDecode)
	}
	defer gr.Close()

	out, err := io.ReadAll(gr)
	if err != nil {
		return nil, fmt.Errorf("decode line: gzip body: %v: %w", err, ingesterr.ErrDecode)
	}

	if !utf8.Valid(out) {
		return nil, fmt.Errorf("decode line: invalid utf-8: %w", ingesterr.ErrDecode)
	}

	return out, nil
}
