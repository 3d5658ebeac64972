package sse

import (
	"fmt"
	"io"
	"mime"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// NewDecoder wraps r so that it yields UTF-8 for the charset named in
// contentType (e.g. "text/event-stream; charset=iso-8859-1").
//
// UTF-8 and unspecified charsets return r unchanged. Other charsets go through
// an x/text transformer, which carries partial multi-byte sequences across
// reads instead of decoding each chunk independently.
func NewDecoder(r io.Reader, contentType string) (io.Reader, error) {
	if contentType == "" {
		return r, nil
	}

	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return r, nil
	}

	charset := strings.TrimSpace(params["charset"])
	if charset == "" {
		return r, nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
	}

	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		return r, nil
	}

	return enc.NewDecoder().Reader(r), nil
}
