// Package sse provides a minimal, purpose-built reader for the line framed
// event streams returned by OpenAI-compatible chat gateways.
//
// Upstream bytes arrive at arbitrary boundaries. An Assembler buffers them,
// splits complete lines, extracts the incremental text fragment carried by
// each "data: " line and folds the fragments into a single growing message.
// Tee drives an Assembler from an io.Reader and can forward the raw bytes
// verbatim to a downstream writer at the same time.
//
// This package intentionally does NOT provide SSE writer or server
// capabilities, and it does not implement the full WHATWG event model
// (event names, ids and retry fields are ignored).
package sse

import "bytes"

const (
	// DataPrefix is the literal that starts every data line.
	DataPrefix = "data: "

	// DoneSentinel is the data payload that marks an intentional end of stream.
	DoneSentinel = "[DONE]"
)

var (
	dataPrefix   = []byte(DataPrefix)
	doneSentinel = []byte(DoneSentinel)
)

// Kind classifies a single line of the stream.
type Kind int

const (
	// KindIgnored is any line that is neither a comment nor a data line.
	KindIgnored Kind = iota

	// KindComment is a blank line or a line starting with ':' (keepalive).
	KindComment

	// KindData is a data line carrying a JSON payload.
	KindData

	// KindDone is a data line carrying the [DONE] sentinel.
	KindDone
)

func (k Kind) String() string {
	switch k {
	case KindComment:
		return "comment"
	case KindData:
		return "data"
	case KindDone:
		return "done"
	default:
		return "ignored"
	}
}

// Event is a single logical line extracted from the stream.
type Event struct {
	Kind Kind

	// Payload is the trimmed text after the data prefix. It is only set for
	// KindData and aliases the buffer it was parsed from.
	Payload []byte
}

// ParseLine classifies one line. The line must not include its '\n'
// terminator; a single trailing '\r' is stripped.
func ParseLine(line []byte) Event {
	line = bytes.TrimSuffix(line, []byte{'\r'})

	if len(bytes.TrimSpace(line)) == 0 || line[0] == ':' {
		return Event{Kind: KindComment}
	}

	if !bytes.HasPrefix(line, dataPrefix) {
		return Event{Kind: KindIgnored}
	}

	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if bytes.Equal(payload, doneSentinel) {
		return Event{Kind: KindDone}
	}

	return Event{Kind: KindData, Payload: payload}
}
