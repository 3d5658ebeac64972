package sse

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// ErrClosed is returned by Feed once the assembler reached a terminal state.
var ErrClosed = errors.New("sse: assembler closed")

// errMalformed marks a data payload that is not valid JSON.
var errMalformed = errors.New("sse: malformed data payload")

// State is the lifecycle state of an Assembler.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateCompleted
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// UpdateFunc receives the full assembled message after every fragment.
type UpdateFunc func(message string)

// Assembler turns raw stream bytes into one growing message.
//
// An Assembler serves exactly one streaming session and is not safe for
// concurrent use: a single goroutine feeds it while the UpdateFunc observes
// immutable string snapshots.
//
//	Idle ──Feed──▶ Streaming ──[DONE] / End──▶ Completed
//	  │                │
//	  └──────Fail──────┴──────────────────────▶ Errored
type Assembler struct {
	// buf holds bytes not yet resolved into a consumed line. Lines are split
	// on the raw '\n' byte, which never occurs inside a multi-byte UTF-8
	// sequence, so partial characters simply wait here for the next chunk.
	buf []byte

	message   strings.Builder
	fragments int
	dropped   int

	state    State
	err      error
	onUpdate UpdateFunc
}

// NewAssembler returns an idle Assembler. onUpdate may be nil.
func NewAssembler(onUpdate UpdateFunc) *Assembler {
	return &Assembler{onUpdate: onUpdate}
}

// Feed appends chunk to the pending buffer and consumes every complete line.
//
// A data line whose payload is not valid JSON is left at the front of the
// buffer and scanning stops until the next Feed: the payload is assumed to be
// truncated. Lines already consumed are never parsed again.
func (a *Assembler) Feed(chunk []byte) error {
	switch a.state {
	case StateCompleted, StateErrored:
		return ErrClosed
	case StateIdle:
		a.state = StateStreaming
	}

	a.buf = append(a.buf, chunk...)

	for {
		idx := bytes.IndexByte(a.buf, '\n')
		if idx < 0 {
			return nil
		}

		ev := ParseLine(a.buf[:idx])
		switch ev.Kind {
		case KindDone:
			a.buf = nil
			a.state = StateCompleted
			return nil

		case KindData:
			fragment, err := extractFragment(ev.Payload)
			if err != nil {
				// Leave the line (and its terminator) in place.
				return nil
			}
			a.buf = a.buf[idx+1:]
			if fragment != "" {
				a.message.WriteString(fragment)
				a.fragments++
				a.emit()
			}

		default:
			a.buf = a.buf[idx+1:]
		}
	}
}

// End closes the message after the source finished without a sentinel.
// Any unconsumed partial line is dropped; Dropped reports its size.
// End is a no-op on a terminal assembler.
func (a *Assembler) End() {
	if a.terminal() {
		return
	}

	a.dropped = len(a.buf)
	a.buf = nil
	a.state = StateCompleted
}

// Fail closes the message after a transport error. Fragments folded so far
// are kept. Fail is a no-op on a terminal assembler.
func (a *Assembler) Fail(err error) {
	if a.terminal() {
		return
	}

	a.dropped = len(a.buf)
	a.buf = nil
	a.err = err
	a.state = StateErrored
}

// Message returns the message assembled so far.
func (a *Assembler) Message() string {
	return a.message.String()
}

// State returns the current lifecycle state.
func (a *Assembler) State() State {
	return a.state
}

// Done reports whether the assembler reached a terminal state.
func (a *Assembler) Done() bool {
	return a.terminal()
}

// Err returns the error passed to Fail, if any.
func (a *Assembler) Err() error {
	return a.err
}

// Fragments returns the number of non-empty fragments folded in.
func (a *Assembler) Fragments() int {
	return a.fragments
}

// Dropped returns the number of buffered bytes discarded by End or Fail.
func (a *Assembler) Dropped() int {
	return a.dropped
}

func (a *Assembler) terminal() bool {
	return a.state == StateCompleted || a.state == StateErrored
}

func (a *Assembler) emit() {
	if a.onUpdate != nil {
		a.onUpdate(a.message.String())
	}
}

// deltaPayload is the subset of an OpenAI-style chat completion chunk the
// assembler reads: choices[0].delta.content.
type deltaPayload struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// extractFragment returns the text fragment of a data payload. Syntactically
// invalid JSON is an error; valid JSON of an unexpected shape yields "".
func extractFragment(payload []byte) (string, error) {
	if !json.Valid(payload) {
		return "", errMalformed
	}

	var p deltaPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", nil
	}

	if len(p.Choices) == 0 {
		return "", nil
	}

	return p.Choices[0].Delta.Content, nil
}
