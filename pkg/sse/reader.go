package sse

import (
	"context"
	"errors"
	"io"
)

// chunkSize is the read size used by Tee. Gateways flush small events, so a
// read usually returns far less than this.
const chunkSize = 32 * 1024

// Tee reads src chunk by chunk, feeding every chunk to a while writing the raw
// bytes verbatim to dst (when dst is non-nil).
//
// ┌──────────────────┐
// │ source io.Reader │
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐   ┌───────────────────────┐
// │       Tee        │──▶│ destination io.Writer │
// └──────────────────┘   └───────────────────────┘
// │
// ▼
// ┌──────────────────┐
// │    Assembler     │
// └──────────────────┘
//
// Tee returns once the source is exhausted, the sentinel was seen (and dst
// is nil), ctx is cancelled, or an error occurs. When dst is set, bytes that
// follow the sentinel are still forwarded so the downstream client sees the
// exact upstream stream.
//
// A natural end of source calls a.End. Read, write and context errors call
// a.Fail and are returned; a clean end returns nil.
func Tee(ctx context.Context, src io.Reader, dst io.Writer, a *Assembler) error {
	buf := make([]byte, chunkSize)

	for {
		if err := ctx.Err(); err != nil {
			a.Fail(err)
			return err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			chunk := buf[:n]

			if dst != nil {
				if _, err := dst.Write(chunk); err != nil {
					a.Fail(err)
					return err
				}
			}

			if !a.Done() {
				if err := a.Feed(chunk); err != nil {
					return err
				}
			}

			if a.Done() && dst == nil {
				return nil
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				a.End()
				return nil
			}

			a.Fail(readErr)
			return readErr
		}
	}
}
