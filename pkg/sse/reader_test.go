package sse_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing/iotest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/churnsense/pkg/sse"
)

// chunkReader returns the given chunks one Read at a time, then err.
type chunkReader struct {
	chunks []string
	err    error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, r.err
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if r.chunks[0] == "" {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

var _ = Describe("Tee", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("assembles a stream delivered one byte per read", func() {
		input := deltaLine("Hello") + deltaLine(" world") + "data: [DONE]\n"
		a := sse.NewAssembler(nil)

		err := sse.Tee(ctx, iotest.OneByteReader(strings.NewReader(input)), nil, a)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Message()).To(Equal("Hello world"))
		Expect(a.State()).To(Equal(sse.StateCompleted))
	})

	It("forwards bytes verbatim, including bytes after the sentinel", func() {
		input := ": ping\n" + deltaLine("Hi") + "data: [DONE]\n" + ": trailing\n"
		dst := &bytes.Buffer{}
		a := sse.NewAssembler(nil)

		err := sse.Tee(ctx, &chunkReader{chunks: []string{input[:10], input[10:], ""}, err: io.EOF}, dst, a)
		Expect(err).NotTo(HaveOccurred())
		Expect(dst.String()).To(Equal(input))
		Expect(a.Message()).To(Equal("Hi"))
	})

	It("stops reading at the sentinel when there is no destination", func() {
		src := &chunkReader{
			chunks: []string{deltaLine("a") + "data: [DONE]\n", deltaLine("never read")},
			err:    io.EOF,
		}
		a := sse.NewAssembler(nil)

		Expect(sse.Tee(ctx, src, nil, a)).To(Succeed())
		Expect(src.chunks).To(HaveLen(1))
		Expect(a.Message()).To(Equal("a"))
	})

	It("completes on a natural end without a sentinel", func() {
		a := sse.NewAssembler(nil)
		err := sse.Tee(ctx, strings.NewReader(deltaLine("partial")+`data: {"cho`), nil, a)

		Expect(err).NotTo(HaveOccurred())
		Expect(a.State()).To(Equal(sse.StateCompleted))
		Expect(a.Message()).To(Equal("partial"))
		Expect(a.Dropped()).To(Equal(len(`data: {"cho`)))
	})

	It("fails the assembler on a read error and keeps earlier fragments", func() {
		boom := errors.New("connection reset")
		a := sse.NewAssembler(nil)

		err := sse.Tee(ctx, &chunkReader{chunks: []string{deltaLine("Hel")}, err: boom}, nil, a)
		Expect(err).To(MatchError(boom))
		Expect(a.State()).To(Equal(sse.StateErrored))
		Expect(a.Err()).To(MatchError(boom))
		Expect(a.Message()).To(Equal("Hel"))
	})

	It("fails the assembler when the destination write fails", func() {
		a := sse.NewAssembler(nil)
		pr, pw := io.Pipe()
		Expect(pr.Close()).To(Succeed())

		err := sse.Tee(ctx, strings.NewReader(deltaLine("x")), pw, a)
		Expect(err).To(HaveOccurred())
		Expect(a.State()).To(Equal(sse.StateErrored))
	})

	It("stops when the context is cancelled", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		a := sse.NewAssembler(nil)

		err := sse.Tee(cctx, strings.NewReader(deltaLine("x")), nil, a)
		Expect(err).To(MatchError(context.Canceled))
		Expect(a.State()).To(Equal(sse.StateErrored))
		Expect(a.Message()).To(BeEmpty())
	})
})
