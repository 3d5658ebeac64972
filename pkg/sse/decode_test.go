package sse_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing/iotest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/text/encoding/charmap"

	"github.com/papercomputeco/churnsense/pkg/sse"
)

var _ = Describe("NewDecoder", func() {
	It("returns the reader unchanged without a charset", func() {
		src := strings.NewReader("data: x\n")
		r, err := sse.NewDecoder(src, "text/event-stream")
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(BeIdenticalTo(src))
	})

	It("returns the reader unchanged for utf-8", func() {
		src := strings.NewReader("data: x\n")
		r, err := sse.NewDecoder(src, "text/event-stream; charset=UTF-8")
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(BeIdenticalTo(src))
	})

	It("rejects unknown charsets", func() {
		_, err := sse.NewDecoder(strings.NewReader(""), "text/event-stream; charset=klingon")
		Expect(err).To(MatchError(ContainSubstring("unsupported charset")))
	})

	It("transcodes a latin-1 stream into the assembler", func() {
		utf8Stream := deltaLine("café crème") + "data: [DONE]\n"
		latin1, err := charmap.ISO8859_1.NewEncoder().String(utf8Stream)
		Expect(err).NotTo(HaveOccurred())

		r, err := sse.NewDecoder(iotest.OneByteReader(bytes.NewReader([]byte(latin1))), "text/event-stream; charset=iso-8859-1")
		Expect(err).NotTo(HaveOccurred())

		a := sse.NewAssembler(nil)
		Expect(sse.Tee(context.Background(), r, io.Discard, a)).To(Succeed())
		Expect(a.Message()).To(Equal("café crème"))
	})
})
