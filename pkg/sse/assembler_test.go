package sse_test

import (
	"math/rand/v2"
	"slices"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/churnsense/pkg/sse"
)

// deltaLine builds a single OpenAI-style data line carrying content.
func deltaLine(content string) string {
	return `data: {"choices":[{"delta":{"content":"` + content + `"}}]}` + "\n"
}

// collect returns an assembler and a pointer to every update it emits.
func collect() (*sse.Assembler, *[]string) {
	updates := &[]string{}
	a := sse.NewAssembler(func(message string) {
		*updates = append(*updates, message)
	})
	return a, updates
}

// feedSplit feeds stream to a new assembler split at the given byte offsets.
func feedSplit(stream string, cuts []int) (*sse.Assembler, []string) {
	a, updates := collect()
	prev := 0
	for _, cut := range cuts {
		if a.Done() {
			break
		}
		Expect(a.Feed([]byte(stream[prev:cut]))).To(Succeed())
		prev = cut
	}
	if !a.Done() {
		Expect(a.Feed([]byte(stream[prev:]))).To(Succeed())
	}
	a.End()
	return a, *updates
}

var _ = Describe("Assembler", func() {
	Describe("Feed", func() {
		It("folds fragments and stops at the sentinel", func() {
			a, updates := collect()
			stream := deltaLine("Hel") + "\n" + deltaLine("lo") + "\n" + "data: [DONE]\n" + deltaLine("ignored")

			Expect(a.Feed([]byte(stream))).To(Succeed())

			Expect(a.Message()).To(Equal("Hello"))
			Expect(a.State()).To(Equal(sse.StateCompleted))
			Expect(*updates).To(Equal([]string{"Hel", "Hello"}))
		})

		It("rejects chunks that arrive after the sentinel", func() {
			a, _ := collect()
			Expect(a.Feed([]byte(deltaLine("Hi") + "data: [DONE]\n"))).To(Succeed())

			err := a.Feed([]byte(deltaLine("late")))
			Expect(err).To(MatchError(sse.ErrClosed))
			Expect(a.Message()).To(Equal("Hi"))
		})

		It("hands the full message, not the fragment, to the update func", func() {
			a, updates := collect()
			Expect(a.Feed([]byte(deltaLine("a") + deltaLine("b") + deltaLine("c")))).To(Succeed())
			Expect(*updates).To(Equal([]string{"a", "ab", "abc"}))
		})

		It("ignores keepalive comments between data events", func() {
			a, updates := collect()
			Expect(a.Feed([]byte(deltaLine("Hel")))).To(Succeed())
			Expect(a.Feed([]byte(":keepalive\n"))).To(Succeed())
			Expect(a.Feed([]byte(deltaLine("lo")))).To(Succeed())

			Expect(a.Message()).To(Equal("Hello"))
			Expect(*updates).To(HaveLen(2))
		})

		It("ignores lines without the data prefix", func() {
			a, updates := collect()
			Expect(a.Feed([]byte("event: delta\nid: 7\nretry: 100\n" + deltaLine("x")))).To(Succeed())
			Expect(a.Message()).To(Equal("x"))
			Expect(*updates).To(HaveLen(1))
		})

		It("strips a single trailing carriage return", func() {
			a, _ := collect()
			Expect(a.Feed([]byte(`data: {"choices":[{"delta":{"content":"crlf"}}]}` + "\r\n"))).To(Succeed())
			Expect(a.Feed([]byte("data: [DONE]\r\n"))).To(Succeed())

			Expect(a.Message()).To(Equal("crlf"))
			Expect(a.State()).To(Equal(sse.StateCompleted))
		})

		It("does not emit for payloads without content", func() {
			a, updates := collect()
			Expect(a.Feed([]byte(
				`data: {"choices":[{"delta":{"role":"assistant"}}]}` + "\n" +
					`data: {"choices":[{"delta":{"content":""}}]}` + "\n" +
					`data: {"choices":[]}` + "\n" +
					`data: {"usage":{"prompt_tokens":3}}` + "\n" +
					`data: 42` + "\n",
			))).To(Succeed())

			Expect(a.Message()).To(BeEmpty())
			Expect(*updates).To(BeEmpty())
			Expect(a.State()).To(Equal(sse.StateStreaming))
		})

		It("reassembles a data line whose JSON is split across feeds", func() {
			a, updates := collect()
			Expect(a.Feed([]byte(`data: {"choices":[{"del`))).To(Succeed())
			Expect(*updates).To(BeEmpty())

			Expect(a.Feed([]byte(`ta":{"content":"Hi"}}]}` + "\n"))).To(Succeed())
			Expect(a.Message()).To(Equal("Hi"))
			Expect(*updates).To(Equal([]string{"Hi"}))
		})

		It("keeps a complete but malformed line buffered and stops scanning", func() {
			a, updates := collect()
			Expect(a.Feed([]byte(deltaLine("ok") + "data: {\"choices\":[\n" + deltaLine("after")))).To(Succeed())

			Expect(a.Message()).To(Equal("ok"))
			Expect(*updates).To(HaveLen(1))

			Expect(a.Feed([]byte(deltaLine("more")))).To(Succeed())
			Expect(a.Message()).To(Equal("ok"))

			a.End()
			Expect(a.Dropped()).To(BeNumerically(">", 0))
			Expect(a.Message()).To(Equal("ok"))
		})

		It("decodes multi-byte characters split across chunks", func() {
			stream := deltaLine("héllo ") + deltaLine("世界") + "data: [DONE]\n"
			split := strings.Index(stream, "世") + 1

			a, _ := collect()
			Expect(a.Feed([]byte(stream[:split]))).To(Succeed())
			Expect(a.Feed([]byte(stream[split:]))).To(Succeed())

			Expect(a.Message()).To(Equal("héllo 世界"))
		})

		It("decodes JSON unicode escapes", func() {
			a, _ := collect()
			Expect(a.Feed([]byte(`data: {"choices":[{"delta":{"content":"caf\u00e9 \n ok"}}]}` + "\n"))).To(Succeed())
			Expect(a.Message()).To(Equal("café \n ok"))
		})
	})

	Describe("chunking invariance", func() {
		var stream string

		BeforeEach(func() {
			stream = ": connected\n\n" +
				deltaLine("The ") +
				"\r\n" +
				deltaLine("churn ") +
				":ping\n" +
				deltaLine("risk is ") +
				`data: {"choices":[{"delta":{"role":"assistant"}}]}` + "\r\n" +
				deltaLine("élevé 高") +
				"data: [DONE]\n" +
				deltaLine("after done")
		})

		It("yields the same message for every single split point", func() {
			whole, wholeUpdates := feedSplit(stream, nil)
			Expect(whole.Message()).To(Equal("The churn risk is élevé 高"))

			for cut := 1; cut < len(stream); cut++ {
				a, updates := feedSplit(stream, []int{cut})
				Expect(a.Message()).To(Equal(whole.Message()), "split at byte %d", cut)
				Expect(updates).To(Equal(wholeUpdates), "split at byte %d", cut)
			}
		})

		It("yields the same message for random multi-way splits", func() {
			whole, _ := feedSplit(stream, nil)
			rng := rand.New(rand.NewPCG(7, 11))

			for range 200 {
				n := rng.IntN(12) + 1
				cuts := make([]int, 0, n)
				for range n {
					cuts = append(cuts, rng.IntN(len(stream)-1)+1)
				}
				slices.Sort(cuts)
				cuts = slices.Compact(cuts)

				a, _ := feedSplit(stream, cuts)
				Expect(a.Message()).To(Equal(whole.Message()), "cuts %v", cuts)
			}
		})

		It("yields the same message when fed one byte at a time", func() {
			whole, _ := feedSplit(stream, nil)

			a, _ := collect()
			for i := 0; i < len(stream) && !a.Done(); i++ {
				Expect(a.Feed([]byte{stream[i]})).To(Succeed())
			}
			Expect(a.Message()).To(Equal(whole.Message()))
		})
	})

	Describe("End", func() {
		It("drops a trailing partial line and completes", func() {
			a, _ := collect()
			Expect(a.Feed([]byte(deltaLine("Hel") + `data: {"choices":[{"delta":{"content":"lo`))).To(Succeed())

			a.End()
			Expect(a.State()).To(Equal(sse.StateCompleted))
			Expect(a.Message()).To(Equal("Hel"))
			Expect(a.Dropped()).To(Equal(len(`data: {"choices":[{"delta":{"content":"lo`)))
		})

		It("is a no-op after the sentinel", func() {
			a, updates := collect()
			Expect(a.Feed([]byte(deltaLine("Hi") + "data: [DONE]\n"))).To(Succeed())

			a.End()
			a.End()
			Expect(a.State()).To(Equal(sse.StateCompleted))
			Expect(a.Dropped()).To(BeZero())
			Expect(*updates).To(HaveLen(1))
		})

		It("completes an idle assembler", func() {
			a, _ := collect()
			a.End()
			Expect(a.State()).To(Equal(sse.StateCompleted))
			Expect(a.Message()).To(BeEmpty())
		})
	})

	Describe("Fail", func() {
		It("keeps folded fragments and records the error", func() {
			a, _ := collect()
			Expect(a.Feed([]byte(deltaLine("Hel")))).To(Succeed())

			cause := sse.ErrClosed
			a.Fail(cause)
			Expect(a.State()).To(Equal(sse.StateErrored))
			Expect(a.Err()).To(MatchError(cause))
			Expect(a.Message()).To(Equal("Hel"))
		})

		It("can fail before any bytes arrived", func() {
			a, _ := collect()
			a.Fail(sse.ErrClosed)
			Expect(a.State()).To(Equal(sse.StateErrored))
		})

		It("does not leave a terminal state", func() {
			a, _ := collect()
			Expect(a.Feed([]byte("data: [DONE]\n"))).To(Succeed())

			a.Fail(sse.ErrClosed)
			Expect(a.State()).To(Equal(sse.StateCompleted))
			Expect(a.Err()).To(BeNil())
		})
	})
})

var _ = Describe("ParseLine", func() {
	DescribeTable("classifies lines",
		func(line string, kind sse.Kind, payload string) {
			ev := sse.ParseLine([]byte(line))
			Expect(ev.Kind).To(Equal(kind))
			Expect(string(ev.Payload)).To(Equal(payload))
		},
		Entry("blank", "", sse.KindComment, ""),
		Entry("whitespace only", "  \t", sse.KindComment, ""),
		Entry("carriage return only", "\r", sse.KindComment, ""),
		Entry("comment", ": keep-alive", sse.KindComment, ""),
		Entry("event field", "event: message", sse.KindIgnored, ""),
		Entry("data without space", `data:{"a":1}`, sse.KindIgnored, ""),
		Entry("data", `data: {"a":1}`, sse.KindData, `{"a":1}`),
		Entry("data with padding", "data:   {\"a\":1}  \r", sse.KindData, `{"a":1}`),
		Entry("sentinel", "data: [DONE]", sse.KindDone, ""),
		Entry("sentinel with padding", "data:  [DONE] \r", sse.KindDone, ""),
	)
})
