package chat_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/churnsense/pkg/chat"
)

var _ = Describe("Transcript", func() {
	var t *chat.Transcript

	BeforeEach(func() {
		t = chat.NewTranscript()
	})

	It("opens a single assistant entry and updates it in place", func() {
		t.AppendUser("hi")
		t.Apply("He")
		t.Apply("Hello")

		Expect(t.Messages()).To(Equal([]chat.Message{
			{Role: chat.RoleUser, Content: "hi"},
			{Role: chat.RoleAssistant, Content: "Hello"},
		}))
		idx, open := t.Open()
		Expect(open).To(BeTrue())
		Expect(idx).To(Equal(1))
	})

	It("starts a new entry after Close", func() {
		t.Apply("one")
		t.Close()
		t.Apply("two")

		Expect(t.Messages()).To(HaveLen(2))
		Expect(t.Messages()[1].Content).To(Equal("two"))
	})

	It("keeps the partial reply and appends the fallback on Fail", func() {
		t.AppendUser("hi")
		t.Apply("Hel")
		t.Fail(chat.FallbackMessage)

		Expect(t.Messages()).To(Equal([]chat.Message{
			{Role: chat.RoleUser, Content: "hi"},
			{Role: chat.RoleAssistant, Content: "Hel"},
			{Role: chat.RoleAssistant, Content: chat.FallbackMessage},
		}))
		_, open := t.Open()
		Expect(open).To(BeFalse())
	})

	It("returns snapshots", func() {
		t.AppendUser("hi")
		snap := t.Messages()
		snap[0].Content = "changed"
		Expect(t.Messages()[0].Content).To(Equal("hi"))
	})

	It("seals the open entry when the user speaks", func() {
		t.Apply("reply")
		t.AppendUser("next")
		_, open := t.Open()
		Expect(open).To(BeFalse())
		Expect(t.Len()).To(Equal(2))
	})
})

var _ = Describe("NewGatewayRequest", func() {
	It("prepends the system prompt and requests a stream", func() {
		req := chat.NewGatewayRequest("", []chat.Message{{Role: chat.RoleUser, Content: "hi"}})

		Expect(req.Model).To(Equal(chat.DefaultModel))
		Expect(req.Stream).To(BeTrue())
		Expect(req.Messages).To(HaveLen(2))
		Expect(req.Messages[0]).To(Equal(chat.Message{Role: chat.RoleSystem, Content: chat.SystemPrompt}))
		Expect(req.Messages[1].Content).To(Equal("hi"))
	})

	It("keeps an explicit model", func() {
		Expect(chat.NewGatewayRequest("other/model", nil).Model).To(Equal("other/model"))
	})
})

var _ = Describe("MapGatewayStatus", func() {
	DescribeTable("maps gateway failures",
		func(status, wantStatus int, wantMessage string) {
			err := chat.MapGatewayStatus(status)
			Expect(err.Status).To(Equal(wantStatus))
			Expect(err.Message).To(Equal(wantMessage))
		},
		Entry("rate limited", 429, 429, chat.MessageRateLimited),
		Entry("credits exhausted", 402, 402, chat.MessageCreditsExhausted),
		Entry("bad request", 400, 500, chat.MessageGatewayError),
		Entry("server error", 503, 500, chat.MessageGatewayError),
	)
})

var _ = Describe("QuickQuestions", func() {
	It("offers unique suggestions", func() {
		seen := map[string]bool{}
		for _, q := range chat.QuickQuestions {
			Expect(seen).NotTo(HaveKey(q))
			seen[q] = true
		}
		Expect(chat.QuickQuestions[0]).To(Equal("What is ChurnSense AI?"))
	})
})
