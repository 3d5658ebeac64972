package chat_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/churnsense/pkg/chat"
	"github.com/papercomputeco/churnsense/pkg/sse"
)

// scriptedStreamer replays fragments then returns err.
type scriptedStreamer struct {
	fragments []string
	err       error
	seen      [][]chat.Message
	block     chan struct{}
}

func (s *scriptedStreamer) Stream(_ context.Context, msgs []chat.Message, onUpdate sse.UpdateFunc) (string, error) {
	s.seen = append(s.seen, msgs)
	if s.block != nil {
		<-s.block
	}
	var msg string
	for _, f := range s.fragments {
		msg += f
		onUpdate(msg)
	}
	return msg, s.err
}

var _ = Describe("Session", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("streams the reply into the transcript", func() {
		s := chat.NewSession(&scriptedStreamer{fragments: []string{"Hel", "lo"}}, nil)

		var updates []string
		reply, err := s.Send(ctx, "  hi  ", func(m string) { updates = append(updates, m) })

		Expect(err).NotTo(HaveOccurred())
		Expect(reply).To(Equal("Hello"))
		Expect(updates).To(Equal([]string{"Hel", "Hello"}))
		Expect(s.Transcript().Messages()).To(Equal([]chat.Message{
			{Role: chat.RoleUser, Content: "hi"},
			{Role: chat.RoleAssistant, Content: "Hello"},
		}))
		_, open := s.Transcript().Open()
		Expect(open).To(BeFalse())
		Expect(s.ID()).NotTo(BeEmpty())
	})

	It("sends the history including the new user message", func() {
		st := &scriptedStreamer{fragments: []string{"a"}}
		s := chat.NewSession(st, nil)

		_, err := s.Send(ctx, "one", nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = s.Send(ctx, "two", nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(st.seen[1]).To(Equal([]chat.Message{
			{Role: chat.RoleUser, Content: "one"},
			{Role: chat.RoleAssistant, Content: "a"},
			{Role: chat.RoleUser, Content: "two"},
		}))
	})

	It("keeps the partial reply and appends the fallback once on failure", func() {
		boom := errors.New("connection reset")
		s := chat.NewSession(&scriptedStreamer{fragments: []string{"Hel"}, err: boom}, nil)

		reply, err := s.Send(ctx, "hi", nil)
		Expect(err).To(MatchError(boom))
		Expect(reply).To(Equal("Hel"))
		Expect(s.Transcript().Messages()).To(Equal([]chat.Message{
			{Role: chat.RoleUser, Content: "hi"},
			{Role: chat.RoleAssistant, Content: "Hel"},
			{Role: chat.RoleAssistant, Content: chat.FallbackMessage},
		}))
	})

	It("appends only the fallback when nothing arrived", func() {
		s := chat.NewSession(&scriptedStreamer{err: errors.New("down")}, nil)

		_, err := s.Send(ctx, "hi", nil)
		Expect(err).To(HaveOccurred())
		Expect(s.Transcript().Messages()).To(Equal([]chat.Message{
			{Role: chat.RoleUser, Content: "hi"},
			{Role: chat.RoleAssistant, Content: chat.FallbackMessage},
		}))
	})

	It("rejects blank input", func() {
		s := chat.NewSession(&scriptedStreamer{}, nil)
		_, err := s.Send(ctx, "   ", nil)
		Expect(err).To(MatchError(chat.ErrEmptyInput))
		Expect(s.Transcript().Len()).To(BeZero())
	})

	It("rejects a second send while streaming", func() {
		st := &scriptedStreamer{block: make(chan struct{})}
		s := chat.NewSession(st, nil)

		done := make(chan error, 1)
		go func() {
			defer GinkgoRecover()
			_, err := s.Send(ctx, "first", nil)
			done <- err
		}()

		Eventually(func() int { return s.Transcript().Len() }).Should(Equal(1))
		_, err := s.Send(ctx, "second", nil)
		Expect(err).To(MatchError(chat.ErrBusy))

		close(st.block)
		Eventually(done).Should(Receive(BeNil()))
	})

	It("resumes an earlier conversation", func() {
		earlier := []chat.Message{
			{Role: chat.RoleUser, Content: "hi"},
			{Role: chat.RoleAssistant, Content: "Hello"},
		}
		streamer := &scriptedStreamer{fragments: []string{"Sure"}}
		s := chat.ResumeSession(streamer, "session-1", earlier, nil)
		Expect(s.ID()).To(Equal("session-1"))

		_, err := s.Send(ctx, "more", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(streamer.seen[0]).To(HaveLen(3))
		Expect(s.Transcript().Messages()).To(HaveLen(4))
		Expect(earlier).To(HaveLen(2))
	})

	It("assigns an ID when resuming without one", func() {
		s := chat.ResumeSession(&scriptedStreamer{}, "", nil, nil)
		Expect(s.ID()).NotTo(BeEmpty())
		Expect(s.Transcript().Len()).To(BeZero())
	})
})
