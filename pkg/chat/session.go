package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/papercomputeco/churnsense/pkg/logger"
	"github.com/papercomputeco/churnsense/pkg/sse"
)

// ErrEmptyInput is returned by Send for blank user input.
var ErrEmptyInput = errors.New("empty chat message")

// ErrBusy is returned by Send while a reply is still streaming.
var ErrBusy = errors.New("a reply is already streaming")

// Streamer streams one assistant reply for a message history.
type Streamer interface {
	Stream(ctx context.Context, msgs []Message, onUpdate sse.UpdateFunc) (string, error)
}

// Session is one ChurnBot conversation. Only one reply streams at a time.
type Session struct {
	id         string
	streamer   Streamer
	transcript *Transcript
	logger     *slog.Logger
	busy       chan struct{}
}

// NewSession starts an empty conversation. l may be nil.
func NewSession(s Streamer, l *slog.Logger) *Session {
	if l == nil {
		l = logger.Nop()
	}
	return ResumeSession(s, uuid.NewString(), nil, l)
}

// ResumeSession continues the conversation id with its earlier messages.
// An empty id gets a fresh one. l may be nil.
func ResumeSession(s Streamer, id string, msgs []Message, l *slog.Logger) *Session {
	if l == nil {
		l = logger.Nop()
	}
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		id:         id,
		streamer:   s,
		transcript: NewTranscriptFrom(msgs),
		logger:     l.With("session_id", id),
		busy:       make(chan struct{}, 1),
	}
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Transcript returns the conversation transcript.
func (s *Session) Transcript() *Transcript {
	return s.transcript
}

// Send appends text as a user message and streams the reply into the
// transcript. onUpdate, if set, sees the assembled reply after every
// fragment. On failure the partial reply is kept and FallbackMessage is
// appended once.
func (s *Session) Send(ctx context.Context, text string, onUpdate sse.UpdateFunc) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyInput
	}

	select {
	case s.busy <- struct{}{}:
	default:
		return "", ErrBusy
	}
	defer func() { <-s.busy }()

	s.transcript.AppendUser(text)

	reply, err := s.streamer.Stream(ctx, s.transcript.Messages(), func(message string) {
		s.transcript.Apply(message)
		if onUpdate != nil {
			onUpdate(message)
		}
	})
	if err != nil {
		s.logger.Error("chat reply failed", "error", err)
		s.transcript.Fail(FallbackMessage)
		return reply, err
	}

	s.transcript.Close()
	return reply, nil
}
