// Package chat implements the ChurnBot conversation: the role-tagged
// transcript, the streaming client and the gateway request shape.
package chat

import (
	"slices"
	"sync"
)

// Roles of chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// FallbackMessage is appended as a distinct assistant message when a reply
// fails.
const FallbackMessage = "Sorry, I couldn't process that. Please try again."

// Message is one role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Transcript is the ordered message list of a conversation. The assembled
// reply of the current stream lives in at most one open assistant entry,
// which Close or Fail seals. Transcript is safe for concurrent use.
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
	open     int
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{open: -1}
}

// NewTranscriptFrom returns a sealed transcript holding a copy of msgs.
func NewTranscriptFrom(msgs []Message) *Transcript {
	return &Transcript{messages: slices.Clone(msgs), open: -1}
}

// AppendUser seals any open entry and appends a user message.
func (t *Transcript) AppendUser(content string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.open = -1
	t.messages = append(t.messages, Message{Role: RoleUser, Content: content})
}

// Apply sets the open assistant entry to content, opening a new entry at the
// end of the transcript when none is open.
func (t *Transcript) Apply(content string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.open >= 0 {
		t.messages[t.open].Content = content
		return
	}

	t.messages = append(t.messages, Message{Role: RoleAssistant, Content: content})
	t.open = len(t.messages) - 1
}

// Close seals the open entry, if any.
func (t *Transcript) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.open = -1
}

// Fail seals the open entry, keeping whatever it holds, and appends fallback
// as a separate assistant message.
func (t *Transcript) Fail(fallback string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.open = -1
	t.messages = append(t.messages, Message{Role: RoleAssistant, Content: fallback})
}

// Open returns the index of the open entry.
func (t *Transcript) Open() (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.open, t.open >= 0
}

// Messages returns a snapshot of the transcript.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return slices.Clone(t.messages)
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.messages)
}
