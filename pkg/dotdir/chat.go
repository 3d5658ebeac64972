package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

const (
	chatFile = "chat.json"
)

// ChatState is a persisted ChurnBot conversation that the chat command
// resumes on its next run.
type ChatState struct {
	// SessionID identifies the conversation.
	SessionID string `json:"session_id"`

	// Messages is the conversation in chronological order.
	Messages []ChatMessage `json:"messages"`
}

// ChatMessage is a single message of a persisted conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LoadChatState loads the chat state from a target .churnsense/chat.json.
// Returns nil, nil if no chat state exists.
func (m *Manager) LoadChatState(overrideDir string) (*ChatState, error) {
	path, err := m.Path(overrideDir, chatFile)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading chat state: %w", err)
	}

	state := &ChatState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing chat state: %w", err)
	}

	return state, nil
}

// SaveChatState persists the chat state to a target .churnsense/chat.json.
func (m *Manager) SaveChatState(state *ChatState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil chat state")
	}

	path, err := m.Path(overrideDir, chatFile)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling chat state: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing chat state: %w", err)
	}

	return nil
}

// ClearChatState removes the chat state file so the next chat starts a new
// conversation. Returns nil if the file doesn't exist.
func (m *Manager) ClearChatState(overrideDir string) error {
	path, err := m.Path(overrideDir, chatFile)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing chat state: %w", err)
	}

	return nil
}
