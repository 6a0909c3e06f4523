package agent

import (
	"context"
	"fmt"
	"sync"
)

// MockClient is a test double for Client.
type MockClient struct {
	mu            sync.Mutex
	Sessions      map[string]*SessionInfo
	PromptResults map[string]string // sessionID -> response content
	DefaultResult string
	PromptHistory []PromptCall
	nextSessionID int
	CreateErr     error
	PromptErr     error
	DeleteErr     error
}

// PromptCall records a call to SendPrompt.
type PromptCall struct {
	SessionID string
	Prompt    string
	Model     ModelRef
	Directory string
}

// NewMockClient creates a new MockClient with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		Sessions:      make(map[string]*SessionInfo),
		PromptResults: make(map[string]string),
		DefaultResult: "Mock agent response",
	}
}

func (m *MockClient) CreateSession(ctx context.Context, title string, directory string) (*SessionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.nextSessionID++
	id := fmt.Sprintf("mock-session-%d", m.nextSessionID)
	info := &SessionInfo{ID: id, Title: title}
	m.Sessions[id] = info
	return info, nil
}

func (m *MockClient) SendPrompt(ctx context.Context, sessionID string, prompt string, model ModelRef, directory string) (*PromptResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PromptErr != nil {
		return nil, m.PromptErr
	}
	m.PromptHistory = append(m.PromptHistory, PromptCall{
		SessionID: sessionID,
		Prompt:    prompt,
		Model:     model,
		Directory: directory,
	})
	if result, ok := m.PromptResults[sessionID]; ok {
		return &PromptResponse{Content: result}, nil
	}
	return &PromptResponse{Content: m.DefaultResult}, nil
}

func (m *MockClient) DeleteSession(ctx context.Context, sessionID string, directory string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.Sessions, sessionID)
	return nil
}

// Calls returns a copy of the recorded prompt calls.
func (m *MockClient) Calls() []PromptCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PromptCall, len(m.PromptHistory))
	copy(out, m.PromptHistory)
	return out
}
