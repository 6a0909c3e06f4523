package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	sdk "github.com/github/copilot-sdk/go"

	"github.com/alanmeadows/triage/internal/config"
)

// CopilotClient implements Client on top of the Copilot SDK. Each pipeline
// stage gets its own short-lived session; prompts are synchronous from the
// stage's point of view, with the assistant's messages collected via the SDK
// event stream. The SDK pins the model at session creation, so the underlying
// session is created lazily on the first prompt, when the model is known.
type CopilotClient struct {
	mu        sync.Mutex
	client    *sdk.Client
	sessions  map[string]*copilotSession
	nextID    int
	started   bool
	serverURL string
}

type copilotSession struct {
	title       string
	directory   string
	session     *sdk.Session // nil until the first prompt
	mu          sync.Mutex
	transcript  []string
	unsubscribe func()
}

// NewCopilotClient creates a CopilotClient. An empty ServerURL lets the SDK
// spawn its own copilot process via stdio; otherwise it connects to an
// existing headless server.
func NewCopilotClient(cfg config.CopilotConfig) *CopilotClient {
	return &CopilotClient{
		sessions:  make(map[string]*copilotSession),
		serverURL: cfg.ServerURL,
	}
}

// Start initializes the Copilot SDK client.
func (c *CopilotClient) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}

	var opts *sdk.ClientOptions
	if c.serverURL != "" {
		opts = &sdk.ClientOptions{
			CLIUrl:    c.serverURL,
			AutoStart: sdk.Bool(false),
		}
		slog.Info("connecting to shared copilot server", "url", c.serverURL)
	}

	c.client = sdk.NewClient(opts)
	if err := c.client.Start(ctx); err != nil {
		return fmt.Errorf("starting copilot client: %w", err)
	}

	c.started = true
	return nil
}

// Stop destroys all sessions and shuts down the SDK client.
func (c *CopilotClient) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, s := range c.sessions {
		slog.Debug("destroying copilot session", "session", id)
		s.destroy()
	}
	c.sessions = make(map[string]*copilotSession)
	if c.client != nil {
		_ = c.client.Stop()
	}
	c.started = false
}

// CreateSession registers a new session scoped to directory.
func (c *CopilotClient) CreateSession(ctx context.Context, title string, directory string) (*SessionInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return nil, fmt.Errorf("copilot client not started")
	}

	c.nextID++
	id := fmt.Sprintf("copilot-%d", c.nextID)
	c.sessions[id] = &copilotSession{title: title, directory: directory}

	slog.Debug("copilot session registered", "title", title, "session", id)
	return &SessionInfo{ID: id, Title: title}, nil
}

// SendPrompt sends a prompt and returns the assistant's accumulated response
// for the turn.
func (c *CopilotClient) SendPrompt(ctx context.Context, sessionID string, prompt string, model ModelRef, directory string) (*PromptResponse, error) {
	c.mu.Lock()
	s, ok := c.sessions[sessionID]
	client := c.client
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("session %q not found", sessionID)
	}

	if s.session == nil {
		cfg := &sdk.SessionConfig{
			Model:               model.ModelID,
			WorkingDirectory:    s.directory,
			Streaming:           true,
			OnPermissionRequest: sdk.PermissionHandler.ApproveAll,
		}
		sdkSession, err := client.CreateSession(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("creating session: %w", err)
		}
		s.session = sdkSession
		s.unsubscribe = sdkSession.On(s.handleEvent)
		slog.Debug("copilot session created", "session", sessionID, "model", model.ModelID)
	}

	s.mu.Lock()
	s.transcript = s.transcript[:0]
	s.mu.Unlock()

	if _, err := s.session.Send(ctx, sdk.MessageOptions{Prompt: prompt}); err != nil {
		return nil, fmt.Errorf("sending prompt: %w", err)
	}

	s.mu.Lock()
	content := strings.Join(s.transcript, "\n")
	s.mu.Unlock()

	return &PromptResponse{Content: content}, nil
}

// DeleteSession destroys a session.
func (c *CopilotClient) DeleteSession(ctx context.Context, sessionID string, directory string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %q not found", sessionID)
	}
	s.destroy()
	delete(c.sessions, sessionID)
	return nil
}

// handleEvent collects assistant messages for the in-flight turn.
func (s *copilotSession) handleEvent(evt sdk.SessionEvent) {
	switch evt.Type {
	case sdk.SessionEventTypeAssistantMessage:
		if evt.Data.Content != nil && *evt.Data.Content != "" {
			s.mu.Lock()
			s.transcript = append(s.transcript, *evt.Data.Content)
			s.mu.Unlock()
		}

	case sdk.SessionEventTypeSessionError:
		if evt.Data.Message != nil {
			slog.Warn("copilot session error", "error", *evt.Data.Message)
		}
	}
}

func (s *copilotSession) destroy() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if s.session != nil {
		_ = s.session.Destroy()
	}
}
