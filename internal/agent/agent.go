// Package agent abstracts the external LLM coding agents (Copilot SDK,
// OpenCode) the pipeline delegates its reasoning to. The pipeline treats the
// agent as a black box: build a prompt, hand it over, propagate the result.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/alanmeadows/triage/internal/config"
)

// ModelRef identifies an LLM model by provider and model ID.
type ModelRef struct {
	ProviderID string
	ModelID    string
}

// ParseModelRef parses a "provider/model" string into a ModelRef.
func ParseModelRef(s string) ModelRef {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) == 2 {
		return ModelRef{ProviderID: parts[0], ModelID: parts[1]}
	}
	return ModelRef{ModelID: s}
}

// String returns the "provider/model" representation.
func (m ModelRef) String() string {
	if m.ProviderID == "" {
		return m.ModelID
	}
	return m.ProviderID + "/" + m.ModelID
}

// SessionInfo represents a created agent session.
type SessionInfo struct {
	ID    string
	Title string
}

// PromptResponse represents the result of a prompt.
type PromptResponse struct {
	Content string
}

// Client abstracts agent session operations for testability.
type Client interface {
	// CreateSession creates a new isolated agent session scoped to a directory.
	CreateSession(ctx context.Context, title string, directory string) (*SessionInfo, error)

	// SendPrompt sends a prompt to the given session and waits for completion.
	SendPrompt(ctx context.Context, sessionID string, prompt string, model ModelRef, directory string) (*PromptResponse, error)

	// DeleteSession deletes a session.
	DeleteSession(ctx context.Context, sessionID string, directory string) error
}

// New constructs the configured backend. The returned shutdown function
// releases any process the backend owns and is safe to call on every path.
func New(ctx context.Context, cfg *config.Config) (Client, func(), error) {
	switch cfg.Agent.Backend {
	case config.BackendCopilot:
		c := NewCopilotClient(cfg.Copilot)
		if err := c.Start(ctx); err != nil {
			return nil, nil, fmt.Errorf("starting copilot client: %w", err)
		}
		return c, c.Stop, nil

	case config.BackendOpenCode:
		mgr := NewServerManager(ServerManagerConfig{
			BaseURL:   cfg.OpenCode.URL,
			AutoStart: cfg.OpenCode.AutoStart,
			Username:  cfg.OpenCode.Username,
			Password:  cfg.OpenCode.Password,
		})
		if err := mgr.EnsureRunning(ctx); err != nil {
			return nil, nil, fmt.Errorf("starting OpenCode server: %w", err)
		}
		return mgr.Client(), func() { _ = mgr.Shutdown() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown agent backend %q", cfg.Agent.Backend)
	}
}
