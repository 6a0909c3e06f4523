package agent

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	opencode "github.com/sst/opencode-sdk-go"
	"github.com/sst/opencode-sdk-go/option"
)

// healthResponse represents the OpenCode /global/health response.
type healthResponse struct {
	Healthy bool   `json:"healthy"`
	Version string `json:"version"`
}

// healthCheck checks if the OpenCode server is healthy.
func healthCheck(ctx context.Context, baseURL, username, password string) (*healthResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/global/health", nil)
	if err != nil {
		return nil, fmt.Errorf("creating health request: %w", err)
	}
	if password != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		req.Header.Set("Authorization", "Basic "+auth)
	}

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("decoding health response: %w", err)
	}
	return &health, nil
}

// ServerManager manages the OpenCode server lifecycle and provides a Client.
type ServerManager struct {
	mu          sync.Mutex
	cmd         *exec.Cmd
	sdkClient   *opencode.Client
	client      Client
	baseURL     string
	ownsProcess bool
	username    string
	password    string
	autoStart   bool
}

// ServerManagerConfig holds configuration for the ServerManager.
type ServerManagerConfig struct {
	BaseURL   string
	AutoStart bool
	Username  string
	Password  string
}

// NewServerManager creates a new ServerManager.
func NewServerManager(cfg ServerManagerConfig) *ServerManager {
	username := cfg.Username
	if username == "" {
		username = "opencode"
	}
	return &ServerManager{
		baseURL:   cfg.BaseURL,
		autoStart: cfg.AutoStart,
		username:  username,
		password:  cfg.Password,
	}
}

// EnsureRunning connects to a reachable OpenCode server, or starts one when
// auto-start is enabled.
func (m *ServerManager) EnsureRunning(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sdkClient != nil {
		if _, err := healthCheck(ctx, m.baseURL, m.username, m.password); err == nil {
			return nil
		}
		m.sdkClient = nil
	}

	if _, err := healthCheck(ctx, m.baseURL, m.username, m.password); err == nil {
		slog.Info("connected to existing OpenCode server", "url", m.baseURL)
		m.ownsProcess = false
		m.connect()
		return nil
	}

	if !m.autoStart {
		return fmt.Errorf("OpenCode server is not reachable at %s and auto_start is disabled. Start it manually with: opencode serve", m.baseURL)
	}

	slog.Info("starting OpenCode server", "url", m.baseURL)
	m.cmd = exec.CommandContext(ctx, "opencode", "serve")
	env := os.Environ()
	if m.password != "" {
		env = append(env, "OPENCODE_SERVER_PASSWORD="+m.password)
	}
	m.cmd.Env = env
	// Redirect to stderr so the stage's stdout JSON contract stays clean.
	m.cmd.Stdout = os.Stderr
	m.cmd.Stderr = os.Stderr

	if err := m.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start opencode serve: %w", err)
	}

	if err := m.waitForHealthy(ctx, 30*time.Second); err != nil {
		if m.cmd.Process != nil {
			m.cmd.Process.Kill()
		}
		return fmt.Errorf("OpenCode server failed to become healthy: %w", err)
	}

	m.ownsProcess = true
	m.connect()
	slog.Info("OpenCode server started", "url", m.baseURL)
	return nil
}

func (m *ServerManager) connect() {
	opts := []option.RequestOption{
		option.WithBaseURL(m.baseURL),
	}
	if m.password != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(m.username + ":" + m.password))
		opts = append(opts, option.WithHeader("Authorization", "Basic "+auth))
	}
	m.sdkClient = opencode.NewClient(opts...)
	m.client = &openCodeClient{client: m.sdkClient}
}

func (m *ServerManager) waitForHealthy(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	delay := 100 * time.Millisecond

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, err := healthCheck(ctx, m.baseURL, m.username, m.password); err == nil {
			return nil
		}

		time.Sleep(delay)
		delay = min(delay*2, 2*time.Second)
	}
	return fmt.Errorf("timed out waiting for OpenCode server at %s", m.baseURL)
}

// Shutdown gracefully stops the OpenCode server if this manager started it.
func (m *ServerManager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cmd != nil && m.cmd.Process != nil && m.ownsProcess {
		slog.Info("shutting down OpenCode server")
		m.cmd.Process.Signal(syscall.SIGTERM)

		done := make(chan error, 1)
		go func() { done <- m.cmd.Wait() }()

		select {
		case <-done:
		case <-time.After(10 * time.Second):
			slog.Warn("OpenCode server did not shutdown gracefully, killing")
			m.cmd.Process.Kill()
		}
	}
	return nil
}

// Client returns the Client for session operations, or nil before EnsureRunning.
func (m *ServerManager) Client() Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client
}

// openCodeClient wraps the OpenCode SDK to implement Client.
type openCodeClient struct {
	client *opencode.Client
}

func (c *openCodeClient) CreateSession(ctx context.Context, title string, directory string) (*SessionInfo, error) {
	slog.Debug("creating OpenCode session", "title", title, "directory", directory)

	session, err := c.client.Session.New(ctx, opencode.SessionNewParams{
		Title:     opencode.F(title),
		Directory: opencode.F(directory),
	})
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return &SessionInfo{ID: session.ID, Title: session.Title}, nil
}

func (c *openCodeClient) SendPrompt(ctx context.Context, sessionID string, prompt string, model ModelRef, directory string) (*PromptResponse, error) {
	slog.Debug("sending prompt", "session", sessionID, "model", model.String())

	resp, err := c.client.Session.Prompt(ctx, sessionID, opencode.SessionPromptParams{
		Parts: opencode.F([]opencode.SessionPromptParamsPartUnion{
			opencode.TextPartInputParam{
				Type: opencode.F(opencode.TextPartInputTypeText),
				Text: opencode.F(prompt),
			},
		}),
		Model: opencode.F(opencode.SessionPromptParamsModel{
			ProviderID: opencode.F(model.ProviderID),
			ModelID:    opencode.F(model.ModelID),
		}),
		Directory: opencode.F(directory),
	})
	if err != nil {
		return nil, fmt.Errorf("sending prompt: %w", err)
	}

	return &PromptResponse{Content: extractTextContent(resp)}, nil
}

func (c *openCodeClient) DeleteSession(ctx context.Context, sessionID string, directory string) error {
	slog.Debug("deleting session", "session", sessionID)
	_, err := c.client.Session.Delete(ctx, sessionID, opencode.SessionDeleteParams{
		Directory: opencode.F(directory),
	})
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// extractTextContent concatenates all text parts of a prompt response.
func extractTextContent(resp *opencode.SessionPromptResponse) string {
	if resp == nil {
		return ""
	}
	var out string
	for _, part := range resp.Parts {
		if part.Type == "text" && part.Text != "" {
			if out != "" {
				out += "\n"
			}
			out += part.Text
		}
	}
	return out
}
