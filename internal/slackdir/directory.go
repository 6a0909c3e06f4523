// Package slackdir maintains a local snapshot of the Slack workspace
// directory so notification tooling can resolve people and groups without
// hitting the Slack API on every message.
package slackdir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/slack-go/slack"

	"github.com/alanmeadows/triage/internal/store"
)

// Member is one workspace user in the directory snapshot.
type Member struct {
	ID          string `json:"id"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	RealName    string `json:"real_name,omitempty"`
	Email       string `json:"email,omitempty"`
	IsBot       bool   `json:"is_bot,omitempty"`
	Deleted     bool   `json:"deleted,omitempty"`
}

// Group is one user group (e.g. @platform-oncall) in the snapshot.
type Group struct {
	ID     string `json:"id"`
	Handle string `json:"handle,omitempty"`
	Name   string `json:"name,omitempty"`
}

// Directory is the on-disk snapshot format.
type Directory struct {
	GeneratedAt string   `json:"generated_at"`
	Users       []Member `json:"users"`
	Groups      []Group  `json:"usergroups"`
}

// Fetcher downloads the workspace directory from the Slack API.
type Fetcher struct {
	api *slack.Client
}

// NewFetcher creates a Fetcher. Extra options are passed through to the
// Slack client (tests use slack.OptionAPIURL).
func NewFetcher(token string, opts ...slack.Option) *Fetcher {
	return &Fetcher{api: slack.New(token, opts...)}
}

// Download fetches users and user groups and writes the snapshot to path.
// A failure of one of the two listings degrades to a partial snapshot; only
// when both fail does Download return an error.
func (f *Fetcher) Download(ctx context.Context, path string, pretty bool) (*Directory, error) {
	dir := &Directory{
		GeneratedAt: store.Now(),
		Users:       []Member{},
		Groups:      []Group{},
	}

	users, usersErr := f.api.GetUsersContext(ctx)
	if usersErr != nil {
		slog.Warn("failed to list users", "error", usersErr)
	} else {
		for _, u := range users {
			dir.Users = append(dir.Users, Member{
				ID:          u.ID,
				Username:    u.Name,
				DisplayName: u.Profile.DisplayName,
				RealName:    u.Profile.RealName,
				Email:       u.Profile.Email,
				IsBot:       u.IsBot,
				Deleted:     u.Deleted,
			})
		}
	}

	groups, groupsErr := f.api.GetUserGroupsContext(ctx)
	if groupsErr != nil {
		slog.Warn("failed to list user groups", "error", groupsErr)
	} else {
		for _, g := range groups {
			dir.Groups = append(dir.Groups, Group{
				ID:     g.ID,
				Handle: g.Handle,
				Name:   g.Name,
			})
		}
	}

	if usersErr != nil && groupsErr != nil {
		return nil, fmt.Errorf("downloading Slack directory: %w", errors.Join(usersErr, groupsErr))
	}

	if err := writeDirectory(path, dir, pretty); err != nil {
		return nil, err
	}
	slog.Info("Slack directory written", "path", path, "users", len(dir.Users), "groups", len(dir.Groups))
	return dir, nil
}

func writeDirectory(path string, dir *Directory, pretty bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	var data []byte
	var err error
	if pretty {
		data, err = json.MarshalIndent(dir, "", "  ")
	} else {
		data, err = json.Marshal(dir)
	}
	if err != nil {
		return fmt.Errorf("encoding directory: %w", err)
	}
	return store.WriteFileAtomic(path, append(data, '\n'), 0644)
}

// Load reads a directory snapshot from disk.
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading Slack directory %s: %w", path, err)
	}
	var dir Directory
	if err := json.Unmarshal(data, &dir); err != nil {
		return nil, fmt.Errorf("parsing Slack directory %s: %w", path, err)
	}
	return &dir, nil
}
