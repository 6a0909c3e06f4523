// Package forge talks to the GitHub API for the auto-fix stage's best-effort
// PR enrichment. Failures here never fail the pipeline.
package forge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	github_ratelimit "github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"golang.org/x/oauth2"
)

// prURLPattern matches https://github.com/{owner}/{repo}/pull/{number}.
var prURLPattern = regexp.MustCompile(`^https://(?:www\.)?github\.com/([^/]+)/([^/]+)/pull/(\d+)/?$`)

// PRInfo is the subset of pull-request data the notifier side file records.
type PRInfo struct {
	Owner  string
	Repo   string
	Number int
	Title  string
	Draft  bool
	URL    string
}

// ParsePRURL extracts owner, repo and number from a GitHub pull request URL.
func ParsePRURL(rawURL string) (owner, repo string, number int, err error) {
	m := prURLPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", "", 0, fmt.Errorf("not a GitHub pull request URL: %s", rawURL)
	}
	number, err = strconv.Atoi(m[3])
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid PR number in %s: %w", rawURL, err)
	}
	return m[1], m[2], number, nil
}

// Client wraps the GitHub API client with rate-limit handling.
type Client struct {
	gh *gh.Client
}

// NewClient creates a GitHub client authenticated with token, with the
// go-github-ratelimit middleware handling secondary rate limits.
func NewClient(ctx context.Context, token string) *Client {
	var base http.RoundTripper
	if token != "" {
		base = oauth2.NewClient(ctx, oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)).Transport
	}
	return &Client{gh: gh.NewClient(github_ratelimit.NewClient(base))}
}

// WithBaseURL points the client at a different API endpoint (tests, GHES).
func (c *Client) WithBaseURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parsing base URL: %w", err)
	}
	c.gh.BaseURL = u
	return nil
}

// LookupPR retrieves title and draft state for the PR behind rawURL.
func (c *Client) LookupPR(ctx context.Context, rawURL string) (*PRInfo, error) {
	owner, repo, number, err := ParsePRURL(rawURL)
	if err != nil {
		return nil, err
	}

	pr, _, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, fmt.Errorf("fetching PR %s/%s#%d: %w", owner, repo, number, err)
	}

	return &PRInfo{
		Owner:  owner,
		Repo:   repo,
		Number: number,
		Title:  pr.GetTitle(),
		Draft:  pr.GetDraft(),
		URL:    rawURL,
	}, nil
}
