// Package github stores ledger documents in a GitHub repository through the
// REST contents API. The blob SHA of each file is its version token.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gurisko/hq/internal/blobstore"
	"github.com/gurisko/hq/internal/limits"
)

// DefaultBaseURL is the public GitHub API endpoint
const DefaultBaseURL = "https://api.github.com"

// Client is a lightweight GitHub contents API client
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	repo       string // owner/name
	branch     string
	logger     *log.Logger
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another API endpoint (GitHub Enterprise, tests)
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithBranch commits to a branch other than the repository default
func WithBranch(branch string) Option {
	return func(c *Client) { c.branch = branch }
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request tracing
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a new contents API client for repo ("owner/name" or bare "name")
func NewClient(token, repo string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    DefaultBaseURL,
		token:      token,
		repo:       repo,
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ blobstore.Store = (*Client)(nil)

// apiError is returned for any non-2xx response
type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("github API error %d: %s", e.StatusCode, e.Message)
}

type contentResponse struct {
	Type     string `json:"type"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

// doRequest executes an HTTP request with authentication
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("github request", "method", method, "path", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, limits.ErrorBody))
		resp.Body.Close()
		var m struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(b, &m) != nil || m.Message == "" {
			m.Message = string(b)
		}
		return nil, &apiError{StatusCode: resp.StatusCode, Message: m.Message}
	}
	return resp, nil
}

// ResolveRepo expands a bare repository name to owner/name using the
// authenticated user's login.
func (c *Client) ResolveRepo(ctx context.Context) (string, error) {
	if strings.Contains(c.repo, "/") {
		return c.repo, nil
	}
	resp, err := c.doRequest(ctx, http.MethodGet, "/user", nil)
	if err != nil {
		return "", fmt.Errorf("failed to resolve repository owner: %w", err)
	}
	defer resp.Body.Close()

	var user struct {
		Login string `json:"login"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, limits.JSON)).Decode(&user); err != nil {
		return "", fmt.Errorf("failed to decode user response: %w", err)
	}
	if user.Login == "" {
		return "", errors.New("failed to resolve repository owner: empty login")
	}
	c.repo = user.Login + "/" + c.repo
	return c.repo, nil
}

func (c *Client) contentsPath(p string) string {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/repos/" + c.repo + "/contents/" + strings.Join(segments, "/")
}

// Fetch implements blobstore.Store
func (c *Client) Fetch(ctx context.Context, path string) (*blobstore.Document, error) {
	endpoint := c.contentsPath(path)
	if c.branch != "" {
		endpoint += "?ref=" + url.QueryEscape(c.branch)
	}

	resp, err := c.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", blobstore.ErrNotFound, path)
		}
		return nil, err
	}
	defer resp.Body.Close()

	var cr contentResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, limits.Document)).Decode(&cr); err != nil {
		return nil, fmt.Errorf("failed to decode contents response: %w", err)
	}
	if cr.Type != "" && cr.Type != "file" {
		return nil, fmt.Errorf("%s is a %s, not a file", path, cr.Type)
	}
	if cr.Encoding != "" && cr.Encoding != "base64" {
		return nil, fmt.Errorf("unsupported content encoding %q for %s", cr.Encoding, path)
	}

	// GitHub wraps base64 content at 60 columns
	content, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(cr.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", path, err)
	}

	return &blobstore.Document{Path: path, Content: content, Version: blobstore.Version(cr.SHA)}, nil
}

// Create implements blobstore.Store. GitHub answers 422 when a file is
// created without a sha over an existing one.
func (c *Client) Create(ctx context.Context, path, message string, content []byte) (blobstore.Version, error) {
	v, err := c.put(ctx, path, putRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  c.branch,
	})
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnprocessableEntity || apiErr.StatusCode == http.StatusConflict) {
			return "", fmt.Errorf("%w: %s", blobstore.ErrAlreadyExists, path)
		}
		return "", err
	}
	return v, nil
}

// Update implements blobstore.Store. A stale sha yields 409.
func (c *Client) Update(ctx context.Context, path, message string, content []byte, version blobstore.Version) (blobstore.Version, error) {
	v, err := c.put(ctx, path, putRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     string(version),
		Branch:  c.branch,
	})
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) {
			switch apiErr.StatusCode {
			case http.StatusConflict:
				return "", fmt.Errorf("%w: %s: %s", blobstore.ErrVersionConflict, path, apiErr.Message)
			case http.StatusNotFound:
				return "", fmt.Errorf("%w: %s", blobstore.ErrNotFound, path)
			}
		}
		return "", err
	}
	return v, nil
}

func (c *Client) put(ctx context.Context, path string, body putRequest) (blobstore.Version, error) {
	resp, err := c.doRequest(ctx, http.MethodPut, c.contentsPath(path), body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var pr putResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, limits.JSON)).Decode(&pr); err != nil {
		return "", fmt.Errorf("failed to decode put response: %w", err)
	}
	if pr.Content.SHA == "" {
		return "", fmt.Errorf("put response for %s carried no sha", path)
	}
	return blobstore.Version(pr.Content.SHA), nil
}
