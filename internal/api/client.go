// Package api is the typed HTTP client for the Push backend. It owns no
// persistent state; credentials come in at construction and every method
// takes a context.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/masslessai/push-cli/models"
)

// DefaultBaseURL is the production Push edge-function host.
const DefaultBaseURL = "https://jxuzqcbqhiaxmfitzxlo.supabase.co/functions/v1"

const (
	connectTimeout = 10 * time.Second
	totalTimeout   = 30 * time.Second
)

// Client talks to the Push task API. The zero value is not usable; call New.
type Client struct {
	baseURL string
	apiKey  string
	anonKey string
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying transport (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithAnonKey sets the Supabase anon key sent on unauthenticated
// device-auth calls.
func WithAnonKey(k string) Option {
	return func(c *Client) { c.anonKey = k }
}

// New builds a client for the given base URL and bearer key. An empty
// apiKey is allowed; authenticated methods will fail locally with
// ErrMissingCredentials before touching the network.
func New(baseURL, apiKey string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http: &http.Client{
			Timeout: totalTimeout,
			Transport: &http.Transport{
				ResponseHeaderTimeout: connectTimeout,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// wireTodo is the synced-todos response item. Field names follow the
// backend's camelCase convention.
type wireTodo struct {
	ID                 string `json:"id"`
	DisplayNumber      int    `json:"displayNumber"`
	Title              string `json:"title"`
	Summary            string `json:"summary"`
	NormalizedContent  string `json:"normalizedContent"`
	OriginalTranscript string `json:"originalTranscript"`
	ProjectHint        string `json:"projectHint"`
	GitRemote          string `json:"gitRemote"`
	IsBacklog          bool   `json:"isBacklog"`
	IsFocused          bool   `json:"isFocused"`
	Status             string `json:"status"`
	CreatedAt          string `json:"createdAt"`
}

func (w wireTodo) toTask() models.Task {
	summary := w.Summary
	if summary == "" {
		summary = w.Title
	}
	content := w.NormalizedContent
	if content == "" {
		content = summary
	}
	status := models.TaskStatus(w.Status)
	if w.Status == "" {
		status = models.StatusPending
	}
	created, _ := time.Parse(time.RFC3339, w.CreatedAt)
	return models.Task{
		ID:            w.ID,
		DisplayNumber: w.DisplayNumber,
		Summary:       summary,
		Content:       content,
		Transcript:    w.OriginalTranscript,
		ProjectHint:   w.ProjectHint,
		GitRemote:     w.GitRemote,
		IsBacklog:     w.IsBacklog,
		IsFocused:     w.IsFocused,
		Status:        status,
		CreatedAt:     created,
	}
}

// envelope is the common response wrapper: a success flag plus either a
// payload or an error string.
type envelope struct {
	Success bool       `json:"success"`
	Error   string     `json:"error"`
	Todos   []wireTodo `json:"todos"`
	Count   int        `json:"count"`
	Claimed *bool      `json:"claimed"`
	Claimer string     `json:"claimedBy"`
}

// ListActive fetches non-completed tasks. scope is the normalized git
// remote, or empty for all projects. Backlog tasks are filtered out unless
// includeBacklog is set. Result order: pinned first, then display number
// descending.
func (c *Client) ListActive(ctx context.Context, scope string, includeBacklog bool) ([]models.Task, error) {
	q := url.Values{}
	if scope != "" {
		q.Set("git_remote", scope)
	}
	env, err := c.get(ctx, "synced-todos", q)
	if err != nil {
		return nil, err
	}
	tasks := make([]models.Task, 0, len(env.Todos))
	for _, w := range env.Todos {
		t := w.toTask()
		if !t.Active() {
			continue
		}
		if t.IsBacklog && !includeBacklog {
			continue
		}
		if t.DisplayNumber == 0 {
			// Tasks without a display number cannot be referenced
			// predictably; skip them like the backend sync does.
			continue
		}
		tasks = append(tasks, t)
	}
	models.SortActive(tasks)
	return tasks, nil
}

// FetchByNumber looks up one task by its display number, bypassing listing
// and scope filtering.
func (c *Client) FetchByNumber(ctx context.Context, n int) (models.Task, error) {
	if n <= 0 {
		return models.Task{}, fmt.Errorf("%w: display number must be positive", ErrValidation)
	}
	q := url.Values{}
	q.Set("display_number", strconv.Itoa(n))
	env, err := c.get(ctx, "synced-todos", q)
	if err != nil {
		return models.Task{}, err
	}
	for _, w := range env.Todos {
		if w.DisplayNumber == n {
			return w.toTask(), nil
		}
	}
	return models.Task{}, fmt.Errorf("task #%d: %w", n, ErrNotFound)
}

// Search matches query against summary, content, and transcript across
// active and completed tasks. Active tasks come first.
func (c *Client) Search(ctx context.Context, query string, allProjects bool, scope string) ([]models.Task, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", ErrValidation)
	}
	q := url.Values{}
	q.Set("q", query)
	if !allProjects && scope != "" {
		q.Set("git_remote", scope)
	}
	env, err := c.get(ctx, "synced-todos/search", q)
	if err != nil {
		return nil, err
	}
	var active, done []models.Task
	for _, w := range env.Todos {
		t := w.toTask()
		if t.Active() {
			active = append(active, t)
		} else {
			done = append(done, t)
		}
	}
	return append(active, done...), nil
}

// startedRequest is the update-task-execution body. MachineID enables the
// backend's atomic claim check across machines.
type startedRequest struct {
	TodoID      string `json:"todoId"`
	Status      string `json:"status"`
	MachineID   string `json:"machineId,omitempty"`
	MachineName string `json:"machineName,omitempty"`
	Atomic      bool   `json:"atomic"`
}

// MarkStarted transitions a task to started. Idempotent: starting an
// already-started task succeeds. Returns ErrConflict when the backend
// reports another machine's claim.
func (c *Client) MarkStarted(ctx context.Context, id string, machineID, machineName string) error {
	if id == "" {
		return fmt.Errorf("%w: task id required", ErrValidation)
	}
	body := startedRequest{
		TodoID:      id,
		Status:      string(models.StatusStarted),
		MachineID:   machineID,
		MachineName: machineName,
		Atomic:      machineID != "",
	}
	env, err := c.send(ctx, http.MethodPatch, "update-task-execution", body)
	if err != nil {
		return err
	}
	if env.Claimed != nil && !*env.Claimed {
		claimer := env.Claimer
		if claimer == "" {
			claimer = "another machine"
		}
		return fmt.Errorf("%w (%s)", ErrConflict, claimer)
	}
	return nil
}

// completedRequest is the todo-status body.
type completedRequest struct {
	TodoID      string `json:"todoId"`
	IsCompleted bool   `json:"isCompleted"`
	CompletedAt string `json:"completedAt"`
	Comment     string `json:"comment,omitempty"`
}

// MarkCompleted completes a task, syncing back to the Push app. Idempotent.
// The optional comment is validated locally before any network call.
func (c *Client) MarkCompleted(ctx context.Context, id, comment string) error {
	if id == "" {
		return fmt.Errorf("%w: task id required", ErrValidation)
	}
	if err := models.ValidateCompletionComment(comment); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	body := completedRequest{
		TodoID:      id,
		IsCompleted: true,
		CompletedAt: time.Now().UTC().Format(time.RFC3339),
		Comment:     comment,
	}
	_, err := c.send(ctx, http.MethodPatch, "todo-status", body)
	return err
}

// CountPending returns the number of pending tasks. Used by the
// session-start hook, so it must stay cheap.
func (c *Client) CountPending(ctx context.Context) (int, error) {
	env, err := c.get(ctx, "claude-tasks/count", nil)
	if err != nil {
		return 0, err
	}
	return env.Count, nil
}

// ValidateKey makes a minimal authenticated request to check the stored
// key. A nil error means the key is accepted.
func (c *Client) ValidateKey(ctx context.Context) error {
	q := url.Values{}
	q.Set("limit", "0")
	_, err := c.get(ctx, "synced-todos", q)
	return err
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (*envelope, error) {
	if c.apiKey == "" {
		return nil, ErrMissingCredentials
	}
	u := c.baseURL + "/" + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*envelope, error) {
	if c.apiKey == "" {
		return nil, ErrMissingCredentials
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*envelope, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return nil, ErrAuthInvalid
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: server returned %d", ErrNetwork, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 400 {
		if env.Error != "" {
			return nil, fmt.Errorf("backend error: %s", env.Error)
		}
		return nil, fmt.Errorf("backend returned %d", resp.StatusCode)
	}
	return &env, nil
}
