package deskhandsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Deskhand HTTP API client.
type Client struct {
	BaseURL    string
	APIToken   string
	BasePath   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, apiToken string) *Client {
	return &Client{
		BaseURL:  baseURL,
		APIToken: apiToken,
		BasePath: "api",
		Timeout:  10 * time.Second,
	}
}

// Task represents the API task model.
type Task struct {
	ID         int64    `json:"id"`
	ProjectID  *int64   `json:"project_id,omitempty"`
	Title      string   `json:"title"`
	Status     string   `json:"status"`
	Priority   string   `json:"priority"`
	AssignedTo *string  `json:"assigned_to,omitempty"`
	DueDate    *string  `json:"due_date,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Position   int      `json:"position"`
	Board      string   `json:"board"`
}

// TaskPlacement is one entry of a board reorder batch.
type TaskPlacement struct {
	ID       int64  `json:"id"`
	Status   string `json:"status"`
	Position int    `json:"position"`
}

// ReorderResult reports how much of a reorder batch was applied.
type ReorderResult struct {
	Updated int     `json:"updated"`
	Missing []int64 `json:"missing,omitempty"`
}

// ActivityLog is one entry of the activity feed.
type ActivityLog struct {
	ID          int64          `json:"id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Agent       string         `json:"agent,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   string         `json:"created_at"`
}

// ActivityPage is a page of the feed with its pagination meta.
type ActivityPage struct {
	Items []ActivityLog `json:"items"`
	Meta  struct {
		CurrentPage int `json:"current_page"`
		LastPage    int `json:"last_page"`
		Total       int `json:"total"`
	} `json:"meta"`
}

// Project represents the API project model.
type Project struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Status   string `json:"status"`
	Color    string `json:"color"`
	Position int    `json:"position"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// envelope mirrors the server's success wrapper.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
}

// CreateTask creates a task with defaults filled server-side.
func (c *Client) CreateTask(ctx context.Context, title string, fields map[string]any) (Task, error) {
	body := map[string]any{"title": title}
	for k, v := range fields {
		body[k] = v
	}
	var resp envelope[Task]
	err := c.do(ctx, http.MethodPost, "tasks", body, &resp)
	return resp.Data, err
}

// ListTasks returns tasks matching the filters ("board", "status",
// "priority", "assigned_to", "project_id").
func (c *Client) ListTasks(ctx context.Context, filters map[string]string) ([]Task, error) {
	endpoint := "tasks"
	if len(filters) > 0 {
		q := url.Values{}
		for k, v := range filters {
			q.Set(k, v)
		}
		endpoint += "?" + q.Encode()
	}
	var resp envelope[[]Task]
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Data, err
}

// GetTask fetches a single task.
func (c *Client) GetTask(ctx context.Context, id int64) (Task, error) {
	var resp envelope[Task]
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("tasks/%d", id), nil, &resp)
	return resp.Data, err
}

// UpdateTask applies a partial patch; only the keys present in fields
// are touched.
func (c *Client) UpdateTask(ctx context.Context, id int64, fields map[string]any) (Task, error) {
	var resp envelope[Task]
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("tasks/%d", id), fields, &resp)
	return resp.Data, err
}

// DeleteTask soft-deletes a task.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("tasks/%d", id), nil, nil)
}

// ReorderTasks sends a board reconciliation batch.
func (c *Client) ReorderTasks(ctx context.Context, placements []TaskPlacement) (ReorderResult, error) {
	var resp envelope[ReorderResult]
	err := c.do(ctx, http.MethodPost, "tasks/positions", map[string]any{"tasks": placements}, &resp)
	return resp.Data, err
}

// Board returns the live tasks of one board grouped by status column.
func (c *Client) Board(ctx context.Context, board string) (map[string][]Task, error) {
	endpoint := "board"
	if board != "" {
		endpoint += "?board=" + url.QueryEscape(board)
	}
	var resp envelope[map[string][]Task]
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Data, err
}

// AppendActivity writes one feed entry.
func (c *Client) AppendActivity(ctx context.Context, entryType, title string, fields map[string]any) (ActivityLog, error) {
	body := map[string]any{"type": entryType, "title": title}
	for k, v := range fields {
		body[k] = v
	}
	var resp envelope[ActivityLog]
	err := c.do(ctx, http.MethodPost, "activity-logs", body, &resp)
	return resp.Data, err
}

// Activity returns one page of the feed. date filters to a UTC calendar
// day (YYYY-MM-DD); empty strings skip the filter.
func (c *Client) Activity(ctx context.Context, date, entryType string, page, perPage int) (ActivityPage, error) {
	q := url.Values{}
	if date != "" {
		q.Set("date", date)
	}
	if entryType != "" {
		q.Set("type", entryType)
	}
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}
	if perPage > 0 {
		q.Set("per_page", fmt.Sprint(perPage))
	}
	endpoint := "activity-logs"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp envelope[ActivityPage]
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Data, err
}

// ListProjects returns all projects in display order.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var resp envelope[[]Project]
	err := c.do(ctx, http.MethodGet, "projects", nil, &resp)
	return resp.Data, err
}

// CreateProject creates a project; the slug is derived server-side.
func (c *Client) CreateProject(ctx context.Context, name string, fields map[string]any) (Project, error) {
	body := map[string]any{"name": name}
	for k, v := range fields {
		body[k] = v
	}
	var resp envelope[Project]
	err := c.do(ctx, http.MethodPost, "projects", body, &resp)
	return resp.Data, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.Trim(c.BasePath, "/") + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
