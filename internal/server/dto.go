package server

import (
	"deskhand/internal/domain"
	"deskhand/internal/engine"
)

// Every success payload is wrapped in the same envelope; creates add a
// human-readable message on top.

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

type createdEnvelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func ok[T any](data T) envelope[T] {
	return envelope[T]{Success: true, Data: data}
}

func created[T any](message string, data T) createdEnvelope[T] {
	return createdEnvelope[T]{Success: true, Message: message, Data: data}
}

// Request payloads

type CreateTaskRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status,omitempty" enum:"backlog,todo,in_progress,done"`
	Priority    string   `json:"priority,omitempty" enum:"low,medium,high"`
	AssignedTo  *string  `json:"assigned_to,omitempty"`
	DueDate     *string  `json:"due_date,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Position    *int     `json:"position,omitempty"`
	Board       string   `json:"board,omitempty"`
	ProjectID   *int64   `json:"project_id,omitempty"`
}

// UpdateTaskRequest distinguishes absent fields from explicit nulls with
// json.RawMessage checks in the handler, so only the keys the client sent
// are touched.
type UpdateTaskRequest struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Status      *string  `json:"status,omitempty" enum:"backlog,todo,in_progress,done"`
	Priority    *string  `json:"priority,omitempty" enum:"low,medium,high"`
	AssignedTo  *string  `json:"assigned_to,omitempty"`
	DueDate     *string  `json:"due_date,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Position    *int     `json:"position,omitempty"`
	Board       *string  `json:"board,omitempty"`
	ProjectID   *int64   `json:"project_id,omitempty"`
}

type TaskPositionEntry struct {
	ID       int64  `json:"id"`
	Status   string `json:"status" enum:"backlog,todo,in_progress,done"`
	Position int    `json:"position"`
}

type UpdateTaskPositionsRequest struct {
	Tasks []TaskPositionEntry `json:"tasks"`
}

type CreateProjectRequest struct {
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	Status         string         `json:"status,omitempty" enum:"active,paused,completed,archived"`
	Icon           string         `json:"icon,omitempty"`
	Color          string         `json:"color,omitempty"`
	URL            string         `json:"url,omitempty"`
	StagingURL     string         `json:"staging_url,omitempty"`
	GithubURL      string         `json:"github_url,omitempty"`
	DocsURL        string         `json:"docs_url,omitempty"`
	TechStack      []string       `json:"tech_stack,omitempty"`
	APIDetails     map[string]any `json:"api_details,omitempty"`
	Credentials    map[string]any `json:"credentials,omitempty"`
	Contacts       []any          `json:"contacts,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	QuickReference string         `json:"quick_reference,omitempty"`
	Position       *int           `json:"position,omitempty"`
}

type UpdateProjectRequest struct {
	Name           *string        `json:"name,omitempty"`
	Description    *string        `json:"description,omitempty"`
	Status         *string        `json:"status,omitempty" enum:"active,paused,completed,archived"`
	Icon           *string        `json:"icon,omitempty"`
	Color          *string        `json:"color,omitempty"`
	URL            *string        `json:"url,omitempty"`
	StagingURL     *string        `json:"staging_url,omitempty"`
	GithubURL      *string        `json:"github_url,omitempty"`
	DocsURL        *string        `json:"docs_url,omitempty"`
	TechStack      []string       `json:"tech_stack,omitempty"`
	APIDetails     map[string]any `json:"api_details,omitempty"`
	Credentials    map[string]any `json:"credentials,omitempty"`
	Contacts       []any          `json:"contacts,omitempty"`
	Notes          *string        `json:"notes,omitempty"`
	QuickReference *string        `json:"quick_reference,omitempty"`
	Position       *int           `json:"position,omitempty"`
}

type ProjectPositionEntry struct {
	ID       int64 `json:"id"`
	Position int   `json:"position"`
}

type UpdateProjectPositionsRequest struct {
	Projects []ProjectPositionEntry `json:"projects"`
}

type CreateActivityRequest struct {
	Type        string         `json:"type" enum:"email,sms,order_fix,analysis,integration,other"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Agent       string         `json:"agent,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type CreateRoutineRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	ScheduleTime string `json:"schedule_time"`
	ScheduleType string `json:"schedule_type" enum:"daily,hourly,interval,manual"`
	Frequency    string `json:"frequency,omitempty"`
	AssignedTo   string `json:"assigned_to,omitempty"`
	Enabled      *bool  `json:"enabled,omitempty"`
	Category     string `json:"category" enum:"email,sms,orders,analysis,monitoring,other"`
	Position     *int   `json:"position,omitempty"`
}

type UpdateRoutineRequest struct {
	Title        *string `json:"title,omitempty"`
	Description  *string `json:"description,omitempty"`
	ScheduleTime *string `json:"schedule_time,omitempty"`
	ScheduleType *string `json:"schedule_type,omitempty" enum:"daily,hourly,interval,manual"`
	Frequency    *string `json:"frequency,omitempty"`
	AssignedTo   *string `json:"assigned_to,omitempty"`
	Enabled      *bool   `json:"enabled,omitempty"`
	Category     *string `json:"category,omitempty" enum:"email,sms,orders,analysis,monitoring,other"`
	Position     *int    `json:"position,omitempty"`
}

type CreateMessageRequest struct {
	FromAgent string `json:"from_agent"`
	ToAgent   string `json:"to_agent"`
	Message   string `json:"message"`
}

type RespondMessageRequest struct {
	Response string `json:"response"`
}

type CreateBrainEntryRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Agent    string   `json:"agent,omitempty"`
	Source   string   `json:"source,omitempty"`
	Pinned   bool     `json:"pinned,omitempty"`
}

type UpdateBrainEntryRequest struct {
	Title    *string  `json:"title,omitempty"`
	Content  *string  `json:"content,omitempty"`
	Category *string  `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Agent    *string  `json:"agent,omitempty"`
	Source   *string  `json:"source,omitempty"`
	Pinned   *bool    `json:"pinned,omitempty"`
	Archived *bool    `json:"archived,omitempty"`
}

type LoginRequest struct {
	Password string `json:"password"`
}

// Response payloads

type ActivityPageResponse struct {
	Items []domain.ActivityLog `json:"items"`
	Meta  PaginationMeta       `json:"meta"`
}

type PaginationMeta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	Total       int `json:"total"`
}

type ProjectDetailResponse struct {
	domain.Project
	Tasks []domain.Task `json:"tasks"`
}

type ReorderResponse struct {
	Updated int     `json:"updated"`
	Missing []int64 `json:"missing,omitempty"`
}

func taskPlacements(entries []TaskPositionEntry) []engine.TaskPlacement {
	out := make([]engine.TaskPlacement, len(entries))
	for i, e := range entries {
		out[i] = engine.TaskPlacement{ID: e.ID, Status: e.Status, Position: e.Position}
	}
	return out
}

func projectPlacements(entries []ProjectPositionEntry) []engine.ProjectPlacement {
	out := make([]engine.ProjectPlacement, len(entries))
	for i, e := range entries {
		out[i] = engine.ProjectPlacement{ID: e.ID, Position: e.Position}
	}
	return out
}

func (r CreateTaskRequest) options() engine.TaskCreateOptions {
	return engine.TaskCreateOptions{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		AssignedTo:  r.AssignedTo,
		DueDate:     r.DueDate,
		Tags:        r.Tags,
		Position:    r.Position,
		Board:       r.Board,
		ProjectID:   r.ProjectID,
	}
}

func (r CreateProjectRequest) options() engine.ProjectCreateOptions {
	return engine.ProjectCreateOptions{
		Name:           r.Name,
		Description:    r.Description,
		Status:         r.Status,
		Icon:           r.Icon,
		Color:          r.Color,
		URL:            r.URL,
		StagingURL:     r.StagingURL,
		GithubURL:      r.GithubURL,
		DocsURL:        r.DocsURL,
		TechStack:      r.TechStack,
		APIDetails:     r.APIDetails,
		Credentials:    r.Credentials,
		Contacts:       r.Contacts,
		Notes:          r.Notes,
		QuickReference: r.QuickReference,
		Position:       r.Position,
	}
}

func (r CreateRoutineRequest) options() engine.RoutineCreateOptions {
	return engine.RoutineCreateOptions{
		Title:        r.Title,
		Description:  r.Description,
		ScheduleTime: r.ScheduleTime,
		ScheduleType: r.ScheduleType,
		Frequency:    r.Frequency,
		AssignedTo:   r.AssignedTo,
		Enabled:      r.Enabled,
		Category:     r.Category,
		Position:     r.Position,
	}
}
