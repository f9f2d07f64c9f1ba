package engine

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"deskhand/internal/activity"
	"deskhand/internal/config"
	"deskhand/internal/domain"
	"deskhand/internal/repo"
)

// Engine is the service layer: validation, defaulting, ordering, and
// transaction boundaries over the repo.
type Engine struct {
	DB       *sql.DB
	Repo     repo.Repo
	Activity activity.Writer
	Config   *config.Config
	Now      func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:       db,
		Repo:     repo.Repo{DB: db},
		Activity: activity.Writer{DB: db},
		Config:   cfg,
		Now:      time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowString() string {
	return e.now().UTC().Format(time.RFC3339)
}

// ValidationError carries a field-to-message map that the API surfaces as
// a 422 body. Validation runs before any write; a failed validation never
// leaves a partial row behind.
type ValidationError struct {
	Fields map[string]string
}

func (v ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, v.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// fieldErrors accumulates per-field messages and converts to a
// ValidationError only when something failed.
type fieldErrors map[string]string

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return ValidationError{Fields: f}
}

func isEnumMember(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

const (
	maxTitleLen = 255
	maxTagLen   = 50
	maxBoardLen = 30
)

// TaskCreateOptions are the caller-supplied fields for a new task.
// Anything omitted gets the documented default.
type TaskCreateOptions struct {
	Title       string
	Description string
	Status      string
	Priority    string
	AssignedTo  *string
	DueDate     *string
	Tags        []string
	Position    *int
	Board       string
	ProjectID   *int64
}

func (e Engine) validateTaskFields(ctx context.Context, fe fieldErrors, title *string, status, priority, board *string, assignedTo, dueDate *string, tags []string, tagsSet bool, projectID *int64) {
	if title != nil {
		if strings.TrimSpace(*title) == "" {
			fe["title"] = "title is required"
		} else if len(*title) > maxTitleLen {
			fe["title"] = fmt.Sprintf("title must be at most %d characters", maxTitleLen)
		}
	}
	if status != nil && !isEnumMember(domain.TaskStatuses, *status) {
		fe["status"] = "status must be one of " + strings.Join(domain.TaskStatuses, ", ")
	}
	if priority != nil && !isEnumMember(domain.TaskPriorities, *priority) {
		fe["priority"] = "priority must be one of " + strings.Join(domain.TaskPriorities, ", ")
	}
	if board != nil {
		if *board == "" {
			fe["board"] = "board is required"
		} else if len(*board) > maxBoardLen {
			fe["board"] = fmt.Sprintf("board must be at most %d characters", maxBoardLen)
		}
	}
	if assignedTo != nil && *assignedTo != "" && !e.Config.IsUser(*assignedTo) {
		fe["assigned_to"] = "assigned_to must be one of " + strings.Join(e.Config.Board.Users, ", ")
	}
	if dueDate != nil && *dueDate != "" {
		if _, err := time.Parse("2006-01-02", *dueDate); err != nil {
			fe["due_date"] = "due_date must be a date formatted YYYY-MM-DD"
		}
	}
	if tagsSet {
		for _, tag := range tags {
			if len(tag) > maxTagLen {
				fe["tags"] = fmt.Sprintf("tags must each be at most %d characters", maxTagLen)
				break
			}
		}
	}
	if projectID != nil {
		if _, err := e.Repo.GetProject(ctx, *projectID); err != nil {
			fe["project_id"] = "project_id must reference an existing project"
		}
	}
}

// CreateTask validates, fills defaults, assigns a position at the bottom
// of the target column when none is given, and inserts the row. Position
// lookup and insert share a transaction so the max cannot move in between.
func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	if opts.Status == "" {
		opts.Status = e.Config.Board.DefaultStatus
	}
	if opts.Priority == "" {
		opts.Priority = "medium"
	}
	if opts.Board == "" {
		opts.Board = e.Config.Board.DefaultBoard
	}
	fe := fieldErrors{}
	e.validateTaskFields(ctx, fe, &opts.Title, &opts.Status, &opts.Priority, &opts.Board,
		opts.AssignedTo, opts.DueDate, opts.Tags, true, opts.ProjectID)
	if err := fe.err(); err != nil {
		return domain.Task{}, err
	}

	now := e.nowString()
	t := domain.Task{
		ProjectID:   opts.ProjectID,
		Title:       opts.Title,
		Description: opts.Description,
		Status:      opts.Status,
		Priority:    opts.Priority,
		AssignedTo:  normalizeOptional(opts.AssignedTo),
		DueDate:     normalizeOptional(opts.DueDate),
		Tags:        opts.Tags,
		Board:       opts.Board,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	if opts.Position != nil {
		t.Position = *opts.Position
	} else {
		pos, err := e.nextTaskPosition(ctx, tx, t.Board, t.Status)
		if err != nil {
			return domain.Task{}, err
		}
		t.Position = pos
	}
	t.ID, err = e.Repo.InsertTask(ctx, tx, t)
	if err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// TaskPatch is the explicit allow-list of patchable task fields. A nil
// pointer means "not supplied"; the Set flags distinguish "set to null"
// from "not supplied" for nullable columns.
type TaskPatch struct {
	Title         *string
	Description   *string
	Status        *string
	Priority      *string
	AssignedTo    *string
	AssignedToSet bool
	DueDate       *string
	DueDateSet    bool
	Tags          []string
	TagsSet       bool
	Position      *int
	Board         *string
	ProjectID     *int64
	ProjectIDSet  bool
}

// UpdateTask applies a partial patch and returns the refreshed record.
func (e Engine) UpdateTask(ctx context.Context, id int64, patch TaskPatch) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}

	fe := fieldErrors{}
	var projectCheck *int64
	if patch.ProjectIDSet && patch.ProjectID != nil {
		projectCheck = patch.ProjectID
	}
	var assignedCheck, dueCheck *string
	if patch.AssignedToSet {
		assignedCheck = patch.AssignedTo
	}
	if patch.DueDateSet {
		dueCheck = patch.DueDate
	}
	e.validateTaskFields(ctx, fe, patch.Title, patch.Status, patch.Priority, patch.Board,
		assignedCheck, dueCheck, patch.Tags, patch.TagsSet, projectCheck)
	if err := fe.err(); err != nil {
		return domain.Task{}, err
	}

	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Status != nil {
		// Any status may move to any other; the board is human-driven.
		t.Status = *patch.Status
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.AssignedToSet {
		t.AssignedTo = normalizeOptional(patch.AssignedTo)
	}
	if patch.DueDateSet {
		t.DueDate = normalizeOptional(patch.DueDate)
	}
	if patch.TagsSet {
		t.Tags = patch.Tags
	}
	if patch.Position != nil {
		t.Position = *patch.Position
	}
	if patch.Board != nil {
		t.Board = *patch.Board
	}
	if patch.ProjectIDSet {
		t.ProjectID = patch.ProjectID
	}
	t.UpdatedAt = e.nowString()

	if err := e.Repo.UpdateTask(ctx, t); err != nil {
		return domain.Task{}, err
	}
	return e.Repo.GetTask(ctx, id)
}

// DeleteTask soft-deletes: the tombstone keeps the row recoverable while
// hiding it from every default query.
func (e Engine) DeleteTask(ctx context.Context, id int64) error {
	return e.Repo.SoftDeleteTask(ctx, id, e.nowString())
}

func (e Engine) ListTasks(ctx context.Context, f repo.TaskFilters) ([]domain.Task, error) {
	return e.Repo.ListTasks(ctx, f)
}

// BoardSnapshot groups a board's live tasks by status. Every column is
// present even when empty so the client can render all four lanes.
func (e Engine) BoardSnapshot(ctx context.Context, board string) (map[string][]domain.Task, error) {
	if board == "" {
		board = e.Config.Board.DefaultBoard
	}
	tasks, err := e.Repo.ListTasks(ctx, repo.TaskFilters{Board: board})
	if err != nil {
		return nil, err
	}
	columns := make(map[string][]domain.Task, len(domain.TaskStatuses))
	for _, status := range domain.TaskStatuses {
		columns[status] = []domain.Task{}
	}
	for _, t := range tasks {
		columns[t.Status] = append(columns[t.Status], t)
	}
	return columns, nil
}

func normalizeOptional(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	return v
}
