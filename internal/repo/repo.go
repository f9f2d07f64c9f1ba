package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"deskhand/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const taskColumns = `id,project_id,title,description,status,priority,assigned_to,due_date,tags,position,board,created_at,updated_at,deleted_at`

func scanTask(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	var projectID sql.NullInt64
	var description, assignedTo, dueDate, tags, deletedAt sql.NullString
	err := scan(&t.ID, &projectID, &t.Title, &description, &t.Status, &t.Priority,
		&assignedTo, &dueDate, &tags, &t.Position, &t.Board, &t.CreatedAt, &t.UpdatedAt, &deletedAt)
	if err != nil {
		return t, err
	}
	if projectID.Valid {
		t.ProjectID = &projectID.Int64
	}
	if description.Valid {
		t.Description = description.String
	}
	if assignedTo.Valid {
		t.AssignedTo = &assignedTo.String
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.String
	}
	if tags.Valid {
		t.Tags = decodeStringSlice(tags.String)
	}
	if deletedAt.Valid {
		t.DeletedAt = &deletedAt.String
	}
	return t, nil
}

// InsertTask inserts a task row and returns the assigned id.
func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO tasks(project_id,title,description,status,priority,assigned_to,due_date,tags,position,board,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		nullableInt64Ptr(t.ProjectID), t.Title, nullable(t.Description), t.Status, t.Priority,
		nullableStringPtr(t.AssignedTo), nullableStringPtr(t.DueDate), encodeStringSlice(t.Tags),
		t.Position, t.Board, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetTask returns a live (not soft-deleted) task.
func (r Repo) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=? AND deleted_at IS NULL`, id)
	t, err := scanTask(row.Scan)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

// UpdateTask writes back every mutable column of a task.
func (r Repo) UpdateTask(ctx context.Context, t domain.Task) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE tasks SET project_id=?, title=?, description=?, status=?, priority=?, assigned_to=?, due_date=?, tags=?, position=?, board=?, updated_at=? WHERE id=? AND deleted_at IS NULL`,
		nullableInt64Ptr(t.ProjectID), t.Title, nullable(t.Description), t.Status, t.Priority,
		nullableStringPtr(t.AssignedTo), nullableStringPtr(t.DueDate), encodeStringSlice(t.Tags),
		t.Position, t.Board, t.UpdatedAt, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeleteTask stamps the tombstone; the row stays in the table.
func (r Repo) SoftDeleteTask(ctx context.Context, id int64, now string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE tasks SET deleted_at=?, updated_at=? WHERE id=? AND deleted_at IS NULL`, now, now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type TaskFilters struct {
	Board      string
	Status     string
	Priority   string
	AssignedTo string
	ProjectID  int64
}

// ListTasks returns live tasks matching all supplied filters, in board
// order: position, then creation time, then id.
func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	clauses := []string{"deleted_at IS NULL"}
	var args []any
	if f.Board != "" {
		clauses = append(clauses, "board=?")
		args = append(args, f.Board)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Priority != "" {
		clauses = append(clauses, "priority=?")
		args = append(args, f.Priority)
	}
	if f.AssignedTo != "" {
		clauses = append(clauses, "assigned_to=?")
		args = append(args, f.AssignedTo)
	}
	if f.ProjectID != 0 {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + strings.Join(clauses, " AND ") +
		` ORDER BY position ASC, created_at ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// MaxTaskPosition returns the highest position in a (board, status)
// partition among live tasks, and whether the partition is non-empty.
func (r Repo) MaxTaskPosition(ctx context.Context, tx *sql.Tx, board, status string) (int, bool, error) {
	var max sql.NullInt64
	err := tx.QueryRowContext(ctx, `SELECT MAX(position) FROM tasks WHERE board=? AND status=? AND deleted_at IS NULL`, board, status).Scan(&max)
	if err != nil {
		return 0, false, err
	}
	return int(max.Int64), max.Valid, nil
}

// PlaceTask sets status and position for one task inside a batch reorder.
// Returns false when the id matches no live row.
func (r Repo) PlaceTask(ctx context.Context, tx *sql.Tx, id int64, status string, position int, now string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET status=?, position=?, updated_at=? WHERE id=? AND deleted_at IS NULL`,
		status, position, now, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ClearTaskProject detaches all tasks from a project. The relation is weak:
// deleting a project never deletes its tasks.
func (r Repo) ClearTaskProject(ctx context.Context, tx *sql.Tx, projectID int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE tasks SET project_id=NULL WHERE project_id=?`, projectID)
	return err
}

// --- shared helpers ---

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func nullableInt64Ptr(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func encodeStringSlice(in []string) any {
	if in == nil {
		return nil
	}
	b, _ := json.Marshal(in)
	return string(b)
}

func decodeStringSlice(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func encodeJSON(v any) any {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(b)
}

func decodeJSONMap(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func decodeJSONSlice(raw string) []any {
	if raw == "" {
		return nil
	}
	var out []any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
