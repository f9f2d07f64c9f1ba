package repo

import (
	"context"
	"database/sql"

	"deskhand/internal/domain"
)

const routineColumns = `id,title,description,schedule_time,schedule_type,frequency,assigned_to,enabled,category,position,created_at,updated_at`

func scanRoutine(scan func(dest ...any) error) (domain.ScheduledRoutine, error) {
	var rt domain.ScheduledRoutine
	var description, frequency sql.NullString
	var enabled int
	err := scan(&rt.ID, &rt.Title, &description, &rt.ScheduleTime, &rt.ScheduleType,
		&frequency, &rt.AssignedTo, &enabled, &rt.Category, &rt.Position, &rt.CreatedAt, &rt.UpdatedAt)
	if err != nil {
		return rt, err
	}
	rt.Description = description.String
	rt.Frequency = frequency.String
	rt.Enabled = enabled != 0
	return rt, nil
}

func (r Repo) InsertRoutine(ctx context.Context, tx *sql.Tx, rt domain.ScheduledRoutine) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO scheduled_routines(title,description,schedule_time,schedule_type,frequency,assigned_to,enabled,category,position,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		rt.Title, nullable(rt.Description), rt.ScheduleTime, rt.ScheduleType, nullable(rt.Frequency),
		rt.AssignedTo, boolToInt(rt.Enabled), rt.Category, rt.Position, rt.CreatedAt, rt.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetRoutine(ctx context.Context, id int64) (domain.ScheduledRoutine, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+routineColumns+` FROM scheduled_routines WHERE id=?`, id)
	rt, err := scanRoutine(row.Scan)
	if err == sql.ErrNoRows {
		return rt, ErrNotFound
	}
	return rt, err
}

// ListRoutines returns routines, optionally filtered by category, ordered
// by schedule_time then position.
func (r Repo) ListRoutines(ctx context.Context, category string) ([]domain.ScheduledRoutine, error) {
	query := `SELECT ` + routineColumns + ` FROM scheduled_routines`
	var args []any
	if category != "" {
		query += ` WHERE category=?`
		args = append(args, category)
	}
	query += ` ORDER BY schedule_time ASC, position ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ScheduledRoutine
	for rows.Next() {
		rt, err := scanRoutine(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, rt)
	}
	return res, rows.Err()
}

func (r Repo) UpdateRoutine(ctx context.Context, rt domain.ScheduledRoutine) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE scheduled_routines SET title=?, description=?, schedule_time=?, schedule_type=?, frequency=?, assigned_to=?, enabled=?, category=?, position=?, updated_at=? WHERE id=?`,
		rt.Title, nullable(rt.Description), rt.ScheduleTime, rt.ScheduleType, nullable(rt.Frequency),
		rt.AssignedTo, boolToInt(rt.Enabled), rt.Category, rt.Position, rt.UpdatedAt, rt.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRoutineEnabled flips only the enabled switch, leaving every other
// column untouched.
func (r Repo) SetRoutineEnabled(ctx context.Context, id int64, enabled bool, now string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE scheduled_routines SET enabled=?, updated_at=? WHERE id=?`, boolToInt(enabled), now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteRoutine(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM scheduled_routines WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) MaxRoutinePosition(ctx context.Context, tx *sql.Tx) (int, bool, error) {
	var max sql.NullInt64
	err := tx.QueryRowContext(ctx, `SELECT MAX(position) FROM scheduled_routines`).Scan(&max)
	if err != nil {
		return 0, false, err
	}
	return int(max.Int64), max.Valid, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
