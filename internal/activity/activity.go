// Package activity persists the append-only activity feed. Rows are never
// updated or deleted; the read path is filtered, newest-first pagination.
package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"deskhand/internal/domain"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

// Append inserts one log entry and returns it with id and timestamp set.
// Field validation happens in the engine before this is called.
func (w Writer) Append(ctx context.Context, entry domain.ActivityLog) (domain.ActivityLog, error) {
	now := w.Now
	if now == nil {
		now = time.Now
	}
	entry.CreatedAt = now().UTC().Format(time.RFC3339)
	var metadata any
	if entry.Metadata != nil {
		data, err := json.Marshal(entry.Metadata)
		if err != nil {
			return entry, fmt.Errorf("marshal activity metadata: %w", err)
		}
		metadata = string(data)
	}
	res, err := w.DB.ExecContext(ctx, `INSERT INTO activity_logs(type,title,description,agent,metadata,created_at) VALUES (?,?,?,?,?,?)`,
		entry.Type, entry.Title, nullable(entry.Description), nullable(entry.Agent), metadata, entry.CreatedAt)
	if err != nil {
		return entry, err
	}
	entry.ID, err = res.LastInsertId()
	return entry, err
}

type QueryFilters struct {
	// Date restricts entries to one UTC calendar day, formatted 2006-01-02.
	Date string
	Type string
}

// Page is one page of the feed plus the pagination meta the client uses
// for "load more".
type Page struct {
	Items       []domain.ActivityLog
	Total       int
	CurrentPage int
	LastPage    int
}

// Query returns entries newest-first. page starts at 1.
func (w Writer) Query(ctx context.Context, f QueryFilters, page, perPage int) (Page, error) {
	if page < 1 {
		page = 1
	}
	where, args := buildWhere(f)

	var total int
	if err := w.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_logs`+where, args...).Scan(&total); err != nil {
		return Page{}, err
	}
	lastPage := (total + perPage - 1) / perPage
	if lastPage < 1 {
		lastPage = 1
	}

	query := `SELECT id,type,title,description,agent,metadata,created_at FROM activity_logs` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, perPage, (page-1)*perPage)
	rows, err := w.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return Page{}, err
	}
	defer rows.Close()

	res := Page{Items: []domain.ActivityLog{}, Total: total, CurrentPage: page, LastPage: lastPage}
	for rows.Next() {
		var e domain.ActivityLog
		var description, agent, metadata sql.NullString
		if err := rows.Scan(&e.ID, &e.Type, &e.Title, &description, &agent, &metadata, &e.CreatedAt); err != nil {
			return Page{}, err
		}
		e.Description = description.String
		e.Agent = agent.String
		if metadata.Valid {
			_ = json.Unmarshal([]byte(metadata.String), &e.Metadata)
		}
		res.Items = append(res.Items, e)
	}
	return res, rows.Err()
}

func buildWhere(f QueryFilters) (string, []any) {
	where := ""
	var args []any
	add := func(clause string, arg any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, arg)
	}
	if f.Type != "" {
		add("type=?", f.Type)
	}
	if f.Date != "" {
		// created_at is RFC3339 UTC, so the day is a prefix match.
		add("created_at >= ? AND created_at < ?", f.Date+"T00:00:00Z")
		args = append(args, nextDay(f.Date)+"T00:00:00Z")
	}
	return where, args
}

func nextDay(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, 1).Format("2006-01-02")
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
