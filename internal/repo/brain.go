package repo

import (
	"context"
	"database/sql"
	"strings"

	"deskhand/internal/domain"
)

const brainColumns = `id,title,content,category,tags,agent,source,pinned,archived,created_at,updated_at`

func scanBrainEntry(scan func(dest ...any) error) (domain.BrainEntry, error) {
	var b domain.BrainEntry
	var category, tags, agent, source sql.NullString
	var pinned, archived int
	err := scan(&b.ID, &b.Title, &b.Content, &category, &tags, &agent, &source,
		&pinned, &archived, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return b, err
	}
	b.Category = category.String
	b.Agent = agent.String
	b.Source = source.String
	if tags.Valid {
		b.Tags = decodeStringSlice(tags.String)
	}
	b.Pinned = pinned != 0
	b.Archived = archived != 0
	return b, nil
}

func (r Repo) InsertBrainEntry(ctx context.Context, b domain.BrainEntry) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO brain_entries(title,content,category,tags,agent,source,pinned,archived,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
		b.Title, b.Content, nullable(b.Category), encodeStringSlice(b.Tags), nullable(b.Agent), nullable(b.Source),
		boolToInt(b.Pinned), boolToInt(b.Archived), b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetBrainEntry(ctx context.Context, id int64) (domain.BrainEntry, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+brainColumns+` FROM brain_entries WHERE id=?`, id)
	b, err := scanBrainEntry(row.Scan)
	if err == sql.ErrNoRows {
		return b, ErrNotFound
	}
	return b, err
}

type BrainFilters struct {
	Category        string
	PinnedOnly      bool
	IncludeArchived bool
}

// ListBrainEntries orders pinned entries first, then newest first. Archived
// entries are excluded unless asked for.
func (r Repo) ListBrainEntries(ctx context.Context, f BrainFilters) ([]domain.BrainEntry, error) {
	clauses := []string{"1=1"}
	var args []any
	if !f.IncludeArchived {
		clauses = append(clauses, "archived=0")
	}
	if f.PinnedOnly {
		clauses = append(clauses, "pinned=1")
	}
	if f.Category != "" {
		clauses = append(clauses, "category=?")
		args = append(args, f.Category)
	}
	query := `SELECT ` + brainColumns + ` FROM brain_entries WHERE ` + strings.Join(clauses, " AND ") +
		` ORDER BY pinned DESC, created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.BrainEntry
	for rows.Next() {
		b, err := scanBrainEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, b)
	}
	return res, rows.Err()
}

func (r Repo) UpdateBrainEntry(ctx context.Context, b domain.BrainEntry) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE brain_entries SET title=?, content=?, category=?, tags=?, agent=?, source=?, pinned=?, archived=?, updated_at=? WHERE id=?`,
		b.Title, b.Content, nullable(b.Category), encodeStringSlice(b.Tags), nullable(b.Agent), nullable(b.Source),
		boolToInt(b.Pinned), boolToInt(b.Archived), b.UpdatedAt, b.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetBrainPinned(ctx context.Context, id int64, pinned bool, now string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE brain_entries SET pinned=?, updated_at=? WHERE id=?`, boolToInt(pinned), now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetBrainArchived(ctx context.Context, id int64, archived bool, now string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE brain_entries SET archived=?, updated_at=? WHERE id=?`, boolToInt(archived), now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteBrainEntry(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM brain_entries WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
