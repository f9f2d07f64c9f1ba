package repo

import (
	"context"
	"database/sql"

	"deskhand/internal/domain"
)

const projectColumns = `id,name,slug,description,status,icon,color,url,staging_url,github_url,docs_url,tech_stack,api_details,credentials,contacts,notes,quick_reference,position,created_at,updated_at`

func scanProject(scan func(dest ...any) error) (domain.Project, error) {
	var p domain.Project
	var description, icon, url, stagingURL, githubURL, docsURL sql.NullString
	var techStack, apiDetails, credentials, contacts, notes, quickRef sql.NullString
	err := scan(&p.ID, &p.Name, &p.Slug, &description, &p.Status, &icon, &p.Color,
		&url, &stagingURL, &githubURL, &docsURL,
		&techStack, &apiDetails, &credentials, &contacts, &notes, &quickRef,
		&p.Position, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	p.Description = description.String
	p.Icon = icon.String
	p.URL = url.String
	p.StagingURL = stagingURL.String
	p.GithubURL = githubURL.String
	p.DocsURL = docsURL.String
	p.Notes = notes.String
	p.QuickReference = quickRef.String
	if techStack.Valid {
		p.TechStack = decodeStringSlice(techStack.String)
	}
	if apiDetails.Valid {
		p.APIDetails = decodeJSONMap(apiDetails.String)
	}
	if credentials.Valid {
		p.Credentials = decodeJSONMap(credentials.String)
	}
	if contacts.Valid {
		p.Contacts = decodeJSONSlice(contacts.String)
	}
	return p, nil
}

func (r Repo) InsertProject(ctx context.Context, tx *sql.Tx, p domain.Project) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO projects(name,slug,description,status,icon,color,url,staging_url,github_url,docs_url,tech_stack,api_details,credentials,contacts,notes,quick_reference,position,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.Name, p.Slug, nullable(p.Description), p.Status, nullable(p.Icon), p.Color,
		nullable(p.URL), nullable(p.StagingURL), nullable(p.GithubURL), nullable(p.DocsURL),
		encodeStringSlice(p.TechStack), encodeJSON(p.APIDetails), encodeJSON(p.Credentials), encodeJSON(p.Contacts),
		nullable(p.Notes), nullable(p.QuickReference), p.Position, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetProject(ctx context.Context, id int64) (domain.Project, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id)
	p, err := scanProject(row.Scan)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r Repo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY position ASC, created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) UpdateProject(ctx context.Context, p domain.Project) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE projects SET name=?, slug=?, description=?, status=?, icon=?, color=?, url=?, staging_url=?, github_url=?, docs_url=?, tech_stack=?, api_details=?, credentials=?, contacts=?, notes=?, quick_reference=?, position=?, updated_at=? WHERE id=?`,
		p.Name, p.Slug, nullable(p.Description), p.Status, nullable(p.Icon), p.Color,
		nullable(p.URL), nullable(p.StagingURL), nullable(p.GithubURL), nullable(p.DocsURL),
		encodeStringSlice(p.TechStack), encodeJSON(p.APIDetails), encodeJSON(p.Credentials), encodeJSON(p.Contacts),
		nullable(p.Notes), nullable(p.QuickReference), p.Position, p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProject removes the row. Callers detach tasks first in the same
// transaction; see Engine.DeleteProject.
func (r Repo) DeleteProject(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SlugExists reports whether another project already uses the slug.
func (r Repo) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE slug=? AND id<>?`, slug, excludeID).Scan(&n)
	return n > 0, err
}

func (r Repo) MaxProjectPosition(ctx context.Context, tx *sql.Tx) (int, bool, error) {
	var max sql.NullInt64
	err := tx.QueryRowContext(ctx, `SELECT MAX(position) FROM projects`).Scan(&max)
	if err != nil {
		return 0, false, err
	}
	return int(max.Int64), max.Valid, nil
}

// PlaceProject sets the global position of one project inside a batch
// reorder. Returns false when the id matches no row.
func (r Repo) PlaceProject(ctx context.Context, tx *sql.Tx, id int64, position int, now string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE projects SET position=?, updated_at=? WHERE id=?`, position, now, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
