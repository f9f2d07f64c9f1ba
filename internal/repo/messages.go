package repo

import (
	"context"
	"database/sql"
	"strings"

	"deskhand/internal/domain"
)

const messageColumns = `id,from_agent,to_agent,message,response,created_at,updated_at`

func scanMessage(scan func(dest ...any) error) (domain.AgentMessage, error) {
	var m domain.AgentMessage
	var response sql.NullString
	err := scan(&m.ID, &m.FromAgent, &m.ToAgent, &m.Message, &response, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return m, err
	}
	if response.Valid {
		m.Response = &response.String
	}
	return m, nil
}

func (r Repo) InsertMessage(ctx context.Context, m domain.AgentMessage) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO agent_messages(from_agent,to_agent,message,response,created_at,updated_at) VALUES (?,?,?,?,?,?)`,
		m.FromAgent, m.ToAgent, m.Message, nullableStringPtr(m.Response), m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetMessage(ctx context.Context, id int64) (domain.AgentMessage, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM agent_messages WHERE id=?`, id)
	m, err := scanMessage(row.Scan)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	return m, err
}

type MessageFilters struct {
	ToAgent    string
	FromAgent  string
	Unanswered bool
}

func (r Repo) ListMessages(ctx context.Context, f MessageFilters) ([]domain.AgentMessage, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.ToAgent != "" {
		clauses = append(clauses, "to_agent=?")
		args = append(args, f.ToAgent)
	}
	if f.FromAgent != "" {
		clauses = append(clauses, "from_agent=?")
		args = append(args, f.FromAgent)
	}
	if f.Unanswered {
		clauses = append(clauses, "response IS NULL")
	}
	query := `SELECT ` + messageColumns + ` FROM agent_messages WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.AgentMessage
	for rows.Next() {
		m, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// SetMessageResponse records the reply on an existing message.
func (r Repo) SetMessageResponse(ctx context.Context, id int64, response, now string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE agent_messages SET response=?, updated_at=? WHERE id=?`, response, now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
