package engine

import (
	"context"
	"database/sql"
	"strings"

	"deskhand/internal/domain"
)

// nextTaskPosition returns max(position)+1 within the (board, status)
// partition, or 0 for an empty partition. Duplicate positions from racing
// writers are tolerated: reads break ties on creation time.
func (e Engine) nextTaskPosition(ctx context.Context, tx *sql.Tx, board, status string) (int, error) {
	max, ok, err := e.Repo.MaxTaskPosition(ctx, tx, board, status)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return max + 1, nil
}

func (e Engine) nextProjectPosition(ctx context.Context, tx *sql.Tx) (int, error) {
	max, ok, err := e.Repo.MaxProjectPosition(ctx, tx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return max + 1, nil
}

func (e Engine) nextRoutinePosition(ctx context.Context, tx *sql.Tx) (int, error) {
	max, ok, err := e.Repo.MaxRoutinePosition(ctx, tx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return max + 1, nil
}

// TaskPlacement is one entry of a board reconciliation batch: the client
// sends the full desired (status, position) for every task it laid out.
type TaskPlacement struct {
	ID       int64
	Status   string
	Position int
}

// ReorderTasks applies a reconciliation batch in one transaction. The
// server recomputes nothing: the client's snapshot is trusted as-is.
// Entries naming unknown or tombstoned ids are skipped and reported back;
// the rest of the batch still commits.
func (e Engine) ReorderTasks(ctx context.Context, entries []TaskPlacement) (missing []int64, err error) {
	fe := fieldErrors{}
	for _, entry := range entries {
		if !isEnumMember(domain.TaskStatuses, entry.Status) {
			fe["status"] = "status must be one of " + strings.Join(domain.TaskStatuses, ", ")
		}
	}
	if err := fe.err(); err != nil {
		return nil, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	now := e.nowString()
	for _, entry := range entries {
		ok, err := e.Repo.PlaceTask(ctx, tx, entry.ID, entry.Status, entry.Position, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, entry.ID)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return missing, nil
}

// ProjectPlacement is one entry of a project list reorder.
type ProjectPlacement struct {
	ID       int64
	Position int
}

// ReorderProjects mirrors ReorderTasks for the global project ordering.
func (e Engine) ReorderProjects(ctx context.Context, entries []ProjectPlacement) (missing []int64, err error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	now := e.nowString()
	for _, entry := range entries {
		ok, err := e.Repo.PlaceProject(ctx, tx, entry.ID, entry.Position, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, entry.ID)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return missing, nil
}
