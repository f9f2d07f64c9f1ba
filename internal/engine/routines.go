package engine

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"deskhand/internal/domain"
)

type RoutineCreateOptions struct {
	Title        string
	Description  string
	ScheduleTime string
	ScheduleType string
	Frequency    string
	AssignedTo   string
	Enabled      *bool
	Category     string
	Position     *int
}

func (e Engine) validateRoutineFields(fe fieldErrors, title, scheduleTime, scheduleType, category, assignedTo *string) {
	if title != nil {
		if strings.TrimSpace(*title) == "" {
			fe["title"] = "title is required"
		} else if len(*title) > maxTitleLen {
			fe["title"] = fmt.Sprintf("title must be at most %d characters", maxTitleLen)
		}
	}
	// schedule_time is a free-form label ("09:00", "07:00-22:00"); it is
	// stored verbatim, never parsed as a clock time.
	if scheduleTime != nil && strings.TrimSpace(*scheduleTime) == "" {
		fe["schedule_time"] = "schedule_time is required"
	}
	if scheduleType != nil && !isEnumMember(domain.RoutineScheduleTypes, *scheduleType) {
		fe["schedule_type"] = "schedule_type must be one of " + strings.Join(domain.RoutineScheduleTypes, ", ")
	}
	if category != nil && !isEnumMember(domain.RoutineCategories, *category) {
		fe["category"] = "category must be one of " + strings.Join(domain.RoutineCategories, ", ")
	}
	if assignedTo != nil && *assignedTo != "" && !e.Config.IsUser(*assignedTo) {
		fe["assigned_to"] = "assigned_to must be one of " + strings.Join(e.Config.Board.Users, ", ")
	}
}

func (e Engine) CreateRoutine(ctx context.Context, opts RoutineCreateOptions) (domain.ScheduledRoutine, error) {
	if opts.AssignedTo == "" {
		opts.AssignedTo = "alex"
	}
	fe := fieldErrors{}
	e.validateRoutineFields(fe, &opts.Title, &opts.ScheduleTime, &opts.ScheduleType, &opts.Category, &opts.AssignedTo)
	if err := fe.err(); err != nil {
		return domain.ScheduledRoutine{}, err
	}

	now := e.nowString()
	rt := domain.ScheduledRoutine{
		Title:        opts.Title,
		Description:  opts.Description,
		ScheduleTime: opts.ScheduleTime,
		ScheduleType: opts.ScheduleType,
		Frequency:    opts.Frequency,
		AssignedTo:   opts.AssignedTo,
		Enabled:      true,
		Category:     opts.Category,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if opts.Enabled != nil {
		rt.Enabled = *opts.Enabled
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ScheduledRoutine{}, err
	}
	defer tx.Rollback()
	if opts.Position != nil {
		rt.Position = *opts.Position
	} else {
		pos, err := e.nextRoutinePosition(ctx, tx)
		if err != nil {
			return domain.ScheduledRoutine{}, err
		}
		rt.Position = pos
	}
	rt.ID, err = e.Repo.InsertRoutine(ctx, tx, rt)
	if err != nil {
		return domain.ScheduledRoutine{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.ScheduledRoutine{}, err
	}
	return rt, nil
}

type RoutinePatch struct {
	Title        *string
	Description  *string
	ScheduleTime *string
	ScheduleType *string
	Frequency    *string
	AssignedTo   *string
	Enabled      *bool
	Category     *string
	Position     *int
}

func (e Engine) UpdateRoutine(ctx context.Context, id int64, patch RoutinePatch) (domain.ScheduledRoutine, error) {
	rt, err := e.Repo.GetRoutine(ctx, id)
	if err != nil {
		return domain.ScheduledRoutine{}, err
	}

	fe := fieldErrors{}
	e.validateRoutineFields(fe, patch.Title, patch.ScheduleTime, patch.ScheduleType, patch.Category, patch.AssignedTo)
	if err := fe.err(); err != nil {
		return domain.ScheduledRoutine{}, err
	}

	if patch.Title != nil {
		rt.Title = *patch.Title
	}
	if patch.Description != nil {
		rt.Description = *patch.Description
	}
	if patch.ScheduleTime != nil {
		rt.ScheduleTime = *patch.ScheduleTime
	}
	if patch.ScheduleType != nil {
		rt.ScheduleType = *patch.ScheduleType
	}
	if patch.Frequency != nil {
		rt.Frequency = *patch.Frequency
	}
	if patch.AssignedTo != nil && *patch.AssignedTo != "" {
		rt.AssignedTo = *patch.AssignedTo
	}
	if patch.Enabled != nil {
		rt.Enabled = *patch.Enabled
	}
	if patch.Category != nil {
		rt.Category = *patch.Category
	}
	if patch.Position != nil {
		rt.Position = *patch.Position
	}
	rt.UpdatedAt = e.nowString()

	if err := e.Repo.UpdateRoutine(ctx, rt); err != nil {
		return domain.ScheduledRoutine{}, err
	}
	return rt, nil
}

// ToggleRoutine flips enabled and nothing else. The UI calls this from a
// single switch without resending the record.
func (e Engine) ToggleRoutine(ctx context.Context, id int64) (domain.ScheduledRoutine, error) {
	rt, err := e.Repo.GetRoutine(ctx, id)
	if err != nil {
		return domain.ScheduledRoutine{}, err
	}
	if err := e.Repo.SetRoutineEnabled(ctx, id, !rt.Enabled, e.nowString()); err != nil {
		return domain.ScheduledRoutine{}, err
	}
	return e.Repo.GetRoutine(ctx, id)
}

func (e Engine) DeleteRoutine(ctx context.Context, id int64) error {
	return e.Repo.DeleteRoutine(ctx, id)
}

func (e Engine) ListRoutines(ctx context.Context, category string) ([]domain.ScheduledRoutine, error) {
	return e.Repo.ListRoutines(ctx, category)
}

type routineSeedFile struct {
	Routines []struct {
		Title        string `yaml:"title"`
		Description  string `yaml:"description"`
		ScheduleTime string `yaml:"schedule_time"`
		ScheduleType string `yaml:"schedule_type"`
		Frequency    string `yaml:"frequency"`
		AssignedTo   string `yaml:"assigned_to"`
		Enabled      *bool  `yaml:"enabled"`
		Category     string `yaml:"category"`
	} `yaml:"routines"`
}

// SeedRoutines imports routines from a YAML file, in file order. Used for
// first-run setup; every entry goes through the normal create path.
func (e Engine) SeedRoutines(ctx context.Context, data []byte) ([]domain.ScheduledRoutine, error) {
	var seed routineSeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("invalid routine seed yaml: %w", err)
	}
	var created []domain.ScheduledRoutine
	for i, entry := range seed.Routines {
		rt, err := e.CreateRoutine(ctx, RoutineCreateOptions{
			Title:        entry.Title,
			Description:  entry.Description,
			ScheduleTime: entry.ScheduleTime,
			ScheduleType: entry.ScheduleType,
			Frequency:    entry.Frequency,
			AssignedTo:   entry.AssignedTo,
			Enabled:      entry.Enabled,
			Category:     entry.Category,
		})
		if err != nil {
			return created, fmt.Errorf("seed routine %d (%s): %w", i+1, entry.Title, err)
		}
		created = append(created, rt)
	}
	return created, nil
}
