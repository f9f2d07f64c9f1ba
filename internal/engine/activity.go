package engine

import (
	"context"
	"strings"

	"deskhand/internal/activity"
	"deskhand/internal/domain"
)

const (
	defaultActivityPerPage = 50
	maxActivityPerPage     = 100
)

type ActivityOptions struct {
	Type        string
	Title       string
	Description string
	Agent       string
	Metadata    map[string]any
}

// AppendActivity validates and writes one feed entry. Entries are never
// updated or deleted after this.
func (e Engine) AppendActivity(ctx context.Context, opts ActivityOptions) (domain.ActivityLog, error) {
	fe := fieldErrors{}
	if !isEnumMember(domain.ActivityTypes, opts.Type) {
		fe["type"] = "type must be one of " + strings.Join(domain.ActivityTypes, ", ")
	}
	if strings.TrimSpace(opts.Title) == "" {
		fe["title"] = "title is required"
	}
	if err := fe.err(); err != nil {
		return domain.ActivityLog{}, err
	}
	return e.Activity.Append(ctx, domain.ActivityLog{
		Type:        opts.Type,
		Title:       opts.Title,
		Description: opts.Description,
		Agent:       opts.Agent,
		Metadata:    opts.Metadata,
	})
}

func (e Engine) QueryActivity(ctx context.Context, f activity.QueryFilters, page, perPage int) (activity.Page, error) {
	if perPage <= 0 {
		perPage = defaultActivityPerPage
	}
	if perPage > maxActivityPerPage {
		perPage = maxActivityPerPage
	}
	return e.Activity.Query(ctx, f, page, perPage)
}
