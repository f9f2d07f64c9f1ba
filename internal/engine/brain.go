package engine

import (
	"context"
	"fmt"
	"strings"

	"deskhand/internal/domain"
	"deskhand/internal/repo"
)

type BrainCreateOptions struct {
	Title    string
	Content  string
	Category string
	Tags     []string
	Agent    string
	Source   string
	Pinned   bool
}

func validateBrainFields(fe fieldErrors, title *string, tags []string, tagsSet bool) {
	if title != nil {
		if strings.TrimSpace(*title) == "" {
			fe["title"] = "title is required"
		} else if len(*title) > maxTitleLen {
			fe["title"] = fmt.Sprintf("title must be at most %d characters", maxTitleLen)
		}
	}
	if tagsSet {
		for _, tag := range tags {
			if len(tag) > maxTagLen {
				fe["tags"] = fmt.Sprintf("each tag must be at most %d characters", maxTagLen)
				break
			}
		}
	}
}

func (e Engine) CreateBrainEntry(ctx context.Context, opts BrainCreateOptions) (domain.BrainEntry, error) {
	fe := fieldErrors{}
	validateBrainFields(fe, &opts.Title, opts.Tags, true)
	if strings.TrimSpace(opts.Content) == "" {
		fe["content"] = "content is required"
	}
	if err := fe.err(); err != nil {
		return domain.BrainEntry{}, err
	}

	now := e.nowString()
	b := domain.BrainEntry{
		Title:     opts.Title,
		Content:   opts.Content,
		Category:  opts.Category,
		Tags:      opts.Tags,
		Agent:     opts.Agent,
		Source:    opts.Source,
		Pinned:    opts.Pinned,
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := e.Repo.InsertBrainEntry(ctx, b)
	if err != nil {
		return domain.BrainEntry{}, err
	}
	b.ID = id
	return b, nil
}

type BrainPatch struct {
	Title    *string
	Content  *string
	Category *string
	Tags     []string
	TagsSet  bool
	Agent    *string
	Source   *string
	Pinned   *bool
	Archived *bool
}

func (e Engine) UpdateBrainEntry(ctx context.Context, id int64, patch BrainPatch) (domain.BrainEntry, error) {
	b, err := e.Repo.GetBrainEntry(ctx, id)
	if err != nil {
		return domain.BrainEntry{}, err
	}

	fe := fieldErrors{}
	validateBrainFields(fe, patch.Title, patch.Tags, patch.TagsSet)
	if patch.Content != nil && strings.TrimSpace(*patch.Content) == "" {
		fe["content"] = "content is required"
	}
	if err := fe.err(); err != nil {
		return domain.BrainEntry{}, err
	}

	if patch.Title != nil {
		b.Title = *patch.Title
	}
	if patch.Content != nil {
		b.Content = *patch.Content
	}
	if patch.Category != nil {
		b.Category = *patch.Category
	}
	if patch.TagsSet {
		b.Tags = patch.Tags
	}
	if patch.Agent != nil {
		b.Agent = *patch.Agent
	}
	if patch.Source != nil {
		b.Source = *patch.Source
	}
	if patch.Pinned != nil {
		b.Pinned = *patch.Pinned
	}
	if patch.Archived != nil {
		b.Archived = *patch.Archived
	}
	b.UpdatedAt = e.nowString()

	if err := e.Repo.UpdateBrainEntry(ctx, b); err != nil {
		return domain.BrainEntry{}, err
	}
	return b, nil
}

func (e Engine) PinBrainEntry(ctx context.Context, id int64, pinned bool) (domain.BrainEntry, error) {
	if err := e.Repo.SetBrainPinned(ctx, id, pinned, e.nowString()); err != nil {
		return domain.BrainEntry{}, err
	}
	return e.Repo.GetBrainEntry(ctx, id)
}

func (e Engine) ArchiveBrainEntry(ctx context.Context, id int64, archived bool) (domain.BrainEntry, error) {
	if err := e.Repo.SetBrainArchived(ctx, id, archived, e.nowString()); err != nil {
		return domain.BrainEntry{}, err
	}
	return e.Repo.GetBrainEntry(ctx, id)
}

func (e Engine) DeleteBrainEntry(ctx context.Context, id int64) error {
	return e.Repo.DeleteBrainEntry(ctx, id)
}

func (e Engine) ListBrainEntries(ctx context.Context, f repo.BrainFilters) ([]domain.BrainEntry, error) {
	return e.Repo.ListBrainEntries(ctx, f)
}
