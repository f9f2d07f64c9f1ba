package engine

import (
	"context"
	"fmt"
	"strings"

	"deskhand/internal/domain"
	"deskhand/internal/repo"
)

// Slugify lowercases the name and collapses every non-alphanumeric run
// into a single hyphen, with no leading or trailing hyphen.
func Slugify(name string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}
	return b.String()
}

// uniqueSlug appends a numeric suffix until the slug is free.
func (e Engine) uniqueSlug(ctx context.Context, base string, excludeID int64) (string, error) {
	if base == "" {
		base = "project"
	}
	slug := base
	for i := 2; ; i++ {
		taken, err := e.Repo.SlugExists(ctx, slug, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

type ProjectCreateOptions struct {
	Name           string
	Description    string
	Status         string
	Icon           string
	Color          string
	URL            string
	StagingURL     string
	GithubURL      string
	DocsURL        string
	TechStack      []string
	APIDetails     map[string]any
	Credentials    map[string]any
	Contacts       []any
	Notes          string
	QuickReference string
	Position       *int
}

func validateProjectFields(fe fieldErrors, name, status *string, urls map[string]*string) {
	if name != nil {
		if strings.TrimSpace(*name) == "" {
			fe["name"] = "name is required"
		} else if len(*name) > maxTitleLen {
			fe["name"] = fmt.Sprintf("name must be at most %d characters", maxTitleLen)
		}
	}
	if status != nil && *status != "" && !isEnumMember(domain.ProjectStatuses, *status) {
		fe["status"] = "status must be one of " + strings.Join(domain.ProjectStatuses, ", ")
	}
	for field, value := range urls {
		if value != nil && *value != "" && !strings.HasPrefix(*value, "http://") && !strings.HasPrefix(*value, "https://") {
			fe[field] = field + " must be an http(s) URL"
		}
	}
}

// CreateProject derives the slug from the name and appends the project to
// the end of the global ordering unless a position is supplied.
func (e Engine) CreateProject(ctx context.Context, opts ProjectCreateOptions) (domain.Project, error) {
	if opts.Status == "" {
		opts.Status = "active"
	}
	if opts.Color == "" {
		opts.Color = "#13b6ec"
	}
	fe := fieldErrors{}
	validateProjectFields(fe, &opts.Name, &opts.Status, map[string]*string{
		"url": &opts.URL, "staging_url": &opts.StagingURL, "github_url": &opts.GithubURL, "docs_url": &opts.DocsURL,
	})
	if err := fe.err(); err != nil {
		return domain.Project{}, err
	}
	slug, err := e.uniqueSlug(ctx, Slugify(opts.Name), 0)
	if err != nil {
		return domain.Project{}, err
	}

	now := e.nowString()
	p := domain.Project{
		Name:           opts.Name,
		Slug:           slug,
		Description:    opts.Description,
		Status:         opts.Status,
		Icon:           opts.Icon,
		Color:          opts.Color,
		URL:            opts.URL,
		StagingURL:     opts.StagingURL,
		GithubURL:      opts.GithubURL,
		DocsURL:        opts.DocsURL,
		TechStack:      opts.TechStack,
		APIDetails:     opts.APIDetails,
		Credentials:    opts.Credentials,
		Contacts:       opts.Contacts,
		Notes:          opts.Notes,
		QuickReference: opts.QuickReference,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()
	if opts.Position != nil {
		p.Position = *opts.Position
	} else {
		pos, err := e.nextProjectPosition(ctx, tx)
		if err != nil {
			return domain.Project{}, err
		}
		p.Position = pos
	}
	p.ID, err = e.Repo.InsertProject(ctx, tx, p)
	if err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// ProjectPatch mirrors TaskPatch: explicit allow-list, nil means not
// supplied. Renaming re-derives the slug.
type ProjectPatch struct {
	Name           *string
	Description    *string
	Status         *string
	Icon           *string
	Color          *string
	URL            *string
	StagingURL     *string
	GithubURL      *string
	DocsURL        *string
	TechStack      []string
	TechStackSet   bool
	APIDetails     map[string]any
	APIDetailsSet  bool
	Credentials    map[string]any
	CredentialsSet bool
	Contacts       []any
	ContactsSet    bool
	Notes          *string
	QuickReference *string
	Position       *int
}

func (e Engine) UpdateProject(ctx context.Context, id int64, patch ProjectPatch) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, id)
	if err != nil {
		return domain.Project{}, err
	}

	fe := fieldErrors{}
	validateProjectFields(fe, patch.Name, patch.Status, map[string]*string{
		"url": patch.URL, "staging_url": patch.StagingURL, "github_url": patch.GithubURL, "docs_url": patch.DocsURL,
	})
	if err := fe.err(); err != nil {
		return domain.Project{}, err
	}

	if patch.Name != nil && *patch.Name != p.Name {
		p.Name = *patch.Name
		slug, err := e.uniqueSlug(ctx, Slugify(p.Name), p.ID)
		if err != nil {
			return domain.Project{}, err
		}
		p.Slug = slug
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Status != nil && *patch.Status != "" {
		p.Status = *patch.Status
	}
	if patch.Icon != nil {
		p.Icon = *patch.Icon
	}
	if patch.Color != nil && *patch.Color != "" {
		p.Color = *patch.Color
	}
	if patch.URL != nil {
		p.URL = *patch.URL
	}
	if patch.StagingURL != nil {
		p.StagingURL = *patch.StagingURL
	}
	if patch.GithubURL != nil {
		p.GithubURL = *patch.GithubURL
	}
	if patch.DocsURL != nil {
		p.DocsURL = *patch.DocsURL
	}
	if patch.TechStackSet {
		p.TechStack = patch.TechStack
	}
	if patch.APIDetailsSet {
		p.APIDetails = patch.APIDetails
	}
	if patch.CredentialsSet {
		p.Credentials = patch.Credentials
	}
	if patch.ContactsSet {
		p.Contacts = patch.Contacts
	}
	if patch.Notes != nil {
		p.Notes = *patch.Notes
	}
	if patch.QuickReference != nil {
		p.QuickReference = *patch.QuickReference
	}
	if patch.Position != nil {
		p.Position = *patch.Position
	}
	p.UpdatedAt = e.nowString()

	if err := e.Repo.UpdateProject(ctx, p); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// DeleteProject detaches tasks and removes the project in one transaction.
// Tasks survive with project_id nulled; the relation is not an ownership.
func (e Engine) DeleteProject(ctx context.Context, id int64) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.ClearTaskProject(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Repo.DeleteProject(ctx, tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

// ProjectWithTasks loads a project and its live tasks in board order.
func (e Engine) ProjectWithTasks(ctx context.Context, id int64) (domain.Project, []domain.Task, error) {
	p, err := e.Repo.GetProject(ctx, id)
	if err != nil {
		return domain.Project{}, nil, err
	}
	tasks, err := e.Repo.ListTasks(ctx, repo.TaskFilters{ProjectID: p.ID})
	if err != nil {
		return domain.Project{}, nil, err
	}
	return p, tasks, nil
}
