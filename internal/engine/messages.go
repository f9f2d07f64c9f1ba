package engine

import (
	"context"
	"strings"

	"deskhand/internal/domain"
	"deskhand/internal/repo"
)

type MessageCreateOptions struct {
	FromAgent string
	ToAgent   string
	Message   string
}

func (e Engine) CreateMessage(ctx context.Context, opts MessageCreateOptions) (domain.AgentMessage, error) {
	fe := fieldErrors{}
	if strings.TrimSpace(opts.FromAgent) == "" {
		fe["from_agent"] = "from_agent is required"
	}
	if strings.TrimSpace(opts.ToAgent) == "" {
		fe["to_agent"] = "to_agent is required"
	}
	if strings.TrimSpace(opts.Message) == "" {
		fe["message"] = "message is required"
	}
	if err := fe.err(); err != nil {
		return domain.AgentMessage{}, err
	}

	now := e.nowString()
	m := domain.AgentMessage{
		FromAgent: opts.FromAgent,
		ToAgent:   opts.ToAgent,
		Message:   opts.Message,
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := e.Repo.InsertMessage(ctx, m)
	if err != nil {
		return domain.AgentMessage{}, err
	}
	m.ID = id
	return m, nil
}

// RespondMessage attaches a response to an existing message. A second
// response overwrites the first; the thread is one question, one answer.
func (e Engine) RespondMessage(ctx context.Context, id int64, response string) (domain.AgentMessage, error) {
	if strings.TrimSpace(response) == "" {
		return domain.AgentMessage{}, ValidationError{Fields: map[string]string{"response": "response is required"}}
	}
	if err := e.Repo.SetMessageResponse(ctx, id, response, e.nowString()); err != nil {
		return domain.AgentMessage{}, err
	}
	return e.Repo.GetMessage(ctx, id)
}

func (e Engine) ListMessages(ctx context.Context, f repo.MessageFilters) ([]domain.AgentMessage, error) {
	return e.Repo.ListMessages(ctx, f)
}
