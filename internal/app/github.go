package service

import (
	"context"

	"github.com/archestra-ai/reputation-bot/internal/adapters/github"
	"github.com/archestra-ai/reputation-bot/internal/domain/model"
)

// GitHub is the subset of the REST client the service depends on.
type GitHub interface {
	SearchIssues(ctx context.Context, query string, limit int) (github.SearchResult, error)
	ListReactions(ctx context.Context, number int) ([]model.Reaction, error)
	ListComments(ctx context.Context, number, limit int) ([]model.Comment, error)
	CreateComment(ctx context.Context, number int, body string) (model.Comment, error)
	UpdateComment(ctx context.Context, id int64, body string) (model.Comment, error)
	AuthenticatedLogin(ctx context.Context) (string, error)
}

var _ GitHub = (*github.Client)(nil)
