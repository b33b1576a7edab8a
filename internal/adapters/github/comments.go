package github

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/archestra-ai/reputation-bot/internal/domain/model"
)

type commentResponse struct {
	ID   int64  `json:"id"`
	User *user  `json:"user"`
	Body string `json:"body"`
}

func (r commentResponse) model() model.Comment {
	return model.Comment{ID: r.ID, Author: r.User.login(), Body: r.Body}
}

// ListComments returns up to limit conversation comments, oldest first.
func (c *Client) ListComments(ctx context.Context, number, limit int) ([]model.Comment, error) {
	var out []model.Comment
	size := perPage(limit)
	for page := 1; ; page++ {
		q := url.Values{
			"per_page": {strconv.Itoa(size)},
			"page":     {strconv.Itoa(page)},
		}
		var resp []commentResponse
		if err := c.do(ctx, "list_comments", http.MethodGet, c.repoPath("/issues/%d/comments", number), q, nil, &resp); err != nil {
			return nil, err
		}
		for _, r := range resp {
			out = append(out, r.model())
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
		if len(resp) < size {
			return out, nil
		}
	}
}

// CreateComment posts a new comment on an issue or pull request.
func (c *Client) CreateComment(ctx context.Context, number int, body string) (model.Comment, error) {
	var resp commentResponse
	in := map[string]string{"body": body}
	if err := c.do(ctx, "create_comment", http.MethodPost, c.repoPath("/issues/%d/comments", number), nil, in, &resp); err != nil {
		return model.Comment{}, err
	}
	return resp.model(), nil
}

// UpdateComment replaces the body of an existing comment.
func (c *Client) UpdateComment(ctx context.Context, id int64, body string) (model.Comment, error) {
	var resp commentResponse
	in := map[string]string{"body": body}
	if err := c.do(ctx, "update_comment", http.MethodPatch, c.repoPath("/issues/comments/%d", id), nil, in, &resp); err != nil {
		return model.Comment{}, err
	}
	return resp.model(), nil
}
