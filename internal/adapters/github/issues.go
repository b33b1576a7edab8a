package github

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/archestra-ai/reputation-bot/internal/domain/model"
)

const maxReactionPages = 10

// SearchItem is one issue or pull request from the search API.
type SearchItem struct {
	Number        int
	Author        string
	State         string
	IsPullRequest bool
	Merged        bool
}

// SearchResult holds up to the requested number of items and GitHub's total.
type SearchResult struct {
	Total int
	Items []SearchItem
}

type searchResponse struct {
	TotalCount int `json:"total_count"`
	Items      []struct {
		Number      int    `json:"number"`
		State       string `json:"state"`
		User        *user  `json:"user"`
		PullRequest *struct {
			MergedAt *time.Time `json:"merged_at"`
		} `json:"pull_request"`
	} `json:"items"`
}

type user struct {
	Login string `json:"login"`
}

func (u *user) login() string {
	if u == nil {
		return ""
	}
	return u.Login
}

// SearchIssues runs an issue search and collects up to limit items.
// A limit of 1 is enough when only Total is needed.
func (c *Client) SearchIssues(ctx context.Context, query string, limit int) (SearchResult, error) {
	var res SearchResult
	size := perPage(limit)
	for page := 1; ; page++ {
		q := url.Values{
			"q":        {query},
			"per_page": {strconv.Itoa(size)},
			"page":     {strconv.Itoa(page)},
		}
		var resp searchResponse
		if err := c.do(ctx, "search_issues", http.MethodGet, "/search/issues", q, nil, &resp); err != nil {
			return SearchResult{}, err
		}
		res.Total = resp.TotalCount
		for _, it := range resp.Items {
			item := SearchItem{
				Number:        it.Number,
				Author:        it.User.login(),
				State:         it.State,
				IsPullRequest: it.PullRequest != nil,
			}
			if it.PullRequest != nil && it.PullRequest.MergedAt != nil {
				item.Merged = true
			}
			res.Items = append(res.Items, item)
			if limit > 0 && len(res.Items) >= limit {
				return res, nil
			}
		}
		if len(resp.Items) < size {
			return res, nil
		}
	}
}

// ListReactions returns the reactions on an issue or pull request body.
func (c *Client) ListReactions(ctx context.Context, number int) ([]model.Reaction, error) {
	var out []model.Reaction
	for page := 1; page <= maxReactionPages; page++ {
		q := url.Values{
			"per_page": {strconv.Itoa(maxPerPage)},
			"page":     {strconv.Itoa(page)},
		}
		var resp []struct {
			ID      int64  `json:"id"`
			User    *user  `json:"user"`
			Content string `json:"content"`
		}
		if err := c.do(ctx, "list_reactions", http.MethodGet, c.repoPath("/issues/%d/reactions", number), q, nil, &resp); err != nil {
			return nil, err
		}
		for _, r := range resp {
			out = append(out, model.Reaction{
				ID:      r.ID,
				User:    r.User.login(),
				Content: r.Content,
				Source:  model.SourceBody,
			})
		}
		if len(resp) < maxPerPage {
			break
		}
	}
	return out, nil
}
