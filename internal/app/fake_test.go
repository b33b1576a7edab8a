package service_test

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/archestra-ai/reputation-bot/internal/adapters/github"
	"github.com/archestra-ai/reputation-bot/internal/domain/model"
)

// fakeGitHub is an in-memory stand-in for the REST client.
type fakeGitHub struct {
	mu sync.Mutex

	login     string
	prs       map[string][]github.SearchItem
	issues    map[string][]github.SearchItem
	commented map[string]int
	reactions map[int][]model.Reaction
	comments  map[int][]model.Comment
	nextID    int64

	searchErr error
	listErr   error
	createErr error
	gate      chan struct{} // when set, searches wait for it

	creates       int
	updates       int
	reactionCalls []int
}

func newFakeGitHub() *fakeGitHub {
	return &fakeGitHub{
		login:     "repbot[bot]",
		prs:       make(map[string][]github.SearchItem),
		issues:    make(map[string][]github.SearchItem),
		commented: make(map[string]int),
		reactions: make(map[int][]model.Reaction),
		comments:  make(map[int][]model.Comment),
		nextID:    1000,
	}
}

func (f *fakeGitHub) SearchIssues(ctx context.Context, query string, limit int) (github.SearchResult, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return github.SearchResult{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return github.SearchResult{}, f.searchErr
	}

	var login, kind string
	commenter := false
	for _, field := range strings.Fields(query) {
		switch {
		case strings.HasPrefix(field, "author:"):
			login = strings.TrimPrefix(field, "author:")
		case strings.HasPrefix(field, "commenter:"):
			login = strings.TrimPrefix(field, "commenter:")
			commenter = true
		case strings.HasPrefix(field, "is:"):
			kind = strings.TrimPrefix(field, "is:")
		}
	}

	if commenter {
		return github.SearchResult{Total: f.commented[login]}, nil
	}
	items := f.issues[login]
	if kind == "pr" {
		items = f.prs[login]
	}
	res := github.SearchResult{Total: len(items)}
	for _, it := range items {
		if limit > 0 && len(res.Items) >= limit {
			break
		}
		res.Items = append(res.Items, it)
	}
	return res, nil
}

func (f *fakeGitHub) ListReactions(_ context.Context, number int) ([]model.Reaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactionCalls = append(f.reactionCalls, number)
	return f.reactions[number], nil
}

func (f *fakeGitHub) ListComments(_ context.Context, number, limit int) ([]model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	cs := f.comments[number]
	if limit > 0 && len(cs) > limit {
		cs = cs[:limit]
	}
	return append([]model.Comment(nil), cs...), nil
}

func (f *fakeGitHub) CreateComment(_ context.Context, number int, body string) (model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return model.Comment{}, f.createErr
	}
	f.nextID++
	c := model.Comment{ID: f.nextID, Author: f.login, Body: body}
	f.comments[number] = append(f.comments[number], c)
	f.creates++
	return c, nil
}

func (f *fakeGitHub) UpdateComment(_ context.Context, id int64, body string) (model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for n, cs := range f.comments {
		for i := range cs {
			if cs[i].ID == id {
				f.comments[n][i].Body = body
				f.updates++
				return f.comments[n][i], nil
			}
		}
	}
	return model.Comment{}, &github.APIError{Operation: "update_comment", StatusCode: http.StatusNotFound, Message: "Not Found"}
}

func (f *fakeGitHub) AuthenticatedLogin(context.Context) (string, error) {
	return f.login, nil
}

func (f *fakeGitHub) addComment(number int, author, body string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.comments[number] = append(f.comments[number], model.Comment{ID: f.nextID, Author: author, Body: body})
	return f.nextID
}

func (f *fakeGitHub) threadComments(number int) []model.Comment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Comment(nil), f.comments[number]...)
}

func pr(number int, author, state string, merged bool) github.SearchItem {
	return github.SearchItem{Number: number, Author: author, State: state, IsPullRequest: true, Merged: merged}
}

func issue(number int, author string) github.SearchItem {
	return github.SearchItem{Number: number, Author: author, State: "open"}
}

func upvote(user string) model.Reaction {
	return model.Reaction{User: user, Content: model.ReactionPlusOne, Source: model.SourceBody}
}
