package sender

import (
	"encoding/json"
	"fmt"
	"time"
)

// Delivery is one webhook ready to post.
type Delivery struct {
	Event string
	Body  []byte
}

type user struct {
	Login string `json:"login"`
}

type repository struct {
	FullName string `json:"full_name"`
}

func build(event string, v any) (Delivery, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Delivery{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return Delivery{Event: event, Body: body}, nil
}

// Ping builds the delivery GitHub sends when a hook is created.
func Ping() (Delivery, error) {
	return build("ping", map[string]any{
		"zen":     "Keep it logically awesome.",
		"hook_id": 1,
	})
}

// PullRequest builds a pull_request delivery. merged only matters for "closed".
func PullRequest(repo string, number int, author, action string, merged bool) (Delivery, error) {
	now := time.Now().UTC()
	pr := map[string]any{
		"number":     number,
		"user":       user{Login: author},
		"state":      "open",
		"merged":     merged,
		"updated_at": now,
	}
	if action == "closed" {
		pr["state"] = "closed"
		if merged {
			pr["merged_at"] = now
		}
	}
	return build("pull_request", map[string]any{
		"action":       action,
		"number":       number,
		"pull_request": pr,
		"repository":   repository{FullName: repo},
		"sender":       user{Login: author},
	})
}

// Issue builds an issues delivery.
func Issue(repo string, number int, author, action string) (Delivery, error) {
	return build("issues", map[string]any{
		"action": action,
		"issue": map[string]any{
			"number":     number,
			"user":       user{Login: author},
			"updated_at": time.Now().UTC(),
		},
		"repository": repository{FullName: repo},
		"sender":     user{Login: author},
	})
}

// IssueComment builds an issue_comment "created" delivery. onPR marks the
// thread as a pull request conversation.
func IssueComment(repo string, number int, threadAuthor, commenter, body string, onPR bool) (Delivery, error) {
	iss := map[string]any{
		"number": number,
		"user":   user{Login: threadAuthor},
	}
	if onPR {
		iss["pull_request"] = map[string]any{}
	}
	return build("issue_comment", map[string]any{
		"action": "created",
		"issue":  iss,
		"comment": map[string]any{
			"id":         time.Now().UnixNano(),
			"user":       user{Login: commenter},
			"body":       body,
			"created_at": time.Now().UTC(),
		},
		"repository": repository{FullName: repo},
		"sender":     user{Login: commenter},
	})
}
