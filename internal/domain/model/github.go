package model

// PRState mirrors the GitHub issue state of a pull request.
type PRState string

// Pull request states.
const (
	PRStateOpen   PRState = "open"
	PRStateClosed PRState = "closed"
)

// PullRequest is the slice of a GitHub pull request the calculator needs.
type PullRequest struct {
	Number int
	Author string
	State  PRState
	Merged bool
}

// Issue is a plain GitHub issue authored by a user.
type Issue struct {
	Number int
	Author string
}

// ReactionSource tells where a reaction was left.
type ReactionSource int

// Reaction sources. Only body reactions carry points.
const (
	SourceBody ReactionSource = iota
	SourceComment
)

func (s ReactionSource) String() string {
	if s == SourceBody {
		return "body"
	}
	return "comment"
}

// Reaction contents that carry points.
const (
	ReactionPlusOne  = "+1"
	ReactionMinusOne = "-1"
)

// Reaction is one emoji reaction.
type Reaction struct {
	ID      int64
	User    string
	Content string
	Source  ReactionSource
}

// Subject is the issue or pull request whose body received reactions.
type Subject struct {
	Number        int
	Author        string
	IsPullRequest bool
}

// Comment is an issue or pull request conversation comment.
type Comment struct {
	ID     int64
	Author string
	Body   string
}
