package comment

import (
	"fmt"
	"sort"
	"strings"

	"github.com/archestra-ai/reputation-bot/internal/domain/model"
)

// RenderLine renders the compact one-line form.
func RenderLine(b model.Breakdown) string {
	return fmt.Sprintf("⚡ Rep: %d | PRs: %s | Activity: %s | Core: %s",
		b.Total(), prCounts(b, "/"), activity(b), coreCounts(b, "No reactions"))
}

// RenderBreakdown renders one user's reputation with its itemized entries.
func RenderBreakdown(b model.Breakdown) string {
	var sb strings.Builder
	sb.WriteString(Marker)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "### 📊 Reputation for @%s\n\n", b.Login)
	sb.WriteString(RenderLine(b))
	sb.WriteString("\n\n")
	writeEntries(&sb, b)
	sb.WriteString("\n---\n")
	sb.WriteString(Footer)
	return sb.String()
}

// RenderSummary renders the participants table, highest total first.
func RenderSummary(bs []model.Breakdown) string {
	sorted := make([]model.Breakdown, len(bs))
	copy(sorted, bs)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, tj := sorted[i].Total(), sorted[j].Total()
		if ti != tj {
			return ti > tj
		}
		return strings.ToLower(sorted[i].Login) < strings.ToLower(sorted[j].Login)
	})

	var sb strings.Builder
	sb.WriteString(Marker)
	sb.WriteString("\n")
	sb.WriteString("## 📊 Reputation Summary\n\n")
	sb.WriteString("| User | Rep | Pull Requests | Activity | Core Reactions |\n")
	sb.WriteString("|------|-----|---------------|----------|----------------|\n")
	for _, b := range sorted {
		fmt.Fprintf(&sb, "| **@%s** | ⚡ %d | %s | %s | %s |\n",
			b.Login, b.Total(), prCounts(b, " "), activity(b), coreCounts(b, "-"))
	}

	for _, b := range sorted {
		if len(b.Entries) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n<details><summary>@%s: %d points</summary>\n\n", b.Login, b.Total())
		writeEntries(&sb, b)
		sb.WriteString("\n</details>\n")
	}

	sb.WriteString("\n---\n")
	sb.WriteString(Footer)
	return sb.String()
}

func writeEntries(sb *strings.Builder, b model.Breakdown) {
	if len(b.Entries) == 0 {
		sb.WriteString("_No scored activity yet._\n")
		return
	}
	for _, e := range b.Entries {
		fmt.Fprintf(sb, "- %s: %+d\n", e.Label, e.Points)
	}
}

func prCounts(b model.Breakdown, sep string) string {
	return fmt.Sprintf("%d✅%s%d🔄%s%d❌",
		b.Count(model.ScorePRMerged), sep,
		b.Count(model.ScorePROpen), sep,
		b.Count(model.ScorePRClosed))
}

func activity(b model.Breakdown) string {
	return fmt.Sprintf("%d issues, %d comments", b.Count(model.ScoreIssueOpened), b.Comments)
}

func coreCounts(b model.Breakdown, none string) string {
	var parts []string
	if up := b.Count(model.ScoreCoreUpvote); up > 0 {
		parts = append(parts, fmt.Sprintf("+%d👍", up))
	}
	if down := b.Count(model.ScoreCoreDownvote); down > 0 {
		parts = append(parts, fmt.Sprintf("-%d👎", down))
	}
	if len(parts) == 0 {
		return none
	}
	return strings.Join(parts, " ")
}
