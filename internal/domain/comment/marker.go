// Package comment renders reputation summaries as GitHub markdown and
// recognizes comments the bot wrote earlier.
package comment

import "strings"

// Marker is embedded in every body the bot writes.
const Marker = "<!-- reputation-bot:summary -->"

// Footer is the visible attribution line.
const Footer = "_Generated by [Reputation Bot](https://github.com/archestra-ai/reputation-bot)_ 🤖"

// legacyFooters identify summaries written before Marker existed.
var legacyFooters = []string{ //nolint:gochecknoglobals // static lookup table
	"Generated by Reputation Bot",
	"Generated by [Reputation Bot]",
}

// legacyHeading opened the old participants summary. Matched only as a
// body's first line.
const legacyHeading = "## 📊 Reputation Summary"

// IsBotComment reports whether body is a summary written by this bot.
func IsBotComment(body string) bool {
	if strings.Contains(body, Marker) {
		return true
	}
	for _, m := range legacyFooters {
		if strings.Contains(body, m) {
			return true
		}
	}
	first, _, _ := strings.Cut(strings.TrimSpace(body), "\n")
	return strings.TrimSpace(first) == legacyHeading
}
