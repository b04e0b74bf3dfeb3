package chat

import (
	"regexp"
	"strings"
)

var mentionRe = regexp.MustCompile(`^\s*<@[A-Z0-9]+>`)

// ExtractQuery strips the leading bot-mention tag Slack includes in
// app_mention event text (e.g. "<@U0BOT123> what's our Q3 pipeline?"),
// leaving the user's actual query.
func ExtractQuery(text string) string {
	return strings.TrimSpace(mentionRe.ReplaceAllString(text, ""))
}
