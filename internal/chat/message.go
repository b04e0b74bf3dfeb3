package chat

import (
	"fmt"
	"unicode/utf8"

	goslack "github.com/slack-go/slack"
)

const maxBlockTextLength = 2900

// apologySentence is the fixed text substituted for the placeholder on any
// chat-origin failure (§4.3's user-visible-failures rule).
const apologySentence = "Sorry, something went wrong while processing that request. Please try again."

// BuildPlaceholderMessage creates the initial "processing…" blocks posted by
// C2 immediately on accepting a chat_mention work item.
func BuildPlaceholderMessage() []goslack.Block {
	return []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, ":arrows_counterclockwise: Processing…", false, false),
			nil, nil,
		),
	}
}

// BuildProgressMessage creates blocks for a throttled progress update,
// replacing the placeholder text with a human-readable snippet of what the
// agent is currently doing.
func BuildProgressMessage(snippet string) []goslack.Block {
	text := fmt.Sprintf(":arrows_counterclockwise: %s", truncateForChat(snippet))
	return []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false),
			nil, nil,
		),
	}
}

// BuildTerminalMessage creates the final blocks the placeholder is updated
// to once the agent session ends. On failure, responseRich is ignored and
// the fixed apology sentence is used instead.
func BuildTerminalMessage(success bool, responseRich string) []goslack.Block {
	if !success {
		return []goslack.Block{
			goslack.NewSectionBlock(
				goslack.NewTextBlockObject(goslack.MarkdownType, ":x: "+apologySentence, false, false),
				nil, nil,
			),
		}
	}

	return []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, truncateForChat(responseRich), false, false),
			nil, nil,
		),
	}
}

// truncateForChat caps text at maxBlockTextLength runes, never splitting a
// multi-byte rune.
func truncateForChat(text string) string {
	if utf8.RuneCountInString(text) <= maxBlockTextLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxBlockTextLength]) + "\n\n_... (truncated)_"
}
