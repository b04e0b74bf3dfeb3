package chat

import (
	"strings"
	"testing"
	"unicode/utf8"

	goslack "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPlaceholderMessage(t *testing.T) {
	blocks := BuildPlaceholderMessage()

	require.Len(t, blocks, 1)
	section := blocks[0].(*goslack.SectionBlock)
	assert.Contains(t, section.Text.Text, ":arrows_counterclockwise:")
	assert.Contains(t, section.Text.Text, "Processing")
}

func TestBuildProgressMessage(t *testing.T) {
	blocks := BuildProgressMessage("checking CRM for open deals")

	require.Len(t, blocks, 1)
	section := blocks[0].(*goslack.SectionBlock)
	assert.Contains(t, section.Text.Text, "checking CRM for open deals")
}

func TestBuildTerminalMessage_Success(t *testing.T) {
	blocks := BuildTerminalMessage(true, "Here are your top 5 open deals this quarter.")

	require.Len(t, blocks, 1)
	section := blocks[0].(*goslack.SectionBlock)
	assert.Contains(t, section.Text.Text, "Here are your top 5 open deals this quarter.")
	assert.NotContains(t, section.Text.Text, apologySentence)
}

func TestBuildTerminalMessage_Failure(t *testing.T) {
	blocks := BuildTerminalMessage(false, "this should be ignored")

	require.Len(t, blocks, 1)
	section := blocks[0].(*goslack.SectionBlock)
	assert.Contains(t, section.Text.Text, apologySentence)
	assert.NotContains(t, section.Text.Text, "this should be ignored")
}

func TestTruncateForChat(t *testing.T) {
	t.Run("short text unchanged", func(t *testing.T) {
		assert.Equal(t, "hello", truncateForChat("hello"))
	})

	t.Run("exact limit unchanged", func(t *testing.T) {
		text := strings.Repeat("a", maxBlockTextLength)
		assert.Equal(t, text, truncateForChat(text))
	})

	t.Run("over limit truncated", func(t *testing.T) {
		text := strings.Repeat("a", maxBlockTextLength+100)
		result := truncateForChat(text)
		assert.Less(t, len(result), len(text))
		assert.Contains(t, result, "truncated")
	})

	t.Run("multi-byte runes not split", func(t *testing.T) {
		text := strings.Repeat("🔥", maxBlockTextLength+10)
		result := truncateForChat(text)
		assert.Contains(t, result, "truncated")
		assert.True(t, utf8.ValidString(result))
		prefix := strings.Split(result, "\n\n_...")[0]
		assert.Equal(t, maxBlockTextLength, utf8.RuneCountInString(prefix))
	})
}
