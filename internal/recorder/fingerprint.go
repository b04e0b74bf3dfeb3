package recorder

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fingerprint returns a stable SHA-256 hex digest of text after collapsing
// runs of whitespace, so the same prompt re-sent with different incidental
// spacing still dedups. The first full text seen for a given fingerprint is
// kept in ConversationRecord.PromptFingerprints; steps record the
// fingerprint alone, every time, so a session that replays the same
// system prompt or tool schema on every turn doesn't repeat it in the
// exported record.
func fingerprint(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// internOrDigest records text in seen under its fingerprint the first time
// that fingerprint appears, and always returns the fingerprint, which is a
// key of seen.
func internOrDigest(seen map[string]string, text string) string {
	fp := fingerprint(text)
	if _, ok := seen[fp]; !ok {
		seen[fp] = text
	}
	return fp
}
