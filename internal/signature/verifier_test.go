package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(secret, ts string, body []byte) string {
	canonical := fmt.Sprintf("%s:%s:%s", Scheme, ts, body)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(canonical))
	return Scheme + "=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerify_Valid(t *testing.T) {
	v := New("topsecret", 5*time.Minute)
	now := time.Unix(1700000000, 0)
	body := []byte(`{"text":"hello"}`)
	ts := strconv.FormatInt(now.Unix(), 10)

	err := v.Verify(Headers{Timestamp: ts, Signature: sign("topsecret", ts, body)}, body, now)
	require.NoError(t, err)
}

func TestVerify_WrongSecret(t *testing.T) {
	v := New("topsecret", 5*time.Minute)
	now := time.Unix(1700000000, 0)
	body := []byte(`{"text":"hello"}`)
	ts := strconv.FormatInt(now.Unix(), 10)

	err := v.Verify(Headers{Timestamp: ts, Signature: sign("wrong", ts, body)}, body, now)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerify_TamperedBody(t *testing.T) {
	v := New("topsecret", 5*time.Minute)
	now := time.Unix(1700000000, 0)
	ts := strconv.FormatInt(now.Unix(), 10)
	validSig := sign("topsecret", ts, []byte(`{"text":"hello"}`))

	err := v.Verify(Headers{Timestamp: ts, Signature: validSig}, []byte(`{"text":"hellp"}`), now)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerify_ExpiredReplayWindow(t *testing.T) {
	v := New("topsecret", 5*time.Minute)
	now := time.Unix(1700000000, 0)
	old := now.Add(-10 * time.Minute)
	ts := strconv.FormatInt(old.Unix(), 10)
	body := []byte(`{"text":"hello"}`)

	err := v.Verify(Headers{Timestamp: ts, Signature: sign("topsecret", ts, body)}, body, now)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerify_FutureTimestampWithinWindow(t *testing.T) {
	v := New("topsecret", 5*time.Minute)
	now := time.Unix(1700000000, 0)
	future := now.Add(2 * time.Minute)
	ts := strconv.FormatInt(future.Unix(), 10)
	body := []byte(`{"text":"hello"}`)

	err := v.Verify(Headers{Timestamp: ts, Signature: sign("topsecret", ts, body)}, body, now)
	require.NoError(t, err)
}

func TestVerify_MissingHeaders(t *testing.T) {
	v := New("topsecret", 5*time.Minute)
	err := v.Verify(Headers{}, []byte(`{}`), time.Unix(1700000000, 0))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerify_MalformedTimestamp(t *testing.T) {
	v := New("topsecret", 5*time.Minute)
	err := v.Verify(Headers{Timestamp: "not-a-number", Signature: "v0=abc"}, []byte(`{}`), time.Unix(1700000000, 0))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerify_CaseInsensitiveHexDigest(t *testing.T) {
	v := New("topsecret", 5*time.Minute)
	now := time.Unix(1700000000, 0)
	ts := strconv.FormatInt(now.Unix(), 10)
	body := []byte(`{"text":"hello"}`)
	sig := sign("topsecret", ts, body)

	err := v.Verify(Headers{Timestamp: ts, Signature: "v0=" + upper(sig[3:])}, body, now)
	require.NoError(t, err)
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'f' {
			b[i] = c - 32
		}
	}
	return string(b)
}
