package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(DEBUG)
	SetRedactPII(true)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(INFO)
	})
	return &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]string {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]string
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestLog_RedactsEmailsAndSecrets(t *testing.T) {
	buf := captureOutput(t)

	Info("calling vendor",
		"email", "john.doe@example.com",
		"api_key", "sk-live-123",
		"url", "https://server.example/api?api_key=sk-live-123&offset=0",
		"detail", "row for ann.smith@example.com failed",
	)

	entry := lastEntry(t, buf)
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "jo***@example.com", entry["email"])
	assert.Equal(t, "[REDACTED]", entry["api_key"])
	assert.Equal(t, "https://server.example/api?api_key=[REDACTED]&offset=0", entry["url"])
	assert.Equal(t, "row for an***@example.com failed", entry["detail"])
}

func TestLog_LevelFilter(t *testing.T) {
	buf := captureOutput(t)
	SetLevel(WARN)

	Info("hidden")
	Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestLog_RedactionCanBeDisabledForPIIOnly(t *testing.T) {
	buf := captureOutput(t)
	SetRedactPII(false)
	t.Cleanup(func() { SetRedactPII(true) })

	Info("debugging", "email", "john.doe@example.com", "token", "abc")

	entry := lastEntry(t, buf)
	assert.Equal(t, "john.doe@example.com", entry["email"])
	assert.Equal(t, "[REDACTED]", entry["token"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel(" WARN "))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel(""))
	assert.Equal(t, INFO, ParseLevel("verbose"))
}

func TestRedactEmail(t *testing.T) {
	assert.Equal(t, "jo***@example.com", RedactEmail("john.doe@example.com"))
	assert.Equal(t, "***@example.com", RedactEmail("ab@example.com"))
	assert.Equal(t, "***@***", RedactEmail("not-an-email"))
}

func TestRedactSecrets(t *testing.T) {
	assert.Equal(t, "Authorization: Bearer [REDACTED]", RedactSecrets("Authorization: Bearer eyJhbGciOi.J9"))
	assert.Equal(t, "plain text", RedactSecrets("plain text"))
}

func TestLog_EmailKeysWithoutAddressesKeepValue(t *testing.T) {
	buf := captureOutput(t)

	Info("run completed", "unmatched_email", 3, "email_column", "Email", "email", "ann@example.com")

	entry := lastEntry(t, buf)
	assert.Equal(t, "3", entry["unmatched_email"])
	assert.Equal(t, "Email", entry["email_column"])
	assert.Equal(t, "an***@example.com", entry["email"])
}
