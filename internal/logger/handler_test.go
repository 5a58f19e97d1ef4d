package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyHandlerRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "pretty", "debug")

	log.With("member_id", 7).Info("login", "password", "1111", "refresh_token", "eyJhbGciOi", "ip", "192.0.2.1")

	out := buf.String()
	assert.Contains(t, out, "login")
	assert.Contains(t, out, "member_id")
	assert.Contains(t, out, "192.0.2.1")
	assert.NotContains(t, out, "1111")
	assert.NotContains(t, out, "eyJhbGciOi")
	assert.Contains(t, out, redacted)
}

func TestPrettyHandlerLevelAndGroups(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "pretty", "warn")

	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.WithGroup("http").Warn("slow request", slog.Group("timing", "ms", 1500))
	assert.Contains(t, buf.String(), "http.timing.ms")
}

func TestJSONFormatRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "json", "info")

	log.Warn("refresh token reuse detected", "member_id", 3, "token", "abc.def.ghi")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, redacted, entry["token"])
	assert.EqualValues(t, 3, entry["member_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
