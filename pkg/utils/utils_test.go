package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"shorter than limit", "abc", 5, "abc"},
		{"exact limit", "abcde", 5, "abcde"},
		{"ascii cut", "abcdef", 3, "abc"},
		{"multibyte cut", "反論します", 2, "反論"},
		{"zero limit", "abc", 0, "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.in, tt.limit))
		})
	}
}

func TestSplitRunes(t *testing.T) {
	chunks := SplitRunes(strings.Repeat("あ", 7), 3)
	require.Len(t, chunks, 3)
	assert.Equal(t, "あああ", chunks[0])
	assert.Equal(t, "あ", chunks[2])

	assert.Equal(t, []string{""}, SplitRunes("", 3))
}

func TestSessionIDCarriesStamp(t *testing.T) {
	id := NewSessionID()
	require.Len(t, id, 24)
	assert.NotEqual(t, id, NewSessionID())

	ts, err := StampTime(id)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, 2*time.Second)
	assert.False(t, Expired(id, time.Minute))
}

func TestTraceIDsAreOrderedWithinASecond(t *testing.T) {
	a, b := NewTraceID(), NewTraceID()
	require.Len(t, a, 15)
	assert.Equal(t, "-", a[8:9])
	assert.NotEqual(t, a, b)
	if a[:8] == b[:8] {
		assert.Less(t, a, b)
	}
	_, err := StampTime(a)
	assert.NoError(t, err)
}

func TestDumpFileName(t *testing.T) {
	name := DumpFileName(3, "gemini")
	assert.True(t, strings.HasSuffix(name, "_0003_gemini.log"), name)
	assert.False(t, Expired(name, time.Hour))
}

func TestExpired(t *testing.T) {
	assert.True(t, Expired("00000001_0001_ollama.log", time.Hour))
	assert.False(t, Expired("zz", time.Nanosecond))
	assert.False(t, Expired("notastamp-abc", time.Nanosecond))

	_, err := StampTime("short")
	assert.Error(t, err)
}
