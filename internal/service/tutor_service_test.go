package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSessionTitleTruncatesOnRunes(t *testing.T) {
	short := "Why do plant cells swell in distilled water?"
	assert.Equal(t, short, sessionTitle(short))

	// 130 multi-byte runes: a byte-indexed cut at 120 would land inside a
	// character and store invalid UTF-8.
	long := strings.Repeat("ü", 130)
	got := sessionTitle(long)
	assert.True(t, utf8.ValidString(got), "truncated title must stay valid UTF-8")
	assert.Equal(t, 120, utf8.RuneCountInString(got))
	assert.Equal(t, strings.Repeat("ü", 120), got)
}
