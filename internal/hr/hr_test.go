package hr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNFC(t *testing.T) {
	// "veličina" with the č decomposed into c + combining caron.
	decomposed := "veličina"
	assert.Equal(t, "veličina", NFC(decomposed))
	assert.Equal(t, "veličina", NFC("veličina"))
}

func TestDate(t *testing.T) {
	assert.Equal(t, "16. veljače 2026.", Date(time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "1. siječnja 2027.", Date(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "30. studenoga 2025.", Date(time.Date(2025, 11, 30, 0, 0, 0, 0, time.UTC)))
}

func TestParseDate(t *testing.T) {
	cases := map[string]time.Time{
		"16.02.2026":  time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC),
		"16.02.2026.": time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC),
		"2026-02-16":  time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC),
		"1.7.2026":    time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, ok := ParseDate(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "sutra", "16/02/2026", "veljača 2026"} {
		_, ok := ParseDate(in)
		assert.False(t, ok, in)
	}
}
