package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatPhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "-"},
		{"123456", "123456"},
		{"1234567", "1234567"},
		{"13812345678", "138****5678"},
		{"+8613812345678", "+86*******5678"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPhone(tt.in), tt.in)
	}
}

func TestExtractNameFromEmail(t *testing.T) {
	assert.Equal(t, "alice", ExtractNameFromEmail("alice@example.com"))
	assert.Equal(t, "bob", ExtractNameFromEmail("bob"))
	assert.Equal(t, "-", ExtractNameFromEmail(""))
	assert.Equal(t, "-", ExtractNameFromEmail("   "))
	assert.Equal(t, "-", ExtractNameFromEmail("REDACTED"))
	assert.Equal(t, "-", ExtractNameFromEmail("REDACTED@example.com"))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "-", FormatDate(""))
	assert.Equal(t, "yesterday", FormatDate("yesterday"))

	ts := time.Date(2024, 3, 5, 9, 7, 3, 0, time.UTC)
	assert.Equal(t, ts.Local().Format(DateLayout), FormatDate(ts.Format(time.RFC3339)))
	assert.Equal(t, "-", FormatTime(time.Time{}))
	assert.Equal(t, "-", FormatTimePtr(nil))
	assert.Equal(t, ts.Local().Format(DateLayout), FormatTimePtr(&ts))
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "0", FormatCount(0))
	assert.Equal(t, "1,234,567", FormatCount(1234567))
}
