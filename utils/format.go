package utils

import (
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DateLayout renders timestamps the way the admin screens display them.
const DateLayout = "2006/1/2 15:04:05"

// redacted is what the server sends in place of emails hidden from the caller.
const redacted = "REDACTED"

var countPrinter = message.NewPrinter(language.English)

// FormatTime renders t in local time, or "-" for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(DateLayout)
}

// FormatTimePtr is FormatTime for optional timestamps.
func FormatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return FormatTime(*t)
}

// FormatDate parses an RFC 3339 timestamp and renders it with FormatTime.
// Unparseable input is returned unchanged.
func FormatDate(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	return FormatTime(t)
}

// FormatPhone keeps the first three and last four digits and masks the rest.
func FormatPhone(phone string) string {
	if phone == "" {
		return "-"
	}
	n := utf8.RuneCountInString(phone)
	if n < 7 {
		return phone
	}
	runes := []rune(phone)
	return string(runes[:3]) + strings.Repeat("*", n-7) + string(runes[n-4:])
}

// ExtractNameFromEmail returns the local part of email, or "-" when the
// address is empty or redacted.
func ExtractNameFromEmail(email string) string {
	if strings.TrimSpace(email) == "" || email == redacted {
		return "-"
	}
	name, _, _ := strings.Cut(email, "@")
	if name == redacted || name == "" {
		return "-"
	}
	return name
}

// FormatCount renders n with thousands separators.
func FormatCount(n int64) string {
	return countPrinter.Sprintf("%d", n)
}
