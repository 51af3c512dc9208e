package logger

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// identity-bearing field names; their whole value is treated as an email
var identityKeys = []string{"email", "identity", "lead"}

// redactValue masks lead emails in a field value. Identity-named fields
// are masked whole; other fields only have embedded addresses masked.
func redactValue(key, val string) string {
	lower := strings.ToLower(key)
	for _, k := range identityKeys {
		if strings.Contains(lower, k) {
			return RedactEmail(val)
		}
	}
	return emailPattern.ReplaceAllStringFunc(val, RedactEmail)
}

// RedactEmail masks the local part of an address, keeping the first
// character and the full domain so log lines stay correlatable:
// "john.doe@example.com" becomes "j***@example.com". Values that do not
// look like an address are masked entirely.
func RedactEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "***@***"
	}
	return email[:1] + "***@" + email[at+1:]
}
