package sweepq

import (
	"strconv"
	"strings"
)

const (
	TTLNoExpiry int64 = -1
	TTLMissing  int64 = -2

	timestampDigits = 10
)

var roleSuffixes = []string{"pending", "reserved", "delayed", "processing"}

// ExtractTimestamp returns the leftmost run of ten decimal digits in name,
// read as epoch seconds. The run may be part of a longer digit sequence.
func ExtractTimestamp(name string) (int64, bool) {
	run := 0
	for i := 0; i < len(name); i++ {
		if !isDigit(name[i]) {
			run = 0
			continue
		}
		run++
		if run == timestampDigits {
			n, err := strconv.ParseInt(name[i-timestampDigits+1:i+1], 10, 64)
			if err != nil {
				return 0, false
			}
			return n, true
		}
	}
	return 0, false
}

func HasTimestamp(name string) bool {
	_, ok := ExtractTimestamp(name)
	return ok
}

// IsQueueKey reports whether an unprefixed key name belongs to a queue:
// it contains "queue:", "queue-", "queues:" or "queues-".
func IsQueueKey(name string) bool {
	for _, marker := range []string{"queue:", "queue-", "queues:", "queues-"} {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// QueueBase derives the group name of a queue key.
//
//	base   := name - trailing ([:-][0-9]+) - trailing ([:-](pending|reserved|delayed|processing))
//
// Both strips are applied once, in that order.
func QueueBase(name string) string {
	return stripRoleSuffix(stripTrailingNumber(name))
}

// stripTrailingNumber removes a final separator followed by one or more
// digits. The name is returned unchanged when the digits are not preceded
// by ':' or '-'.
func stripTrailingNumber(name string) string {
	i := len(name)
	for i > 0 && isDigit(name[i-1]) {
		i--
	}
	if i == len(name) || i == 0 || !isSeparator(name[i-1]) {
		return name
	}
	return name[:i-1]
}

func stripRoleSuffix(name string) string {
	for _, role := range roleSuffixes {
		if len(name) <= len(role) || !strings.HasSuffix(name, role) {
			continue
		}
		cut := len(name) - len(role)
		if isSeparator(name[cut-1]) {
			return name[:cut-1]
		}
	}
	return name
}

// RoleSuffix returns the role a queue key plays in its group, or "" when it
// carries none. The trailing number is ignored.
func RoleSuffix(name string) string {
	trimmed := stripTrailingNumber(name)
	if base := stripRoleSuffix(trimmed); base != trimmed {
		return trimmed[len(base)+1:]
	}
	return ""
}

// StripPrefix removes the store namespace from an enumerated key.
func StripPrefix(key, prefix string) string {
	if prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, prefix)
}

// escapeGlob quotes the glob metacharacters of a literal so it can lead a
// SCAN MATCH pattern.
func escapeGlob(s string) string {
	if !strings.ContainsAny(s, `*?[]\`) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isSeparator(c byte) bool { return c == ':' || c == '-' }
