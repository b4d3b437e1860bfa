package util

import "time"

// ArchiveTimestamp formats t as a file-name-safe UTC ISO-8601 timestamp.
func ArchiveTimestamp(t time.Time) string {
	s := t.UTC().Format("2006-01-02T15:04:05.000Z")
	r := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == ':' || s[i] == '.' {
			r = append(r, '-')
		} else {
			r = append(r, s[i])
		}
	}
	return string(r)
}
