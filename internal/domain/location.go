package domain

import (
	"regexp"
	"strings"
)

var (
	locationPattern = regexp.MustCompile(`(?i)\bin\s+([\p{L}0-9\s,\-\.]+)`)
	timeWordPattern = regexp.MustCompile(`(?i)\b(today|tomorrow|now|tonight)\b`)
)

// ParseLocation extracts a location phrase like "in Berlin" from a weather
// query. Trailing time words and punctuation are stripped.
func ParseLocation(query string) (string, error) {
	m := locationPattern.FindStringSubmatch(query)
	if m == nil {
		return "", ErrLocationNotFound
	}

	loc := strings.TrimSpace(m[1])
	loc = timeWordPattern.ReplaceAllString(loc, "")
	loc = strings.TrimRight(strings.TrimSpace(loc), ".,!?;:/\\")
	loc = strings.TrimSpace(loc)
	if loc == "" {
		return "", ErrLocationNotFound
	}
	return loc, nil
}
