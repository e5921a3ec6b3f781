// Package yearfmt turns the inconsistent academic year and section strings
// found upstream into one canonical form. Roster resolution and session start
// both go through here so membership is computed on identical keys.
package yearfmt

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	yearDigits = regexp.MustCompile(`^(?:year\s*)?(\d{1,2})\s*(?:st|nd|rd|th|r)?\s*(?:year)?$`)
	yearWords  = map[string]int{
		"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5, "sixth": 6, "seventh": 7,
	}
	sectionPrefix = regexp.MustCompile(`^(?i)(?:section\b|sec\.|sec\b)\s*`)
)

// NormalizeYear maps "4", "4r", "4th", "4th Year", "Year 4" and "fourth year"
// to "4th Year". Values it cannot read are returned trimmed.
func NormalizeYear(raw string) string {
	s := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	if s == "" {
		return ""
	}
	if m := yearDigits.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			return Ordinal(n) + " Year"
		}
	}
	word := strings.TrimSpace(strings.TrimSuffix(s, "year"))
	if n, ok := yearWords[word]; ok {
		return Ordinal(n) + " Year"
	}
	return strings.TrimSpace(raw)
}

// Ordinal renders 1 → "1st", 2 → "2nd", 11 → "11th".
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}

// NormalizeSection maps "a", " A ", "Section A" to "A".
func NormalizeSection(raw string) string {
	s := strings.TrimSpace(raw)
	s = sectionPrefix.ReplaceAllString(s, "")
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeCourse collapses whitespace; course names keep their case.
func NormalizeCourse(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
