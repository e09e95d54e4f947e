// Package dates extracts calendar dates from free text such as document
// filenames. It recognizes a small closed grammar (ISO, packed ISO, and
// month-name forms) rather than attempting full natural-language parsing.
package dates

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Candidate is a date found in a piece of text, together with the byte range
// of the substring it was parsed from.
type Candidate struct {
	Date  time.Time // normalized to midnight UTC
	Start int
	End   int
}

// The recognized forms. Matches are validated against their surrounding
// characters separately (see boundaryOK) because \b counts underscores as
// word characters, and underscores are common date separators in filenames.
//
// Known gap: date ranges ("19 May 2021 - 18 May 2022") are matched as two
// independent dates at best. Callers must not rely on range inputs producing
// any particular candidate count; extraction from ranges is best effort.
var (
	isoPattern    = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	packedPattern = regexp.MustCompile(`(\d{4})(\d{2})(\d{2})`)

	monthName = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`

	// "Dec 1, 2018", "December 1 2018"
	monthFirstPattern = regexp.MustCompile(`(?i)(` + monthName + `)\.? (\d{1,2})(?:st|nd|rd|th)?,? (\d{4})`)
	// "1 Dec 2018", "19 May 2021"
	dayFirstPattern = regexp.MustCompile(`(?i)(\d{1,2})(?:st|nd|rd|th)? (` + monthName + `),? (\d{4})`)
)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// Instances returns the dates mentioned in text, in order of first
// occurrence. Repeated mentions of the same calendar day collapse into the
// first candidate for that day.
func Instances(text string) []Candidate {
	var found []Candidate
	found = append(found, matchNumeric(text, isoPattern)...)
	found = append(found, matchNumeric(text, packedPattern)...)
	found = append(found, matchMonthName(text, monthFirstPattern, false)...)
	found = append(found, matchMonthName(text, dayFirstPattern, true)...)

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Start < found[j].Start
	})

	// Drop candidates overlapping an earlier match, then collapse repeated
	// days to their first occurrence.
	var out []Candidate
	seen := make(map[time.Time]bool)
	lastEnd := -1
	for _, c := range found {
		if c.Start < lastEnd {
			continue
		}
		lastEnd = c.End
		if seen[c.Date] {
			continue
		}
		seen[c.Date] = true
		out = append(out, c)
	}
	return out
}

// Leading returns the candidate anchored at the very start of text, if any.
func Leading(text string) (Candidate, bool) {
	for _, c := range Instances(text) {
		if c.Start == 0 {
			return c, true
		}
		break
	}
	return Candidate{}, false
}

// boundaryOK reports whether the match at [start,end) is delimited: the runes
// immediately before and after must not be letters or digits. Separators like
// spaces, underscores, dashes and dots all qualify.
func boundaryOK(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func matchNumeric(text string, re *regexp.Regexp) []Candidate {
	var out []Candidate
	for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
		if !boundaryOK(text, m[0], m[1]) {
			continue
		}
		year, _ := strconv.Atoi(text[m[2]:m[3]])
		month, _ := strconv.Atoi(text[m[4]:m[5]])
		day, _ := strconv.Atoi(text[m[6]:m[7]])
		d, ok := makeDate(year, time.Month(month), day)
		if !ok {
			continue
		}
		out = append(out, Candidate{Date: d, Start: m[0], End: m[1]})
	}
	return out
}

func matchMonthName(text string, re *regexp.Regexp, dayFirst bool) []Candidate {
	var out []Candidate
	for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
		if !boundaryOK(text, m[0], m[1]) {
			continue
		}
		var monthStr, dayStr string
		if dayFirst {
			dayStr = text[m[2]:m[3]]
			monthStr = text[m[4]:m[5]]
		} else {
			monthStr = text[m[2]:m[3]]
			dayStr = text[m[4]:m[5]]
		}
		yearStr := text[m[6]:m[7]]

		month, ok := monthsByPrefix[strings.ToLower(monthStr)[:3]]
		if !ok {
			continue
		}
		day, _ := strconv.Atoi(dayStr)
		year, _ := strconv.Atoi(yearStr)
		d, ok := makeDate(year, month, day)
		if !ok {
			continue
		}
		out = append(out, Candidate{Date: d, Start: m[0], End: m[1]})
	}
	return out
}

// makeDate validates the components and returns the date at midnight UTC.
// time.Date normalizes out-of-range values, so a round-trip comparison
// rejects impossible dates like February 30.
func makeDate(year int, month time.Month, day int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}
