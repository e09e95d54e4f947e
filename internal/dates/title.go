package dates

import "strings"

// titleSeparators are the characters that may sit between a leading date
// token and the rest of a filename.
const titleSeparators = " \t-_–—."

// Title derives a display title from a filename stem. A recognizable date
// token at the very start is stripped along with any separators that follow
// it. When stripping would leave nothing, the trimmed input is returned
// instead so a non-empty input never yields an empty title.
func Title(name string) string {
	trimmed := strings.TrimSpace(name)

	lead, ok := Leading(trimmed)
	if !ok {
		return trimmed
	}

	rest := strings.TrimLeft(trimmed[lead.End:], titleSeparators)
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return trimmed
	}
	return rest
}
