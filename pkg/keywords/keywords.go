// Package keywords turns free-form user input into the ordered keyword list
// passed to a scraping job.
package keywords

import "strings"

// Parse splits input on commas and newlines, trims every entry and drops the
// empty ones. Order is preserved.
func Parse(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	return Clean(fields)
}

// Clean trims every entry of kws and drops the blank ones.
func Clean(kws []string) []string {
	out := make([]string, 0, len(kws))
	for _, k := range kws {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
