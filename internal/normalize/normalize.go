// Package normalize cleans extracted document text before matching and
// field extraction.
package normalize

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reFeeds      = regexp.MustCompile(`[\f\v]`)
	reDisallowed = regexp.MustCompile(`[^\w\s.,;:()/%+\-]`)
	reSpaceRun   = regexp.MustCompile(`[ \t]+`)
)

// Text collapses noisy whitespace and strips characters outside a
// conservative allow-list (word characters, basic punctuation).
// Line breaks are kept, blank lines are dropped, page-break markers
// from the OCR stage dissolve into line boundaries.
// Idempotent: Text(Text(s)) == Text(s).
func Text(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reFeeds.ReplaceAllString(s, "\n")
	s = reDisallowed.ReplaceAllString(s, "")
	s = reSpaceRun.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, ln := range lines {
		ln = strings.TrimSpace(ln)
		if ln != "" {
			kept = append(kept, ln)
		}
	}
	return strings.Join(kept, "\n")
}
