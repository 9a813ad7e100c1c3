package transcript

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	bracketNote = regexp.MustCompile(`\[[^\[\]]*\]`)
	parenNote   = regexp.MustCompile(`\([^()]*\)`)
	markupTag   = regexp.MustCompile(`</?[A-Za-z][^<>]*>`)
	spaceRun    = regexp.MustCompile(`\s+`)
)

// maxUnescapePasses bounds entity decoding of multiply-encoded text
const maxUnescapePasses = 5

// Clean flattens caption text: production notes such as "[Music]" or
// "(applause)" are dropped, markup removed, entities decoded until stable
// and whitespace collapsed.
func Clean(s string) string {
	s = stripMarkup(s)
	s = removeNotes(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = spaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// stripMarkup peels entity layers, removing tags before each decode. Text
// the innermost layer decodes to is literal: "a&lt;b" stays "a<b".
// Timedtext often ships "&amp;#39;".
func stripMarkup(s string) string {
	for range maxUnescapePasses {
		s = markupTag.ReplaceAllString(s, " ")
		next := html.UnescapeString(s)
		if next == s {
			return s
		}
		s = next
		if html.UnescapeString(s) == s {
			return s
		}
	}
	return s
}

// removeNotes drops bracketed notes innermost first until none are left
func removeNotes(s string) string {
	for {
		next := bracketNote.ReplaceAllString(s, " ")
		next = parenNote.ReplaceAllString(next, " ")
		if next == s {
			return s
		}
		s = next
	}
}
