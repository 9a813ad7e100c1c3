package speech

import (
	"strings"
	"unicode"
)

// maxSeamWords bounds the overlap search between adjacent windows
const maxSeamWords = 12

// seamMerger joins window transcripts, dropping the words the overlapping
// audio made the engine say twice
type seamMerger struct {
	words []string
}

func (m *seamMerger) Add(text string) {
	next := strings.Fields(text)
	if len(next) == 0 {
		return
	}
	k := seamOverlap(m.words, next)
	m.words = append(m.words, next[k:]...)
}

func (m *seamMerger) String() string {
	return strings.Join(m.words, " ")
}

// seamOverlap returns the largest k such that the last k words of prev equal
// the first k words of next, ignoring case and punctuation
func seamOverlap(prev, next []string) int {
	limit := min(maxSeamWords, len(prev), len(next))
	for k := limit; k > 0; k-- {
		match := true
		for i := 0; i < k; i++ {
			if normalizeWord(prev[len(prev)-k+i]) != normalizeWord(next[i]) {
				match = false
				break
			}
		}
		if match {
			return k
		}
	}
	return 0
}

func normalizeWord(w string) string {
	return strings.ToLower(strings.TrimFunc(w, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	}))
}
