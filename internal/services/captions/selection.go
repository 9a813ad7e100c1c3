package captions

import (
	"net/url"
	"sort"
	"strings"

	"github.com/matlukowski/readTube-sub000/pkg/youtube"
)

// Usable drops tracks that cannot be downloaded without a proof-of-origin
// token; the platform answers those with an empty body.
func Usable(tracks []youtube.CaptionTrack) []youtube.CaptionTrack {
	var out []youtube.CaptionTrack
	for _, t := range tracks {
		if t.BaseURL == "" || requiresToken(t.BaseURL) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func requiresToken(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.Contains(u.Query().Get("exp"), "xpe")
}

// SelectTrack returns the best track for languages (tried in order):
// exact match authored manually, then exact match auto-generated, then any
// auto-generated track, then the first track.
func SelectTrack(tracks []youtube.CaptionTrack, languages []string) (youtube.CaptionTrack, bool) {
	ranked := RankTracks(tracks, languages)
	if len(ranked) == 0 {
		return youtube.CaptionTrack{}, false
	}
	return ranked[0], true
}

// RankTracks orders every track by preference; ties keep platform order
func RankTracks(tracks []youtube.CaptionTrack, languages []string) []youtube.CaptionTrack {
	ranked := make([]youtube.CaptionTrack, len(tracks))
	copy(ranked, tracks)

	scores := make(map[int]int, len(tracks))
	for i := range ranked {
		scores[i] = score(ranked[i], languages)
	}
	idx := make([]int, len(ranked))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	out := make([]youtube.CaptionTrack, len(idx))
	for i, j := range idx {
		out[i] = ranked[j]
	}
	return out
}

// score is lower for better tracks. Language position dominates, then manual
// before auto-generated.
func score(t youtube.CaptionTrack, languages []string) int {
	n := len(languages)
	for i, lang := range languages {
		if languageMatches(t.LanguageCode, lang) {
			if t.AutoGenerated() {
				return 2*i + 1
			}
			return 2 * i
		}
	}
	if t.AutoGenerated() {
		return 2 * n
	}
	return 2*n + 1
}

// languageMatches compares codes case-insensitively; "en" does not match
// "en-GB" so the caller's explicit order stays meaningful
func languageMatches(code, want string) bool {
	return strings.EqualFold(strings.TrimSpace(code), strings.TrimSpace(want))
}
