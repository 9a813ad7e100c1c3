package youtube

import (
	"net/url"
	"regexp"
	"strings"

	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ValidateVideoID checks the fixed 11 character id format
func ValidateVideoID(id string) error {
	if !videoIDPattern.MatchString(id) {
		return apperrors.ValidationError("videoId", "must be an 11 character video identifier")
	}
	return nil
}

// ParseVideoID accepts a bare id or a watch, short, embed, live or
// youtu.be URL and returns the bare id.
func ParseVideoID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if videoIDPattern.MatchString(input) {
		return input, nil
	}

	if !strings.Contains(input, "://") {
		input = "https://" + input
	}
	u, err := url.Parse(input)
	if err != nil {
		return "", apperrors.ValidationError("videoId", "not a video id or URL")
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")

	var candidate string
	switch host {
	case "youtu.be":
		candidate = firstSegment(u.Path)
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		if v := u.Query().Get("v"); v != "" {
			candidate = v
			break
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 2 {
			switch parts[0] {
			case "shorts", "embed", "live", "v", "e":
				candidate = parts[1]
			}
		}
	default:
		return "", apperrors.ValidationError("videoId", "unsupported host "+host)
	}

	if err := ValidateVideoID(candidate); err != nil {
		return "", err
	}
	return candidate, nil
}

func firstSegment(path string) string {
	path = strings.Trim(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}
