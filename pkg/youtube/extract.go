package youtube

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

const playerResponseMarker = "ytInitialPlayerResponse"

var errNoPlayerResponse = errors.New("watch page carries no player response")

// extractPlayerJSON walks the <script> nodes of a watch page and returns the
// JSON object assigned to ytInitialPlayerResponse.
func extractPlayerJSON(r io.Reader) ([]byte, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var found []byte
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "script" && n.FirstChild != nil {
			if obj := scanAssignedObject(n.FirstChild.Data, playerResponseMarker); obj != nil {
				found = obj
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if found == nil {
		return nil, errNoPlayerResponse
	}
	return found, nil
}

// scanAssignedObject finds `marker = {...}` in src and returns the balanced
// object, honoring string literals so braces inside strings don't count.
func scanAssignedObject(src, marker string) []byte {
	offset := 0
	for {
		i := strings.Index(src[offset:], marker)
		if i < 0 {
			return nil
		}
		rest := src[offset+i+len(marker):]
		offset += i + len(marker)

		j := skipSpace(rest, 0)
		if j >= len(rest) || rest[j] != '=' {
			continue
		}
		j = skipSpace(rest, j+1)
		if j >= len(rest) || rest[j] != '{' {
			continue
		}
		if end := matchBrace(rest[j:]); end > 0 {
			return []byte(rest[j : j+end])
		}
	}
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

// matchBrace returns the length of the balanced object at the start of s,
// or -1 when it never closes.
func matchBrace(s string) int {
	depth := 0
	inString := false
	var quote byte
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				inString = false
			}
			continue
		}
		switch c {
		case '"', '\'':
			inString = true
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}
