package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"annotations", "[Music] hello (applause) world [Laughter]", "hello world"},
		{"double encoded entities", "rock &amp;amp; roll &amp;#39;n&#39; more", "rock & roll 'n' more"},
		{"encoded annotation", "&#91;Music&#93; lyrics", "lyrics"},
		{"markup", "<font color=\"#E5E5E5\">so</font> <i>yes</i>", "so yes"},
		{"whitespace", " a\n\n\tb  c ", "a b c"},
		{"empty after cleaning", "[Music] (music)", ""},
		{"comparison kept", "x < y and y > z", "x < y and y > z"},
		{"encoded comparison kept", "if a&lt;b and c&gt;d then swap", "if a<b and c>d then swap"},
		{"double encoded literal", "i &amp;lt;3 you", "i <3 you"},
		{"nested annotations", "[Music [inaudible] playing] hello", "hello"},
		{"nested parentheses", "(crowd (loud) cheering) thanks", "thanks"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestClean_NoResidue(t *testing.T) {
	inputs := []string{
		"[Music]&amp;amp;[Music]",
		"&amp;lt;i&amp;gt;[Applause]&amp;lt;/i&amp;gt;",
		"tom &amp; jerry [MUSIC PLAYING]",
	}
	for _, in := range inputs {
		out := Clean(in)
		assert.NotContains(t, out, "[", in)
		assert.NotContains(t, out, "&amp;", in)
		assert.NotContains(t, out, "&lt;", in)
	}
}
