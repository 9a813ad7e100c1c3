package youtube

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVideoID(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{input: "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", want: "dQw4w9WgXcQ"},
		{input: "youtube.com/watch?v=dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{input: "https://m.youtube.com/watch?v=dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{input: "https://youtu.be/dQw4w9WgXcQ?si=abc", want: "dQw4w9WgXcQ"},
		{input: "https://www.youtube.com/shorts/dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{input: "https://www.youtube.com/embed/dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{input: "https://vimeo.com/12345678901", wantErr: true},
		{input: "https://www.youtube.com/watch?v=short", wantErr: true},
		{input: "dQw4w9WgXc!", wantErr: true},
		{input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseVideoID(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
