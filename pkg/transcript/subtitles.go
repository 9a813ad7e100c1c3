package transcript

import (
	"fmt"
	"strings"

	"github.com/asticode/go-astisub"
)

func (p *Parser) parseVTT(content string) (*Transcript, error) {
	subs, err := astisub.ReadFromWebVTT(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse VTT transcript: %w", err)
	}
	return fromSubtitles(FormatVTT, subs), nil
}

func (p *Parser) parseSRT(content string) (*Transcript, error) {
	subs, err := astisub.ReadFromSRT(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SRT transcript: %w", err)
	}
	return fromSubtitles(FormatSRT, subs), nil
}

// fromSubtitles flattens astisub items into segments. Rolling auto-captions
// repeat the previous cue, so consecutive duplicates are dropped.
func fromSubtitles(format TranscriptFormat, subs *astisub.Subtitles) *Transcript {
	segments := make([]Segment, 0, len(subs.Items))
	prev := ""
	for _, item := range subs.Items {
		var parts []string
		for _, line := range item.Lines {
			for _, li := range line.Items {
				parts = append(parts, li.Text)
			}
		}
		text := Clean(strings.Join(parts, " "))
		if text == "" || text == prev {
			continue
		}
		prev = text
		segments = append(segments, Segment{Start: item.StartAt, End: item.EndAt, Text: text})
	}
	return newTranscript(format, segments)
}
