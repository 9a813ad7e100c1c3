package transcript

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TranscriptFormat names a caption or transcript encoding
type TranscriptFormat string

const (
	FormatSRV1  TranscriptFormat = "srv1"  // <transcript><text start dur>
	FormatSRV3  TranscriptFormat = "srv3"  // <timedtext format="3"><body><p t d>
	FormatJSON3 TranscriptFormat = "json3" // {"events":[{"segs":[{"utf8"}]}]}
	FormatVTT   TranscriptFormat = "vtt"
	FormatSRT   TranscriptFormat = "srt"
	FormatJSON  TranscriptFormat = "json"
	FormatText  TranscriptFormat = "text"
)

// Segment is one timed cue
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

type Transcript struct {
	Format   TranscriptFormat
	Segments []Segment
	FullText string
	Duration time.Duration
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes content in the given format
func (p *Parser) Parse(content string, format TranscriptFormat) (*Transcript, error) {
	switch format {
	case FormatSRV1:
		return p.parseSRV1(content)
	case FormatSRV3:
		return p.parseSRV3(content)
	case FormatJSON3:
		return p.parseJSON3(content)
	case FormatVTT:
		return p.parseVTT(content)
	case FormatSRT:
		return p.parseSRT(content)
	case FormatJSON:
		return p.parseJSON(content)
	case FormatText:
		return p.parseText(content)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// jsonSegment accepts the field spellings seen in speech API exports
type jsonSegment struct {
	StartTime  float64 `json:"startTime"`
	StartSnake float64 `json:"start_time"`
	EndTime    float64 `json:"endTime"`
	EndSnake   float64 `json:"end_time"`
	Text       string  `json:"text"`
	Body       string  `json:"body"`
}

func (s jsonSegment) segment() Segment {
	text := s.Text
	if text == "" {
		text = s.Body
	}
	return Segment{
		Start: seconds(max(s.StartTime, s.StartSnake)),
		End:   seconds(max(s.EndTime, s.EndSnake)),
		Text:  strings.TrimSpace(text),
	}
}

// parseJSON reads either a bare segment array or {"segments": [...]}
func (p *Parser) parseJSON(content string) (*Transcript, error) {
	var raw []jsonSegment
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		var wrapped struct {
			Segments []jsonSegment `json:"segments"`
		}
		if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
			return nil, fmt.Errorf("failed to parse JSON transcript: %w", err)
		}
		raw = wrapped.Segments
	}

	segments := make([]Segment, 0, len(raw))
	for _, s := range raw {
		segments = append(segments, s.segment())
	}
	return newTranscript(FormatJSON, segments), nil
}

// parseText keeps the content as is; there is no timing
func (p *Parser) parseText(content string) (*Transcript, error) {
	return &Transcript{
		Format:   FormatText,
		Segments: []Segment{},
		FullText: strings.TrimSpace(content),
	}, nil
}

func newTranscript(format TranscriptFormat, segments []Segment) *Transcript {
	t := &Transcript{Format: format, Segments: segments}
	var b strings.Builder
	for _, seg := range segments {
		if seg.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(seg.Text)
	}
	t.FullText = b.String()
	if len(segments) > 0 {
		t.Duration = segments[len(segments)-1].End
	}
	return t
}

// ToPlainText returns the transcript text without timing
func (t *Transcript) ToPlainText() string {
	if t.FullText != "" {
		return t.FullText
	}
	return newTranscript(t.Format, t.Segments).FullText
}
