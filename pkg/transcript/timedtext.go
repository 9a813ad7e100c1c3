package transcript

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"math"
	"strings"
	"time"
)

type srv1Document struct {
	Lines []struct {
		Start float64 `xml:"start,attr"`
		Dur   float64 `xml:"dur,attr"`
		Text  string  `xml:",chardata"`
	} `xml:"text"`
}

type srv3Document struct {
	Body struct {
		Paragraphs []struct {
			T     int64  `xml:"t,attr"`
			D     int64  `xml:"d,attr"`
			Inner string `xml:",innerxml"`
		} `xml:"p"`
	} `xml:"body"`
}

type json3Document struct {
	Events []struct {
		TStartMs    int64 `json:"tStartMs"`
		DDurationMs int64 `json:"dDurationMs"`
		Segs        []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// parseSRV1 parses the legacy timedtext XML
func (p *Parser) parseSRV1(content string) (*Transcript, error) {
	var doc srv1Document
	if err := xml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse srv1 transcript: %w", err)
	}

	segments := make([]Segment, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		start := seconds(line.Start)
		segments = append(segments, Segment{
			Start: start,
			End:   start + seconds(line.Dur),
			Text:  Clean(line.Text),
		})
	}
	return newTranscript(FormatSRV1, segments), nil
}

// parseSRV3 parses format 3 timedtext, where words may sit in <s> children
func (p *Parser) parseSRV3(content string) (*Transcript, error) {
	var doc srv3Document
	if err := xml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse srv3 transcript: %w", err)
	}

	segments := make([]Segment, 0, len(doc.Body.Paragraphs))
	for _, para := range doc.Body.Paragraphs {
		start := time.Duration(para.T) * time.Millisecond
		segments = append(segments, Segment{
			Start: start,
			End:   start + time.Duration(para.D)*time.Millisecond,
			Text:  Clean(para.Inner),
		})
	}
	return newTranscript(FormatSRV3, segments), nil
}

// parseJSON3 parses the json3 timedtext events
func (p *Parser) parseJSON3(content string) (*Transcript, error) {
	var doc json3Document
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse json3 transcript: %w", err)
	}

	segments := make([]Segment, 0, len(doc.Events))
	for _, ev := range doc.Events {
		if len(ev.Segs) == 0 {
			continue
		}
		var b strings.Builder
		for _, seg := range ev.Segs {
			b.WriteString(seg.UTF8)
		}
		start := time.Duration(ev.TStartMs) * time.Millisecond
		segments = append(segments, Segment{
			Start: start,
			End:   start + time.Duration(ev.DDurationMs)*time.Millisecond,
			Text:  Clean(b.String()),
		})
	}
	return newTranscript(FormatJSON3, segments), nil
}

func seconds(f float64) time.Duration {
	return time.Duration(math.Round(f * float64(time.Second)))
}
