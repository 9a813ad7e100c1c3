package youtube

import (
	"encoding/json"
	"fmt"
)

// playerJSON renders a minimal player response for tests
func playerJSON(status string, private bool, tracks []CaptionTrack, formats []Format) string {
	type track struct {
		BaseURL      string            `json:"baseUrl"`
		Name         map[string]string `json:"name"`
		LanguageCode string            `json:"languageCode"`
		Kind         string            `json:"kind,omitempty"`
	}
	var ts []track
	for _, t := range tracks {
		ts = append(ts, track{BaseURL: t.BaseURL, Name: map[string]string{"simpleText": t.Name}, LanguageCode: t.LanguageCode, Kind: t.Kind})
	}
	doc := map[string]any{
		"playabilityStatus": map[string]any{"status": status, "reason": "reason for " + status},
		"videoDetails": map[string]any{
			"videoId":       "dQw4w9WgXcQ",
			"title":         "Never Gonna Give You Up",
			"lengthSeconds": "212",
			"author":        "Rick Astley",
			"isPrivate":     private,
		},
		"captions": map[string]any{
			"playerCaptionsTracklistRenderer": map[string]any{"captionTracks": ts},
		},
		"streamingData": map[string]any{"adaptiveFormats": formats},
	}
	raw, _ := json.Marshal(doc)
	return string(raw)
}

func watchPageHTML(player string) string {
	return fmt.Sprintf(`<!DOCTYPE html><html><head><title>video</title>
<script nonce="x">var ytcfg = {"a": "}"};</script>
</head><body>
<script nonce="y">var ytInitialPlayerResponse = %s;var meta = document.createElement('meta');</script>
</body></html>`, player)
}
