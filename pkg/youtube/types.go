package youtube

import (
	"strconv"
	"strings"
)

// Identity is an innertube client profile. Rotating identities is the
// only lever against bot checks that target one client.
type Identity struct {
	Name        string
	NameID      string // X-Youtube-Client-Name
	Version     string
	UserAgent   string
	AndroidSDK  int
	DeviceModel string
	OSName      string
	OSVersion   string
	EmbedURL    string
}

var (
	IdentityAndroid = Identity{
		Name:       "ANDROID",
		NameID:     "3",
		Version:    "20.10.38",
		UserAgent:  "com.google.android.youtube/20.10.38 (Linux; U; Android 11) gzip",
		AndroidSDK: 30,
		OSName:     "Android",
		OSVersion:  "11",
	}
	IdentityIOS = Identity{
		Name:        "IOS",
		NameID:      "5",
		Version:     "20.10.4",
		UserAgent:   "com.google.ios.youtube/20.10.4 (iPhone16,2; U; CPU iOS 18_3_2 like Mac OS X;)",
		DeviceModel: "iPhone16,2",
		OSName:      "iPhone",
		OSVersion:   "18.3.2.22D82",
	}
	IdentityTVEmbed = Identity{
		Name:      "TVHTML5_SIMPLY_EMBEDDED_PLAYER",
		NameID:    "85",
		Version:   "2.0",
		UserAgent: "Mozilla/5.0 (PlayStation; PlayStation 4/12.00) AppleWebKit/605.1.15 (KHTML, like Gecko)",
		EmbedURL:  "https://www.youtube.com/",
	}
)

var knownIdentities = map[string]Identity{
	IdentityAndroid.Name: IdentityAndroid,
	IdentityIOS.Name:     IdentityIOS,
	IdentityTVEmbed.Name: IdentityTVEmbed,
}

// DefaultIdentities is the rotation order used when none is configured
var DefaultIdentities = []Identity{IdentityAndroid, IdentityIOS, IdentityTVEmbed}

// IdentitiesByName resolves configured names, skipping unknown ones.
func IdentitiesByName(names []string) []Identity {
	var out []Identity
	for _, n := range names {
		if id, ok := knownIdentities[strings.ToUpper(strings.TrimSpace(n))]; ok {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return DefaultIdentities
	}
	return out
}

// Playability statuses reported by the player endpoint
const (
	StatusOK            = "OK"
	StatusError         = "ERROR"
	StatusUnplayable    = "UNPLAYABLE"
	StatusLoginRequired = "LOGIN_REQUIRED"
	StatusLiveOffline   = "LIVE_STREAM_OFFLINE"
	StatusAgeCheck      = "AGE_CHECK_REQUIRED"
	StatusContentCheck  = "CONTENT_CHECK_REQUIRED"
)

// playerResponse mirrors the parts of ytInitialPlayerResponse we read
type playerResponse struct {
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	VideoDetails *struct {
		VideoID       string `json:"videoId"`
		Title         string `json:"title"`
		LengthSeconds string `json:"lengthSeconds"`
		Author        string `json:"author"`
		IsPrivate     bool   `json:"isPrivate"`
		IsLiveContent bool   `json:"isLiveContent"`
	} `json:"videoDetails"`
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []struct {
				BaseURL string `json:"baseUrl"`
				Name    struct {
					SimpleText string `json:"simpleText"`
					Runs       []struct {
						Text string `json:"text"`
					} `json:"runs"`
				} `json:"name"`
				LanguageCode   string `json:"languageCode"`
				Kind           string `json:"kind"`
				VssID          string `json:"vssId"`
				IsTranslatable bool   `json:"isTranslatable"`
			} `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	StreamingData *struct {
		ExpiresInSeconds string   `json:"expiresInSeconds"`
		AdaptiveFormats  []Format `json:"adaptiveFormats"`
	} `json:"streamingData"`
}

// CaptionTrack describes one timed-text track
type CaptionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Name         string `json:"name"`
	// Kind is "asr" for auto-generated tracks and empty for manual ones
	Kind string `json:"kind,omitempty"`
}

// AutoGenerated reports whether the track is speech-recognized
func (t CaptionTrack) AutoGenerated() bool {
	return t.Kind == "asr"
}

// Format is one adaptive rendition from streamingData
type Format struct {
	Itag             int    `json:"itag"`
	URL              string `json:"url"`
	MimeType         string `json:"mimeType"`
	Bitrate          int    `json:"bitrate"`
	AverageBitrate   int    `json:"averageBitrate"`
	ContentLength    string `json:"contentLength"`
	ApproxDurationMs string `json:"approxDurationMs"`
	AudioQuality     string `json:"audioQuality"`
	AudioSampleRate  string `json:"audioSampleRate"`
	AudioChannels    int    `json:"audioChannels"`
	SignatureCipher  string `json:"signatureCipher,omitempty"`
}

// IsAudioOnly reports whether the rendition carries no video
func (f Format) IsAudioOnly() bool {
	return strings.HasPrefix(f.MimeType, "audio/")
}

// Container returns the mime subtype, e.g. "mp4" or "webm"
func (f Format) Container() string {
	mt := f.MimeType
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	if i := strings.IndexByte(mt, '/'); i >= 0 {
		return strings.TrimSpace(mt[i+1:])
	}
	return ""
}

// Codec returns the codecs parameter, e.g. "mp4a.40.2" or "opus"
func (f Format) Codec() string {
	i := strings.Index(f.MimeType, "codecs=")
	if i < 0 {
		return ""
	}
	return strings.Trim(f.MimeType[i+len("codecs="):], `"' `)
}

// Size returns the declared content length, or 0 when unknown
func (f Format) Size() int64 {
	n, _ := strconv.ParseInt(f.ContentLength, 10, 64)
	return n
}

// DurationSeconds returns the rendition duration rounded up
func (f Format) DurationSeconds() int {
	ms, err := strconv.ParseInt(f.ApproxDurationMs, 10, 64)
	if err != nil || ms <= 0 {
		return 0
	}
	return int((ms + 999) / 1000)
}

// VideoMetadata is what the rest of the service knows about a video
type VideoMetadata struct {
	ID              string
	Title           string
	Author          string
	DurationSeconds int
	IsPrivate       bool
	IsLive          bool
	Status          string
	Reason          string
	CaptionTracks   []CaptionTrack
	Formats         []Format
	Identity        string
}

// AudioFormats returns the audio-only renditions that carry a direct URL
func (m *VideoMetadata) AudioFormats() []Format {
	var out []Format
	for _, f := range m.Formats {
		if f.IsAudioOnly() && f.URL != "" {
			out = append(out, f)
		}
	}
	return out
}

func (p *playerResponse) toMetadata(id string) *VideoMetadata {
	meta := &VideoMetadata{
		ID:     id,
		Status: p.PlayabilityStatus.Status,
		Reason: p.PlayabilityStatus.Reason,
	}
	if d := p.VideoDetails; d != nil {
		meta.Title = d.Title
		meta.Author = d.Author
		meta.IsPrivate = d.IsPrivate
		meta.IsLive = d.IsLiveContent
		meta.DurationSeconds, _ = strconv.Atoi(d.LengthSeconds)
	}
	if c := p.Captions; c != nil {
		for _, t := range c.PlayerCaptionsTracklistRenderer.CaptionTracks {
			name := t.Name.SimpleText
			if name == "" && len(t.Name.Runs) > 0 {
				name = t.Name.Runs[0].Text
			}
			meta.CaptionTracks = append(meta.CaptionTracks, CaptionTrack{
				BaseURL:      t.BaseURL,
				LanguageCode: t.LanguageCode,
				Name:         name,
				Kind:         t.Kind,
			})
		}
	}
	if s := p.StreamingData; s != nil {
		meta.Formats = s.AdaptiveFormats
	}
	if meta.DurationSeconds == 0 {
		for _, f := range meta.Formats {
			if d := f.DurationSeconds(); d > 0 {
				meta.DurationSeconds = d
				break
			}
		}
	}
	return meta
}
