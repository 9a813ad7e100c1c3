package transcript

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
)

// FetchOptions configures transcript fetching behavior
type FetchOptions struct {
	Timeout    time.Duration
	UserAgent  string
	MaxSize    int64        // Maximum transcript size in bytes
	HTTPClient *http.Client // optional, shares a transport with the platform client
}

// DefaultFetchOptions returns default fetch options
func DefaultFetchOptions() FetchOptions {
	return FetchOptions{
		Timeout:   30 * time.Second,
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
		MaxSize:   5 * 1024 * 1024,
	}
}

// Fetcher handles downloading timed-text tracks
type Fetcher struct {
	client  *http.Client
	options FetchOptions
}

// NewFetcher creates a new transcript fetcher
func NewFetcher(options FetchOptions) *Fetcher {
	defaults := DefaultFetchOptions()
	if options.Timeout == 0 {
		options.Timeout = defaults.Timeout
	}
	if options.UserAgent == "" {
		options.UserAgent = defaults.UserAgent
	}
	if options.MaxSize <= 0 {
		options.MaxSize = defaults.MaxSize
	}

	client := options.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: options.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        5,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}
	return &Fetcher{client: client, options: options}
}

// TranscriptResult contains the fetched transcript and metadata
type TranscriptResult struct {
	Content     string
	Format      TranscriptFormat
	ContentType string
	Size        int64
}

// Fetch downloads a transcript from the given URL. Errors carry a code:
// NOT_FOUND for a missing or empty track, and retryable kinds for transport
// trouble.
func (f *Fetcher) Fetch(ctx context.Context, trackURL string) (*TranscriptResult, error) {
	if trackURL == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "empty transcript URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trackURL, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "failed to create request")
	}
	req.Header.Set("User-Agent", f.options.UserAgent)
	req.Header.Set("Accept", "application/xml,application/json,text/vtt,text/plain,*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fetchTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if err := fetchStatusError(resp.StatusCode, trackURL); err != nil {
		return nil, err
	}

	if resp.ContentLength > f.options.MaxSize {
		return nil, apperrors.Newf(apperrors.ErrCodeExternalService,
			"transcript too large: %d bytes (max: %d)", resp.ContentLength, f.options.MaxSize)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.options.MaxSize))
	if err != nil {
		return nil, fetchTransportError(ctx, err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		// the platform answers 200 with an empty body when a track needs a token
		return nil, apperrors.NotFound("caption track content", trackURL)
	}

	content := string(body)
	contentType := resp.Header.Get("Content-Type")

	return &TranscriptResult{
		Content:     content,
		Format:      detectFormat(trackURL, contentType, content),
		ContentType: contentType,
		Size:        int64(len(body)),
	}, nil
}

func fetchStatusError(code int, trackURL string) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound || code == http.StatusGone:
		return apperrors.NotFound("caption track", trackURL)
	case code == http.StatusTooManyRequests:
		return apperrors.RateLimitError("timedtext", "HTTP 429")
	case code == http.StatusForbidden:
		return apperrors.Newf(apperrors.ErrCodeBotDetected, "timedtext returned HTTP %d", code).
			WithDetail("http_status", code)
	default:
		return apperrors.Newf(apperrors.ErrCodeExternalService, "timedtext returned HTTP %d", code).
			WithDetail("http_status", code)
	}
}

func fetchTransportError(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return apperrors.Wrap(err, apperrors.ErrCodeAPITimeout, "timedtext request timed out")
	}
	return apperrors.ExternalServiceError("timedtext", err)
}

// detectFormat determines the transcript format from URL, content type, and content
func detectFormat(rawURL, contentType, content string) TranscriptFormat {
	// timedtext URLs name their format in the fmt parameter
	if u, err := url.Parse(rawURL); err == nil {
		switch strings.ToLower(u.Query().Get("fmt")) {
		case "srv3":
			return FormatSRV3
		case "json3":
			return FormatJSON3
		case "vtt":
			return FormatVTT
		case "srv1":
			return FormatSRV1
		}

		path := strings.ToLower(u.Path)
		switch {
		case strings.HasSuffix(path, ".vtt"):
			return FormatVTT
		case strings.HasSuffix(path, ".srt"):
			return FormatSRT
		case strings.HasSuffix(path, ".json"):
			return FormatJSON
		case strings.HasSuffix(path, ".txt"):
			return FormatText
		}
	}

	contentTypeLower := strings.ToLower(contentType)
	if strings.Contains(contentTypeLower, "vtt") {
		return FormatVTT
	}
	if strings.Contains(contentTypeLower, "subrip") || strings.Contains(contentTypeLower, "srt") {
		return FormatSRT
	}

	trimmed := strings.TrimSpace(content)
	head := trimmed[:min(len(trimmed), 1000)]

	if strings.Contains(contentTypeLower, "json") {
		if strings.Contains(head, `"events"`) {
			return FormatJSON3
		}
		return FormatJSON
	}

	switch {
	case strings.HasPrefix(head, "WEBVTT"):
		return FormatVTT
	case strings.Contains(head, "<timedtext"):
		return FormatSRV3
	case strings.Contains(head, "<transcript"):
		return FormatSRV1
	case strings.HasPrefix(head, "{") && strings.Contains(head, `"events"`):
		return FormatJSON3
	case strings.HasPrefix(head, "{") || strings.HasPrefix(head, "["):
		return FormatJSON
	case strings.Contains(head, "-->"):
		return FormatSRT
	}

	return FormatText
}
