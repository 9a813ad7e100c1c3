package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	maxPageBytes   = 10 << 20
	maxPlayerBytes = 4 << 20
	serviceName    = "youtube"
)

// Config holds configuration for the platform client
type Config struct {
	BaseURL      string // Default: https://www.youtube.com
	InnertubeURL string // Default: <BaseURL>/youtubei/v1/player
	UserAgent    string

	// Rate limiting
	RequestsPerSecond float64 // Default: 5
	Burst             int     // Default: 10

	Timeout    time.Duration // Default: 15s
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

// Client talks to the watch page and the innertube player endpoint
type Client struct {
	httpClient   *http.Client
	rateLimiter  *rate.Limiter
	baseURL      string
	innertubeURL string
	userAgent    string
	log          logrus.FieldLogger

	metrics clientMetrics
}

type clientMetrics struct {
	requests  atomic.Int64
	botChecks atomic.Int64
	errors    atomic.Int64
}

// Stats is a snapshot of client counters
type Stats struct {
	Requests  int64 `json:"requests"`
	BotChecks int64 `json:"botChecks"`
	Errors    int64 `json:"errors"`
}

// NewClient creates a new platform client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.youtube.com"
	}
	if cfg.InnertubeURL == "" {
		cfg.InnertubeURL = cfg.BaseURL + "/youtubei/v1/player"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	return &Client{
		httpClient:   cfg.HTTPClient,
		rateLimiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		baseURL:      cfg.BaseURL,
		innertubeURL: cfg.InnertubeURL,
		userAgent:    cfg.UserAgent,
		log:          cfg.Logger.WithField("component", serviceName),
	}
}

// HTTPClient returns the client used for platform requests. Timed-text and
// media downloads share it so they inherit the same transport.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Stats returns request counters
func (c *Client) Stats() Stats {
	return Stats{
		Requests:  c.metrics.requests.Load(),
		BotChecks: c.metrics.botChecks.Load(),
		Errors:    c.metrics.errors.Load(),
	}
}

// Metadata returns title, duration, caption tracks and playability for a
// video. The watch page is tried first; when it carries no player response
// or hits a bot wall the innertube endpoint answers instead.
func (c *Client) Metadata(ctx context.Context, videoID string) (*VideoMetadata, error) {
	if err := ValidateVideoID(videoID); err != nil {
		return nil, err
	}

	meta, err := c.watchPage(ctx, videoID)
	switch {
	case err == nil:
		cerr := Classify(meta)
		if cerr == nil || apperrors.IsFatal(cerr) {
			return meta, cerr
		}
		c.log.WithFields(logrus.Fields{"video_id": videoID, "status": meta.Status}).
			Debug("Watch page not playable, falling back to innertube")
	case errors.Is(err, errNoPlayerResponse), apperrors.Is(err, apperrors.ErrCodeBotDetected):
		c.log.WithError(err).WithField("video_id", videoID).Debug("Watch page unusable, falling back to innertube")
	default:
		return nil, err
	}

	return c.Player(ctx, videoID, IdentityAndroid)
}

// Player calls the innertube player endpoint as identity
func (c *Client) Player(ctx context.Context, videoID string, identity Identity) (*VideoMetadata, error) {
	if err := ValidateVideoID(videoID); err != nil {
		return nil, err
	}

	body, err := json.Marshal(newPlayerRequest(videoID, identity))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode player request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.innertubeURL+"?prettyPrint=false", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "build player request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", identity.UserAgent)
	req.Header.Set("X-Youtube-Client-Name", identity.NameID)
	req.Header.Set("X-Youtube-Client-Version", identity.Version)
	req.Header.Set("Origin", c.baseURL)

	resp, err := c.do(req, videoID)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var pr playerResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPlayerBytes)).Decode(&pr); err != nil {
		c.metrics.errors.Add(1)
		return nil, apperrors.Wrap(err, apperrors.ErrCodeExternalService, "decode player response").
			WithDetail("identity", identity.Name)
	}

	meta := pr.toMetadata(videoID)
	meta.Identity = identity.Name
	if err := Classify(meta); err != nil {
		if apperrors.Is(err, apperrors.ErrCodeBotDetected) {
			c.metrics.botChecks.Add(1)
		}
		return meta, err
	}
	return meta, nil
}

func (c *Client) watchPage(ctx context.Context, videoID string) (*VideoMetadata, error) {
	u := fmt.Sprintf("%s/watch?v=%s&hl=en", c.baseURL, url.QueryEscape(videoID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "build watch page request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	// pre-accepted consent skips the EU interstitial
	req.AddCookie(&http.Cookie{Name: "CONSENT", Value: "YES+cb"})

	resp, err := c.do(req, videoID)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := extractPlayerJSON(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, err
	}

	var pr playerResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, fmt.Errorf("%w: %v", errNoPlayerResponse, err)
	}
	meta := pr.toMetadata(videoID)
	meta.Identity = "WEB"
	return meta, nil
}

func (c *Client) do(req *http.Request, videoID string) (*http.Response, error) {
	ctx := req.Context()
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, transportError(ctx, err)
	}

	c.metrics.requests.Add(1)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.errors.Add(1)
		return nil, transportError(ctx, err)
	}

	if err := statusError(resp.StatusCode, videoID); err != nil {
		resp.Body.Close()
		if apperrors.Is(err, apperrors.ErrCodeBotDetected) {
			c.metrics.botChecks.Add(1)
		} else {
			c.metrics.errors.Add(1)
		}
		return nil, err
	}
	return resp, nil
}

// Classify turns a playability status into the error taxonomy. It is the
// only place platform state is interpreted.
func Classify(meta *VideoMetadata) error {
	switch meta.Status {
	case StatusOK:
		return nil
	case StatusError, StatusUnplayable, StatusLiveOffline:
		return apperrors.Unavailable(meta.ID, statusReason(meta)).WithDetail("status", meta.Status)
	case StatusLoginRequired:
		if meta.IsPrivate {
			return apperrors.Unavailable(meta.ID, statusReason(meta)).WithDetail("status", meta.Status)
		}
		return botDetected(meta)
	case StatusAgeCheck, StatusContentCheck:
		return botDetected(meta)
	case "":
		return apperrors.New(apperrors.ErrCodeExternalService, "player response has no playability status").
			WithDetail("video_id", meta.ID)
	default:
		return apperrors.Newf(apperrors.ErrCodeExternalService, "unexpected playability status %s", meta.Status).
			WithDetail("video_id", meta.ID).
			WithDetail("status", meta.Status)
	}
}

func botDetected(meta *VideoMetadata) error {
	return apperrors.Newf(apperrors.ErrCodeBotDetected, "platform challenged client %s", meta.Identity).
		WithDetail("video_id", meta.ID).
		WithDetail("status", meta.Status).
		WithDetail("identity", meta.Identity)
}

func statusReason(meta *VideoMetadata) string {
	if meta.Reason != "" {
		return meta.Reason
	}
	return meta.Status
}

func statusError(code int, videoID string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests, code == http.StatusForbidden:
		return apperrors.Newf(apperrors.ErrCodeBotDetected, "platform returned HTTP %d", code).
			WithDetail("http_status", code).
			WithDetail("video_id", videoID)
	case code == http.StatusNotFound || code == http.StatusGone:
		return apperrors.Unavailable(videoID, http.StatusText(code)).WithDetail("http_status", code)
	default:
		return apperrors.Newf(apperrors.ErrCodeExternalService, "platform returned HTTP %d", code).
			WithDetail("http_status", code).
			WithDetail("video_id", videoID)
	}
}

// transportError maps network failures onto retryable kinds
func transportError(ctx context.Context, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apperrors.Wrap(err, apperrors.ErrCodeAPITimeout, "platform request timed out")
	case errors.As(err, &netErr) && netErr.Timeout():
		return apperrors.Wrap(err, apperrors.ErrCodeAPITimeout, "platform request timed out")
	default:
		return apperrors.ExternalServiceError(serviceName, err)
	}
}

type playerRequest struct {
	VideoID        string        `json:"videoId"`
	Context        playerContext `json:"context"`
	ContentCheckOK bool          `json:"contentCheckOk"`
	RacyCheckOK    bool          `json:"racyCheckOk"`
}

type playerContext struct {
	Client     playerClient `json:"client"`
	ThirdParty *thirdParty  `json:"thirdParty,omitempty"`
}

type playerClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSDKVersion int    `json:"androidSdkVersion,omitempty"`
	DeviceModel       string `json:"deviceModel,omitempty"`
	OSName            string `json:"osName,omitempty"`
	OSVersion         string `json:"osVersion,omitempty"`
	HL                string `json:"hl"`
	GL                string `json:"gl"`
}

type thirdParty struct {
	EmbedURL string `json:"embedUrl"`
}

func newPlayerRequest(videoID string, id Identity) playerRequest {
	req := playerRequest{
		VideoID: videoID,
		Context: playerContext{
			Client: playerClient{
				ClientName:        id.Name,
				ClientVersion:     id.Version,
				AndroidSDKVersion: id.AndroidSDK,
				DeviceModel:       id.DeviceModel,
				OSName:            id.OSName,
				OSVersion:         id.OSVersion,
				HL:                "en",
				GL:                "US",
			},
		},
		ContentCheckOK: true,
		RacyCheckOK:    true,
	}
	if id.EmbedURL != "" {
		req.Context.ThirdParty = &thirdParty{EmbedURL: id.EmbedURL}
	}
	return req
}
