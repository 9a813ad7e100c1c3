package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
)

// DefaultChunkSize is the span requested per Range call
const DefaultChunkSize int64 = 4 << 20

// Options configures the range reader
type Options struct {
	ChunkSize     int64         // Bytes per Range request (0 = DefaultChunkSize)
	MaxBytes      int64         // Maximum bytes to stream (0 = no limit)
	Timeout       time.Duration // Per-request timeout when HTTPClient is nil
	UserAgent     string        // User agent string
	Header        http.Header   // Extra headers sent with every range request
	ValidateAudio bool          // Reject non-audio content types on the first response
	ProgressFunc  ProgressFunc  // Optional progress callback
	HTTPClient    *http.Client
}

// ProgressFunc is called while streaming to report progress
type ProgressFunc func(downloaded, total int64)

// DefaultOptions returns default download options
func DefaultOptions() Options {
	return Options{
		ChunkSize:     DefaultChunkSize,
		MaxBytes:      500 << 20,
		Timeout:       2 * time.Minute,
		UserAgent:     "Mozilla/5.0 (Linux; Android 11) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Mobile Safari/537.36",
		ValidateAudio: true,
	}
}

// NewHTTPClient returns a client tuned for media streaming
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
			DisableCompression:  true, // Don't compress audio
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// RangeReader streams a remote media file through sequential bounded Range
// requests. At most one chunk response is open at a time, so memory stays
// flat regardless of file size. Servers that ignore Range and answer 200 are
// streamed in a single pass.
type RangeReader struct {
	ctx    context.Context
	url    string
	opts   Options
	client *http.Client

	total       int64 // -1 until known
	offset      int64
	body        io.ReadCloser
	chunkRemain int64
	single      bool // server ignored Range
	contentType string
	done        bool
	closed      bool
}

// NewRangeReader prepares a reader for url. contentLength may be 0 when the
// size is unknown; it is learned from Content-Range on the first response.
func NewRangeReader(ctx context.Context, url string, contentLength int64, opts Options) *RangeReader {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	client := opts.HTTPClient
	if client == nil {
		client = NewHTTPClient(opts.Timeout)
	}
	total := contentLength
	if total <= 0 {
		total = -1
	}
	return &RangeReader{
		ctx:    ctx,
		url:    url,
		opts:   opts,
		client: client,
		total:  total,
	}
}

// ContentType returns the Content-Type of the first response
func (r *RangeReader) ContentType() string {
	return r.contentType
}

// Size returns the total size if known, otherwise -1
func (r *RangeReader) Size() int64 {
	return r.total
}

// BytesRead returns the number of bytes streamed so far
func (r *RangeReader) BytesRead() int64 {
	return r.offset
}

func (r *RangeReader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, errors.New("range reader closed")
	}
	for {
		if r.done {
			return 0, io.EOF
		}
		if r.body == nil {
			if r.total >= 0 && r.offset >= r.total {
				r.done = true
				continue
			}
			if err := r.openChunk(); err != nil {
				return 0, err
			}
			continue
		}

		n, err := r.body.Read(p)
		if n > 0 {
			r.offset += int64(n)
			r.chunkRemain -= int64(n)
			if r.opts.MaxBytes > 0 && r.offset > r.opts.MaxBytes {
				r.closeBody()
				return 0, apperrors.New(apperrors.ErrCodeTooLong,
					fmt.Sprintf("audio stream exceeds %d bytes", r.opts.MaxBytes))
			}
			if r.opts.ProgressFunc != nil {
				r.opts.ProgressFunc(r.offset, r.total)
			}
		}

		if err == io.EOF {
			r.closeBody()
			switch {
			case r.single:
				r.done = true
			case r.chunkRemain > 0:
				// short chunk: the server has nothing past this point
				r.done = true
			}
			if n > 0 {
				return n, nil
			}
			continue
		}
		if err != nil {
			r.closeBody()
			return n, r.transportError(err)
		}
		return n, nil
	}
}

// Close releases the current chunk response
func (r *RangeReader) Close() error {
	r.closed = true
	r.closeBody()
	return nil
}

func (r *RangeReader) closeBody() {
	if r.body != nil {
		_ = r.body.Close()
		r.body = nil
	}
}

func (r *RangeReader) openChunk() error {
	end := r.offset + r.opts.ChunkSize - 1
	if r.total >= 0 && end >= r.total {
		end = r.total - 1
	}

	req, err := http.NewRequestWithContext(r.ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "invalid media URL")
	}
	for k, vs := range r.opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.opts.UserAgent != "" {
		req.Header.Set("User-Agent", r.opts.UserAgent)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", r.offset, end))

	resp, err := r.client.Do(req)
	if err != nil {
		return r.transportError(err)
	}

	switch resp.StatusCode {
	case http.StatusPartialContent:
		if total := parseContentRangeTotal(resp.Header.Get("Content-Range")); total >= 0 {
			r.total = total
		}
		r.chunkRemain = end - r.offset + 1
	case http.StatusOK:
		if r.offset > 0 {
			resp.Body.Close()
			return apperrors.New(apperrors.ErrCodeExternalService, "media server dropped range support mid-stream")
		}
		r.single = true
		if resp.ContentLength > 0 {
			r.total = resp.ContentLength
		}
	case http.StatusRequestedRangeNotSatisfiable:
		resp.Body.Close()
		if r.offset > 0 {
			r.done = true
			return nil
		}
		return apperrors.New(apperrors.ErrCodeNoAudioFormats, "media stream is empty")
	default:
		resp.Body.Close()
		return statusError(resp.StatusCode)
	}

	if r.contentType == "" {
		r.contentType = resp.Header.Get("Content-Type")
		if r.opts.ValidateAudio && !isAudioContentType(r.contentType) {
			resp.Body.Close()
			return apperrors.New(apperrors.ErrCodeNoAudioFormats,
				fmt.Sprintf("invalid content type: %s", r.contentType))
		}
	}
	if r.opts.MaxBytes > 0 && r.total > r.opts.MaxBytes {
		resp.Body.Close()
		return apperrors.New(apperrors.ErrCodeTooLong,
			fmt.Sprintf("audio stream is %d bytes (max %d)", r.total, r.opts.MaxBytes))
	}

	r.body = resp.Body
	return nil
}

func (r *RangeReader) transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(err, apperrors.ErrCodeAPITimeout, "media download timed out")
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return apperrors.ExternalServiceError("media host", err)
}

func statusError(code int) error {
	switch code {
	case http.StatusForbidden, http.StatusTooManyRequests:
		return apperrors.New(apperrors.ErrCodeBotDetected,
			fmt.Sprintf("media host refused the request with status %d", code))
	default:
		return apperrors.New(apperrors.ErrCodeExternalService,
			fmt.Sprintf("media host returned status %d", code))
	}
}

// parseContentRangeTotal reads the total from "bytes 0-99/1234"; -1 if absent
func parseContentRangeTotal(header string) int64 {
	idx := strings.LastIndexByte(header, '/')
	if idx < 0 || idx == len(header)-1 {
		return -1
	}
	total, err := strconv.ParseInt(header[idx+1:], 10, 64)
	if err != nil {
		return -1
	}
	return total
}

// isAudioContentType checks if content type is audio
func isAudioContentType(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.HasPrefix(contentType, "audio/") ||
		strings.HasPrefix(contentType, "video/") || // audio-only renditions are often labeled video/*
		contentType == "application/octet-stream" ||
		contentType == ""
}
