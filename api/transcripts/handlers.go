package transcripts

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/matlukowski/readTube-sub000/api/types"
	"github.com/matlukowski/readTube-sub000/internal/models"
	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
)

func toResponse(c *gin.Context, r *models.TranscriptionResult) types.TranscriptResponse {
	return types.TranscriptResponse{
		VideoID:          r.VideoID,
		Transcript:       r.Text,
		Source:           string(r.Source),
		LengthChars:      r.LengthChars,
		ProcessingTimeMs: r.ProcessingTimeMs,
		ModelOrMethod:    r.ModelOrMethod,
		CostEstimate:     r.CostEstimate,
		Language:         r.Language,
		Cached:           r.Cached,
		RequestID:        types.RequestID(c),
	}
}

// buildRequest validates the body and turns it into a pipeline request
func buildRequest(c *gin.Context, body types.TranscriptRequest) (*models.TranscriptionRequest, error) {
	hint, err := models.ParseStrategyHint(body.Strategy)
	if err != nil {
		return nil, apperrors.ValidationError("strategy", err.Error())
	}
	if body.MaxDurationSeconds < 0 {
		return nil, apperrors.ValidationError("maxDurationSeconds", "must not be negative")
	}
	return &models.TranscriptionRequest{
		Video:              models.VideoRef{ID: strings.TrimSpace(body.VideoID)},
		PreferredLanguage:  body.Language,
		Languages:          body.Languages,
		MaxDurationSeconds: body.MaxDurationSeconds,
		Strategy:           hint,
		ClientTranscript:   body.ClientTranscript,
		CallerID:           types.CallerID(c),
		RequestID:          types.RequestID(c),
	}, nil
}

// Post acquires a transcript synchronously
// @Summary      Acquire a transcript
// @Description  Returns the transcript of a video. Captions are tried first, then remote or local speech
// @Description  recognition, then the clientTranscript supplied in the body. Cost is charged in whole video
// @Description  minutes against the X-Caller-ID quota; cached transcripts are free.
// @Tags         transcripts
// @Accept       json
// @Produce      json
// @Param        X-Caller-ID header string false "Caller whose quota is charged"
// @Param        request body types.TranscriptRequest true "Video and acquisition options"
// @Success      200 {object} types.TranscriptResponse
// @Failure      400 {object} types.ErrorResponse "Invalid video id or options"
// @Failure      402 {object} types.ErrorResponse "Quota exceeded"
// @Failure      404 {object} types.ErrorResponse "Video unavailable"
// @Failure      422 {object} types.ErrorResponse "Every strategy failed, see troubleshooting"
// @Failure      429 {object} types.ErrorResponse "Rate limited"
// @Router       /api/v1/transcripts [post]
func Post(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body types.TranscriptRequest
		if !types.BindJSONOrError(c, &body) {
			return
		}

		req, err := buildRequest(c, body)
		if err != nil {
			types.SendError(c, err)
			return
		}

		result, err := deps.TranscriptionService.Acquire(c.Request.Context(), req)
		if err != nil {
			types.SendError(c, err)
			return
		}

		types.SendSuccess(c, toResponse(c, result))
	}
}

// Get returns a cached transcript
// @Summary      Get a cached transcript
// @Description  Serves a fresh cached transcript without running any strategy or charging quota
// @Tags         transcripts
// @Produce      json
// @Param        videoId path string true "Video id or URL-encoded video URL"
// @Success      200 {object} types.TranscriptResponse
// @Failure      400 {object} types.ErrorResponse "Invalid video id"
// @Failure      404 {object} types.ErrorResponse "No fresh transcript cached"
// @Router       /api/v1/transcripts/{videoId} [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := deps.TranscriptionService.Cached(c.Request.Context(), c.Param("videoId"))
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, toResponse(c, result))
	}
}

// PostClient stores a transcript extracted by the client
// @Summary      Submit a client-extracted transcript
// @Description  Stores a transcript the browser extracted itself. The text is cleaned and cached with
// @Description  source client-fallback; no quota is charged.
// @Tags         transcripts
// @Accept       json
// @Produce      json
// @Param        videoId path string true "Video id"
// @Param        request body types.ClientTranscriptRequest true "Transcript text"
// @Success      201 {object} types.TranscriptResponse
// @Failure      400 {object} types.ErrorResponse "Invalid video id or empty transcript"
// @Router       /api/v1/transcripts/{videoId}/client [post]
func PostClient(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body types.ClientTranscriptRequest
		if !types.BindJSONOrError(c, &body) {
			return
		}

		result, err := deps.TranscriptionService.SubmitClientTranscript(c.Request.Context(), c.Param("videoId"), body.Transcript, body.Language)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendCreated(c, toResponse(c, result))
	}
}
