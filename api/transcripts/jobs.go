package transcripts

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/matlukowski/readTube-sub000/api/types"
	"github.com/matlukowski/readTube-sub000/internal/models"
	"github.com/matlukowski/readTube-sub000/internal/services/jobs"
	apperrors "github.com/matlukowski/readTube-sub000/pkg/errors"
)

func toJobResponse(job *models.Job) types.JobResponse {
	resp := types.JobResponse{
		JobID:       job.ID,
		VideoID:     job.VideoID,
		Status:      string(job.Status),
		Progress:    job.Progress,
		RetryCount:  job.RetryCount,
		ErrorCode:   job.ErrorCode,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}
	if len(job.Result) > 0 {
		resp.Result = job.Result
	}
	return resp
}

// PostJob queues an asynchronous acquisition
// @Summary      Queue a transcript acquisition
// @Description  Queues the acquisition for the worker pool and returns immediately. A queued or running job
// @Description  for the same video is returned instead of a new one. Poll the job, then read the transcript
// @Description  from GET /api/v1/transcripts/{videoId}.
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        X-Caller-ID header string false "Caller whose quota is charged"
// @Param        request body types.TranscriptRequest true "Video and acquisition options"
// @Success      202 {object} types.JobResponse
// @Failure      400 {object} types.ErrorResponse "Invalid video id or options"
// @Failure      503 {object} types.ErrorResponse "Job queue disabled"
// @Router       /api/v1/transcripts/jobs [post]
func PostJob(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.JobService == nil {
			types.SendError(c, apperrors.Misconfigured("job queue", "processing.workers"))
			return
		}

		var body types.TranscriptRequest
		if !types.BindJSONOrError(c, &body) {
			return
		}
		if body.MaxDurationSeconds < 0 {
			types.SendError(c, apperrors.ValidationError("maxDurationSeconds", "must not be negative"))
			return
		}

		job, err := deps.JobService.EnqueueTranscription(c.Request.Context(), jobs.TranscriptionJob{
			VideoID:            body.VideoID,
			Language:           body.Language,
			Strategy:           body.Strategy,
			MaxDurationSeconds: body.MaxDurationSeconds,
			CallerID:           types.CallerID(c),
			RequestID:          types.RequestID(c),
		})
		if err != nil {
			types.SendError(c, err)
			return
		}

		c.JSON(http.StatusAccepted, toJobResponse(job))
	}
}

// GetJob reports the state of a queued acquisition
// @Summary      Get job status
// @Tags         jobs
// @Produce      json
// @Param        id path int true "Job id" minimum(1)
// @Success      200 {object} types.JobResponse
// @Failure      400 {object} types.ErrorResponse "Invalid job id"
// @Failure      404 {object} types.ErrorResponse "Job not found"
// @Router       /api/v1/transcripts/jobs/{id} [get]
func GetJob(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.JobService == nil {
			types.SendError(c, apperrors.Misconfigured("job queue", "processing.workers"))
			return
		}

		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}

		job, err := deps.JobService.GetJob(c.Request.Context(), id)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, toJobResponse(job))
	}
}
