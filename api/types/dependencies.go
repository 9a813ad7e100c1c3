package types

import (
	"context"

	"github.com/matlukowski/readTube-sub000/internal/database"
	"github.com/matlukowski/readTube-sub000/internal/models"
	"github.com/matlukowski/readTube-sub000/internal/services/cache"
	"github.com/matlukowski/readTube-sub000/internal/services/jobs"
	"github.com/matlukowski/readTube-sub000/internal/services/transcription"
	"github.com/matlukowski/readTube-sub000/internal/services/workers"
	"github.com/matlukowski/readTube-sub000/pkg/youtube"
)

// UsageReader reads a caller's ledger
type UsageReader interface {
	Ledger(ctx context.Context, callerID string) (*models.UsageLedger, error)
}

// PlatformStats exposes video platform client counters
type PlatformStats interface {
	Stats() youtube.Stats
}

// BuildInfo describes the running binary
type BuildInfo struct {
	Version   string
	GitCommit string
	BuildTime string
}

// Dependencies holds all the dependencies needed by handlers
type Dependencies struct {
	DB                   *database.DB
	TranscriptionService transcription.TranscriptionService
	JobService           jobs.Service
	WorkerPool           *workers.WorkerPool
	Usage                UsageReader
	Platform             PlatformStats
	Cache                cache.StatsProvider
	Build                BuildInfo
}
