package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/matlukowski/readTube-sub000/internal/database"
	"github.com/matlukowski/readTube-sub000/internal/services/audio"
	"github.com/matlukowski/readTube-sub000/internal/services/cache"
	"github.com/matlukowski/readTube-sub000/internal/services/captions"
	"github.com/matlukowski/readTube-sub000/internal/services/jobs"
	"github.com/matlukowski/readTube-sub000/internal/services/orchestrator"
	"github.com/matlukowski/readTube-sub000/internal/services/resultcache"
	"github.com/matlukowski/readTube-sub000/internal/services/speech"
	"github.com/matlukowski/readTube-sub000/internal/services/transcription"
	"github.com/matlukowski/readTube-sub000/internal/services/usage"
	"github.com/matlukowski/readTube-sub000/internal/services/videos"
	"github.com/matlukowski/readTube-sub000/pkg/config"
	"github.com/matlukowski/readTube-sub000/pkg/download"
	"github.com/matlukowski/readTube-sub000/pkg/ffmpeg"
	"github.com/matlukowski/readTube-sub000/pkg/retry"
	"github.com/matlukowski/readTube-sub000/pkg/transcript"
	"github.com/matlukowski/readTube-sub000/pkg/youtube"
	"github.com/sirupsen/logrus"
)

// app holds the wired services shared by serve and the one-shot commands
type app struct {
	cfg    *config.Config
	logger logrus.FieldLogger

	db            *database.DB
	platform      *youtube.Client
	memo          *cache.MemoryCache
	usage         *usage.Service
	transcription *transcription.Service
	jobs          jobs.Service

	closers []io.Closer
	stops   []func()
}

// Close releases everything the app opened, in reverse order
func (a *app) Close() error {
	for i := len(a.stops) - 1; i >= 0; i-- {
		a.stops[i]()
	}
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// openDatabase opens and migrates the sqlite database
func openDatabase(cfg *config.Config, logger logrus.FieldLogger) (*database.DB, error) {
	db, err := database.Initialize(cfg.Database.Path, cfg.Database.Verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.WithField("path", cfg.Database.Path).Debug("Database ready")
	return db, nil
}

// newUsageService builds the quota ledger on the configured backend. The
// returned closer is nil for the sqlite backend.
func newUsageService(ctx context.Context, cfg *config.Config, db *database.DB, logger logrus.FieldLogger) (*usage.Service, io.Closer, error) {
	var (
		store  usage.Store
		closer io.Closer
	)
	switch cfg.Usage.Backend {
	case "redis":
		rdb, err := cache.NewRedisClient(ctx, cfg.Usage.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect usage ledger: %w", err)
		}
		store = usage.NewRedisStore(rdb, cfg.Usage.KeyPrefix)
		closer = rdb
	default:
		store = usage.NewGormStore(db.DB)
	}
	return usage.NewService(store, cfg.Usage.DefaultGrantedMinutes, logger), closer, nil
}

// buildApp wires the acquisition pipeline from cfg
func buildApp(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	db, err := openDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, db)

	usageSvc, usageCloser, err := newUsageService(ctx, cfg, db, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if usageCloser != nil {
		a.closers = append(a.closers, usageCloser)
	}
	a.usage = usageSvc

	a.platform = youtube.NewClient(youtube.Config{
		BaseURL:           cfg.YouTube.BaseURL,
		InnertubeURL:      cfg.YouTube.InnertubeURL,
		UserAgent:         cfg.YouTube.UserAgent,
		RequestsPerSecond: cfg.YouTube.RequestsPerSecond,
		Burst:             cfg.YouTube.Burst,
		Timeout:           cfg.YouTube.Timeout,
		Logger:            logger,
	})

	memo := cache.NewMemoryCache(cache.MemoryOptions{
		DefaultTTL:      cfg.Cache.Memory.TTL,
		CleanupInterval: cfg.Cache.Memory.CleanupInterval,
		MaxEntries:      cfg.Cache.Memory.MaxEntries,
	})
	a.stops = append(a.stops, memo.Stop)
	a.memo = memo

	videoSvc := videos.NewService(a.platform, videos.NewRepository(db.DB), memo, videos.Options{
		RefreshTTL: cfg.YouTube.MetadataTTL,
		Logger:     logger,
	})

	results, err := a.resultCache(ctx, db, memo)
	if err != nil {
		a.Close()
		return nil, err
	}

	runner, err := newOrchestrator(cfg, a.platform, videoSvc, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.transcription = transcription.NewService(videoSvc, usageSvc, results, runner, logger)
	a.jobs = jobs.NewService(jobs.NewRepository(db.DB), logger, jobs.WithMaxRetries(cfg.Processing.MaxRetries))
	return a, nil
}

// resultCache layers the in-process cache and the optional redis tier over
// the sqlite store
func (a *app) resultCache(ctx context.Context, db *database.DB, memo cache.Cache) (*resultcache.Service, error) {
	cfg := a.cfg
	tiers := []cache.Cache{memo}
	if cfg.Cache.RedisURL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.Cache.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect transcript cache: %w", err)
		}
		a.closers = append(a.closers, rdb)
		tiers = append(tiers, cache.NewRedisCache(rdb, cfg.Cache.KeyPrefix, a.logger))
	}
	return resultcache.NewService(resultcache.NewRepository(db.DB), resultcache.Options{
		Freshness: cfg.Cache.Freshness,
		TierTTL:   cfg.Cache.Memory.TTL,
		Logger:    a.logger,
	}, tiers...), nil
}

func newOrchestrator(cfg *config.Config, platform *youtube.Client, meta captions.MetadataSource, logger logrus.FieldLogger) (*orchestrator.Orchestrator, error) {
	fetcher := transcript.NewFetcher(transcript.FetchOptions{
		Timeout:    cfg.YouTube.Timeout,
		UserAgent:  cfg.YouTube.UserAgent,
		MaxSize:    cfg.Captions.MaxSize,
		HTTPClient: platform.HTTPClient(),
	})
	captionSvc := captions.NewService(meta, fetcher, captions.Options{
		Retry: retry.Policy{
			MaxAttempts: cfg.Captions.MaxAttempts,
			BaseDelay:   cfg.Captions.BaseDelay,
			MaxDelay:    cfg.Captions.MaxDelay,
			Multiplier:  2,
		},
		DefaultLanguages: cfg.Captions.DefaultLanguages,
		Logger:           logger,
	})

	downloads := download.DefaultOptions()
	downloads.HTTPClient = download.NewHTTPClient(downloads.Timeout)
	audioSvc := audio.NewService(platform, audio.Options{
		Identities:  youtube.IdentitiesByName(cfg.Audio.Identities),
		MaxAttempts: cfg.Audio.MaxAttempts,
		BackoffBase: cfg.Audio.BackoffBase,
		ChunkSize:   cfg.Audio.ChunkSize,
		MaxBytes:    cfg.Audio.MaxBytes,
		Download:    downloads,
		Logger:      logger,
	})

	remoteCfg := cfg.Speech.Remote
	remote := speech.NewRemoteTranscriber(speech.RemoteOptions{
		APIKey:         remoteCfg.APIKey,
		BaseURL:        remoteCfg.BaseURL,
		SpeechModel:    remoteCfg.SpeechModel,
		HTTPClient:     download.NewHTTPClient(remoteCfg.HTTPTimeout),
		MinPoll:        remoteCfg.MinPollInterval,
		MaxPoll:        remoteCfg.MaxPollInterval,
		PollPerMB:      remoteCfg.PollPerMB,
		GrowthAfter:    remoteCfg.GrowthAfter,
		GrowthFactor:   remoteCfg.GrowthFactor,
		MaxWait:        remoteCfg.MaxWait,
		MaxUploadBytes: remoteCfg.MaxUploadBytes,
		Logger:         logger,
	})

	localCfg := cfg.Speech.Local
	selector, err := speech.NewModelSelector(localCfg.ShortThreshold, localCfg.LongThreshold,
		localCfg.ShortModel, localCfg.MediumModel, localCfg.LongModel)
	if err != nil {
		return nil, fmt.Errorf("invalid model selection: %w", err)
	}
	registry := speech.NewModelRegistry(&speech.FileModelLoader{Dir: localCfg.ModelDir}, logger)
	local := speech.NewLocalTranscriber(
		ffmpeg.New(localCfg.FFmpegPath, localCfg.DecodeTimeout),
		speech.NewWhisperCLI(localCfg.WhisperPath, localCfg.Threads, cfg.Storage.TempDir),
		registry,
		speech.LocalOptions{
			Enabled:  localCfg.Enabled,
			Window:   localCfg.Window,
			Overlap:  localCfg.Overlap,
			Selector: selector,
			Logger:   logger,
		},
	)

	stages := cfg.Pipeline.StageTimeouts
	return orchestrator.New(captionSvc, audioSvc, remote, local, orchestrator.Options{
		Prefer:            cfg.Speech.Prefer,
		RemoteMaxDuration: cfg.Speech.RemoteMaxDuration,
		RequestTimeout:    cfg.Pipeline.RequestTimeout,
		StageTimeouts: orchestrator.StageTimeouts{
			Captions:       stages.Captions,
			RemoteSpeech:   stages.RemoteSpeech,
			LocalSpeech:    stages.LocalSpeech,
			ClientFallback: stages.ClientFallback,
		},
		DefaultLanguages: cfg.Captions.DefaultLanguages,
		Logger:           logger,
	}), nil
}
