package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/vetlab-site/labmedia/blob"
	"github.com/vetlab-site/labmedia/config"
	"github.com/vetlab-site/labmedia/fileutils"
	"github.com/vetlab-site/labmedia/refindex"
	"github.com/vetlab-site/labmedia/scheduler"
	"github.com/vetlab-site/labmedia/sweep"
	"github.com/vetlab-site/labmedia/ziparchiver"
)

func daemonCommand(ctx context.Context, args Command, logger zerolog.Logger) error {
	if args.Daemon.DryRun {
		logger = logger.With().Bool("dryrun", true).Logger()
	}

	cfg, err := config.LoadFromFile(args.Daemon.Config)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	dbPath := args.Daemon.Database
	if dbPath == "" {
		dbPath = cfg.Database
	}
	if dbPath == "" {
		return fmt.Errorf("no database specified")
	}

	dbCli, err := newSQLite(dbPath, logger)
	if err != nil {
		return fmt.Errorf("could not open database: %w", err)
	}

	scheduler := scheduler.NewScheduler(scheduler.SchedulerParams{
		Logger: logger,
	})

	err = addSweepJobsFromConfig(ctx, scheduler, cfg, dbCli, logger, args.Daemon.DryRun)
	if err != nil {
		return fmt.Errorf("could not add sweep jobs: %w", err)
	}

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	startConfigFileWatcher(ctx, args.Daemon.Config, logger, ticker, func(cfg *config.Config) {
		scheduler.RemoveJobs()
		err := addSweepJobsFromConfig(ctx, scheduler, cfg, dbCli, logger, args.Daemon.DryRun)
		if err != nil {
			logger.Error().Err(err).Msg("failed to add sweep jobs")
		}
	})

	scheduler.Start()
	defer scheduler.Stop()

	<-ctx.Done()

	return nil
}

func addSweepJobsFromConfig(
	ctx context.Context,
	scheduler *scheduler.Scheduler,
	cfg *config.Config,
	dbCli *gorm.DB,
	logger zerolog.Logger,
	dryRun bool,
) error {
	if cfg.StorageRoot == "" {
		return fmt.Errorf("config must have a storage root")
	}
	store := blob.NewStore(cfg.StorageRoot, logger)

	for _, cfgSweep := range cfg.Sweeps {
		job, err := configSweepToJob(ctx, cfgSweep, cfg, store, dbCli, logger, dryRun)
		if err != nil {
			logger.Warn().AnErr("cause", err).Msg("skipping sweep")
			continue
		}

		if !cfgSweep.Enable {
			logger.Info().Object("sweep", cfgSweep).Msg("skipping disabled sweep")
			continue
		}

		if err := scheduler.AddSweepJob(ctx, cfgSweep.Schedule, job); err != nil {
			logger.Error().Err(err).Object("sweep", cfgSweep).Msg("could not add sweep job")
			continue
		}

		logger.Info().
			Object("sweep", cfgSweep).
			Msg("added sweep job")
	}
	return nil
}

func configSweepToJob(
	ctx context.Context,
	cfgSweep config.ConfigSweep,
	cfg *config.Config,
	store *blob.Store,
	dbCli *gorm.DB,
	logger zerolog.Logger,
	dryRun bool,
) (scheduler.SweepJob, error) {
	if cfgSweep.Schedule == "" {
		return nil, fmt.Errorf("sweep must have a schedule")
	}

	mode := cfgSweep.MarkMode
	if mode == "" {
		mode = "scan"
	}
	markTimeout := time.Duration(cfg.MarkTimeoutSeconds) * time.Second
	markers, err := markersForMode(mode, dbCli, markTimeout, logger)
	if err != nil {
		return nil, err
	}

	dryRun = dryRun || cfgSweep.DryRun

	var archive sweep.Archiver
	if cfgSweep.ArchiveDir != "" {
		if err := fileutils.VerifyWritable(cfgSweep.ArchiveDir); err != nil {
			return nil, fmt.Errorf("archive directory must be writable: %w", err)
		}
		archive = ziparchiver.NewQuarantine(ziparchiver.QuarantineParams{
			Store:  store,
			Dest:   ziparchiver.ArchiveDescriptor{Dir: cfgSweep.ArchiveDir, Prefix: "labmedia-"},
			DryRun: dryRun,
			Logger: logger,
		})
	}

	return &sweepJob{
		ctx: ctx,
		sweeper: sweep.NewSweeper(sweep.SweeperParams{
			Store:   store,
			Markers: markers,
			Archive: archive,
			Pruner: refindex.NewIndex(refindex.IndexParams{
				DB:     dbCli,
				Logger: logger,
			}),
			DryRun:     dryRun,
			SampleSize: cfgSweep.SampleSize,
			Logger:     logger,
		}),
		logger: logger,
	}, nil
}

func startConfigFileWatcher(ctx context.Context, cfgPath string, logger zerolog.Logger, ticker *time.Ticker, onChanged func(cfg *config.Config)) {
	logger.Info().Str("path", cfgPath).Msg("watching config file for changes")
	watcher, err := fileutils.WatchFile(ctx, cfgPath, when(ticker.C), func(err error) {
		logger.Error().Err(err).Msg("could not watch config file")
	})
	if err != nil {
		logger.Error().Err(err).Msg("could not watch config file")
		return
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-watcher:
				logger.Info().Str("path", cfgPath).Msg("config file changed, reloading")

				cfg, err := config.LoadFromFile(cfgPath)
				if err != nil {
					logger.Error().Err(err).Msg("could not load config")
					break
				}

				onChanged(cfg)
			}
		}
	}()
}

func when[T any](ch <-chan T) <-chan struct{} {
	out := make(chan struct{})
	go func() {
		defer close(out)
		for range ch {
			out <- struct{}{}
		}
	}()
	return out
}

type sweepJob struct {
	ctx     context.Context
	sweeper *sweep.Sweeper
	logger  zerolog.Logger
}

func (j *sweepJob) Run() {
	report, err := j.sweeper.Sweep(j.ctx)
	if err != nil {
		j.logger.Error().Err(err).Msg("sweep job failed")
		return
	}
	j.logger.Info().Object("report", report).Msg("sweep job finished")
}
