package newsfeed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/haebom/tariff/internal/infrastructure/monitoring/logging"
)

// Scheduler runs ingestion and retention cleanup on fixed intervals until
// its context ends.  A tick that finds another ingestion running is
// skipped.
type Scheduler struct {
	svc          Service
	fetchEvery   time.Duration
	cleanupEvery time.Duration
	logger       logging.Logger
}

func NewScheduler(svc Service, fetchEvery, cleanupEvery time.Duration, logger logging.Logger) *Scheduler {
	return &Scheduler{svc: svc, fetchEvery: fetchEvery, cleanupEvery: cleanupEvery, logger: logger}
}

// Run ingests once immediately, then on every tick.  Cleanup first runs
// one interval after start.  Non-positive intervals disable that job.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	if s.fetchEvery > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.ingest(ctx)
			s.loop(ctx, s.fetchEvery, s.ingest)
		}()
	}
	if s.cleanupEvery > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, s.cleanupEvery, s.cleanup)
		}()
	}
	wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, every time.Duration, job func(context.Context)) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			job(ctx)
		}
	}
}

func (s *Scheduler) ingest(ctx context.Context) {
	res, err := s.svc.Ingest(ctx)
	switch {
	case errors.Is(err, ErrIngestRunning):
		s.logger.Info("scheduled ingest skipped, another run holds the lock")
	case err != nil:
		if ctx.Err() == nil {
			s.logger.Error("scheduled ingest failed", logging.Err(err))
		}
	default:
		s.logger.Info("scheduled ingest finished",
			logging.Int("processed", res.Processed),
			logging.Int("new", res.New),
			logging.Int("feeds", len(res.Feeds)),
		)
	}
}

func (s *Scheduler) cleanup(ctx context.Context) {
	res, err := s.svc.Cleanup(ctx, 0)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("scheduled cleanup failed", logging.Err(err))
		}
		return
	}
	s.logger.Info("scheduled cleanup finished",
		logging.Int("removed", res.Removed),
		logging.Int("days", res.Days),
	)
}
