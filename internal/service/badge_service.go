package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/exit-kiosk/internal/dto"
	"github.com/noah-isme/exit-kiosk/internal/kiosk"
	"github.com/noah-isme/exit-kiosk/internal/models"
	"github.com/noah-isme/exit-kiosk/pkg/jobs"
)

const badgeJobType = "badge_lookup"

type badgeCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// BadgeConfig tunes the exit-count badges.
type BadgeConfig struct {
	RecurrenceThreshold int
	CacheTTL            time.Duration
	Workers             int
	LookupTimeout       time.Duration
}

type badgeJob struct {
	session kiosk.Backend
	id      models.StudentID
	sink    func(dto.Badge)
}

// BadgeService resolves the exit counters shown on roster cards. Failures are silent:
// a card whose lookup fails simply shows no badge.
type BadgeService struct {
	cache  badgeCache
	cfg    BadgeConfig
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewBadgeService constructs the badge resolver. cache may be nil.
func NewBadgeService(cache badgeCache, cfg BadgeConfig, logger *zap.Logger) *BadgeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RecurrenceThreshold <= 0 {
		cfg.RecurrenceThreshold = 3
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 10 * time.Second
	}
	s := &BadgeService{cache: cache, cfg: cfg, logger: logger}
	s.queue = jobs.NewQueue("badges", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.Workers * 32,
		MaxRetries: -1,
		Logger:     logger,
	})
	return s
}

// Start launches the lookup workers.
func (s *BadgeService) Start(ctx context.Context) { s.queue.Start(ctx) }

// Stop waits for the workers to exit.
func (s *BadgeService) Stop() { s.queue.Stop() }

// Lookup returns the badge of one student.
func (s *BadgeService) Lookup(ctx context.Context, session kiosk.Backend, id models.StudentID) dto.Badge {
	var stats models.ExitStats
	key := badgeKey(id)

	if s.cache != nil {
		if hit, _ := s.cache.Get(ctx, key, &stats); hit {
			return s.badge(id, stats)
		}
	}

	stats, err := session.ExitStats(ctx, id)
	if err != nil {
		s.logger.Debug("badge lookup failed", zap.String("student_id", id.String()), zap.Error(err))
		return dto.Badge{StudentID: id.String()}
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, stats, s.cfg.CacheTTL)
	}
	return s.badge(id, stats)
}

// Enrich looks the badges up on the worker pool and hands each result to sink in
// completion order. It never blocks on a busy pool.
func (s *BadgeService) Enrich(ctx context.Context, session kiosk.Backend, ids []models.StudentID, sink func(dto.Badge)) {
	for _, id := range ids {
		job := jobs.Job{Type: badgeJobType, Payload: badgeJob{session: session, id: id, sink: sink}}
		err := s.queue.TryEnqueue(job)
		if err == nil {
			continue
		}
		if !errors.Is(err, jobs.ErrQueueFull) {
			s.logger.Debug("badge queue unavailable", zap.Error(err))
		}
		go func(id models.StudentID) {
			lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
			defer cancel()
			sink(s.Lookup(lookupCtx, session, id))
		}(id)
	}
}

// Invalidate forgets the cached counters of a student.
func (s *BadgeService) Invalidate(ctx context.Context, id models.StudentID) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, badgeKey(id))
}

func (s *BadgeService) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(badgeJob)
	if !ok {
		return nil
	}
	lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()
	payload.sink(s.Lookup(lookupCtx, payload.session, payload.id))
	return nil
}

func (s *BadgeService) badge(id models.StudentID, stats models.ExitStats) dto.Badge {
	return dto.Badge{
		StudentID:    id.String(),
		Count:        stats.Count,
		MonthlyCount: stats.MonthlyCount,
		HasExits:     stats.Count > 0,
		Recurrent:    stats.MonthlyCount >= s.cfg.RecurrenceThreshold,
	}
}

func badgeKey(id models.StudentID) string {
	return "badge:" + id.String()
}
