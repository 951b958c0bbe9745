package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/itops/helpdesk-service/internal/domain"
	"github.com/itops/helpdesk-service/internal/events"
	"github.com/itops/helpdesk-service/internal/repository"
	"github.com/itops/helpdesk-service/pkg/apperrors"
)

const (
	statsCacheKey = "helpdesk:dashboard:stats"
	statsCacheTTL = 30 * time.Second
)

// DashboardStats summarizes the queue for the staff dashboard.
type DashboardStats struct {
	Open       int                            `json:"open"`
	InProgress int                            `json:"in_progress"`
	Overdue    int                            `json:"overdue"`
	Unassigned int                            `json:"unassigned"`
	ByCategory map[domain.TicketCategory]int  `json:"by_category"`
	ByPriority map[domain.TicketPriority]int  `json:"by_priority"`
	ComputedAt time.Time                      `json:"computed_at"`
}

// StatsService computes dashboard aggregates, caching them in Redis with a
// short TTL and dropping the cache whenever a ticket mutates.
type StatsService struct {
	tickets repository.TicketRepository
	cache   *redis.Client
	logger  *zap.Logger
	now     func() time.Time
}

// NewStatsService constructs the service. cache may be nil, in which case
// every read recomputes.
func NewStatsService(tickets repository.TicketRepository, cache *redis.Client, logger *zap.Logger) *StatsService {
	return &StatsService{tickets: tickets, cache: cache, logger: logger, now: time.Now}
}

// Dashboard returns queue statistics, served from cache when fresh.
func (s *StatsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, statsCacheKey).Bytes()
		if err == nil {
			var cached DashboardStats
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("stats cache read failed", zap.Error(err))
		}
	}

	stats, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, statsCacheKey, raw, statsCacheTTL).Err(); err != nil {
				s.logger.Warn("stats cache write failed", zap.Error(err))
			}
		}
	}
	return stats, nil
}

// RegisterInvalidation subscribes cache invalidation to every ticket
// mutation event.
func (s *StatsService) RegisterInvalidation(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	invalidate := func(ctx context.Context, _ events.Event) error {
		s.Invalidate(ctx)
		return nil
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketPriorityChanged,
		events.EventTicketAssigned,
		events.EventTicketMerged,
		events.EventTicketDeleted,
	} {
		dispatcher.Subscribe(eventType, invalidate)
	}
}

// Invalidate drops the cached stats.
func (s *StatsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statsCacheKey).Err(); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}

// compute delegates counting to the database so the numbers stay exact no
// matter how deep the queue grows.
func (s *StatsService) compute(ctx context.Context) (*DashboardStats, error) {
	now := s.now()
	counts, err := s.tickets.CountQueue(ctx, now)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return &DashboardStats{
		Open:       counts.Open,
		InProgress: counts.InProgress,
		Overdue:    counts.Overdue,
		Unassigned: counts.Unassigned,
		ByCategory: counts.ByCategory,
		ByPriority: counts.ByPriority,
		ComputedAt: now,
	}, nil
}
