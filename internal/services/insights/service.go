package insights

import (
	"context"
	"time"

	"github.com/google/uuid"

	"migitrader/internal/adapters/kafka"
	domain "migitrader/internal/domain/insights"
	"migitrader/internal/marketclock"
	"migitrader/internal/metrics"
	"migitrader/internal/strategy"
	"migitrader/pkg/errors"
	"migitrader/pkg/logger"
)

// Cache is the daily insights cache-aside store
type Cache interface {
	Get(ctx context.Context, date string) (*domain.DailyInsights, error)
	Save(ctx context.Context, daily *domain.DailyInsights, ttl time.Duration) error
}

// MarketDataFetcher retrieves the full instrument snapshot
type MarketDataFetcher interface {
	FetchStocks(ctx context.Context) ([]domain.Instrument, error)
}

// DividendFetcher retrieves recent dividend announcements.
// Implementations degrade to an empty slice instead of failing.
type DividendFetcher interface {
	FetchRecentDividends(ctx context.Context) []domain.DividendAnnouncement
}

// EventPublisher publishes pipeline events
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, payload interface{}) error
}

// ComputedEvent is emitted after each recompute
type ComputedEvent struct {
	ID         string    `json:"id"`
	Date       string    `json:"date"`
	Tickers    []string  `json:"tickers"`
	PickCount  int       `json:"pickCount"`
	ComputedAt time.Time `json:"computedAt"`
}

// Service runs the daily insights pipeline:
// cache lookup, then on miss fetch + score + persist + publish.
type Service struct {
	cache     Cache
	market    MarketDataFetcher
	dividends DividendFetcher
	publisher EventPublisher // nil disables event publishing
	clock     *marketclock.Clock
	topN      int
	log       *logger.Logger
	now       func() time.Time
}

// NewService creates a new insights service
func NewService(
	cache Cache,
	market MarketDataFetcher,
	dividends DividendFetcher,
	publisher EventPublisher,
	clock *marketclock.Clock,
	topN int,
) *Service {
	if topN <= 0 {
		topN = 3
	}
	return &Service{
		cache:     cache,
		market:    market,
		dividends: dividends,
		publisher: publisher,
		clock:     clock,
		topN:      topN,
		log:       logger.Get().With("component", "insights_service"),
		now:       time.Now,
	}
}

// GetDaily returns today's insights, serving from cache when possible.
// A market-data failure after exhausted retries aborts the pipeline;
// cache write-back and event-publish failures do not.
func (s *Service) GetDaily(ctx context.Context) (*domain.DailyInsights, error) {
	start := s.now()
	date := s.clock.TradingDate()

	cached, err := s.cache.Get(ctx, date)
	if err != nil {
		// Cache trouble degrades to a miss, the pipeline stays read-available
		s.log.Warnw("Cache lookup failed, treating as miss", "date", date, "error", err)
	}
	if cached != nil {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		metrics.PipelineDuration.WithLabelValues("cache_hit").Observe(s.now().Sub(start).Seconds())

		cached.CacheHit = true
		cached.DataFreshnessMinutes = s.freshnessMinutes(cached.ComputedAt)
		s.log.Infow("Serving insights from cache", "date", date, "freshness_minutes", cached.DataFreshnessMinutes)
		return cached, nil
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()
	s.log.Infow("Cache miss, computing insights", "date", date)

	// Dividends fetch in parallel with market data; both join before scoring
	dividendCh := make(chan []domain.DividendAnnouncement, 1)
	go func() {
		dividendCh <- s.dividends.FetchRecentDividends(ctx)
	}()

	instruments, err := s.market.FetchStocks(ctx)
	if err != nil {
		metrics.PipelineDuration.WithLabelValues("error").Observe(s.now().Sub(start).Seconds())
		return nil, errors.Wrap(err, "insights pipeline aborted")
	}
	recentDividends := <-dividendCh

	computedAt := s.now()
	daily := &domain.DailyInsights{
		Date:          date,
		MarketSummary: strategy.Summarize(instruments),
		Picks:         strategy.Rank(instruments, recentDividends, s.topN, computedAt),
		CacheHit:      false,
		ComputedAt:    computedAt,
	}

	// Zero ttl selects the market-hours policy
	if err := s.cache.Save(ctx, daily, 0); err != nil {
		metrics.CacheWriteFailures.Inc()
		s.log.Warnw("Cache write-back failed, serving computed result anyway", "date", date, "error", err)
	}

	s.publishComputed(ctx, daily)

	metrics.PipelineDuration.WithLabelValues("computed").Observe(s.now().Sub(start).Seconds())
	s.log.Infow("Insights computed",
		"date", date,
		"instruments", len(instruments),
		"picks", len(daily.Picks),
	)
	return daily, nil
}

func (s *Service) publishComputed(ctx context.Context, daily *domain.DailyInsights) {
	if s.publisher == nil {
		return
	}

	tickers := make([]string, 0, len(daily.Picks))
	for _, pick := range daily.Picks {
		tickers = append(tickers, pick.Ticker)
	}

	event := ComputedEvent{
		ID:         uuid.NewString(),
		Date:       daily.Date,
		Tickers:    tickers,
		PickCount:  len(daily.Picks),
		ComputedAt: daily.ComputedAt,
	}

	if err := s.publisher.Publish(ctx, kafka.TopicInsightsComputed, daily.Date, event); err != nil {
		metrics.EventPublishFailures.Inc()
		s.log.Warnw("Failed to publish insights event", "date", daily.Date, "error", err)
	}
}

func (s *Service) freshnessMinutes(computedAt time.Time) int {
	if computedAt.IsZero() {
		return 0
	}
	minutes := int(s.now().Sub(computedAt).Minutes())
	if minutes < 0 {
		return 0
	}
	return minutes
}
