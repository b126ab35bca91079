package ledger

import (
	"context"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/categorize"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// Service owns the ledger rules. It is safe for concurrent use as long as
// the Store is.
type Service struct {
	store     Store
	publisher EventPublisher
	oracle    *categorize.Oracle
	now       func() time.Time
	loc       *time.Location
	logger    *log.Logger
	cats      *cache.LRUCache[[]core.Category]
	metrics   *Metrics
}

type Option func(*Service)

// WithClock overrides the time source. Used to pin the current month.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the timezone months are computed in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentLedger)
		}
	}
}

func WithOracle(o *categorize.Oracle) Option {
	return func(s *Service) {
		if o != nil {
			s.oracle = o
		}
	}
}

// WithCategoryCache caches the category registry between reads.
func WithCategoryCache(c *cache.LRUCache[[]core.Category]) Option {
	return func(s *Service) { s.cats = c }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:   store,
		oracle:  categorize.New(),
		now:     time.Now,
		loc:     time.UTC,
		logger:  log.Discard(),
		metrics: &Metrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the current time in the service location.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

// CurrentMonth is the month reconciliation and analytics operate on.
func (s *Service) CurrentMonth() core.Month {
	return core.MonthOf(s.Now())
}

func (s *Service) Location() *time.Location { return s.loc }

func (s *Service) Oracle() *categorize.Oracle { return s.oracle }

func (s *Service) Metrics() *Metrics { return s.metrics }

// Ping checks the backing store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// publish forwards a committed change. Failures are logged, never returned:
// the ledger write has already succeeded.
func (s *Service) publish(ctx context.Context, kind core.EventKind, t core.Transaction) {
	if s.publisher == nil {
		return
	}
	ev := core.NewLedgerEvent(kind, t, s.now())
	if err := s.publisher.PublishLedgerEvent(ctx, ev); err != nil {
		s.metrics.publishFailures.Add(1)
		fields := log.NewFields().WithTransaction(t).WithOperation(log.OpPublish).WithError(err)
		fields[log.FieldEventKind] = string(kind)
		s.logger.WarnContext(ctx, "Failed to publish ledger event", fields.ToSlice()...)
	}
}
