// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/okian/profitboard/internal/adapters/cache"
	"github.com/okian/profitboard/internal/domain/model"
	"github.com/okian/profitboard/internal/domain/report"
	"github.com/okian/profitboard/pkg/logger"
	"github.com/okian/profitboard/pkg/metrics"
)

// Service serves tables and reports from a Loader and keeps computed
// reports in a bounded LRU that is emptied whenever the table changes.
type Service struct {
	mu sync.RWMutex

	// Core components
	loader  *Loader
	reports *lru.Cache[string, *report.Report]

	// Configuration
	reportCacheSize int
	refreshInterval time.Duration
	now             func() time.Time

	// State
	started bool
	gen     uint64
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithReportCacheSize sets how many distinct reports are memoized.
func WithReportCacheSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.reportCacheSize = size
		}
	}
}

// WithRefreshInterval enables a background forced reload. Zero disables it.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.refreshInterval = d
		}
	}
}

// WithClock sets the source of "today" for relative date presets.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Service on top of loader.
func New(loader *Loader, opts ...Option) (*Service, error) {
	s := &Service{
		loader:          loader,
		reportCacheSize: 256,
		now:             time.Now,
		stopCh:          make(chan struct{}),
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if loader == nil {
		return nil, fmt.Errorf("service: nil loader")
	}
	reports, err := lru.New[string, *report.Report](s.reportCacheSize)
	if err != nil {
		return nil, fmt.Errorf("lru.New: %w", err)
	}
	s.reports = reports
	return s, nil
}

// Start launches the background refresher when one is configured.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.started = true
	s.stopCh = make(chan struct{})

	if s.refreshInterval > 0 {
		s.wg.Add(1)
		go s.refresh(ctx, s.refreshInterval, s.stopCh)
	}
	s.logger.Info(ctx, "profitboard service started",
		logger.Duration("refreshInterval", s.refreshInterval),
		logger.Int("reportCacheSize", s.reportCacheSize),
	)
	return nil
}

// Stop halts the refresher and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.started = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info(context.Background(), "profitboard service stopped")
}

func (s *Service) refresh(ctx context.Context, every time.Duration, stop <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if _, err := s.Table(ctx, true); err != nil {
				s.logger.Warn(ctx, "scheduled refresh failed", logger.Error(err))
			}
		}
	}
}

// Table returns the current table, reloading from the spreadsheet when force
// is set.
func (s *Service) Table(ctx context.Context, force bool) (*model.Table, error) {
	t, gen, err := s.loader.load(ctx, force)
	if err != nil {
		return nil, err
	}
	s.observe(gen)
	return t, nil
}

// Report builds, or returns the memoized, dashboard report for q.
func (s *Service) Report(ctx context.Context, q report.Query) (*report.Report, error) {
	t, gen, err := s.loader.load(ctx, false)
	if err != nil {
		return nil, err
	}
	s.observe(gen)

	key := fmt.Sprintf("%d|%s", gen, q.CacheKey(s.now()))
	if r, ok := s.reports.Get(key); ok {
		metrics.RecordReportCache(true)
		return r, nil
	}
	metrics.RecordReportCache(false)

	start := time.Now()
	r, err := report.Build(t, q, s.now())
	if err != nil {
		return nil, err
	}
	metrics.RecordReportLatency(float64(time.Since(start).Microseconds()) / 1000)
	s.reports.Add(key, r)
	return r, nil
}

// Filters lists coach and player choices for q's period.
func (s *Service) Filters(ctx context.Context, q report.Query) (report.Filters, error) {
	t, err := s.Table(ctx, false)
	if err != nil {
		return report.Filters{}, err
	}
	return report.Options(t, q, s.now())
}

// CacheInfo reports on the cache file.
func (s *Service) CacheInfo(ctx context.Context) cache.Info {
	return s.loader.store.Info(ctx)
}

// InvalidateCache drops the cached table and every memoized report.
func (s *Service) InvalidateCache(ctx context.Context) error {
	if err := s.loader.Invalidate(ctx); err != nil {
		return err
	}
	s.reports.Purge()
	return nil
}

// Status returns the loader status.
func (s *Service) Status() Status {
	return s.loader.Status()
}

// observe purges memoized reports when the loader delivered a new table.
func (s *Service) observe(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen {
		return
	}
	s.gen = gen
	s.reports.Purge()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.loader.Status()
	return map[string]interface{}{
		"started":         s.started,
		"refreshInterval": s.refreshInterval.String(),
		"reportCacheSize": s.reportCacheSize,
		"cachedReports":   s.reports.Len(),
		"rows":            st.Rows,
		"origin":          st.Origin,
		"loads":           st.Loads,
		"failures":        st.Failures,
		"lastError":       st.LastError,
	}
}
