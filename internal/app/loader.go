package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/profitboard/internal/adapters/cache"
	"github.com/okian/profitboard/internal/domain/model"
	"github.com/okian/profitboard/pkg/logger"
	"github.com/okian/profitboard/pkg/metrics"
)

// Load origins.
const (
	OriginCache = "cache"
	OriginLive  = "live"
)

// Fetcher pulls a fresh table from the spreadsheet.
type Fetcher interface {
	Fetch(ctx context.Context) (*model.Table, error)
}

// Store is the table cache consulted before the spreadsheet.
type Store interface {
	LoadEntry(ctx context.Context) (*cache.Entry, bool)
	SaveEntry(ctx context.Context, e cache.Entry) error
	Invalidate(ctx context.Context) error
	Info(ctx context.Context) cache.Info
}

// Status is a snapshot of the loader's last activity.
type Status struct {
	LoadID      string    `json:"load_id,omitempty"`
	Origin      string    `json:"origin,omitempty"`
	Rows        int       `json:"rows"`
	DataAsOf    time.Time `json:"data_as_of,omitempty"`
	LastLoad    time.Time `json:"last_load,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	LastErrorAt time.Time `json:"last_error_at,omitempty"`
	Loads       int64     `json:"loads"`
	Failures    int64     `json:"failures"`
}

// Loader decides between the cached table and a live fetch. Loads are
// serialized so concurrent callers never fetch the same sheet twice at once.
type Loader struct {
	fetcher  Fetcher
	store    Store
	measures []string
	logger   logger.Logger
	now      func() time.Time

	mu      sync.Mutex
	stamp   time.Time
	gen     uint64
	current *model.Table

	// statusMu is never held across a fetch.
	statusMu sync.Mutex
	status   Status
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLoaderLogger sets the loader's logger.
func WithLoaderLogger(l logger.Logger) LoaderOption {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// WithLoaderClock injects the clock used to stamp live tables.
func WithLoaderClock(now func() time.Time) LoaderOption {
	return func(ld *Loader) {
		if now != nil {
			ld.now = now
		}
	}
}

// WithMeasures sets the measures a cached table must carry to be served.
func WithMeasures(measures []string) LoaderOption {
	return func(ld *Loader) {
		if measures != nil {
			ld.measures = append([]string(nil), measures...)
		}
	}
}

// NewLoader wires a fetcher and a store.
func NewLoader(f Fetcher, s Store, opts ...LoaderOption) *Loader {
	l := &Loader{
		fetcher:  f,
		store:    s,
		measures: model.DefaultMeasures(),
		logger:   logger.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the table to show. Unless force is set a fresh, valid cache
// entry is served without touching the network. The returned table is shared
// and must not be modified. A non-nil error means there is no data and wraps
// one of the package failure kinds.
func (l *Loader) Load(ctx context.Context, force bool) (*model.Table, error) {
	t, _, err := l.load(ctx, force)
	return t, err
}

// Status returns a snapshot of the last load.
func (l *Loader) Status() Status {
	l.statusMu.Lock()
	defer l.statusMu.Unlock()
	return l.status
}

// Invalidate drops the cached table so the next load fetches.
func (l *Loader) Invalidate(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.store.Invalidate(ctx); err != nil {
		return err
	}
	l.current = nil
	l.stamp = time.Time{}
	l.gen++
	return nil
}

// load returns the table and its generation. The generation changes whenever
// a different table is delivered.
func (l *Loader) load(ctx context.Context, force bool) (*model.Table, uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	loadID := uuid.NewString()
	log := l.logger
	start := l.now()

	if !force {
		if t, ok := l.fromCache(ctx, loadID); ok {
			return t, l.gen, nil
		}
	}

	t, err := l.fetch(ctx)
	if err == nil {
		if verr := model.Validate(t, l.measures); verr != nil {
			err = fmt.Errorf("%w: %w", ErrValidation, verr)
		}
	}
	if err != nil {
		kind := Kind(err)
		l.statusMu.Lock()
		l.status.LoadID = loadID
		l.status.LastError = kind
		l.status.LastErrorAt = l.now()
		l.status.Failures++
		l.statusMu.Unlock()
		metrics.RecordLoad(OriginLive, kind, 0)
		log.Error(ctx, "load failed",
			logger.String("load_id", loadID),
			logger.Bool("forced", force),
			logger.String("kind", kind),
			logger.Error(err),
		)
		return nil, 0, fmt.Errorf("load %s: %w", loadID, err)
	}

	stamp := l.now()
	if serr := l.store.SaveEntry(ctx, cache.Entry{Timestamp: stamp, Table: t}); serr != nil {
		metrics.RecordPersistError()
		log.Warn(ctx, "fetched table not persisted",
			logger.String("load_id", loadID),
			logger.Error(serr),
		)
	}

	l.deliver(t, stamp.UTC(), OriginLive, loadID)
	metrics.RecordLoad(OriginLive, "success", stamp.Unix())
	log.Info(ctx, "table loaded",
		logger.String("load_id", loadID),
		logger.String("origin", OriginLive),
		logger.Bool("forced", force),
		logger.Int("rows", t.Len()),
		logger.Duration("took", l.now().Sub(start)),
	)
	return t, l.gen, nil
}

func (l *Loader) fromCache(ctx context.Context, loadID string) (*model.Table, bool) {
	e, ok := l.store.LoadEntry(ctx)
	if !ok {
		return nil, false
	}
	if l.current != nil && e.Timestamp.Equal(l.stamp) {
		l.statusMu.Lock()
		l.status.Loads++
		l.statusMu.Unlock()
		return l.current, true
	}
	if err := model.Validate(e.Table, l.measures); err != nil {
		l.logger.Warn(ctx, "cached table rejected",
			logger.String("load_id", loadID),
			logger.Error(err),
		)
		return nil, false
	}
	l.deliver(e.Table, e.Timestamp, OriginCache, loadID)
	metrics.RecordLoad(OriginCache, "success", l.now().Unix())
	l.logger.Info(ctx, "table loaded",
		logger.String("load_id", loadID),
		logger.String("origin", OriginCache),
		logger.Int("rows", e.Table.Len()),
		logger.Time("as_of", e.Timestamp),
	)
	return e.Table, true
}

// fetch calls the fetcher, turning a panic into ErrNoData.
func (l *Loader) fetch(ctx context.Context) (t *model.Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			t = nil
			err = fmt.Errorf("%w: fetch panicked: %v", ErrNoData, r)
		}
	}()
	t, err = l.fetcher.Fetch(ctx)
	if err == nil && t == nil {
		err = fmt.Errorf("%w: fetcher returned no table", ErrNoData)
	}
	return t, err
}

func (l *Loader) deliver(t *model.Table, stamp time.Time, origin, loadID string) {
	l.current = t
	l.stamp = stamp
	l.gen++

	l.statusMu.Lock()
	defer l.statusMu.Unlock()
	l.status.LoadID = loadID
	l.status.Origin = origin
	l.status.Rows = t.Len()
	l.status.DataAsOf = stamp
	l.status.LastLoad = l.now()
	l.status.LastError = ""
	l.status.Loads++
	metrics.UpdateRowsLoaded(t.Len())
}
