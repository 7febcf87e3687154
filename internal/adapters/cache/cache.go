// Package cache keeps the last loaded table in process memory and in a JSON
// file so restarts within the freshness window skip the spreadsheet.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/profitboard/internal/domain/model"
	"github.com/okian/profitboard/pkg/logger"
	"github.com/okian/profitboard/pkg/metrics"
)

// DefaultTTL is the freshness window of a cache entry.
const DefaultTTL = 24 * time.Hour

// Lookup tiers reported to metrics.
const (
	tierMemory = "memory"
	tierFile   = "file"
)

// Entry is a table together with the moment it was saved.
type Entry struct {
	Timestamp time.Time
	Table     *model.Table
}

// Info describes the cache file without reading its payload.
type Info struct {
	Exists       bool          `json:"exists"`
	Path         string        `json:"path"`
	Size         int64         `json:"size"`
	LastModified time.Time     `json:"last_modified,omitempty"`
	Age          time.Duration `json:"age"`
	Fresh        bool          `json:"fresh"`
}

// filePayload is the on-disk layout.
type filePayload struct {
	Timestamp time.Time         `json:"timestamp"`
	Columns   []string          `json:"columns"`
	Measures  []string          `json:"measures"`
	Data      []json.RawMessage `json:"data"`
}

// Cache is a two-tier store: an in-process copy of the last entry in front of
// a JSON file. Both tiers expire with the same injected clock.
type Cache struct {
	path   string
	ttl    time.Duration
	now    func() time.Time
	logger logger.Logger

	mu  sync.RWMutex
	mem *Entry
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock injects the time source used for timestamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithTTL overrides the freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a cache backed by the file at path.
func New(path string, opts ...Option) *Cache {
	c := &Cache{
		path:   path,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Path returns the cache file location.
func (c *Cache) Path() string { return c.path }

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Save stores a snapshot of t stamped with the current time, replacing any
// previous entry. Failures wrap ErrPersist.
func (c *Cache) Save(ctx context.Context, t *model.Table) error {
	return c.SaveEntry(ctx, Entry{Timestamp: c.now(), Table: t})
}

// SaveEntry stores a snapshot of e. The memory tier is replaced even when the
// file write fails, so this process keeps serving the newest table; the
// returned error wraps ErrPersist.
func (c *Cache) SaveEntry(ctx context.Context, e Entry) error {
	if e.Table == nil {
		return fmt.Errorf("%w: nil table", ErrPersist)
	}
	entry := &Entry{Timestamp: e.Timestamp.UTC(), Table: e.Table.Clone()}

	c.mu.Lock()
	c.mem = entry
	c.mu.Unlock()

	if err := c.writeFile(entry); err != nil {
		metrics.RecordCacheWrite("failure")
		c.logger.Error(ctx, "cache write failed", logger.String("path", c.path), logger.Error(err))
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	metrics.RecordCacheWrite("success")

	c.logger.Debug(ctx, "cache entry saved",
		logger.String("path", c.path),
		logger.Int("rows", entry.Table.Len()),
	)
	return nil
}

// Load returns the cached table when a fresh entry exists. Missing, stale
// and undecodable entries are all reported as absent.
func (c *Cache) Load(ctx context.Context) (*model.Table, bool) {
	e, ok := c.LoadEntry(ctx)
	if !ok {
		return nil, false
	}
	return e.Table, true
}

// LoadEntry is Load that also returns the entry timestamp.
func (c *Cache) LoadEntry(ctx context.Context) (*Entry, bool) {
	if e, ok := c.loadMemory(); ok {
		return &Entry{Timestamp: e.Timestamp, Table: e.Table.Clone()}, true
	}

	e, err := c.readFile()
	switch {
	case err == nil:
	case os.IsNotExist(err):
		metrics.RecordCacheLookup(tierFile, "miss")
		return nil, false
	default:
		metrics.RecordCacheLookup(tierFile, "corrupt")
		c.logger.Warn(ctx, "cache entry unreadable", logger.String("path", c.path), logger.Error(err))
		return nil, false
	}

	age := c.now().Sub(e.Timestamp)
	metrics.UpdateCacheAge(age.Seconds())
	if !c.fresh(e.Timestamp) {
		metrics.RecordCacheLookup(tierFile, "stale")
		c.logger.Debug(ctx, "cache entry stale", logger.Duration("age", age))
		return nil, false
	}
	metrics.RecordCacheLookup(tierFile, "hit")

	c.mu.Lock()
	c.mem = e
	c.mu.Unlock()
	return &Entry{Timestamp: e.Timestamp, Table: e.Table.Clone()}, true
}

// Invalidate drops both tiers. A missing file is not an error.
func (c *Cache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	c.mem = nil
	c.mu.Unlock()

	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cache.invalidate: %w", err)
	}
	c.logger.Info(ctx, "cache invalidated", logger.String("path", c.path))
	return nil
}

// Info reports on the cache file. It never fails; any error reads as a
// missing file.
func (c *Cache) Info(_ context.Context) Info {
	info := Info{Path: c.path}
	st, err := os.Stat(c.path)
	if err != nil || st.IsDir() {
		return info
	}
	info.Exists = true
	info.Size = st.Size()
	info.LastModified = st.ModTime().UTC()
	info.Age = c.now().Sub(st.ModTime())
	info.Fresh = info.Age <= c.ttl
	return info
}

func (c *Cache) loadMemory() (*Entry, bool) {
	c.mu.RLock()
	e := c.mem
	c.mu.RUnlock()
	if e == nil {
		metrics.RecordCacheLookup(tierMemory, "miss")
		return nil, false
	}
	if !c.fresh(e.Timestamp) {
		metrics.RecordCacheLookup(tierMemory, "stale")
		c.mu.Lock()
		if c.mem == e {
			c.mem = nil
		}
		c.mu.Unlock()
		return nil, false
	}
	metrics.RecordCacheLookup(tierMemory, "hit")
	return e, true
}

// fresh applies the window: an entry exactly ttl old is still fresh. An entry
// stamped in the future is stale.
func (c *Cache) fresh(ts time.Time) bool {
	age := c.now().Sub(ts)
	return age >= 0 && age <= c.ttl
}

func (c *Cache) writeFile(e *Entry) error {
	rows := e.Table.Rows()
	payload := filePayload{
		Timestamp: e.Timestamp,
		Columns:   e.Table.Columns,
		Measures:  e.Table.Measures,
		Data:      make([]json.RawMessage, len(rows)),
	}
	for i, row := range rows {
		b, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("marshal row %d: %w", i, err)
		}
		payload.Data[i] = b
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (c *Cache) readFile() (*Entry, error) {
	body, err := os.ReadFile(c.path)
	if err != nil {
		return nil, err
	}
	var payload filePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", errCorrupt, err)
	}
	if payload.Timestamp.IsZero() {
		return nil, fmt.Errorf("%w: missing timestamp", errCorrupt)
	}
	t, err := model.FromRows(payload.Columns, payload.Measures, payload.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errCorrupt, err)
	}
	return &Entry{Timestamp: payload.Timestamp, Table: t}, nil
}
