// Package cache keeps captured sessions in a local SQLite database.
package cache

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/mpapenbr/sessionreplay/log"
	"github.com/mpapenbr/sessionreplay/pkg/db/migrate"
	"github.com/mpapenbr/sessionreplay/pkg/model"
	"github.com/mpapenbr/sessionreplay/pkg/source"
	"github.com/mpapenbr/sessionreplay/pkg/source/file"
)

const dbName = "captures.db"

type (
	Option func(*Cache)
	// Cache stores each session in the capture file format, keyed by
	// SessionSelection.Key
	Cache struct {
		db *sql.DB
		l  *log.Logger
	}
)

var (
	_ source.Source = (*Cache)(nil)
	_ source.Store  = (*Cache)(nil)
)

func WithLogger(l *log.Logger) Option {
	return func(c *Cache) {
		c.l = l
	}
}

// Open opens (and creates if needed) the cache database in dir
func Open(dir string, opts ...Option) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, dbName))
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate.MigrateSQLite(db); err != nil {
		db.Close()
		return nil, err
	}
	ret := &Cache{db: db, l: log.Default().Named("source.cache")}
	for _, opt := range opts {
		opt(ret)
	}
	return ret, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) Load(
	ctx context.Context,
	sel model.SessionSelection,
) (*model.SessionInput, error) {
	var data []byte
	err := c.db.QueryRowContext(ctx,
		"SELECT data FROM capture WHERE key = ?", sel.Key()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", source.ErrNotFound, sel)
	}
	if err != nil {
		return nil, err
	}
	s, err := file.DecodeSession(data, file.KindJSON, model.SessionSelection{})
	if err != nil {
		return nil, fmt.Errorf("cache entry %s: %w", sel.Key(), err)
	}
	c.l.Debug("cache hit", log.String("key", sel.Key()), log.Int("bytes", len(data)))
	return s.ToInput()
}

func (c *Cache) Save(ctx context.Context, input *model.SessionInput) error {
	var buf bytes.Buffer
	if err := file.Encode(&buf, file.KindJSON, input); err != nil {
		return err
	}
	sel := input.Info.Selection
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO capture (key, year, event, session_id, data, stored_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			year = excluded.year,
			event = excluded.event,
			session_id = excluded.session_id,
			data = excluded.data,
			stored_at = excluded.stored_at`,
		sel.Key(), sel.Year, sel.Event, string(sel.Session), buf.Bytes())
	if err != nil {
		return err
	}
	c.l.Debug("cache stored", log.String("key", sel.Key()), log.Int("bytes", buf.Len()))
	return nil
}

// List returns the selections of all cached sessions
func (c *Cache) List(ctx context.Context) ([]model.SessionSelection, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT year, event, session_id FROM capture ORDER BY year, event, session_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]model.SessionSelection, 0)
	for rows.Next() {
		var sel model.SessionSelection
		var session string
		if err := rows.Scan(&sel.Year, &sel.Event, &session); err != nil {
			return nil, err
		}
		sel.Session = model.SessionIdentifier(session)
		ret = append(ret, sel)
	}
	return ret, rows.Err()
}

// ReadThrough serves sessions from the cache and falls back to upstream.
// Sessions loaded from upstream are stored in the cache.
type ReadThrough struct {
	cache    *Cache
	upstream source.Source
}

var _ source.Source = (*ReadThrough)(nil)

func NewReadThrough(c *Cache, upstream source.Source) *ReadThrough {
	return &ReadThrough{cache: c, upstream: upstream}
}

func (r *ReadThrough) Load(
	ctx context.Context,
	sel model.SessionSelection,
) (*model.SessionInput, error) {
	in, err := r.cache.Load(ctx, sel)
	if err == nil {
		return in, nil
	}
	if !errors.Is(err, source.ErrNotFound) {
		r.cache.l.Warn("cache read failed", log.ErrorField(err))
	}
	in, err = r.upstream.Load(ctx, sel)
	if err != nil {
		return nil, err
	}
	if saveErr := r.cache.Save(ctx, in); saveErr != nil {
		r.cache.l.Warn("cache write failed", log.ErrorField(saveErr))
	}
	return in, nil
}
