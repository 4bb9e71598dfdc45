package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/sessionreplay/log"
	"github.com/mpapenbr/sessionreplay/pkg/model"
	captureRepos "github.com/mpapenbr/sessionreplay/pkg/repository/capture"
	"github.com/mpapenbr/sessionreplay/pkg/source"
	"github.com/mpapenbr/sessionreplay/pkg/utils/cache"
	"github.com/mpapenbr/sessionreplay/pkg/utils/cache/loadercache"
)

type (
	Option func(*Source)
	// Source reads captures from the postgres capture store.
	// Loaded inputs are kept for a while, Save invalidates them.
	Source struct {
		pool       *pgxpool.Pool
		expiration time.Duration
		inputs     cache.Cache[model.SessionSelection, model.SessionInput]
		l          *log.Logger
	}
)

var (
	_ source.Source = (*Source)(nil)
	_ source.Store  = (*Source)(nil)
)

func WithLogger(l *log.Logger) Option {
	return func(s *Source) {
		s.l = l
	}
}

func WithExpiration(d time.Duration) Option {
	return func(s *Source) {
		s.expiration = d
	}
}

func New(pool *pgxpool.Pool, opts ...Option) *Source {
	ret := &Source{
		pool:       pool,
		expiration: 10 * time.Minute,
		l:          log.Default().Named("source.db"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.inputs = loadercache.New(
		loadercache.WithExpiration[model.SessionSelection, model.SessionInput](
			ret.expiration),
		loadercache.WithLogger[model.SessionSelection, model.SessionInput](
			ret.l.Named("cache")),
		loadercache.WithLoader(ret.load),
	)
	return ret
}

func (s *Source) Load(
	ctx context.Context,
	sel model.SessionSelection,
) (*model.SessionInput, error) {
	return s.inputs.Get(ctx, sel)
}

func (s *Source) load(
	ctx context.Context,
	sel model.SessionSelection,
) (*model.SessionInput, error) {
	header, err := captureRepos.LoadBySelection(ctx, s.pool, sel)
	if err != nil {
		if errors.Is(err, captureRepos.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", source.ErrNotFound, sel)
		}
		return nil, err
	}
	s.l.Debug("loading capture",
		log.String("session", sel.String()),
		log.String("id", header.ExternalID.String()))
	return captureRepos.LoadInput(ctx, s.pool, header.ID)
}

// Save replaces the stored capture of the input's selection
func (s *Source) Save(ctx context.Context, input *model.SessionInput) error {
	sel := input.Info.Selection
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := captureRepos.DeleteBySelection(ctx, tx, sel); err != nil {
			return err
		}
		header, err := captureRepos.Create(ctx, tx, input)
		if err != nil {
			return err
		}
		s.l.Info("capture stored",
			log.String("session", sel.String()),
			log.String("id", header.ExternalID.String()))
		return nil
	})
	s.inputs.Invalidate(ctx, sel)
	return err
}

// List returns the selections of all stored captures
func (s *Source) List(ctx context.Context) ([]model.SessionSelection, error) {
	items, err := captureRepos.List(ctx, s.pool)
	if err != nil {
		return nil, err
	}
	ret := make([]model.SessionSelection, len(items))
	for i, item := range items {
		ret[i] = item.Selection
	}
	return ret, nil
}
