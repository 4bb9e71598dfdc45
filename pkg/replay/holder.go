package replay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mpapenbr/sessionreplay/log"
	"github.com/mpapenbr/sessionreplay/pkg/model"
)

var ErrSuperseded = errors.New("build superseded by a newer selection")

// Builder computes the race state of a session
type Builder interface {
	Process(ctx context.Context, input *model.SessionInput) (*model.RaceState, error)
}

// Snapshot is a completely built table
type Snapshot struct {
	BuildID uuid.UUID
	BuiltAt time.Time
	Table   *Table
}

// Holder publishes the latest complete table to readers.
// Only one build is active at a time, a new build cancels the running one.
type Holder struct {
	builder Builder
	log     *log.Logger
	current atomic.Pointer[Snapshot]

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

type HolderOption func(h *Holder)

func WithLogger(l *log.Logger) HolderOption {
	return func(h *Holder) {
		h.log = l
	}
}

func NewHolder(builder Builder, opts ...HolderOption) *Holder {
	ret := &Holder{
		builder: builder,
		log:     log.Default().Named("replay"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Current returns the latest published snapshot, nil if there is none
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// Rebuild builds the table for input and publishes it.
// A build started earlier is cancelled and will not be published.
func (h *Holder) Rebuild(ctx context.Context, input *model.SessionInput) (*Snapshot, error) {
	h.mu.Lock()
	if h.cancel != nil {
		h.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	h.gen++
	gen := h.gen
	h.cancel = cancel
	h.mu.Unlock()
	defer cancel()

	start := time.Now()
	state, err := h.builder.Process(ctx, input)
	if err != nil {
		if errors.Is(err, context.Canceled) && h.superseded(gen) {
			return nil, ErrSuperseded
		}
		return nil, err
	}
	snap := &Snapshot{
		BuildID: uuid.New(),
		BuiltAt: time.Now(),
		Table:   NewTable(state),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if gen != h.gen {
		return nil, ErrSuperseded
	}
	h.current.Store(snap)
	h.log.Info("table published",
		log.String("session", state.Selection.String()),
		log.String("buildId", snap.BuildID.String()),
		log.Duration("duration", time.Since(start)))
	return snap, nil
}

func (h *Holder) superseded(gen uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return gen != h.gen
}
