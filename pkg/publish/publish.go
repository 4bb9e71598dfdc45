// Package publish hands finished replay tables to NATS consumers.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/mpapenbr/sessionreplay/log"
	"github.com/mpapenbr/sessionreplay/pkg/model"
	"github.com/mpapenbr/sessionreplay/pkg/replay"
)

const DefaultBucket = "replay"

type (
	// Conn is the subset of *nats.Conn used here
	Conn interface {
		Publish(subj string, data []byte) error
		FlushTimeout(timeout time.Duration) error
	}
	// KeyValue is the subset of jetstream.KeyValue used here
	KeyValue interface {
		Put(ctx context.Context, key string, value []byte) (uint64, error)
	}

	InfoMessage struct {
		BuildID       string                      `json:"buildId"`
		BuiltAt       time.Time                   `json:"builtAt"`
		Selection     model.SessionSelection      `json:"selection"`
		TotalLaps     int                         `json:"totalLaps"`
		TickSpan      int                         `json:"tickSpan"`
		EndOfRaceTime null.Val[int64]             `json:"endOfRaceTime"`
		Drivers       []model.Driver              `json:"drivers"`
		TrackStatus   []model.TrackStatusInterval `json:"trackStatus"`
	}
	FrameMessage struct {
		BuildID    string                     `json:"buildId"`
		Tick       int                        `json:"tick"`
		LapCounter string                     `json:"lapCounter"`
		Rows       []model.RaceStateRow       `json:"rows"`
		Status     *model.TrackStatusInterval `json:"trackStatus,omitempty"`
	}
)

type FramePublisher struct {
	conn         Conn
	kv           KeyValue
	flushTimeout time.Duration
	l            *log.Logger
}

type Option func(*FramePublisher)

// WithKeyValue stores the info message of the latest build per session
func WithKeyValue(kv KeyValue) Option {
	return func(p *FramePublisher) {
		p.kv = kv
	}
}

func WithFlushTimeout(d time.Duration) Option {
	return func(p *FramePublisher) {
		p.flushTimeout = d
	}
}

func WithLogger(l *log.Logger) Option {
	return func(p *FramePublisher) {
		p.l = l
	}
}

func NewFramePublisher(conn Conn, opts ...Option) *FramePublisher {
	ret := &FramePublisher{
		conn:         conn,
		flushTimeout: 5 * time.Second,
		l:            log.Default().Named("publish"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Connect opens a NATS connection
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(url, nats.Name("srp"))
}

// NewKeyValue creates (or updates) the bucket holding the build infos
func NewKeyValue(ctx context.Context, conn *nats.Conn, bucket string) (jetstream.KeyValue, error) {
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, err
	}
	return js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
		TTL:    time.Hour * 24,
	})
}

func InfoSubject(sel model.SessionSelection) string {
	return fmt.Sprintf("replay.%s.info", sel.Key())
}

func FrameSubject(sel model.SessionSelection) string {
	return fmt.Sprintf("replay.%s.frame", sel.Key())
}

// Publish sends the info message followed by one frame message per tick
func (p *FramePublisher) Publish(ctx context.Context, snap *replay.Snapshot) error {
	table := snap.Table
	state := table.State()
	info := InfoMessage{
		BuildID:       snap.BuildID.String(),
		BuiltAt:       snap.BuiltAt,
		Selection:     state.Selection,
		TotalLaps:     state.TotalLaps,
		TickSpan:      state.TickSpan,
		EndOfRaceTime: state.EndOfRaceTime,
		Drivers:       state.Drivers,
		TrackStatus:   state.TrackStatus,
	}
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	if err = p.conn.Publish(InfoSubject(state.Selection), data); err != nil {
		return fmt.Errorf("publish info: %w", err)
	}
	if p.kv != nil {
		if _, err = p.kv.Put(ctx, state.Selection.Key(), data); err != nil {
			return fmt.Errorf("store info: %w", err)
		}
	}

	subject := FrameSubject(state.Selection)
	for tick := 1; tick <= table.TickSpan(); tick++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		msg := FrameMessage{
			BuildID:    info.BuildID,
			Tick:       tick,
			LapCounter: table.LapCounterText(tick),
			Rows:       make([]model.RaceStateRow, 0),
		}
		for _, r := range table.Frame(tick) {
			msg.Rows = append(msg.Rows, *r)
		}
		if ts, ok := table.TrackStatus(tick); ok {
			msg.Status = &ts
		}
		if data, err = json.Marshal(msg); err != nil {
			return err
		}
		if err = p.conn.Publish(subject, data); err != nil {
			return fmt.Errorf("publish frame %d: %w", tick, err)
		}
	}
	if err = p.conn.FlushTimeout(p.flushTimeout); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	p.l.Info("frames published",
		log.String("subject", subject),
		log.Int("frames", table.TickSpan()))
	return nil
}
