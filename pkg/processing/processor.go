// Package processing runs the replay pipeline for one session.
package processing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aarondl/opt/null"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/sessionreplay/log"
	"github.com/mpapenbr/sessionreplay/pkg/model"
	"github.com/mpapenbr/sessionreplay/pkg/processing/annotate"
	"github.com/mpapenbr/sessionreplay/pkg/processing/laps"
	"github.com/mpapenbr/sessionreplay/pkg/processing/merge"
	"github.com/mpapenbr/sessionreplay/pkg/processing/position"
	"github.com/mpapenbr/sessionreplay/pkg/processing/procerr"
	"github.com/mpapenbr/sessionreplay/pkg/processing/ranking"
	"github.com/mpapenbr/sessionreplay/pkg/processing/trackstatus"
)

const (
	StageLaps        = "laps"
	StagePosition    = "position"
	StageMerge       = "merge"
	StageRanking     = "ranking"
	StageAnnotate    = "annotate"
	StageTrackStatus = "trackstatus"
)

type Processor struct {
	log           *log.Logger
	tracer        trace.Tracer
	meter         metric.Meter
	stageDuration metric.Float64Histogram
	rowCounter    metric.Int64Counter
	gapCounter    metric.Int64Counter
}

type ProcessorOption func(proc *Processor)

func WithLogger(l *log.Logger) ProcessorOption {
	return func(proc *Processor) {
		proc.log = l
	}
}

func WithTracer(tracer trace.Tracer) ProcessorOption {
	return func(proc *Processor) {
		proc.tracer = tracer
	}
}

func WithMeter(meter metric.Meter) ProcessorOption {
	return func(proc *Processor) {
		proc.meter = meter
	}
}

func NewProcessor(opts ...ProcessorOption) *Processor {
	ret := &Processor{
		log: log.Default().Named("proc"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.tracer == nil {
		ret.tracer = otel.Tracer("srp")
	}
	if ret.meter == nil {
		ret.meter = otel.Meter("srp.processing")
	}
	ret.setupMetrics()
	return ret
}

func (p *Processor) setupMetrics() {
	var err error
	if p.stageDuration, err = p.meter.Float64Histogram(
		"srp.processing.stage.duration",
		metric.WithDescription("Duration of a pipeline stage"),
		metric.WithUnit("s"),
	); err != nil {
		p.log.Error("failed to register metric", log.ErrorField(err))
	}
	if p.rowCounter, err = p.meter.Int64Counter(
		"srp.processing.rows",
		metric.WithDescription("Number of race state rows produced"),
		metric.WithUnit("{count}"),
	); err != nil {
		p.log.Error("failed to register metric", log.ErrorField(err))
	}
	if p.gapCounter, err = p.meter.Int64Counter(
		"srp.processing.gaps",
		metric.WithDescription("Number of lap timestamps which could not be reconstructed"),
		metric.WithUnit("{count}"),
	); err != nil {
		p.log.Error("failed to register metric", log.ErrorField(err))
	}
}

// Report contains additional information about a pipeline run
type Report struct {
	Gaps           []*procerr.GapError
	Skipped        []string
	FrozenFromTick int
	StageDurations map[string]time.Duration
}

// Process runs the pipeline and returns the complete race state.
// No partial result is returned on error or cancellation.
func (p *Processor) Process(ctx context.Context, input *model.SessionInput) (
	*model.RaceState, error,
) {
	ret, _, err := p.ProcessWithReport(ctx, input)
	return ret, err
}

//nolint:funlen,whitespace // stages in sequence
func (p *Processor) ProcessWithReport(
	ctx context.Context,
	input *model.SessionInput,
) (*model.RaceState, *Report, error) {
	if input == nil {
		return nil, nil, fmt.Errorf("no session input")
	}
	ctx, span := p.tracer.Start(ctx, "process",
		trace.WithAttributes(attribute.String("session", input.Info.Selection.Key())))
	defer span.End()

	start, err := sessionBounds(&input.Info)
	if err != nil {
		return nil, nil, p.fail(span, err)
	}
	totalLaps := input.Info.TotalLaps
	report := &Report{StageDurations: make(map[string]time.Duration)}

	var lapResult *laps.Result
	var posResult *position.Result
	var idx *laps.Index
	var merged []model.PositionSample
	var ranked *ranking.Result
	var rows []model.RaceStateRow
	var intervals []model.TrackStatusInterval

	stages := []struct {
		name string
		fn   func() error
	}{
		{StageLaps, func() (err error) {
			lapResult, err = laps.Normalize(input.Laps, totalLaps)
			if err != nil {
				return fmt.Errorf("normalize laps: %w", err)
			}
			idx = laps.NewIndex(lapResult.Laps)
			report.Gaps = lapResult.Gaps
			return nil
		}},
		{StagePosition, func() (err error) {
			posResult, err = position.Build(input.Positions, start)
			if err != nil {
				return fmt.Errorf("build position series: %w", err)
			}
			report.Skipped = posResult.Skipped
			return CheckTicks(posResult.Samples)
		}},
		{StageMerge, func() error {
			merged = merge.Merge(posResult.Samples, idx, totalLaps)
			return nil
		}},
		{StageRanking, func() error {
			ranked = ranking.Rank(merged, idx, totalLaps)
			report.FrozenFromTick = ranked.FrozenFromTick
			return nil
		}},
		{StageAnnotate, func() error {
			rows = annotate.Annotate(ranked.Samples, idx, totalLaps)
			return CheckCompletion(rows)
		}},
		{StageTrackStatus, func() error {
			end, hasEnd := input.Info.EndTime()
			intervals = trackstatus.Build(input.Info.TrackStatus,
				null.FromCond(end, hasEnd), rows, posResult.TickSpan)
			return nil
		}},
	}
	for _, s := range stages {
		d, err := p.runStage(ctx, s.name, s.fn)
		report.StageDurations[s.name] = d
		if err != nil {
			return nil, nil, p.fail(span, err)
		}
	}

	ret := &model.RaceState{
		Selection:     input.Info.Selection,
		TotalLaps:     totalLaps,
		TickSpan:      posResult.TickSpan,
		EndOfRaceTime: ranked.EndOfRaceTime,
		Drivers:       input.Drivers,
		Rows:          sortByRoster(rows, input.Drivers),
		TrackStatus:   intervals,
	}
	p.rowCounter.Add(ctx, int64(len(ret.Rows)))
	p.gapCounter.Add(ctx, int64(len(report.Gaps)))
	p.log.Info("session processed",
		log.String("session", input.Info.Selection.String()),
		log.Int("rows", len(ret.Rows)),
		log.Int("tickSpan", ret.TickSpan),
		log.Int("gaps", len(report.Gaps)))
	return ret, report, nil
}

func (p *Processor) runStage(ctx context.Context, name string, fn func() error) (
	time.Duration, error,
) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	_, span := p.tracer.Start(ctx, name)
	defer span.End()
	start := time.Now()
	err := fn()
	d := time.Since(start)
	p.stageDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("stage", name)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	p.log.Debug("stage done", log.String("stage", name), log.Duration("duration", d))
	return d, err
}

func (p *Processor) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	p.log.Warn("session cannot be processed", log.ErrorField(err))
	return err
}

func sessionBounds(info *model.SessionInfo) (time.Duration, error) {
	if info.TotalLaps < 0 {
		return 0, &procerr.ValidationError{
			Source: "session", Field: "TotalLaps",
			Reason: fmt.Sprintf("%d is negative", info.TotalLaps),
		}
	}
	start, ok := info.StartTime()
	if !ok {
		return 0, &procerr.ValidationError{
			Source: "session", Field: "StatusEvents",
			Reason: fmt.Sprintf("no %q event", model.SessionStatusStarted),
		}
	}
	return start, nil
}

// sortByRoster orders the rows by roster order and tick.
// Drivers missing in the roster are put last in order of appearance.
func sortByRoster(rows []model.RaceStateRow, roster []model.Driver) []model.RaceStateRow {
	order := make(map[string]int, len(roster))
	for i, d := range roster {
		order[d.ID] = i
	}
	for i := range rows {
		if _, ok := order[rows[i].DriverID]; !ok {
			order[rows[i].DriverID] = len(order)
		}
	}
	ret := make([]model.RaceStateRow, len(rows))
	copy(ret, rows)
	sort.SliceStable(ret, func(a, b int) bool {
		oa, ob := order[ret[a].DriverID], order[ret[b].DriverID]
		if oa != ob {
			return oa < ob
		}
		return ret[a].Tick < ret[b].Tick
	})
	return ret
}
