//nolint:whitespace // can't make both editor and linter happy
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/mpapenbr/sessionreplay/pkg/model"
	"github.com/mpapenbr/sessionreplay/pkg/repository"
)

var ErrNotFound = errors.New("capture not found")

// DbSession is the header of a stored capture
type DbSession struct {
	ID         int
	ExternalID uuid.UUID
	Selection  model.SessionSelection
	Format     model.EventFormat
	TotalLaps  int
	ImportedAt time.Time
}

const selector = `select s.id, s.external_id, s.year, s.event, s.session_id,
	s.event_format, s.total_laps, s.imported_at
	from session s`

// Create stores the input. Run it in a transaction, it issues several statements.
func Create(
	ctx context.Context,
	conn repository.Querier,
	in *model.SessionInput,
) (*DbSession, error) {
	externalID, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	sel := in.Info.Selection
	row := conn.QueryRow(ctx, `
	insert into session (
		external_id, year, event, session_id, event_format, total_laps,
		status_events, track_status
	) values ($1,$2,$3,$4,$5,$6,$7,$8)
	returning id
	`,
		externalID, sel.Year, sel.Event, string(sel.Session), string(in.Info.Format),
		in.Info.TotalLaps,
		nonNil(in.Info.StatusEvents), nonNil(in.Info.TrackStatus),
	)
	var id int
	if err := row.Scan(&id); err != nil {
		return nil, err
	}
	if err := storeDrivers(ctx, conn, id, in.Drivers); err != nil {
		return nil, fmt.Errorf("drivers: %w", err)
	}
	if err := storeLaps(ctx, conn, id, in.Laps); err != nil {
		return nil, fmt.Errorf("laps: %w", err)
	}
	if err := storePositions(ctx, conn, id, in.Positions); err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	return LoadById(ctx, conn, id)
}

func LoadById(ctx context.Context, conn repository.Querier, id int) (
	*DbSession, error,
) {
	row := conn.QueryRow(ctx, fmt.Sprintf("%s where s.id=$1", selector), id)
	return readHeader(row)
}

func LoadBySelection(
	ctx context.Context,
	conn repository.Querier,
	sel model.SessionSelection,
) (*DbSession, error) {
	row := conn.QueryRow(ctx,
		fmt.Sprintf("%s where s.year=$1 and s.event=$2 and s.session_id=$3", selector),
		sel.Year, sel.Event, string(sel.Session))
	return readHeader(row)
}

// List returns all stored captures ordered by year, event and session
func List(ctx context.Context, conn repository.Querier) ([]*DbSession, error) {
	rows, err := conn.Query(ctx,
		fmt.Sprintf("%s order by s.year, s.event, s.session_id", selector))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]*DbSession, 0)
	for rows.Next() {
		item, err := readHeader(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	return ret, rows.Err()
}

// deletes the capture of a selection, returns number of sessions deleted.
func DeleteBySelection(
	ctx context.Context,
	conn repository.Querier,
	sel model.SessionSelection,
) (int, error) {
	cmdTag, err := conn.Exec(ctx,
		"delete from session where year=$1 and event=$2 and session_id=$3",
		sel.Year, sel.Event, string(sel.Session))
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

// LoadInput reads the complete pipeline input of a stored capture
func LoadInput(ctx context.Context, conn repository.Querier, id int) (
	*model.SessionInput, error,
) {
	row := conn.QueryRow(ctx, `
	select year, event, session_id, event_format, total_laps,
		status_events, track_status
	from session where id=$1`, id)
	ret := &model.SessionInput{}
	var session, format string
	if err := row.Scan(
		&ret.Info.Selection.Year, &ret.Info.Selection.Event, &session, &format,
		&ret.Info.TotalLaps, &ret.Info.StatusEvents, &ret.Info.TrackStatus,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	ret.Info.Selection.Session = model.SessionIdentifier(session)
	ret.Info.Format = model.EventFormat(format)

	var err error
	if ret.Drivers, err = loadDrivers(ctx, conn, id); err != nil {
		return nil, fmt.Errorf("drivers: %w", err)
	}
	if ret.Laps, err = loadLaps(ctx, conn, id); err != nil {
		return nil, fmt.Errorf("laps: %w", err)
	}
	if ret.Positions, err = loadPositions(ctx, conn, id); err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	return ret, nil
}

func readHeader(row pgx.Row) (*DbSession, error) {
	var item DbSession
	var session, format string
	if err := row.Scan(
		&item.ID, &item.ExternalID,
		&item.Selection.Year, &item.Selection.Event, &session,
		&format, &item.TotalLaps, &item.ImportedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	item.Selection.Session = model.SessionIdentifier(session)
	item.Format = model.EventFormat(format)
	return &item, nil
}

func storeDrivers(
	ctx context.Context,
	conn repository.Querier,
	sessionID int,
	drivers []model.Driver,
) error {
	_, err := conn.CopyFrom(ctx,
		pgx.Identifier{"driver"},
		[]string{
			"session_id", "seq", "driver_id", "abbreviation",
			"first_name", "last_name", "team_name", "team_color",
		},
		pgx.CopyFromSlice(len(drivers), func(i int) ([]any, error) {
			d := drivers[i]
			return []any{
				sessionID, i, d.ID, d.Abbreviation,
				d.FirstName, d.LastName, d.TeamName, d.TeamColor.String(),
			}, nil
		}))
	return err
}

func loadDrivers(ctx context.Context, conn repository.Querier, sessionID int) (
	[]model.Driver, error,
) {
	rows, err := conn.Query(ctx, `
	select driver_id, abbreviation, first_name, last_name, team_name, team_color
	from driver where session_id=$1 order by seq`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]model.Driver, 0)
	for rows.Next() {
		var d model.Driver
		var color string
		if err := rows.Scan(
			&d.ID, &d.Abbreviation, &d.FirstName, &d.LastName, &d.TeamName, &color,
		); err != nil {
			return nil, err
		}
		if d.TeamColor, err = model.ParseColor(color); err != nil {
			return nil, err
		}
		ret = append(ret, d)
	}
	return ret, rows.Err()
}

var lapColumns = []string{
	"driver_id", "lap_number", "lap_start_time",
	"sector1_time", "sector2_time", "sector3_time",
	"sector1_session_time", "sector2_session_time", "sector3_session_time",
	"lap_time", "pit_in_time", "pit_out_time", "position", "compound", "tyre_life",
}

func storeLaps(
	ctx context.Context,
	conn repository.Querier,
	sessionID int,
	laps []model.RawLap,
) error {
	_, err := conn.CopyFrom(ctx,
		pgx.Identifier{"lap"},
		append([]string{"session_id", "seq"}, lapColumns...),
		pgx.CopyFromSlice(len(laps), func(i int) ([]any, error) {
			l := laps[i]
			return []any{
				sessionID, i, l.DriverID, l.LapNumber, nanos(l.LapStartTime),
				nanos(l.SectorTime[0]), nanos(l.SectorTime[1]), nanos(l.SectorTime[2]),
				nanos(l.SectorSessionTime[0]),
				nanos(l.SectorSessionTime[1]),
				nanos(l.SectorSessionTime[2]),
				nanos(l.LapTime), nanos(l.PitInTime), nanos(l.PitOutTime),
				l.Position.Ptr(), l.Compound.Ptr(), l.TyreLife.Ptr(),
			}, nil
		}))
	return err
}

func loadLaps(ctx context.Context, conn repository.Querier, sessionID int) (
	[]model.RawLap, error,
) {
	rows, err := conn.Query(ctx, `
	select driver_id, lap_number, lap_start_time,
		sector1_time, sector2_time, sector3_time,
		sector1_session_time, sector2_session_time, sector3_session_time,
		lap_time, pit_in_time, pit_out_time, position, compound, tyre_life
	from lap where session_id=$1 order by seq`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]model.RawLap, 0)
	for rows.Next() {
		var l model.RawLap
		var start, lapTime, pitIn, pitOut *int64
		var sector, sectorSession [model.NumSectors]*int64
		var position *int
		var compound *string
		var tyreLife *float64
		if err := rows.Scan(
			&l.DriverID, &l.LapNumber, &start,
			&sector[0], &sector[1], &sector[2],
			&sectorSession[0], &sectorSession[1], &sectorSession[2],
			&lapTime, &pitIn, &pitOut, &position, &compound, &tyreLife,
		); err != nil {
			return nil, err
		}
		l.LapStartTime = fromNanos(start)
		for i := range model.NumSectors {
			l.SectorTime[i] = fromNanos(sector[i])
			l.SectorSessionTime[i] = fromNanos(sectorSession[i])
		}
		l.LapTime = fromNanos(lapTime)
		l.PitInTime = fromNanos(pitIn)
		l.PitOutTime = fromNanos(pitOut)
		l.Position = null.FromPtr(position)
		l.Compound = null.FromPtr(compound)
		l.TyreLife = null.FromPtr(tyreLife)
		ret = append(ret, l)
	}
	return ret, rows.Err()
}

func storePositions(
	ctx context.Context,
	conn repository.Querier,
	sessionID int,
	series []model.DriverPositions,
) error {
	_, err := conn.CopyFrom(ctx,
		pgx.Identifier{"position_series"},
		[]string{"session_id", "seq", "driver_id", "session_time", "x", "y", "z"},
		pgx.CopyFromSlice(len(series), func(i int) ([]any, error) {
			s := series[i]
			t := make([]int64, len(s.Samples))
			x := make([]float64, len(s.Samples))
			y := make([]float64, len(s.Samples))
			z := make([]float64, len(s.Samples))
			for j, sample := range s.Samples {
				t[j] = int64(sample.SessionTime)
				x[j], y[j], z[j] = sample.X, sample.Y, sample.Z
			}
			return []any{sessionID, i, s.DriverID, t, x, y, z}, nil
		}))
	return err
}

func loadPositions(ctx context.Context, conn repository.Querier, sessionID int) (
	[]model.DriverPositions, error,
) {
	rows, err := conn.Query(ctx, `
	select driver_id, session_time, x, y, z
	from position_series where session_id=$1 order by seq`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]model.DriverPositions, 0)
	for rows.Next() {
		var item model.DriverPositions
		var t []int64
		var x, y, z []float64
		if err := rows.Scan(&item.DriverID, &t, &x, &y, &z); err != nil {
			return nil, err
		}
		if len(x) != len(t) || len(y) != len(t) || len(z) != len(t) {
			return nil, fmt.Errorf("driver %s: inconsistent position arrays",
				item.DriverID)
		}
		item.Samples = make([]model.RawPositionSample, len(t))
		for j := range t {
			item.Samples[j] = model.RawPositionSample{
				SessionTime: time.Duration(t[j]),
				X:           x[j],
				Y:           y[j],
				Z:           z[j],
			}
		}
		ret = append(ret, item)
	}
	return ret, rows.Err()
}

func nanos(v null.Val[time.Duration]) *int64 {
	d, ok := v.Get()
	if !ok {
		return nil
	}
	ret := int64(d)
	return &ret
}

func fromNanos(v *int64) null.Val[time.Duration] {
	if v == nil {
		return null.Val[time.Duration]{}
	}
	return null.From(time.Duration(*v))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
