//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package processing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aarondl/opt/null"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/sessionreplay/pkg/model"
	"github.com/mpapenbr/sessionreplay/pkg/processing/procerr"
	"github.com/mpapenbr/sessionreplay/pkg/processing/ranking"
	bd "github.com/mpapenbr/sessionreplay/testsupport/basedata"
)

func TestProcessTwoDrivers(t *testing.T) {
	proc := NewProcessor()
	state, report, err := proc.ProcessWithReport(context.Background(), bd.TwoDriverOneLap())
	require.NoError(t, err)

	assert.Equal(t, 11, state.TickSpan)
	assert.Equal(t, 1, state.TotalLaps)
	assert.Equal(t, null.From(int64(90000)), state.EndOfRaceTime)
	assert.Equal(t, bd.SampleSelection(), state.Selection)
	assert.Len(t, state.Rows, 22)
	assert.Equal(t, 10, report.FrozenFromTick)
	assert.Empty(t, report.Gaps)
	assert.Len(t, report.StageDurations, 6)

	// rows ordered by roster and tick
	for i, r := range state.Rows {
		wantDriver := "1"
		if i >= 11 {
			wantDriver = "2"
		}
		assert.Equal(t, wantDriver, r.DriverID)
		assert.Equal(t, i%11+1, r.Tick)
	}

	// driver 2 at the tick where both have completed the lap
	last := state.Rows[21]
	assert.Equal(t, 1, last.PositionIndex)
	assert.Equal(t, 0.5, last.DiffToCarInFront)
	assert.Equal(t, 0, state.Rows[10].PositionIndex)

	want := []model.TrackStatusInterval{
		{Status: "1", Label: "Green Flag", Message: "AllClear", Color: model.Green, TextColor: model.Black, StartTick: 1, EndTick: 4},
		{Status: "2", Label: "Yellow Flag", Message: "Yellow", Color: model.Yellow, TextColor: model.Black, StartTick: 5, EndTick: 6},
		{Status: "1", Label: "Green Flag", Message: "AllClear", Color: model.Green, TextColor: model.Black, StartTick: 7, EndTick: 11},
	}
	if diff := cmp.Diff(want, state.TrackStatus); diff != "" {
		t.Errorf("TrackStatus mismatch (-want +got):\n%v", diff)
	}
}

func TestProcessThreeDriverProperties(t *testing.T) {
	input := bd.ThreeDriverRace()
	state, report, err := NewProcessor().ProcessWithReport(context.Background(), input)
	require.NoError(t, err)
	// lap 2 of driver 3 has no sector data
	assert.Len(t, report.Gaps, 3)
	assert.Equal(t, 44, state.TickSpan)

	require.NoError(t, CheckCompletion(state.Rows))

	ticks := ranking.GroupByTick(len(state.Rows), func(i int) int { return state.Rows[i].Tick })
	lastPos := make(map[string]int)
	for tickIdx, rows := range ticks {
		tick := tickIdx + 1
		seen := make(map[int]bool)
		for _, i := range rows {
			r := state.Rows[i]
			assert.False(t, seen[r.PositionIndex], "duplicate position at tick %d", tick)
			seen[r.PositionIndex] = true
			assert.Less(t, r.PositionIndex, len(rows))
			if r.PositionIndex == 0 {
				assert.Equal(t, 0.0, r.DiffToLeader, "tick %d", tick)
				assert.Equal(t, 0.0, r.DiffToCarInFront, "tick %d", tick)
			}
			if report.FrozenFromTick > 0 && tick > report.FrozenFromTick {
				assert.Equal(t, lastPos[r.DriverID], r.PositionIndex,
					"position of %s changed after freeze at tick %d", r.DriverID, tick)
			}
			lastPos[r.DriverID] = r.PositionIndex
		}
	}
	assert.Positive(t, report.FrozenFromTick)
}

func TestProcessIsDeterministic(t *testing.T) {
	proc := NewProcessor()
	first, err := proc.Process(context.Background(), bd.ThreeDriverRace())
	require.NoError(t, err)
	second, err := proc.Process(context.Background(), bd.ThreeDriverRace())
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestProcessErrors(t *testing.T) {
	noStart := bd.TwoDriverOneLap()
	noStart.Info.StatusEvents = nil

	badLap := bd.TwoDriverOneLap()
	badLap.Laps = append(badLap.Laps, bd.Lap("1", 2))

	badPos := bd.TwoDriverOneLap()
	badPos.Positions[1] = bd.Positions("2", 2000, 1000)

	tests := []struct {
		name    string
		input   *model.SessionInput
		wantErr error
		source  string
	}{
		{"no start event", noStart, procerr.ErrValidation, "session"},
		{"lap above total laps", badLap, procerr.ErrValidation, "lap"},
		{"position time going back", badPos, procerr.ErrValidation, "position"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := NewProcessor().Process(context.Background(), tt.input)
			assert.Nil(t, state)
			require.ErrorIs(t, err, tt.wantErr)
			var ve *procerr.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.source, ve.Source)
		})
	}
}

func TestProcessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	state, err := NewProcessor().Process(ctx, bd.TwoDriverOneLap())
	assert.Nil(t, state)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessRosterOrder(t *testing.T) {
	input := bd.TwoDriverOneLap()
	// unknown driver goes last, roster order wins over series order
	input.Positions = []model.DriverPositions{
		bd.Positions("9", 0, 10000),
		input.Positions[1],
		input.Positions[0],
	}
	state, err := NewProcessor().Process(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "1", state.Rows[0].DriverID)
	assert.Equal(t, "2", state.Rows[11].DriverID)
	assert.Equal(t, "9", state.Rows[22].DriverID)
	assert.Equal(t, 2, state.TickSpan)
}

func TestCheckTicks(t *testing.T) {
	ok := []model.PositionSample{
		{DriverID: "1", Tick: 1}, {DriverID: "1", Tick: 2}, {DriverID: "2", Tick: 1},
	}
	assert.NoError(t, CheckTicks(ok))

	gap := []model.PositionSample{{DriverID: "1", Tick: 1}, {DriverID: "1", Tick: 3}}
	err := CheckTicks(gap)
	var iv *procerr.InvariantViolation
	require.True(t, errors.As(err, &iv))
	assert.Equal(t, CheckTickContiguous, iv.Check)
	assert.Equal(t, 3, iv.Tick)

	assert.Error(t, CheckTicks([]model.PositionSample{{DriverID: "1", Tick: 2}}))
}

func TestCheckCompletion(t *testing.T) {
	row := func(driver string, tick int, completion float64, dnf bool) model.RaceStateRow {
		r := model.RaceStateRow{IsDNF: dnf}
		r.DriverID = driver
		r.Tick = tick
		r.LapCompletion = completion
		return r
	}
	tests := []struct {
		name      string
		rows      []model.RaceStateRow
		wantCheck string
	}{
		{
			"non decreasing",
			[]model.RaceStateRow{row("1", 1, 0, false), row("1", 2, 0.5, false), row("1", 3, 0.5, false)},
			"",
		},
		{
			"decreasing",
			[]model.RaceStateRow{row("1", 1, 0.6, false), row("1", 2, 0.5, false)},
			CheckCompletionMonotone,
		},
		{
			"decreasing across retirement",
			[]model.RaceStateRow{row("1", 1, 0.6, false), row("1", 2, 0.2, true), row("1", 3, 0.3, false)},
			"",
		},
		{
			"tick order",
			[]model.RaceStateRow{row("1", 2, 0, false), row("1", 1, 0, false)},
			CheckTickContiguous,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCompletion(tt.rows)
			if tt.wantCheck == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, procerr.ErrInvariant)
			var iv *procerr.InvariantViolation
			require.True(t, errors.As(err, &iv))
			assert.Equal(t, tt.wantCheck, iv.Check)
		})
	}
}
