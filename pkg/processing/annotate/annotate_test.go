//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package annotate

import (
	"testing"

	"github.com/aarondl/opt/null"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/sessionreplay/pkg/model"
	"github.com/mpapenbr/sessionreplay/pkg/processing/laps"
	"github.com/mpapenbr/sessionreplay/pkg/processing/merge"
	"github.com/mpapenbr/sessionreplay/pkg/processing/position"
	"github.com/mpapenbr/sessionreplay/pkg/processing/ranking"
	bd "github.com/mpapenbr/sessionreplay/testsupport/basedata"
)

func annotateInput(t *testing.T, raw []model.RawLap, series []model.DriverPositions, totalLaps int) map[string][]model.RaceStateRow {
	lapRes, err := laps.Normalize(raw, totalLaps)
	require.NoError(t, err)
	posRes, err := position.Build(series, 0)
	require.NoError(t, err)
	idx := laps.NewIndex(lapRes.Laps)
	ranked := ranking.Rank(merge.Merge(posRes.Samples, idx, totalLaps), idx, totalLaps)
	rows := Annotate(ranked.Samples, idx, totalLaps)
	require.Len(t, rows, len(posRes.Samples))

	ret := make(map[string][]model.RaceStateRow)
	for _, r := range rows {
		ret[r.DriverID] = append(ret[r.DriverID], r)
	}
	return ret
}

func TestAnnotateTwoDrivers(t *testing.T) {
	input := bd.TwoDriverOneLap()
	got := annotateInput(t, input.Laps, input.Positions, 1)
	d1, d2 := got["1"], got["2"]
	require.Len(t, d1, 11)
	require.Len(t, d2, 11)

	for _, r := range d1 {
		assert.Equal(t, 0.0, r.DiffToCarInFront, "tick %d", r.Tick)
		assert.Equal(t, 0.0, r.DiffToLeader, "tick %d", r.Tick)
		assert.Equal(t, "S", r.TireCompound)
		assert.Equal(t, model.Red, r.TireCompoundColor)
		assert.Equal(t, null.From(3.0), r.TyreLife)
		assert.False(t, r.IsDNF)
	}
	// driver 2 passes sector 1 at 30.5s
	wantFront := []float64{0, 0, 0, 0, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}
	gotFront := make([]float64, len(d2))
	gotLeader := make([]float64, len(d2))
	for i, r := range d2 {
		gotFront[i] = r.DiffToCarInFront
		gotLeader[i] = r.DiffToLeader
	}
	assert.Equal(t, wantFront, gotFront)
	assert.Equal(t, wantFront, gotLeader)

	assert.Equal(t, "", d2[0].TireCompound)
	assert.Equal(t, model.Transparent, d2[0].TireCompoundColor)
	assert.Equal(t, "M", d2[1].TireCompound)
	assert.Equal(t, model.Yellow, d2[1].TireCompoundColor)

	finished := func(rows []model.RaceStateRow) []bool {
		ret := make([]bool, len(rows))
		for i, r := range rows {
			ret[i] = r.IsFinished
		}
		return ret
	}
	assert.Equal(t, []bool{false, false, false, false, false, false, false, false, false, true, true}, finished(d1))
	assert.Equal(t, []bool{false, false, false, false, false, false, false, false, false, false, true}, finished(d2))
}

func TestAnnotateUnclassifiedDriverIsDNF(t *testing.T) {
	raw := []model.RawLap{bd.Lap("X", 1, bd.WithStart(0), bd.WithLapTime(1000))}
	series := []model.DriverPositions{bd.Positions("X", 0, 500, 1000, 1500)}
	got := annotateInput(t, raw, series, 1)["X"]

	require.Len(t, got, 4)
	assert.Equal(t, 1.0, got[3].LapCompletion)
	for _, r := range got {
		assert.True(t, r.IsDNF, "tick %d", r.Tick)
		assert.False(t, r.IsFinished, "tick %d", r.Tick)
	}
}

func TestAnnotatePitAndRetirement(t *testing.T) {
	input := bd.ThreeDriverRace()
	got := annotateInput(t, input.Laps, input.Positions, input.Info.TotalLaps)

	// samples every 5s starting at 0s
	at := func(driver string, ms int64) model.RaceStateRow {
		r := got[driver][ms/5000]
		require.Equal(t, ms, r.SessionTime)
		return r
	}
	tests := []struct {
		ms       int64
		inPit    bool
		stops    int
		compound string
	}{
		{130000, false, 0, "M"},
		{135000, true, 1, "M"},
		{140000, true, 1, "M"},
		{145000, true, 1, "H"},
		{150000, false, 1, "H"},
	}
	for _, tt := range tests {
		r := at("2", tt.ms)
		assert.Equal(t, tt.inPit, r.InPit, "inPit at %d", tt.ms)
		assert.Equal(t, tt.stops, r.PitStops, "pitStops at %d", tt.ms)
		assert.Equal(t, tt.compound, r.TireCompound, "compound at %d", tt.ms)
	}
	assert.Equal(t, null.From(1.0), at("2", 150000).TyreLife)
	assert.Equal(t, model.White, at("2", 150000).TireCompoundColor)

	assert.False(t, at("3", 0).IsDNF)
	assert.False(t, at("3", 70000).IsDNF)
	assert.True(t, at("3", 75000).IsDNF)
	assert.True(t, at("3", 220000).IsDNF)

	assert.True(t, at("1", 220000).IsFinished)
	assert.True(t, at("2", 205000).IsFinished)
	assert.False(t, at("2", 200000).IsFinished)
}

func TestAnnotateDiffToLeaderIsCumulative(t *testing.T) {
	raw := []model.RawLap{
		bd.TimedLap("A", 1, 0, 90000, bd.WithPosition(1)),
		bd.TimedLap("B", 1, 300, 90000, bd.WithPosition(2)),
		bd.TimedLap("C", 1, 1000, 90000, bd.WithPosition(3)),
	}
	series := []model.DriverPositions{
		bd.Positions("C", 35000),
		bd.Positions("A", 35000),
		bd.Positions("B", 35000),
	}
	got := annotateInput(t, raw, series, 1)

	type gaps struct {
		pos    int
		front  float64
		leader float64
	}
	view := func(r model.RaceStateRow) gaps {
		return gaps{r.PositionIndex, r.DiffToCarInFront, r.DiffToLeader}
	}
	assert.Equal(t, gaps{0, 0, 0}, view(got["A"][0]))
	assert.Equal(t, gaps{1, 0.3, 0.3}, view(got["B"][0]))
	assert.Equal(t, gaps{2, 0.7, 1.0}, view(got["C"][0]))
}

func TestCompoundCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SOFT", "S"},
		{"medium", "M"},
		{" HARD", "H"},
		{"INTERMEDIATE", "I"},
		{"WET", "W"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompoundCode(tt.in), tt.in)
	}
}

func TestTireColor(t *testing.T) {
	assert.Equal(t, model.Red, TireColor("S"))
	assert.Equal(t, model.Blue, TireColor("W"))
	assert.Equal(t, model.Transparent, TireColor("U"))
	assert.Equal(t, model.Transparent, TireColor(""))
}

func TestToSeconds(t *testing.T) {
	assert.Equal(t, 1.234, toSeconds(1234))
	assert.Equal(t, 0.0, toSeconds(0))
	assert.Equal(t, -0.5, toSeconds(-500))
}
