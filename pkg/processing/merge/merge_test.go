//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package merge

import (
	"testing"

	"github.com/aarondl/opt/null"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/sessionreplay/pkg/model"
	"github.com/mpapenbr/sessionreplay/pkg/processing/laps"
	"github.com/mpapenbr/sessionreplay/pkg/processing/position"
	bd "github.com/mpapenbr/sessionreplay/testsupport/basedata"
)

func prepare(t *testing.T, raw []model.RawLap, series []model.DriverPositions, totalLaps int) (
	[]model.PositionSample, *laps.Index,
) {
	lapRes, err := laps.Normalize(raw, totalLaps)
	require.NoError(t, err)
	posRes, err := position.Build(series, 0)
	require.NoError(t, err)
	return posRes.Samples, laps.NewIndex(lapRes.Laps)
}

func lapNumbers(samples []model.PositionSample) []null.Val[int] {
	ret := make([]null.Val[int], len(samples))
	for i := range samples {
		ret[i] = samples[i].LapNumber
	}
	return ret
}

func TestMerge(t *testing.T) {
	none := null.Val[int]{}
	lap := func(n int) null.Val[int] { return null.From(n) }

	tests := []struct {
		name      string
		raw       []model.RawLap
		series    []model.DriverPositions
		totalLaps int
		want      []null.Val[int]
	}{
		{
			name: "half open intervals and pseudo lap",
			raw: []model.RawLap{
				bd.Lap("1", 1, bd.WithStart(1000), bd.WithLapTime(1000)),
				bd.Lap("1", 2, bd.WithStart(2000), bd.WithLapTime(1000)),
			},
			series:    []model.DriverPositions{bd.Positions("1", 500, 1000, 1999, 2000, 2999, 3000, 3500)},
			totalLaps: 2,
			want:      []null.Val[int]{none, lap(1), lap(1), lap(2), lap(2), lap(2), lap(3)},
		},
		{
			name: "no pseudo lap without lap time",
			raw: []model.RawLap{
				bd.Lap("2", 1, bd.WithStart(1000), bd.WithLapTime(1100)),
				bd.Lap("2", 2, bd.WithStart(2100)),
			},
			series:    []model.DriverPositions{bd.Positions("2", 1000, 2100, 2500)},
			totalLaps: 2,
			want:      []null.Val[int]{lap(1), lap(2), lap(2)},
		},
		{
			name: "forward fill between intervals",
			raw: []model.RawLap{
				bd.Lap("1", 1, bd.WithStart(1000), bd.WithLapTime(500)),
				bd.Lap("1", 2, bd.WithStart(2000), bd.WithLapTime(1000)),
			},
			series:    []model.DriverPositions{bd.Positions("1", 1200, 1700, 2000)},
			totalLaps: 0,
			want:      []null.Val[int]{lap(1), lap(1), lap(2)},
		},
		{
			name:      "driver without laps",
			raw:       []model.RawLap{bd.Lap("1", 1, bd.WithStart(0), bd.WithLapTime(1000))},
			series:    []model.DriverPositions{bd.Positions("3", 100, 200)},
			totalLaps: 1,
			want:      []null.Val[int]{none, none},
		},
		{
			name: "forward fill is per driver",
			raw: []model.RawLap{
				bd.Lap("1", 1, bd.WithStart(0), bd.WithLapTime(1000)),
				bd.Lap("2", 1, bd.WithStart(600), bd.WithLapTime(1000)),
			},
			series: []model.DriverPositions{
				bd.Positions("1", 500),
				bd.Positions("2", 500, 700),
			},
			totalLaps: 3,
			want:      []null.Val[int]{lap(1), none, lap(1)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples, idx := prepare(t, tt.raw, tt.series, tt.totalLaps)
			got := Merge(samples, idx, tt.totalLaps)
			assert.Equal(t, tt.want, lapNumbers(got))
			// input is not modified
			for i := range samples {
				assert.True(t, samples[i].LapNumber.IsNull())
			}
		})
	}
}
