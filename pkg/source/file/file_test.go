//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package file

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/sessionreplay/pkg/model"
	"github.com/mpapenbr/sessionreplay/pkg/source"
	"github.com/mpapenbr/sessionreplay/testsupport/basedata"
)

const sampleJSON = `{
  "format": "v1.2.0",
  "sessions": [
    {
      "selection": {"year": 2024, "event": "Test Grand Prix", "session": "Q"},
      "totalLaps": 0,
      "statusEvents": [{"time": 0, "status": "Started"}],
      "drivers": [{"id": "1", "abbreviation": "AAA"}],
      "laps": [],
      "positions": []
    },
    {
      "selection": {"year": 2024, "event": "Test Grand Prix", "session": "R"},
      "eventFormat": "conventional",
      "totalLaps": 2,
      "statusEvents": [{"time": 1.5, "status": "Started"}, {"time": 200, "status": "Finalised"}],
      "trackStatus": [{"time": 0, "status": "1", "message": "AllClear"}],
      "drivers": [{"id": "1", "abbreviation": "AAA", "teamColor": "3671c6"}],
      "laps": [
        {"driver": "1", "lapNumber": 1, "lapStartTime": 1.5, "sector1Time": 30.123,
         "sector2Time": null, "lapTime": 90.001, "position": 1, "compound": "SOFT", "tyreLife": 2}
      ],
      "positions": [{"driver": "1", "samples": [[1.5, 1, 2, 3], [2.0, 4, 5, 6]]}]
    }
  ]
}`

func TestDecodeSessionJSON(t *testing.T) {
	sel := model.SessionSelection{Year: 2024, Event: "Test Grand Prix", Session: model.Race}
	s, err := DecodeSession([]byte(sampleJSON), KindJSON, sel)
	require.NoError(t, err)
	in, err := s.ToInput()
	require.NoError(t, err)

	assert.Equal(t, sel, in.Info.Selection)
	assert.Equal(t, model.EventFormatConventional, in.Info.Format)
	assert.Equal(t, 2, in.Info.TotalLaps)
	start, ok := in.Info.StartTime()
	assert.True(t, ok)
	assert.Equal(t, 1500*time.Millisecond, start)
	assert.Equal(t, model.Color{R: 0x36, G: 0x71, B: 0xc6, A: 0xff}, in.Drivers[0].TeamColor)

	require.Len(t, in.Laps, 1)
	lap := in.Laps[0]
	assert.Equal(t, 30123*time.Millisecond, lap.SectorTime[0].MustGet())
	assert.True(t, lap.SectorTime[1].IsNull())
	assert.True(t, lap.SectorTime[2].IsNull())
	assert.Equal(t, 90001*time.Millisecond, lap.LapTime.MustGet())
	assert.Equal(t, 1, lap.Position.MustGet())
	assert.Equal(t, "SOFT", lap.Compound.MustGet())
	assert.InDelta(t, 2.0, lap.TyreLife.MustGet(), 1e-9)
	assert.True(t, lap.PitInTime.IsNull())

	require.Len(t, in.Positions, 1)
	assert.Equal(t, []model.RawPositionSample{
		{SessionTime: 1500 * time.Millisecond, X: 1, Y: 2, Z: 3},
		{SessionTime: 2000 * time.Millisecond, X: 4, Y: 5, Z: 6},
	}, in.Positions[0].Samples)
}

func TestDecodeSessionErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		sel     model.SessionSelection
		wantErr error
	}{
		{
			name:    "not found",
			data:    sampleJSON,
			sel:     model.SessionSelection{Year: 2023, Event: "Test Grand Prix", Session: model.Race},
			wantErr: source.ErrNotFound,
		},
		{
			name:    "ambiguous without selection",
			data:    sampleJSON,
			wantErr: ErrAmbiguous,
		},
		{
			name:    "major version",
			data:    `{"format":"v2.0.0","sessions":[]}`,
			wantErr: ErrUnsupportedFormat,
		},
		{
			name:    "missing version",
			data:    `{"sessions":[]}`,
			wantErr: ErrUnsupportedFormat,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSession([]byte(tt.data), KindJSON, tt.sel)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestCheckFormat(t *testing.T) {
	tests := []struct {
		version string
		wantErr bool
	}{
		{"v1.0.0", false},
		{"1.3.1", false},
		{"v1", false},
		{"v0.9.0", true},
		{"v2.0.0", true},
		{"", true},
		{"latest", true},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			err := CheckFormat(tt.version)
			assert.Equal(t, tt.wantErr, err != nil, "got %v", err)
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	for _, kind := range []Kind{KindJSON, KindYAML} {
		for name, input := range map[string]*model.SessionInput{
			"two drivers":   basedata.TwoDriverOneLap(),
			"three drivers": basedata.ThreeDriverRace(),
		} {
			t.Run(name, func(t *testing.T) {
				var buf bytes.Buffer
				require.NoError(t, Encode(&buf, kind, input))

				s, err := DecodeSession(buf.Bytes(), kind, input.Info.Selection)
				require.NoError(t, err)
				got, err := s.ToInput()
				require.NoError(t, err)
				assert.Equal(t, input, got)
			})
		}
	}
}

func TestSourceLoad(t *testing.T) {
	dir := t.TempDir()
	input := basedata.ThreeDriverRace()
	for _, name := range []string{"capture.json", "capture.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			f, err := os.Create(path)
			require.NoError(t, err)
			require.NoError(t, Encode(f, KindFromPath(path), input))
			require.NoError(t, f.Close())

			src := New(path)
			got, err := src.Load(context.Background(), model.SessionSelection{})
			require.NoError(t, err)
			assert.Equal(t, input, got)

			all, err := src.ReadAll(context.Background())
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestSourceLoadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New("does-not-matter.json").Load(ctx, basedata.SampleSelection())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKindFromPath(t *testing.T) {
	assert.Equal(t, KindYAML, KindFromPath("a/b/c.YAML"))
	assert.Equal(t, KindYAML, KindFromPath("c.yml"))
	assert.Equal(t, KindJSON, KindFromPath("c.json"))
	assert.Equal(t, KindJSON, KindFromPath("c"))
}
