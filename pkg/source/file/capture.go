//nolint:tagliatelle // capture files use camelCase
package file

import (
	"fmt"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mpapenbr/sessionreplay/pkg/model"
)

// FormatVersion is the version written into new capture files.
// Files with the same major version can be read.
const FormatVersion = "v1.0.0"

// Times in capture files are seconds since session epoch.
// A missing value is either omitted or null.
type (
	Bundle struct {
		Format   string    `json:"format" yaml:"format"`
		Sessions []Session `json:"sessions" yaml:"sessions"`
	}
	Session struct {
		Selection    model.SessionSelection `json:"selection" yaml:"selection"`
		EventFormat  model.EventFormat      `json:"eventFormat,omitempty" yaml:"eventFormat,omitempty"`
		TotalLaps    int                    `json:"totalLaps" yaml:"totalLaps"`
		StatusEvents []StatusEvent          `json:"statusEvents" yaml:"statusEvents"`
		TrackStatus  []TrackStatus          `json:"trackStatus" yaml:"trackStatus"`
		Drivers      []Driver               `json:"drivers" yaml:"drivers"`
		Laps         []Lap                  `json:"laps" yaml:"laps"`
		Positions    []Positions            `json:"positions" yaml:"positions"`
	}
	StatusEvent struct {
		Time   float64 `json:"time" yaml:"time"`
		Status string  `json:"status" yaml:"status"`
	}
	TrackStatus struct {
		Time    float64 `json:"time" yaml:"time"`
		Status  string  `json:"status" yaml:"status"`
		Message string  `json:"message,omitempty" yaml:"message,omitempty"`
	}
	Driver struct {
		ID           string `json:"id" yaml:"id"`
		Abbreviation string `json:"abbreviation" yaml:"abbreviation"`
		FirstName    string `json:"firstName,omitempty" yaml:"firstName,omitempty"`
		LastName     string `json:"lastName,omitempty" yaml:"lastName,omitempty"`
		TeamName     string `json:"teamName,omitempty" yaml:"teamName,omitempty"`
		TeamColor    string `json:"teamColor,omitempty" yaml:"teamColor,omitempty"`
	}
	Lap struct {
		Driver             string   `json:"driver" yaml:"driver"`
		LapNumber          int      `json:"lapNumber" yaml:"lapNumber"`
		LapStartTime       *float64 `json:"lapStartTime,omitempty" yaml:"lapStartTime,omitempty"`
		Sector1Time        *float64 `json:"sector1Time,omitempty" yaml:"sector1Time,omitempty"`
		Sector2Time        *float64 `json:"sector2Time,omitempty" yaml:"sector2Time,omitempty"`
		Sector3Time        *float64 `json:"sector3Time,omitempty" yaml:"sector3Time,omitempty"`
		Sector1SessionTime *float64 `json:"sector1SessionTime,omitempty" yaml:"sector1SessionTime,omitempty"`
		Sector2SessionTime *float64 `json:"sector2SessionTime,omitempty" yaml:"sector2SessionTime,omitempty"`
		Sector3SessionTime *float64 `json:"sector3SessionTime,omitempty" yaml:"sector3SessionTime,omitempty"`
		LapTime            *float64 `json:"lapTime,omitempty" yaml:"lapTime,omitempty"`
		PitInTime          *float64 `json:"pitInTime,omitempty" yaml:"pitInTime,omitempty"`
		PitOutTime         *float64 `json:"pitOutTime,omitempty" yaml:"pitOutTime,omitempty"`
		Position           *int     `json:"position,omitempty" yaml:"position,omitempty"`
		Compound           *string  `json:"compound,omitempty" yaml:"compound,omitempty"`
		TyreLife           *float64 `json:"tyreLife,omitempty" yaml:"tyreLife,omitempty"`
	}
	// Positions holds the samples of one driver, each sample is [time, x, y, z]
	Positions struct {
		Driver  string      `json:"driver" yaml:"driver"`
		Samples [][]float64 `json:"samples" yaml:"samples"`
	}
)

// ToInput converts the capture representation into the pipeline input
func (s *Session) ToInput() (*model.SessionInput, error) {
	ret := &model.SessionInput{
		Info: model.SessionInfo{
			Selection: s.Selection,
			Format:    s.EventFormat,
			TotalLaps: s.TotalLaps,
			StatusEvents: lo.Map(s.StatusEvents,
				func(e StatusEvent, _ int) model.SessionStatus {
					return model.SessionStatus{Time: toDuration(e.Time), Status: e.Status}
				}),
			TrackStatus: lo.Map(s.TrackStatus,
				func(e TrackStatus, _ int) model.TrackStatusEntry {
					return model.TrackStatusEntry{
						Time:    toDuration(e.Time),
						Status:  e.Status,
						Message: e.Message,
					}
				}),
		},
		Drivers:   make([]model.Driver, 0, len(s.Drivers)),
		Laps:      lo.Map(s.Laps, func(l Lap, _ int) model.RawLap { return l.toRaw() }),
		Positions: make([]model.DriverPositions, 0, len(s.Positions)),
	}
	for _, d := range s.Drivers {
		c, err := model.ParseColor(d.TeamColor)
		if err != nil {
			return nil, fmt.Errorf("driver %s: %w", d.ID, err)
		}
		ret.Drivers = append(ret.Drivers, model.Driver{
			ID:           d.ID,
			Abbreviation: d.Abbreviation,
			FirstName:    d.FirstName,
			LastName:     d.LastName,
			TeamName:     d.TeamName,
			TeamColor:    c,
		})
	}
	for _, p := range s.Positions {
		dp := model.DriverPositions{
			DriverID: p.Driver,
			Samples:  make([]model.RawPositionSample, 0, len(p.Samples)),
		}
		for i, sample := range p.Samples {
			if len(sample) != 4 {
				return nil, fmt.Errorf("driver %s sample %d: want 4 values, got %d",
					p.Driver, i, len(sample))
			}
			dp.Samples = append(dp.Samples, model.RawPositionSample{
				SessionTime: toDuration(sample[0]),
				X:           sample[1],
				Y:           sample[2],
				Z:           sample[3],
			})
		}
		ret.Positions = append(ret.Positions, dp)
	}
	return ret, nil
}

func (l *Lap) toRaw() model.RawLap {
	return model.RawLap{
		DriverID:     l.Driver,
		LapNumber:    l.LapNumber,
		LapStartTime: optDuration(l.LapStartTime),
		SectorTime: [model.NumSectors]null.Val[time.Duration]{
			optDuration(l.Sector1Time),
			optDuration(l.Sector2Time),
			optDuration(l.Sector3Time),
		},
		SectorSessionTime: [model.NumSectors]null.Val[time.Duration]{
			optDuration(l.Sector1SessionTime),
			optDuration(l.Sector2SessionTime),
			optDuration(l.Sector3SessionTime),
		},
		LapTime:    optDuration(l.LapTime),
		PitInTime:  optDuration(l.PitInTime),
		PitOutTime: optDuration(l.PitOutTime),
		Position:   null.FromPtr(l.Position),
		Compound:   null.FromPtr(l.Compound),
		TyreLife:   null.FromPtr(l.TyreLife),
	}
}

// FromInput creates the capture representation of a pipeline input
func FromInput(in *model.SessionInput) Session {
	return Session{
		Selection:   in.Info.Selection,
		EventFormat: in.Info.Format,
		TotalLaps:   in.Info.TotalLaps,
		StatusEvents: lo.Map(in.Info.StatusEvents,
			func(e model.SessionStatus, _ int) StatusEvent {
				return StatusEvent{Time: toSeconds(e.Time), Status: e.Status}
			}),
		TrackStatus: lo.Map(in.Info.TrackStatus,
			func(e model.TrackStatusEntry, _ int) TrackStatus {
				return TrackStatus{Time: toSeconds(e.Time), Status: e.Status, Message: e.Message}
			}),
		Drivers: lo.Map(in.Drivers, func(d model.Driver, _ int) Driver {
			return Driver{
				ID:           d.ID,
				Abbreviation: d.Abbreviation,
				FirstName:    d.FirstName,
				LastName:     d.LastName,
				TeamName:     d.TeamName,
				TeamColor:    d.TeamColor.String(),
			}
		}),
		Laps: lo.Map(in.Laps, func(l model.RawLap, _ int) Lap {
			return Lap{
				Driver:             l.DriverID,
				LapNumber:          l.LapNumber,
				LapStartTime:       optSeconds(l.LapStartTime),
				Sector1Time:        optSeconds(l.SectorTime[0]),
				Sector2Time:        optSeconds(l.SectorTime[1]),
				Sector3Time:        optSeconds(l.SectorTime[2]),
				Sector1SessionTime: optSeconds(l.SectorSessionTime[0]),
				Sector2SessionTime: optSeconds(l.SectorSessionTime[1]),
				Sector3SessionTime: optSeconds(l.SectorSessionTime[2]),
				LapTime:            optSeconds(l.LapTime),
				PitInTime:          optSeconds(l.PitInTime),
				PitOutTime:         optSeconds(l.PitOutTime),
				Position:           l.Position.Ptr(),
				Compound:           l.Compound.Ptr(),
				TyreLife:           l.TyreLife.Ptr(),
			}
		}),
		Positions: lo.Map(in.Positions, func(p model.DriverPositions, _ int) Positions {
			return Positions{
				Driver: p.DriverID,
				Samples: lo.Map(p.Samples, func(s model.RawPositionSample, _ int) []float64 {
					return []float64{toSeconds(s.SessionTime), s.X, s.Y, s.Z}
				}),
			}
		}),
	}
}

// seconds are converted via their shortest decimal representation,
// so 90.123 becomes exactly 90123 ms
func toDuration(seconds float64) time.Duration {
	return time.Duration(decimal.NewFromFloat(seconds).Shift(9).Round(0).IntPart())
}

func toSeconds(d time.Duration) float64 {
	return decimal.NewFromInt(int64(d)).Shift(-9).InexactFloat64()
}

func optDuration(v *float64) null.Val[time.Duration] {
	if v == nil {
		return null.Val[time.Duration]{}
	}
	return null.From(toDuration(*v))
}

func optSeconds(v null.Val[time.Duration]) *float64 {
	d, ok := v.Get()
	if !ok {
		return nil
	}
	s := toSeconds(d)
	return &s
}
