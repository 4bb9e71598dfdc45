// Package basedata provides sample session inputs for tests.
package basedata

import (
	"time"

	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/sessionreplay/pkg/model"
)

type LapOption func(l *model.RawLap)

// Ms converts milliseconds into a duration
func Ms(v int64) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func msVal(v int64) null.Val[time.Duration] {
	return null.From(Ms(v))
}

func WithStart(ms int64) LapOption {
	return func(l *model.RawLap) {
		l.LapStartTime = msVal(ms)
	}
}

func WithLapTime(ms int64) LapOption {
	return func(l *model.RawLap) {
		l.LapTime = msVal(ms)
	}
}

func WithSectorTimes(s1, s2, s3 int64) LapOption {
	return func(l *model.RawLap) {
		l.SectorTime = [model.NumSectors]null.Val[time.Duration]{
			msVal(s1), msVal(s2), msVal(s3),
		}
	}
}

func WithSectorSessionTimes(s1, s2, s3 int64) LapOption {
	return func(l *model.RawLap) {
		l.SectorSessionTime = [model.NumSectors]null.Val[time.Duration]{
			msVal(s1), msVal(s2), msVal(s3),
		}
	}
}

func WithPitIn(ms int64) LapOption {
	return func(l *model.RawLap) {
		l.PitInTime = msVal(ms)
	}
}

func WithPitOut(ms int64) LapOption {
	return func(l *model.RawLap) {
		l.PitOutTime = msVal(ms)
	}
}

func WithPosition(p int) LapOption {
	return func(l *model.RawLap) {
		l.Position = null.From(p)
	}
}

func WithCompound(c string) LapOption {
	return func(l *model.RawLap) {
		l.Compound = null.From(c)
	}
}

func WithTyreLife(v float64) LapOption {
	return func(l *model.RawLap) {
		l.TyreLife = null.From(v)
	}
}

func Lap(driverID string, lap int, opts ...LapOption) model.RawLap {
	ret := model.RawLap{DriverID: driverID, LapNumber: lap}
	for _, opt := range opts {
		opt(&ret)
	}
	return ret
}

// TimedLap creates a lap with start, lap time, equal sector times and
// the derived sector session times
func TimedLap(driverID string, lap int, start, lapTime int64, opts ...LapOption) model.RawLap {
	s := lapTime / 3
	base := []LapOption{
		WithStart(start),
		WithLapTime(lapTime),
		WithSectorTimes(s, s, lapTime-2*s),
		WithSectorSessionTimes(start+s, start+2*s, start+lapTime),
	}
	return Lap(driverID, lap, append(base, opts...)...)
}

// Positions creates a position series with samples at the given times (ms)
func Positions(driverID string, times ...int64) model.DriverPositions {
	ret := model.DriverPositions{
		DriverID: driverID,
		Samples:  make([]model.RawPositionSample, len(times)),
	}
	for i, t := range times {
		ret.Samples[i] = model.RawPositionSample{
			SessionTime: Ms(t),
			X:           float64(i),
			Y:           float64(i) * 2,
		}
	}
	return ret
}

// Every returns the times from..to (inclusive) with step
func Every(from, to, step int64) []int64 {
	ret := make([]int64, 0)
	for t := from; t <= to; t += step {
		ret = append(ret, t)
	}
	return ret
}

func SampleSelection() model.SessionSelection {
	return model.SessionSelection{Year: 2024, Event: "Test Grand Prix", Session: model.Race}
}

func SampleDrivers() []model.Driver {
	return []model.Driver{
		{
			ID: "1", Abbreviation: "AAA", FirstName: "Anton", LastName: "Alpha",
			TeamName: "Team A", TeamColor: model.Color{R: 0x36, G: 0x71, B: 0xc6, A: 0xff},
		},
		{
			ID: "2", Abbreviation: "BBB", FirstName: "Berta", LastName: "Beta",
			TeamName: "Team B", TeamColor: model.Color{R: 0xe8, G: 0x00, B: 0x20, A: 0xff},
		},
	}
}

// TwoDriverOneLap is a one lap race. Driver 1 crosses the line at 90.0s,
// driver 2 at 90.5s. Telemetry is sampled every 10s from 0 to 100s.
func TwoDriverOneLap() *model.SessionInput {
	return &model.SessionInput{
		Info: model.SessionInfo{
			Selection: SampleSelection(),
			Format:    model.EventFormatConventional,
			TotalLaps: 1,
			StatusEvents: []model.SessionStatus{
				{Time: 0, Status: model.SessionStatusStarted},
				{Time: Ms(110000), Status: model.SessionStatusFinalised},
			},
			TrackStatus: []model.TrackStatusEntry{
				{Time: 0, Status: "1", Message: "AllClear"},
				{Time: Ms(35000), Status: "2", Message: "Yellow"},
				{Time: Ms(55000), Status: "1", Message: "AllClear"},
			},
		},
		Drivers: SampleDrivers(),
		Laps: []model.RawLap{
			TimedLap("1", 1, 0, 90000, WithPosition(1), WithCompound("SOFT"), WithTyreLife(3)),
			TimedLap("2", 1, 500, 90000, WithPosition(2), WithCompound("MEDIUM"), WithTyreLife(1)),
		},
		Positions: []model.DriverPositions{
			Positions("1", Every(0, 100000, 10000)...),
			Positions("2", Every(0, 100000, 10000)...),
		},
	}
}

// ThreeDriverRace is a three lap race.
// Driver 1 wins, driver 2 pits on lap 2 and finishes second,
// driver 3 retires at the start of lap 2 (75s).
//
//nolint:funlen // sample data
func ThreeDriverRace() *model.SessionInput {
	drivers := append(SampleDrivers(), model.Driver{
		ID: "3", Abbreviation: "CCC", FirstName: "Carl", LastName: "Gamma",
		TeamName: "Team C", TeamColor: model.Color{R: 0x27, G: 0xf4, B: 0xd2, A: 0xff},
	})
	return &model.SessionInput{
		Info: model.SessionInfo{
			Selection: SampleSelection(),
			Format:    model.EventFormatConventional,
			TotalLaps: 3,
			StatusEvents: []model.SessionStatus{
				{Time: Ms(5000), Status: model.SessionStatusStarted},
				{Time: Ms(300000), Status: model.SessionStatusFinalised},
			},
			TrackStatus: []model.TrackStatusEntry{
				{Time: 0, Status: "1", Message: "AllClear"},
				{Time: Ms(100000), Status: "4", Message: "SCDeployed"},
				{Time: Ms(150000), Status: "1", Message: "AllClear"},
			},
		},
		Drivers: drivers,
		Laps: []model.RawLap{
			TimedLap("1", 1, 10000, 60000, WithPosition(1), WithCompound("SOFT"), WithTyreLife(1)),
			TimedLap("1", 2, 70000, 60000, WithPosition(1)),
			TimedLap("1", 3, 130000, 60000, WithPosition(1)),
			TimedLap("2", 1, 10000, 61000, WithPosition(2), WithCompound("MEDIUM"), WithTyreLife(1)),
			TimedLap("2", 2, 71000, 70000, WithPosition(2), WithPitIn(135000)),
			TimedLap("2", 3, 141000, 62000, WithPosition(2), WithPitOut(145000),
				WithCompound("HARD"), WithTyreLife(1)),
			TimedLap("3", 1, 10000, 65000, WithPosition(3), WithCompound("SOFT"), WithTyreLife(5)),
			Lap("3", 2, WithStart(75000)),
		},
		Positions: []model.DriverPositions{
			Positions("1", Every(0, 220000, 5000)...),
			Positions("2", Every(0, 220000, 5000)...),
			Positions("3", Every(0, 220000, 5000)...),
		},
	}
}
