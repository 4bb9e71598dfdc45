package model

import (
	"time"

	"github.com/aarondl/opt/null"
)

const NumSectors = 3

// RawLap is a lap row as emitted by the data provider
type RawLap struct {
	DriverID          string                              `json:"driverId"`
	LapNumber         int                                 `json:"lapNumber"`
	LapStartTime      null.Val[time.Duration]             `json:"lapStartTime"`
	SectorTime        [NumSectors]null.Val[time.Duration] `json:"sectorTime"`
	SectorSessionTime [NumSectors]null.Val[time.Duration] `json:"sectorSessionTime"`
	LapTime           null.Val[time.Duration]             `json:"lapTime"`
	PitInTime         null.Val[time.Duration]             `json:"pitInTime"`
	PitOutTime        null.Val[time.Duration]             `json:"pitOutTime"`
	Position          null.Val[int]                       `json:"position"`
	Compound          null.Val[string]                    `json:"compound"`
	TyreLife          null.Val[float64]                   `json:"tyreLife"`
}

// LapRecord is a normalized lap. All times are milliseconds since session epoch.
type LapRecord struct {
	DriverID          string                      `json:"driverId"`
	LapNumber         int                         `json:"lapNumber"`
	LapStartTime      null.Val[int64]             `json:"lapStartTime"`
	SectorTime        [NumSectors]null.Val[int64] `json:"sectorTime"`
	SectorSessionTime [NumSectors]null.Val[int64] `json:"sectorSessionTime"`
	// LapTime is 1 if the provider did not deliver a lap time
	LapTime      int64           `json:"lapTime"`
	LapTimeKnown bool            `json:"lapTimeKnown"`
	LapEndTime   null.Val[int64] `json:"lapEndTime"`
	PitInTime    null.Val[int64] `json:"pitInTime"`
	PitOutTime   null.Val[int64] `json:"pitOutTime"`
	// null means the driver is not classified for this lap (retired)
	Position null.Val[int]     `json:"position"`
	Compound null.Val[string]  `json:"compound"`
	TyreLife null.Val[float64] `json:"tyreLife"`
	// gap to the car crossing the sector boundary before this one (same lap number)
	SectorDelta  [NumSectors]null.Val[int64] `json:"sectorDelta"`
	LastLapTime  null.Val[int64]             `json:"lastLapTime"`
	FastestSoFar null.Val[int64]             `json:"fastestSoFar"`
}

// FastestIncluding returns the fastest lap time up to and including this lap
func (l *LapRecord) FastestIncluding() null.Val[int64] {
	if !l.LapTimeKnown {
		return l.FastestSoFar
	}
	if f, ok := l.FastestSoFar.Get(); ok && f <= l.LapTime {
		return l.FastestSoFar
	}
	return null.From(l.LapTime)
}
