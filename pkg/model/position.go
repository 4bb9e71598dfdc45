package model

import (
	"time"

	"github.com/aarondl/opt/null"
)

type RawPositionSample struct {
	SessionTime time.Duration `json:"sessionTime"`
	X           float64       `json:"x"`
	Y           float64       `json:"y"`
	Z           float64       `json:"z"`
}

// DriverPositions holds the position telemetry of one driver
type DriverPositions struct {
	DriverID string              `json:"driverId"`
	Samples  []RawPositionSample `json:"samples"`
}

// PositionSample is a sample aligned to the global tick axis.
// SessionTime is milliseconds since session epoch, Tick starts at 1.
type PositionSample struct {
	DriverID    string        `json:"driverId"`
	SessionTime int64         `json:"sessionTime"`
	Tick        int           `json:"tick"`
	X           float64       `json:"x"`
	Y           float64       `json:"y"`
	Z           float64       `json:"z"`
	LapNumber   null.Val[int] `json:"lapNumber"`
}

// RankedSample is a PositionSample with lap completion and race order.
// PositionIndex 0 is the leader.
type RankedSample struct {
	PositionSample
	LapCompletion float64 `json:"lapCompletion"`
	PositionIndex int     `json:"positionIndex"`
	HasFastestLap bool    `json:"hasFastestLap"`
}
