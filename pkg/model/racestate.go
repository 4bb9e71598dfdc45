package model

import (
	"github.com/aarondl/opt/null"
)

// RaceStateRow is the final per (driver, tick) record
type RaceStateRow struct {
	RankedSample
	IsDNF      bool `json:"isDnf"`
	IsFinished bool `json:"isFinished"`
	InPit      bool `json:"inPit"`
	PitStops   int  `json:"pitStops"`
	// seconds, rounded to 3 decimals
	DiffToCarInFront float64 `json:"diffToCarInFront"`
	DiffToLeader     float64 `json:"diffToLeader"`
	// single letter code, empty if never known
	TireCompound      string            `json:"tireCompound"`
	TireCompoundColor Color             `json:"tireCompoundColor"`
	TyreLife          null.Val[float64] `json:"tyreLife"`
}

// RaceState is the result of a pipeline run.
// Rows are ordered by roster order and tick.
type RaceState struct {
	Selection SessionSelection `json:"selection"`
	TotalLaps int              `json:"totalLaps"`
	// playback must not exceed this tick
	TickSpan      int                   `json:"tickSpan"`
	EndOfRaceTime null.Val[int64]       `json:"endOfRaceTime"`
	Drivers       []Driver              `json:"drivers"`
	Rows          []RaceStateRow        `json:"rows"`
	TrackStatus   []TrackStatusInterval `json:"trackStatus"`
}
