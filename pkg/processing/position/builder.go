// Package position merges the per driver telemetry into one ticked series.
package position

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/mpapenbr/sessionreplay/log"
	"github.com/mpapenbr/sessionreplay/pkg/model"
	"github.com/mpapenbr/sessionreplay/pkg/processing/procerr"
)

type Result struct {
	// grouped by driver (input order), ordered by tick
	Samples []model.PositionSample
	// minimum tick count over all drivers with samples
	TickSpan int
	// TickCount holds the number of ticks per driver
	TickCount map[string]int
	// drivers without any sample after session start
	Skipped []string
}

// Build combines the series, drops samples before sessionStart and assigns
// each driver a gapless tick counter starting at 1.
func Build(series []model.DriverPositions, sessionStart time.Duration) (*Result, error) {
	logger := log.Default().Named("proc.position")
	if err := validate(series); err != nil {
		return nil, err
	}
	ret := &Result{
		Samples:   make([]model.PositionSample, 0),
		TickCount: make(map[string]int),
		Skipped:   make([]string, 0),
	}
	for _, s := range series {
		tick := 0
		for _, raw := range s.Samples {
			// compared before truncation to ms
			if raw.SessionTime < sessionStart {
				continue
			}
			t := raw.SessionTime.Milliseconds()
			tick++
			ret.Samples = append(ret.Samples, model.PositionSample{
				DriverID:    s.DriverID,
				SessionTime: t,
				Tick:        tick,
				X:           raw.X,
				Y:           raw.Y,
				Z:           raw.Z,
			})
		}
		if tick == 0 {
			ret.Skipped = append(ret.Skipped, s.DriverID)
			logger.Warn("no position data after session start",
				log.String("driver", s.DriverID))
			continue
		}
		ret.TickCount[s.DriverID] = tick
	}
	if len(ret.TickCount) > 0 {
		ret.TickSpan = lo.Min(lo.Values(ret.TickCount))
	}
	logger.Debug("position series built",
		log.Int("samples", len(ret.Samples)),
		log.Int("drivers", len(ret.TickCount)),
		log.Int("tickSpan", ret.TickSpan))
	return ret, nil
}

func validate(series []model.DriverPositions) error {
	seen := make(map[string]struct{}, len(series))
	row := 0
	for _, s := range series {
		if s.DriverID == "" {
			return &procerr.ValidationError{
				Source: "position", Row: row, Field: "DriverID", Reason: "must not be empty",
			}
		}
		if _, ok := seen[s.DriverID]; ok {
			return &procerr.ValidationError{
				Source: "position", Row: row, Field: "DriverID",
				Reason: fmt.Sprintf("duplicate series for driver %s", s.DriverID),
			}
		}
		seen[s.DriverID] = struct{}{}
		for i := range s.Samples {
			if i > 0 && s.Samples[i].SessionTime < s.Samples[i-1].SessionTime {
				return &procerr.ValidationError{
					Source: "position", Row: row + i, Field: "SessionTime",
					Reason: fmt.Sprintf("driver %s: %s is before previous sample %s",
						s.DriverID, s.Samples[i].SessionTime, s.Samples[i-1].SessionTime),
				}
			}
		}
		row += len(s.Samples)
	}
	return nil
}
