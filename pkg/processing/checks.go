package processing

import (
	"fmt"

	"github.com/mpapenbr/sessionreplay/pkg/model"
	"github.com/mpapenbr/sessionreplay/pkg/processing/procerr"
)

const (
	CheckTickContiguous     = "tick-contiguous"
	CheckCompletionMonotone = "completion-monotone"
)

// CheckTicks verifies the ticks of each driver are 1,2,3,... in sample order
func CheckTicks(samples []model.PositionSample) error {
	next := make(map[string]int)
	for i := range samples {
		s := &samples[i]
		want, ok := next[s.DriverID]
		if !ok {
			want = 1
		}
		if s.Tick != want {
			return &procerr.InvariantViolation{
				Check: CheckTickContiguous, DriverID: s.DriverID, Tick: s.Tick,
				Detail: fmt.Sprintf("expected tick %d", want),
			}
		}
		next[s.DriverID] = want + 1
	}
	return nil
}

// CheckCompletion verifies the lap completion of each driver never decreases.
// Rows of retired drivers are not checked.
func CheckCompletion(rows []model.RaceStateRow) error {
	type last struct {
		tick       int
		completion float64
	}
	prev := make(map[string]last)
	for i := range rows {
		r := &rows[i]
		p, ok := prev[r.DriverID]
		if ok && r.Tick <= p.tick {
			return &procerr.InvariantViolation{
				Check: CheckTickContiguous, DriverID: r.DriverID, Tick: r.Tick,
				Detail: fmt.Sprintf("tick not after previous tick %d", p.tick),
			}
		}
		if r.IsDNF {
			prev[r.DriverID] = last{tick: r.Tick}
			continue
		}
		if ok && r.LapCompletion < p.completion {
			return &procerr.InvariantViolation{
				Check: CheckCompletionMonotone, DriverID: r.DriverID, Tick: r.Tick,
				Detail: fmt.Sprintf("lap completion %.6f below previous %.6f",
					r.LapCompletion, p.completion),
			}
		}
		prev[r.DriverID] = last{tick: r.Tick, completion: r.LapCompletion}
	}
	return nil
}
