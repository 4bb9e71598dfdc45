//nolint:whitespace // ok for tests
package laps

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/sessionreplay/pkg/model"
)

func TestIndex(t *testing.T) {
	recs := []model.LapRecord{
		{DriverID: "1", LapNumber: 3},
		{DriverID: "2", LapNumber: 1},
		{DriverID: "1", LapNumber: 1},
		{DriverID: "1", LapNumber: 5},
	}
	idx := NewIndex(recs)

	got := idx.Laps("1")
	assert.Len(t, got, 3)
	assert.Equal(t, []int{1, 3, 5}, []int{got[0].LapNumber, got[1].LapNumber, got[2].LapNumber})
	assert.Empty(t, idx.Laps("3"))

	assert.Same(t, &recs[0], idx.Lap("1", 3))
	assert.Nil(t, idx.Lap("1", 2))
	assert.Nil(t, idx.Lap("3", 1))

	tests := []struct {
		name string
		lap  int
		want int
	}{
		{"before first lap", 0, 1},
		{"existing lap", 3, 3},
		{"missing lap uses previous", 4, 3},
		{"after last lap", 7, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, idx.Classification("1", tt.lap).LapNumber)
		})
	}
	assert.Nil(t, idx.Classification("3", 1))
}
