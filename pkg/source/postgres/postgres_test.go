//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/sessionreplay/pkg/model"
	"github.com/mpapenbr/sessionreplay/pkg/source"
	"github.com/mpapenbr/sessionreplay/testsupport/basedata"
	"github.com/mpapenbr/sessionreplay/testsupport/testdb"
)

func TestSaveAndLoad(t *testing.T) {
	pool := testdb.InitTestDb()
	ctx := context.Background()
	src := New(pool)

	_, err := src.Load(ctx, basedata.SampleSelection())
	assert.ErrorIs(t, err, source.ErrNotFound)

	input := basedata.ThreeDriverRace()
	require.NoError(t, src.Save(ctx, input))
	got, err := src.Load(ctx, input.Info.Selection)
	require.NoError(t, err)
	assert.Equal(t, input, got)

	// saving again replaces the capture and invalidates the cached input
	replaced := basedata.TwoDriverOneLap()
	require.NoError(t, src.Save(ctx, replaced))
	got, err = src.Load(ctx, input.Info.Selection)
	require.NoError(t, err)
	assert.Equal(t, replaced, got)

	list, err := src.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.SessionSelection{basedata.SampleSelection()}, list)
}
