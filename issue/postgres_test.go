package issue

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/telemetrydev/propdefs/types"
)

func TestQueueUpdate(t *testing.T) {
	queued := &pgx.Batch{}
	queueUpdate(queued, types.Update{Kind: types.KindEvent, TeamID: 7, Event: "signup"})
	queueUpdate(queued, types.Update{Kind: types.KindProperty, TeamID: 7, Property: "plan", Parent: types.ParentEvent, ValueType: types.TypeString})
	queueUpdate(queued, types.Update{Kind: types.KindEventProperty, TeamID: 7, Event: "signup", Property: "plan"})
	require.Equal(t, 3, queued.Len())
}

func TestParentCode(t *testing.T) {
	require.Equal(t, int16(1), parentCode(types.ParentEvent))
	require.Equal(t, int16(2), parentCode(types.ParentPerson))
}

func TestNullableType(t *testing.T) {
	require.Nil(t, nullableType(""))

	got := nullableType(types.TypeNumeric)
	require.NotNil(t, got)
	require.Equal(t, "Numeric", *got)
}
