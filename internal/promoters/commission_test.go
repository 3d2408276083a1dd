package promoters

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputePayouts(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	unassigned := uuid.MustParse("00000000-0000-0000-0000-00000000000c")
	idle := uuid.MustParse("00000000-0000-0000-0000-00000000000d")

	lines := ComputePayouts(
		[]Tally{{PromoterID: b, Checkins: 3}, {PromoterID: a, Checkins: 10}, {PromoterID: unassigned, Checkins: 5}},
		map[uuid.UUID]int{a: 250, b: 500, idle: 1000},
	)

	assert.Equal(t, []Line{
		{PromoterID: a, Checkins: 10, PerHeadCents: 250, AmountCents: 2500},
		{PromoterID: b, Checkins: 3, PerHeadCents: 500, AmountCents: 1500},
	}, lines)
}

func TestComputePayouts_Empty(t *testing.T) {
	assert.Empty(t, ComputePayouts(nil, nil))
	assert.Empty(t, ComputePayouts([]Tally{{PromoterID: uuid.New(), Checkins: 4}}, map[uuid.UUID]int{}))
}

func TestComputePayouts_ZeroRate(t *testing.T) {
	p := uuid.New()
	lines := ComputePayouts([]Tally{{PromoterID: p, Checkins: 4}}, map[uuid.UUID]int{p: 0})
	require.Len(t, lines, 1)
	assert.Equal(t, 0, lines[0].AmountCents)
}

func TestCommissions(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ev, p := uuid.New(), uuid.New()
	mock.ExpectQuery(`c.undo_at IS NULL`).
		WithArgs(ev).
		WillReturnRows(pgxmock.NewRows([]string{"referral_promoter_id", "count"}).AddRow(p, 7))
	mock.ExpectQuery(`FROM event_promoters`).
		WithArgs(ev).
		WillReturnRows(pgxmock.NewRows([]string{"promoter_id", "commission_per_head_cents"}).AddRow(p, 300))

	lines, err := Commissions(context.Background(), mock, ev)
	require.NoError(t, err)
	assert.Equal(t, []Line{{PromoterID: p, Checkins: 7, PerHeadCents: 300, AmountCents: 2100}}, lines)
	assert.NoError(t, mock.ExpectationsWereMet())
}
