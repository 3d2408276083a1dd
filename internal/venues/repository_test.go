package venues

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdstack/backend/internal/models"
)

func TestRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id, creator := uuid.New(), uuid.New()
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO venues`).
		WithArgs("The Vault", "the-vault", "1 Main St", creator).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "slug", "address", "created_by", "created_at", "updated_at"}).
			AddRow(id, "The Vault", "the-vault", "1 Main St", creator, now, now))
	mock.ExpectExec(`INSERT INTO venue_users`).
		WithArgs(id, creator, models.MemberRoleAdmin, models.FullAdminPermissions()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	v := &models.Venue{Name: "The Vault", Slug: "the-vault", Address: "1 Main St", CreatedBy: creator}
	require.NoError(t, NewRepository(mock).Create(context.Background(), v))
	assert.Equal(t, id, v.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM venues WHERE id = \$1`).WillReturnError(pgx.ErrNoRows)
	_, err = NewRepository(mock).GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_PendingEvents(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	venue, org := uuid.New(), uuid.New()
	mock.ExpectQuery(`venue_approval_status = 'pending'`).
		WithArgs(venue).
		WillReturnRows(pgxmock.NewRows([]string{"id", "organizer_id", "name", "slug", "starts_at", "venue_approval_status"}).
			AddRow(uuid.New(), org, "Launch", "launch", time.Now(), models.VenueApprovalPending))

	list, err := NewRepository(mock).PendingEvents(context.Background(), venue)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, venue, *list[0].VenueID)
	assert.Equal(t, models.VenueApprovalPending, list[0].VenueApprovalStatus)
}
