package access

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdstack/backend/internal/models"
)

func TestPgStore_OrganizerFacts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	org, creator, member := uuid.New(), uuid.New(), uuid.New()
	perms := models.Permissions{models.CapEditEvents: true}
	mock.ExpectQuery(`FROM organizers o`).
		WithArgs(org, member).
		WillReturnRows(pgxmock.NewRows([]string{"created_by", "is_member", "role", "permissions"}).
			AddRow(creator, true, "staff", perms))

	f, err := NewPgStore(mock).Facts(context.Background(), Organizer(org), member)
	require.NoError(t, err)
	assert.Equal(t, creator, f.OrganizerCreatedBy)
	require.NotNil(t, f.OrganizerMembership)
	assert.Equal(t, "staff", f.OrganizerMembership.Role)
	assert.True(t, f.OrganizerMembership.Permissions.Allows(models.CapEditEvents))
	assert.Nil(t, f.VenueMembership)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStore_VenueFactsNonMember(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	venue, creator, user := uuid.New(), uuid.New(), uuid.New()
	mock.ExpectQuery(`FROM venues v`).
		WithArgs(venue, user).
		WillReturnRows(pgxmock.NewRows([]string{"created_by", "is_member", "role", "permissions"}).
			AddRow(creator, false, "", models.Permissions(nil)))

	f, err := NewPgStore(mock).Facts(context.Background(), Venue(venue), user)
	require.NoError(t, err)
	assert.Equal(t, creator, f.VenueCreatedBy)
	assert.Nil(t, f.VenueMembership)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStore_EventFactsWithVenue(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ev, owner, orgCreator, venueCreator, user := uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()
	mock.ExpectQuery(`FROM events e`).
		WithArgs(ev, user).
		WillReturnRows(pgxmock.NewRows([]string{
			"owner_user_id", "org_created_by",
			"org_member", "org_role", "org_permissions",
			"venue_created_by", "venue_member", "venue_role", "venue_permissions",
		}).AddRow(
			owner, orgCreator,
			false, "", models.Permissions(nil),
			&venueCreator, true, "admin", models.Permissions{models.CapFullAdmin: true},
		))

	f, err := NewPgStore(mock).Facts(context.Background(), Event(ev), user)
	require.NoError(t, err)
	assert.Equal(t, owner, f.EventOwner)
	assert.Equal(t, orgCreator, f.OrganizerCreatedBy)
	assert.Equal(t, venueCreator, f.VenueCreatedBy)
	assert.Nil(t, f.OrganizerMembership)
	require.NotNil(t, f.VenueMembership)
	assert.True(t, f.VenueMembership.Permissions.Allows(models.CapApproveEvents))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStore_EventFactsWithoutVenue(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ev, owner, orgCreator, user := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	mock.ExpectQuery(`FROM events e`).
		WithArgs(ev, user).
		WillReturnRows(pgxmock.NewRows([]string{
			"owner_user_id", "org_created_by",
			"org_member", "org_role", "org_permissions",
			"venue_created_by", "venue_member", "venue_role", "venue_permissions",
		}).AddRow(
			owner, orgCreator,
			true, "staff", models.Permissions{models.CapEditEvents: true},
			(*uuid.UUID)(nil), false, "", models.Permissions(nil),
		))

	f, err := NewPgStore(mock).Facts(context.Background(), Event(ev), user)
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, f.VenueCreatedBy)
	assert.Nil(t, f.VenueMembership)
	require.NotNil(t, f.OrganizerMembership)

	d := Decide(Subject{UserID: user}, f, models.CapEditEvents)
	assert.True(t, d.Granted)
	assert.Equal(t, SourceMembership, d.Source)
	assert.False(t, Decide(Subject{UserID: user}, f, models.CapApproveEvents).Granted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStore_NotFoundPropagates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM organizers o`).WillReturnError(pgx.ErrNoRows)

	_, err = NewPgStore(mock).Facts(context.Background(), Organizer(uuid.New()), uuid.New())
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestPgStore_UnknownKind(t *testing.T) {
	_, err := NewPgStore(nil).Facts(context.Background(), Resource{Kind: "booking", ID: uuid.New()}, uuid.New())
	assert.Error(t, err)
}

func TestPgStore_UserRoles(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	u := uuid.New()
	mock.ExpectQuery(`SELECT role FROM user_roles`).
		WithArgs(u).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow("event_organizer").AddRow("superadmin"))

	roles, err := NewPgStore(mock).UserRoles(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, []models.Role{models.RoleEventOrganizer, models.RoleSuperadmin}, roles)
}
