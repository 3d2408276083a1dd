package access

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/crowdstack/backend/internal/models"
)

type fakeStore struct {
	roles     map[uuid.UUID][]models.Role
	facts     map[Resource]Facts
	rolesErr  error
	factsErr  error
	factCalls int
}

func (s *fakeStore) UserRoles(_ context.Context, userID uuid.UUID) ([]models.Role, error) {
	if s.rolesErr != nil {
		return nil, s.rolesErr
	}
	return s.roles[userID], nil
}

func (s *fakeStore) Facts(_ context.Context, res Resource, _ uuid.UUID) (Facts, error) {
	s.factCalls++
	if s.factsErr != nil {
		return Facts{}, s.factsErr
	}
	f, ok := s.facts[res]
	if !ok {
		return Facts{}, errors.New("no rows in result set")
	}
	return f, nil
}

func TestResolver_SuperadminSkipsLookup(t *testing.T) {
	store := &fakeStore{factsErr: errors.New("db down")}
	r := NewResolver(store, nil)

	sub := Subject{UserID: uuid.New(), Roles: []models.Role{models.RoleSuperadmin}}
	d := r.Resolve(context.Background(), sub, Event(uuid.New()), models.CapCloseoutEvents)

	assert.Equal(t, Decision{Granted: true, Source: SourceSuperadmin}, d)
	assert.Zero(t, store.factCalls)
}

func TestResolver_LookupFailureDenies(t *testing.T) {
	u := uuid.New()
	org := uuid.New()
	store := &fakeStore{factsErr: errors.New("connection reset")}
	r := NewResolver(store, nil)

	d := r.Resolve(context.Background(), Subject{UserID: u}, Organizer(org), models.CapEditEvents)
	assert.Equal(t, Decision{Granted: false, Source: SourceNone}, d)
}

func TestResolver_MissingResourceDenies(t *testing.T) {
	r := NewResolver(&fakeStore{}, nil)
	d := r.Resolve(context.Background(), Subject{UserID: uuid.New()}, Venue(uuid.New()), models.CapEditVenue)
	assert.False(t, d.Granted)
}

func TestResolver_ResolveUserLoadsRoles(t *testing.T) {
	admin := uuid.New()
	store := &fakeStore{roles: map[uuid.UUID][]models.Role{admin: {models.RoleSuperadmin}}}
	r := NewResolver(store, nil)

	d := r.ResolveUser(context.Background(), admin, Event(uuid.New()), models.CapManageDoor)
	assert.Equal(t, SourceSuperadmin, d.Source)
}

func TestResolver_ResolveUserRoleFailureFailsClosed(t *testing.T) {
	admin := uuid.New()
	store := &fakeStore{
		roles:    map[uuid.UUID][]models.Role{admin: {models.RoleSuperadmin}},
		rolesErr: errors.New("timeout"),
	}
	r := NewResolver(store, nil)

	d := r.ResolveUser(context.Background(), admin, Event(uuid.New()), models.CapManageDoor)
	assert.False(t, d.Granted)
	assert.Nil(t, r.Roles(context.Background(), admin))
}

func TestResolver_EventWithoutVenueUsesOrganizerPath(t *testing.T) {
	member := uuid.New()
	ev := Event(uuid.New())
	store := &fakeStore{facts: map[Resource]Facts{
		ev: {
			OrganizerCreatedBy:  uuid.New(),
			EventOwner:          uuid.New(),
			OrganizerMembership: &Membership{Permissions: models.Permissions{models.CapManageDoor: true}},
		},
	}}
	r := NewResolver(store, nil)

	assert.True(t, r.Resolve(context.Background(), Subject{UserID: member}, ev, models.CapManageDoor).Granted)
	assert.False(t, r.Resolve(context.Background(), Subject{UserID: member}, ev, models.CapApproveEvents).Granted)
}
