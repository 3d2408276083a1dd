package access

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/crowdstack/backend/internal/models"
)

var everyCapability = append([]models.Capability{models.CapFullAdmin}, models.AllCapabilities...)

func TestDecide_SuperadminBypassesEverything(t *testing.T) {
	sub := Subject{UserID: uuid.New(), Roles: []models.Role{models.RoleDJ, models.RoleSuperadmin}}
	factsCases := []Facts{
		{},
		{OrganizerCreatedBy: uuid.New()},
		{OrganizerMembership: &Membership{Permissions: models.Permissions{}}},
		{VenueMembership: &Membership{Permissions: models.Permissions{models.CapEditEvents: false}}},
	}
	for _, f := range factsCases {
		for _, c := range everyCapability {
			d := Decide(sub, f, c)
			assert.Equal(t, Decision{Granted: true, Source: SourceSuperadmin}, d, c)
		}
	}
}

func TestDecide_CreatorGrantsEveryCapability(t *testing.T) {
	u := uuid.New()
	sub := Subject{UserID: u}
	tests := []struct {
		name   string
		facts  Facts
		source Source
	}{
		{"organizer creator", Facts{OrganizerCreatedBy: u}, SourceOrganizerCreator},
		{"venue creator", Facts{OrganizerCreatedBy: uuid.New(), VenueCreatedBy: u}, SourceVenueCreator},
		{"event owner", Facts{OrganizerCreatedBy: uuid.New(), EventOwner: u}, SourceEventOwner},
		{
			"creator wins over empty membership",
			Facts{OrganizerCreatedBy: u, OrganizerMembership: &Membership{Permissions: models.Permissions{}}},
			SourceOrganizerCreator,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, c := range everyCapability {
				assert.Equal(t, Decision{Granted: true, Source: tt.source}, Decide(sub, tt.facts, c), c)
			}
		})
	}
}

func TestDecide_FullAdminMembershipGrantsEveryCapability(t *testing.T) {
	sub := Subject{UserID: uuid.New()}
	for _, f := range []Facts{
		{OrganizerCreatedBy: uuid.New(), OrganizerMembership: &Membership{Permissions: models.Permissions{models.CapFullAdmin: true}}},
		{VenueCreatedBy: uuid.New(), VenueMembership: &Membership{Permissions: models.Permissions{models.CapFullAdmin: true}}},
	} {
		for _, c := range everyCapability {
			assert.Equal(t, Decision{Granted: true, Source: SourceMembership}, Decide(sub, f, c), c)
		}
	}
}

func TestDecide_MembershipWithoutCapabilityDenies(t *testing.T) {
	sub := Subject{UserID: uuid.New()}
	perms := models.Permissions{models.CapEditEvents: true, models.CapViewReports: false, models.CapFullAdmin: false}
	f := Facts{OrganizerCreatedBy: uuid.New(), OrganizerMembership: &Membership{Role: models.MemberRoleStaff, Permissions: perms}}

	for _, c := range models.AllCapabilities {
		d := Decide(sub, f, c)
		if c == models.CapEditEvents {
			assert.True(t, d.Granted)
			continue
		}
		assert.Equal(t, Decision{Granted: false, Source: SourceNone}, d, c)
	}
}

func TestDecide_DefaultDeny(t *testing.T) {
	sub := Subject{UserID: uuid.New(), Roles: []models.Role{models.RoleEventOrganizer, models.RoleVenueAdmin}}
	f := Facts{OrganizerCreatedBy: uuid.New(), VenueCreatedBy: uuid.New(), EventOwner: uuid.New()}
	for _, c := range everyCapability {
		assert.Equal(t, Decision{Granted: false, Source: SourceNone}, Decide(sub, f, c), c)
	}
}

func TestDecide_NilUserDenied(t *testing.T) {
	d := Decide(Subject{UserID: uuid.Nil, Roles: []models.Role{models.RoleSuperadmin}}, Facts{}, models.CapEditEvents)
	assert.False(t, d.Granted)
}

func TestDecide_VenueMembershipOnEvent(t *testing.T) {
	sub := Subject{UserID: uuid.New()}
	f := Facts{
		OrganizerCreatedBy: uuid.New(),
		VenueCreatedBy:     uuid.New(),
		VenueMembership:    &Membership{Permissions: models.Permissions{models.CapApproveEvents: true}},
	}
	assert.Equal(t, Decision{Granted: true, Source: SourceMembership}, Decide(sub, f, models.CapApproveEvents))
	assert.False(t, Decide(sub, f, models.CapEditEvents).Granted)
}

// A created organizer O; B is a member of O with {edit_events: true, full_admin: false}.
func TestDecide_CreatorAndMemberExample(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	factsFor := func(u uuid.UUID) Facts {
		f := Facts{OrganizerCreatedBy: a}
		if u == b {
			f.OrganizerMembership = &Membership{
				Role:        models.MemberRoleStaff,
				Permissions: models.Permissions{models.CapEditEvents: true, models.CapFullAdmin: false},
			}
		}
		return f
	}

	assert.Equal(t, Decision{Granted: true, Source: SourceOrganizerCreator},
		Decide(Subject{UserID: a}, factsFor(a), models.CapManagePromoters))
	assert.Equal(t, Decision{Granted: false, Source: SourceNone},
		Decide(Subject{UserID: b}, factsFor(b), models.CapManagePromoters))
	assert.Equal(t, Decision{Granted: true, Source: SourceMembership},
		Decide(Subject{UserID: b}, factsFor(b), models.CapEditEvents))
}
