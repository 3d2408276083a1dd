package models

// Capability names a permission flag in a membership's permission bag.
type Capability string

const (
	CapFullAdmin       Capability = "full_admin"
	CapEditEvents      Capability = "edit_events"
	CapManagePromoters Capability = "manage_promoters"
	CapManageUsers     Capability = "manage_users"
	CapViewReports     Capability = "view_reports"
	CapManageDoor      Capability = "manage_door"
	CapCloseoutEvents  Capability = "closeout_events"
	CapManagePayouts   Capability = "manage_payouts"
	CapApproveEvents   Capability = "approve_events"
	CapEditVenue       Capability = "edit_venue"
)

// AllCapabilities lists every named capability except full_admin.
var AllCapabilities = []Capability{
	CapEditEvents,
	CapManagePromoters,
	CapManageUsers,
	CapViewReports,
	CapManageDoor,
	CapCloseoutEvents,
	CapManagePayouts,
	CapApproveEvents,
	CapEditVenue,
}

// ValidCapability reports whether c is a known capability.
func ValidCapability(c Capability) bool {
	if c == CapFullAdmin {
		return true
	}
	for _, k := range AllCapabilities {
		if k == c {
			return true
		}
	}
	return false
}

// Permissions is the bag of named booleans stored as JSONB on a membership row.
type Permissions map[Capability]bool

// Allows reports whether the bag grants c. full_admin implies every capability.
func (p Permissions) Allows(c Capability) bool {
	if p == nil {
		return false
	}
	return p[CapFullAdmin] || p[c]
}

// Normalize drops unknown keys and, when full_admin is set, marks every capability true.
func (p Permissions) Normalize() Permissions {
	out := make(Permissions, len(AllCapabilities)+1)
	for k, v := range p {
		if v && ValidCapability(k) {
			out[k] = true
		}
	}
	if out[CapFullAdmin] {
		for _, c := range AllCapabilities {
			out[c] = true
		}
	}
	return out
}

// FullAdminPermissions returns a normalized full_admin bag.
func FullAdminPermissions() Permissions {
	return Permissions{CapFullAdmin: true}.Normalize()
}
