package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermissionsAllows(t *testing.T) {
	var nilBag Permissions
	assert.False(t, nilBag.Allows(CapEditEvents))

	p := Permissions{CapEditEvents: true}
	assert.True(t, p.Allows(CapEditEvents))
	assert.False(t, p.Allows(CapManagePromoters))

	admin := Permissions{CapFullAdmin: true}
	for _, c := range AllCapabilities {
		assert.True(t, admin.Allows(c), c)
	}
}

func TestPermissionsNormalize(t *testing.T) {
	p := Permissions{CapEditEvents: true, CapViewReports: false, "bogus": true}.Normalize()
	assert.Equal(t, Permissions{CapEditEvents: true}, p)

	full := Permissions{CapFullAdmin: true}.Normalize()
	assert.Len(t, full, len(AllCapabilities)+1)
	for _, c := range AllCapabilities {
		assert.True(t, full[c], c)
	}
}
