package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
	t.Parallel()

	for _, r := range []Role{RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin} {
		assert.True(t, r.Valid(), "role %q", r)
	}
	for _, r := range []Role{"", "root", "ADMIN", "lead guide"} {
		assert.False(t, r.Valid(), "role %q", r)
	}
}
