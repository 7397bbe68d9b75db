package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/celerix-dev/celerix-bugs/pkg/schema"
)

func TestAuthorize_Table(t *testing.T) {
	tests := []struct {
		action Action
		role   schema.Role
		want   bool
	}{
		{CreateBug, schema.RoleTester, true},
		{CreateBug, schema.RoleDeveloper, false},
		{CreateBug, schema.RoleAdmin, true},
		{ChangeStatus, schema.RoleTester, false},
		{ChangeStatus, schema.RoleDeveloper, true},
		{ChangeStatus, schema.RoleAdmin, true},
		{AssignSelf, schema.RoleTester, false},
		{AssignSelf, schema.RoleDeveloper, true},
		{AssignSelf, schema.RoleAdmin, true},
		{ViewAnalytics, schema.RoleTester, false},
		{ViewAnalytics, schema.RoleDeveloper, false},
		{ViewAnalytics, schema.RoleAdmin, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.action)+"/"+string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, Authorize(tt.role, tt.action))
		})
	}
}

func TestAuthorize_UnknownRoleDenied(t *testing.T) {
	for _, a := range Actions {
		assert.False(t, Authorize(schema.Role("guest"), a), a)
		assert.False(t, Authorize("", a), a)
	}
	assert.False(t, Authorize(schema.RoleAdmin, Action("delete_bug")))
}

func TestCapabilities(t *testing.T) {
	assert.Equal(t, []Action{CreateBug}, Capabilities(schema.RoleTester))
	assert.Equal(t, []Action{ChangeStatus, AssignSelf}, Capabilities(schema.RoleDeveloper))
	assert.Equal(t, Actions, Capabilities(schema.RoleAdmin))
	assert.Empty(t, Capabilities("guest"))
}
