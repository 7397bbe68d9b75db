// Package authz holds the role-based decision table that gates every bug
// lifecycle action. It is pure: no state, no I/O.
package authz

import "github.com/celerix-dev/celerix-bugs/pkg/schema"

// Action is a capability an actor may request.
type Action string

const (
	CreateBug     Action = "create_bug"
	ChangeStatus  Action = "change_status"
	AssignSelf    Action = "assign_self"
	ViewAnalytics Action = "view_analytics"
)

// Actions lists every action in table order.
var Actions = []Action{CreateBug, ChangeStatus, AssignSelf, ViewAnalytics}

var table = map[Action]map[schema.Role]bool{
	CreateBug: {
		schema.RoleTester: true,
		schema.RoleAdmin:  true,
	},
	ChangeStatus: {
		schema.RoleDeveloper: true,
		schema.RoleAdmin:     true,
	},
	AssignSelf: {
		schema.RoleDeveloper: true,
		schema.RoleAdmin:     true,
	},
	ViewAnalytics: {
		schema.RoleAdmin: true,
	},
}

// Authorize reports whether role may perform action. Unknown roles and
// unknown actions are always denied.
func Authorize(role schema.Role, action Action) bool {
	return table[action][role]
}

// Capabilities returns the actions role may perform, in table order.
func Capabilities(role schema.Role) []Action {
	var out []Action
	for _, a := range Actions {
		if Authorize(role, a) {
			out = append(out, a)
		}
	}
	return out
}
