// Package schema defines the data structures shared by the tracker core, its
// transports and the SDK.
package schema

import (
	"fmt"
	"strings"
)

// Role is the capability class of an authenticated actor.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDeveloper Role = "developer"
	RoleTester    Role = "tester"
)

// Roles lists every known role.
var Roles = []Role{RoleAdmin, RoleDeveloper, RoleTester}

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Identity is an already-authenticated actor. Email is the actor key stamped
// into reportedBy and assignedTo.
type Identity struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
	Role  Role   `json:"role" yaml:"role"`
}

func (i Identity) String() string {
	return fmt.Sprintf("%s <%s> (%s)", i.Name, i.Email, i.Role)
}
