// Package directory resolves an already-authenticated actor email to an
// Identity. It performs no credential checks.
package directory

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/celerix-dev/celerix-bugs/pkg/schema"
)

// DemoUsers are the accounts available when no users file is configured.
var DemoUsers = []schema.Identity{
	{ID: "1", Name: "Admin User", Email: "admin@company.com", Role: schema.RoleAdmin},
	{ID: "2", Name: "John Developer", Email: "dev@company.com", Role: schema.RoleDeveloper},
	{ID: "3", Name: "Jane Tester", Email: "tester@company.com", Role: schema.RoleTester},
}

// Directory is an email-keyed identity lookup.
type Directory struct {
	mu    sync.RWMutex
	users map[string]schema.Identity
}

// New builds a directory from users. Emails are matched case-insensitively
// and must be unique; every role must be known.
func New(users []schema.Identity) (*Directory, error) {
	d := &Directory{users: make(map[string]schema.Identity, len(users))}
	for i, u := range users {
		key := normalize(u.Email)
		if key == "" {
			return nil, fmt.Errorf("user %d: email is required", i)
		}
		role, err := schema.ParseRole(string(u.Role))
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", u.Email, err)
		}
		if _, dup := d.users[key]; dup {
			return nil, fmt.Errorf("user %s: duplicate email", u.Email)
		}
		u.Role = role
		if u.ID == "" {
			u.ID = key
		}
		d.users[key] = u
	}
	return d, nil
}

// Demo returns a directory holding DemoUsers.
func Demo() *Directory {
	d, err := New(DemoUsers)
	if err != nil {
		panic(err)
	}
	return d
}

type usersFile struct {
	Users []schema.Identity `yaml:"users"`
}

// Load reads a YAML users file:
//
//	users:
//	  - {id: "1", name: Admin User, email: admin@company.com, role: admin}
//
// An empty path yields the demo directory.
func Load(path string) (*Directory, error) {
	if path == "" {
		return Demo(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	var f usersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse users file %s: %w", path, err)
	}
	if len(f.Users) == 0 {
		return nil, fmt.Errorf("users file %s defines no users", path)
	}
	return New(f.Users)
}

// Lookup returns the identity registered under email.
func (d *Directory) Lookup(email string) (schema.Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[normalize(email)]
	if !ok {
		return schema.Identity{}, fmt.Errorf("%w: %q", schema.ErrUnknownActor, email)
	}
	return u, nil
}

// List returns every identity sorted by email.
func (d *Directory) List() []schema.Identity {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]schema.Identity, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
