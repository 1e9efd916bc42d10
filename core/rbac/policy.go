package rbac

import (
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

// Casbin model: one permission string per policy line, wildcard policy
// object matches everything.
const policyModel = `
[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && (r.obj == p.obj || p.obj == "*")
`

// Policy maps role names to permission sets on the server side. It is
// what stamps the permission claim at login and backs the API
// permission middleware.
type Policy struct {
	mu       sync.RWMutex
	enforcer *casbin.Enforcer
	names    []string
	wildcard map[string]struct{}
}

func NewPolicy(roles []Role) (*Policy, error) {
	p := &Policy{}
	if err := p.Replace(roles); err != nil {
		return nil, err
	}
	return p, nil
}

// MustNewPolicy is for wiring default roles, which are known valid.
func MustNewPolicy(roles []Role) *Policy {
	p, err := NewPolicy(roles)
	if err != nil {
		panic(err)
	}
	return p
}

// Replace swaps the whole role catalogue atomically.
func (p *Policy) Replace(roles []Role) error {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return fmt.Errorf("rbac model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return fmt.Errorf("rbac enforcer: %w", err)
	}
	names := make([]string, 0, len(roles))
	wildcard := map[string]struct{}{}
	for _, r := range roles {
		names = append(names, r.Name)
		for _, perm := range r.Permissions {
			if perm == Wildcard {
				wildcard[r.Name] = struct{}{}
			}
			if _, err := e.AddPolicy(r.Name, string(perm)); err != nil {
				return fmt.Errorf("rbac policy %s/%s: %w", r.Name, perm, err)
			}
		}
	}
	p.mu.Lock()
	p.enforcer = e
	p.names = names
	p.wildcard = wildcard
	p.mu.Unlock()
	return nil
}

func (p *Policy) Allowed(role string, perm Permission) bool {
	p.mu.RLock()
	e := p.enforcer
	p.mu.RUnlock()
	if e == nil {
		return false
	}
	ok, err := e.Enforce(role, string(perm))
	return err == nil && ok
}

func (p *Policy) HasRole(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, n := range p.names {
		if n == name {
			return true
		}
	}
	return false
}

func (p *Policy) Roles() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// PermissionsForRole flattens a role into the permission list stamped
// into token claims. Wildcard roles collapse to the single wildcard
// entry so client-side checks stay cheap.
func (p *Policy) PermissionsForRole(role string) []string {
	p.mu.RLock()
	_, isWildcard := p.wildcard[role]
	p.mu.RUnlock()
	if isWildcard {
		return []string{string(Wildcard)}
	}
	var out []string
	for _, perm := range AllPermissions() {
		if p.Allowed(role, perm) {
			out = append(out, string(perm))
		}
	}
	return out
}
