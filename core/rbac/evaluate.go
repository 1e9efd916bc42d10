package rbac

// Subject is the read-only view of an authenticated user the evaluator
// works against: a single role, a single user type and the flattened
// permission list stamped into the access token at login.
type Subject struct {
	Role        string
	UserType    string
	TenantID    string
	Permissions []string
}

// Requirement is the declarative access rule attached to a route or
// menu node. Each dimension uses any-of semantics; an empty dimension
// is unrestricted. Overall access requires every non-empty dimension
// to be satisfied.
type Requirement struct {
	Permissions []string `json:"permissions,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	UserTypes   []string `json:"user_types,omitempty"`
}

func (r Requirement) Empty() bool {
	return len(r.Permissions) == 0 && len(r.Roles) == 0 && len(r.UserTypes) == 0
}

// HasPermission reports whether the subject holds the exact permission
// key or the wildcard.
func HasPermission(sub *Subject, key string) bool {
	if sub == nil {
		return false
	}
	for _, p := range sub.Permissions {
		if p == key || p == Wildcard {
			return true
		}
	}
	return false
}

// HasAnyPermission is vacuously true for an empty key list.
func HasAnyPermission(sub *Subject, keys []string) bool {
	if len(keys) == 0 {
		return true
	}
	for _, k := range keys {
		if HasPermission(sub, k) {
			return true
		}
	}
	return false
}

func HasRole(sub *Subject, name string) bool {
	return sub != nil && sub.Role == name
}

func HasUserType(sub *Subject, userType string) bool {
	return sub != nil && sub.UserType == userType
}

// CanAccess is the single canonical access check: any-of within each
// dimension, AND across dimensions, deny without a subject.
func CanAccess(sub *Subject, req Requirement) bool {
	if sub == nil {
		return false
	}
	if !HasAnyPermission(sub, req.Permissions) {
		return false
	}
	if len(req.Roles) > 0 && !containsString(req.Roles, sub.Role) {
		return false
	}
	if len(req.UserTypes) > 0 && !containsString(req.UserTypes, sub.UserType) {
		return false
	}
	return true
}

// MissingDimension names the first requirement dimension the subject
// fails, for denial messages. Empty when access is granted.
func MissingDimension(sub *Subject, req Requirement) string {
	switch {
	case sub == nil:
		return "auth"
	case !HasAnyPermission(sub, req.Permissions):
		return "permission"
	case len(req.Roles) > 0 && !containsString(req.Roles, sub.Role):
		return "role"
	case len(req.UserTypes) > 0 && !containsString(req.UserTypes, sub.UserType):
		return "userType"
	}
	return ""
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
