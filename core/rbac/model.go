package rbac

import (
	"sort"
	"strings"
)

type Permission = string

// Wildcard grants every permission. Only the superadmin role carries it.
const Wildcard Permission = "*"

var permissions = []Permission{
	"dashboard:read",
	"parcels:read", "parcels:create", "parcels:update", "parcels:delete",
	"delivery-slips:read", "delivery-slips:create", "delivery-slips:update", "delivery-slips:delete",
	"shipping-slips:read", "shipping-slips:create", "shipping-slips:update", "shipping-slips:delete",
	"zones:read", "zones:create", "zones:update", "zones:delete",
	"cities:read", "cities:create", "cities:update", "cities:delete",
	"tariffs:read", "tariffs:create", "tariffs:update", "tariffs:delete",
	"users:read", "users:create", "users:update", "users:delete",
	"roles:read", "roles:create", "roles:update", "roles:delete",
	"warehouses:read", "warehouses:create", "warehouses:update", "warehouses:delete",
	"stock:read", "stock:update",
	"bons:read", "bons:create", "bons:update", "bons:delete",
	"factures:read", "factures:create", "factures:update", "factures:delete",
	"audit:read",
}

var knownPermissionSet = buildPermissionSet()

func buildPermissionSet() map[Permission]struct{} {
	out := make(map[Permission]struct{}, len(permissions))
	for _, p := range permissions {
		out[p] = struct{}{}
	}
	return out
}

func AllPermissions() []Permission {
	out := make([]Permission, len(permissions))
	copy(out, permissions)
	return out
}

func IsKnownPermission(p Permission) bool {
	if p == Wildcard {
		return true
	}
	_, ok := knownPermissionSet[p]
	return ok
}

func NormalizePermissionNames(in []string) (valid, invalid []string) {
	validSet := map[string]struct{}{}
	invalidSet := map[string]struct{}{}
	for _, raw := range in {
		p := strings.ToLower(strings.TrimSpace(raw))
		if p == "" {
			continue
		}
		if IsKnownPermission(p) {
			validSet[p] = struct{}{}
			continue
		}
		invalidSet[p] = struct{}{}
	}
	valid = make([]string, 0, len(validSet))
	for p := range validSet {
		valid = append(valid, p)
	}
	sort.Strings(valid)
	invalid = make([]string, 0, len(invalidSet))
	for p := range invalidSet {
		invalid = append(invalid, p)
	}
	sort.Strings(invalid)
	return valid, invalid
}

type Role struct {
	Name        string
	Permissions []Permission
}

// User types partition accounts across the back office: head-office
// admins, agency staff, couriers and merchant clients.
const (
	UserTypeAdmin    = "admin"
	UserTypeStaff    = "staff"
	UserTypeCourier  = "courier"
	UserTypeMerchant = "merchant"
)

var roles = []Role{
	{Name: "superadmin", Permissions: []Permission{Wildcard}},
	{Name: "admin", Permissions: permissions},
	{Name: "manager", Permissions: []Permission{
		"dashboard:read",
		"parcels:read", "parcels:create", "parcels:update",
		"delivery-slips:read", "delivery-slips:create", "delivery-slips:update",
		"shipping-slips:read", "shipping-slips:create", "shipping-slips:update",
		"zones:read", "cities:read", "tariffs:read",
		"warehouses:read", "stock:read", "stock:update",
		"bons:read", "factures:read",
	}},
	{Name: "agent", Permissions: []Permission{
		"dashboard:read",
		"parcels:read", "parcels:create", "parcels:update",
		"delivery-slips:read", "delivery-slips:create",
		"shipping-slips:read",
		"zones:read", "cities:read", "tariffs:read",
	}},
	{Name: "courier", Permissions: []Permission{
		"parcels:read",
		"delivery-slips:read", "delivery-slips:update",
	}},
	{Name: "accountant", Permissions: []Permission{
		"dashboard:read",
		"tariffs:read",
		"bons:read", "bons:create", "bons:update",
		"factures:read", "factures:create", "factures:update",
	}},
}

func DefaultRoles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}
