package rbac

// Navigation tree: Group > Menu > Submenu. Built once from static
// configuration and filtered per subject; filtering never mutates the
// input.

type Group struct {
	Title string `json:"title"`
	Menus []Menu `json:"menus"`
}

type Menu struct {
	Title       string      `json:"title"`
	Path        string      `json:"path"`
	Requirement Requirement `json:"requirement,omitempty"`
	Submenus    []Submenu   `json:"submenus,omitempty"`
}

type Submenu struct {
	Title       string      `json:"title"`
	Path        string      `json:"path"`
	Requirement Requirement `json:"requirement,omitempty"`
}

// FilterTree derives the navigation visible to a subject. A submenu
// survives when its own requirement passes. A menu survives when its
// requirement passes and, if it declared submenus, at least one
// submenu survived. A group survives only with at least one menu left.
func FilterTree(sub *Subject, groups []Group) []Group {
	var out []Group
	for _, g := range groups {
		var menus []Menu
		for _, m := range g.Menus {
			if !CanAccess(sub, m.Requirement) {
				continue
			}
			if len(m.Submenus) == 0 {
				menus = append(menus, m)
				continue
			}
			var subs []Submenu
			for _, sm := range m.Submenus {
				if CanAccess(sub, sm.Requirement) {
					subs = append(subs, sm)
				}
			}
			if len(subs) == 0 {
				continue
			}
			filtered := m
			filtered.Submenus = subs
			menus = append(menus, filtered)
		}
		if len(menus) == 0 {
			continue
		}
		out = append(out, Group{Title: g.Title, Menus: menus})
	}
	return out
}

// DefaultMenu is the back-office navigation descriptor.
func DefaultMenu() []Group {
	return []Group{
		{Title: "operations", Menus: []Menu{
			{Title: "dashboard", Path: "/dashboard", Requirement: Requirement{Permissions: []string{"dashboard:read"}}},
			{Title: "parcels", Path: "/parcels", Requirement: Requirement{Permissions: []string{"parcels:read"}}},
			{Title: "delivery-slips", Path: "/delivery-slips", Requirement: Requirement{Permissions: []string{"delivery-slips:read"}}},
			{Title: "shipping-slips", Path: "/shipping-slips", Requirement: Requirement{Permissions: []string{"shipping-slips:read"}}},
		}},
		{Title: "configuration", Menus: []Menu{
			{Title: "coverage", Path: "/coverage", Requirement: Requirement{Permissions: []string{"zones:read", "cities:read"}}, Submenus: []Submenu{
				{Title: "zones", Path: "/coverage/zones", Requirement: Requirement{Permissions: []string{"zones:read"}}},
				{Title: "cities", Path: "/coverage/cities", Requirement: Requirement{Permissions: []string{"cities:read"}}},
			}},
			{Title: "tariffs", Path: "/tariffs", Requirement: Requirement{Permissions: []string{"tariffs:read"}}},
		}},
		{Title: "warehouse", Menus: []Menu{
			{Title: "warehouses", Path: "/warehouses", Requirement: Requirement{Permissions: []string{"warehouses:read"}}},
			{Title: "stock", Path: "/stock", Requirement: Requirement{Permissions: []string{"stock:read"}}},
		}},
		{Title: "finance", Menus: []Menu{
			{Title: "bons", Path: "/bons", Requirement: Requirement{Permissions: []string{"bons:read"}}},
			{Title: "factures", Path: "/factures", Requirement: Requirement{Permissions: []string{"factures:read"}}},
		}},
		{Title: "administration", Menus: []Menu{
			{Title: "users", Path: "/users", Requirement: Requirement{Permissions: []string{"users:read"}, UserTypes: []string{UserTypeAdmin, UserTypeStaff}}},
			{Title: "roles", Path: "/roles", Requirement: Requirement{Permissions: []string{"roles:read"}, Roles: []string{"superadmin", "admin"}}},
			{Title: "audit", Path: "/audit", Requirement: Requirement{Permissions: []string{"audit:read"}}},
		}},
	}
}
