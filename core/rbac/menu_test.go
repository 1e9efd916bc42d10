package rbac

import (
	"reflect"
	"testing"
)

func TestFilterTreeDropsEmptyGroups(t *testing.T) {
	sub := &Subject{Role: "courier", UserType: UserTypeCourier, Permissions: []string{"parcels:read", "delivery-slips:read"}}
	got := FilterTree(sub, DefaultMenu())
	if len(got) != 1 {
		t.Fatalf("expected single operations group, got %d groups", len(got))
	}
	if got[0].Title != "operations" {
		t.Fatalf("group: %q", got[0].Title)
	}
	titles := menuTitles(got[0])
	want := []string{"parcels", "delivery-slips"}
	if !reflect.DeepEqual(titles, want) {
		t.Fatalf("menus: %v want %v", titles, want)
	}
}

func TestFilterTreeDropsMenuWhenAllSubmenusFiltered(t *testing.T) {
	// Subject passes the coverage menu requirement (zones:read) but no
	// submenu requirement once cities is also removed.
	tree := []Group{{Title: "configuration", Menus: []Menu{{
		Title:       "coverage",
		Path:        "/coverage",
		Requirement: Requirement{Permissions: []string{"zones:read"}},
		Submenus: []Submenu{
			{Title: "zones", Path: "/coverage/zones", Requirement: Requirement{Permissions: []string{"zones:update"}}},
			{Title: "cities", Path: "/coverage/cities", Requirement: Requirement{Permissions: []string{"cities:read"}}},
		},
	}}}}
	sub := &Subject{Role: "agent", Permissions: []string{"zones:read"}}
	if got := FilterTree(sub, tree); got != nil {
		t.Fatalf("menu with no visible submenus must be dropped, got %+v", got)
	}
}

func TestFilterTreeKeepsOnlyAccessibleSubmenus(t *testing.T) {
	sub := &Subject{Role: "agent", UserType: UserTypeStaff, Permissions: []string{"zones:read"}}
	got := FilterTree(sub, DefaultMenu())
	var coverage *Menu
	for _, g := range got {
		for i := range g.Menus {
			if g.Menus[i].Title == "coverage" {
				coverage = &g.Menus[i]
			}
		}
	}
	if coverage == nil {
		t.Fatalf("coverage menu missing: %+v", got)
	}
	if len(coverage.Submenus) != 1 || coverage.Submenus[0].Title != "zones" {
		t.Fatalf("submenus: %+v", coverage.Submenus)
	}
}

func TestFilterTreeIdempotent(t *testing.T) {
	sub := &Subject{Role: "manager", UserType: UserTypeStaff, Permissions: []string{
		"dashboard:read", "parcels:read", "zones:read", "stock:read", "bons:read",
	}}
	once := FilterTree(sub, DefaultMenu())
	twice := FilterTree(sub, once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("filter not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestFilterTreeDoesNotMutateInput(t *testing.T) {
	input := DefaultMenu()
	snapshot := DefaultMenu()
	_ = FilterTree(&Subject{Role: "courier", Permissions: []string{"parcels:read"}}, input)
	if !reflect.DeepEqual(input, snapshot) {
		t.Fatalf("input tree mutated")
	}
}

func TestFilterTreeWildcardSeesEverything(t *testing.T) {
	super := &Subject{Role: "superadmin", UserType: UserTypeAdmin, Permissions: []string{Wildcard}}
	got := FilterTree(super, DefaultMenu())
	if len(got) != len(DefaultMenu()) {
		t.Fatalf("superadmin lost groups: %d of %d", len(got), len(DefaultMenu()))
	}
	for _, g := range got {
		if len(g.Menus) == 0 {
			t.Fatalf("group %q has no menus", g.Title)
		}
	}
}

func menuTitles(g Group) []string {
	out := make([]string, 0, len(g.Menus))
	for _, m := range g.Menus {
		out = append(out, m.Title)
	}
	return out
}
