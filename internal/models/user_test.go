package models

import "testing"

func TestIsValidRole(t *testing.T) {
	valid := []Role{RoleAdmin, RoleManager, RoleOperator, RoleViewer}
	for _, role := range valid {
		if !IsValidRole(role) {
			t.Errorf("expected %s to be valid", role)
		}
	}
	if IsValidRole("superuser") {
		t.Error("expected superuser to be invalid")
	}
	if IsValidRole("") {
		t.Error("expected empty role to be invalid")
	}
}

func TestHasPermission_Admin(t *testing.T) {
	user := &User{Role: RoleAdmin}
	for _, action := range []string{"view_diesel", "manage_users", "delete_user", "resolve_flags"} {
		if !user.HasPermission(action) {
			t.Errorf("admin should have %s", action)
		}
	}
}

func TestHasPermission_Manager(t *testing.T) {
	user := &User{Role: RoleManager}
	for _, action := range []string{"view_diesel", "allocate_diesel", "manage_norms", "resolve_flags", "manage_assets"} {
		if !user.HasPermission(action) {
			t.Errorf("manager should have %s", action)
		}
	}
	if user.HasPermission("manage_users") || user.HasPermission("delete_user") {
		t.Error("manager should not manage users")
	}
}

func TestHasPermission_Operator(t *testing.T) {
	user := &User{Role: RoleOperator}
	for _, action := range []string{"view_diesel", "create_diesel", "allocate_diesel", "debrief_diesel", "verify_probe"} {
		if !user.HasPermission(action) {
			t.Errorf("operator should have %s", action)
		}
	}
	if user.HasPermission("manage_norms") || user.HasPermission("resolve_flags") {
		t.Error("operator should not manage norms or resolve flags")
	}
}

func TestHasPermission_Viewer(t *testing.T) {
	user := &User{Role: RoleViewer}
	for _, action := range []string{"view_diesel", "view_trips", "view_norms", "view_flags", "view_summary"} {
		if !user.HasPermission(action) {
			t.Errorf("viewer should have %s", action)
		}
	}
	if user.HasPermission("create_diesel") || user.HasPermission("allocate_diesel") {
		t.Error("viewer should not write")
	}
}
