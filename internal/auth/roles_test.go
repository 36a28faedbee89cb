package auth

import "testing"

func TestRoleAtLeast(t *testing.T) {
	cases := []struct {
		role     Role
		required Role
		want     bool
	}{
		{RoleUser, RoleUser, true},
		{RoleUser, RoleEmployee, false},
		{RoleUser, RoleAdmin, false},
		{RoleEmployee, RoleUser, true},
		{RoleEmployee, RoleAdmin, false},
		{RoleAdmin, RoleUser, true},
		{RoleAdmin, RoleAdmin, true},
		{Role("guest"), RoleUser, false},
		{Role(""), Role(""), false},
	}
	for _, tc := range cases {
		if got := RoleAtLeast(tc.role, tc.required); got != tc.want {
			t.Fatalf("RoleAtLeast(%q, %q): got=%v want=%v", tc.role, tc.required, got, tc.want)
		}
	}
}

func TestNormalizeRole(t *testing.T) {
	if role, ok := NormalizeRole(" Admin "); !ok || role != RoleAdmin {
		t.Fatalf("expected admin, got %q ok=%v", role, ok)
	}
	if _, ok := NormalizeRole("root"); ok {
		t.Fatalf("expected unknown role to be rejected")
	}
}
