package core

import "testing"

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{StatusFalsePositive, StatusFalsePositive},
		{StatusTruePositive, StatusTruePositive},
		{StatusUndetermined, StatusUndetermined},
		{"", StatusUndetermined},
		{"faux positif", StatusUndetermined}, // vocabulary is case-exact
		{"anything else", StatusUndetermined},
	}
	for _, tt := range tests {
		if got := NormalizeStatus(tt.in); got != tt.want {
			t.Errorf("NormalizeStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUserIsAdmin(t *testing.T) {
	if !(&User{Role: "admin"}).IsAdmin() {
		t.Error("admin role not recognized")
	}
	if (&User{Role: "user"}).IsAdmin() {
		t.Error("user role treated as admin")
	}
}
