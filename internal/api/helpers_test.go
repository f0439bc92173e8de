package api

import "testing"

func TestSplitUserOrg(t *testing.T) {
	cases := []struct {
		in       string
		wantUser string
		wantOrg  string
		wantOK   bool
	}{
		{"alice@example.net", "alice", "example.net", true},
		{"alice", "", "", false},
		{"", "", "", false},
		{"@example.net", "", "", false},
		{"alice@", "", "", false},
		{"alice@example.net@extra", "", "", false},
	}

	for _, c := range cases {
		user, org, ok := splitUserOrg(c.in)
		if ok != c.wantOK {
			t.Errorf("splitUserOrg(%q) ok = %v, want %v", c.in, ok, c.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if user != c.wantUser || org != c.wantOrg {
			t.Errorf("splitUserOrg(%q) = (%q, %q), want (%q, %q)", c.in, user, org, c.wantUser, c.wantOrg)
		}
	}
}

func TestRegistrationOpen(t *testing.T) {
	cases := []struct {
		value    string
		hasValue bool
		want     bool
	}{
		{"", false, false},
		{"", true, false},
		{"0", true, false},
		{"1", true, true},
		{"true", true, true},
	}

	for _, c := range cases {
		got := registrationOpen(c.value, c.hasValue)
		if got != c.want {
			t.Errorf("registrationOpen(%q, %v) = %v, want %v", c.value, c.hasValue, got, c.want)
		}
	}
}

func TestSessionKeyFromHeaderOrQuery(t *testing.T) {
	if got := sessionKeyFromHeaderOrQuery("h", "q"); got != "h" {
		t.Errorf("header should win, got %q", got)
	}
	if got := sessionKeyFromHeaderOrQuery("", "q"); got != "q" {
		t.Errorf("expected fallback to query, got %q", got)
	}
	if got := sessionKeyFromHeaderOrQuery("", ""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}
