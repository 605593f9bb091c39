package main

import (
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/define42/pterodash/internal/config"
)

func TestGroupNameFromDN(t *testing.T) {
	tests := []struct {
		name string
		dn   string
		want string
	}{
		{name: "cn", dn: "cn=panel-admins,ou=groups,dc=example,dc=com", want: "panel-admins"},
		{name: "ou", dn: "OU=operators,dc=example,dc=com", want: "operators"},
		{name: "bare", dn: "panel-admins", want: "panel-admins"},
		{name: "uid", dn: "uid=bob,dc=example,dc=com", want: "uid=bob,dc=example,dc=com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := groupNameFromDN(tt.dn); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestInRequiredGroup(t *testing.T) {
	groups := []string{"players", "Panel-Admins"}
	tests := []struct {
		name     string
		required string
		want     bool
	}{
		{name: "none required", required: "", want: true},
		{name: "member", required: "panel-admins", want: true},
		{name: "not member", required: "billing", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inRequiredGroup(groups, tt.required); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestBindIdentity(t *testing.T) {
	tests := []struct {
		username string
		domain   string
		want     string
	}{
		{username: "alice", domain: "example.com", want: "alice@example.com"},
		{username: "alice", domain: "@example.com", want: "alice@example.com"},
		{username: "alice@corp.example", domain: "example.com", want: "alice@corp.example"},
		{username: "alice", domain: "", want: "alice"},
	}

	for _, tt := range tests {
		if got := bindIdentity(tt.username, tt.domain); got != tt.want {
			t.Fatalf("bindIdentity(%q, %q) = %q, want %q", tt.username, tt.domain, got, tt.want)
		}
	}
}

func TestGroupNames(t *testing.T) {
	got := groupNames([]string{"cn=a,dc=x", "cn=b,dc=x"})
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("unexpected groups: %#v", got)
	}
}

func TestLDAPAuthenticateDialFailure(t *testing.T) {
	auth := newLDAPAuthenticator(config.LDAPConfig{
		URL:        "ldap://127.0.0.1:1",
		UserFilter: "(mail=%s)",
	}, zap.NewNop())
	user, err := auth.Authenticate("alice", "secret")
	if err == nil {
		t.Fatalf("expected dial error")
	}
	if user != nil {
		t.Fatalf("expected no user, got %#v", user)
	}
	if errors.Is(err, errNotInRequiredGroup) {
		t.Fatalf("dial failure must not look like a group failure: %v", err)
	}
}
