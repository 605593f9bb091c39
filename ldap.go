package main

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"go.uber.org/zap"

	"github.com/define42/pterodash/internal/config"
)

var errNotInRequiredGroup = errors.New("user is not in the required group")

// User is an operator signed in through LDAP.
type User struct {
	Name   string
	Groups []string
}

type authenticator interface {
	Authenticate(username, password string) (*User, error)
}

type ldapAuthenticator struct {
	cfg config.LDAPConfig
	log *zap.Logger
}

func newLDAPAuthenticator(cfg config.LDAPConfig, log *zap.Logger) *ldapAuthenticator {
	return &ldapAuthenticator{cfg: cfg, log: log}
}

func (a *ldapAuthenticator) Authenticate(username, password string) (*User, error) {
	conn, err := dialLDAP(a.cfg)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	mail := bindIdentity(username, a.cfg.UserMailDomain)

	// Bind as the user using only the mail/UPN form.
	if err := conn.Bind(mail, password); err != nil {
		return nil, fmt.Errorf("ldap bind failed: %w", err)
	}

	filter := fmt.Sprintf(a.cfg.UserFilter, ldap.EscapeFilter(mail))
	a.log.Debug("ldap search", zap.String("filter", filter))
	searchReq := ldap.NewSearchRequest(
		a.cfg.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases, 1, 0, false,
		filter,
		[]string{a.cfg.GroupAttribute},
		nil,
	)

	sr, err := conn.Search(searchReq)
	if err != nil {
		return nil, fmt.Errorf("ldap search: %w", err)
	}
	if len(sr.Entries) == 0 {
		return nil, fmt.Errorf("user %s not found", mail)
	}

	groups := groupNames(sr.Entries[0].GetAttributeValues(a.cfg.GroupAttribute))
	a.log.Debug("ldap groups", zap.String("user", username), zap.Strings("groups", groups))
	if !inRequiredGroup(groups, a.cfg.RequiredGroup) {
		return nil, fmt.Errorf("%s: %w", username, errNotInRequiredGroup)
	}

	return &User{Name: username, Groups: groups}, nil
}

func bindIdentity(username, domain string) string {
	if strings.Contains(username, "@") || domain == "" {
		return username
	}
	if !strings.HasPrefix(domain, "@") {
		domain = "@" + domain
	}
	return username + domain
}

func dialLDAP(cfg config.LDAPConfig) (*ldap.Conn, error) {
	// #nosec G402 -- skip TLS verification if configured
	conn, err := ldap.DialURL(cfg.URL, ldap.DialWithTLSConfig(&tls.Config{InsecureSkipVerify: cfg.SkipTLSVerify}))
	if err != nil {
		return nil, err
	}

	if cfg.StartTLS && strings.HasPrefix(cfg.URL, "ldap://") {
		// #nosec G402 -- skip TLS verification if configured
		if err := conn.StartTLS(&tls.Config{InsecureSkipVerify: cfg.SkipTLSVerify}); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	return conn, nil
}

func groupNames(dns []string) []string {
	names := make([]string, 0, len(dns))
	for _, dn := range dns {
		names = append(names, groupNameFromDN(dn))
	}
	return names
}

// inRequiredGroup is true when no group is required.
func inRequiredGroup(groups []string, required string) bool {
	if required == "" {
		return true
	}
	for _, g := range groups {
		if strings.EqualFold(g, required) {
			return true
		}
	}
	return false
}

func groupNameFromDN(dn string) string {
	parts := strings.SplitN(dn, ",", 2)
	if len(parts) == 0 {
		return dn
	}

	first := strings.TrimSpace(parts[0])
	firstLower := strings.ToLower(first)

	switch {
	case strings.HasPrefix(firstLower, "cn="):
		return first[3:]
	case strings.HasPrefix(firstLower, "ou="):
		return first[3:]
	default:
		return dn
	}
}
