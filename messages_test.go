package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMessagesForNegotiatesLocale(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"", "en"},
		{"id", "id"},
		{"id-ID,id;q=0.9,en;q=0.5", "id"},
		{"fr-FR,en;q=0.8", "en"},
		{"de-DE", "en"},
		{"not a language", "en"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Accept-Language", tc.header)
		}
		if got := messagesFor("", req).Lang; got != tc.want {
			t.Fatalf("Accept-Language %q: expected %s, got %s", tc.header, tc.want, got)
		}
	}
}

func TestMessagesForPrefersConfiguredLocale(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "en-US")

	if got := messagesFor("id", req); got.NoServers != messagesID.NoServers {
		t.Fatalf("expected configured locale to win, got %s", got.Lang)
	}
	if got := messagesFor("", nil); got.Lang != "en" {
		t.Fatalf("expected english without a request, got %s", got.Lang)
	}
}

func TestMessageCatalogsAreComplete(t *testing.T) {
	for _, m := range localeCatalogs {
		if m.NoServers == "" || m.SettingsSaved == "" || m.InvalidNumber == "" || m.Manage == "" {
			t.Fatalf("catalog %s is missing entries: %#v", m.Lang, m)
		}
	}
}
