// Package settings persists panel connection settings in a single namespaced
// key-value slot.
package settings

import (
	"errors"
	"strings"

	"github.com/define42/pterodash/internal/pterodactyl"
)

// DefaultKey is the slot the settings are stored under.
const DefaultKey = "pterodactylSettings"

var (
	ErrPanelURLRequired = errors.New("settings: panel url is required")
	ErrAPIKeyRequired   = errors.New("settings: at least one api key is required")
	ErrNotConfigured    = errors.New("settings: panel connection is not configured")
	ErrNoClientKey      = errors.New("settings: a client api key is required")
	ErrNoApplicationKey = errors.New("settings: an application api key is required")
)

// Settings is the persisted connection configuration. The JSON field names
// are the persisted format.
type Settings struct {
	PanelURL          string `json:"panelUrl"`
	ClientAPIKey      string `json:"clientApiKey"`
	ApplicationAPIKey string `json:"applicationApiKey"`
}

// Normalize trims surrounding whitespace from every field.
func (s Settings) Normalize() Settings {
	return Settings{
		PanelURL:          strings.TrimSpace(s.PanelURL),
		ClientAPIKey:      strings.TrimSpace(s.ClientAPIKey),
		ApplicationAPIKey: strings.TrimSpace(s.ApplicationAPIKey),
	}
}

// Validate reports the first violated invariant.
func (s Settings) Validate() error {
	if s.PanelURL == "" {
		return ErrPanelURLRequired
	}
	if s.ClientAPIKey == "" && s.ApplicationAPIKey == "" {
		return ErrAPIKeyRequired
	}
	return nil
}

// IsConfigured is true iff a panel URL and at least one key are present.
func (s Settings) IsConfigured() bool {
	return s.Validate() == nil
}

// PreferredMode returns the namespace used for browsing: the client API when
// a client key is present, the application API otherwise.
func (s Settings) PreferredMode() (pterodactyl.Mode, error) {
	if !s.IsConfigured() {
		return 0, ErrNotConfigured
	}
	if s.ClientAPIKey != "" {
		return pterodactyl.ModeClient, nil
	}
	return pterodactyl.ModeApplication, nil
}

// ClientSession builds a client API session from the stored client key.
func (s Settings) ClientSession(opts ...pterodactyl.Option) (*pterodactyl.ClientSession, error) {
	if !s.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if s.ClientAPIKey == "" {
		return nil, ErrNoClientKey
	}
	return pterodactyl.NewClientSession(s.PanelURL, s.ClientAPIKey, opts...)
}

// ApplicationSession builds an application API session from the stored
// application key.
func (s Settings) ApplicationSession(opts ...pterodactyl.Option) (*pterodactyl.ApplicationSession, error) {
	if !s.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if s.ApplicationAPIKey == "" {
		return nil, ErrNoApplicationKey
	}
	return pterodactyl.NewApplicationSession(s.PanelURL, s.ApplicationAPIKey, opts...)
}

// ServerURL is the panel's own management page for a server.
func (s Settings) ServerURL(identifier string) string {
	return strings.TrimRight(s.PanelURL, "/") + "/server/" + identifier
}

// Masked returns a copy safe to display: keys keep only their last four
// characters.
func (s Settings) Masked() Settings {
	return Settings{
		PanelURL:          s.PanelURL,
		ClientAPIKey:      MaskKey(s.ClientAPIKey),
		ApplicationAPIKey: MaskKey(s.ApplicationAPIKey),
	}
}

func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
