package main

import (
	"net/http"

	"golang.org/x/text/language"
)

// messages is one locale's user-facing text.
type messages struct {
	Lang string

	SettingsSaved       string
	PanelURLRequired    string
	APIKeyRequired      string
	SettingsUnavailable string
	LoadServersFailed   string
	NotConfigured       string
	ClientKeyRequired   string
	NoServers           string
	NoDescription       string
	CreateNeedsAppKey   string
	ServerCreated       string
	CreateFailed        string
	InvalidNumber       string
	InvalidForm         string
	MissingCredentials  string
	InvalidCredentials  string
	LoginFailed         string

	Manage       string
	Status       string
	Node         string
	Save         string
	Create       string
	Logout       string
	SignIn       string
	Username     string
	Password     string
	Settings     string
	Servers      string
	CreateServer string
}

var messagesEN = messages{
	Lang:                "en",
	SettingsSaved:       "Settings saved successfully!",
	PanelURLRequired:    "Panel URL is required.",
	APIKeyRequired:      "At least one API key is required.",
	SettingsUnavailable: "Stored settings could not be read.",
	LoadServersFailed:   "Failed to load servers. Check the API settings.",
	NotConfigured:       "Configure the panel URL and an API key to see your servers.",
	ClientKeyRequired:   "Listing servers needs a client API key.",
	NoServers:           "You don't have any servers yet.",
	NoDescription:       "No description",
	CreateNeedsAppKey:   "An application API key is required to create servers.",
	ServerCreated:       "Server created successfully!",
	CreateFailed:        "Failed to create the server. Check the settings and the submitted data.",
	InvalidNumber:       "%s must be a whole number.",
	InvalidForm:         "Invalid form submission.",
	MissingCredentials:  "Missing credentials.",
	InvalidCredentials:  "Invalid credentials.",
	LoginFailed:         "Login failed.",

	Manage:       "Manage",
	Status:       "Status",
	Node:         "Node",
	Save:         "Save settings",
	Create:       "Create server",
	Logout:       "Logout",
	SignIn:       "Continue",
	Username:     "Username",
	Password:     "Password",
	Settings:     "API settings",
	Servers:      "Your servers",
	CreateServer: "New server",
}

var messagesID = messages{
	Lang:                "id",
	SettingsSaved:       "Pengaturan berhasil disimpan!",
	PanelURLRequired:    "Panel URL harus diisi",
	APIKeyRequired:      "Minimal satu API key harus diisi",
	SettingsUnavailable: "Pengaturan yang tersimpan tidak dapat dibaca.",
	LoadServersFailed:   "Gagal memuat server. Periksa pengaturan API.",
	NotConfigured:       "Isi Panel URL dan API key untuk melihat server Anda.",
	ClientKeyRequired:   "Daftar server membutuhkan Client API Key.",
	NoServers:           "Anda belum memiliki server.",
	NoDescription:       "Tidak ada deskripsi",
	CreateNeedsAppKey:   "Membutuhkan Application API Key untuk membuat server",
	ServerCreated:       "Server berhasil dibuat!",
	CreateFailed:        "Gagal membuat server. Periksa pengaturan dan data yang dimasukkan.",
	InvalidNumber:       "%s harus berupa bilangan bulat.",
	InvalidForm:         "Formulir tidak valid.",
	MissingCredentials:  "Kredensial belum diisi.",
	InvalidCredentials:  "Kredensial tidak valid.",
	LoginFailed:         "Gagal masuk.",

	Manage:       "Kelola",
	Status:       "Status",
	Node:         "Node",
	Save:         "Simpan pengaturan",
	Create:       "Buat server",
	Logout:       "Keluar",
	SignIn:       "Lanjut",
	Username:     "Nama pengguna",
	Password:     "Kata sandi",
	Settings:     "Pengaturan API",
	Servers:      "Server Anda",
	CreateServer: "Server baru",
}

var (
	supportedLocales = []language.Tag{language.English, language.Indonesian}
	localeCatalogs   = []*messages{&messagesEN, &messagesID}
	localeMatcher    = language.NewMatcher(supportedLocales)
)

// messagesFor picks the configured locale, or negotiates one from the
// Accept-Language header. English is the fallback.
func messagesFor(forced string, r *http.Request) *messages {
	var tags []language.Tag
	if forced != "" {
		tag, err := language.Parse(forced)
		if err == nil {
			tags = []language.Tag{tag}
		}
	}
	if tags == nil && r != nil {
		parsed, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
		if err == nil {
			tags = parsed
		}
	}
	if len(tags) == 0 {
		return &messagesEN
	}
	_, idx, confidence := localeMatcher.Match(tags...)
	if confidence == language.No {
		return &messagesEN
	}
	return localeCatalogs[idx]
}

func (a *app) messages(r *http.Request) *messages {
	return messagesFor(a.cfg.UI.Locale, r)
}
