package settings

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/define42/pterodash/internal/pterodactyl"
)

func TestIsConfiguredTruthTable(t *testing.T) {
	for _, url := range []string{"", "https://panel.example"} {
		for _, client := range []string{"", "ptlc_abc"} {
			for _, app := range []string{"", "ptla_abc"} {
				s := Settings{PanelURL: url, ClientAPIKey: client, ApplicationAPIKey: app}
				want := url != "" && (client != "" || app != "")
				assert.Equal(t, want, s.IsConfigured(), "settings %+v", s)
			}
		}
	}
}

func TestValidateOrder(t *testing.T) {
	assert.ErrorIs(t, Settings{}.Validate(), ErrPanelURLRequired)
	assert.ErrorIs(t, Settings{ClientAPIKey: "k"}.Validate(), ErrPanelURLRequired)
	assert.ErrorIs(t, Settings{PanelURL: "https://p"}.Validate(), ErrAPIKeyRequired)
	assert.NoError(t, Settings{PanelURL: "https://p", ApplicationAPIKey: "k"}.Validate())
}

func TestNormalizeTrims(t *testing.T) {
	s := Settings{PanelURL: "  https://p \n", ClientAPIKey: "\tk ", ApplicationAPIKey: "   "}.Normalize()
	assert.Equal(t, Settings{PanelURL: "https://p", ClientAPIKey: "k"}, s)
	assert.False(t, Settings{PanelURL: "https://p", ClientAPIKey: "  "}.Normalize().IsConfigured())
}

func TestPreferredModeAndSessions(t *testing.T) {
	_, err := Settings{}.PreferredMode()
	assert.ErrorIs(t, err, ErrNotConfigured)

	both := Settings{PanelURL: "https://p", ClientAPIKey: "c", ApplicationAPIKey: "a"}
	mode, err := both.PreferredMode()
	require.NoError(t, err)
	assert.Equal(t, pterodactyl.ModeClient, mode)

	appOnly := Settings{PanelURL: "https://p", ApplicationAPIKey: "a"}
	mode, err = appOnly.PreferredMode()
	require.NoError(t, err)
	assert.Equal(t, pterodactyl.ModeApplication, mode)

	_, err = appOnly.ClientSession()
	assert.ErrorIs(t, err, ErrNoClientKey)
	app, err := appOnly.ApplicationSession()
	require.NoError(t, err)
	assert.Equal(t, pterodactyl.ModeApplication, app.Client().Mode())

	clientOnly := Settings{PanelURL: "https://p", ClientAPIKey: "c"}
	_, err = clientOnly.ApplicationSession()
	assert.ErrorIs(t, err, ErrNoApplicationKey)
	cs, err := clientOnly.ClientSession()
	require.NoError(t, err)
	assert.Equal(t, "https://p/api/client/servers/x/resources", cs.Client().URL("/servers/x/resources"))

	_, err = Settings{}.ClientSession()
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestServerURLAndMask(t *testing.T) {
	s := Settings{PanelURL: "https://panel.example/", ClientAPIKey: "ptlc_1234567890", ApplicationAPIKey: "abc"}
	assert.Equal(t, "https://panel.example/server/1a2b3c4d", s.ServerURL("1a2b3c4d"))

	m := s.Masked()
	assert.Equal(t, "**********7890", m.ClientAPIKey)
	assert.Equal(t, "***", m.ApplicationAPIKey)
	assert.Equal(t, s.PanelURL, m.PanelURL)
	assert.Empty(t, MaskKey(""))
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "settings.db"), 100*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"sqlite": sqlite,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := Settings{PanelURL: "https://panel.example", ClientAPIKey: "ptlc_abc", ApplicationAPIKey: "ptla_def"}

			writer := NewStore(backend, "")
			require.NoError(t, writer.Save(ctx, want))
			assert.Equal(t, want, writer.Settings())
			assert.NotEmpty(t, writer.Revision())

			reader := NewStore(backend, DefaultKey)
			require.NoError(t, reader.Load(ctx))
			assert.Equal(t, want, reader.Settings())
			assert.Equal(t, writer.Revision(), reader.Revision())
			assert.True(t, reader.IsConfigured())
		})
	}
}

func TestStoreLoadAbsentKeepsDefaults(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := NewStore(backend, "missing")
			require.NoError(t, store.Load(context.Background()))
			assert.Equal(t, Settings{}, store.Settings())
			assert.False(t, store.IsConfigured())
			assert.Empty(t, store.Revision())
		})
	}
}

func TestStoreLoadMalformedJSON(t *testing.T) {
	backend := NewMemoryBackend()
	ctx := context.Background()
	require.NoError(t, backend.Set(ctx, DefaultKey, []byte(`{"panelUrl":`)))

	store := NewStore(backend, DefaultKey)
	err := store.Load(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
	assert.Equal(t, Settings{}, store.Settings())
}

func TestStoreSaveRejectsInvalid(t *testing.T) {
	backend := NewMemoryBackend()
	ctx := context.Background()
	store := NewStore(backend, DefaultKey)

	err := store.Save(ctx, Settings{PanelURL: "https://p"})
	assert.ErrorIs(t, err, ErrAPIKeyRequired)

	_, ok, err := backend.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Settings{}, store.Settings())
}

func TestStoreSaveOverwritesWholesale(t *testing.T) {
	store := NewStore(NewMemoryBackend(), DefaultKey)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, Settings{PanelURL: "https://a", ClientAPIKey: "c", ApplicationAPIKey: "a"}))
	require.NoError(t, store.Save(ctx, Settings{PanelURL: " https://b ", ApplicationAPIKey: "a2"}))
	assert.Equal(t, Settings{PanelURL: "https://b", ApplicationAPIKey: "a2"}, store.Settings())
}

func TestStoresAreIsolatedByKey(t *testing.T) {
	backend := NewMemoryBackend()
	ctx := context.Background()
	alice := NewStore(backend, DefaultKey+":alice")
	bob := NewStore(backend, DefaultKey+":bob")

	require.NoError(t, alice.Save(ctx, Settings{PanelURL: "https://a", ClientAPIKey: "c"}))
	require.NoError(t, bob.Load(ctx))
	assert.False(t, bob.IsConfigured())
}

func TestWatchSeesExternalWrites(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			observer := NewStore(backend, DefaultKey)
			changes, err := observer.Watch(ctx)
			require.NoError(t, err)

			other := NewStore(backend, DefaultKey)
			want := Settings{PanelURL: "https://panel.example", ClientAPIKey: "k"}
			require.NoError(t, other.Save(ctx, want))

			select {
			case <-changes:
			case <-time.After(3 * time.Second):
				t.Fatal("expected change notification")
			}
			require.NoError(t, observer.Load(ctx))
			assert.Equal(t, want, observer.Settings())

			cancel()
			for range changes {
			}
		})
	}
}
