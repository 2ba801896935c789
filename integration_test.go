package langsys_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ZaguanLabs/langsys"
	"github.com/ZaguanLabs/langsys/api"
	"github.com/ZaguanLabs/langsys/cache"
	"github.com/ZaguanLabs/langsys/client"
	"github.com/ZaguanLabs/langsys/ledger"
	"github.com/ZaguanLabs/langsys/processor"
	"github.com/ZaguanLabs/langsys/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests wiring the real components against a fake translation
// service.

type fakeService struct {
	mu           sync.Mutex
	translations map[string]langsys.TranslationMap
	phrases      []string
	blocks       []string
	posts        int
	fetches      int
}

func newFakeService(t *testing.T) (*fakeService, *httptest.Server) {
	t.Helper()
	f := &fakeService{translations: map[string]langsys.TranslationMap{}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /authorize-project/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "p1", r.PathValue("id"))
		assert.Equal(t, "secret", r.Header.Get("X-Authorization"))
		writeData(w, map[string]any{"key_type": "write", "name": "Shop"})
	})
	mux.HandleFunc("GET /translations", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.fetches++
		m := f.translations[r.URL.Query().Get("locale")]
		if m == nil {
			m = langsys.TranslationMap{}
		}
		writeData(w, m)
	})
	mux.HandleFunc("POST /translatable-items", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.posts++

		var raw json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		if strings.HasPrefix(string(raw), "[") {
			var blocks []struct {
				CustomID string `json:"custom_id"`
			}
			require.NoError(t, json.Unmarshal(raw, &blocks))
			for _, b := range blocks {
				f.blocks = append(f.blocks, b.CustomID)
			}
		} else {
			var body struct {
				Phrases []struct {
					Phrase string `json:"phrase"`
				} `json:"phrases"`
			}
			require.NoError(t, json.Unmarshal(raw, &body))
			for _, p := range body.Phrases {
				f.phrases = append(f.phrases, p.Phrase)
			}
		}
		writeData(w, map[string]any{})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeService) set(locale string, m langsys.TranslationMap) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.translations[locale] = m
}

func (f *fakeService) snapshot() (phrases, blocks []string, posts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.phrases...), append([]string(nil), f.blocks...), f.posts
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

const storePage = `<html><head><title>Shop</title></head><body>
<nav data-langsys-category="nav"><ul><li>Home</li><li>About</li></ul></nav>
<p>Buy <b>now</b></p>
</body></html>`

func newIntegrationClient(t *testing.T, srv *httptest.Server) *client.Client {
	t.Helper()
	store, err := cache.NewFileCache(t.TempDir(), time.Hour)
	require.NoError(t, err)
	l, err := ledger.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	svc := api.New(api.Config{BaseURL: srv.URL, APIKey: "secret", ProjectID: "p1"})
	return client.NewWithService(svc, "p1", client.WithCache(store), client.WithLedger(l))
}

func TestIntegration_TranslateAndRegister(t *testing.T) {
	f, srv := newFakeService(t)
	f.set("es", langsys.TranslationMap{"nav": {"Home": langsys.PhraseEntry("Inicio")}})
	c := newIntegrationClient(t, srv)
	ctx := context.Background()

	out, err := c.TranslatePage(ctx, storePage, "es")
	require.NoError(t, err)
	assert.Contains(t, out, `<html lang="es">`)
	assert.Contains(t, out, "<li>Inicio</li>")
	assert.Contains(t, out, "<li>About</li>")

	phrases, blocks, posts := f.snapshot()
	assert.ElementsMatch(t, []string{"Shop", "About"}, phrases)
	require.Len(t, blocks, 1)
	assert.Equal(t, langsys.GenerateCustomID(langsys.UncategorizedCategory, []string{"Buy", "now"}), blocks[0])

	// Registered items are remembered by the ledger.
	_, err = c.TranslatePage(ctx, storePage, "es")
	require.NoError(t, err)
	_, _, again := f.snapshot()
	assert.Equal(t, posts, again)

	// Translators catch up; a dropped cache picks up their work.
	f.set("es", langsys.TranslationMap{
		"nav": {"Home": langsys.PhraseEntry("Inicio"), "About": langsys.PhraseEntry("Acerca de")},
		langsys.UncategorizedCategory: {
			"Shop": langsys.PhraseEntry("Tienda"),
			blocks[0]: langsys.BlockEntry(langsys.BlockTranslations{"Buy": "Compra", "now": "ahora"}),
		},
	})
	require.NoError(t, c.Invalidate(ctx, "es"))

	out, err = c.TranslatePage(ctx, storePage, "es")
	require.NoError(t, err)
	assert.Contains(t, out, "<title>Tienda</title>")
	assert.Contains(t, out, "<li>Acerca de</li>")
	assert.Contains(t, out, "<p>Compra <b>ahora</b></p>")
}

func TestIntegration_CacheTier(t *testing.T) {
	f, srv := newFakeService(t)
	f.set("fr", langsys.TranslationMap{"nav": {"Home": langsys.PhraseEntry("Accueil")}})
	c := newIntegrationClient(t, srv)
	ctx := context.Background()

	require.NoError(t, c.Prefetch(ctx, "fr", "de"))
	f.mu.Lock()
	fetches := f.fetches
	f.mu.Unlock()
	assert.Equal(t, 2, fetches)

	assert.Equal(t, "Accueil", c.Translate(ctx, "Home", "fr", "nav"))
	f.mu.Lock()
	assert.Equal(t, fetches, f.fetches)
	f.mu.Unlock()
}

func TestIntegration_DraftThenServeOffline(t *testing.T) {
	page := `<h1>Hello</h1><p>World</p><p translate="no">Brand</p>`
	pages := processor.NewPageTranslator(&client.StaticSource{}, nil, nil)

	items, err := pages.Inspect(page, "", nil)
	require.NoError(t, err)
	require.Len(t, items.Items(), 2)

	drafted, err := provider.NewDrafter(provider.NewMockProvider()).
		Draft(context.Background(), items.Items(), nil, "es")
	require.NoError(t, err)

	offline := processor.NewPageTranslator(&client.StaticSource{Fallback: drafted}, nil, nil)
	out, err := offline.Translate(context.Background(), page, "es", "", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Hola</h1>")
	assert.Contains(t, out, "<p>Mundo</p>")
	assert.Contains(t, out, "Brand")
}

func TestIntegration_EmptyContent(t *testing.T) {
	pages := processor.NewPageTranslator(&client.StaticSource{}, nil, nil)
	for _, markup := range []string{"", "   ", "\n\t"} {
		out, err := pages.Translate(context.Background(), markup, "es", "", nil)
		require.NoError(t, err)
		assert.Equal(t, markup, out)
	}
}

func TestIntegration_WhitespacePreserved(t *testing.T) {
	src := &client.StaticSource{Fallback: langsys.TranslationMap{
		langsys.UncategorizedCategory: {"Hello": langsys.PhraseEntry("Hola")},
	}}
	pages := processor.NewPageTranslator(src, nil, nil)

	out, err := pages.Translate(context.Background(), "<p>  Hello  </p>", "es", "", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "<p>  Hola  </p>")
}
