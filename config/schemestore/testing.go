package schemestore

import (
	"net/http/httptest"
	"testing"

	"github.com/kastheco/monothematic/palette"
)

// NewTestServer serves a MemoryStore holding the palette for seed over a
// local httptest.Server that is closed when the test ends. A zero seed leaves
// the store empty.
// This is exported so external packages can use it in their tests.
func NewTestServer(t testing.TB, seed palette.Color) (*MemoryStore, *httptest.Server) {
	t.Helper()
	store := NewMemoryStore()
	if seed != (palette.Color{}) {
		store.Publish(palette.Generate(seed))
	}
	srv := httptest.NewServer(NewHandler(store))
	t.Cleanup(srv.Close)
	return store, srv
}
