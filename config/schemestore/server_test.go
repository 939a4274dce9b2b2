package schemestore_test

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/kastheco/monothematic/config/schemestore"
	"github.com/kastheco/monothematic/palette"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSeed = palette.New(0.55, 0.18, 210)

func TestServer_Ping(t *testing.T) {
	_, srv := schemestore.NewTestServer(t, palette.Color{})

	resp, err := http.Get(srv.URL + "/v1/ping")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_NoSchemeIs503(t *testing.T) {
	_, srv := schemestore.NewTestServer(t, palette.Color{})

	for _, path := range []string{"/v1/scheme", "/v1/scheme/base-50"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)
	}

	resp, err := http.Post(srv.URL+"/v1/recolor", "text/plain", strings.NewReader("#fff"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_SchemeMatchesFileEncoding(t *testing.T) {
	_, srv := schemestore.NewTestServer(t, testSeed)

	resp, err := http.Get(srv.URL + "/v1/scheme")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	want, err := palette.Generate(testSeed).EncodeScheme()
	require.NoError(t, err)
	assert.Equal(t, string(want), string(body))
}

func TestServer_SingleColor(t *testing.T) {
	_, srv := schemestore.NewTestServer(t, testSeed)
	want, ok := palette.Generate(testSeed).Lookup("warning-30")
	require.True(t, ok)

	resp, err := http.Get(srv.URL + "/v1/scheme/warning-30")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, map[string]string{"name": "warning-30", "oklch": want.CSS, "hex": want.Hex}, got)

	resp, err = http.Get(srv.URL + "/v1/scheme/base-99")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Recolor(t *testing.T) {
	store, srv := schemestore.NewTestServer(t, palette.Color{})
	p := palette.Generate(testSeed)
	store.Publish(p)

	resp, err := http.Post(srv.URL+"/v1/recolor", "text/plain", strings.NewReader("bg: #ffffff;"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	top, _ := p.Lookup("base-98")
	assert.Equal(t, "bg: "+top.Hex+";", string(body))
}

func TestServer_Metrics(t *testing.T) {
	_, srv := schemestore.NewTestServer(t, palette.Color{})

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
