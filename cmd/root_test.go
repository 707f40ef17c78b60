package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/appmeta/internal/lookup"
)

func fakeSearchAPI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("exactTerms")
		if id == "com.example.missing" {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		if id == "com.example.down" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"items":[{"pagemap":{"metatags":[{` +
			`"appstore:store_id":"` + id + `",` +
			`"og:title":"Google Maps - Apps on Google Play",` +
			`"og:image":"https://img.example/maps",` +
			`"og:url":"https://play.google.com/store/apps/details?id=` + id + `",` +
			`"twitter:description":"Navigate"}]}}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setTestEnv(t *testing.T, endpoint string) {
	t.Helper()
	t.Setenv("SEARCH_API_KEY", "test-key")
	t.Setenv("SEARCH_ENGINE_ID", "test-cx")
	t.Setenv("REDIS_URL", "")
	t.Setenv("APPMETA_CACHE_DRIVER", "memory")
	t.Setenv("APPMETA_SEARCH_ENDPOINT", endpoint)
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLookupCommand_StreamsJSONArray(t *testing.T) {
	setTestEnv(t, fakeSearchAPI(t).URL)

	out, err := runCLI(t, "lookup", "com.google.android.apps.maps", "com.example.missing")
	require.NoError(t, err)

	var got []lookup.Metatags
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	require.Equal(t, "com.google.android.apps.maps", got[0].ID)
	require.Equal(t, "Google Maps", got[0].Name)
}

func TestLookupCommand_Pretty(t *testing.T) {
	setTestEnv(t, fakeSearchAPI(t).URL)

	out, err := runCLI(t, "lookup", "--pretty", "com.google.android.apps.maps")
	require.NoError(t, err)
	require.Contains(t, out, "\n  {")

	var got []lookup.Metatags
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
}

func TestLookupCommand_Errors(t *testing.T) {
	setTestEnv(t, fakeSearchAPI(t).URL)

	_, err := runCLI(t, "lookup", "com.example.down")
	require.ErrorContains(t, err, "lookup failed (502)")

	_, err = runCLI(t, "lookup", "a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k")
	require.ErrorContains(t, err, "lookup failed (400)")

	_, err = runCLI(t, "lookup")
	require.Error(t, err)
}

func TestRootCommand_ConfigErrorsFailFast(t *testing.T) {
	t.Setenv("SEARCH_API_KEY", "")
	t.Setenv("APPMETA_SEARCH_API_KEY", "")
	t.Setenv("APPMETA_CACHE_DRIVER", "memory")

	_, err := runCLI(t, "lookup", "com.example")
	require.ErrorContains(t, err, "search.api_key")
}

func TestResolveApp_Missing(t *testing.T) {
	_, err := resolveApp(context.Background())
	require.Error(t, err)
}
