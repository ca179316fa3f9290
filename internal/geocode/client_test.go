package geocode

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roofix-au/siteserver/internal/config"
)

func TestSuggest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "12 High St", r.URL.Query().Get("q"))
		require.Equal(t, "au", r.URL.Query().Get("country"))
		require.Equal(t, "Bearer geo-key", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"suggestions": []map[string]any{
				{"label": "12 High St, Sydney NSW", "place_id": "p1", "lat": -33.87, "lng": 151.21},
			},
		})
	}))
	defer srv.Close()

	c := New(&config.GeocodeCfg{
		Endpoint:    srv.URL,
		APIKey:      "geo-key",
		CountryBias: "au",
		Timeout:     config.Duration(2 * time.Second),
	})

	got, err := c.Suggest(t.Context(), "12 High St")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "12 High St, Sydney NSW", got[0].Label)
	require.Equal(t, "p1", got[0].PlaceID)
}

func TestSuggestErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(&config.GeocodeCfg{Endpoint: srv.URL, Timeout: config.Duration(time.Second)})
	_, err := c.Suggest(t.Context(), "12 High St")
	require.Error(t, err)
}
