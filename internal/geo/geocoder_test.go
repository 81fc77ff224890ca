package geo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bdcsubs/internal/config"
	"bdcsubs/internal/infrastructure"
)

func newTestGeocoder(t *testing.T, handler http.HandlerFunc) (*GoogleGeocoder, *int32) {
	t.Helper()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	cfg := config.GeocodingConfig{APIKey: "AIza-test-key", RequestsPerSecond: 100, Timeout: 5 * time.Second}
	g, err := NewGoogleGeocoder(cfg, infrastructure.DiscardLogger(), WithBaseURL(server.URL))
	require.NoError(t, err)
	return g, &calls
}

func TestGoogleGeocoder_Geocode(t *testing.T) {
	g, calls := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/geocode/json", r.URL.Path)
		assert.Equal(t, "100 CONGRESS AVE,AUSTIN,TX 78701", r.URL.Query().Get("address"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"OK","results":[{"geometry":{"location":{"lat":30.2672,"lng":-97.7431}}}]}`)
	})

	p, err := g.Geocode(context.Background(), "100 CONGRESS AVE,AUSTIN,TX 78701")
	require.NoError(t, err)
	assert.InDelta(t, 30.2672, p.Lat, 1e-9)
	assert.InDelta(t, -97.7431, p.Lon, 1e-9)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestGoogleGeocoder_NoResults(t *testing.T) {
	g, _ := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ZERO_RESULTS","results":[]}`)
	})

	_, err := g.Geocode(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestGoogleGeocoder_FailureIsNotRetried(t *testing.T) {
	g, calls := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"REQUEST_DENIED","error_message":"bad key"}`)
	})

	_, err := g.Geocode(context.Background(), "1 MAIN ST,AUSTIN,TX 78701")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoResults)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestGoogleGeocoder_CancelledContext(t *testing.T) {
	g, calls := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Geocode(ctx, "1 MAIN ST")
	require.Error(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}
