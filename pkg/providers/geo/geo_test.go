package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-go-golems/wayfinder/pkg/inference/normalize"
	"github.com/go-go-golems/wayfinder/pkg/inference/retry"
	"github.com/go-go-golems/wayfinder/pkg/inference/tools"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNominatim(t *testing.T, status int, body string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.NotEmpty(t, r.URL.Query().Get("q"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestGeocoder(srv *httptest.Server) *Geocoder {
	return NewGeocoder(WithBaseURL(srv.URL), WithUserAgent("test-agent"))
}

func TestHaversine(t *testing.T) {
	require.Equal(t, 0.0, Haversine(Raleigh, Raleigh))

	// Raleigh to Tokyo is roughly 6,900 miles.
	d := Haversine(Raleigh, Point{Lat: 35.6762, Lon: 139.6503})
	require.InDelta(t, 6900, d, 150)

	// symmetric
	require.InDelta(t, d, Haversine(Point{Lat: 35.6762, Lon: 139.6503}, Raleigh), 1e-9)
}

func TestRound2(t *testing.T) {
	require.Equal(t, 12.35, Round2(12.3456))
	require.Equal(t, 12.0, Round2(12.001))
}

func TestGeocode(t *testing.T) {
	srv := newNominatim(t, http.StatusOK, `[{"lat":"35.6762","lon":"139.6503","display_name":"Tokyo, Japan"}]`)
	place, err := newTestGeocoder(srv).Geocode(context.Background(), "Tokyo")
	require.NoError(t, err)
	require.Equal(t, &Place{Name: "Tokyo", DisplayName: "Tokyo, Japan", Lat: 35.6762, Lon: 139.6503}, place)
}

func TestGeocode_NotFound(t *testing.T) {
	srv := newNominatim(t, http.StatusOK, `[]`)
	_, err := newTestGeocoder(srv).Geocode(context.Background(), "Atlantis")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGeocode_Errors(t *testing.T) {
	srv := newNominatim(t, http.StatusOK, `[{"lat":"north","lon":"1"}]`)
	_, err := newTestGeocoder(srv).Geocode(context.Background(), "Nowhere")
	var malformed *retry.MalformedResponseError
	require.True(t, errors.As(err, &malformed))

	srv = newNominatim(t, http.StatusServiceUnavailable, `busy`)
	_, err = newTestGeocoder(srv).Geocode(context.Background(), "Tokyo")
	require.Equal(t, retry.Transient, retry.DefaultClassifier(err))
}

func TestDistanceTool(t *testing.T) {
	srv := newNominatim(t, http.StatusOK, `[{"lat":"35.6762","lon":"139.6503"}]`)
	reg := tools.NewInMemoryRegistry()
	require.NoError(t, RegisterDistanceTool(reg, newTestGeocoder(srv), "Raleigh, NC", Raleigh))

	tool, err := reg.Lookup("calculate_distance_tool")
	require.NoError(t, err)
	require.True(t, tool.Spec.Network)

	out, err := tool.Impl(context.Background(), map[string]any{"destination_query": "Tokyo"})
	require.NoError(t, err)
	res, ok := out.(*DistanceResult)
	require.True(t, ok)
	require.Equal(t, "Tokyo", res.Destination)
	require.Equal(t, Round2(Haversine(Raleigh, Point{Lat: 35.6762, Lon: 139.6503})), res.DistanceMiles)
}

func TestDistanceTool_UnknownDestination(t *testing.T) {
	srv := newNominatim(t, http.StatusOK, `[]`)
	reg := tools.NewInMemoryRegistry()
	require.NoError(t, RegisterDistanceTool(reg, newTestGeocoder(srv), "Raleigh, NC", Raleigh))

	tool, err := reg.Lookup("calculate_distance_tool")
	require.NoError(t, err)
	out, err := tool.Impl(context.Background(), map[string]any{"destination_query": "Atlantis"})
	require.NoError(t, err)
	msg, ok := normalize.IsErrorMarker(out)
	require.True(t, ok)
	require.Equal(t, NotFoundMessage, msg)
}
