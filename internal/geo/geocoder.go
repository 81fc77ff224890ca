// Package geo resolves street addresses to coordinates.
package geo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"
	"googlemaps.github.io/maps"

	"bdcsubs/internal/config"
	"bdcsubs/internal/infrastructure"
)

// ErrNoResults is returned when the geocoder found nothing for an address
var ErrNoResults = errors.New("no geocoding results")

// Point is a WGS84 coordinate pair
type Point struct {
	Lat float64
	Lon float64
}

// Geocoder turns a single-line address into a coordinate pair
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Point, error)
}

// GoogleGeocoder geocodes through the Google Maps Geocoding API. Each address
// is requested once; failures are returned to the caller without retrying.
type GoogleGeocoder struct {
	client  *maps.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option customizes a GoogleGeocoder
type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
}

// WithBaseURL points the client at another endpoint, such as a test server
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithHTTPClient replaces the HTTP client used for requests
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// NewGoogleGeocoder creates a geocoder from cfg
func NewGoogleGeocoder(cfg config.GeocodingConfig, logger *slog.Logger, opts ...Option) (*GoogleGeocoder, error) {
	o := options{httpClient: &http.Client{Timeout: cfg.Timeout}}
	for _, opt := range opts {
		opt(&o)
	}

	clientOpts := []maps.ClientOption{
		maps.WithAPIKey(cfg.APIKey),
		maps.WithHTTPClient(o.httpClient),
	}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, maps.WithBaseURL(o.baseURL))
	}

	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}

	return &GoogleGeocoder{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  infrastructure.WithComponent(logger, "geocoder"),
	}, nil
}

// Geocode returns the location of the first result for address
func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (Point, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return Point{}, err
	}

	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		g.logger.WarnContext(ctx, "geocoding request failed",
			slog.String("address", address),
			slog.String("error", err.Error()))
		return Point{}, fmt.Errorf("geocode %q: %w", address, err)
	}
	if len(results) == 0 {
		return Point{}, fmt.Errorf("geocode %q: %w", address, ErrNoResults)
	}

	loc := results[0].Geometry.Location
	g.logger.DebugContext(ctx, "address geocoded",
		slog.String("address", address),
		slog.Float64("lat", loc.Lat),
		slog.Float64("lon", loc.Lng))

	return Point{Lat: loc.Lat, Lon: loc.Lng}, nil
}
