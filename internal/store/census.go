package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrNoGeometry is returned when a point falls in no state or tract polygon
var ErrNoGeometry = errors.New("point is outside every census polygon")

// virginIslandsFIPS is used without a lookup; the states layer does not
// cover the territory
const virginIslandsFIPS = "78"

func (s *Store) stateSQL() string {
	return fmt.Sprintf(`SELECT statefp10 FROM %s WHERE ST_Intersects(geom, ST_SetSRID(ST_MakePoint($1, $2), 4326)) LIMIT 1`,
		qualified(s.cfg.CensusSchema, "states"))
}

func (s *Store) tractSQL() string {
	return fmt.Sprintf(`SELECT geoid FROM %s WHERE statefp = $1 AND ST_Intersects(ST_SetSRID(ST_MakePoint($2, $3), 4326), geog) LIMIT 1`,
		qualified(s.cfg.CensusSchema, "tracts20"))
}

// StateFIPS returns the state FIPS code containing the point. state is the
// row's USPS code and short-circuits the lookup for the Virgin Islands.
func (s *Store) StateFIPS(ctx context.Context, state string, lat, lon float64) (string, error) {
	if state == "VI" {
		return virginIslandsFIPS, nil
	}
	var fips string
	if err := s.db.QueryRow(ctx, s.stateSQL(), lon, lat).Scan(&fips); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("state lookup %f,%f: %w", lat, lon, ErrNoGeometry)
		}
		return "", fmt.Errorf("state lookup %f,%f: %w", lat, lon, err)
	}
	return fips, nil
}

// Tract returns the 2020 census tract GEOID containing the point
func (s *Store) Tract(ctx context.Context, stateFIPS string, lat, lon float64) (string, error) {
	var geoid string
	if err := s.db.QueryRow(ctx, s.tractSQL(), stateFIPS, lon, lat).Scan(&geoid); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("tract lookup %f,%f: %w", lat, lon, ErrNoGeometry)
		}
		return "", fmt.Errorf("tract lookup %f,%f: %w", lat, lon, err)
	}
	return geoid, nil
}

// ResolveTract resolves the state and then the tract of a point
func (s *Store) ResolveTract(ctx context.Context, state string, lat, lon float64) (string, error) {
	fips, err := s.StateFIPS(ctx, state, lat, lon)
	if err != nil {
		return "", err
	}
	return s.Tract(ctx, fips, lat, lon)
}
