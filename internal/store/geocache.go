package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"logistics/internal/geocode"
	"logistics/pkg/database"
	"logistics/pkg/telemetry"
)

// defaultGeocodeTTL backs the `geocode_cache_days` config key's default
// (spec.md §6, "Configuration keys").
const defaultGeocodeTTL = 30 * 24 * time.Hour

// GeoCacheRepo implements geocode.Cache over the geo_cache table.
// Invariant 5: every lookup honors expires_at; expired rows are absent.
type GeoCacheRepo struct {
	db  database.DB
	ttl time.Duration
}

func NewGeoCacheRepo(db database.DB) *GeoCacheRepo {
	return &GeoCacheRepo{db: db, ttl: defaultGeocodeTTL}
}

// WithTTL overrides the write TTL (wired from config_ruta's
// geocode_cache_days at startup).
func (r *GeoCacheRepo) WithTTL(ttl time.Duration) *GeoCacheRepo {
	if ttl > 0 {
		r.ttl = ttl
	}
	return r
}

func (r *GeoCacheRepo) Lookup(ctx context.Context, cacheKey string) (*geocode.Result, bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "GeoCacheRepo.Lookup")
	defer span.End()

	var res geocode.Result
	err := r.db.QueryRow(ctx, `
		SELECT lat, lng, formatted_address, has_street_number, provider, confidence
		FROM geo_cache WHERE cache_key = $1 AND expires_at > now()`, cacheKey,
	).Scan(&res.Lat, &res.Lng, &res.FormattedAddress, &res.HasStreetNumber, &res.Provider, &res.Confidence)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("geocode cache lookup: %w", err)
	}
	res.Source = "cache"
	return &res, true, nil
}

func (r *GeoCacheRepo) Save(ctx context.Context, cacheKey, original string, result *geocode.Result) error {
	ctx, span := telemetry.StartSpan(ctx, "GeoCacheRepo.Save")
	defer span.End()

	_, err := r.db.Exec(ctx, `
		INSERT INTO geo_cache (cache_key, original_address, lat, lng, formatted_address, has_street_number, provider, confidence, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (cache_key) DO UPDATE SET
			lat = EXCLUDED.lat, lng = EXCLUDED.lng, formatted_address = EXCLUDED.formatted_address,
			has_street_number = EXCLUDED.has_street_number, provider = EXCLUDED.provider,
			confidence = EXCLUDED.confidence, expires_at = EXCLUDED.expires_at`,
		cacheKey, original, result.Lat, result.Lng, result.FormattedAddress, result.HasStreetNumber,
		result.Provider, result.Confidence, time.Now().Add(r.ttl),
	)
	if err != nil {
		return fmt.Errorf("geocode cache save: %w", err)
	}
	return nil
}
