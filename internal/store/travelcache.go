package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"logistics/internal/matrix"
	"logistics/pkg/database"
	"logistics/pkg/telemetry"
)

// defaultTravelTTL is the distance_matrix_cache write TTL (spec.md §4.5's
// "default 6 h").
const defaultTravelTTL = 6 * time.Hour

// toleranceDeg is the (lat,lng) numeric-range window substituting for
// PostGIS's ST_DWithin, per SPEC_FULL.md §4.8: roughly 55 m on each axis
// at Mendoza's latitude.
const toleranceDeg = 0.0005

// TravelCacheRepo implements matrix.Cache over distance_matrix_cache,
// probing within toleranceDeg of the requested pair rather than requiring
// an exact float match — cache hits survive the sub-meter jitter produced
// by repeated geocoding of the same address.
type TravelCacheRepo struct {
	db  database.DB
	ttl time.Duration
}

func NewTravelCacheRepo(db database.DB) *TravelCacheRepo {
	return &TravelCacheRepo{db: db, ttl: defaultTravelTTL}
}

func (r *TravelCacheRepo) WithTTL(ttl time.Duration) *TravelCacheRepo {
	if ttl > 0 {
		r.ttl = ttl
	}
	return r
}

func (r *TravelCacheRepo) LookupPair(ctx context.Context, origin, dest matrix.Point) (float64, bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "TravelCacheRepo.LookupPair")
	defer span.End()

	var durationSec int
	err := r.db.QueryRow(ctx, `
		SELECT duration_sec FROM distance_matrix_cache
		WHERE origin_lat BETWEEN $1 AND $2 AND origin_lng BETWEEN $3 AND $4
		  AND dest_lat BETWEEN $5 AND $6 AND dest_lng BETWEEN $7 AND $8
		  AND expires_at > now()
		ORDER BY created_at DESC LIMIT 1`,
		origin.Lat-toleranceDeg, origin.Lat+toleranceDeg, origin.Lng-toleranceDeg, origin.Lng+toleranceDeg,
		dest.Lat-toleranceDeg, dest.Lat+toleranceDeg, dest.Lng-toleranceDeg, dest.Lng+toleranceDeg,
	).Scan(&durationSec)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("travel cache lookup: %w", err)
	}
	return float64(durationSec) / 60.0, true, nil
}

func (r *TravelCacheRepo) SavePair(ctx context.Context, origin, dest matrix.Point, durationSec int, provider string) error {
	ctx, span := telemetry.StartSpan(ctx, "TravelCacheRepo.SavePair")
	defer span.End()

	_, err := r.db.Exec(ctx, `
		INSERT INTO distance_matrix_cache (origin_lat, origin_lng, dest_lat, dest_lng, provider, duration_sec, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		origin.Lat, origin.Lng, dest.Lat, dest.Lng, provider, durationSec, time.Now().Add(r.ttl),
	)
	if err != nil {
		return fmt.Errorf("travel cache save: %w", err)
	}
	return nil
}
