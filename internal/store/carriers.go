package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"logistics/internal/carrier"
	"logistics/pkg/apperror"
	"logistics/pkg/database"
	"logistics/pkg/telemetry"
)

// CarriersRepo persists the Carrier catalog and mirrors it into an
// in-process cache invalidated by a version counter bumped on every admin
// write (A4, spec.md §5/§9 "Global state"). It satisfies
// pipeline.CarrierLookup.
type CarriersRepo struct {
	db database.DB

	mu      sync.RWMutex
	cached  []carrier.Carrier
	version int64
	loaded  atomic.Int64 // version the cache was last populated at; meaningful only when cached is non-nil
}

func NewCarriersRepo(db database.DB) *CarriersRepo {
	return &CarriersRepo{db: db}
}

// SeedIfEmpty inserts carrier.SeedCarriers when the table is empty — run
// once at startup, after migrations, so the seed stays a single Go-level
// source of truth instead of being duplicated into SQL.
func (r *CarriersRepo) SeedIfEmpty(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, "CarriersRepo.SeedIfEmpty")
	defer span.End()

	var count int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM carriers`).Scan(&count); err != nil {
		return fmt.Errorf("count carriers: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, c := range carrier.SeedCarriers {
		_, err := r.db.Exec(ctx, `
			INSERT INTO carriers (nombre_canonico, aliases, regex_pattern, es_externo, es_pickup, activo, prioridad_regex)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (nombre_canonico) DO NOTHING`,
			c.NombreCanonico, c.Aliases, c.RegexPattern, c.EsExterno, c.EsPickup, c.Activo, c.PrioridadRegex,
		)
		if err != nil {
			return fmt.Errorf("seed carrier %s: %w", c.NombreCanonico, err)
		}
	}
	r.bumpVersion()
	return nil
}

// List returns the active carrier catalog, ordered by priority, serving it
// from the in-process cache unless a write has bumped the version since
// the cache was filled.
func (r *CarriersRepo) List(ctx context.Context) ([]carrier.Carrier, error) {
	ctx, span := telemetry.StartSpan(ctx, "CarriersRepo.List")
	defer span.End()

	current := atomic.LoadInt64(&r.version)
	r.mu.RLock()
	if r.loaded.Load() == current && r.cached != nil {
		out := append([]carrier.Carrier(nil), r.cached...)
		r.mu.RUnlock()
		return out, nil
	}
	r.mu.RUnlock()

	rows, err := r.db.Query(ctx, `
		SELECT id, nombre_canonico, aliases, regex_pattern, es_externo, es_pickup, activo, prioridad_regex
		FROM carriers WHERE activo = true ORDER BY prioridad_regex, nombre_canonico`)
	if err != nil {
		return nil, fmt.Errorf("list carriers: %w", err)
	}
	defer rows.Close()

	var out []carrier.Carrier
	for rows.Next() {
		var c carrier.Carrier
		var aliases pgtype.Array[string]
		if err := rows.Scan(&c.ID, &c.NombreCanonico, &aliases, &c.RegexPattern, &c.EsExterno, &c.EsPickup, &c.Activo, &c.PrioridadRegex); err != nil {
			return nil, fmt.Errorf("scan carrier: %w", err)
		}
		c.Aliases = aliases.Elements
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cached = append([]carrier.Carrier(nil), out...)
	r.loaded.Store(current)
	r.mu.Unlock()

	return out, nil
}

// FindByName implements pipeline.CarrierLookup: resolve a carrier's ID by
// its canonical name.
func (r *CarriersRepo) FindByName(ctx context.Context, nombreCanonico string) (int64, bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "CarriersRepo.FindByName")
	defer span.End()

	var id int64
	err := r.db.QueryRow(ctx, `SELECT id FROM carriers WHERE nombre_canonico = $1`, nombreCanonico).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("find carrier by name: %w", err)
	}
	return id, true, nil
}

// Create adds a new carrier and bumps the cache version.
func (r *CarriersRepo) Create(ctx context.Context, c carrier.Carrier) (carrier.Carrier, error) {
	ctx, span := telemetry.StartSpan(ctx, "CarriersRepo.Create")
	defer span.End()

	err := r.db.QueryRow(ctx, `
		INSERT INTO carriers (nombre_canonico, aliases, regex_pattern, es_externo, es_pickup, activo, prioridad_regex)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		c.NombreCanonico, c.Aliases, c.RegexPattern, c.EsExterno, c.EsPickup, c.Activo, c.PrioridadRegex,
	).Scan(&c.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return carrier.Carrier{}, apperror.ErrDuplicateCarrier.WithDetails("nombre_canonico", c.NombreCanonico)
		}
		return carrier.Carrier{}, fmt.Errorf("create carrier: %w", err)
	}
	r.bumpVersion()
	return c, nil
}

func (r *CarriersRepo) bumpVersion() {
	atomic.AddInt64(&r.version, 1)
}
