package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"logistics/internal/geo"
	"logistics/pkg/apperror"
	"logistics/pkg/database"
	"logistics/pkg/telemetry"
)

// ConfigValue is one config_ruta row: a declared scalar type plus its raw
// text representation (spec.md §3's Config entity).
type ConfigValue struct {
	Key     string
	Type    string // int, float, bool, string
	Raw     string
	Version int64
}

func (v ConfigValue) Int() (int, error)         { return strconv.Atoi(v.Raw) }
func (v ConfigValue) Float() (float64, error)   { return strconv.ParseFloat(v.Raw, 64) }
func (v ConfigValue) Bool() (bool, error)       { return strconv.ParseBool(v.Raw) }
func (v ConfigValue) String() string            { return v.Raw }

// defaultConfig seeds the twelve operator-adjustable keys named in
// spec.md §6, with values matching the internal/geo package's fixed
// constants (so an un-migrated deployment behaves exactly like the
// hardcoded defaults it replaces).
var defaultConfig = []ConfigValue{
	{Key: "tiempo_espera_min", Type: "int", Raw: "10"},
	{Key: "deposito_lat", Type: "float", Raw: fmt.Sprintf("%v", geo.DepotLat)},
	{Key: "deposito_lng", Type: "float", Raw: fmt.Sprintf("%v", geo.DepotLng)},
	{Key: "hora_desde", Type: "string", Raw: "08:00"},
	{Key: "hora_hasta", Type: "string", Raw: "18:00"},
	{Key: "evitar_saltos_min", Type: "float", Raw: "25"},
	{Key: "vuelta_galpon_min", Type: "float", Raw: "45"},
	{Key: "proveedor_matrix", Type: "string", Raw: "ors"},
	{Key: "utilizar_ventana", Type: "bool", Raw: "true"},
	{Key: "distancia_max_km", Type: "float", Raw: fmt.Sprintf("%v", geo.MaxDepotDistKm)},
	{Key: "velocidad_urbana_kmh", Type: "float", Raw: fmt.Sprintf("%v", geo.UrbanSpeedKmh)},
	{Key: "dm_block_size", Type: "int", Raw: "10"},
	{Key: "geocode_cache_days", Type: "int", Raw: "30"},
	{Key: "max_remitos_ruta", Type: "int", Raw: "80"},
}

// ConfigRepo persists config_ruta, mirroring it into an in-process cache
// invalidated by a version counter bumped on every admin write — the same
// A4/A1 pattern CarriersRepo uses for the carrier catalog.
type ConfigRepo struct {
	db database.DB

	mu      sync.RWMutex
	cached  map[string]ConfigValue
	version int64
	loaded  atomic.Int64
}

func NewConfigRepo(db database.DB) *ConfigRepo {
	return &ConfigRepo{db: db}
}

// SeedDefaults inserts any of the twelve keys not already present.
func (r *ConfigRepo) SeedDefaults(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, "ConfigRepo.SeedDefaults")
	defer span.End()

	for _, v := range defaultConfig {
		_, err := r.db.Exec(ctx, `
			INSERT INTO config_ruta (clave, valor, tipo) VALUES ($1, $2, $3)
			ON CONFLICT (clave) DO NOTHING`, v.Key, v.Raw, v.Type)
		if err != nil {
			return fmt.Errorf("seed config key %s: %w", v.Key, err)
		}
	}
	return nil
}

// All loads every config key, served from cache unless an admin write has
// bumped the version since it was filled.
func (r *ConfigRepo) All(ctx context.Context) (map[string]ConfigValue, error) {
	ctx, span := telemetry.StartSpan(ctx, "ConfigRepo.All")
	defer span.End()

	current := atomic.LoadInt64(&r.version)
	r.mu.RLock()
	if r.loaded.Load() == current && r.cached != nil {
		out := make(map[string]ConfigValue, len(r.cached))
		for k, v := range r.cached {
			out[k] = v
		}
		r.mu.RUnlock()
		return out, nil
	}
	r.mu.RUnlock()

	rows, err := r.db.Query(ctx, `SELECT clave, valor, tipo, version FROM config_ruta`)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	defer rows.Close()

	out := make(map[string]ConfigValue)
	for rows.Next() {
		var v ConfigValue
		if err := rows.Scan(&v.Key, &v.Raw, &v.Type, &v.Version); err != nil {
			return nil, fmt.Errorf("scan config row: %w", err)
		}
		out[v.Key] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cached = out
	r.loaded.Store(current)
	r.mu.Unlock()

	clone := make(map[string]ConfigValue, len(out))
	for k, v := range out {
		clone[k] = v
	}
	return clone, nil
}

// Get loads a single key via All, so a single write invalidates every
// key's cached value together (cheap: the whole table is a handful of rows).
func (r *ConfigRepo) Get(ctx context.Context, key string) (ConfigValue, error) {
	all, err := r.All(ctx)
	if err != nil {
		return ConfigValue{}, err
	}
	v, ok := all[key]
	if !ok {
		return ConfigValue{}, apperror.New(apperror.CodeNotFound, "unknown config key").WithDetails("key", key)
	}
	return v, nil
}

// Set performs an admin write: validates the declared type parses, upserts
// the row, bumps its version, and invalidates the cache.
func (r *ConfigRepo) Set(ctx context.Context, key, typ, raw string) error {
	ctx, span := telemetry.StartSpan(ctx, "ConfigRepo.Set")
	defer span.End()

	if err := validateConfigType(typ, raw); err != nil {
		return err
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO config_ruta (clave, valor, tipo, version) VALUES ($1, $2, $3, 1)
		ON CONFLICT (clave) DO UPDATE SET valor = $2, tipo = $3, version = config_ruta.version + 1, updated_at = now()`,
		key, raw, typ)
	if err != nil {
		return fmt.Errorf("set config %s: %w", key, err)
	}

	atomic.AddInt64(&r.version, 1)
	return nil
}

func validateConfigType(typ, raw string) error {
	var err error
	switch typ {
	case "int":
		_, err = strconv.Atoi(raw)
	case "float":
		_, err = strconv.ParseFloat(raw, 64)
	case "bool":
		_, err = strconv.ParseBool(raw)
	case "string":
		// always valid
	default:
		return apperror.New(apperror.CodeValidation, "unknown config value type").WithField("type").WithDetails("type", typ)
	}
	if err != nil {
		return apperror.New(apperror.CodeValidation, "config value does not match declared type").
			WithField("valor").WithDetails("key_type", typ).WithDetails("value", raw)
	}
	return nil
}
