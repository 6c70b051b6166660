// Package store is the C8 State Store: pgx/pgxpool-backed persistence for
// every entity in the data model (Order, Carrier, Route/Stop/Exclusion,
// GeoCache, TravelCache, Billing Trace, Config), built on top of
// pkg/database's pooled connection and generic transaction helpers.
package store

import (
	"embed"

	"logistics/pkg/database"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const migrationsDir = "migrations"

// NewMigrator builds the goose-backed migrator for the store's schema,
// wired to pkg/database.Migrator the same way every other migration
// consumer in this codebase is.
func NewMigrator(pool *database.PostgresDB) *database.Migrator {
	return database.NewMigrator(pool.Pool(), migrationFS, migrationsDir)
}

// Store bundles every repository over a single database.DB handle.
type Store struct {
	Orders      *OrdersRepo
	Carriers    *CarriersRepo
	Routes      *RoutesRepo
	GeoCache    *GeoCacheRepo
	TravelCache *TravelCacheRepo
	Billing     *BillingRepo
	Config      *ConfigRepo
	Archive     *ArchiveRepo
}

// New wires every repository over db.
func New(db database.DB) *Store {
	return &Store{
		Orders:      NewOrdersRepo(db),
		Carriers:    NewCarriersRepo(db),
		Routes:      NewRoutesRepo(db),
		GeoCache:    NewGeoCacheRepo(db),
		TravelCache: NewTravelCacheRepo(db),
		Billing:     NewBillingRepo(db),
		Config:      NewConfigRepo(db),
		Archive:     NewArchiveRepo(db),
	}
}
