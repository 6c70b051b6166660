// Command routerd is the entry point for the network logistics router:
// a single operator-facing HTTP service replacing the teacher's
// constellation of gRPC microservices (solver-svc, validation-svc,
// history-svc, ...) with the one monolith spec.md describes.
//
// Startup order:
//  1. Load configuration (env vars prefixed LOGISTICS_, then config.yaml,
//     then defaults) via pkg/config.
//  2. Initialize structured logging via pkg/logger.
//  3. Open the Postgres pool and run goose migrations.
//  4. Wire internal/store's repositories over the pool, seeding the
//     carrier catalog and the twelve operator-adjustable config keys.
//  5. Construct the geocode/matrix provider cascades from
//     cfg.Providers, wrapping each in internal/store's Billing Trace
//     decorators.
//  6. Wire internal/pipeline and internal/routegen over the store and
//     providers.
//  7. Mount internal/httpapi onto a pkg/server.Server and run it,
//     blocking until SIGINT/SIGTERM.
package main

import (
	"context"
	"os"

	"github.com/google/uuid"

	"logistics/internal/carrier"
	"logistics/internal/geocode"
	"logistics/internal/httpapi"
	"logistics/internal/matrix"
	"logistics/internal/pipeline"
	"logistics/internal/routegen"
	"logistics/internal/store"
	"logistics/pkg/config"
	"logistics/pkg/database"
	"logistics/pkg/logger"
	"logistics/pkg/metrics"
	"logistics/pkg/passhash"
	"logistics/pkg/server"
)

func main() {
	cfg, err := config.LoadWithServiceDefaults("routerd", 8080)
	if err != nil {
		// Logger isn't initialized yet; this is the one place a bare
		// stderr write is correct.
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}

	ctx := context.Background()

	pgdb, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	defer pgdb.Close()

	if cfg.Database.AutoMigrate {
		if err := store.NewMigrator(pgdb).Up(ctx); err != nil {
			logger.Fatal("failed to run migrations", "error", err)
		}
	}

	st := store.New(pgdb)

	if err := st.Carriers.SeedIfEmpty(ctx); err != nil {
		logger.Fatal("failed to seed carrier catalog", "error", err)
	}
	if err := st.Config.SeedDefaults(ctx); err != nil {
		logger.Fatal("failed to seed route config defaults", "error", err)
	}

	metrics.InitMetrics(cfg.Metrics.Namespace, cfg.App.Name)

	// runID correlates every geocode/matrix call this process makes with
	// the Billing Trace rows they produce (spec.md §4.4/§4.5). One run ID
	// per process lifetime is enough: traces are already timestamped and
	// distinguishable by stage/service.
	runID := uuid.NewString()

	geocodeGateway, geocodeOrder := buildGeocodeGateway(st, cfg.Providers, runID)
	matrixProvider := buildMatrixProvider(st, cfg.Providers, runID)

	var aiClassifier carrier.AIClassifier
	if cfg.Providers.AIEnabled {
		aiClassifier = carrier.NewChatAIClassifier(
			"https://api.openai.com/v1/chat/completions",
			cfg.Providers.AIAPIKey,
			"gpt-4o-mini",
		)
	}

	carriers, err := st.Carriers.List(ctx)
	if err != nil {
		logger.Fatal("failed to load carrier catalog", "error", err)
	}

	pl := &pipeline.Pipeline{
		Carriers: carriers,
		AI:       aiClassifier,
		Lookup:   st.Carriers,
		Geocoder: geocodeGateway,
	}

	routeGenDeps := routegen.Deps{
		Store:          st,
		MatrixProvider: matrixProvider,
	}

	jwtManager := passhash.NewJWTManager(&passhash.JWTConfig{
		SecretKey:          cfg.Auth.JWTSecret,
		AccessTokenExpiry:  cfg.Auth.TokenTTL,
		RefreshTokenExpiry: 7 * cfg.Auth.TokenTTL,
		Issuer:             cfg.App.Name,
	})

	srv := server.New(cfg)
	httpapi.Register(srv.Router(), httpapi.Deps{
		Store:      st,
		Pipeline:   pl,
		RouteGen:   routeGenDeps,
		Auth:       cfg.Auth,
		JWTManager: jwtManager,
	})

	logger.Info("routerd starting",
		"environment", cfg.App.Environment,
		"version", cfg.App.Version,
		"geocode_providers", geocodeOrder,
		"matrix_provider", matrixProvider.Name(),
		"ai_classifier", aiClassifier != nil,
	)

	if err := srv.Run(); err != nil {
		logger.Fatal("server failed", "error", err)
	}
}

// buildGeocodeGateway constructs every enabled geocode provider named in
// cfg.Geocode, each wrapped so its calls land as Billing Traces, and
// returns the cascade gateway plus the provider name order it was given.
func buildGeocodeGateway(st *store.Store, cfg config.ProvidersConfig, runID string) (*geocode.Gateway, []string) {
	providers := make([]geocode.Provider, 0, len(cfg.Geocode))
	order := make([]string, 0, len(cfg.Geocode))

	for _, pc := range cfg.Geocode {
		if !pc.Enabled {
			continue
		}
		var p geocode.Provider
		switch pc.Name {
		case "ors":
			p = geocode.NewORSProvider(pc.APIKey)
		case "mapbox":
			p = geocode.NewMapboxProvider(pc.APIKey)
		case "google":
			p = geocode.NewGoogleProvider(pc.APIKey)
		default:
			logger.Warn("unknown geocode provider in config, skipping", "provider", pc.Name)
			continue
		}
		providers = append(providers, &store.BillingGeocodeProvider{Provider: p, Billing: st.Billing, RunID: runID})
		order = append(order, pc.Name)
	}

	return geocode.NewGateway(st.GeoCache, providers, order), order
}

// buildMatrixProvider constructs the single matrix provider selected by
// the `proveedor_matrix` operator config key, falling back to the first
// enabled provider in cfg.Matrix when the key names one that isn't
// configured.
func buildMatrixProvider(st *store.Store, cfg config.ProvidersConfig, runID string) matrix.Provider {
	selected, err := st.Config.Get(context.Background(), "proveedor_matrix")
	preferred := "ors"
	if err == nil {
		preferred = selected.String()
	}

	var chosen *config.ProviderConfig
	for i := range cfg.Matrix {
		pc := &cfg.Matrix[i]
		if !pc.Enabled {
			continue
		}
		if pc.Name == preferred {
			chosen = pc
			break
		}
		if chosen == nil {
			chosen = pc
		}
	}

	var p matrix.Provider
	switch {
	case chosen == nil:
		logger.Warn("no matrix provider configured, defaulting to ORS with empty credentials")
		p = matrix.NewORSProvider("")
	case chosen.Name == "mapbox":
		p = matrix.NewMapboxProvider(chosen.APIKey)
	case chosen.Name == "google":
		p = matrix.NewGoogleProvider(chosen.APIKey)
	default:
		p = matrix.NewORSProvider(chosen.APIKey)
	}

	return &store.BillingMatrixProvider{Provider: p, Billing: st.Billing, RunID: runID}
}
