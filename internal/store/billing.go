package store

import (
	"context"
	"fmt"
	"time"

	"logistics/internal/geocode"
	"logistics/internal/matrix"
	"logistics/pkg/database"
	"logistics/pkg/logger"
	"logistics/pkg/telemetry"
)

// BillingTrace is an append-only record of one chargeable external call
// (spec.md §3's Billing Trace entity).
type BillingTrace struct {
	ID            int64
	RunID         string
	Stage         string // "geocode", "matrix", "ai"
	Service       string // provider name: "ors", "mapbox", "google"
	SKU           string
	Units         float64
	Latency       time.Duration
	EstimatedCost float64
	Success       bool
	CreatedAt     time.Time
}

// BillingRepo persists Billing Traces. Writes are always best-effort and
// never block the business transaction they were observed from (spec.md
// §5, "independent, best-effort commit").
type BillingRepo struct {
	db database.DB
}

func NewBillingRepo(db database.DB) *BillingRepo {
	return &BillingRepo{db: db}
}

// Append records one trace synchronously. Callers on a request path should
// prefer RecordAsync; Append exists for callers (e.g. the detached
// goroutine itself, or batch backfills) that already hold their own
// context.
func (r *BillingRepo) Append(ctx context.Context, t BillingTrace) error {
	ctx, span := telemetry.StartSpan(ctx, "BillingRepo.Append")
	defer span.End()

	_, err := r.db.Exec(ctx, `
		INSERT INTO billing_traces (run_id, stage, service, sku, units, latency_ms, estimated_cost, success)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.RunID, t.Stage, t.Service, t.SKU, t.Units, t.Latency.Milliseconds(), t.EstimatedCost, t.Success,
	)
	if err != nil {
		return fmt.Errorf("append billing trace: %w", err)
	}
	return nil
}

// RecordAsync fires Append on a detached goroutine with its own
// short-lived context, swallowing and logging any failure — the caller's
// request never waits on, or fails because of, a billing-trace write
// (spec.md §5).
func (r *BillingRepo) RecordAsync(t BillingTrace) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.Append(ctx, t); err != nil {
			logger.Warn("billing trace write failed", "stage", t.Stage, "service", t.Service, "error", err)
		}
	}()
}

// ForMonth lists every trace in [year-month-01, next month), for a
// monthly billing report.
func (r *BillingRepo) ForMonth(ctx context.Context, year int, month time.Month) ([]BillingTrace, error) {
	ctx, span := telemetry.StartSpan(ctx, "BillingRepo.ForMonth")
	defer span.End()

	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	rows, err := r.db.Query(ctx, `
		SELECT id, run_id, stage, service, sku, units, latency_ms, estimated_cost, success, created_at
		FROM billing_traces WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at`, start, end)
	if err != nil {
		return nil, fmt.Errorf("list billing traces: %w", err)
	}
	defer rows.Close()

	var out []BillingTrace
	for rows.Next() {
		var t BillingTrace
		var latencyMs int64
		if err := rows.Scan(&t.ID, &t.RunID, &t.Stage, &t.Service, &t.SKU, &t.Units, &latencyMs, &t.EstimatedCost, &t.Success, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan billing trace: %w", err)
		}
		t.Latency = time.Duration(latencyMs) * time.Millisecond
		out = append(out, t)
	}
	return out, rows.Err()
}

// BillingGeocodeProvider decorates a geocode.Provider so every call — hit
// or miss, success or failure — is recorded as a Billing Trace (spec.md
// §4.4, "every call recorded as a Billing Trace").
type BillingGeocodeProvider struct {
	geocode.Provider
	Billing *BillingRepo
	RunID   string
}

func (p *BillingGeocodeProvider) Geocode(ctx context.Context, address string) (*geocode.Result, error) {
	start := time.Now()
	result, err := p.Provider.Geocode(ctx, address)
	p.Billing.RecordAsync(BillingTrace{
		RunID:   p.RunID,
		Stage:   "geocode",
		Service: p.Provider.Name(),
		SKU:     "geocode.lookup",
		Units:   1,
		Latency: time.Since(start),
		Success: err == nil && result != nil,
	})
	return result, err
}

// BillingMatrixProvider decorates a matrix.Provider the same way, one
// trace per block call (spec.md §4.5).
type BillingMatrixProvider struct {
	matrix.Provider
	Billing *BillingRepo
	RunID   string
}

func (p *BillingMatrixProvider) Call(ctx context.Context, origins, dests []matrix.Point) ([][]*int, error) {
	start := time.Now()
	result, err := p.Provider.Call(ctx, origins, dests)
	p.Billing.RecordAsync(BillingTrace{
		RunID:   p.RunID,
		Stage:   "matrix",
		Service: p.Provider.Name(),
		SKU:     "matrix.block",
		Units:   float64(len(origins) * len(dests)),
		Latency: time.Since(start),
		Success: err == nil,
	})
	return result, err
}
