package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"logistics/internal/pipeline"
	"logistics/internal/window"
	"logistics/pkg/apperror"
	"logistics/pkg/database"
	"logistics/pkg/telemetry"
)

// OrderRecord is the persisted row backing a pipeline.Order: the mutable
// classification state plus the fields C8 owns — identity, lifecycle,
// ingest provenance, and the five lifecycle timestamps.
type OrderRecord struct {
	ID        int64
	Order     pipeline.Order
	Cliente   string
	Telefono  string
	Urgente   bool
	Prioridad bool
	Lifecycle Lifecycle
	SourceTag string

	CreatedAt    time.Time
	IngestedAt   time.Time
	ArmedAt      *time.Time
	DispatchedAt *time.Time
	DeliveredAt  *time.Time
	ArchivedAt   *time.Time
}

// OrdersRepo persists Orders, enforcing invariants 1 (unique order number)
// and 2 (monotonic lifecycle).
type OrdersRepo struct {
	db database.DB
}

func NewOrdersRepo(db database.DB) *OrdersRepo {
	return &OrdersRepo{db: db}
}

const orderColumns = `
	id, numero, cliente, telefono, domicilio_raw, domicilio_normalizado,
	observaciones_pl, transporte_raw, provincia, localidad,
	carrier_id, carrier_nombre, clasificacion, lifecycle, motivo, source_tag,
	urgente, prioridad, geocoded, lat, lng, geocode_formatted,
	geocode_has_street_num, geocode_source, geocode_confidence,
	ventana_tipo, ventana_desde, ventana_hasta, ventana_raw, llamar_antes,
	created_at, updated_at, ingested_at, armed_at, dispatched_at, delivered_at, archived_at
`

// Create inserts a freshly ingested order at Lifecycle=ingested,
// Classification=pending. Numero is stored upper-cased per spec.md's
// "case-insensitive, stored normalized" identity rule.
func (r *OrdersRepo) Create(ctx context.Context, numero, sourceTag string) (*OrderRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrdersRepo.Create")
	defer span.End()

	numero = normalizeNumero(numero)
	query := `
		INSERT INTO remitos (numero, source_tag, clasificacion, lifecycle)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + orderColumns

	row := r.db.QueryRow(ctx, query, numero, sourceTag, string(pipeline.ClassPendiente), string(LifecycleIngested))
	rec, err := scanOrder(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperror.ErrDuplicateOrder.WithDetails("numero", numero)
		}
		return nil, fmt.Errorf("create order: %w", err)
	}
	return rec, nil
}

// GetByNumber loads a single order by its (case-insensitive) number.
func (r *OrdersRepo) GetByNumber(ctx context.Context, numero string) (*OrderRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrdersRepo.GetByNumber")
	defer span.End()

	query := `SELECT ` + orderColumns + ` FROM remitos WHERE numero = $1`
	rec, err := scanOrder(r.db.QueryRow(ctx, query, normalizeNumero(numero)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrOrderNotFound.WithDetails("numero", numero)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return rec, nil
}

// ListArmedSendable returns the Route Builder's candidate set: classification
// = send AND lifecycle = armed AND coordinates not null (spec.md §4.7).
func (r *OrdersRepo) ListArmedSendable(ctx context.Context) ([]*OrderRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrdersRepo.ListArmedSendable")
	defer span.End()

	query := `SELECT ` + orderColumns + ` FROM remitos
		WHERE clasificacion = $1 AND lifecycle = $2 AND lat IS NOT NULL AND lng IS NOT NULL
		ORDER BY id`
	rows, err := r.db.Query(ctx, query, string(pipeline.ClassEnviar), string(LifecycleArmed))
	if err != nil {
		return nil, fmt.Errorf("list armed orders: %w", err)
	}
	defer rows.Close()

	var out []*OrderRecord
	for rows.Next() {
		rec, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan armed order: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListPendingReprocess returns every order still short of a terminal,
// routable classification — pending, needing correction, or not found —
// the candidate set for a bulk "reprocess-pending" operator sweep.
func (r *OrdersRepo) ListPendingReprocess(ctx context.Context) ([]*OrderRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrdersRepo.ListPendingReprocess")
	defer span.End()

	query := `SELECT ` + orderColumns + ` FROM remitos
		WHERE clasificacion IN ($1, $2, $3) ORDER BY id`
	rows, err := r.db.Query(ctx, query,
		string(pipeline.ClassPendiente), string(pipeline.ClassCorregir), string(pipeline.ClassNoEncontrado))
	if err != nil {
		return nil, fmt.Errorf("list pending orders: %w", err)
	}
	defer rows.Close()

	var out []*OrderRecord
	for rows.Next() {
		rec, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending order: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RunPipeline loads the order, locks its row for the duration of the
// transaction (serializing concurrent reprocess calls on the same order
// per spec.md §5/§4.6), applies fn to the in-memory pipeline.Order, and
// persists the result. fn never touches Lifecycle — the pipeline is
// documented to never advance it.
func (r *OrdersRepo) RunPipeline(ctx context.Context, numero string, fn func(ctx context.Context, o *pipeline.Order) error) (*OrderRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrdersRepo.RunPipeline")
	defer span.End()

	numero = normalizeNumero(numero)
	return database.WithTransactionResult(ctx, r.db, func(tx pgx.Tx) (*OrderRecord, error) {
		row := tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM remitos WHERE numero = $1 FOR UPDATE`, numero)
		rec, err := scanOrder(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperror.ErrOrderNotFound.WithDetails("numero", numero)
			}
			return nil, fmt.Errorf("lock order: %w", err)
		}

		if err := fn(ctx, &rec.Order); err != nil {
			return nil, err
		}

		if err := updateOrderTx(ctx, tx, rec); err != nil {
			return nil, fmt.Errorf("persist pipeline result: %w", err)
		}
		return rec, nil
	})
}

// CorrectAddress resets coordinates/provider/score/formatted and rolls
// classification back to pending (spec.md §4.6, "Address correction").
func (r *OrdersRepo) CorrectAddress(ctx context.Context, numero, newAddress string) (*OrderRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrdersRepo.CorrectAddress")
	defer span.End()

	return r.RunPipeline(ctx, numero, func(_ context.Context, o *pipeline.Order) error {
		o.DomicilioRaw = newAddress
		o.DomicilioNormalizado = ""
		o.Geocoded = false
		o.Lat, o.Lng = 0, 0
		o.GeocodeFormatted = ""
		o.GeocodeHasStreetNum = false
		o.GeocodeSource = ""
		o.GeocodeConfidence = 0
		o.Clasificacion = pipeline.ClassPendiente
		o.Motivo = ""
		return nil
	})
}

// OverrideClassification lets an operator force a terminal classification,
// e.g. to recover from a misclassified carrier.
func (r *OrdersRepo) OverrideClassification(ctx context.Context, numero string, class pipeline.Classification, reason string) (*OrderRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrdersRepo.OverrideClassification")
	defer span.End()

	return r.RunPipeline(ctx, numero, func(_ context.Context, o *pipeline.Order) error {
		o.Clasificacion = class
		o.Motivo = reason
		return nil
	})
}

// AdvanceToArmed moves an order from ingested to armed. Idempotent: an
// already-armed (or later) order returns success without regressing
// (spec.md Invariant 2 and scenario F).
func (r *OrdersRepo) AdvanceToArmed(ctx context.Context, numero string) (*OrderRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrdersRepo.AdvanceToArmed")
	defer span.End()

	numero = normalizeNumero(numero)
	return database.WithTransactionResult(ctx, r.db, func(tx pgx.Tx) (*OrderRecord, error) {
		rec, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM remitos WHERE numero = $1 FOR UPDATE`, numero))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperror.ErrOrderNotFound.WithDetails("numero", numero)
			}
			return nil, fmt.Errorf("lock order: %w", err)
		}

		if lifecycleOrder[rec.Lifecycle] >= lifecycleOrder[LifecycleArmed] {
			return rec, nil // idempotent re-scan, scenario F
		}

		now := time.Now()
		_, err = tx.Exec(ctx, `UPDATE remitos SET lifecycle = $1, armed_at = $2, updated_at = now() WHERE id = $3`,
			string(LifecycleArmed), now, rec.ID)
		if err != nil {
			return nil, fmt.Errorf("advance to armed: %w", err)
		}
		rec.Lifecycle = LifecycleArmed
		rec.ArmedAt = &now
		return rec, nil
	})
}

// advanceLifecycle is the shared implementation behind the
// dispatch/deliver transitions the Route execution surface drives.
func (r *OrdersRepo) advanceLifecycle(ctx context.Context, numero string, to Lifecycle, stampCol string) (*OrderRecord, error) {
	numero = normalizeNumero(numero)
	return database.WithTransactionResult(ctx, r.db, func(tx pgx.Tx) (*OrderRecord, error) {
		rec, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM remitos WHERE numero = $1 FOR UPDATE`, numero))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperror.ErrOrderNotFound.WithDetails("numero", numero)
			}
			return nil, fmt.Errorf("lock order: %w", err)
		}

		if err := validateTransition(rec.Lifecycle, to); err != nil {
			return nil, err
		}
		if rec.Lifecycle == to {
			return rec, nil
		}

		now := time.Now()
		_, err = tx.Exec(ctx, fmt.Sprintf(`UPDATE remitos SET lifecycle = $1, %s = $2, updated_at = now() WHERE id = $3`, stampCol),
			string(to), now, rec.ID)
		if err != nil {
			return nil, fmt.Errorf("advance lifecycle: %w", err)
		}
		rec.Lifecycle = to
		return rec, nil
	})
}

func (r *OrdersRepo) MarkDispatched(ctx context.Context, numero string) (*OrderRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrdersRepo.MarkDispatched")
	defer span.End()
	return r.advanceLifecycle(ctx, numero, LifecycleDispatched, "dispatched_at")
}

func (r *OrdersRepo) MarkDelivered(ctx context.Context, numero string) (*OrderRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrdersRepo.MarkDelivered")
	defer span.End()
	return r.advanceLifecycle(ctx, numero, LifecycleDelivered, "delivered_at")
}

func (r *OrdersRepo) MarkArchived(ctx context.Context, numero string) (*OrderRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrdersRepo.MarkArchived")
	defer span.End()
	return r.advanceLifecycle(ctx, numero, LifecycleArchived, "archived_at")
}

// updateOrderTx writes every pipeline-owned column back, inside tx.
func updateOrderTx(ctx context.Context, tx pgx.Tx, rec *OrderRecord) error {
	o := &rec.Order
	_, err := tx.Exec(ctx, `
		UPDATE remitos SET
			domicilio_raw = $1, domicilio_normalizado = $2, observaciones_pl = $3,
			transporte_raw = $4, provincia = $5, localidad = $6,
			carrier_id = $7, carrier_nombre = $8, clasificacion = $9, motivo = $10,
			geocoded = $11, lat = $12, lng = $13, geocode_formatted = $14,
			geocode_has_street_num = $15, geocode_source = $16, geocode_confidence = $17,
			ventana_tipo = $18, ventana_desde = $19, ventana_hasta = $20,
			ventana_raw = $21, llamar_antes = $22, updated_at = now()
		WHERE id = $23`,
		o.DomicilioRaw, o.DomicilioNormalizado, o.ObservacionesPL,
		o.TransporteRaw, o.Provincia, o.Localidad,
		nullableInt64(o.CarrierID), o.CarrierNombre, string(o.Clasificacion), o.Motivo,
		o.Geocoded, nullableFloat(o.Lat, o.Geocoded), nullableFloat(o.Lng, o.Geocoded), o.GeocodeFormatted,
		o.GeocodeHasStreetNum, o.GeocodeSource, o.GeocodeConfidence,
		string(o.VentanaTipo), nullableIntVal(o.VentanaDesde, o.VentanaTipo != ""), nullableIntVal(o.VentanaHasta, o.VentanaTipo != ""),
		o.VentanaRaw, o.LlamarAntes, rec.ID,
	)
	return err
}

func nullableInt64(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

func nullableFloat(v float64, present bool) *float64 {
	if !present {
		return nil
	}
	return &v
}

func nullableIntVal(v int, present bool) *int {
	if !present {
		return nil
	}
	return &v
}

func normalizeNumero(numero string) string {
	return upperTrim(numero)
}

// scannable covers both pgx.Row and pgx.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanOrder(row scannable) (*OrderRecord, error) {
	var (
		rec          OrderRecord
		carrierID    pgtype.Int8
		lat, lng     pgtype.Float8
		ventanaTipo  string
		ventanaDesde pgtype.Int4
		ventanaHasta pgtype.Int4
	)

	err := row.Scan(
		&rec.ID, &rec.Order.Numero, &rec.Cliente, &rec.Telefono,
		&rec.Order.DomicilioRaw, &rec.Order.DomicilioNormalizado,
		&rec.Order.ObservacionesPL, &rec.Order.TransporteRaw, &rec.Order.Provincia, &rec.Order.Localidad,
		&carrierID, &rec.Order.CarrierNombre, &rec.Order.Clasificacion, &rec.Lifecycle, &rec.Order.Motivo, &rec.SourceTag,
		&rec.Urgente, &rec.Prioridad, &rec.Order.Geocoded, &lat, &lng, &rec.Order.GeocodeFormatted,
		&rec.Order.GeocodeHasStreetNum, &rec.Order.GeocodeSource, &rec.Order.GeocodeConfidence,
		&ventanaTipo, &ventanaDesde, &ventanaHasta, &rec.Order.VentanaRaw, &rec.Order.LlamarAntes,
		&rec.CreatedAt, &rec.Order.UpdatedAt, &rec.IngestedAt, &rec.ArmedAt, &rec.DispatchedAt, &rec.DeliveredAt, &rec.ArchivedAt,
	)
	if err != nil {
		return nil, err
	}

	if carrierID.Valid {
		rec.Order.CarrierID = carrierID.Int64
	}
	if lat.Valid {
		rec.Order.Lat = lat.Float64
	}
	if lng.Valid {
		rec.Order.Lng = lng.Float64
	}
	rec.Order.VentanaTipo = window.Tag(ventanaTipo)
	if ventanaDesde.Valid {
		rec.Order.VentanaDesde = int(ventanaDesde.Int32)
	}
	if ventanaHasta.Valid {
		rec.Order.VentanaHasta = int(ventanaHasta.Int32)
	}
	return &rec, nil
}
