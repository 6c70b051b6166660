package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"logistics/internal/window"
	"logistics/pkg/apperror"
	"logistics/pkg/database"
	"logistics/pkg/telemetry"
)

// ArchiveRecord is one historico_entregados row: the terminal snapshot of a
// delivered Order, kept after the live remitos row is no longer the
// operational record (spec.md §6's "move-to-archive" operation).
type ArchiveRecord struct {
	ID                   int64
	Numero               string
	Cliente              string
	Telefono             string
	DomicilioRaw         string
	DomicilioNormalizado string
	Localidad            string
	Lat                  *float64
	Lng                  *float64
	CarrierNombre        string
	VentanaTipo          window.Tag
	VentanaDesde         *int
	VentanaHasta         *int
	DeliveredAt          time.Time
	ArchivedAt           time.Time
	RouteID              *int64
	ParadaOrden          *int
	MinutosTotales       float64
	KmTotales            float64
}

// ArchiveRepo persists historico_entregados.
type ArchiveRepo struct {
	db database.DB
}

func NewArchiveRepo(db database.DB) *ArchiveRepo {
	return &ArchiveRepo{db: db}
}

// Create snapshots a delivered Order into the archive. Called after
// OrdersRepo.MarkArchived has moved the order's own lifecycle forward.
func (r *ArchiveRepo) Create(ctx context.Context, rec ArchiveRecord) (*ArchiveRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "ArchiveRepo.Create")
	defer span.End()

	err := r.db.QueryRow(ctx, `
		INSERT INTO historico_entregados (numero, cliente, telefono, domicilio_raw, domicilio_normalizado,
			localidad, lat, lng, carrier_nombre, ventana_tipo, ventana_desde, ventana_hasta,
			delivered_at, ruta_id, parada_orden, minutos_totales, km_totales)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, archived_at`,
		rec.Numero, rec.Cliente, rec.Telefono, rec.DomicilioRaw, rec.DomicilioNormalizado,
		rec.Localidad, rec.Lat, rec.Lng, rec.CarrierNombre, string(rec.VentanaTipo), rec.VentanaDesde, rec.VentanaHasta,
		rec.DeliveredAt, rec.RouteID, rec.ParadaOrden, rec.MinutosTotales, rec.KmTotales,
	).Scan(&rec.ID, &rec.ArchivedAt)
	if err != nil {
		return nil, fmt.Errorf("archive order %s: %w", rec.Numero, err)
	}
	return &rec, nil
}

// FindByNumero returns the most recent archive snapshot for an order
// number (an order can in principle be re-delivered and re-archived).
func (r *ArchiveRepo) FindByNumero(ctx context.Context, numero string) (*ArchiveRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "ArchiveRepo.FindByNumero")
	defer span.End()

	var rec ArchiveRecord
	var ventana string
	err := r.db.QueryRow(ctx, `
		SELECT id, numero, cliente, telefono, domicilio_raw, domicilio_normalizado, localidad,
			lat, lng, carrier_nombre, ventana_tipo, ventana_desde, ventana_hasta,
			delivered_at, archived_at, ruta_id, parada_orden, minutos_totales, km_totales
		FROM historico_entregados WHERE numero = $1 ORDER BY archived_at DESC LIMIT 1`, numero,
	).Scan(&rec.ID, &rec.Numero, &rec.Cliente, &rec.Telefono, &rec.DomicilioRaw, &rec.DomicilioNormalizado, &rec.Localidad,
		&rec.Lat, &rec.Lng, &rec.CarrierNombre, &ventana, &rec.VentanaDesde, &rec.VentanaHasta,
		&rec.DeliveredAt, &rec.ArchivedAt, &rec.RouteID, &rec.ParadaOrden, &rec.MinutosTotales, &rec.KmTotales)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrArchiveNotFound.WithDetails("numero", numero)
		}
		return nil, fmt.Errorf("find archive row: %w", err)
	}
	rec.VentanaTipo = window.Tag(ventana)
	return &rec, nil
}

// Restore removes an order's archive snapshot, undoing move-to-archive.
// The caller is responsible for moving the order's own lifecycle back to
// a non-archived stage via OrdersRepo.
func (r *ArchiveRepo) Restore(ctx context.Context, numero string) error {
	ctx, span := telemetry.StartSpan(ctx, "ArchiveRepo.Restore")
	defer span.End()

	tag, err := r.db.Exec(ctx, `DELETE FROM historico_entregados WHERE numero = $1`, numero)
	if err != nil {
		return fmt.Errorf("restore archive row: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrArchiveNotFound.WithDetails("numero", numero)
	}
	return nil
}

// List returns archive rows delivered within [since, until), for reporting.
func (r *ArchiveRepo) List(ctx context.Context, since, until time.Time) ([]ArchiveRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "ArchiveRepo.List")
	defer span.End()

	rows, err := r.db.Query(ctx, `
		SELECT id, numero, cliente, telefono, domicilio_raw, domicilio_normalizado, localidad,
			lat, lng, carrier_nombre, ventana_tipo, ventana_desde, ventana_hasta,
			delivered_at, archived_at, ruta_id, parada_orden, minutos_totales, km_totales
		FROM historico_entregados WHERE delivered_at >= $1 AND delivered_at < $2 ORDER BY delivered_at`, since, until)
	if err != nil {
		return nil, fmt.Errorf("list archive rows: %w", err)
	}
	defer rows.Close()

	var out []ArchiveRecord
	for rows.Next() {
		var rec ArchiveRecord
		var ventana string
		if err := rows.Scan(&rec.ID, &rec.Numero, &rec.Cliente, &rec.Telefono, &rec.DomicilioRaw, &rec.DomicilioNormalizado, &rec.Localidad,
			&rec.Lat, &rec.Lng, &rec.CarrierNombre, &ventana, &rec.VentanaDesde, &rec.VentanaHasta,
			&rec.DeliveredAt, &rec.ArchivedAt, &rec.RouteID, &rec.ParadaOrden, &rec.MinutosTotales, &rec.KmTotales); err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}
		rec.VentanaTipo = window.Tag(ventana)
		out = append(out, rec)
	}
	return out, rows.Err()
}
