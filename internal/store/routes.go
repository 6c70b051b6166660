package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"logistics/internal/geo"
	"logistics/internal/route"
	"logistics/internal/window"
	"logistics/pkg/apperror"
	"logistics/pkg/database"
	"logistics/pkg/telemetry"
)

// RouteStop is one materialized ruta_paradas row: a Stop snapshot plus the
// minute/km accumulation the Route Builder's materialization walk produces
// (spec.md §4.7, "accumulating minutes/km/service-time into Stop snapshots").
type RouteStop struct {
	ID                   int64
	RemitoID             int64
	Orden                int
	Numero               string
	Cliente              string
	Domicilio            string
	Observaciones        string
	Lat                  float64
	Lng                  float64
	Urgente              bool
	Prioridad            bool
	VentanaTipo          window.Tag
	MinutosDesdeAnterior float64
	MinutosServicio      float64
	MinutosAcumulados    float64
	KmDesdeAnterior      float64
	Estado               string
}

// RouteExclusion is one ruta_excluidos row.
type RouteExclusion struct {
	ID        int64
	RemitoID  int64
	Numero    string
	Lat       float64
	Lng       float64
	Reason    string
	CreatedAt time.Time
}

// Route is the persisted C7 itinerary aggregate (spec.md §3's Route
// entity).
type Route struct {
	ID             int64
	Fecha          time.Time
	Status         string
	ConfigSnapshot json.RawMessage
	DepotLat       float64
	DepotLng       float64
	TotalParadas   int
	TotalExcluidos int
	TotalKm        float64
	TotalMinutos   float64
	Deeplinks      []string
	RouteLine      json.RawMessage
	Stops          []RouteStop
	Exclusions     []RouteExclusion
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StopInput is one candidate stop handed to RoutesRepo.Create, already in
// final delivery order (the caller has run route.Optimize first).
type StopInput struct {
	RemitoID      int64
	Numero        string
	Cliente       string
	Domicilio     string
	Observaciones string
	Lat           float64
	Lng           float64
	Urgente       bool
	Prioridad     bool
	VentanaTipo   window.Tag
}

// ExclusionInput is one stop the jump filter or a candidate filter dropped.
type ExclusionInput struct {
	RemitoID int64
	Numero   string
	Lat      float64
	Lng      float64
	Reason   string
}

// CreateRouteParams is everything RoutesRepo.Create needs to materialize
// and persist a Route in one pass.
type CreateRouteParams struct {
	Depot          geo.Point
	Stops          []StopInput // already ordered by route.Optimize
	Excluded       []ExclusionInput
	Matrix         [][]float64 // (len(Stops)+1)x(len(Stops)+1); index 0 is the depot
	ServiceMinutes float64     // tiempo_espera_min, applied per stop
	MaxWaypoints   int
	ConfigSnapshot map[string]string
}

// RoutesRepo persists Routes, Stops, and Exclusions, enforcing invariant 7
// (a Stop's (ruta_id, remito_id) pair is unique — one active Stop per
// Order per route) via the ruta_paradas table's UNIQUE constraint.
type RoutesRepo struct {
	db database.DB
}

func NewRoutesRepo(db database.DB) *RoutesRepo {
	return &RoutesRepo{db: db}
}

// Create runs the depot→stops→depot materialization walk described in
// spec.md §4.7, then persists the Route aggregate and its Stops/Exclusions
// in a single transaction. An empty candidate set still materializes a
// zero-stop Route carrying total_excluidos (spec.md §4.7, "Empty candidate
// set still materializes").
func (r *RoutesRepo) Create(ctx context.Context, p CreateRouteParams) (*Route, error) {
	ctx, span := telemetry.StartSpan(ctx, "RoutesRepo.Create")
	defer span.End()

	stops, totalKm, totalMin := materialize(p)

	points := make([]geo.Point, len(stops))
	for i, s := range stops {
		points[i] = geo.Point{Lat: s.Lat, Lng: s.Lng}
	}
	deeplinks := route.BuildGmapsLinks(points, p.Depot, p.MaxWaypoints)
	routeLine := buildRouteLine(p.Depot, points)

	configSnapshot, err := json.Marshal(p.ConfigSnapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal config snapshot: %w", err)
	}
	routeLineJSON, err := json.Marshal(routeLine)
	if err != nil {
		return nil, fmt.Errorf("marshal route line: %w", err)
	}

	result, err := database.WithTransactionResult(ctx, r.db, func(tx pgx.Tx) (*Route, error) {
		var rt Route
		var deeplinksArr pgtype.Array[string]
		err := tx.QueryRow(ctx, `
			INSERT INTO rutas (status, config_snapshot, deposito_lat, deposito_lng,
				total_paradas, total_excluidos, total_km, total_minutos, deeplinks, route_line)
			VALUES ('generating', $1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, fecha, status, config_snapshot, deposito_lat, deposito_lng,
				total_paradas, total_excluidos, total_km, total_minutos, deeplinks, route_line, created_at, updated_at`,
			configSnapshot, p.Depot.Lat, p.Depot.Lng, len(stops), len(p.Excluded), totalKm, totalMin, deeplinks, routeLineJSON,
		).Scan(&rt.ID, &rt.Fecha, &rt.Status, &rt.ConfigSnapshot, &rt.DepotLat, &rt.DepotLng,
			&rt.TotalParadas, &rt.TotalExcluidos, &rt.TotalKm, &rt.TotalMinutos, &deeplinksArr, &rt.RouteLine, &rt.CreatedAt, &rt.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert route: %w", err)
		}
		rt.Deeplinks = deeplinksArr.Elements

		for i := range stops {
			s := &stops[i]
			err := tx.QueryRow(ctx, `
				INSERT INTO ruta_paradas (ruta_id, remito_id, orden, numero_snapshot, cliente_snapshot,
					domicilio_snapshot, observaciones_snapshot, lat_snapshot, lng_snapshot,
					urgente_snapshot, prioridad_snapshot, ventana_tipo_snapshot,
					minutos_desde_anterior, minutos_servicio, minutos_acumulados, km_desde_anterior)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
				RETURNING id`,
				rt.ID, s.RemitoID, s.Orden, s.Numero, s.Cliente, s.Domicilio, s.Observaciones,
				s.Lat, s.Lng, s.Urgente, s.Prioridad, string(s.VentanaTipo),
				s.MinutosDesdeAnterior, s.MinutosServicio, s.MinutosAcumulados, s.KmDesdeAnterior,
			).Scan(&s.ID)
			if err != nil {
				return nil, fmt.Errorf("insert stop %s: %w", s.Numero, err)
			}
			s.Estado = "pending"
		}

		// Persistence failure on one excluded record does not abort the
		// route (spec.md §4.7) — exclusions are logged best-effort.
		exclusions := make([]RouteExclusion, 0, len(p.Excluded))
		for _, e := range p.Excluded {
			var ex RouteExclusion
			err := tx.QueryRow(ctx, `
				INSERT INTO ruta_excluidos (ruta_id, remito_id, numero_snapshot, lat_snapshot, lng_snapshot, reason)
				VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, remito_id, numero_snapshot, lat_snapshot, lng_snapshot, reason, created_at`,
				rt.ID, e.RemitoID, e.Numero, e.Lat, e.Lng, e.Reason,
			).Scan(&ex.ID, &ex.RemitoID, &ex.Numero, &ex.Lat, &ex.Lng, &ex.Reason, &ex.CreatedAt)
			if err != nil {
				continue
			}
			exclusions = append(exclusions, ex)
		}

		rt.Stops = stops
		rt.Exclusions = exclusions
		return &rt, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// materialize walks depot→stops→depot, accumulating service time, travel
// minutes (from the provided matrix, index 0 = depot), and haversine
// kilometers between consecutive points.
func materialize(p CreateRouteParams) ([]RouteStop, float64, float64) {
	stops := make([]RouteStop, len(p.Stops))
	var totalKm, totalMin float64

	prevLat, prevLng := p.Depot.Lat, p.Depot.Lng
	for i, in := range p.Stops {
		travelMin := 0.0
		if p.Matrix != nil && i+1 < len(p.Matrix) && 0 < len(p.Matrix[i]) {
			travelMin = p.Matrix[i][i+1]
		}
		km := geo.Haversine(prevLat, prevLng, in.Lat, in.Lng)
		totalKm += km
		totalMin += travelMin + p.ServiceMinutes

		stops[i] = RouteStop{
			RemitoID:             in.RemitoID,
			Orden:                i + 1,
			Numero:               in.Numero,
			Cliente:              in.Cliente,
			Domicilio:            in.Domicilio,
			Observaciones:        in.Observaciones,
			Lat:                  in.Lat,
			Lng:                  in.Lng,
			Urgente:              in.Urgente,
			Prioridad:            in.Prioridad,
			VentanaTipo:          in.VentanaTipo,
			MinutosDesdeAnterior: travelMin,
			MinutosServicio:      p.ServiceMinutes,
			MinutosAcumulados:    totalMin,
			KmDesdeAnterior:      km,
		}
		prevLat, prevLng = in.Lat, in.Lng
	}

	if len(p.Stops) > 0 {
		returnKm := geo.Haversine(prevLat, prevLng, p.Depot.Lat, p.Depot.Lng)
		returnMin := 0.0
		last := len(p.Matrix) - 1
		if p.Matrix != nil && last >= 0 && len(p.Matrix[last]) > 0 {
			returnMin = p.Matrix[last][0]
		}
		totalKm += returnKm
		totalMin += returnMin
	}

	return stops, totalKm, totalMin
}

// routeLinePoint is one (lng,lat) vertex, matching spec.md §4.7's "pure
// (lng,lat) geometry" requirement.
type routeLinePoint [2]float64

func buildRouteLine(depot geo.Point, stops []geo.Point) []routeLinePoint {
	line := make([]routeLinePoint, 0, len(stops)+2)
	line = append(line, routeLinePoint{depot.Lng, depot.Lat})
	for _, s := range stops {
		line = append(line, routeLinePoint{s.Lng, s.Lat})
	}
	line = append(line, routeLinePoint{depot.Lng, depot.Lat})
	return line
}

// GetByID loads a Route with its Stops and Exclusions.
func (r *RoutesRepo) GetByID(ctx context.Context, id int64) (*Route, error) {
	ctx, span := telemetry.StartSpan(ctx, "RoutesRepo.GetByID")
	defer span.End()

	var rt Route
	var deeplinksArr pgtype.Array[string]
	err := r.db.QueryRow(ctx, `
		SELECT id, fecha, status, config_snapshot, deposito_lat, deposito_lng,
			total_paradas, total_excluidos, total_km, total_minutos, deeplinks, route_line, created_at, updated_at
		FROM rutas WHERE id = $1`, id,
	).Scan(&rt.ID, &rt.Fecha, &rt.Status, &rt.ConfigSnapshot, &rt.DepotLat, &rt.DepotLng,
		&rt.TotalParadas, &rt.TotalExcluidos, &rt.TotalKm, &rt.TotalMinutos, &deeplinksArr, &rt.RouteLine, &rt.CreatedAt, &rt.UpdatedAt)
	if err != nil {
		return nil, apperror.ErrRouteNotFound.WithDetails("id", id)
	}
	rt.Deeplinks = deeplinksArr.Elements

	stopRows, err := r.db.Query(ctx, `
		SELECT id, remito_id, orden, numero_snapshot, cliente_snapshot, domicilio_snapshot, observaciones_snapshot,
			lat_snapshot, lng_snapshot, urgente_snapshot, prioridad_snapshot, ventana_tipo_snapshot,
			minutos_desde_anterior, minutos_servicio, minutos_acumulados, km_desde_anterior, estado
		FROM ruta_paradas WHERE ruta_id = $1 ORDER BY orden`, id)
	if err != nil {
		return nil, fmt.Errorf("list stops: %w", err)
	}
	defer stopRows.Close()
	for stopRows.Next() {
		var s RouteStop
		var ventana string
		if err := stopRows.Scan(&s.ID, &s.RemitoID, &s.Orden, &s.Numero, &s.Cliente, &s.Domicilio, &s.Observaciones,
			&s.Lat, &s.Lng, &s.Urgente, &s.Prioridad, &ventana,
			&s.MinutosDesdeAnterior, &s.MinutosServicio, &s.MinutosAcumulados, &s.KmDesdeAnterior, &s.Estado); err != nil {
			return nil, fmt.Errorf("scan stop: %w", err)
		}
		s.VentanaTipo = window.Tag(ventana)
		rt.Stops = append(rt.Stops, s)
	}
	if err := stopRows.Err(); err != nil {
		return nil, err
	}

	exRows, err := r.db.Query(ctx, `
		SELECT id, remito_id, numero_snapshot, lat_snapshot, lng_snapshot, reason, created_at
		FROM ruta_excluidos WHERE ruta_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("list exclusions: %w", err)
	}
	defer exRows.Close()
	for exRows.Next() {
		var e RouteExclusion
		if err := exRows.Scan(&e.ID, &e.RemitoID, &e.Numero, &e.Lat, &e.Lng, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan exclusion: %w", err)
		}
		rt.Exclusions = append(rt.Exclusions, e)
	}
	return &rt, exRows.Err()
}

// GetLatest returns the most recently generated Route, if any.
func (r *RoutesRepo) GetLatest(ctx context.Context) (*Route, error) {
	ctx, span := telemetry.StartSpan(ctx, "RoutesRepo.GetLatest")
	defer span.End()

	var id int64
	err := r.db.QueryRow(ctx, `SELECT id FROM rutas ORDER BY created_at DESC LIMIT 1`).Scan(&id)
	if err != nil {
		return nil, apperror.ErrRouteNotFound
	}
	return r.GetByID(ctx, id)
}

// UpdateStopState advances one Stop's delivery state (e.g. "en_curso",
// "entregado", "fallido") — the operator surface's update-stop-state
// operation (spec.md §6).
func (r *RoutesRepo) UpdateStopState(ctx context.Context, stopID int64, state string) error {
	ctx, span := telemetry.StartSpan(ctx, "RoutesRepo.UpdateStopState")
	defer span.End()

	tag, err := r.db.Exec(ctx, `UPDATE ruta_paradas SET estado = $1, updated_at = now() WHERE id = $2`, state, stopID)
	if err != nil {
		return fmt.Errorf("update stop state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.New(apperror.CodeNotFound, "stop not found").WithDetails("stop_id", stopID)
	}
	return nil
}

// UpdateRouteState advances the Route's overall status (e.g. "dispatched",
// "completed").
func (r *RoutesRepo) UpdateRouteState(ctx context.Context, routeID int64, status string) error {
	ctx, span := telemetry.StartSpan(ctx, "RoutesRepo.UpdateRouteState")
	defer span.End()

	tag, err := r.db.Exec(ctx, `UPDATE rutas SET status = $1, updated_at = now() WHERE id = $2`, status, routeID)
	if err != nil {
		return fmt.Errorf("update route state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrRouteNotFound.WithDetails("id", routeID)
	}
	return nil
}
