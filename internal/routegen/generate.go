// Package routegen orchestrates the Route Builder (spec §4.7): it loads the
// armed/sendable candidate set, applies the three exclusion filters (max
// radius, operational window, return-to-depot), builds the travel-time
// matrix, hands the survivors to internal/route's bucket-sweep-2opt-jump
// optimizer, and persists the result through internal/store.
package routegen

import (
	"context"
	"fmt"

	"logistics/internal/geo"
	"logistics/internal/matrix"
	"logistics/internal/route"
	"logistics/internal/store"
	"logistics/internal/window"
	"logistics/pkg/logger"
)

// Deps bundles the collaborators Generate needs. MatrixProvider is the
// already-billing-decorated provider selected by the `proveedor_matrix`
// config key.
type Deps struct {
	Store          *store.Store
	MatrixProvider matrix.Provider
}

// candidate is one order carried through filtering into the optimizer.
type candidate struct {
	rec *store.OrderRecord
}

// filterConfig is the subset of the twelve operator config keys the three
// exclusion filters need.
type filterConfig struct {
	MaxKm           float64
	UseWindows      bool
	HoraDesde       string
	HoraHasta       string
	VueltaGalponMin float64
	SpeedKmh        float64
}

// filterCandidates applies the three exclusion filters in spec §4.7's
// order — max radius, operational window, return-to-depot — each bypassed
// for urgent/priority orders, and returns the survivors plus an
// ExclusionInput per rejected order. Pure and DB-free so it can be tested
// without a store.
func filterCandidates(orders []*store.OrderRecord, cfg filterConfig, depot geo.Point) ([]candidate, []store.ExclusionInput) {
	var kept []candidate
	var excluded []store.ExclusionInput

	for _, rec := range orders {
		o := rec.Order
		bypass := rec.Urgente || rec.Prioridad

		if !bypass {
			if d := geo.Haversine(depot.Lat, depot.Lng, o.Lat, o.Lng); d > cfg.MaxKm {
				excluded = append(excluded, store.ExclusionInput{
					RemitoID: rec.ID, Numero: o.Numero, Lat: o.Lat, Lng: o.Lng,
					Reason: fmt.Sprintf("distancia_maxima(%.2f)", d),
				})
				continue
			}
		}

		if !bypass && cfg.UseWindows && o.VentanaTipo != window.TagNone {
			w := window.Result{Kind: window.KindNormal, DesdeMin: o.VentanaDesde, HastaMin: o.VentanaHasta, Tag: o.VentanaTipo, LlamarAntes: o.LlamarAntes, RawText: o.VentanaRaw}
			if !window.IsWithinConfigWindow(w, cfg.HoraDesde, cfg.HoraHasta) {
				excluded = append(excluded, store.ExclusionInput{
					RemitoID: rec.ID, Numero: o.Numero, Lat: o.Lat, Lng: o.Lng,
					Reason: "ventana_horaria",
				})
				continue
			}
		}

		if !bypass {
			if retMin := geo.HaversineMinutes(o.Lat, o.Lng, depot.Lat, depot.Lng, cfg.SpeedKmh); retMin > cfg.VueltaGalponMin {
				excluded = append(excluded, store.ExclusionInput{
					RemitoID: rec.ID, Numero: o.Numero, Lat: o.Lat, Lng: o.Lng,
					Reason: fmt.Sprintf("vuelta_galpon(%.1f)", cfg.VueltaGalponMin),
				})
				continue
			}
		}

		kept = append(kept, candidate{rec: rec})
	}

	return kept, excluded
}

// Generate runs the full candidate-selection -> filter -> optimize ->
// materialize -> persist pipeline and returns the resulting Route.
func Generate(ctx context.Context, d Deps) (*store.Route, error) {
	cfg, err := d.Store.Config.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	maxKm, err := cfg["distancia_max_km"].Float()
	if err != nil {
		return nil, fmt.Errorf("distancia_max_km: %w", err)
	}
	useWindows, err := cfg["utilizar_ventana"].Bool()
	if err != nil {
		return nil, fmt.Errorf("utilizar_ventana: %w", err)
	}
	horaDesde := cfg["hora_desde"].String()
	horaHasta := cfg["hora_hasta"].String()
	vueltaGalponMin, err := cfg["vuelta_galpon_min"].Float()
	if err != nil {
		return nil, fmt.Errorf("vuelta_galpon_min: %w", err)
	}
	evitarSaltosMin, err := cfg["evitar_saltos_min"].Float()
	if err != nil {
		return nil, fmt.Errorf("evitar_saltos_min: %w", err)
	}
	speedKmh, err := cfg["velocidad_urbana_kmh"].Float()
	if err != nil {
		return nil, fmt.Errorf("velocidad_urbana_kmh: %w", err)
	}
	blockSize, err := cfg["dm_block_size"].Int()
	if err != nil {
		return nil, fmt.Errorf("dm_block_size: %w", err)
	}
	if _, err := cfg["max_remitos_ruta"].Int(); err != nil {
		return nil, fmt.Errorf("max_remitos_ruta: %w", err)
	}
	tiempoEsperaMin, err := cfg["tiempo_espera_min"].Int()
	if err != nil {
		return nil, fmt.Errorf("tiempo_espera_min: %w", err)
	}

	depot := geo.Depot()

	orders, err := d.Store.Orders.ListArmedSendable(ctx)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	filters := filterConfig{
		MaxKm: maxKm, UseWindows: useWindows, HoraDesde: horaDesde, HoraHasta: horaHasta,
		VueltaGalponMin: vueltaGalponMin, SpeedKmh: speedKmh,
	}
	kept, excluded := filterCandidates(orders, filters, depot)

	points := make([]matrix.Point, 0, len(kept)+1)
	points = append(points, matrix.Point{Lat: depot.Lat, Lng: depot.Lng, Label: "depot"})
	for _, c := range kept {
		points = append(points, matrix.Point{Lat: c.rec.Order.Lat, Lng: c.rec.Order.Lng, Label: c.rec.Order.Numero})
	}

	fullMatrix := matrix.GetMatrixNxN(ctx, d.Store.TravelCache, d.MatrixProvider, points, blockSize)

	routeStops := make([]route.Stop, len(kept))
	for i, c := range kept {
		o := c.rec.Order
		routeStops[i] = route.Stop{
			Idx: i, Lat: o.Lat, Lng: o.Lng, RemitoID: c.rec.ID, Numero: o.Numero,
			Urgente: c.rec.Urgente, Prioridad: c.rec.Prioridad,
			VentanaTipo: o.VentanaTipo, VentanaDesde: o.VentanaDesde, VentanaHasta: o.VentanaHasta,
			LlamarAntes: o.LlamarAntes,
		}
	}

	var stopsMatrix [][]float64
	if len(kept) > 0 {
		stopsMatrix = make([][]float64, len(kept))
		for i := range stopsMatrix {
			stopsMatrix[i] = fullMatrix[i+1][1:]
		}
	}

	optimized := route.Optimize(routeStops, stopsMatrix, depot, evitarSaltosMin)

	for idx, reason := range optimized.ExclusionReasons {
		c := kept[idx]
		excluded = append(excluded, store.ExclusionInput{
			RemitoID: c.rec.ID, Numero: c.rec.Order.Numero, Lat: c.rec.Order.Lat, Lng: c.rec.Order.Lng,
			Reason: reason,
		})
	}

	inputs := make([]store.StopInput, len(optimized.OrderedIdx))
	for pos, idx := range optimized.OrderedIdx {
		c := kept[idx]
		o := c.rec.Order
		inputs[pos] = store.StopInput{
			RemitoID: c.rec.ID, Numero: o.Numero, Cliente: c.rec.Cliente,
			Domicilio: o.DomicilioNormalizado, Lat: o.Lat, Lng: o.Lng,
			Urgente: c.rec.Urgente, Prioridad: c.rec.Prioridad, VentanaTipo: o.VentanaTipo,
		}
	}

	// materialize() expects a (len(inputs)+1)x(len(inputs)+1) matrix indexed
	// by final route order (0 = depot), not by the pre-optimization "kept"
	// order fullMatrix is indexed by — reorder it here.
	orderedMatrix := make([][]float64, len(inputs)+1)
	orderedMatrix[0] = make([]float64, len(inputs)+1)
	orderedMatrix[0][0] = 0
	for pos, idx := range optimized.OrderedIdx {
		orderedMatrix[0][pos+1] = fullMatrix[0][idx+1]
	}
	for pos, idx := range optimized.OrderedIdx {
		row := make([]float64, len(inputs)+1)
		row[0] = fullMatrix[idx+1][0]
		for pos2, idx2 := range optimized.OrderedIdx {
			row[pos2+1] = fullMatrix[idx+1][idx2+1]
		}
		orderedMatrix[pos+1] = row
	}

	snapshot := make(map[string]string, len(cfg))
	for k, v := range cfg {
		snapshot[k] = v.Raw
	}

	logger.Info("route generation candidate set resolved",
		"candidates", len(orders), "kept", len(kept), "excluded", len(excluded))

	return d.Store.Routes.Create(ctx, store.CreateRouteParams{
		Depot: depot, Stops: inputs, Excluded: excluded, Matrix: orderedMatrix,
		ServiceMinutes: float64(tiempoEsperaMin), MaxWaypoints: geo.MaxGmapsStops, ConfigSnapshot: snapshot,
	})
}
