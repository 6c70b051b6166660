package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"logistics/internal/routegen"
	"logistics/internal/store"
	"logistics/pkg/apperror"
)

// RoutesHandler binds the routes operator surface (spec §6: generate,
// read, update-stop-state, update-route-state) to internal/routegen and
// internal/store.
type RoutesHandler struct {
	Store *store.Store
	Deps  routegen.Deps
}

func routeResponse(rt *store.Route) map[string]any {
	stops := make([]map[string]any, len(rt.Stops))
	for i, s := range rt.Stops {
		stops[i] = map[string]any{
			"id": s.ID, "remito_id": s.RemitoID, "orden": s.Orden, "numero": s.Numero,
			"cliente": s.Cliente, "domicilio": s.Domicilio, "lat": s.Lat, "lng": s.Lng,
			"minutos_desde_anterior": s.MinutosDesdeAnterior, "minutos_servicio": s.MinutosServicio,
			"minutos_acumulados": s.MinutosAcumulados, "km_desde_anterior": s.KmDesdeAnterior,
			"estado": s.Estado,
		}
	}
	exclusions := make([]map[string]any, len(rt.Exclusions))
	for i, e := range rt.Exclusions {
		exclusions[i] = map[string]any{
			"remito_id": e.RemitoID, "numero": e.Numero, "reason": e.Reason,
		}
	}
	return map[string]any{
		"id": rt.ID, "fecha": rt.Fecha, "status": rt.Status,
		"total_paradas": rt.TotalParadas, "total_excluidos": rt.TotalExcluidos,
		"total_km": rt.TotalKm, "total_minutos": rt.TotalMinutos,
		"deeplinks": rt.Deeplinks, "stops": stops, "exclusions": exclusions,
	}
}

// Generate handles POST /api/v1/routes/generate.
func (h *RoutesHandler) Generate(w http.ResponseWriter, r *http.Request) {
	rt, err := routegen.Generate(r.Context(), h.Deps)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, routeResponse(rt))
}

// Read handles GET /api/v1/routes/{id} (or "latest" for the most recent run).
func (h *RoutesHandler) Read(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	if idParam == "latest" {
		rt, err := h.Store.Routes.GetLatest(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, routeResponse(rt))
		return
	}
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil {
		writeError(w, apperror.NewWithField(apperror.CodeValidation, "invalid route id", "id"))
		return
	}
	rt, err := h.Store.Routes.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, routeResponse(rt))
}

type updateStateRequest struct {
	State string `json:"state"`
}

// UpdateStopState handles PATCH /api/v1/routes/stops/{stopID}/state.
func (h *RoutesHandler) UpdateStopState(w http.ResponseWriter, r *http.Request) {
	stopID, err := strconv.ParseInt(chi.URLParam(r, "stopID"), 10, 64)
	if err != nil {
		writeError(w, apperror.NewWithField(apperror.CodeValidation, "invalid stop id", "stopID"))
		return
	}
	var req updateStateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.Store.Routes.UpdateStopState(r.Context(), stopID, req.State); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stop_id": stopID, "state": req.State})
}

// UpdateRouteState handles PATCH /api/v1/routes/{id}/state.
func (h *RoutesHandler) UpdateRouteState(w http.ResponseWriter, r *http.Request) {
	routeID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, apperror.NewWithField(apperror.CodeValidation, "invalid route id", "id"))
		return
	}
	var req updateStateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.Store.Routes.UpdateRouteState(r.Context(), routeID, req.State); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"route_id": routeID, "state": req.State})
}
