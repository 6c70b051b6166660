package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"logistics/internal/pipeline"
	"logistics/internal/store"
	"logistics/pkg/logger"
)

// OrdersHandler binds the orders operator surface (spec §6: ingest,
// create, update, correct-address, override-classification,
// advance-to-armed, reprocess, reprocess-pending) to internal/store and
// internal/pipeline.
type OrdersHandler struct {
	Store    *store.Store
	Pipeline *pipeline.Pipeline
}

// orderInput is the raw field set an ingest/create/update request carries
// before the pipeline classifies it.
type orderInput struct {
	Numero          string `json:"numero"`
	SourceTag       string `json:"source_tag"`
	Cliente         string `json:"cliente"`
	Telefono        string `json:"telefono"`
	Domicilio       string `json:"domicilio"`
	Observaciones   string `json:"observaciones"`
	Transporte      string `json:"transporte"`
	Provincia       string `json:"provincia"`
	Localidad       string `json:"localidad"`
	Urgente         bool   `json:"urgente"`
	Prioridad       bool   `json:"prioridad"`
}

func applyInput(o *pipeline.Order, in orderInput) {
	o.DomicilioRaw = in.Domicilio
	o.ObservacionesPL = in.Observaciones
	o.TransporteRaw = in.Transporte
	o.Provincia = in.Provincia
	o.Localidad = in.Localidad
}

func orderResponse(rec *store.OrderRecord) map[string]any {
	return map[string]any{
		"id":             rec.ID,
		"numero":         rec.Order.Numero,
		"cliente":        rec.Cliente,
		"telefono":       rec.Telefono,
		"clasificacion":  rec.Order.Clasificacion,
		"motivo":         rec.Order.Motivo,
		"lifecycle":      rec.Lifecycle,
		"domicilio":      rec.Order.DomicilioNormalizado,
		"lat":            rec.Order.Lat,
		"lng":            rec.Order.Lng,
		"geocoded":       rec.Order.Geocoded,
		"ventana_tipo":   rec.Order.VentanaTipo,
		"urgente":        rec.Urgente,
		"prioridad":      rec.Prioridad,
	}
}

// runPipelineOn creates (if needed) and classifies one order, never
// aborting a batch on a single item's failure — the caller decides
// whether to treat an error as fatal.
func (h *OrdersHandler) runPipelineOn(ctx context.Context, in orderInput) (*store.OrderRecord, error) {
	if _, err := h.Store.Orders.Create(ctx, in.Numero, in.SourceTag); err != nil {
		return nil, err
	}
	return h.Store.Orders.RunPipeline(ctx, in.Numero, func(ctx context.Context, o *pipeline.Order) error {
		applyInput(o, in)
		_, err := h.Pipeline.Run(ctx, o)
		return err
	})
}

// Create handles POST /api/v1/orders: single manual order entry. Unlike
// Ingest, a failure here is returned to the caller directly.
func (h *OrdersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in orderInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	rec, err := h.runPipelineOn(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderResponse(rec))
}

type ingestRequest struct {
	Orders []orderInput `json:"orders"`
}

type ingestResult struct {
	Numero string `json:"numero"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Ingest handles POST /api/v1/orders/ingest: a batch load where one
// order's failure is logged and skipped, the batch continues (spec §7
// propagation rule).
func (h *OrdersHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	results := make([]ingestResult, 0, len(req.Orders))
	for _, in := range req.Orders {
		if _, err := h.runPipelineOn(r.Context(), in); err != nil {
			logger.Error("ingest: order failed, batch continues", "numero", in.Numero, "error", err)
			results = append(results, ingestResult{Numero: in.Numero, Status: "failed", Error: err.Error()})
			continue
		}
		results = append(results, ingestResult{Numero: in.Numero, Status: "ok"})
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// Update handles PATCH /api/v1/orders/{numero}: raw-field update followed
// by a pipeline rerun (pipeline is always rerunnable, spec §4.6).
func (h *OrdersHandler) Update(w http.ResponseWriter, r *http.Request) {
	numero := chi.URLParam(r, "numero")
	var in orderInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	in.Numero = numero

	rec, err := h.Store.Orders.RunPipeline(r.Context(), numero, func(ctx context.Context, o *pipeline.Order) error {
		applyInput(o, in)
		_, err := h.Pipeline.Run(ctx, o)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse(rec))
}

type correctAddressRequest struct {
	Domicilio string `json:"domicilio"`
}

// CorrectAddress handles PATCH /api/v1/orders/{numero}/address.
func (h *OrdersHandler) CorrectAddress(w http.ResponseWriter, r *http.Request) {
	numero := chi.URLParam(r, "numero")
	var req correctAddressRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rec, err := h.Store.Orders.CorrectAddress(r.Context(), numero, req.Domicilio)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse(rec))
}

type overrideClassificationRequest struct {
	Clasificacion string `json:"clasificacion"`
	Motivo        string `json:"motivo"`
}

// OverrideClassification handles PATCH /api/v1/orders/{numero}/classification.
func (h *OrdersHandler) OverrideClassification(w http.ResponseWriter, r *http.Request) {
	numero := chi.URLParam(r, "numero")
	var req overrideClassificationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rec, err := h.Store.Orders.OverrideClassification(r.Context(), numero, pipeline.Classification(req.Clasificacion), req.Motivo)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse(rec))
}

// AdvanceToArmed handles POST /api/v1/orders/{numero}/arm.
func (h *OrdersHandler) AdvanceToArmed(w http.ResponseWriter, r *http.Request) {
	numero := chi.URLParam(r, "numero")
	rec, err := h.Store.Orders.AdvanceToArmed(r.Context(), numero)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse(rec))
}

// Reprocess handles POST /api/v1/orders/{numero}/reprocess: rerun the
// pipeline over an order's already-stored raw fields, without changing them.
func (h *OrdersHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	numero := chi.URLParam(r, "numero")
	rec, err := h.Store.Orders.RunPipeline(r.Context(), numero, func(ctx context.Context, o *pipeline.Order) error {
		_, err := h.Pipeline.Run(ctx, o)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse(rec))
}

// ReprocessPending handles POST /api/v1/orders/reprocess-pending: sweeps
// every order still short of a terminal routable classification.
func (h *OrdersHandler) ReprocessPending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.Store.Orders.ListPendingReprocess(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	results := make([]ingestResult, 0, len(pending))
	for _, p := range pending {
		numero := p.Order.Numero
		_, err := h.Store.Orders.RunPipeline(r.Context(), numero, func(ctx context.Context, o *pipeline.Order) error {
			_, err := h.Pipeline.Run(ctx, o)
			return err
		})
		if err != nil {
			logger.Error("reprocess-pending: order failed, sweep continues", "numero", numero, "error", err)
			results = append(results, ingestResult{Numero: numero, Status: "failed", Error: err.Error()})
			continue
		}
		results = append(results, ingestResult{Numero: numero, Status: "ok"})
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
