package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"logistics/internal/store"
)

// ArchiveHandler binds the archives operator surface (spec §6:
// mark-delivered, move-to-archive, restore) to internal/store.
type ArchiveHandler struct {
	Store *store.Store
}

// MarkDelivered handles POST /api/v1/orders/{numero}/deliver: advances
// the order's lifecycle to delivered.
func (h *ArchiveHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	numero := chi.URLParam(r, "numero")
	rec, err := h.Store.Orders.MarkDelivered(r.Context(), numero)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse(rec))
}

// MoveToArchive handles POST /api/v1/orders/{numero}/archive: snapshots a
// delivered order into historico_entregados and advances its lifecycle.
func (h *ArchiveHandler) MoveToArchive(w http.ResponseWriter, r *http.Request) {
	numero := chi.URLParam(r, "numero")
	ctx := r.Context()

	rec, err := h.Store.Orders.GetByNumber(ctx, numero)
	if err != nil {
		writeError(w, err)
		return
	}

	o := rec.Order
	var lat, lng *float64
	if o.Geocoded {
		lat, lng = &o.Lat, &o.Lng
	}
	archived, err := h.Store.Archive.Create(ctx, store.ArchiveRecord{
		Numero: o.Numero, Cliente: rec.Cliente, Telefono: rec.Telefono,
		DomicilioRaw: o.DomicilioRaw, DomicilioNormalizado: o.DomicilioNormalizado,
		Localidad: o.Localidad, Lat: lat, Lng: lng, VentanaTipo: o.VentanaTipo,
		DeliveredAt: timeOrNow(rec.DeliveredAt),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.Store.Orders.MarkArchived(ctx, numero); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"numero": archived.Numero, "archived_at": archived.ArchivedAt})
}

// Restore handles POST /api/v1/archive/{numero}/restore: removes an
// archive snapshot, letting the order be re-ingested.
func (h *ArchiveHandler) Restore(w http.ResponseWriter, r *http.Request) {
	numero := chi.URLParam(r, "numero")
	if err := h.Store.Archive.Restore(r.Context(), numero); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"numero": numero, "restored": true})
}

func timeOrNow(t *time.Time) time.Time {
	if t != nil {
		return *t
	}
	return time.Now()
}
