// Package pipeline runs the 7-step classification cascade that turns a
// freshly-ingested order into one of: a suspected pickup, an external
// carrier shipment, a correction request, a not-found address, or a
// ready-to-route order.
package pipeline

import (
	"context"
	"strings"
	"time"

	"logistics/internal/address"
	"logistics/internal/carrier"
	"logistics/internal/geo"
	"logistics/internal/geocode"
	"logistics/internal/window"
)

// Classification is the outcome bucket an order lands in after the pipeline runs.
type Classification string

const (
	ClassPendiente         Classification = "pendiente"
	ClassRetiroSospechado  Classification = "retiro_sospechado"
	ClassTransporteExterno Classification = "transporte_externo"
	ClassCorregir          Classification = "corregir"
	ClassNoEncontrado      Classification = "no_encontrado"
	ClassEnviar            Classification = "enviar"
)

// KnownLocalities are the department/city names recognized as an explicit
// locality component in a normalized address. An address with none of
// these gets ", Mendoza" appended before geocoding.
var KnownLocalities = []string{
	"GODOY CRUZ", "GUAYMALLÉN", "LAS HERAS", "LUJÁN DE CUYO",
	"MAIPÚ", "SAN RAFAEL", "CAPITAL", "CIUDAD", "MENDOZA",
	"TUNUYÁN", "SAN MARTÍN", "RIVADAVIA", "JUNÍN",
	"GUAYMALLEN", "LUJAN DE CUYO", "MAIPU",
}

// Order is the mutable classification state the pipeline advances. The
// caller is responsible for loading it before, and persisting it after,
// calling Run.
type Order struct {
	Numero               string
	DomicilioRaw         string
	DomicilioNormalizado string
	ObservacionesPL      string
	TransporteRaw        string
	Provincia            string
	Localidad            string

	CarrierID     int64
	CarrierNombre string

	Clasificacion Classification
	Motivo        string

	Geocoded            bool
	Lat, Lng            float64
	GeocodeFormatted    string
	GeocodeHasStreetNum bool
	GeocodeSource       string
	GeocodeConfidence   float64

	VentanaTipo  window.Tag
	VentanaDesde int
	VentanaHasta int
	VentanaRaw   string
	LlamarAntes  bool

	UpdatedAt time.Time
}

// CarrierLookup resolves a carrier's ID by its canonical name, for
// attaching the pickup carrier row to a suspected-pickup order.
type CarrierLookup interface {
	FindByName(ctx context.Context, nombreCanonico string) (id int64, found bool, err error)
}

// Pipeline wires the shared collaborators the classification cascade needs.
type Pipeline struct {
	Carriers []carrier.Carrier
	AI       carrier.AIClassifier
	Lookup   CarrierLookup
	Geocoder *geocode.Gateway
	Now      func() time.Time
}

// transporteExternoExcluded are canonical carrier names that, despite
// being returned by the classifier cascade, are NOT treated as "external
// carrier" terminal states — they fall through to normal address
// processing instead.
var transporteExternoExcluded = map[string]bool{
	carrier.NameEnvioPropio: true,
	carrier.NameDesconocido: true,
	carrier.NamePickupUpper: true,
}

// Run advances order through the 7-step cascade, mutating it in place and
// returning it for convenience.
func (p *Pipeline) Run(ctx context.Context, order *Order) (*Order, error) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	domicilio := order.DomicilioRaw
	if order.DomicilioNormalizado != "" && domicilio == "" {
		domicilio = order.DomicilioNormalizado
	}
	observaciones := order.ObservacionesPL
	provincia := order.Provincia
	if provincia == "" {
		provincia = "Mendoza"
	}

	// Step 0.5 — normalize address.
	if domicilio != "" {
		normalized := address.Normalize(domicilio)
		normalized = address.FixCiudadMendoza(normalized)
		order.DomicilioNormalizado = normalized
	}

	// Step 1 — suspected pickup?
	if carrier.DetectPickup(observaciones) || carrier.DetectPickup(domicilio) {
		if p.Lookup != nil {
			if id, found, err := p.Lookup.FindByName(ctx, carrier.NamePickupUpper); err == nil && found {
				order.CarrierID = id
			}
		}
		order.CarrierNombre = carrier.NamePickupUpper
		order.Clasificacion = ClassRetiroSospechado
		order.Motivo = "Detectado como retiro en comercial"
		order.UpdatedAt = now()
		return order, nil
	}

	// Step 2 — external carrier?
	transportText := observaciones
	if transportText == "" {
		transportText = order.TransporteRaw
	}
	detection := carrier.Detect(ctx, p.Carriers, p.AI, transportText, provincia)
	order.CarrierNombre = detection.NombreCanonico
	if !transporteExternoExcluded[detection.NombreCanonico] {
		order.Clasificacion = ClassTransporteExterno
		order.Motivo = "Carrier detectado: " + detection.NombreCanonico
		order.UpdatedAt = now()
		return order, nil
	}

	// Step 3 — basic address validation.
	if len(strings.TrimSpace(domicilio)) < 5 {
		order.Clasificacion = ClassCorregir
		order.Motivo = "Dirección vacía o muy corta"
		order.UpdatedAt = now()
		return order, nil
	}

	// Step 4 — ensure a locality component, defaulting to Mendoza.
	normalizedUpper := strings.ToUpper(order.DomicilioNormalizado)
	hasLocality := false
	for _, loc := range KnownLocalities {
		if strings.Contains(normalizedUpper, loc) {
			hasLocality = true
			break
		}
	}
	if !hasLocality && order.DomicilioNormalizado != "" {
		order.DomicilioNormalizado = order.DomicilioNormalizado + ", Mendoza"
	}

	// Step 5 — geocoding.
	queryAddr := order.DomicilioNormalizado
	if queryAddr == "" {
		queryAddr = domicilio
	}
	var result *geocode.Result
	if p.Geocoder != nil {
		r, err := p.Geocoder.Geocode(ctx, queryAddr, "")
		if err != nil {
			return order, err
		}
		result = r
	}
	if result == nil {
		order.Clasificacion = ClassNoEncontrado
		order.Motivo = "Geocodificación sin resultado"
		order.UpdatedAt = now()
		return order, nil
	}

	order.Geocoded = true
	order.Lat, order.Lng = result.Lat, result.Lng
	order.GeocodeFormatted = result.FormattedAddress
	order.GeocodeHasStreetNum = result.HasStreetNumber
	order.GeocodeSource = result.Source
	order.GeocodeConfidence = result.Confidence

	if !result.HasStreetNumber {
		order.Clasificacion = ClassCorregir
		order.Motivo = "Sin número de calle en geocodificación"
		order.UpdatedAt = now()
		return order, nil
	}

	// Step 6 — delivery window.
	w := window.Parse(observaciones)
	order.VentanaTipo = w.Tag
	order.VentanaDesde = w.DesdeMin
	order.VentanaHasta = w.HastaMin
	order.VentanaRaw = w.RawText
	order.LlamarAntes = w.LlamarAntes

	// Step 7 — ready to route.
	order.Clasificacion = ClassEnviar
	order.Motivo = ""
	order.UpdatedAt = now()
	return order, nil
}

// Depot re-exports the shared warehouse coordinate so callers building a
// route don't need to import internal/geo directly just for this.
func Depot() geo.Point { return geo.Depot() }
