// Package carrier classifies an order's free-text "transporte" field into a
// canonical carrier, via a cascade of a hardcoded pickup check, per-carrier
// regexes, an AI fallback, and a province-based default rule.
package carrier

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// Carrier is one row of the carriers catalog: a canonical name, its
// matching aliases/regex, and whether it is an external courier or the
// in-house fleet.
type Carrier struct {
	ID             int64
	NombreCanonico string
	Aliases        []string
	RegexPattern   string
	EsExterno      bool
	EsPickup       bool
	Activo         bool
	PrioridadRegex int
}

// NamePickup is the canonical name used for counter/warehouse pickups.
// spec.md's own glossary and scenario text use "pickup" where the
// original source diverges between "RETIRO EN GALPON" (classifier seed)
// and "RETIRO EN COMERCIAL" (pipeline docs); spec.md wins that conflict.
const (
	NamePickup        = "pickup"
	NamePickupUpper   = "PICKUP"
	NameEnvioPropio   = "ENVIO PROPIO"
	NameDesconocido   = "DESCONOCIDO"
)

// SeedCarriers is the catalog loaded on first migration. Order matches the
// original seed; only the pickup row's canonical name differs.
var SeedCarriers = []Carrier{
	{NombreCanonico: NamePickupUpper,
		Aliases:        []string{"retiro galpon", "retira", "retira en galpon", "busca", "viene a buscar", "pickup"},
		RegexPattern:   `(?i)(retir[ao]\s+(en\s+)?gal[oó]?n|retira\s+en\s+dep[oó]sito|pasa\s+a\s+(buscar|retirar))`,
		EsExterno:      false, EsPickup: true, Activo: true, PrioridadRegex: 10},
	{NombreCanonico: "ANDREANI", Aliases: []string{"andreani", "andreanni"}, RegexPattern: `(?i)andreani`, EsExterno: true, Activo: true, PrioridadRegex: 20},
	{NombreCanonico: "OCA", Aliases: []string{"oca", "o.c.a."}, RegexPattern: `(?i)\boca\b`, EsExterno: true, Activo: true, PrioridadRegex: 20},
	{NombreCanonico: "CORREO ARGENTINO", Aliases: []string{"correo", "correo argentino", "correo arg"}, RegexPattern: `(?i)(correo\s+argentino|^correo$)`, EsExterno: true, Activo: true, PrioridadRegex: 20},
	{NombreCanonico: "VIA CARGO", Aliases: []string{"via cargo", "viacargo", "via_cargo"}, RegexPattern: `(?i)via\s*cargo`, EsExterno: true, Activo: true, PrioridadRegex: 20},
	{NombreCanonico: "URBANO", Aliases: []string{"urbano", "urbano express", "urbano exp"}, RegexPattern: `(?i)urbano(\s+express)?`, EsExterno: true, Activo: true, PrioridadRegex: 20},
	{NombreCanonico: "LAAR", Aliases: []string{"laar", "laarcourier"}, RegexPattern: `(?i)\blaar\b`, EsExterno: true, Activo: true, PrioridadRegex: 20},
	{NombreCanonico: "TUPUY", Aliases: []string{"tupuy", "tu puy"}, RegexPattern: `(?i)tupuy`, EsExterno: true, Activo: true, PrioridadRegex: 20},
	{NombreCanonico: "SERVIENTREGA", Aliases: []string{"servientrega", "servi entrega"}, RegexPattern: `(?i)servientrega`, EsExterno: true, Activo: true, PrioridadRegex: 20},
	{NombreCanonico: "MOOVA", Aliases: []string{"moova", "muuva"}, RegexPattern: `(?i)moova`, EsExterno: true, Activo: true, PrioridadRegex: 20},
	{NombreCanonico: "RAPPI", Aliases: []string{"rappi", "rapi"}, RegexPattern: `(?i)rappi`, EsExterno: true, Activo: true, PrioridadRegex: 20},
	{NombreCanonico: "PEDIDOS YA", Aliases: []string{"pedidos ya", "pedidosya", "pya"}, RegexPattern: `(?i)pedidos\s*ya`, EsExterno: true, Activo: true, PrioridadRegex: 20},
	{NombreCanonico: "MERCADO ENVIOS", Aliases: []string{"mercado envios", "mercadoenvios", "ml envios", "meli envios"}, RegexPattern: `(?i)mercado\s+env[i]os`, EsExterno: true, Activo: true, PrioridadRegex: 20},
	{NombreCanonico: NameEnvioPropio, Aliases: []string{"envio propio", "propio", "reparto propio", "repartidor propio"}, RegexPattern: `(?i)(envio\s+propio|reparto\s+propio|repartidor\s+propio)`, EsExterno: false, Activo: true, PrioridadRegex: 30},
	{NombreCanonico: NameDesconocido, Aliases: nil, RegexPattern: "", EsExterno: true, Activo: true, PrioridadRegex: 99},
}

// hardPickupRegex is checked before any DB-backed carrier regex, mirroring
// the original cascade's hardcoded first step.
var hardPickupRegex = regexp.MustCompile(`(?i)\b(?:RETIRA(?:\s+POR|\s+EN)?\s*(?:COMERCIAL|DEP[OÓ]SITO|LOCAL|TIENDA|SUCURSAL)?|SE\s+RETIRA|RETIRO\s+CLIENTE|PASA\s+A\s+RETIRAR)\b`)

// Detection is the classifier's result for one order.
type Detection struct {
	NombreCanonico string
	Source         string // "regex", "ai", "rule", "default"
	Confidence     float64
}

// AIClassifier is the transport-text AI fallback, consulted only when no
// regex in the catalog matches. Implementations call out to whatever model
// backs the deployment; the cascade only trusts results at confidence >= 0.85.
type AIClassifier interface {
	ClassifyTransport(ctx context.Context, text string) (name string, confidence float64, err error)
}

const aiConfidenceThreshold = 0.85

// DetectPickup reports whether text matches the hardcoded pickup phrasing,
// independent of any DB-backed carrier catalog.
func DetectPickup(text string) bool {
	return hardPickupRegex.MatchString(text)
}

// Detect classifies an order's transport text against the active carrier
// catalog (ordered by PrioridadRegex ascending, then NombreCanonico), falling back to an AI
// classifier and finally a province-based default rule.
func Detect(ctx context.Context, carriers []Carrier, ai AIClassifier, text, provincia string) Detection {
	if DetectPickup(text) {
		return Detection{NombreCanonico: NamePickupUpper, Source: "regex", Confidence: 1.0}
	}

	for _, c := range orderedByPriority(carriers) {
		if c.RegexPattern == "" {
			continue
		}
		re, err := regexp.Compile(c.RegexPattern)
		if err != nil {
			slog.Warn("skipping malformed carrier regex", "carrier", c.NombreCanonico, "error", err)
			continue
		}
		if re.MatchString(text) {
			return Detection{NombreCanonico: c.NombreCanonico, Source: "regex", Confidence: 1.0}
		}
	}

	if ai != nil {
		if name, confidence, err := ai.ClassifyTransport(ctx, text); err == nil && confidence >= aiConfidenceThreshold {
			for _, c := range carriers {
				if c.NombreCanonico == name {
					return Detection{NombreCanonico: name, Source: "ai", Confidence: confidence}
				}
			}
		}
	}

	return defaultCategory(provincia)
}

func defaultCategory(provincia string) Detection {
	p := strings.ToUpper(strings.TrimSpace(provincia))
	if p != "" && p != "MENDOZA" {
		return Detection{NombreCanonico: NameDesconocido, Source: "rule", Confidence: 0.5}
	}
	return Detection{NombreCanonico: NameEnvioPropio, Source: "default", Confidence: 0.5}
}

func orderedByPriority(carriers []Carrier) []Carrier {
	sorted := make([]Carrier, len(carriers))
	copy(sorted, carriers)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && (sorted[j].PrioridadRegex < sorted[j-1].PrioridadRegex ||
			(sorted[j].PrioridadRegex == sorted[j-1].PrioridadRegex && sorted[j].NombreCanonico < sorted[j-1].NombreCanonico)); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return sorted
}
