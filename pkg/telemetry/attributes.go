package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Standard attribute keys shared across spans.
const (
	// Order classification pipeline.
	AttrOrderNumber    = "order.number"
	AttrClassification = "order.classification"
	AttrCarrier        = "order.carrier"

	// Route generation.
	AttrRouteStops     = "route.stops"
	AttrRouteExcluded  = "route.excluded"
	AttrRouteDistance  = "route.distance_km"

	// Outbound providers (geocode/matrix/AI).
	AttrProviderName = "provider.name"
	AttrProviderKind = "provider.kind"
	AttrCacheOutcome = "provider.cache_outcome"
)

// OrderAttributes returns the attributes describing one order's
// classification pipeline run.
func OrderAttributes(orderNumber, classification, carrier string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrOrderNumber, orderNumber),
		attribute.String(AttrClassification, classification),
		attribute.String(AttrCarrier, carrier),
	}
}

// RouteAttributes returns the attributes describing one generated route.
func RouteAttributes(stops, excluded int, distanceKM float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrRouteStops, stops),
		attribute.Int(AttrRouteExcluded, excluded),
		attribute.Float64(AttrRouteDistance, distanceKM),
	}
}

// ProviderAttributes returns the attributes describing one outbound
// geocode/matrix/AI provider call.
func ProviderAttributes(name, kind string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrProviderName, name),
		attribute.String(AttrProviderKind, kind),
	}
}
