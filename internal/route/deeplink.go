package route

import (
	"fmt"
	"net/url"
	"strings"

	"logistics/internal/geo"
)

// BuildGmapsLinks chunks an ordered list of stops into Google Maps
// "dir" deep links, respecting the API's waypoint cap per link. Each
// link's origin is the depot (first chunk) or the previous chunk's last
// stop; its destination is the chunk's last stop, unless it's the final
// chunk, whose destination is the depot (closing the loop back to the
// warehouse).
func BuildGmapsLinks(stops []geo.Point, depot geo.Point, maxWaypoints int) []string {
	if maxWaypoints <= 0 {
		maxWaypoints = geo.MaxGmapsStops
	}
	if len(stops) == 0 {
		return nil
	}

	var links []string
	origin := depot
	for start := 0; start < len(stops); start += maxWaypoints {
		end := start + maxWaypoints
		if end > len(stops) {
			end = len(stops)
		}
		chunk := stops[start:end]
		isLast := end >= len(stops)

		var destination geo.Point
		var waypoints []geo.Point
		if isLast {
			destination = depot
			waypoints = chunk
		} else {
			destination = chunk[len(chunk)-1]
			waypoints = chunk[:len(chunk)-1]
		}

		links = append(links, buildLink(origin, destination, waypoints))
		origin = destination
	}

	return links
}

func buildLink(origin, destination geo.Point, waypoints []geo.Point) string {
	q := url.Values{}
	q.Set("api", "1")
	q.Set("origin", fmt.Sprintf("%f,%f", origin.Lat, origin.Lng))
	q.Set("destination", fmt.Sprintf("%f,%f", destination.Lat, destination.Lng))
	if len(waypoints) > 0 {
		parts := make([]string, len(waypoints))
		for i, w := range waypoints {
			parts[i] = fmt.Sprintf("%f,%f", w.Lat, w.Lng)
		}
		q.Set("waypoints", strings.Join(parts, "|"))
	}
	return "https://www.google.com/maps/dir/?" + q.Encode()
}
