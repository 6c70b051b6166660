package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logistics/internal/geo"
	"logistics/internal/window"
)

func TestMaterialize_AccumulatesMinutesAndKm(t *testing.T) {
	depot := geo.Depot()
	params := CreateRouteParams{
		Depot: depot,
		Stops: []StopInput{
			{RemitoID: 1, Numero: "REM-1", Lat: depot.Lat + 0.01, Lng: depot.Lng, VentanaTipo: window.TagNone},
			{RemitoID: 2, Numero: "REM-2", Lat: depot.Lat + 0.02, Lng: depot.Lng, VentanaTipo: window.TagNone},
		},
		Matrix: [][]float64{
			{0, 5, 15},
			{5, 0, 8},
			{15, 8, 0},
		},
		ServiceMinutes: 10,
	}

	stops, totalKm, totalMin := materialize(params)

	require.Len(t, stops, 2)
	assert.Equal(t, 1, stops[0].Orden)
	assert.Equal(t, 5.0, stops[0].MinutosDesdeAnterior)
	assert.Equal(t, 15.0, stops[0].MinutosAcumulados) // 5 travel + 10 service
	assert.Equal(t, 8.0, stops[1].MinutosDesdeAnterior)
	assert.Equal(t, 33.0, stops[1].MinutosAcumulados) // 15 + 8 travel + 10 service
	assert.Greater(t, totalKm, 0.0)
	assert.Greater(t, totalMin, stops[1].MinutosAcumulados) // includes the return-to-depot leg
}

func TestMaterialize_EmptyCandidateSet(t *testing.T) {
	depot := geo.Depot()
	stops, totalKm, totalMin := materialize(CreateRouteParams{Depot: depot})
	assert.Empty(t, stops)
	assert.Zero(t, totalKm)
	assert.Zero(t, totalMin)
}

func TestBuildRouteLine_StartsAndEndsAtDepot(t *testing.T) {
	depot := geo.Point{Lat: -32.9, Lng: -68.8}
	stops := []geo.Point{{Lat: -32.91, Lng: -68.81}}

	line := buildRouteLine(depot, stops)

	require.Len(t, line, 3)
	assert.Equal(t, routeLinePoint{depot.Lng, depot.Lat}, line[0])
	assert.Equal(t, routeLinePoint{depot.Lng, depot.Lat}, line[2])
}

func TestRoutesRepo_Create_EmptyCandidateSetStillPersists(t *testing.T) {
	mock, adapter := newMockDB(t)
	defer mock.Close()
	repo := NewRoutesRepo(adapter)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO rutas`).WillReturnRows(
		pgxmock.NewRows([]string{
			"id", "fecha", "status", "config_snapshot", "deposito_lat", "deposito_lng",
			"total_paradas", "total_excluidos", "total_km", "total_minutos", "deeplinks", "route_line", "created_at", "updated_at",
		}).AddRow(
			int64(1), now, "generating", []byte(`{}`), geo.DepotLat, geo.DepotLng,
			0, 1, 0.0, 0.0, aliasesArray([]string{}), []byte(`[]`), now, now,
		))
	mock.ExpectQuery(`INSERT INTO ruta_excluidos`).WillReturnRows(
		pgxmock.NewRows([]string{"id", "remito_id", "numero_snapshot", "lat_snapshot", "lng_snapshot", "reason", "created_at"}).
			AddRow(int64(1), int64(9), "REM-9", geo.DepotLat, geo.DepotLng, "distancia_maxima(45)", now))
	mock.ExpectCommit()

	result, err := repo.Create(context.Background(), CreateRouteParams{
		Depot:    geo.Depot(),
		Excluded: []ExclusionInput{{RemitoID: 9, Numero: "REM-9", Reason: "distancia_maxima(45)"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalParadas)
	assert.Equal(t, 1, result.TotalExcluidos)
	require.Len(t, result.Exclusions, 1)
	assert.Equal(t, "REM-9", result.Exclusions[0].Numero)
	assert.NoError(t, mock.ExpectationsWereMet())
}
