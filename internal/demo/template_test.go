package demo_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdesk/fleet-service/internal/demo"
	"github.com/fleetdesk/fleet-service/internal/models"
)

func TestTemplate_Contents(t *testing.T) {
	template := demo.Template()

	require.Len(t, template, len(demo.SeededResources))
	assert.NotContains(t, template, models.ResourceSpares)
	assert.Len(t, template[models.ResourceCars], 3)
	assert.Len(t, template[models.ResourceFuel], 9)
	assert.Len(t, template[models.ResourceInsurances], 3)
	assert.Len(t, template[models.ResourceInspections], 3)

	car, err := models.DecodeItem[models.Car](template[models.ResourceCars][2])
	require.NoError(t, err)
	assert.Equal(t, models.Car{
		ID:       3,
		Numplate: "В003ВВ",
		Brand:    "Mercedes",
		Title:    "E-Class",
		VIN:      "DEMO1234567890003",
		Driver:   "Demo Driver 3",
		Status:   "ACTIVE",
	}, car)

	fuel, err := models.DecodeItem[models.FuelEntry](template[models.ResourceFuel][4])
	require.NoError(t, err)
	assert.Equal(t, int64(2), fuel.CarID)
	assert.Equal(t, 2025, fuel.Year)
	assert.Equal(t, 12, fuel.Month)
	assert.InDelta(t, 58.5, fuel.Liters, 0.0001)
	assert.Equal(t, json.Number("4680"), template[models.ResourceFuel][4]["total_cost"])

	insurance, err := models.DecodeItem[models.Insurance](template[models.ResourceInsurances][1])
	require.NoError(t, err)
	assert.Equal(t, "DEMO-Б002ББ-OSAGO", insurance.Number)
	assert.InDelta(t, 6500, insurance.Cost, 0)

	inspection, err := models.DecodeItem[models.Inspection](template[models.ResourceInspections][0])
	require.NoError(t, err)
	assert.Equal(t, "2025-08-15", inspection.InspectedAt)
}

func TestTemplate_IsCopiedPerCall(t *testing.T) {
	first := demo.Template()
	first[models.ResourceCars][0]["brand"] = "Mutated"
	first[models.ResourceCars] = first[models.ResourceCars][:1]

	second := demo.Template()
	assert.Len(t, second[models.ResourceCars], 3)
	assert.Equal(t, "Toyota", second[models.ResourceCars][0]["brand"])
}
