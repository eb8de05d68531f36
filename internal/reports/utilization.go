package reports

import (
	"cmp"
	"context"
	"slices"

	"github.com/fleetdesk/fleet-service/internal/models"
)

// UtilizationRow is one car's mileage over the months it reported fuel.
type UtilizationRow struct {
	CarID             int64   `json:"car_id"`
	Numplate          string  `json:"numplate"`
	TotalMileage      float64 `json:"total_mileage"`
	Months            int     `json:"months"`
	AvgMonthlyMileage float64 `json:"avg_monthly_mileage"`
}

// UtilizationSummary sums the vehicle utilization report.
type UtilizationSummary struct {
	TotalVehicles int     `json:"total_vehicles"`
	TotalMileage  float64 `json:"total_mileage"`
}

// VehicleUtilizationReport is the mileage of a fleet grouped by car.
type VehicleUtilizationReport struct {
	Filters Filter             `json:"filters"`
	Summary UtilizationSummary `json:"summary"`
	ByCar   []UtilizationRow   `json:"by_car"`
	Skipped int                `json:"skipped_rows"`
}

// VehicleUtilization sums the monthly mileage of the fuel rows in the
// filter's period per car. Rows are ordered by mileage descending, then by
// numplate.
func (g *Generator) VehicleUtilization(ctx context.Context, scope string, filter Filter) (*VehicleUtilizationReport, error) {
	cars, skippedCars, err := g.cars(ctx, scope)
	if err != nil {
		return nil, err
	}
	items, err := g.load(ctx, scope, models.ResourceFuel)
	if err != nil {
		return nil, err
	}
	entries, skipped := decodeAll[models.FuelEntry](items)

	report := &VehicleUtilizationReport{Filters: filter, Skipped: skipped + skippedCars}
	rows := make(map[int64]*UtilizationRow)
	for _, entry := range entries {
		if !filter.matchesCar(entry.CarID) || !filter.matchesPeriod(MonthPeriod(entry.Year, entry.Month)) {
			continue
		}
		row, ok := rows[entry.CarID]
		if !ok {
			row = &UtilizationRow{CarID: entry.CarID, Numplate: cars[entry.CarID].Numplate}
			rows[entry.CarID] = row
		}
		row.TotalMileage += entry.MonthlyMileage
		row.Months++
		report.Summary.TotalMileage += entry.MonthlyMileage
	}

	report.ByCar = make([]UtilizationRow, 0, len(rows))
	for _, row := range rows {
		row.AvgMonthlyMileage = round2(row.TotalMileage / float64(row.Months))
		report.ByCar = append(report.ByCar, *row)
	}
	slices.SortFunc(report.ByCar, func(a, b UtilizationRow) int {
		return cmp.Or(cmp.Compare(b.TotalMileage, a.TotalMileage), cmp.Compare(a.Numplate, b.Numplate), cmp.Compare(a.CarID, b.CarID))
	})

	report.Summary.TotalVehicles = len(report.ByCar)
	return report, nil
}

// CostAnalysisRow is every kind of spending on one car.
type CostAnalysisRow struct {
	CarID           int64   `json:"car_id"`
	Numplate        string  `json:"numplate"`
	FuelCost        float64 `json:"fuel_cost"`
	MaintenanceCost float64 `json:"maintenance_cost"`
	InsuranceCost   float64 `json:"insurance_cost"`
	InspectionCost  float64 `json:"inspection_cost"`
	TotalCost       float64 `json:"total_cost"`
}

// CostAnalysisSummary sums the cost analysis.
type CostAnalysisSummary struct {
	TotalVehicles        int     `json:"total_vehicles"`
	TotalFuelCost        float64 `json:"total_fuel_cost"`
	TotalMaintenanceCost float64 `json:"total_maintenance_cost"`
	TotalInsuranceCost   float64 `json:"total_insurance_cost"`
	TotalInspectionCost  float64 `json:"total_inspection_cost"`
	GrandTotal           float64 `json:"grand_total"`
}

// CostAnalysisReport breaks the spending of every car of the fleet down by kind.
type CostAnalysisReport struct {
	Filters Filter              `json:"filters"`
	Summary CostAnalysisSummary `json:"summary"`
	ByCar   []CostAnalysisRow   `json:"by_car"`
	Skipped int                 `json:"skipped_rows"`
}

// CostAnalysis lists every car of the fleet matching the filter, including
// cars without spending, ordered by id. Fuel is filtered by month, spares by
// installation date, insurances by start date and inspections by date.
// Spending on cars missing from the fleet is ignored.
func (g *Generator) CostAnalysis(ctx context.Context, scope string, filter Filter) (*CostAnalysisReport, error) {
	cars, skippedCars, err := g.cars(ctx, scope)
	if err != nil {
		return nil, err
	}

	collections := make(map[models.ResourceType][]models.Item, 4)
	for _, rt := range []models.ResourceType{
		models.ResourceFuel, models.ResourceSpares, models.ResourceInsurances, models.ResourceInspections,
	} {
		if collections[rt], err = g.load(ctx, scope, rt); err != nil {
			return nil, err
		}
	}
	fuel, skippedFuel := decodeAll[models.FuelEntry](collections[models.ResourceFuel])
	spares, skippedSpares := decodeAll[models.Spare](collections[models.ResourceSpares])
	insurances, skippedInsurances := decodeAll[models.Insurance](collections[models.ResourceInsurances])
	inspections, skippedInspections := decodeAll[models.Inspection](collections[models.ResourceInspections])

	report := &CostAnalysisReport{
		Filters: filter,
		Skipped: skippedCars + skippedFuel + skippedSpares + skippedInsurances + skippedInspections,
	}
	rows := make(map[int64]*CostAnalysisRow, len(cars))
	for id, car := range cars {
		if filter.matchesCar(id) {
			rows[id] = &CostAnalysisRow{CarID: id, Numplate: car.Numplate}
		}
	}

	for _, entry := range fuel {
		if row, ok := rows[entry.CarID]; ok && filter.matchesPeriod(MonthPeriod(entry.Year, entry.Month)) {
			row.FuelCost += entry.TotalCost
		}
	}
	for _, spare := range spares {
		if row, ok := rows[spare.CarID]; ok && filter.matchesDate(spare.InstalledAt) {
			row.MaintenanceCost += spare.PartPrice + spare.JobPrice
		}
	}
	for _, insurance := range insurances {
		if row, ok := rows[insurance.CarID]; ok && filter.matchesDate(insurance.StartDate) {
			row.InsuranceCost += insurance.Cost
		}
	}
	for _, inspection := range inspections {
		if row, ok := rows[inspection.CarID]; ok && filter.matchesDate(inspection.InspectedAt) {
			row.InspectionCost += inspection.Cost
		}
	}

	report.ByCar = make([]CostAnalysisRow, 0, len(rows))
	for _, row := range rows {
		row.TotalCost = row.FuelCost + row.MaintenanceCost + row.InsuranceCost + row.InspectionCost
		report.ByCar = append(report.ByCar, *row)

		report.Summary.TotalFuelCost += row.FuelCost
		report.Summary.TotalMaintenanceCost += row.MaintenanceCost
		report.Summary.TotalInsuranceCost += row.InsuranceCost
		report.Summary.TotalInspectionCost += row.InspectionCost
		report.Summary.GrandTotal += row.TotalCost
	}
	slices.SortFunc(report.ByCar, func(a, b CostAnalysisRow) int {
		return cmp.Compare(a.CarID, b.CarID)
	})

	report.Summary.TotalVehicles = len(report.ByCar)
	return report, nil
}
