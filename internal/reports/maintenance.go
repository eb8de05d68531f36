package reports

import (
	"cmp"
	"context"
	"slices"

	"github.com/fleetdesk/fleet-service/internal/models"
)

// MaintenanceRow is one car's line of the maintenance costs report.
type MaintenanceRow struct {
	CarID     int64   `json:"car_id"`
	Numplate  string  `json:"numplate"`
	PartTotal float64 `json:"part_total"`
	JobTotal  float64 `json:"job_total"`
	Total     float64 `json:"total"`
}

// MaintenanceTotals sums every row of the maintenance costs report.
type MaintenanceTotals struct {
	PartTotal float64 `json:"part_total"`
	JobTotal  float64 `json:"job_total"`
	Total     float64 `json:"total"`
}

// MaintenanceCostsReport is the spare part and labour spending grouped by car.
type MaintenanceCostsReport struct {
	Filters Filter            `json:"filters"`
	Totals  MaintenanceTotals `json:"totals"`
	ByCar   []MaintenanceRow  `json:"by_car"`
	Skipped int               `json:"skipped_rows"`
}

// MaintenanceCosts sums part and job prices of the spares installed in the
// filter's period. Rows are ordered by total descending, then by numplate.
func (g *Generator) MaintenanceCosts(ctx context.Context, scope string, filter Filter) (*MaintenanceCostsReport, error) {
	cars, skippedCars, err := g.cars(ctx, scope)
	if err != nil {
		return nil, err
	}
	items, err := g.load(ctx, scope, models.ResourceSpares)
	if err != nil {
		return nil, err
	}
	spares, skipped := decodeAll[models.Spare](items)

	report := &MaintenanceCostsReport{Filters: filter, Skipped: skipped + skippedCars}
	rows := make(map[int64]*MaintenanceRow)
	for _, spare := range spares {
		if !filter.matchesCar(spare.CarID) || !filter.matchesDate(spare.InstalledAt) {
			continue
		}
		row, ok := rows[spare.CarID]
		if !ok {
			row = &MaintenanceRow{CarID: spare.CarID, Numplate: cars[spare.CarID].Numplate}
			rows[spare.CarID] = row
		}
		row.PartTotal += spare.PartPrice
		row.JobTotal += spare.JobPrice

		report.Totals.PartTotal += spare.PartPrice
		report.Totals.JobTotal += spare.JobPrice
	}

	report.ByCar = make([]MaintenanceRow, 0, len(rows))
	for _, row := range rows {
		row.Total = row.PartTotal + row.JobTotal
		report.ByCar = append(report.ByCar, *row)
	}
	slices.SortFunc(report.ByCar, func(a, b MaintenanceRow) int {
		return cmp.Or(cmp.Compare(b.Total, a.Total), cmp.Compare(a.Numplate, b.Numplate), cmp.Compare(a.CarID, b.CarID))
	})

	report.Totals.Total = report.Totals.PartTotal + report.Totals.JobTotal
	return report, nil
}
