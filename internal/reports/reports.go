// Package reports aggregates fleet collections into reports: fuel
// consumption, cost summary, maintenance costs, insurance and inspection
// coverage, vehicle utilization and cost analysis. Reports are computed in
// memory over whatever store holds the caller's data, so demo sessions and
// tenants share one code path. Every report renders to a Table for CSV and
// XLSX export.
package reports

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/fleetdesk/fleet-service/internal/models"
)

// Source reads whole collections for one scope (a demo session id or a tenant id).
type Source interface {
	GetAll(ctx context.Context, scope string, rt models.ResourceType) ([]models.Item, error)
}

// Period is a calendar month encoded as year*12 + (month-1). Zero means unbounded.
type Period int

// ParsePeriod accepts "YYYY-MM" or "YYYY-MM-DD". The day is ignored.
func ParsePeriod(raw string) (Period, error) {
	if raw == "" {
		return 0, nil
	}
	parts := strings.Split(raw, "-")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid period %q", raw)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil || year < 1 {
		return 0, fmt.Errorf("invalid period %q", raw)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, fmt.Errorf("invalid period %q", raw)
	}
	return MonthPeriod(year, month), nil
}

// MonthPeriod returns the period of the given year and month.
func MonthPeriod(year, month int) Period {
	return Period(year*12 + month - 1)
}

// Filter narrows the rows a report aggregates. CarID and CarIDs both
// restrict the cars; an empty CarIDs allows every car.
type Filter struct {
	From   Period  `json:"-"`
	To     Period  `json:"-"`
	CarID  int64   `json:"car,omitempty"`
	CarIDs []int64 `json:"cars,omitempty"`
}

func (f Filter) matchesCar(carID int64) bool {
	if f.CarID != 0 && f.CarID != carID {
		return false
	}
	return len(f.CarIDs) == 0 || slices.Contains(f.CarIDs, carID)
}

func (f Filter) matchesPeriod(p Period) bool {
	if f.From != 0 && p < f.From {
		return false
	}
	if f.To != 0 && p > f.To {
		return false
	}
	return true
}

// matchesDate applies the period bounds to an ISO date. Undated rows only
// match an unbounded filter.
func (f Filter) matchesDate(date string) bool {
	if f.From == 0 && f.To == 0 {
		return true
	}
	if len(date) < 7 {
		return false
	}
	p, err := ParsePeriod(date[:7])
	if err != nil {
		return false
	}
	return f.matchesPeriod(p)
}

// FuelRow is one car's line of the fuel consumption report.
type FuelRow struct {
	CarID          int64   `json:"car_id"`
	Numplate       string  `json:"numplate"`
	Brand          string  `json:"brand"`
	TotalLiters    float64 `json:"total_liters"`
	TotalCost      float64 `json:"total_cost"`
	TotalMileage   float64 `json:"total_mileage"`
	AvgConsumption float64 `json:"avg_consumption"`
}

// FuelTotals sums every row of the fuel consumption report.
type FuelTotals struct {
	TotalLiters    float64 `json:"total_liters"`
	TotalCost      float64 `json:"total_cost"`
	TotalMileage   float64 `json:"total_mileage"`
	AvgConsumption float64 `json:"avg_consumption"`
}

// FuelConsumptionReport is the fuel usage of a fleet grouped by car.
type FuelConsumptionReport struct {
	Filters Filter     `json:"filters"`
	Totals  FuelTotals `json:"totals"`
	ByCar   []FuelRow  `json:"by_car"`
	Skipped int        `json:"skipped_rows"`
}

// CostRow is one car's line of the cost summary.
type CostRow struct {
	CarID          int64   `json:"car_id"`
	Numplate       string  `json:"numplate"`
	FuelCost       float64 `json:"fuel_cost"`
	InsuranceCost  float64 `json:"insurance_cost"`
	InspectionCost float64 `json:"inspection_cost"`
	Total          float64 `json:"total"`
}

// CostTotals sums every row of the cost summary.
type CostTotals struct {
	FuelCost       float64 `json:"fuel_cost"`
	InsuranceCost  float64 `json:"insurance_cost"`
	InspectionCost float64 `json:"inspection_cost"`
	Total          float64 `json:"total"`
}

// CostSummaryReport is the running cost of a fleet grouped by car.
type CostSummaryReport struct {
	Filters Filter     `json:"filters"`
	Totals  CostTotals `json:"totals"`
	ByCar   []CostRow  `json:"by_car"`
	Skipped int        `json:"skipped_rows"`
}

// Generator builds reports from a Source.
type Generator struct {
	source Source
	now    func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock replaces time.Now as the reference for coverage status.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// NewGenerator creates a report generator reading from source.
func NewGenerator(source Source, opts ...Option) *Generator {
	g := &Generator{source: source, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// consumption returns liters per 100 km rounded to two decimals.
func consumption(liters, mileage float64) float64 {
	if mileage <= 0 {
		return 0
	}
	return round2(liters / mileage * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// decodeAll converts items into typed records, counting the ones that do not fit.
func decodeAll[T any](items []models.Item) ([]T, int) {
	out := make([]T, 0, len(items))
	skipped := 0
	for _, item := range items {
		record, err := models.DecodeItem[T](item)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, record)
	}
	return out, skipped
}

func (g *Generator) cars(ctx context.Context, scope string) (map[int64]models.Car, int, error) {
	items, err := g.source.GetAll(ctx, scope, models.ResourceCars)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load cars: %w", err)
	}
	cars, skipped := decodeAll[models.Car](items)
	byID := make(map[int64]models.Car, len(cars))
	for _, car := range cars {
		byID[car.ID] = car
	}
	return byID, skipped, nil
}

func (g *Generator) load(ctx context.Context, scope string, rt models.ResourceType) ([]models.Item, error) {
	items, err := g.source.GetAll(ctx, scope, rt)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", rt, err)
	}
	return items, nil
}

// FuelConsumption aggregates fuel rows by car. Rows are ordered by total cost
// descending, then by numplate.
func (g *Generator) FuelConsumption(ctx context.Context, scope string, filter Filter) (*FuelConsumptionReport, error) {
	cars, skippedCars, err := g.cars(ctx, scope)
	if err != nil {
		return nil, err
	}
	items, err := g.load(ctx, scope, models.ResourceFuel)
	if err != nil {
		return nil, err
	}
	entries, skipped := decodeAll[models.FuelEntry](items)

	rows := make(map[int64]*FuelRow)
	report := &FuelConsumptionReport{Filters: filter, Skipped: skipped + skippedCars}
	for _, entry := range entries {
		if !filter.matchesCar(entry.CarID) || !filter.matchesPeriod(MonthPeriod(entry.Year, entry.Month)) {
			continue
		}
		row, ok := rows[entry.CarID]
		if !ok {
			car := cars[entry.CarID]
			row = &FuelRow{CarID: entry.CarID, Numplate: car.Numplate, Brand: car.Brand}
			rows[entry.CarID] = row
		}
		row.TotalLiters += entry.Liters
		row.TotalCost += entry.TotalCost
		row.TotalMileage += entry.MonthlyMileage

		report.Totals.TotalLiters += entry.Liters
		report.Totals.TotalCost += entry.TotalCost
		report.Totals.TotalMileage += entry.MonthlyMileage
	}

	report.ByCar = make([]FuelRow, 0, len(rows))
	for _, row := range rows {
		row.TotalLiters = round2(row.TotalLiters)
		row.AvgConsumption = consumption(row.TotalLiters, row.TotalMileage)
		report.ByCar = append(report.ByCar, *row)
	}
	slices.SortFunc(report.ByCar, func(a, b FuelRow) int {
		return cmp.Or(cmp.Compare(b.TotalCost, a.TotalCost), cmp.Compare(a.Numplate, b.Numplate), cmp.Compare(a.CarID, b.CarID))
	})

	report.Totals.TotalLiters = round2(report.Totals.TotalLiters)
	report.Totals.AvgConsumption = consumption(report.Totals.TotalLiters, report.Totals.TotalMileage)
	return report, nil
}

// CostSummary adds fuel, insurance and inspection spending per car. Fuel rows
// are filtered by their month, insurances by start date and inspections by
// inspection date.
func (g *Generator) CostSummary(ctx context.Context, scope string, filter Filter) (*CostSummaryReport, error) {
	cars, skippedCars, err := g.cars(ctx, scope)
	if err != nil {
		return nil, err
	}
	fuelItems, err := g.load(ctx, scope, models.ResourceFuel)
	if err != nil {
		return nil, err
	}
	insuranceItems, err := g.load(ctx, scope, models.ResourceInsurances)
	if err != nil {
		return nil, err
	}
	inspectionItems, err := g.load(ctx, scope, models.ResourceInspections)
	if err != nil {
		return nil, err
	}

	fuel, skippedFuel := decodeAll[models.FuelEntry](fuelItems)
	insurances, skippedInsurances := decodeAll[models.Insurance](insuranceItems)
	inspections, skippedInspections := decodeAll[models.Inspection](inspectionItems)

	report := &CostSummaryReport{
		Filters: filter,
		Skipped: skippedCars + skippedFuel + skippedInsurances + skippedInspections,
	}
	rows := make(map[int64]*CostRow)
	row := func(carID int64) *CostRow {
		r, ok := rows[carID]
		if !ok {
			r = &CostRow{CarID: carID, Numplate: cars[carID].Numplate}
			rows[carID] = r
		}
		return r
	}

	for _, entry := range fuel {
		if filter.matchesCar(entry.CarID) && filter.matchesPeriod(MonthPeriod(entry.Year, entry.Month)) {
			row(entry.CarID).FuelCost += entry.TotalCost
			report.Totals.FuelCost += entry.TotalCost
		}
	}
	for _, insurance := range insurances {
		if filter.matchesCar(insurance.CarID) && filter.matchesDate(insurance.StartDate) {
			row(insurance.CarID).InsuranceCost += insurance.Cost
			report.Totals.InsuranceCost += insurance.Cost
		}
	}
	for _, inspection := range inspections {
		if filter.matchesCar(inspection.CarID) && filter.matchesDate(inspection.InspectedAt) {
			row(inspection.CarID).InspectionCost += inspection.Cost
			report.Totals.InspectionCost += inspection.Cost
		}
	}

	report.ByCar = make([]CostRow, 0, len(rows))
	for _, r := range rows {
		r.Total = r.FuelCost + r.InsuranceCost + r.InspectionCost
		report.ByCar = append(report.ByCar, *r)
	}
	slices.SortFunc(report.ByCar, func(a, b CostRow) int {
		return cmp.Or(cmp.Compare(b.Total, a.Total), cmp.Compare(a.Numplate, b.Numplate), cmp.Compare(a.CarID, b.CarID))
	})

	report.Totals.Total = report.Totals.FuelCost + report.Totals.InsuranceCost + report.Totals.InspectionCost
	return report, nil
}
