package reports

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Type names a report the generic generator can build.
type Type string

const (
	TypeFuelConsumption     Type = "fuel_consumption"
	TypeMaintenanceCosts    Type = "maintenance_costs"
	TypeInsuranceInspection Type = "insurance_inspection"
	TypeVehicleUtilization  Type = "vehicle_utilization"
	TypeCostAnalysis        Type = "cost_analysis"
)

// Types lists every report type Generate accepts.
var Types = []Type{
	TypeFuelConsumption,
	TypeMaintenanceCosts,
	TypeInsuranceInspection,
	TypeVehicleUtilization,
	TypeCostAnalysis,
}

// ErrUnknownType is returned by Generate for a report type it cannot build.
var ErrUnknownType = errors.New("unknown report type")

// Request describes a report built by Generate. From and To are inclusive
// days; reports filter at month granularity. An empty CarIDs selects every car.
type Request struct {
	Type   Type
	From   time.Time
	To     time.Time
	CarIDs []int64
	// Status narrows the insurance_inspection report.
	Status CoverageStatus
}

// Result is a generated report. Data holds the report's rows and Summary its
// totals; Table is the export rendering of the same report.
type Result struct {
	ReportType Type   `json:"report_type"`
	FromDate   string `json:"from_date"`
	ToDate     string `json:"to_date"`
	Data       any    `json:"data"`
	Summary    any    `json:"summary"`
	Table      Table  `json:"-"`
}

// Generate builds the report named by req.Type.
func (g *Generator) Generate(ctx context.Context, scope string, req Request) (*Result, error) {
	filter := Filter{
		From:   MonthPeriod(req.From.Year(), int(req.From.Month())),
		To:     MonthPeriod(req.To.Year(), int(req.To.Month())),
		CarIDs: req.CarIDs,
	}
	result := &Result{
		ReportType: req.Type,
		FromDate:   req.From.Format(dateLayout),
		ToDate:     req.To.Format(dateLayout),
	}

	switch req.Type {
	case TypeFuelConsumption:
		report, err := g.FuelConsumption(ctx, scope, filter)
		if err != nil {
			return nil, err
		}
		result.Data, result.Summary, result.Table = report.ByCar, report.Totals, report.Table()
	case TypeMaintenanceCosts:
		report, err := g.MaintenanceCosts(ctx, scope, filter)
		if err != nil {
			return nil, err
		}
		result.Data, result.Summary, result.Table = report.ByCar, report.Totals, report.Table()
	case TypeInsuranceInspection:
		report, err := g.InsuranceInspection(ctx, scope, filter, req.Status)
		if err != nil {
			return nil, err
		}
		result.Data, result.Summary, result.Table = report.Items, report.Summary, report.Table()
	case TypeVehicleUtilization:
		report, err := g.VehicleUtilization(ctx, scope, filter)
		if err != nil {
			return nil, err
		}
		result.Data, result.Summary, result.Table = report.ByCar, report.Summary, report.Table()
	case TypeCostAnalysis:
		report, err := g.CostAnalysis(ctx, scope, filter)
		if err != nil {
			return nil, err
		}
		result.Data, result.Summary, result.Table = report.ByCar, report.Summary, report.Table()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, req.Type)
	}

	return result, nil
}
