package reports

import (
	"fmt"
	"strconv"
)

// totalLabel marks the summary line closing an exported table.
const totalLabel = "TOTAL"

// Table is the flat rendering of a report used by the exporters. Cells hold
// strings, ints or float64s.
type Table struct {
	Columns []string
	Rows    [][]any
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatCell renders a cell the way the CSV exporter writes it.
func formatCell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return formatNumber(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

// Table renders one line per car and a closing totals line.
func (r *FuelConsumptionReport) Table() Table {
	t := Table{Columns: []string{"Numplate", "Brand", "Liters", "Cost", "Mileage (km)", "Avg consumption (l/100km)"}}
	for _, row := range r.ByCar {
		t.Rows = append(t.Rows, []any{
			row.Numplate, row.Brand, row.TotalLiters, row.TotalCost, row.TotalMileage, row.AvgConsumption,
		})
	}
	t.Rows = append(t.Rows, []any{
		totalLabel, "", r.Totals.TotalLiters, r.Totals.TotalCost, r.Totals.TotalMileage, r.Totals.AvgConsumption,
	})
	return t
}

// Table renders one line per car and a closing totals line.
func (r *CostSummaryReport) Table() Table {
	t := Table{Columns: []string{"Numplate", "Fuel", "Insurance", "Inspection", "Total"}}
	for _, row := range r.ByCar {
		t.Rows = append(t.Rows, []any{row.Numplate, row.FuelCost, row.InsuranceCost, row.InspectionCost, row.Total})
	}
	t.Rows = append(t.Rows, []any{
		totalLabel, r.Totals.FuelCost, r.Totals.InsuranceCost, r.Totals.InspectionCost, r.Totals.Total,
	})
	return t
}

// Table renders one line per car and a closing totals line.
func (r *MaintenanceCostsReport) Table() Table {
	t := Table{Columns: []string{"Numplate", "Parts", "Labour", "Total"}}
	for _, row := range r.ByCar {
		t.Rows = append(t.Rows, []any{row.Numplate, row.PartTotal, row.JobTotal, row.Total})
	}
	t.Rows = append(t.Rows, []any{totalLabel, r.Totals.PartTotal, r.Totals.JobTotal, r.Totals.Total})
	return t
}

// Table renders one line per insurance or inspection.
func (r *InsuranceInspectionReport) Table() Table {
	t := Table{Columns: []string{"Type", "Numplate", "Number", "Start date", "End date", "Cost", "Status"}}
	for _, row := range r.Items {
		t.Rows = append(t.Rows, []any{
			string(row.Type), row.Numplate, row.Number, row.StartDate, row.EndDate, row.Cost, string(row.Status),
		})
	}
	return t
}

// Table renders one line per car and a closing totals line.
func (r *VehicleUtilizationReport) Table() Table {
	t := Table{Columns: []string{"Numplate", "Mileage (km)", "Months", "Avg monthly mileage (km)"}}
	for _, row := range r.ByCar {
		t.Rows = append(t.Rows, []any{row.Numplate, row.TotalMileage, row.Months, row.AvgMonthlyMileage})
	}
	t.Rows = append(t.Rows, []any{totalLabel, r.Summary.TotalMileage, "", ""})
	return t
}

// Table renders one line per car and a closing totals line.
func (r *CostAnalysisReport) Table() Table {
	t := Table{Columns: []string{"Numplate", "Fuel", "Maintenance", "Insurance", "Inspection", "Total"}}
	for _, row := range r.ByCar {
		t.Rows = append(t.Rows, []any{
			row.Numplate, row.FuelCost, row.MaintenanceCost, row.InsuranceCost, row.InspectionCost, row.TotalCost,
		})
	}
	t.Rows = append(t.Rows, []any{
		totalLabel,
		r.Summary.TotalFuelCost,
		r.Summary.TotalMaintenanceCost,
		r.Summary.TotalInsuranceCost,
		r.Summary.TotalInspectionCost,
		r.Summary.GrandTotal,
	})
	return t
}
