package reports

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/fleetdesk/fleet-service/internal/models"
)

const (
	// ExpiringWindow is how close to its end a coverage counts as expiring soon.
	ExpiringWindow = 30 * 24 * time.Hour
	// inspectionValidityDays is how long an inspection stays valid.
	inspectionValidityDays = 365

	dateLayout = "2006-01-02"
)

// CoverageStatus is the state of an insurance or inspection on a given day.
type CoverageStatus string

const (
	StatusActive       CoverageStatus = "active"
	StatusExpiringSoon CoverageStatus = "expiring_soon"
	StatusExpired      CoverageStatus = "expired"
)

// ParseCoverageStatus validates a status filter. The empty string means any status.
func ParseCoverageStatus(raw string) (CoverageStatus, error) {
	switch status := CoverageStatus(raw); status {
	case "", StatusActive, StatusExpiringSoon, StatusExpired:
		return status, nil
	default:
		return "", fmt.Errorf("invalid status %q", raw)
	}
}

// CoverageKind tells insurances and inspections apart in the report.
type CoverageKind string

const (
	KindInsurance  CoverageKind = "insurance"
	KindInspection CoverageKind = "inspection"
)

// CoverageRow is one insurance or inspection with its validity window.
type CoverageRow struct {
	Type      CoverageKind   `json:"type"`
	CarID     int64          `json:"car_id"`
	Numplate  string         `json:"numplate"`
	Number    string         `json:"number"`
	StartDate string         `json:"start_date"`
	EndDate   string         `json:"end_date"`
	Cost      float64        `json:"cost"`
	Status    CoverageStatus `json:"status"`
}

// CoverageSummary counts the report's rows per status.
type CoverageSummary struct {
	Active       int `json:"active"`
	ExpiringSoon int `json:"expiring_soon"`
	Expired      int `json:"expired"`
}

func (s *CoverageSummary) add(status CoverageStatus) {
	switch status {
	case StatusActive:
		s.Active++
	case StatusExpiringSoon:
		s.ExpiringSoon++
	case StatusExpired:
		s.Expired++
	}
}

// InsuranceInspectionReport lists insurances and inspections by end date.
type InsuranceInspectionReport struct {
	Filters Filter          `json:"filters"`
	Status  CoverageStatus  `json:"status,omitempty"`
	Summary CoverageSummary `json:"summary"`
	Items   []CoverageRow   `json:"items"`
	Skipped int             `json:"skipped_rows"`
}

// coverageStatus classifies end against today.
func coverageStatus(end, today time.Time) CoverageStatus {
	switch {
	case end.Before(today):
		return StatusExpired
	case !end.After(today.Add(ExpiringWindow)):
		return StatusExpiringSoon
	default:
		return StatusActive
	}
}

// InsuranceInspection reports every insurance and inspection of the filter's
// cars with its status as of today. An inspection is valid for a year from
// its date. Period bounds do not apply; status narrows the rows when set.
// Rows with unparseable dates are skipped.
func (g *Generator) InsuranceInspection(
	ctx context.Context,
	scope string,
	filter Filter,
	status CoverageStatus,
) (*InsuranceInspectionReport, error) {
	cars, skippedCars, err := g.cars(ctx, scope)
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
	insurances, skippedInsurances := decodeAll[models.Insurance](insuranceItems)
	inspections, skippedInspections := decodeAll[models.Inspection](inspectionItems)

	now := g.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	report := &InsuranceInspectionReport{
		Filters: filter,
		Status:  status,
		Items:   []CoverageRow{},
		Skipped: skippedCars + skippedInsurances + skippedInspections,
	}
	add := func(row CoverageRow, end time.Time) {
		row.Numplate = cars[row.CarID].Numplate
		row.Status = coverageStatus(end, today)
		if status != "" && row.Status != status {
			return
		}
		report.Summary.add(row.Status)
		report.Items = append(report.Items, row)
	}

	for _, insurance := range insurances {
		if !filter.matchesCar(insurance.CarID) {
			continue
		}
		end, err := time.Parse(dateLayout, insurance.EndDate)
		if err != nil {
			report.Skipped++
			continue
		}
		add(CoverageRow{
			Type:      KindInsurance,
			CarID:     insurance.CarID,
			Number:    insurance.Number,
			StartDate: insurance.StartDate,
			EndDate:   insurance.EndDate,
			Cost:      insurance.Cost,
		}, end)
	}

	for _, inspection := range inspections {
		if !filter.matchesCar(inspection.CarID) {
			continue
		}
		inspected, err := time.Parse(dateLayout, inspection.InspectedAt)
		if err != nil {
			report.Skipped++
			continue
		}
		end := inspected.AddDate(0, 0, inspectionValidityDays)
		add(CoverageRow{
			Type:      KindInspection,
			CarID:     inspection.CarID,
			Number:    inspection.Number,
			StartDate: inspection.InspectedAt,
			EndDate:   end.Format(dateLayout),
			Cost:      inspection.Cost,
		}, end)
	}

	slices.SortFunc(report.Items, func(a, b CoverageRow) int {
		return cmp.Or(
			cmp.Compare(a.EndDate, b.EndDate),
			cmp.Compare(a.Type, b.Type),
			cmp.Compare(a.CarID, b.CarID),
			cmp.Compare(a.Number, b.Number),
		)
	})
	return report, nil
}
