package models

// GenerateReportRequest is the body of POST /reports/generate.
type GenerateReportRequest struct {
	ReportType string `json:"report_type"`
	// FromDate and ToDate are inclusive YYYY-MM-DD days.
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
	// CarIDs restricts the report to these cars; null or empty means every car.
	CarIDs  []int64       `json:"car_ids"`
	Filters ReportFilters `json:"filters"`
	// ExportFormat is "json" (default), "csv" or "xlsx".
	ExportFormat string `json:"export_format"`
}

// ReportFilters holds the report-specific filters of a generate request.
type ReportFilters struct {
	// Status narrows the insurance_inspection report to one coverage status.
	Status string `json:"status"`
}
