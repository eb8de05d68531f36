package models

// Car is the typed view of a "cars" item.
type Car struct {
	ID       int64  `json:"id"`
	Numplate string `json:"numplate"`
	Brand    string `json:"brand"`
	Title    string `json:"title"`
	VIN      string `json:"vin"`
	Driver   string `json:"driver"`
	Status   string `json:"status"`
}

// FuelEntry is the typed view of a "fuel" item: one car's consumption for a month.
type FuelEntry struct {
	ID             int64   `json:"id"`
	CarID          int64   `json:"car_id"`
	Year           int     `json:"year"`
	Month          int     `json:"month"`
	Liters         float64 `json:"liters"`
	TotalCost      float64 `json:"total_cost"`
	MonthlyMileage float64 `json:"monthly_mileage"`
}

// Insurance is the typed view of an "insurances" item.
type Insurance struct {
	ID            int64   `json:"id"`
	CarID         int64   `json:"car_id"`
	InsuranceType string  `json:"insurance_type"`
	Number        string  `json:"number"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	Cost          float64 `json:"cost"`
}

// Inspection is the typed view of an "inspections" item.
type Inspection struct {
	ID          int64   `json:"id"`
	CarID       int64   `json:"car_id"`
	Number      string  `json:"number"`
	InspectedAt string  `json:"inspected_at"`
	Cost        float64 `json:"cost"`
}

// Spare is the typed view of a "spares" item: a part fitted to a car and the
// labour it took.
type Spare struct {
	ID             int64   `json:"id"`
	CarID          int64   `json:"car_id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	PartPrice      float64 `json:"part_price"`
	JobDescription string  `json:"job_description"`
	JobPrice       float64 `json:"job_price"`
	InstalledAt    string  `json:"installed_at"`
}

// Tire is the typed view of a "tires" item.
type Tire struct {
	ID          int64   `json:"id"`
	CarID       int64   `json:"car_id"`
	Model       string  `json:"model"`
	Size        string  `json:"size"`
	Price       float64 `json:"price"`
	InstalledAt string  `json:"installed_at"`
	ExpiresAt   string  `json:"expires_at"`
}

// Accumulator is the typed view of an "accumulators" item.
type Accumulator struct {
	ID           int64   `json:"id"`
	CarID        int64   `json:"car_id"`
	Model        string  `json:"model"`
	SerialNumber string  `json:"serial_number"`
	Capacity     string  `json:"capacity"`
	Price        float64 `json:"price"`
	InstalledAt  string  `json:"installed_at"`
	ExpiresAt    string  `json:"expires_at"`
}
