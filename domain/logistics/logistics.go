package logistics

import "time"

// Order is one row of orders.csv. Source records are immutable.
type Order struct {
	OrderID               string
	CustomerID            string
	TransportID           string
	OrderDate             time.Time
	EstimatedDeliveryDate time.Time
	ActualDeliveryDate    time.Time
	TotalAmount           float64
	DeliveryStatus        string
	PaymentStatus         string
	SeasonalPeriod        string
	ClaimFlag             bool
}

// Customer is one row of customers.csv. ChurnDate is nil for active customers.
type Customer struct {
	CustomerID       string
	RegistrationDate time.Time
	ChurnDate        *time.Time
	ChurnStatus      string
	SubscriptionType string
}

// TransportMode is one row of transport_mode.csv.
type TransportMode struct {
	TransportID      string
	TransportType    string
	CostPerKm        float64
	CO2EmissionPerKm float64
}

// Claim is one row of claims.csv.
type Claim struct {
	ClaimID            string
	OrderID            string
	ClaimType          string
	ClaimStatus        string
	ClaimDate          time.Time
	ResolutionDate     time.Time
	ClaimAmount        float64
	RefundedAmount     float64
	ResolutionTimeDays float64
}

// Product is one row of products.csv.
type Product struct {
	ProductID                     string
	FragilityClass                string
	TheftAttractivenessScore      float64
	ChristmasPopularityMultiplier float64
}

// OrderProduct is one row of order_product.csv (one order line).
type OrderProduct struct {
	OrderID      string
	ProductID    string
	Quantity     float64
	LineTotal    float64
	ReturnFlag   bool
	RefundAmount float64
}

// RouteLeg is one row of order_route_leg.csv. One order may cross several states.
type RouteLeg struct {
	OrderID            string
	StateCode          string
	EnteredAt          time.Time
	ExitedAt           time.Time
	DistanceKm         float64
	LegDurationHours   float64
	VandalismIncidents int
	TheftIncidentFlag  bool
}

// StateRisk is one row of states_risk.csv (reference data, no KPI consumes it yet).
type StateRisk struct {
	StateCode string
	StateName string
	RiskScore float64
	RiskLevel string
}

// RawTables bundles the eight source tables of one raw-data version.
// Version is a content hash over the source files; two loads over identical
// bytes produce the same version.
type RawTables struct {
	Orders        []Order
	Products      []Product
	StatesRisk    []StateRisk
	TransportMode []TransportMode
	Claims        []Claim
	Customers     []Customer
	OrderProducts []OrderProduct
	RouteLegs     []RouteLeg
	Version       string
}

// EnrichedOrder is the order-centric denormalized row: Order left-joined with
// TransportMode, Customer, one Claim projection and the per-order aggregates of
// order lines and route legs, plus the derived columns. Exactly one row per
// order; absent right-side matches leave amounts/counts at 0 and flags false.
type EnrichedOrder struct {
	// Order
	OrderID               string    `json:"order_id"`
	CustomerID            string    `json:"customer_id"`
	TransportID           string    `json:"transport_id"`
	OrderDate             time.Time `json:"order_date"`
	EstimatedDeliveryDate time.Time `json:"estimated_delivery_date"`
	ActualDeliveryDate    time.Time `json:"actual_delivery_date"`
	TotalAmount           float64   `json:"total_amount"`
	DeliveryStatus        string    `json:"delivery_status"`
	PaymentStatus         string    `json:"payment_status"`
	SeasonalPeriod        string    `json:"seasonal_period"`
	ClaimFlag             bool      `json:"claim_flag"`

	// TransportMode
	TransportType    string  `json:"transport_type"`
	CostPerKm        float64 `json:"cost_per_km"`
	CO2EmissionPerKm float64 `json:"co2_emission_per_km"`

	// Customer
	RegistrationDate time.Time  `json:"registration_date"`
	ChurnDate        *time.Time `json:"churn_date"`
	ChurnStatus      string     `json:"churn_status"`
	SubscriptionType string     `json:"subscription_type"`

	// Claim projection
	ClaimType          string  `json:"claim_type"`
	ClaimStatus        string  `json:"claim_status"`
	ClaimAmount        float64 `json:"claim_amount"`
	RefundedAmount     float64 `json:"refunded_amount"`
	ResolutionTimeDays float64 `json:"resolution_time_days"`

	// Order-line aggregate
	ProductLineTotal       float64 `json:"product_line_total"`
	TotalQuantity          float64 `json:"total_quantity"`
	HasReturn              bool    `json:"has_return"`
	ProductRefundAmount    float64 `json:"product_refund_amount"`
	MainFragilityClass     string  `json:"main_fragility_class"`
	AvgTheftAttractiveness float64 `json:"avg_theft_attractiveness"`
	AvgChristmasMultiplier float64 `json:"avg_christmas_multiplier"`

	// Route-leg aggregate
	TotalVandalism     int      `json:"total_vandalism"`
	HasTheftIncident   bool     `json:"has_theft_incident"`
	TotalDistanceKm    float64  `json:"total_distance_km"`
	TotalDurationHours float64  `json:"total_duration_hours"`
	NbStatesCrossed    int      `json:"nb_states_crossed"`
	StateCodes         []string `json:"state_codes"`

	// Derived
	IsChristmas           bool    `json:"is_christmas"`
	IsDelivered           bool    `json:"is_delivered"`
	HasClaim              bool    `json:"has_claim"`
	IsPaid                bool    `json:"is_paid"`
	OrderYear             int     `json:"order_year"`
	OrderMonth            int     `json:"order_month"`
	OrderWeek             int     `json:"order_week"`
	OrderDay              int     `json:"order_day"`
	OrderWeekday          int     `json:"order_weekday"`
	OrderQuarter          int     `json:"order_quarter"`
	DeliveryDelayDays     int     `json:"delivery_delay_days"`
	IsLate                bool    `json:"is_late"`
	OrderValueCategory    string  `json:"order_value_category"`
	AvgSpeedKmh           float64 `json:"avg_speed_kmh"`
	TransportCostEstimate float64 `json:"transport_cost_estimate"`
	CO2EmissionEstimate   float64 `json:"co2_emission_estimate"`
	TotalLoss             float64 `json:"total_loss"`
	HasAnyIncident        bool    `json:"has_any_incident"`
	TheftRiskCategory     string  `json:"theft_risk_category"`
}
