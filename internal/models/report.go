package models

import "time"

// DashboardStats is the aggregate snapshot powering the admin dashboard.
type DashboardStats struct {
	TotalInmates      int     `db:"total_inmates" json:"totalInmates"`
	ActiveInmates     int     `db:"active_inmates" json:"activeInmates"`
	TotalBalance      float64 `db:"total_balance" json:"totalBalance"`
	SalesToday        float64 `db:"sales_today" json:"salesToday"`
	DepositsToday     float64 `db:"deposits_today" json:"depositsToday"`
	TransactionsToday int     `db:"transactions_today" json:"transactionsToday"`
	LowStockItems     int     `db:"low_stock_items" json:"lowStockItems"`
}

// TransactionSummaryRow aggregates ledger activity per day per type.
type TransactionSummaryRow struct {
	Day    time.Time `db:"day" json:"day"`
	Type   string    `db:"type" json:"type"`
	Count  int       `db:"count" json:"count"`
	Amount float64   `db:"amount" json:"amount"`
}

// SalesByItemRow aggregates completed purchase lines per catalog item.
type SalesByItemRow struct {
	ProductID string  `json:"productId"`
	ItemName  string  `json:"itemName"`
	Quantity  int     `json:"quantity"`
	Amount    float64 `json:"amount"`
}

// InmateBalanceRow is one line of the balance report.
type InmateBalanceRow struct {
	InmateID    string  `db:"inmate_id" json:"inmateId"`
	FirstName   string  `db:"first_name" json:"firstName"`
	LastName    string  `db:"last_name" json:"lastName"`
	CustodyType string  `db:"custody_type" json:"custodyType"`
	Status      string  `db:"status" json:"status"`
	Balance     float64 `db:"balance" json:"balance"`
}

// SystemMetrics is an in-band snapshot of operational counters.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	Checkouts                uint64    `json:"checkouts"`
	Deposits                 uint64    `json:"deposits"`
	Reversals                uint64    `json:"reversals"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// ReportRange bounds a report query in time.
type ReportRange struct {
	StartDate *time.Time
	EndDate   *time.Time
}
