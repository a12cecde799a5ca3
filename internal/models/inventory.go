package models

import "time"

// Item status values.
const (
	ItemStatusActive   = "Active"
	ItemStatusInactive = "Inactive"
)

// CanteenItem is the point-of-sale-facing selling tier of the inventory.
// ItemNo is the business key shared with the store tier.
type CanteenItem struct {
	ID            string    `db:"id" json:"_id"`
	ItemNo        string    `db:"item_no" json:"itemNo"`
	ItemName      string    `db:"item_name" json:"itemName"`
	Price         float64   `db:"price" json:"price"`
	StockQuantity int       `db:"stock_quantity" json:"stockQuantity"`
	Category      string    `db:"category" json:"category"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// StoreReceipt records a vendor purchase received into the store tier.
type StoreReceipt struct {
	ID             string    `db:"id" json:"_id"`
	Date           time.Time `db:"date" json:"date"`
	InvoiceNo      string    `db:"invoice_no" json:"invoiceNo"`
	VendorName     string    `db:"vendor_name" json:"vendorName"`
	VendorValue    float64   `db:"vendor_value" json:"vendorValue"`
	GatePassNumber string    `db:"gate_pass_number" json:"gatePassNumber"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`

	Items []StoreItem `db:"-" json:"items"`
}

// StoreItem is a received line within a store receipt. Stock here is the
// vendor-facing tier; quantities leave it only through transfers.
type StoreItem struct {
	ID           string    `db:"id" json:"_id"`
	ReceiptID    string    `db:"receipt_id" json:"-"`
	ItemNo       string    `db:"item_no" json:"itemNo"`
	ItemName     string    `db:"item_name" json:"itemName"`
	Stock        int       `db:"stock" json:"stock"`
	SellingPrice float64   `db:"selling_price" json:"sellingPrice"`
	Category     string    `db:"category" json:"category"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// InventoryFilter captures list parameters shared by both tiers.
type InventoryFilter struct {
	Search    string
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	PageSize  int
}
