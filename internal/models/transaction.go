package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Transaction types.
const (
	TransactionTypePurchase   = "purchase"
	TransactionTypeDeposit    = "deposit"
	TransactionTypeWithdrawal = "withdrawal"
)

// Transaction status values. Reversal is a state change, never a deletion.
const (
	TransactionStatusCompleted = "completed"
	TransactionStatusReversed  = "reversed"
)

// TransactionProduct is one aggregated line of a purchase.
type TransactionProduct struct {
	ProductID string  `json:"productId"`
	ItemName  string  `json:"itemName"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// TransactionProducts is the JSONB-stored product list.
type TransactionProducts []TransactionProduct

// Value implements driver.Valuer.
func (p TransactionProducts) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner.
func (p *TransactionProducts) Scan(src interface{}) error {
	if src == nil {
		*p = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("transaction products: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, p)
}

// Transaction is an immutable ledger record of a purchase, deposit, or
// withdrawal.
type Transaction struct {
	ID             string              `db:"id" json:"_id"`
	Type           string              `db:"type" json:"type"`
	InmateID       string              `db:"inmate_id" json:"inmateId"`
	TotalAmount    float64             `db:"total_amount" json:"totalAmount"`
	Products       TransactionProducts `db:"products" json:"products,omitempty"`
	DepositType    string              `db:"deposit_type" json:"depositType,omitempty"`
	RelationshipID string              `db:"relationship_id" json:"relationShipId,omitempty"`
	Remarks        string              `db:"remarks" json:"remarks,omitempty"`
	Status         string              `db:"status" json:"status"`
	CreatedBy      *string             `db:"created_by" json:"created_by,omitempty"`
	ReversedAt     *time.Time          `db:"reversed_at" json:"reversed_at,omitempty"`
	CreatedAt      time.Time           `db:"created_at" json:"created_at"`
}

// DepositRequest is the payload crediting an inmate wallet.
type DepositRequest struct {
	InmateID       string  `json:"inmateId" validate:"required"`
	DepositType    string  `json:"depositType" validate:"required"`
	DepositAmount  float64 `json:"depositAmount" validate:"required,gt=0"`
	RelationshipID string  `json:"relationShipId"`
	Remarks        string  `json:"remarks"`
}

// WithdrawalRequest is the payload debiting an inmate wallet, used when
// money is handed back on release or sent out of the facility.
type WithdrawalRequest struct {
	InmateID         string  `json:"inmateId" validate:"required"`
	WithdrawalAmount float64 `json:"withdrawalAmount" validate:"required,gt=0"`
	Remarks          string  `json:"remarks"`
}

// TransactionFilter captures listing parameters.
type TransactionFilter struct {
	Range    string // daily, weekly, monthly
	Type     string
	InmateID string
	Search   string
	Page     int
	PageSize int
}
