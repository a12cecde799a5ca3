package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// CustodyLimit holds per-custody-class deposit and spend ceilings.
type CustodyLimit struct {
	DepositLimit float64 `json:"depositLimit"`
	SpendLimit   float64 `json:"spendLimit"`
}

// CustodyLimits is the fixed triple [REMAND_PRISON, UNDER_TRIAL,
// CONTEMPT_OF_COURT], stored as JSONB.
type CustodyLimits []CustodyLimit

// Value implements driver.Valuer.
func (l CustodyLimits) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *CustodyLimits) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("custody limits: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, l)
}

// ForCustody returns the limit pair for the given custody type.
func (l CustodyLimits) ForCustody(c CustodyType) (CustodyLimit, bool) {
	idx, ok := c.LimitIndex()
	if !ok || idx >= len(l) {
		return CustodyLimit{}, false
	}
	return l[idx], true
}

// Location is a facility against which admin actions are scoped.
type Location struct {
	ID            string        `db:"id" json:"_id"`
	Name          string        `db:"name" json:"name"`
	LocationName  string        `db:"location_name" json:"locationName"`
	BaseURL       string        `db:"base_url" json:"baseUrl"`
	CustodyLimits CustodyLimits `db:"custody_limits" json:"custodyLimits"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// ClientScope holds the per-user facility-scoped selections persisted across
// sessions: the operating location and the device backup path. Logout tears
// the whole record down in one operation.
type ClientScope struct {
	SelectedLocationID string `json:"selected_location_id,omitempty"`
	BackupPath         string `json:"backup_path,omitempty"`
}
