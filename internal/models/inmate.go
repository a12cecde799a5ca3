package models

import "time"

// Inmate status values form a closed set.
const (
	InmateStatusActive   = "active"
	InmateStatusOnBail   = "On Bail"
	InmateStatusOnParole = "On Parole"
	InmateStatusReleased = "Released"
	InmateStatusTransfer = "Transfer"
)

// CustodyType classifies an inmate into one of three fixed categories.
type CustodyType string

const (
	CustodyRemandPrison    CustodyType = "REMAND_PRISON"
	CustodyUnderTrial      CustodyType = "UNDER_TRIAL"
	CustodyContemptOfCourt CustodyType = "CONTEMPT_OF_COURT"
)

// CustodyTypes lists all custody categories in the fixed index order used by
// Location.CustodyLimits.
var CustodyTypes = [3]CustodyType{CustodyRemandPrison, CustodyUnderTrial, CustodyContemptOfCourt}

// LimitIndex returns the fixed position of the custody type within a
// location's custody-limit triple.
func (c CustodyType) LimitIndex() (int, bool) {
	for i, t := range CustodyTypes {
		if t == c {
			return i, true
		}
	}
	return 0, false
}

// Inmate is the person-entity whose wallet balance POS purchases draw
// against. InmateID is the business key, distinct from the internal id.
// Balance is mutated only by transaction processing, never directly.
type Inmate struct {
	ID             string      `db:"id" json:"id"`
	InmateID       string      `db:"inmate_id" json:"inmateId"`
	FirstName      string      `db:"first_name" json:"firstName"`
	LastName       string      `db:"last_name" json:"lastName"`
	Status         string      `db:"status" json:"status"`
	CustodyType    CustodyType `db:"custody_type" json:"custodyType"`
	Phone          string      `db:"phone" json:"phone"`
	CellNumber     string      `db:"cell_number" json:"cellNumber"`
	Balance        float64     `db:"balance" json:"balance"`
	Blocked        bool        `db:"blocked" json:"is_blocked"`
	FaceDescriptor Descriptor  `db:"face_descriptor" json:"-"`
	DateOfBirth    *time.Time  `db:"date_of_birth" json:"dateOfBirth,omitempty"`
	AdmissionDate  *time.Time  `db:"admission_date" json:"admissionDate,omitempty"`
	LocationID     *string     `db:"location_id" json:"locationId,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

// InmateFilter encapsulates allowed search parameters for listing inmates.
type InmateFilter struct {
	Search     string
	Status     string
	LocationID string
	Page       int
	PageSize   int
}
