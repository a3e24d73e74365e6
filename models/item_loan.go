// models/item_loan.go
package models

import "time"

const AssetTable = "lsb_assets"
const LoanTable = "lsb_loan_records"
const SequenceTable = "lsb_barcode_sequences"

type AssetStatus string

const (
	AssetAvailable   AssetStatus = "Available"
	AssetUnavailable AssetStatus = "Unavailable"
	AssetBorrowed    AssetStatus = "Borrowed"
	AssetArchived    AssetStatus = "Archived"
)

type AssetCondition string

const (
	ConditionNew         AssetCondition = "New"
	ConditionGood        AssetCondition = "Good"
	ConditionRefurbished AssetCondition = "Refurbished"
	ConditionNeedRepair  AssetCondition = "NeedRepair"
	ConditionDefective   AssetCondition = "Defective"
)

func (c AssetCondition) Valid() bool {
	switch c {
	case ConditionNew, ConditionGood, ConditionRefurbished, ConditionNeedRepair, ConditionDefective:
		return true
	}
	return false
}

type LoanStatus string

const (
	LoanPending   LoanStatus = "Pending"
	LoanReserved  LoanStatus = "Reserved"
	LoanBorrowed  LoanStatus = "Borrowed"
	LoanReturned  LoanStatus = "Returned"
	LoanCancelled LoanStatus = "Cancelled"
)

// ActiveLoanStatuses are the non-terminal statuses; at most one loan per asset may hold one.
var ActiveLoanStatuses = []LoanStatus{LoanPending, LoanReserved, LoanBorrowed}

func (s LoanStatus) Terminal() bool { return s == LoanReturned || s == LoanCancelled }

func (s LoanStatus) Valid() bool {
	switch s {
	case LoanPending, LoanReserved, LoanBorrowed, LoanReturned, LoanCancelled:
		return true
	}
	return false
}

type Asset struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	Serial    string         `gorm:"size:120;uniqueIndex;not null" json:"serial"`
	Barcode   string         `gorm:"size:140;uniqueIndex;not null" json:"barcode"` // ITEM-<serial>
	Name      string         `gorm:"size:200;not null" json:"name"`
	Category  string         `gorm:"size:80" json:"category"`
	Status    AssetStatus    `gorm:"size:20;not null;default:'Available'" json:"status"`
	Condition AssetCondition `gorm:"size:20;not null;default:'Good'" json:"condition"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type BorrowerKind string

const (
	BorrowerUser  BorrowerKind = "User"
	BorrowerGuest BorrowerKind = "Guest"
)

// Borrower is either a registered user (UserID) or a guest (GuestName/GuestContact),
// discriminated by Kind.
type Borrower struct {
	Kind         BorrowerKind `gorm:"column:borrower_kind;size:10;not null" json:"kind"`
	UserID       *string      `gorm:"column:user_id;type:uuid;index" json:"userId,omitempty"`
	GuestName    string       `gorm:"column:guest_name;size:200" json:"guestName,omitempty"`
	GuestContact string       `gorm:"column:guest_contact;size:200" json:"guestContact,omitempty"`
}

type LoanRecord struct {
	ID       string     `gorm:"type:uuid;primaryKey" json:"id"`
	AssetID  string     `gorm:"type:uuid;index;not null" json:"assetId"`
	Borrower Borrower   `gorm:"embedded" json:"borrower"`
	Barcode  string     `gorm:"size:32;uniqueIndex;not null" json:"barcode"` // LENT-YYYYMMDD-NNN
	Status   LoanStatus `gorm:"size:20;index;not null" json:"status"`

	LentAt      *time.Time `json:"lentAt,omitempty"`
	ReservedFor *time.Time `gorm:"index" json:"reservedFor,omitempty"`
	ReturnedAt  *time.Time `json:"returnedAt,omitempty"`

	IsHiddenFromUser bool      `gorm:"not null;default:false" json:"isHiddenFromUser"`
	Note             string    `gorm:"size:255" json:"note,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// BarcodeSequence is the per-day loan barcode counter.
type BarcodeSequence struct {
	Day       string `gorm:"size:8;primaryKey"`
	Value     int    `gorm:"not null"`
	UpdatedAt time.Time
}

func (Asset) TableName() string           { return AssetTable }
func (LoanRecord) TableName() string      { return LoanTable }
func (BarcodeSequence) TableName() string { return SequenceTable }
