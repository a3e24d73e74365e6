package models

import "time"

// Archived rows live in their own tables with no foreign keys back to the live
// store. OriginalID is a lookup-only reference; the live row is usually gone.

type ArchivedAsset struct {
	ID         string `gorm:"type:uuid;primaryKey" json:"id"`
	OriginalID string `gorm:"type:uuid;index;not null" json:"originalId"`

	Serial    string         `gorm:"size:120;index;not null" json:"serial"`
	Barcode   string         `gorm:"size:140;not null" json:"barcode"`
	Name      string         `gorm:"size:200;not null" json:"name"`
	Category  string         `gorm:"size:80" json:"category"`
	Status    AssetStatus    `gorm:"size:20;not null" json:"status"`
	Condition AssetCondition `gorm:"size:20;not null" json:"condition"`

	OriginalCreatedAt time.Time `json:"originalCreatedAt"`
	ArchivedAt        time.Time `gorm:"index;not null" json:"archivedAt"`
}

type ArchivedLoanRecord struct {
	ID         string `gorm:"type:uuid;primaryKey" json:"id"`
	OriginalID string `gorm:"type:uuid;index;not null" json:"originalId"`

	AssetID    string `gorm:"type:uuid;index;not null" json:"assetId"`
	ItemName   string `gorm:"size:200" json:"itemName"`
	ItemSerial string `gorm:"size:120" json:"itemSerial"`

	Borrower         Borrower `gorm:"embedded" json:"borrower"`
	BorrowerFullName string   `gorm:"size:255" json:"borrowerFullName"`

	Barcode     string     `gorm:"size:32;index;not null" json:"barcode"`
	Status      LoanStatus `gorm:"size:20;not null" json:"status"`
	LentAt      *time.Time `json:"lentAt,omitempty"`
	ReservedFor *time.Time `json:"reservedFor,omitempty"`
	ReturnedAt  *time.Time `json:"returnedAt,omitempty"`

	IsHiddenFromUser  bool      `json:"isHiddenFromUser"`
	Note              string    `gorm:"size:255" json:"note,omitempty"`
	OriginalCreatedAt time.Time `json:"originalCreatedAt"`
	ArchivedAt        time.Time `gorm:"index;not null" json:"archivedAt"`
}

type ArchivedUser struct {
	ID         string `gorm:"type:uuid;primaryKey" json:"id"`
	OriginalID string `gorm:"type:uuid;index;not null" json:"originalId"`

	Username      string   `gorm:"size:255;not null" json:"username"`
	FullName      string   `gorm:"size:255;not null" json:"fullName"`
	Role          Role     `gorm:"size:20;not null" json:"role"`
	StudentNumber string   `gorm:"size:40" json:"studentNumber,omitempty"`
	Department    string   `gorm:"size:120" json:"department,omitempty"`
	Presence      Presence `gorm:"size:10;not null" json:"presence"`

	OriginalCreatedAt time.Time `json:"originalCreatedAt"`
	ArchivedAt        time.Time `gorm:"index;not null" json:"archivedAt"`
}

func (ArchivedAsset) TableName() string      { return "lsb_archived_assets" }
func (ArchivedLoanRecord) TableName() string { return "lsb_archived_loan_records" }
func (ArchivedUser) TableName() string       { return "lsb_archived_users" }
