// models/item_borrowing.go
package models

import (
	"encoding/json"
	"time"
)

const ItemTable = "tkj_items"
const BorrowingTable = "tkj_borrowings"

type BorrowingStatus string

const (
	StatusBorrowed BorrowingStatus = "Borrowed"
	StatusReturned BorrowingStatus = "Returned"
)

func (s BorrowingStatus) Valid() bool {
	return s == StatusBorrowed || s == StatusReturned
}

type Item struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Code         string    `gorm:"size:64;uniqueIndex;not null" json:"code"` // immutable after create
	Name         string    `gorm:"size:200;not null" json:"name"`
	TotalStock   int       `gorm:"not null;default:0;check:chk_items_total_stock,total_stock >= 0" json:"totalStock"`
	LentQuantity int       `gorm:"not null;default:0;check:chk_items_lent_range,lent_quantity >= 0 AND lent_quantity <= total_stock" json:"lentQuantity"`
	Photo        *string   `gorm:"size:500" json:"photo,omitempty"`
	Notes        *string   `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Available is never stored.
func (it Item) Available() int { return it.TotalStock - it.LentQuantity }

func (it Item) MarshalJSON() ([]byte, error) {
	type plain Item
	return json.Marshal(struct {
		plain
		Available int `json:"available"`
	}{plain(it), it.Available()})
}

type Borrowing struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Code            string          `gorm:"size:32;uniqueIndex;not null" json:"code"`
	ItemID          uint            `gorm:"index;not null" json:"itemId"`
	BorrowerName    string          `gorm:"size:200;not null" json:"borrowerName"`
	Contact         *string         `gorm:"size:100" json:"contact,omitempty"`
	Purpose         string          `gorm:"type:text;not null" json:"purpose"`
	Staff           string          `gorm:"size:200;not null" json:"staff"` // accompanying staff member
	Quantity        int             `gorm:"not null;check:chk_borrowings_quantity,quantity > 0" json:"quantity"`
	CredentialPhoto *string         `gorm:"size:500" json:"credentialPhoto,omitempty"`
	SignaturePhoto  *string         `gorm:"size:500" json:"signaturePhoto,omitempty"`
	LoanAt          time.Time       `gorm:"index;not null" json:"loanAt"`
	ReturnAt        *time.Time      `gorm:"check:chk_borrowings_status_return,(status = 'Borrowed' AND return_at IS NULL) OR (status = 'Returned' AND return_at IS NOT NULL)" json:"returnAt,omitempty"`
	Status          BorrowingStatus `gorm:"size:20;not null;default:'Borrowed'" json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func (Item) TableName() string      { return ItemTable }
func (Borrowing) TableName() string { return BorrowingTable }
