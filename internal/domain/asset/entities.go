package asset

import (
	"errors"
	"time"
)

var (
	ErrCollateralNotFound  = errors.New("collateral asset not found")
	ErrAccountNotFound     = errors.New("currency account not found")
	ErrNoteNotFound        = errors.New("note not found")
	ErrNotOwner            = errors.New("caller does not own the asset")
	ErrInsufficientBalance = errors.New("insufficient currency balance")
	ErrNoteBurned          = errors.New("note already burned")
)

// CollateralAsset is a non-fungible asset tracked by external identifier.
// A transfer is an owner update inside the ledger transaction.
type CollateralAsset struct {
	ID        uint64    `gorm:"primaryKey;column:id"`
	AssetID   string    `gorm:"size:64;uniqueIndex:ux_collateral_asset_id"`
	OwnerID   string    `gorm:"size:64;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (CollateralAsset) TableName() string { return "collateral_assets" }

// CurrencyAccount holds a fungible balance per (currency, account) pair,
// persisted as decimal(65,0) to keep smallest-unit precision.
type CurrencyAccount struct {
	ID         uint64    `gorm:"primaryKey;column:id"`
	CurrencyID string    `gorm:"size:64;uniqueIndex:ux_currency_account"`
	AccountID  string    `gorm:"size:64;uniqueIndex:ux_currency_account"`
	Balance    string    `gorm:"type:decimal(65,0);default:'0'"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (CurrencyAccount) TableName() string { return "currency_accounts" }

type NoteKind string

const (
	NoteBorrower NoteKind = "borrower"
	NoteLender   NoteKind = "lender"
)

// Note represents a transferable claim on one side of a loan. The loan id is
// a back-reference for lookup only; the loans table stays authoritative.
type Note struct {
	ID        uint64     `gorm:"primaryKey;column:id"`
	Kind      NoteKind   `gorm:"type:enum('borrower','lender')"`
	OwnerID   string     `gorm:"size:64;index"`
	LoanID    uint64     `gorm:"column:loan_id;index"`
	BurnedAt  *time.Time `gorm:"column:burned_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
}

func (Note) TableName() string { return "notes" }

func (n *Note) Burned() bool { return n.BurnedAt != nil }
