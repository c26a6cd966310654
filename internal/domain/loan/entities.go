package loan

import (
	"errors"
	"math/big"
	"time"
)

type State string

const (
	StateCreated   State = "created"
	StateActive    State = "active"
	StateRepaid    State = "repaid"
	StateDefaulted State = "defaulted"
)

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool { return s == StateRepaid || s == StateDefaulted }

var (
	ErrNotFound         = errors.New("loan not found")
	ErrInvalidState     = errors.New("loan is not in a valid state for this operation")
	ErrCollateralInUse  = errors.New("collateral already backs an open loan")
	ErrInvalidTerms     = errors.New("invalid loan terms")
	ErrNotExpired       = errors.New("loan is not past its due date")
	ErrPaused           = errors.New("protocol is paused")
	ErrMissedCountStale = errors.New("missed payment count does not match the current period")
	ErrInvalidAmount    = errors.New("amount must be a non-negative integer")
)

// Loan is the authoritative ledger record. Terms columns are immutable after
// creation; the running totals only move inside ledger transactions. Amounts
// are big integers in the smallest currency unit, persisted as decimal(65,0).
type Loan struct {
	ID    uint64 `gorm:"primaryKey;column:id" json:"loan_id"`
	State State  `gorm:"type:enum('created','active','repaid','defaulted');default:'created';index:idx_loans_collateral_state" json:"state"`

	// Immutable terms.
	DurationSecs    int64     `gorm:"column:duration_secs" json:"duration_secs"`
	Principal       string    `gorm:"type:decimal(65,0)" json:"principal"`
	Interest        string    `gorm:"type:decimal(65,0)" json:"interest"`
	CollateralID    string    `gorm:"size:64;index:idx_loans_collateral_state" json:"collateral_id"`
	CurrencyID      string    `gorm:"size:64" json:"currency_id"`
	NumInstallments uint64    `gorm:"column:num_installments" json:"num_installments"`
	StartAt         time.Time `gorm:"column:start_at" json:"start_at"`
	DueAt           time.Time `gorm:"column:due_at" json:"due_at"`

	// Running accounting.
	BorrowerNoteID    uint64 `gorm:"column:borrower_note_id" json:"borrower_note_id"`
	LenderNoteID      uint64 `gorm:"column:lender_note_id" json:"lender_note_id"`
	Balance           string `gorm:"type:decimal(65,0)" json:"balance"`
	BalancePaid       string `gorm:"type:decimal(65,0)" json:"balance_paid"`
	LateFeesAccrued   string `gorm:"type:decimal(65,0)" json:"late_fees_accrued"`
	NumMissedPayments uint64 `gorm:"column:num_missed_payments" json:"num_missed_payments"`
	InstallmentsPaid  uint64 `gorm:"column:installments_paid" json:"installments_paid"`

	StateUpdatedAt time.Time `gorm:"autoCreateTime" json:"state_updated_at"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Loan) TableName() string { return "loans" }

// ParseAmount converts a decimal string column into a big integer. Rejects
// negatives and non-numeric input.
func ParseAmount(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	return v, nil
}

// MustAmount is ParseAmount for columns the ledger itself wrote.
func MustAmount(s string) *big.Int {
	v, err := ParseAmount(s)
	if err != nil {
		panic("corrupt amount column: " + s)
	}
	return v
}

// FormatAmount renders a big integer for a decimal(65,0) column.
func FormatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func (l *Loan) BalanceAmount() *big.Int     { return MustAmount(l.Balance) }
func (l *Loan) PrincipalAmount() *big.Int   { return MustAmount(l.Principal) }
func (l *Loan) InterestAmount() *big.Int    { return MustAmount(l.Interest) }
func (l *Loan) BalancePaidAmount() *big.Int { return MustAmount(l.BalancePaid) }
func (l *Loan) LateFeesAmount() *big.Int    { return MustAmount(l.LateFeesAccrued) }
