package ledger

import (
	"errors"
	"time"
)

// Custody principals. Pulled funds sit in the custody account until a loan
// finalizes; origination fees accumulate separately until withdrawn.
const (
	CustodyAccountID = "loancore_custody"
	FeeAccountID     = "loancore_fees"
)

var (
	ErrInvalidFee = errors.New("origination fee exceeds 10000 basis points")
)

type CreateLoanInput struct {
	DurationSecs    int64  `json:"duration_secs"`
	Principal       string `json:"principal"`
	Interest        string `json:"interest"`
	CollateralID    string `json:"collateral_id"`
	CurrencyID      string `json:"currency_id"`
	NumInstallments uint64 `json:"num_installments"`
}

type LoanDTO struct {
	LoanID            uint64    `json:"loan_id"`
	State             string    `json:"state"`
	DurationSecs      int64     `json:"duration_secs"`
	Principal         string    `json:"principal"`
	Interest          string    `json:"interest"`
	CollateralID      string    `json:"collateral_id"`
	CurrencyID        string    `json:"currency_id"`
	NumInstallments   uint64    `json:"num_installments"`
	StartAt           time.Time `json:"start_at"`
	DueAt             time.Time `json:"due_at"`
	BorrowerNoteID    uint64    `json:"borrower_note_id"`
	LenderNoteID      uint64    `json:"lender_note_id"`
	Balance           string    `json:"balance"`
	BalancePaid       string    `json:"balance_paid"`
	LateFeesAccrued   string    `json:"late_fees_accrued"`
	NumMissedPayments uint64    `json:"num_missed_payments"`
	InstallmentsPaid  uint64    `json:"installments_paid"`
}
