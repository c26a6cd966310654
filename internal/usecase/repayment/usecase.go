// Package repayment is the note-holder facing façade over the ledger: it
// resolves a note into its loan, computes what is owed at the current time,
// and hands the ledger amounts it can pull in one transaction.
package repayment

import (
	"context"
	"errors"
	"math/big"
	"time"

	"loanledger-backend/internal/domain/asset"
	domainLoan "loanledger-backend/internal/domain/loan"
	"loanledger-backend/internal/usecase/ledger"
	"loanledger-backend/pkg/amortize"

	"gorm.io/gorm"
)

var (
	ErrInsufficientPayment = errors.New("payment is below the minimum due plus late fees")
	ErrNotInstallmentLoan  = errors.New("loan has no installment schedule")
	ErrNotBulletLoan       = errors.New("installment loan settles through repay-part")
	ErrNotLenderNote       = errors.New("claim requires the lender note")
)

type Usecase struct {
	core  *ledger.Usecase
	loans domainLoan.Repository
	notes asset.NoteRepository
	// principalID identifies this façade to the ledger; it must hold the
	// repayer capability.
	principalID string
	now         func() time.Time
}

func NewUsecase(core *ledger.Usecase, loans domainLoan.Repository, notes asset.NoteRepository, principalID string) *Usecase {
	return &Usecase{
		core:        core,
		loans:       loans,
		notes:       notes,
		principalID: principalID,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (u *Usecase) resolve(ctx context.Context, noteID uint64) (*asset.Note, *domainLoan.Loan, error) {
	n, err := u.notes.GetByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, asset.ErrNoteNotFound
		}
		return nil, nil, err
	}
	if n.Burned() {
		return nil, nil, asset.ErrNoteBurned
	}
	l, err := u.loans.GetByID(ctx, n.LoanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domainLoan.ErrNotFound
		}
		return nil, nil, err
	}
	return n, l, nil
}

// Repay settles a bullet loan in full, paid from the caller's currency
// account. Installment loans must finalize through RepayPart so the
// paid-down balance and the custody pool are accounted for.
func (u *Usecase) Repay(ctx context.Context, caller string, noteID uint64) (*ledger.LoanDTO, error) {
	_, l, err := u.resolve(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if l.NumInstallments != 0 {
		return nil, ErrNotBulletLoan
	}
	return u.core.Repay(ctx, u.principalID, caller, l.ID)
}

// amountsDue derives the current minimum for an installment loan.
func (u *Usecase) amountsDue(l *domainLoan.Loan) (minimum, lateFees *big.Int, missed uint64) {
	period := amortize.CurrentPeriod(l.StartAt.Unix(), l.DurationSecs, l.NumInstallments, u.now().Unix())
	return amortize.AmountsDue(l.BalanceAmount(), l.InterestAmount(), l.NumInstallments, period, l.InstallmentsPaid)
}

// RepayPart applies amount toward the loan: the minimum due plus late fees
// is charged first and anything above it reduces principal.
func (u *Usecase) RepayPart(ctx context.Context, caller string, noteID uint64, amount *big.Int) (*ledger.LoanDTO, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, domainLoan.ErrInvalidAmount
	}
	_, l, err := u.resolve(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if l.NumInstallments == 0 {
		return nil, ErrNotInstallmentLoan
	}
	for attempt := 0; ; attempt++ {
		minimum, lateFees, missed := u.amountsDue(l)
		owed := new(big.Int).Add(minimum, lateFees)
		if amount.Cmp(owed) < 0 {
			return nil, ErrInsufficientPayment
		}
		principal := new(big.Int).Sub(amount, owed)
		dto, err := u.core.RepayPart(ctx, u.principalID, caller, l.ID, principal, missed, owed)
		// A request straddling an installment boundary observes an older
		// period than the ledger does; recompute at the new period once.
		if errors.Is(err, domainLoan.ErrMissedCountStale) && attempt == 0 {
			continue
		}
		return dto, err
	}
}

// RepayPartMinimum charges exactly the minimum due plus late fees and leaves
// the principal untouched.
func (u *Usecase) RepayPartMinimum(ctx context.Context, caller string, noteID uint64) (*ledger.LoanDTO, error) {
	_, l, err := u.resolve(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if l.NumInstallments == 0 {
		return nil, ErrNotInstallmentLoan
	}
	for attempt := 0; ; attempt++ {
		minimum, lateFees, missed := u.amountsDue(l)
		owed := new(big.Int).Add(minimum, lateFees)
		dto, err := u.core.RepayPart(ctx, u.principalID, caller, l.ID, big.NewInt(0), missed, owed)
		if errors.Is(err, domainLoan.ErrMissedCountStale) && attempt == 0 {
			continue
		}
		return dto, err
	}
}

// BurnNote retires a note the caller owns once its loan is terminal.
func (u *Usecase) BurnNote(ctx context.Context, caller string, noteID uint64) error {
	return u.core.BurnNote(ctx, caller, noteID)
}

// Claim lets the holder of the lender note seize collateral after expiry.
func (u *Usecase) Claim(ctx context.Context, caller string, noteID uint64) (*ledger.LoanDTO, error) {
	n, l, err := u.resolve(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if n.Kind != asset.NoteLender {
		return nil, ErrNotLenderNote
	}
	if n.OwnerID != caller {
		return nil, asset.ErrNotOwner
	}
	return u.core.Claim(ctx, u.principalID, l.ID)
}
