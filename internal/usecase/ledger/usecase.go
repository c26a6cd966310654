package ledger

import (
	"context"
	"errors"
	"log"
	"math/big"
	"time"

	domainAccess "loanledger-backend/internal/domain/access"
	"loanledger-backend/internal/domain/asset"
	domainLoan "loanledger-backend/internal/domain/loan"
	"loanledger-backend/internal/domain/uow"
	"loanledger-backend/pkg/amortize"

	"gorm.io/gorm"
)

// Usecase is the loan ledger core: it owns every state transition and moves
// assets only inside the same transaction that commits the transition.
type Usecase struct {
	loanRepo domainLoan.Repository
	uow      uow.UnitOfWork
	now      func() time.Time
}

// NewUsecase: pass a read repo for lookups and a UoW for tx flows.
func NewUsecase(loans domainLoan.Repository, tx uow.UnitOfWork) *Usecase {
	return &Usecase{
		loanRepo: loans,
		uow:      tx,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (u *Usecase) requireCapability(ctx context.Context, r uow.Repos, cap domainAccess.Capability, principalID string) error {
	ok, err := r.Access.HasCapability(ctx, cap, principalID)
	if err != nil {
		return err
	}
	if !ok {
		return domainAccess.ErrNotAuthorized
	}
	return nil
}

func (u *Usecase) requireUnpaused(ctx context.Context, r uow.Repos) error {
	s, err := r.Access.GetSettings(ctx)
	if err != nil {
		return err
	}
	if s.Paused {
		return domainLoan.ErrPaused
	}
	return nil
}

// CreateLoan validates terms and records a new loan in the created state. No
// assets move; custody begins at StartLoan.
func (u *Usecase) CreateLoan(ctx context.Context, caller string, in CreateLoanInput) (*LoanDTO, error) {
	if in.DurationSecs <= 0 {
		return nil, domainLoan.ErrInvalidTerms
	}
	if in.NumInstallments%2 != 0 {
		return nil, domainLoan.ErrInvalidTerms
	}
	if in.CollateralID == "" || in.CurrencyID == "" {
		return nil, domainLoan.ErrInvalidTerms
	}
	principal, err := domainLoan.ParseAmount(in.Principal)
	if err != nil || principal.Sign() <= 0 {
		return nil, domainLoan.ErrInvalidTerms
	}
	interest, err := domainLoan.ParseAmount(in.Interest)
	if err != nil || amortize.BelowRateFloor(interest) {
		return nil, domainLoan.ErrInvalidTerms
	}

	var dto *LoanDTO
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := u.requireCapability(ctx, r, domainAccess.CapabilityOriginator, caller); err != nil {
			return err
		}
		if err := u.requireUnpaused(ctx, r); err != nil {
			return err
		}

		// Collateral may back at most one open loan.
		if _, err := r.Loans.GetOpenLoanByCollateralID(ctx, in.CollateralID); err == nil {
			return domainLoan.ErrCollateralInUse
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		l := &domainLoan.Loan{
			State:           domainLoan.StateCreated,
			DurationSecs:    in.DurationSecs,
			Principal:       domainLoan.FormatAmount(principal),
			Interest:        domainLoan.FormatAmount(interest),
			CollateralID:    in.CollateralID,
			CurrencyID:      in.CurrencyID,
			NumInstallments: in.NumInstallments,
			Balance:         domainLoan.FormatAmount(principal),
			BalancePaid:     "0",
			LateFeesAccrued: "0",
			StateUpdatedAt:  u.now(),
		}
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}
		log.Printf("loan %d created: collateral=%s principal=%s installments=%d", l.ID, l.CollateralID, l.Principal, l.NumInstallments)
		dto = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// StartLoan activates a created loan: collateral and principal move into
// custody, both notes are minted, and principal less the origination fee is
// disbursed to the borrower. Everything commits or nothing does.
func (u *Usecase) StartLoan(ctx context.Context, caller, lender, borrower string, loanID uint64) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := u.requireCapability(ctx, r, domainAccess.CapabilityOriginator, caller); err != nil {
			return err
		}
		settings, err := r.Access.GetSettings(ctx)
		if err != nil {
			return err
		}
		if settings.Paused {
			return domainLoan.ErrPaused
		}

		l, err := r.Loans.GetByIDForUpdate(ctx, loanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainLoan.ErrNotFound
			}
			return err
		}
		if l.State != domainLoan.StateCreated {
			return domainLoan.ErrInvalidState
		}

		now := u.now()
		principal := l.PrincipalAmount()

		// Pull collateral and principal into custody. A failed pull aborts
		// the transaction, rolling back everything including the other pull.
		if err := r.Collateral.Transfer(ctx, l.CollateralID, caller, CustodyAccountID); err != nil {
			return err
		}
		if err := r.Currency.Transfer(ctx, l.CurrencyID, caller, CustodyAccountID, principal); err != nil {
			return err
		}

		fee := new(big.Int).Mul(principal, new(big.Int).SetUint64(settings.OriginationFeeBps))
		fee.Quo(fee, amortize.BasisPointsDenominator)

		borrowerNote, err := r.Notes.Mint(ctx, asset.NoteBorrower, borrower, l.ID)
		if err != nil {
			return err
		}
		lenderNote, err := r.Notes.Mint(ctx, asset.NoteLender, lender, l.ID)
		if err != nil {
			return err
		}

		l.State = domainLoan.StateActive
		l.StartAt = now
		l.DueAt = now.Add(time.Duration(l.DurationSecs) * time.Second)
		l.BorrowerNoteID = borrowerNote
		l.LenderNoteID = lenderNote
		l.StateUpdatedAt = now
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}

		// Disburse after the state transition is recorded.
		disburse := new(big.Int).Sub(principal, fee)
		if err := r.Currency.Transfer(ctx, l.CurrencyID, CustodyAccountID, borrower, disburse); err != nil {
			return err
		}
		if fee.Sign() > 0 {
			if err := r.Currency.Transfer(ctx, l.CurrencyID, CustodyAccountID, FeeAccountID, fee); err != nil {
				return err
			}
		}
		log.Printf("loan %d started: lender=%s borrower=%s fee=%s", l.ID, lender, borrower, fee)
		dto = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// Repay settles a bullet loan in full: principal plus term interest moves
// from the payer to the current lender-note holder, and the collateral
// returns to the current borrower-note holder. Installment loans finalize
// through RepayPart, which accounts for the paid-down balance and the
// custody pool. Deliberately NOT blocked by the pause flag so borrowers can
// always exit.
func (u *Usecase) Repay(ctx context.Context, caller, payer string, loanID uint64) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := u.requireCapability(ctx, r, domainAccess.CapabilityRepayer, caller); err != nil {
			return err
		}
		l, err := r.Loans.GetByIDForUpdate(ctx, loanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainLoan.ErrNotFound
			}
			return err
		}
		if l.State != domainLoan.StateActive {
			return domainLoan.ErrInvalidState
		}
		if l.NumInstallments != 0 {
			return domainLoan.ErrInvalidTerms
		}

		total := amortize.TotalOwed(l.PrincipalAmount(), l.InterestAmount())
		if err := r.Currency.Transfer(ctx, l.CurrencyID, payer, CustodyAccountID, total); err != nil {
			return err
		}

		// Note ownership may have changed hands since origination; resolve
		// the payout targets from the notes, not stored addresses.
		lenderOwner, err := r.Notes.OwnerOf(ctx, l.LenderNoteID)
		if err != nil {
			return err
		}
		borrowerOwner, err := r.Notes.OwnerOf(ctx, l.BorrowerNoteID)
		if err != nil {
			return err
		}

		// State transition and note burns happen before the outbound
		// transfers; a re-entrant call observes only the repaid loan.
		now := u.now()
		l.State = domainLoan.StateRepaid
		l.Balance = "0"
		l.BalancePaid = domainLoan.FormatAmount(new(big.Int).Add(l.BalancePaidAmount(), total))
		l.StateUpdatedAt = now
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		if err := r.Notes.Burn(ctx, l.BorrowerNoteID); err != nil {
			return err
		}
		if err := r.Notes.Burn(ctx, l.LenderNoteID); err != nil {
			return err
		}

		if err := r.Currency.Transfer(ctx, l.CurrencyID, CustodyAccountID, lenderOwner, total); err != nil {
			return err
		}
		if err := r.Collateral.Transfer(ctx, l.CollateralID, CustodyAccountID, borrowerOwner); err != nil {
			return err
		}
		log.Printf("loan %d repaid: total=%s lender=%s", l.ID, total, lenderOwner)
		dto = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// RepayPart applies an installment payment. Interim payments accumulate in
// custody and only disburse when the loan finalizes; on the final installment
// the whole pool goes to the lender and collateral returns to the borrower.
// The caller-supplied missed count is cross-checked against the period the
// ledger derives itself rather than trusted.
func (u *Usecase) RepayPart(ctx context.Context, caller, payer string, loanID uint64, repaidPrincipal *big.Int, missedPayments uint64, feesAndInterest *big.Int) (*LoanDTO, error) {
	if repaidPrincipal == nil || repaidPrincipal.Sign() < 0 || feesAndInterest == nil || feesAndInterest.Sign() < 0 {
		return nil, domainLoan.ErrInvalidAmount
	}
	var dto *LoanDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := u.requireCapability(ctx, r, domainAccess.CapabilityRepayer, caller); err != nil {
			return err
		}
		l, err := r.Loans.GetByIDForUpdate(ctx, loanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainLoan.ErrNotFound
			}
			return err
		}
		if l.State != domainLoan.StateActive {
			return domainLoan.ErrInvalidState
		}
		if l.NumInstallments == 0 {
			return domainLoan.ErrInvalidTerms
		}

		now := u.now()
		period := amortize.CurrentPeriod(l.StartAt.Unix(), l.DurationSecs, l.NumInstallments, now.Unix())
		derived := amortize.MissedPayments(period, l.InstallmentsPaid)
		if missedPayments != derived {
			return domainLoan.ErrMissedCountStale
		}
		_, lateFees, _ := amortize.AmountsDue(l.BalanceAmount(), l.InterestAmount(), l.NumInstallments, period, l.InstallmentsPaid)

		pull := new(big.Int).Add(repaidPrincipal, feesAndInterest)
		if pull.Sign() > 0 {
			if err := r.Currency.Transfer(ctx, l.CurrencyID, payer, CustodyAccountID, pull); err != nil {
				return err
			}
		}

		balance := l.BalanceAmount()
		l.LateFeesAccrued = domainLoan.FormatAmount(new(big.Int).Add(l.LateFeesAmount(), lateFees))
		l.NumMissedPayments += missedPayments
		l.InstallmentsPaid += missedPayments + 1

		if repaidPrincipal.Cmp(balance) < 0 {
			// Mid-loan installment: balance shrinks, funds stay in custody.
			l.Balance = domainLoan.FormatAmount(new(big.Int).Sub(balance, repaidPrincipal))
			l.BalancePaid = domainLoan.FormatAmount(new(big.Int).Add(l.BalancePaidAmount(), pull))
			if err := r.Loans.Save(ctx, l); err != nil {
				return err
			}
			dto = toDTO(l)
			return nil
		}

		// Final installment, possibly overpaid.
		excess := new(big.Int).Sub(repaidPrincipal, balance)
		paid := new(big.Int).Add(balance, feesAndInterest)
		pool := new(big.Int).Add(l.BalancePaidAmount(), paid)

		lenderOwner, err := r.Notes.OwnerOf(ctx, l.LenderNoteID)
		if err != nil {
			return err
		}
		borrowerOwner, err := r.Notes.OwnerOf(ctx, l.BorrowerNoteID)
		if err != nil {
			return err
		}

		l.State = domainLoan.StateRepaid
		l.Balance = "0"
		l.BalancePaid = domainLoan.FormatAmount(pool)
		l.StateUpdatedAt = now
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		if err := r.Notes.Burn(ctx, l.BorrowerNoteID); err != nil {
			return err
		}
		if err := r.Notes.Burn(ctx, l.LenderNoteID); err != nil {
			return err
		}

		if excess.Sign() > 0 {
			if err := r.Currency.Transfer(ctx, l.CurrencyID, CustodyAccountID, borrowerOwner, excess); err != nil {
				return err
			}
		}
		if err := r.Currency.Transfer(ctx, l.CurrencyID, CustodyAccountID, lenderOwner, pool); err != nil {
			return err
		}
		if err := r.Collateral.Transfer(ctx, l.CollateralID, CustodyAccountID, borrowerOwner); err != nil {
			return err
		}
		log.Printf("loan %d fully amortized: pool=%s lender=%s", l.ID, pool, lenderOwner)
		dto = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// Claim seizes the collateral for the lender after the due date passes with
// the loan unpaid. Interim payments already collected stay protocol-held;
// the lender receives only the collateral.
func (u *Usecase) Claim(ctx context.Context, caller string, loanID uint64) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := u.requireCapability(ctx, r, domainAccess.CapabilityRepayer, caller); err != nil {
			return err
		}
		if err := u.requireUnpaused(ctx, r); err != nil {
			return err
		}
		l, err := r.Loans.GetByIDForUpdate(ctx, loanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainLoan.ErrNotFound
			}
			return err
		}
		if l.State != domainLoan.StateActive {
			return domainLoan.ErrInvalidState
		}
		now := u.now()
		if !now.After(l.DueAt) {
			return domainLoan.ErrNotExpired
		}

		lenderOwner, err := r.Notes.OwnerOf(ctx, l.LenderNoteID)
		if err != nil {
			return err
		}

		l.State = domainLoan.StateDefaulted
		l.StateUpdatedAt = now
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		if err := r.Notes.Burn(ctx, l.BorrowerNoteID); err != nil {
			return err
		}
		if err := r.Notes.Burn(ctx, l.LenderNoteID); err != nil {
			return err
		}

		if err := r.Collateral.Transfer(ctx, l.CollateralID, CustodyAccountID, lenderOwner); err != nil {
			return err
		}
		log.Printf("loan %d defaulted: collateral=%s claimed by %s", l.ID, l.CollateralID, lenderOwner)
		dto = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// GetLoan is a plain read of the ledger record.
func (u *Usecase) GetLoan(ctx context.Context, loanID uint64) (*LoanDTO, error) {
	l, err := u.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainLoan.ErrNotFound
		}
		return nil, err
	}
	return toDTO(l), nil
}

func toDTO(l *domainLoan.Loan) *LoanDTO {
	return &LoanDTO{
		LoanID:            l.ID,
		State:             string(l.State),
		DurationSecs:      l.DurationSecs,
		Principal:         l.Principal,
		Interest:          l.Interest,
		CollateralID:      l.CollateralID,
		CurrencyID:        l.CurrencyID,
		NumInstallments:   l.NumInstallments,
		StartAt:           l.StartAt,
		DueAt:             l.DueAt,
		BorrowerNoteID:    l.BorrowerNoteID,
		LenderNoteID:      l.LenderNoteID,
		Balance:           l.Balance,
		BalancePaid:       l.BalancePaid,
		LateFeesAccrued:   l.LateFeesAccrued,
		NumMissedPayments: l.NumMissedPayments,
		InstallmentsPaid:  l.InstallmentsPaid,
	}
}
