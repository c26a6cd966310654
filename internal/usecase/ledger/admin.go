package ledger

import (
	"context"
	"errors"
	"log"
	"math/big"

	domainAccess "loanledger-backend/internal/domain/access"
	"loanledger-backend/internal/domain/asset"
	domainLoan "loanledger-backend/internal/domain/loan"
	"loanledger-backend/internal/domain/uow"

	"gorm.io/gorm"
)

// Administrative operations sit beside the state machine: they gate
// configuration and custody bookkeeping but never touch a loan record.

func (u *Usecase) setPaused(ctx context.Context, caller string, paused bool) error {
	return u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := u.requireCapability(ctx, r, domainAccess.CapabilityAdmin, caller); err != nil {
			return err
		}
		s, err := r.Access.GetSettings(ctx)
		if err != nil {
			return err
		}
		s.Paused = paused
		if err := r.Access.SaveSettings(ctx, s); err != nil {
			return err
		}
		log.Printf("protocol paused=%v by %s", paused, caller)
		return nil
	})
}

// Pause blocks CreateLoan, StartLoan and Claim. Repay and RepayPart keep
// working so borrowers can always exit a loan.
func (u *Usecase) Pause(ctx context.Context, caller string) error { return u.setPaused(ctx, caller, true) }

func (u *Usecase) Unpause(ctx context.Context, caller string) error {
	return u.setPaused(ctx, caller, false)
}

func (u *Usecase) SetOriginationFee(ctx context.Context, caller string, bps uint64) error {
	if bps > 10_000 {
		return ErrInvalidFee
	}
	return u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := u.requireCapability(ctx, r, domainAccess.CapabilityAdmin, caller); err != nil {
			return err
		}
		s, err := r.Access.GetSettings(ctx)
		if err != nil {
			return err
		}
		s.OriginationFeeBps = bps
		return r.Access.SaveSettings(ctx, s)
	})
}

// WithdrawFees drains the accumulated origination fees for one currency to
// the given account and returns the amount moved.
func (u *Usecase) WithdrawFees(ctx context.Context, caller, currencyID, to string) (*big.Int, error) {
	var amount *big.Int
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := u.requireCapability(ctx, r, domainAccess.CapabilityFeeClaimer, caller); err != nil {
			return err
		}
		bal, err := r.Currency.BalanceOf(ctx, currencyID, FeeAccountID)
		if err != nil {
			return err
		}
		if bal.Sign() > 0 {
			if err := r.Currency.Transfer(ctx, currencyID, FeeAccountID, to, bal); err != nil {
				return err
			}
		}
		amount = bal
		log.Printf("fees withdrawn: currency=%s amount=%s to=%s", currencyID, bal, to)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return amount, nil
}

func (u *Usecase) GrantCapability(ctx context.Context, caller string, cap domainAccess.Capability, principalID string) error {
	return u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := u.requireCapability(ctx, r, domainAccess.CapabilityAdmin, caller); err != nil {
			return err
		}
		return r.Access.Grant(ctx, cap, principalID)
	})
}

func (u *Usecase) RevokeCapability(ctx context.Context, caller string, cap domainAccess.Capability, principalID string) error {
	return u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := u.requireCapability(ctx, r, domainAccess.CapabilityAdmin, caller); err != nil {
			return err
		}
		return r.Access.Revoke(ctx, cap, principalID)
	})
}

// BurnNote is the self-service burn: a note owner may retire a note once the
// underlying loan has reached a terminal state. Ledger-side burns at the
// repaid/defaulted transition do not come through here.
func (u *Usecase) BurnNote(ctx context.Context, caller string, noteID uint64) error {
	return u.uow.WithinTx(ctx, func(r uow.Repos) error {
		n, err := r.Notes.GetByID(ctx, noteID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return asset.ErrNoteNotFound
			}
			return err
		}
		if n.Burned() {
			return asset.ErrNoteBurned
		}
		if n.OwnerID != caller {
			return asset.ErrNotOwner
		}
		l, err := r.Loans.GetByID(ctx, n.LoanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainLoan.ErrNotFound
			}
			return err
		}
		if !l.State.Terminal() {
			return domainLoan.ErrInvalidState
		}
		return r.Notes.Burn(ctx, noteID)
	})
}

// RegisterCollateral and CreditAccount bootstrap custody state so loans have
// assets to move. Both are admin-only conveniences for operating the ledger.
func (u *Usecase) RegisterCollateral(ctx context.Context, caller, assetID, ownerID string) error {
	return u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := u.requireCapability(ctx, r, domainAccess.CapabilityAdmin, caller); err != nil {
			return err
		}
		return r.Collateral.Create(ctx, &asset.CollateralAsset{AssetID: assetID, OwnerID: ownerID})
	})
}

func (u *Usecase) CreditAccount(ctx context.Context, caller, currencyID, accountID string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return domainLoan.ErrInvalidAmount
	}
	return u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := u.requireCapability(ctx, r, domainAccess.CapabilityAdmin, caller); err != nil {
			return err
		}
		return r.Currency.Credit(ctx, currencyID, accountID, amount)
	})
}
