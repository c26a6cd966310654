package mysql

import (
	"context"
	"math/big"

	"loanledger-backend/internal/domain/asset"
	loanDomain "loanledger-backend/internal/domain/loan"

	"gorm.io/gorm"
)

type CollateralRepository struct{ db *gorm.DB }

func NewCollateralRepository(db *gorm.DB) *CollateralRepository {
	return &CollateralRepository{db: db}
}

func (r *CollateralRepository) Create(ctx context.Context, a *asset.CollateralAsset) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *CollateralRepository) GetByAssetID(ctx context.Context, assetID string) (*asset.CollateralAsset, error) {
	var out asset.CollateralAsset
	res := r.db.WithContext(ctx).Where("asset_id = ?", assetID).First(&out)
	return &out, res.Error
}

// Transfer locks the asset row, checks the current holder and rewrites the
// owner. Running inside the caller's transaction keeps the check-and-set
// atomic.
func (r *CollateralRepository) Transfer(ctx context.Context, assetID, from, to string) error {
	var a asset.CollateralAsset
	res := forUpdate(r.db.WithContext(ctx)).
		Where("asset_id = ?", assetID).
		First(&a)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return asset.ErrCollateralNotFound
		}
		return res.Error
	}
	if a.OwnerID != from {
		return asset.ErrNotOwner
	}
	a.OwnerID = to
	return r.db.WithContext(ctx).Save(&a).Error
}

type CurrencyRepository struct{ db *gorm.DB }

func NewCurrencyRepository(db *gorm.DB) *CurrencyRepository { return &CurrencyRepository{db: db} }

func (r *CurrencyRepository) account(ctx context.Context, currencyID, accountID string, lock bool) (*asset.CurrencyAccount, error) {
	var out asset.CurrencyAccount
	q := r.db.WithContext(ctx)
	if lock {
		q = forUpdate(q)
	}
	res := q.Where("currency_id = ? AND account_id = ?", currencyID, accountID).First(&out)
	return &out, res.Error
}

func (r *CurrencyRepository) BalanceOf(ctx context.Context, currencyID, accountID string) (*big.Int, error) {
	acct, err := r.account(ctx, currencyID, accountID, false)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return big.NewInt(0), nil
		}
		return nil, err
	}
	return loanDomain.ParseAmount(acct.Balance)
}

func (r *CurrencyRepository) Credit(ctx context.Context, currencyID, accountID string, amount *big.Int) error {
	acct, err := r.account(ctx, currencyID, accountID, true)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return r.db.WithContext(ctx).Create(&asset.CurrencyAccount{
				CurrencyID: currencyID,
				AccountID:  accountID,
				Balance:    loanDomain.FormatAmount(amount),
			}).Error
		}
		return err
	}
	bal, err := loanDomain.ParseAmount(acct.Balance)
	if err != nil {
		return err
	}
	acct.Balance = loanDomain.FormatAmount(bal.Add(bal, amount))
	return r.db.WithContext(ctx).Save(acct).Error
}

// Transfer debits from and credits to. Balances are decimal(65,0) strings,
// so the arithmetic happens here on big integers under row locks.
func (r *CurrencyRepository) Transfer(ctx context.Context, currencyID, from, to string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return loanDomain.ErrInvalidAmount
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	src, err := r.account(ctx, currencyID, from, true)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return asset.ErrInsufficientBalance
		}
		return err
	}
	bal, err := loanDomain.ParseAmount(src.Balance)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return asset.ErrInsufficientBalance
	}
	src.Balance = loanDomain.FormatAmount(bal.Sub(bal, amount))
	if err := r.db.WithContext(ctx).Save(src).Error; err != nil {
		return err
	}
	return r.Credit(ctx, currencyID, to, amount)
}
