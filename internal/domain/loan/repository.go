package loan

import "context"

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByID(ctx context.Context, id uint64) (*Loan, error)
	// GetByIDForUpdate locks the row for the duration of the transaction.
	GetByIDForUpdate(ctx context.Context, id uint64) (*Loan, error)
	// GetOpenLoanByCollateralID returns the non-terminal loan backed by the
	// given collateral, if one exists.
	GetOpenLoanByCollateralID(ctx context.Context, collateralID string) (*Loan, error)
	Save(ctx context.Context, l *Loan) error
}
