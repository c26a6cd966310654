package uow

import (
	"context"

	"loanledger-backend/internal/domain/access"
	"loanledger-backend/internal/domain/asset"
	"loanledger-backend/internal/domain/loan"
)

type Repos struct {
	Loans      loan.Repository
	Collateral asset.CollateralRepository
	Currency   asset.CurrencyRepository
	Notes      asset.NoteRepository
	Access     access.Repository
}

// UnitOfWork executes fn inside one database transaction; every repository
// write commits together or not at all, which is what makes ledger
// operations all-or-nothing.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// WithinLoanTx locks the loan row first, then passes it in.
	WithinLoanTx(ctx context.Context, loanID uint64, fn func(r Repos, l *loan.Loan) error) error
}
