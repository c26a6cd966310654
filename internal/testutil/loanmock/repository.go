package loanmock

import (
	"context"

	domain "loanledger-backend/internal/domain/loan"
)

// Repo is a function-backed mock that satisfies domain.Repository.
// Only methods you need are included; add more as tests require.
type Repo struct {
	CreateFn                    func(ctx context.Context, l *domain.Loan) error
	GetByIDFn                   func(ctx context.Context, id uint64) (*domain.Loan, error)
	GetByIDForUpdateFn          func(ctx context.Context, id uint64) (*domain.Loan, error)
	GetOpenLoanByCollateralIDFn func(ctx context.Context, collateralID string) (*domain.Loan, error)
	SaveFn                      func(ctx context.Context, l *domain.Loan) error
}

var _ domain.Repository = (*Repo)(nil)

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetByID(ctx context.Context, id uint64) (*domain.Loan, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByIDForUpdate(ctx context.Context, id uint64) (*domain.Loan, error) {
	if m.GetByIDForUpdateFn != nil {
		return m.GetByIDForUpdateFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) GetOpenLoanByCollateralID(ctx context.Context, collateralID string) (*domain.Loan, error) {
	if m.GetOpenLoanByCollateralIDFn != nil {
		return m.GetOpenLoanByCollateralIDFn(ctx, collateralID)
	}
	return nil, context.Canceled
}

func (m *Repo) Save(ctx context.Context, l *domain.Loan) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, l)
	}
	return nil
}
