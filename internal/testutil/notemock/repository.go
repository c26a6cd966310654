package notemock

import (
	"context"

	"loanledger-backend/internal/domain/asset"
)

// Repo is a function-backed mock that satisfies asset.NoteRepository.
type Repo struct {
	MintFn     func(ctx context.Context, kind asset.NoteKind, ownerID string, loanID uint64) (uint64, error)
	GetByIDFn  func(ctx context.Context, noteID uint64) (*asset.Note, error)
	OwnerOfFn  func(ctx context.Context, noteID uint64) (string, error)
	TransferFn func(ctx context.Context, noteID uint64, from, to string) error
	BurnFn     func(ctx context.Context, noteID uint64) error
}

var _ asset.NoteRepository = (*Repo)(nil)

func (m *Repo) Mint(ctx context.Context, kind asset.NoteKind, ownerID string, loanID uint64) (uint64, error) {
	if m.MintFn != nil {
		return m.MintFn(ctx, kind, ownerID, loanID)
	}
	return 0, context.Canceled
}

func (m *Repo) GetByID(ctx context.Context, noteID uint64) (*asset.Note, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, noteID)
	}
	return nil, context.Canceled
}

func (m *Repo) OwnerOf(ctx context.Context, noteID uint64) (string, error) {
	if m.OwnerOfFn != nil {
		return m.OwnerOfFn(ctx, noteID)
	}
	return "", context.Canceled
}

func (m *Repo) Transfer(ctx context.Context, noteID uint64, from, to string) error {
	if m.TransferFn != nil {
		return m.TransferFn(ctx, noteID, from, to)
	}
	return nil
}

func (m *Repo) Burn(ctx context.Context, noteID uint64) error {
	if m.BurnFn != nil {
		return m.BurnFn(ctx, noteID)
	}
	return nil
}
