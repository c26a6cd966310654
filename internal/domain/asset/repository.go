package asset

import (
	"context"
	"math/big"
)

type CollateralRepository interface {
	Create(ctx context.Context, a *CollateralAsset) error
	GetByAssetID(ctx context.Context, assetID string) (*CollateralAsset, error)
	// Transfer moves ownership from -> to. Fails with ErrNotOwner when the
	// asset is not held by from.
	Transfer(ctx context.Context, assetID, from, to string) error
}

type CurrencyRepository interface {
	// BalanceOf returns the balance for (currencyID, accountID); missing
	// accounts read as zero.
	BalanceOf(ctx context.Context, currencyID, accountID string) (*big.Int, error)
	// Credit adds amount to an account, creating the row when absent.
	Credit(ctx context.Context, currencyID, accountID string, amount *big.Int) error
	// Transfer debits from and credits to atomically within the enclosing
	// transaction. Fails with ErrInsufficientBalance without partial effect.
	Transfer(ctx context.Context, currencyID, from, to string, amount *big.Int) error
}

type NoteRepository interface {
	// Mint issues a new note and returns its id.
	Mint(ctx context.Context, kind NoteKind, ownerID string, loanID uint64) (uint64, error)
	GetByID(ctx context.Context, noteID uint64) (*Note, error)
	// OwnerOf resolves the current holder of an unburned note.
	OwnerOf(ctx context.Context, noteID uint64) (string, error)
	Transfer(ctx context.Context, noteID uint64, from, to string) error
	Burn(ctx context.Context, noteID uint64) error
}
