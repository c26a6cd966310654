// Package ledgermem is an in-memory implementation of every ledger
// repository plus the unit of work, for usecase tests. WithinTx runs against
// a snapshot and only publishes it on success, so the all-or-nothing
// behavior of the real database transaction holds in tests too.
package ledgermem

import (
	"context"
	"math/big"
	"sync"
	"time"

	"loanledger-backend/internal/domain/access"
	"loanledger-backend/internal/domain/asset"
	"loanledger-backend/internal/domain/loan"
	"loanledger-backend/internal/domain/uow"

	"gorm.io/gorm"
)

type state struct {
	loans      map[uint64]loan.Loan
	nextLoanID uint64

	collateral map[string]asset.CollateralAsset
	balances   map[string]string // currencyID + "/" + accountID -> amount
	notes      map[uint64]asset.Note
	nextNoteID uint64

	grants   map[string]bool // capability + "/" + principalID
	settings access.Settings
}

func newState() *state {
	return &state{
		loans:      map[uint64]loan.Loan{},
		nextLoanID: 1,
		collateral: map[string]asset.CollateralAsset{},
		balances:   map[string]string{},
		notes:      map[uint64]asset.Note{},
		nextNoteID: 1,
		grants:     map[string]bool{},
		settings:   access.Settings{ID: 1},
	}
}

func (s *state) clone() *state {
	c := newState()
	c.nextLoanID = s.nextLoanID
	c.nextNoteID = s.nextNoteID
	c.settings = s.settings
	for k, v := range s.loans {
		c.loans[k] = v
	}
	for k, v := range s.collateral {
		c.collateral[k] = v
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	for k, v := range s.notes {
		c.notes[k] = v
	}
	for k, v := range s.grants {
		c.grants[k] = v
	}
	return c
}

type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store { return &Store{st: newState()} }

// Repos returns repositories bound to the live (untransacted) state, for
// seeding and read assertions. They always see the latest committed state.
func (s *Store) Repos() uow.Repos { return reposFor(func() *state { return s.st }) }

func reposFor(get func() *state) uow.Repos {
	return uow.Repos{
		Loans:      &loanRepo{get: get},
		Collateral: &collateralRepo{get: get},
		Currency:   &currencyRepo{get: get},
		Notes:      &noteRepo{get: get},
		Access:     &accessRepo{get: get},
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.st.clone()
	if err := fn(reposFor(func() *state { return snap })); err != nil {
		return err
	}
	s.st = snap
	return nil
}

func (s *Store) WithinLoanTx(ctx context.Context, loanID uint64, fn func(r uow.Repos, l *loan.Loan) error) error {
	return s.WithinTx(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		return fn(r, l)
	})
}

// Seed helpers.

func (s *Store) SeedCollateral(assetID, ownerID string) {
	s.st.collateral[assetID] = asset.CollateralAsset{AssetID: assetID, OwnerID: ownerID}
}

func (s *Store) SeedBalance(currencyID, accountID, amount string) {
	s.st.balances[currencyID+"/"+accountID] = amount
}

func (s *Store) SeedGrant(cap access.Capability, principalID string) {
	s.st.grants[string(cap)+"/"+principalID] = true
}

func (s *Store) Balance(currencyID, accountID string) string {
	if v, ok := s.st.balances[currencyID+"/"+accountID]; ok {
		return v
	}
	return "0"
}

func (s *Store) Loan(id uint64) (loan.Loan, bool) {
	l, ok := s.st.loans[id]
	return l, ok
}

func (s *Store) Note(id uint64) (asset.Note, bool) {
	n, ok := s.st.notes[id]
	return n, ok
}

func (s *Store) CollateralOwner(assetID string) string {
	return s.st.collateral[assetID].OwnerID
}

// --- loan repository ---

type loanRepo struct{ get func() *state }

func (r *loanRepo) Create(ctx context.Context, l *loan.Loan) error {
	l.ID = r.get().nextLoanID
	r.get().nextLoanID++
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now
	r.get().loans[l.ID] = *l
	return nil
}

func (r *loanRepo) GetByID(ctx context.Context, id uint64) (*loan.Loan, error) {
	l, ok := r.get().loans[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := l
	return &cp, nil
}

func (r *loanRepo) GetByIDForUpdate(ctx context.Context, id uint64) (*loan.Loan, error) {
	return r.GetByID(ctx, id)
}

func (r *loanRepo) GetOpenLoanByCollateralID(ctx context.Context, collateralID string) (*loan.Loan, error) {
	for _, l := range r.get().loans {
		if l.CollateralID == collateralID && !l.State.Terminal() {
			cp := l
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *loanRepo) Save(ctx context.Context, l *loan.Loan) error {
	l.UpdatedAt = time.Now().UTC()
	r.get().loans[l.ID] = *l
	return nil
}

// --- collateral repository ---

type collateralRepo struct{ get func() *state }

func (r *collateralRepo) Create(ctx context.Context, a *asset.CollateralAsset) error {
	r.get().collateral[a.AssetID] = *a
	return nil
}

func (r *collateralRepo) GetByAssetID(ctx context.Context, assetID string) (*asset.CollateralAsset, error) {
	a, ok := r.get().collateral[assetID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := a
	return &cp, nil
}

func (r *collateralRepo) Transfer(ctx context.Context, assetID, from, to string) error {
	a, ok := r.get().collateral[assetID]
	if !ok {
		return asset.ErrCollateralNotFound
	}
	if a.OwnerID != from {
		return asset.ErrNotOwner
	}
	a.OwnerID = to
	r.get().collateral[assetID] = a
	return nil
}

// --- currency repository ---

type currencyRepo struct{ get func() *state }

func (r *currencyRepo) BalanceOf(ctx context.Context, currencyID, accountID string) (*big.Int, error) {
	v, ok := r.get().balances[currencyID+"/"+accountID]
	if !ok {
		return big.NewInt(0), nil
	}
	return loan.ParseAmount(v)
}

func (r *currencyRepo) Credit(ctx context.Context, currencyID, accountID string, amount *big.Int) error {
	bal, err := r.BalanceOf(ctx, currencyID, accountID)
	if err != nil {
		return err
	}
	r.get().balances[currencyID+"/"+accountID] = loan.FormatAmount(bal.Add(bal, amount))
	return nil
}

func (r *currencyRepo) Transfer(ctx context.Context, currencyID, from, to string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return loan.ErrInvalidAmount
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	bal, err := r.BalanceOf(ctx, currencyID, from)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return asset.ErrInsufficientBalance
	}
	r.get().balances[currencyID+"/"+from] = loan.FormatAmount(bal.Sub(bal, amount))
	return r.Credit(ctx, currencyID, to, amount)
}

// --- note repository ---

type noteRepo struct{ get func() *state }

func (r *noteRepo) Mint(ctx context.Context, kind asset.NoteKind, ownerID string, loanID uint64) (uint64, error) {
	id := r.get().nextNoteID
	r.get().nextNoteID++
	r.get().notes[id] = asset.Note{ID: id, Kind: kind, OwnerID: ownerID, LoanID: loanID}
	return id, nil
}

func (r *noteRepo) GetByID(ctx context.Context, noteID uint64) (*asset.Note, error) {
	n, ok := r.get().notes[noteID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := n
	return &cp, nil
}

func (r *noteRepo) OwnerOf(ctx context.Context, noteID uint64) (string, error) {
	n, ok := r.get().notes[noteID]
	if !ok {
		return "", asset.ErrNoteNotFound
	}
	if n.Burned() {
		return "", asset.ErrNoteBurned
	}
	return n.OwnerID, nil
}

func (r *noteRepo) Transfer(ctx context.Context, noteID uint64, from, to string) error {
	n, ok := r.get().notes[noteID]
	if !ok {
		return asset.ErrNoteNotFound
	}
	if n.Burned() {
		return asset.ErrNoteBurned
	}
	if n.OwnerID != from {
		return asset.ErrNotOwner
	}
	n.OwnerID = to
	r.get().notes[noteID] = n
	return nil
}

func (r *noteRepo) Burn(ctx context.Context, noteID uint64) error {
	n, ok := r.get().notes[noteID]
	if !ok {
		return asset.ErrNoteNotFound
	}
	if n.Burned() {
		return asset.ErrNoteBurned
	}
	now := time.Now().UTC()
	n.BurnedAt = &now
	r.get().notes[noteID] = n
	return nil
}

// --- access repository ---

type accessRepo struct{ get func() *state }

func (r *accessRepo) HasCapability(ctx context.Context, cap access.Capability, principalID string) (bool, error) {
	return r.get().grants[string(cap)+"/"+principalID], nil
}

func (r *accessRepo) Grant(ctx context.Context, cap access.Capability, principalID string) error {
	r.get().grants[string(cap)+"/"+principalID] = true
	return nil
}

func (r *accessRepo) Revoke(ctx context.Context, cap access.Capability, principalID string) error {
	delete(r.get().grants, string(cap)+"/"+principalID)
	return nil
}

func (r *accessRepo) GetSettings(ctx context.Context) (*access.Settings, error) {
	cp := r.get().settings
	return &cp, nil
}

func (r *accessRepo) SaveSettings(ctx context.Context, s *access.Settings) error {
	r.get().settings = *s
	return nil
}
