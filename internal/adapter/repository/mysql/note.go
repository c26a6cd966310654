package mysql

import (
	"context"
	"time"

	"loanledger-backend/internal/domain/asset"

	"gorm.io/gorm"
)

type NoteRepository struct{ db *gorm.DB }

func NewNoteRepository(db *gorm.DB) *NoteRepository { return &NoteRepository{db: db} }

func (r *NoteRepository) Mint(ctx context.Context, kind asset.NoteKind, ownerID string, loanID uint64) (uint64, error) {
	n := &asset.Note{Kind: kind, OwnerID: ownerID, LoanID: loanID}
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return 0, err
	}
	return n.ID, nil
}

func (r *NoteRepository) GetByID(ctx context.Context, noteID uint64) (*asset.Note, error) {
	var out asset.Note
	res := r.db.WithContext(ctx).Where("id = ?", noteID).First(&out)
	return &out, res.Error
}

func (r *NoteRepository) OwnerOf(ctx context.Context, noteID uint64) (string, error) {
	n, err := r.GetByID(ctx, noteID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", asset.ErrNoteNotFound
		}
		return "", err
	}
	if n.Burned() {
		return "", asset.ErrNoteBurned
	}
	return n.OwnerID, nil
}

func (r *NoteRepository) Transfer(ctx context.Context, noteID uint64, from, to string) error {
	var n asset.Note
	res := forUpdate(r.db.WithContext(ctx)).
		Where("id = ?", noteID).
		First(&n)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return asset.ErrNoteNotFound
		}
		return res.Error
	}
	if n.Burned() {
		return asset.ErrNoteBurned
	}
	if n.OwnerID != from {
		return asset.ErrNotOwner
	}
	n.OwnerID = to
	return r.db.WithContext(ctx).Save(&n).Error
}

// Burn marks the note retired. Burns are one-shot: a burned note never
// resolves an owner again.
func (r *NoteRepository) Burn(ctx context.Context, noteID uint64) error {
	var n asset.Note
	res := forUpdate(r.db.WithContext(ctx)).
		Where("id = ?", noteID).
		First(&n)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return asset.ErrNoteNotFound
		}
		return res.Error
	}
	if n.Burned() {
		return asset.ErrNoteBurned
	}
	now := time.Now().UTC()
	n.BurnedAt = &now
	return r.db.WithContext(ctx).Save(&n).Error
}
