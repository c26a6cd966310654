package mysql

import (
	"context"
	"errors"

	"loanledger-backend/internal/domain/access"

	"gorm.io/gorm"
)

type AccessRepository struct{ db *gorm.DB }

func NewAccessRepository(db *gorm.DB) *AccessRepository { return &AccessRepository{db: db} }

func (r *AccessRepository) HasCapability(ctx context.Context, cap access.Capability, principalID string) (bool, error) {
	var g access.Grant
	res := r.db.WithContext(ctx).
		Where("capability = ? AND principal_id = ?", cap, principalID).
		First(&g)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, res.Error
	}
	return true, nil
}

func (r *AccessRepository) Grant(ctx context.Context, cap access.Capability, principalID string) error {
	// Idempotent: a duplicate grant is a no-op.
	ok, err := r.HasCapability(ctx, cap, principalID)
	if err != nil || ok {
		return err
	}
	return r.db.WithContext(ctx).Create(&access.Grant{Capability: cap, PrincipalID: principalID}).Error
}

func (r *AccessRepository) Revoke(ctx context.Context, cap access.Capability, principalID string) error {
	return r.db.WithContext(ctx).
		Where("capability = ? AND principal_id = ?", cap, principalID).
		Delete(&access.Grant{}).Error
}

func (r *AccessRepository) GetSettings(ctx context.Context) (*access.Settings, error) {
	var s access.Settings
	res := r.db.WithContext(ctx).First(&s)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			s = access.Settings{OriginationFeeBps: 0, Paused: false}
			if err := r.db.WithContext(ctx).Create(&s).Error; err != nil {
				return nil, err
			}
			return &s, nil
		}
		return nil, res.Error
	}
	return &s, nil
}

func (r *AccessRepository) SaveSettings(ctx context.Context, s *access.Settings) error {
	return r.db.WithContext(ctx).Save(s).Error
}
