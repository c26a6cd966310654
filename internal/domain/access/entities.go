package access

import (
	"errors"
	"time"
)

// Capability names a permission a principal may hold. Grant and revoke are
// themselves gated by CapabilityAdmin.
type Capability string

const (
	CapabilityOriginator Capability = "originator"
	CapabilityRepayer    Capability = "repayer"
	CapabilityFeeClaimer Capability = "fee_claimer"
	CapabilityAdmin      Capability = "admin"
)

var (
	ErrNotAuthorized = errors.New("caller lacks the required capability")
)

type Grant struct {
	ID          uint64     `gorm:"primaryKey;column:id"`
	Capability  Capability `gorm:"size:32;uniqueIndex:ux_grants_cap_principal"`
	PrincipalID string     `gorm:"size:64;uniqueIndex:ux_grants_cap_principal"`
	CreatedAt   time.Time  `gorm:"autoCreateTime"`
}

func (Grant) TableName() string { return "capability_grants" }

// Settings is the single-row protocol configuration. Pausing blocks
// origination and claims; repayment always stays open.
type Settings struct {
	ID                uint64    `gorm:"primaryKey;column:id"`
	OriginationFeeBps uint64    `gorm:"column:origination_fee_bps;default:0"`
	Paused            bool      `gorm:"column:paused;default:false"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

func (Settings) TableName() string { return "protocol_settings" }
