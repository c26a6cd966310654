package access

import "context"

type Repository interface {
	HasCapability(ctx context.Context, cap Capability, principalID string) (bool, error)
	Grant(ctx context.Context, cap Capability, principalID string) error
	Revoke(ctx context.Context, cap Capability, principalID string) error
	// GetSettings returns the protocol settings row, creating the default
	// row on first read.
	GetSettings(ctx context.Context) (*Settings, error)
	SaveSettings(ctx context.Context, s *Settings) error
}
