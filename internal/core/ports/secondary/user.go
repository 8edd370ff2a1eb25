package secondary

import (
	"context"

	"gitlab.com/resultrelay.net/internal/domain"
)

type UserPort interface {
	Create(ctx context.Context, user *domain.Users) error
	GetByUserName(ctx context.Context, userName string) (*domain.Users, error)
	GetByGoogleID(ctx context.Context, googleID string) (*domain.Users, error)
}
