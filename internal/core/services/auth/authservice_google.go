package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"gitlab.com/resultrelay.net/internal/core/ports/primary"
	"gitlab.com/resultrelay.net/internal/core/ports/secondary"
	"gitlab.com/resultrelay.net/internal/domain"
	"gitlab.com/resultrelay.net/internal/static/errs"
)

var _ IAuthService = &googleAuthService{}

type googleAuthService struct {
	userPort    secondary.UserPort
	jwtProvider primary.JWTService
}

func NewGoogleAuthService(userPort secondary.UserPort, jwtProvider primary.JWTService) IAuthService {
	return &googleAuthService{
		userPort:    userPort,
		jwtProvider: jwtProvider,
	}
}

func (g googleAuthService) ProviderName() domain.Provider {
	return domain.ProviderGoogle
}

func (g googleAuthService) Login(ctx context.Context, users *domain.Users) (string, error) {
	if users.GoogleID == nil {
		return "", errs.InvalidCredentials
	}
	if users.AuthProvider != string(domain.ProviderGoogle) {
		return "", errs.InvalidCredentials
	}
	if users.Email == nil {
		return "", errs.InvalidCredentials
	}

	usr, err := g.userPort.GetByGoogleID(ctx, *users.GoogleID)
	if err != nil {
		return "", err
	}
	if usr != nil {
		return generateToken(ctx, g.jwtProvider, usr)
	}

	// first login creates the account
	users.ID = uuid.NewString()
	users.PasswordHash = nil
	users.UserName = strings.Split(*users.Email, "@")[0]
	users.AuthProvider = string(domain.ProviderGoogle)
	if err := g.userPort.Create(ctx, users); err != nil {
		return "", errs.FailedToCreateUser
	}

	return generateToken(ctx, g.jwtProvider, users)
}
