package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	"gitlab.com/resultrelay.net/internal/core/ports/primary"
	"gitlab.com/resultrelay.net/internal/core/ports/secondary"
	"gitlab.com/resultrelay.net/internal/domain"
	"gitlab.com/resultrelay.net/internal/static/errs"
)

var _ IAuthService = &localAuthService{}

type localAuthService struct {
	userPort    secondary.UserPort
	jwtProvider primary.JWTService
}

func NewLocalAuthService(
	userPort secondary.UserPort,
	jwtProvider primary.JWTService,
) IAuthService {
	return &localAuthService{
		userPort:    userPort,
		jwtProvider: jwtProvider,
	}
}

func (g localAuthService) ProviderName() domain.Provider {
	return domain.ProviderLocal
}

func (g localAuthService) Login(ctx context.Context, users *domain.Users) (string, error) {
	usr, err := g.userPort.GetByUserName(ctx, users.UserName)
	if err != nil {
		return "", err
	}
	if usr == nil || usr.PasswordHash == nil {
		return "", errs.InvalidCredentials
	}
	valid, err := g.jwtProvider.VerifyPassword(ctx, *usr.PasswordHash, *users.PasswordHash)
	if err != nil {
		return "", errs.InvalidCredentials
	}
	if !valid {
		return "", errs.InvalidCredentials
	}

	return generateToken(ctx, g.jwtProvider, usr)
}

// generateToken mints the HMAC token the websocket handshake later
// resolves; sub must be the user id the job rows reference as owner.
func generateToken(ctx context.Context, jwtProvider primary.JWTService, user *domain.Users) (string, error) {
	claims := map[string]interface{}{
		"sub":      user.ID,
		"username": user.UserName,
	}
	token, err := jwtProvider.GenerateTokenHMAC(ctx, jwt.SigningMethodHS256.Name, claims)
	if err != nil {
		return "", errs.GeneratingToken
	}
	return token, nil
}
