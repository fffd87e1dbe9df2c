package service

import (
	"time"

	"codeauth/internal/entity"
	"codeauth/internal/utils"

	"github.com/google/uuid"
)

type JWTAccessIssuer struct {
	Manager *utils.JWTManager
}

func (j JWTAccessIssuer) IssueAccessToken(user entity.User, sessionID uuid.UUID) (string, time.Duration, error) {
	if j.Manager == nil {
		return "", 0, utils.ErrInvalidToken
	}
	return j.Manager.IssueAccessToken(user.ID.String(), sessionID.String())
}

func (j JWTAccessIssuer) ParseAccessToken(token string) (*utils.AccessClaims, error) {
	if j.Manager == nil {
		return nil, utils.ErrInvalidToken
	}
	return j.Manager.ParseAccessToken(token)
}
