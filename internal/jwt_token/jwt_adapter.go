package jwttoken

import (
	"regdesk/internal/platform/middleware"
	id "regdesk/pkg/domain"
)

// MiddlewareAdapter adapts JWTService to the middleware.JWTValidator
// interface, confining claim parsing to this package.
type MiddlewareAdapter struct {
	service *JWTService
}

func NewMiddlewareAdapter(service *JWTService) *MiddlewareAdapter {
	return &MiddlewareAdapter{service: service}
}

func (a *MiddlewareAdapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return nil, err
	}
	role, err := id.ParseRole(claims.Role)
	if err != nil {
		return nil, err
	}
	return &middleware.JWTClaims{UserID: userID, Role: role}, nil
}
