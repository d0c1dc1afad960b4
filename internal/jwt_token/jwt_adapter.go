package jwttoken

import (
	authmw "badgepass/pkg/platform/middleware/auth"
)

func ToMiddlewareClaims(claims *ScannerClaims) *authmw.JWTClaims {
	return &authmw.JWTClaims{
		Subject: claims.Subject,
		Scopes:  claims.Scopes(),
		JTI:     claims.ID,
	}
}

// JWTServiceAdapter exposes JWTService through the auth middleware's validator port.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
