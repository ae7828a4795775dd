package token

import (
	authmw "warden/pkg/platform/middleware/auth"
)

// MiddlewareAdapter exposes the token service through the middleware's
// validator interface so the middleware package stays free of JWT details.
type MiddlewareAdapter struct {
	service *Service
}

func NewMiddlewareAdapter(service *Service) *MiddlewareAdapter {
	return &MiddlewareAdapter{service: service}
}

func (a *MiddlewareAdapter) ValidateToken(tokenString string) (*authmw.OperatorClaims, error) {
	claims, err := a.service.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.OperatorClaims{OperatorID: claims.OperatorID}, nil
}
