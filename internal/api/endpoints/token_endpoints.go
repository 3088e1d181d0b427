package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"livechat-backend/internal/dto"
	internaljwt "livechat-backend/internal/jwt"
)

type TokenEndpoints interface {
	RefreshToken(http.ResponseWriter, *http.Request) error
}

type tokenEndpoints struct{}

func NewTokenEndpoints() TokenEndpoints {
	return &tokenEndpoints{}
}

func (h *tokenEndpoints) RefreshToken(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleRefreshToken,
	})
}

// handleRefreshToken exchanges a refresh token for a fresh access token.
// The trailing role character on the refresh token picks which secret
// signs the new one.
func (h *tokenEndpoints) handleRefreshToken(w http.ResponseWriter, r *http.Request) error {
	var req dto.RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode refresh token request: %w", err),
		}
	}

	accessToken, err := internaljwt.RefreshToken(req.RefreshToken, internaljwt.RoleUser)
	if err != nil {
		accessToken, err = internaljwt.RefreshToken(req.RefreshToken, internaljwt.RoleAdmin)
	}
	if err != nil {
		return &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Invalid refresh token",
			ErrorLog:   fmt.Errorf("refresh token exchange: %w", err),
		}
	}

	return writeResult(w, http.StatusOK, dto.TokenRefreshResponse{AccessToken: accessToken})
}
