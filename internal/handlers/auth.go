package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rosterhq/roster/internal/auth"
	"github.com/rosterhq/roster/internal/identity"
	appErrors "github.com/rosterhq/roster/pkg/errors"
	"github.com/rosterhq/roster/pkg/response"
)

// Authenticator verifies an email/password pair against the identity backend.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*identity.Identity, error)
}

// AuthHandler manages sign-in for already-provisioned members.
type AuthHandler struct {
	authenticator Authenticator
	jwt           *auth.JWTService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(authenticator Authenticator, jwt *auth.JWTService) *AuthHandler {
	return &AuthHandler{authenticator: authenticator, jwt: jwt}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ident, err := h.authenticator.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		// Normalise auth errors to 401
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	token, err := h.jwt.GenerateSignInToken(auth.SignInTokenInput{UserID: ident.ID})
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"sign_in_token": token,
		"user": gin.H{
			"id":           ident.ID,
			"email":        ident.Email,
			"display_name": ident.DisplayName,
		},
	})
}
