package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rosterhq/roster/internal/auth"
	"github.com/rosterhq/roster/internal/services"
	"github.com/rosterhq/roster/pkg/response"
)

// JoinHandler exposes join-token redemption.
type JoinHandler struct {
	joins *services.JoinService
	jwt   *auth.JWTService
}

// NewJoinHandler constructs a JoinHandler.
func NewJoinHandler(joins *services.JoinService, jwt *auth.JWTService) *JoinHandler {
	return &JoinHandler{joins: joins, jwt: jwt}
}

type joinRequest struct {
	Token       string `json:"token" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"display_name" validate:"omitempty,max=120"`
}

type joinResponse struct {
	UserID       string `json:"user_id"`
	OrgID        string `json:"org_id"`
	MembershipID string `json:"membership_id"`
	Role         string `json:"role"`
	Reused       bool   `json:"reused"`
	SignInToken  string `json:"sign_in_token,omitempty"`
}

// POST /api/join
func (h *JoinHandler) Redeem(c *gin.Context) {
	var req joinRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.joins.Redeem(c.Request.Context(), services.RedeemInput{
		TokenID:     req.Token,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	payload := joinResponse{
		UserID:       result.UserID,
		OrgID:        result.OrgID,
		MembershipID: result.MembershipID,
		Role:         result.Role,
		Reused:       result.Reused,
	}

	if h.jwt != nil {
		signIn, err := h.jwt.GenerateSignInToken(auth.SignInTokenInput{
			UserID: result.UserID,
			OrgID:  result.OrgID,
			Role:   result.Role,
		})
		// A failed mint does not undo the join; the member can still sign in
		// through the login endpoint.
		if err == nil {
			payload.SignInToken = signIn
		}
	}

	status := http.StatusCreated
	if result.Reused {
		status = http.StatusOK
	}
	response.Success(c, status, payload)
}
