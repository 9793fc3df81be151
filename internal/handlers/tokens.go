package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rosterhq/roster/internal/services"
	appErrors "github.com/rosterhq/roster/pkg/errors"
	"github.com/rosterhq/roster/pkg/response"
)

// TokenHandler exposes administrative join-token management.
type TokenHandler struct {
	tokens *services.TokenService
}

// NewTokenHandler constructs a TokenHandler.
func NewTokenHandler(tokens *services.TokenService) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

type createTokenRequest struct {
	OrgID       string `json:"org_id" validate:"required"`
	Role        string `json:"role" validate:"required"`
	MaxUses     int    `json:"max_uses" validate:"omitempty,min=1"`
	ExpiresAt   *int64 `json:"expires_at"`
	Description string `json:"description" validate:"omitempty,max=200"`
}

// POST /api/join-tokens
func (h *TokenHandler) Create(c *gin.Context) {
	var req createTokenRequest
	if !bindAndValidate(c, &req) {
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		ts := time.UnixMilli(*req.ExpiresAt)
		expiresAt = &ts
	}

	token, err := h.tokens.Create(c.Request.Context(), services.CreateTokenInput{
		OrgID:       req.OrgID,
		Role:        req.Role,
		MaxUses:     req.MaxUses,
		ExpiresAt:   expiresAt,
		Description: req.Description,
		CreatedBy:   currentUserID(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, token)
}

// GET /api/join-tokens?org_id=&status=
func (h *TokenHandler) List(c *gin.Context) {
	orgID := strings.TrimSpace(c.Query("org_id"))
	if orgID == "" {
		response.Error(c, appErrors.NewBadRequest("org_id query parameter is required"))
		return
	}

	tokens, err := h.tokens.List(c.Request.Context(), orgID, services.TokenFilters{
		Status: c.Query("status"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"tokens": tokens, "total": len(tokens)})
}

// GET /api/join-tokens/:id
func (h *TokenHandler) Get(c *gin.Context) {
	token, err := h.tokens.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, token)
}

// DELETE /api/join-tokens/:id disables the token; records are never removed.
func (h *TokenHandler) Disable(c *gin.Context) {
	token, err := h.tokens.Disable(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, token)
}
