package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/internal/service"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
	"github.com/noah-isme/sma-substitution-api/pkg/response"
)

type tokenIssuer interface {
	IssueToken(req models.IssueTokenRequest) (*service.IssuedToken, error)
}

// AuthHandler issues development tokens. It is only mounted outside production.
type AuthHandler struct {
	issuer tokenIssuer
}

// NewAuthHandler builds a new handler.
func NewAuthHandler(issuer tokenIssuer) *AuthHandler {
	return &AuthHandler{issuer: issuer}
}

// IssueToken godoc
// @Summary Issue a development access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.IssueTokenRequest true "Token claims"
// @Success 201 {object} response.Envelope
// @Router /auth/dev-token [post]
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req models.IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid token request"))
		return
	}
	token, err := h.issuer.IssueToken(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, token)
}
