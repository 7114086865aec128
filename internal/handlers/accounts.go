package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sellercentry/centry/internal/middleware"
	"github.com/sellercentry/centry/internal/services"
	appErrors "github.com/sellercentry/centry/pkg/errors"
	"github.com/sellercentry/centry/pkg/response"
)

// AccountHandler lists the accounts a signed-in user may switch between.
type AccountHandler struct {
	accounts *services.AccountService
}

// NewAccountHandler constructs an AccountHandler.
func NewAccountHandler(accounts *services.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// GET /api/accounts
func (h *AccountHandler) List(c *gin.Context) {
	if h.accounts == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	accounts, err := h.accounts.List(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"accounts": accounts})
}
