package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sellercentry/centry/internal/middleware"
	"github.com/sellercentry/centry/internal/services"
	appErrors "github.com/sellercentry/centry/pkg/errors"
	"github.com/sellercentry/centry/pkg/response"
)

// InviteHandler exposes invite issue, validation and redemption.
type InviteHandler struct {
	invites *services.InviteService
}

// NewInviteHandler constructs an InviteHandler.
func NewInviteHandler(invites *services.InviteService) *InviteHandler {
	return &InviteHandler{invites: invites}
}

type createInviteRequest struct {
	Email         string   `json:"email" validate:"omitempty,email"`
	TenantIDs     []string `json:"tenant_ids" validate:"required,min=1,dive,required"`
	ExpiresInDays int      `json:"expires_in_days" validate:"omitempty,oneof=1 3 7 14 30"`
}

type validateInviteRequest struct {
	Token string `json:"token" validate:"required"`
}

type redeemInviteRequest struct {
	Token string `json:"token" validate:"required"`
}

type inviteCreatedResponse struct {
	Token     string    `json:"token"`
	InviteURL string    `json:"invite_url"`
	Email     string    `json:"email,omitempty"`
	TenantIDs []string  `json:"tenant_ids"`
	ExpiresAt time.Time `json:"expires_at"`
	Delivered bool      `json:"delivered"`
}

type inviteInfoResponse struct {
	Valid     bool      `json:"valid"`
	Reason    string    `json:"reason,omitempty"`
	Email     string    `json:"email,omitempty"`
	TenantIDs []string  `json:"tenant_ids,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// POST /api/invites
func (h *InviteHandler) Create(c *gin.Context) {
	if h.invites == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req createInviteRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.invites.Create(requestContext(c), services.CreateInviteInput{
		Email:         req.Email,
		TenantIDs:     req.TenantIDs,
		ExpiresInDays: req.ExpiresInDays,
		InvitedBy:     userID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, inviteCreatedResponse{
		Token:     result.Token,
		InviteURL: result.InviteURL,
		Email:     result.Invite.Email,
		TenantIDs: []string(result.Invite.TenantIDs),
		ExpiresAt: result.Invite.ExpiresAt,
		Delivered: result.Delivered,
	})
}

// POST /api/invites/validate
//
// A failed probe is still a 200: the signup page switches on valid/reason,
// it does not treat a stale link as a transport error.
func (h *InviteHandler) Validate(c *gin.Context) {
	if h.invites == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	var req validateInviteRequest
	if !bindAndValidate(c, &req) {
		return
	}

	invite, err := h.invites.Validate(requestContext(c), req.Token)
	if err != nil {
		if reason, ok := inviteFailureReason(err); ok {
			response.Success(c, http.StatusOK, inviteInfoResponse{Valid: false, Reason: reason})
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, inviteInfoResponse{
		Valid:     true,
		Email:     invite.Email,
		TenantIDs: []string(invite.TenantIDs),
		ExpiresAt: invite.ExpiresAt,
	})
}

// POST /api/invites/redeem
func (h *InviteHandler) Redeem(c *gin.Context) {
	if h.invites == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	userEmail := c.GetString(middleware.CtxUserEmailKey)

	var req redeemInviteRequest
	if !bindAndValidate(c, &req) {
		return
	}

	tenantIDs, err := h.invites.Redeem(requestContext(c), req.Token, userID, userEmail)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"tenant_ids": tenantIDs})
}

func inviteFailureReason(err error) (string, bool) {
	switch {
	case errors.Is(err, services.ErrInviteNotFound):
		return "not_found", true
	case errors.Is(err, services.ErrInviteAlreadyUsed):
		return "already_used", true
	case errors.Is(err, services.ErrInviteExpired):
		return "expired", true
	default:
		return "", false
	}
}
