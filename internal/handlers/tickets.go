package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sellercentry/centry/internal/middleware"
	appErrors "github.com/sellercentry/centry/pkg/errors"
	"github.com/sellercentry/centry/pkg/mail"
	"github.com/sellercentry/centry/pkg/response"
)

// TicketHandler relays support requests from signed-in sellers to the
// operations inbox.
type TicketHandler struct {
	mailer mail.Mailer
	inbox  string
}

// NewTicketHandler constructs a TicketHandler delivering to the given inbox.
func NewTicketHandler(mailer mail.Mailer, inbox string) *TicketHandler {
	return &TicketHandler{mailer: mailer, inbox: strings.TrimSpace(inbox)}
}

type createTicketRequest struct {
	Subject  string `json:"subject" validate:"required,max=200"`
	Message  string `json:"message" validate:"required,max=5000"`
	TenantID string `json:"tenant_id" validate:"omitempty,max=64"`
}

// POST /api/tickets
func (h *TicketHandler) Create(c *gin.Context) {
	if h.mailer == nil || h.inbox == "" {
		response.Error(c, appErrors.ErrServiceUnavailable)
		return
	}
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req createTicketRequest
	if !bindAndValidate(c, &req) {
		return
	}

	userEmail := c.GetString(middleware.CtxUserEmailKey)
	body := fmt.Sprintf("From: %s (%s)\nTenant: %s\n\n%s\n", userID, userEmail, req.TenantID, req.Message)

	message := mail.Message{
		To:      []string{h.inbox},
		Subject: fmt.Sprintf("[support] %s", req.Subject),
		Body:    body,
	}
	if err := h.mailer.Send(requestContext(c), message); err != nil {
		response.Error(c, appErrors.ErrServiceUnavailable.WithInternal(err))
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{"delivered": true})
}
