package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sellercentry/centry/internal/models"
	"github.com/sellercentry/centry/pkg/crypto"
	apperrors "github.com/sellercentry/centry/pkg/errors"
	"github.com/sellercentry/centry/pkg/logger"
	"github.com/sellercentry/centry/pkg/mail"
	"github.com/sellercentry/centry/pkg/metrics"
)

const (
	inviteTokenLength = 32
	defaultInviteDays = 7
)

// allowedInviteDays is the set of expiry windows an issuer may request.
var allowedInviteDays = map[int]struct{}{1: {}, 3: {}, 7: {}, 14: {}, 30: {}}

var (
	// ErrInviteNotFound indicates no invite matches the provided token.
	ErrInviteNotFound = apperrors.New("INVITE_NOT_FOUND", "Invite not found", http.StatusNotFound)
	// ErrInviteExpired indicates the invite is past its expiry window.
	ErrInviteExpired = apperrors.New("INVITE_EXPIRED", "Invite has expired", http.StatusGone)
	// ErrInviteAlreadyUsed signals that the invite has already been redeemed.
	ErrInviteAlreadyUsed = apperrors.New("INVITE_ALREADY_USED", "Invite has already been used", http.StatusConflict)
	// ErrInviteEmailMismatch rejects redemption by an account the invite was
	// not addressed to. The token alone is not proof of authorization.
	ErrInviteEmailMismatch = apperrors.New("INVITE_EMAIL_MISMATCH", "Invite was issued for a different email address", http.StatusForbidden)
)

// InviteOption customises InviteService behaviour.
type InviteOption func(*InviteService)

// WithInviteBaseURL configures the base URL used to build signup links.
func WithInviteBaseURL(url string) InviteOption {
	return func(s *InviteService) {
		s.baseURL = strings.TrimRight(url, "/")
	}
}

// WithInviteClock injects a custom clock primarily for testing.
func WithInviteClock(clock func() time.Time) InviteOption {
	return func(s *InviteService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithIssuerMembershipRequired makes Create reject tenant ids the issuing
// user does not hold a membership for.
func WithIssuerMembershipRequired(access *AccessService) InviteOption {
	return func(s *InviteService) {
		s.issuerAccess = access
	}
}

// InviteService manages issue, validation and redemption of invite tokens.
type InviteService struct {
	db           *gorm.DB
	mailer       mail.Mailer
	baseURL      string
	issuerAccess *AccessService
	now          func() time.Time
}

// NewInviteService constructs an InviteService with the provided dependencies.
func NewInviteService(db *gorm.DB, mailer mail.Mailer, opts ...InviteOption) (*InviteService, error) {
	if db == nil {
		return nil, errors.New("invite service: db is required")
	}

	service := &InviteService{
		db:     db,
		mailer: mailer,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// CreateInviteInput carries the issuer's request to mint a new invite.
type CreateInviteInput struct {
	Email         string
	TenantIDs     []string
	ExpiresInDays int
	InvitedBy     string
}

// CreateInviteResult reports the persisted invite together with the raw
// token and whether the email hand-off succeeded. Delivery failure does not
// invalidate the invite.
type CreateInviteResult struct {
	Invite    *models.Invite
	Token     string
	InviteURL string
	Delivered bool
}

// Create mints an invite token for the given email and tenant set.
func (s *InviteService) Create(ctx context.Context, input CreateInviteInput) (*CreateInviteResult, error) {
	invitedBy := strings.TrimSpace(input.InvitedBy)
	if invitedBy == "" {
		return nil, apperrors.ErrUnauthorized
	}

	tenantIDs := normaliseIDs(input.TenantIDs)
	if len(tenantIDs) == 0 {
		return nil, apperrors.NewBadRequest("at least one tenant id is required")
	}

	days := input.ExpiresInDays
	if days == 0 {
		days = defaultInviteDays
	}
	if _, ok := allowedInviteDays[days]; !ok {
		return nil, apperrors.NewBadRequest("expires_in_days must be one of 1, 3, 7, 14 or 30")
	}

	if s.issuerAccess != nil {
		for _, tenantID := range tenantIDs {
			ok, err := s.issuerAccess.HasAccess(ctx, invitedBy, tenantID)
			if err != nil {
				return nil, fmt.Errorf("invite service: verify issuer membership: %w", err)
			}
			if !ok {
				return nil, apperrors.ErrAccessDenied
			}
		}
	}

	token, err := crypto.GenerateInviteToken(inviteTokenLength)
	if err != nil {
		return nil, fmt.Errorf("invite service: generate token: %w", err)
	}

	now := s.now()
	invite := models.Invite{
		Token:     token,
		Email:     normaliseEmail(input.Email),
		TenantIDs: datatypes.NewJSONSlice(tenantIDs),
		InvitedBy: invitedBy,
		ExpiresAt: now.Add(time.Duration(days) * 24 * time.Hour),
	}

	if err := s.db.WithContext(ctx).Create(&invite).Error; err != nil {
		return nil, fmt.Errorf("invite service: create invite: %w", err)
	}

	result := &CreateInviteResult{
		Invite:    &invite,
		Token:     token,
		InviteURL: s.inviteURL(token),
	}
	result.Delivered = s.deliver(ctx, &invite, result.InviteURL)

	if result.Delivered {
		metrics.InvitesIssued.WithLabelValues("delivered").Inc()
	} else {
		metrics.InvitesIssued.WithLabelValues("undelivered").Inc()
	}

	return result, nil
}

// Validate is a read-only probe of an invite token. It never flips the used
// flag, so a signup page may poll it freely.
func (s *InviteService) Validate(ctx context.Context, token string) (*models.Invite, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInviteNotFound
	}

	var invite models.Invite
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&invite).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, fmt.Errorf("invite service: find invite: %w", err)
	}

	if invite.Used {
		return nil, ErrInviteAlreadyUsed
	}
	if invite.ExpiredAt(s.now()) {
		return nil, ErrInviteExpired
	}

	return &invite, nil
}

// Redeem consumes an invite and grants the redeeming user a membership for
// every tenant on it. The used flag is flipped with a conditional update so
// concurrent redemptions of the same token produce exactly one winner.
func (s *InviteService) Redeem(ctx context.Context, token, userID, userEmail string) ([]string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		metrics.InviteRedemptions.WithLabelValues("not_found").Inc()
		return nil, ErrInviteNotFound
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	now := s.now()
	var tenantIDs []string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invite models.Invite
		if err := tx.Where("token = ?", token).First(&invite).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInviteNotFound
			}
			return fmt.Errorf("find invite: %w", err)
		}

		if invite.Used {
			return ErrInviteAlreadyUsed
		}
		if invite.ExpiredAt(now) {
			return ErrInviteExpired
		}
		if invite.Email != "" && !strings.EqualFold(invite.Email, strings.TrimSpace(userEmail)) {
			return ErrInviteEmailMismatch
		}

		res := tx.Model(&models.Invite{}).
			Where("id = ? AND used = ?", invite.ID, false).
			Updates(map[string]any{"used": true, "used_at": now})
		if res.Error != nil {
			return fmt.Errorf("mark used: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// Lost the race to a concurrent redemption.
			return ErrInviteAlreadyUsed
		}

		for _, tenantID := range invite.TenantIDs {
			membership := models.Membership{UserID: userID, TenantID: tenantID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&membership).Error; err != nil {
				if isUniqueConstraintError(err) {
					continue
				}
				return fmt.Errorf("create membership: %w", err)
			}
		}

		tenantIDs = append([]string(nil), invite.TenantIDs...)
		return nil
	})
	if err != nil {
		metrics.InviteRedemptions.WithLabelValues(redemptionResult(err)).Inc()
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, fmt.Errorf("invite service: redeem: %w", err)
	}

	metrics.InviteRedemptions.WithLabelValues("redeemed").Inc()
	return tenantIDs, nil
}

func (s *InviteService) inviteURL(token string) string {
	if s.baseURL == "" {
		return token
	}
	return fmt.Sprintf("%s/signup?token=%s", s.baseURL, token)
}

// deliver hands the invite link to the mailer. Failures are logged and
// reported through the return value, never bubbled up: the invite stays
// valid and the issuer can share the link out of band.
func (s *InviteService) deliver(ctx context.Context, invite *models.Invite, link string) bool {
	if s.mailer == nil || invite.Email == "" {
		return false
	}

	message := mail.Message{
		To:      []string{invite.Email},
		Subject: "You have been invited to Seller Centry",
		Body:    fmt.Sprintf("Hello,\n\nYou have been invited to join Seller Centry. Open the link below to accept:\n%s\n\nThe link expires on %s.\n", link, invite.ExpiresAt.Format("Jan 2, 2006")),
	}

	if err := s.mailer.Send(ctx, message); err != nil {
		if !errors.Is(err, mail.ErrSMTPDisabled) {
			logger.Warn("invite email delivery failed",
				zap.String("email", invite.Email),
				zap.Error(err))
		}
		return false
	}
	return true
}

func redemptionResult(err error) string {
	switch {
	case errors.Is(err, ErrInviteNotFound):
		return "not_found"
	case errors.Is(err, ErrInviteExpired):
		return "expired"
	case errors.Is(err, ErrInviteAlreadyUsed):
		return "already_used"
	case errors.Is(err, ErrInviteEmailMismatch):
		return "email_mismatch"
	default:
		return "error"
	}
}
