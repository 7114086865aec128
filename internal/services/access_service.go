package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sellercentry/centry/internal/models"
	"github.com/sellercentry/centry/pkg/metrics"
)

// AccessService answers membership questions. Checks always hit the current
// committed state; memberships can change mid-session when the same user
// redeems an invite in another tab, so results are never cached.
type AccessService struct {
	db *gorm.DB
}

// NewAccessService constructs an AccessService backed by the given database.
func NewAccessService(db *gorm.DB) (*AccessService, error) {
	if db == nil {
		return nil, errors.New("access service: db is required")
	}
	return &AccessService{db: db}, nil
}

// HasAccess reports whether a membership row exists for the (user, tenant)
// pair. Blank inputs are a plain denial, not an error.
func (s *AccessService) HasAccess(ctx context.Context, userID, tenantID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	tenantID = strings.TrimSpace(tenantID)
	if userID == "" || tenantID == "" {
		metrics.AccessChecks.WithLabelValues("denied").Inc()
		return false, nil
	}

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("user_id = ? AND tenant_id = ?", userID, tenantID).
		Count(&count).Error
	if err != nil {
		metrics.AccessChecks.WithLabelValues("error").Inc()
		return false, fmt.Errorf("access service: count memberships: %w", err)
	}

	if count > 0 {
		metrics.AccessChecks.WithLabelValues("granted").Inc()
		return true, nil
	}
	metrics.AccessChecks.WithLabelValues("denied").Inc()
	return false, nil
}

// Grant records a membership for the pair. Granting an existing pairing is a
// no-op.
func (s *AccessService) Grant(ctx context.Context, userID, tenantID string) error {
	userID = strings.TrimSpace(userID)
	tenantID = strings.TrimSpace(tenantID)
	if userID == "" || tenantID == "" {
		return errors.New("access service: user id and tenant id are required")
	}

	membership := models.Membership{UserID: userID, TenantID: tenantID}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&membership).Error
	if err != nil && !isUniqueConstraintError(err) {
		return fmt.Errorf("access service: create membership: %w", err)
	}
	return nil
}

// ListTenantIDs returns every tenant id the user holds a membership for,
// ordered for stable pagination upstream.
func (s *AccessService) ListTenantIDs(ctx context.Context, userID string) ([]string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}

	var tenantIDs []string
	err := s.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("user_id = ?", userID).
		Order("tenant_id").
		Pluck("tenant_id", &tenantIDs).Error
	if err != nil {
		return nil, fmt.Errorf("access service: list memberships: %w", err)
	}
	return tenantIDs, nil
}
