package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sellercentry/centry/internal/database"
	"github.com/sellercentry/centry/internal/database/testutil"
	"github.com/sellercentry/centry/internal/models"
	apperrors "github.com/sellercentry/centry/pkg/errors"
	"github.com/sellercentry/centry/pkg/mail"
)

type recordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var testInstant = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestInviteCreateAndRedeem(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	mailer := &recordingMailer{}

	svc, err := NewInviteService(db, mailer,
		WithInviteBaseURL("https://app.sellercentry.com/"),
		WithInviteClock(fixedClock(testInstant)),
	)
	require.NoError(t, err)

	result, err := svc.Create(context.Background(), CreateInviteInput{
		Email:     "New@Acme.com",
		TenantIDs: []string{"ACME1", "ACME2", " ACME1 "},
		InvitedBy: "issuer-1",
	})
	require.NoError(t, err)
	require.Len(t, result.Token, 32)
	require.Equal(t, "https://app.sellercentry.com/signup?token="+result.Token, result.InviteURL)
	require.True(t, result.Delivered)
	require.Equal(t, "new@acme.com", result.Invite.Email)
	require.Equal(t, []string{"ACME1", "ACME2"}, []string(result.Invite.TenantIDs))
	require.Equal(t, testInstant.Add(7*24*time.Hour), result.Invite.ExpiresAt.UTC())
	require.Len(t, mailer.messages, 1)
	require.Contains(t, mailer.messages[0].Body, result.InviteURL)

	tenantIDs, err := svc.Redeem(context.Background(), result.Token, "user-9", "new@acme.com")
	require.NoError(t, err)
	require.Equal(t, []string{"ACME1", "ACME2"}, tenantIDs)

	var memberships []models.Membership
	require.NoError(t, db.Where("user_id = ?", "user-9").Order("tenant_id").Find(&memberships).Error)
	require.Len(t, memberships, 2)

	_, err = svc.Redeem(context.Background(), result.Token, "user-9", "new@acme.com")
	require.ErrorIs(t, err, ErrInviteAlreadyUsed)
}

func TestInviteCreateRejectsBadInput(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewInviteService(db, nil)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInviteInput{TenantIDs: []string{"ACME1"}})
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = svc.Create(context.Background(), CreateInviteInput{InvitedBy: "issuer-1"})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = svc.Create(context.Background(), CreateInviteInput{
		InvitedBy:     "issuer-1",
		TenantIDs:     []string{"ACME1"},
		ExpiresInDays: 5,
	})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestInviteCreateExpiryWindows(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewInviteService(db, nil, WithInviteClock(fixedClock(testInstant)))
	require.NoError(t, err)

	for _, days := range []int{1, 3, 7, 14, 30} {
		result, err := svc.Create(context.Background(), CreateInviteInput{
			InvitedBy:     "issuer-1",
			TenantIDs:     []string{"ACME1"},
			ExpiresInDays: days,
		})
		require.NoError(t, err)
		require.Equal(t, testInstant.Add(time.Duration(days)*24*time.Hour), result.Invite.ExpiresAt.UTC())
	}
}

func TestInviteCreateSurvivesDeliveryFailure(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	mailer := &recordingMailer{err: fmt.Errorf("smtp: connection refused")}

	svc, err := NewInviteService(db, mailer, WithInviteClock(fixedClock(testInstant)))
	require.NoError(t, err)

	result, err := svc.Create(context.Background(), CreateInviteInput{
		Email:     "new@acme.com",
		TenantIDs: []string{"ACME1"},
		InvitedBy: "issuer-1",
	})
	require.NoError(t, err)
	require.False(t, result.Delivered)

	// The undelivered invite still validates and redeems.
	invite, err := svc.Validate(context.Background(), result.Token)
	require.NoError(t, err)
	require.Equal(t, "new@acme.com", invite.Email)
}

func TestInviteCreateRequiresIssuerMembership(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	access, err := NewAccessService(db)
	require.NoError(t, err)
	require.NoError(t, access.Grant(context.Background(), "issuer-1", "ACME1"))

	svc, err := NewInviteService(db, nil, WithIssuerMembershipRequired(access))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInviteInput{
		InvitedBy: "issuer-1",
		TenantIDs: []string{"ACME1", "OTHER9"},
	})
	require.ErrorIs(t, err, apperrors.ErrAccessDenied)

	_, err = svc.Create(context.Background(), CreateInviteInput{
		InvitedBy: "issuer-1",
		TenantIDs: []string{"ACME1"},
	})
	require.NoError(t, err)
}

func TestInviteValidateOutcomes(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	current := testInstant
	svc, err := NewInviteService(db, nil, WithInviteClock(func() time.Time { return current }))
	require.NoError(t, err)

	_, err = svc.Validate(context.Background(), "no-such-token")
	require.ErrorIs(t, err, ErrInviteNotFound)

	result, err := svc.Create(context.Background(), CreateInviteInput{
		Email:         "new@acme.com",
		TenantIDs:     []string{"ACME1"},
		ExpiresInDays: 1,
		InvitedBy:     "issuer-1",
	})
	require.NoError(t, err)

	invite, err := svc.Validate(context.Background(), result.Token)
	require.NoError(t, err)
	require.False(t, invite.Used)

	// Validate is read-only: probing twice never consumes the invite.
	_, err = svc.Validate(context.Background(), result.Token)
	require.NoError(t, err)

	current = testInstant.Add(24*time.Hour + time.Second)
	_, err = svc.Validate(context.Background(), result.Token)
	require.ErrorIs(t, err, ErrInviteExpired)

	current = testInstant
	_, err = svc.Redeem(context.Background(), result.Token, "user-1", "new@acme.com")
	require.NoError(t, err)

	_, err = svc.Validate(context.Background(), result.Token)
	require.ErrorIs(t, err, ErrInviteAlreadyUsed)
}

func TestInviteRedeemEmailPolicy(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewInviteService(db, nil, WithInviteClock(fixedClock(testInstant)))
	require.NoError(t, err)

	result, err := svc.Create(context.Background(), CreateInviteInput{
		Email:     "Joe@acme.com",
		TenantIDs: []string{"ACME1"},
		InvitedBy: "issuer-1",
	})
	require.NoError(t, err)

	_, err = svc.Redeem(context.Background(), result.Token, "user-1", "someone-else@acme.com")
	require.ErrorIs(t, err, ErrInviteEmailMismatch)

	// A mismatch does not consume the token; a case-insensitive match succeeds.
	tenantIDs, err := svc.Redeem(context.Background(), result.Token, "user-1", "JOE@ACME.COM")
	require.NoError(t, err)
	require.Equal(t, []string{"ACME1"}, tenantIDs)
}

func TestInviteRedeemBlankEmailMatchesAnyone(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewInviteService(db, nil, WithInviteClock(fixedClock(testInstant)))
	require.NoError(t, err)

	result, err := svc.Create(context.Background(), CreateInviteInput{
		TenantIDs: []string{"ACME1"},
		InvitedBy: "issuer-1",
	})
	require.NoError(t, err)

	_, err = svc.Redeem(context.Background(), result.Token, "user-1", "whoever@example.com")
	require.NoError(t, err)
}

func TestInviteRedeemExpired(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	current := testInstant
	svc, err := NewInviteService(db, nil, WithInviteClock(func() time.Time { return current }))
	require.NoError(t, err)

	result, err := svc.Create(context.Background(), CreateInviteInput{
		TenantIDs:     []string{"ACME1"},
		ExpiresInDays: 3,
		InvitedBy:     "issuer-1",
	})
	require.NoError(t, err)

	current = testInstant.Add(3*24*time.Hour + time.Minute)
	_, err = svc.Redeem(context.Background(), result.Token, "user-1", "")
	require.ErrorIs(t, err, ErrInviteExpired)
}

func TestInviteRedeemDuplicateMembershipIsNoOp(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	access, err := NewAccessService(db)
	require.NoError(t, err)
	require.NoError(t, access.Grant(context.Background(), "user-1", "ACME1"))

	svc, err := NewInviteService(db, nil, WithInviteClock(fixedClock(testInstant)))
	require.NoError(t, err)

	result, err := svc.Create(context.Background(), CreateInviteInput{
		TenantIDs: []string{"ACME1", "ACME2"},
		InvitedBy: "issuer-1",
	})
	require.NoError(t, err)

	tenantIDs, err := svc.Redeem(context.Background(), result.Token, "user-1", "")
	require.NoError(t, err)
	require.Equal(t, []string{"ACME1", "ACME2"}, tenantIDs)

	var count int64
	require.NoError(t, db.Model(&models.Membership{}).Where("user_id = ?", "user-1").Count(&count).Error)
	require.EqualValues(t, 2, count)
}

// openRedeemRaceDB uses a file-backed database with immediate transactions
// so two writers queue on the write lock instead of deadlocking, the same
// shape a production deployment has.
func openRedeemRaceDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "centry.db")
	dsn := fmt.Sprintf("file:%s?_foreign_keys=1&_busy_timeout=5000&_txlock=immediate", filepath.ToSlash(path))

	db, err := database.Open(database.Config{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

func TestInviteRedeemConcurrentSingleWinner(t *testing.T) {
	db := openRedeemRaceDB(t)
	svc, err := NewInviteService(db, nil, WithInviteClock(fixedClock(testInstant)))
	require.NoError(t, err)

	result, err := svc.Create(context.Background(), CreateInviteInput{
		TenantIDs: []string{"ACME1"},
		InvitedBy: "issuer-1",
	})
	require.NoError(t, err)

	start := make(chan struct{})
	outcomes := make(chan error, 2)
	for _, userID := range []string{"user-a", "user-b"} {
		go func(userID string) {
			<-start
			_, err := svc.Redeem(context.Background(), result.Token, userID, "")
			outcomes <- err
		}(userID)
	}
	close(start)

	var successes, alreadyUsed int
	for i := 0; i < 2; i++ {
		err := <-outcomes
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrInviteAlreadyUsed):
			alreadyUsed++
		default:
			t.Fatalf("unexpected redeem error: %v", err)
		}
	}
	require.Equal(t, 1, successes, "exactly one concurrent redemption must win")
	require.Equal(t, 1, alreadyUsed)

	var count int64
	require.NoError(t, db.Model(&models.Membership{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}
