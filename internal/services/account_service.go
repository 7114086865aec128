package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sellercentry/centry/internal/directory"
)

// Account is one entry in the account switcher shown to a signed-in user.
type Account struct {
	TenantID  string `json:"tenant_id"`
	StoreName string `json:"store_name"`
	Subdomain string `json:"subdomain"`
}

// AccountService lists the tenants a user may switch between, decorated with
// directory metadata.
type AccountService struct {
	access *AccessService
	dir    *directory.Directory
}

// NewAccountService constructs an AccountService.
func NewAccountService(access *AccessService, dir *directory.Directory) (*AccountService, error) {
	if access == nil {
		return nil, errors.New("account service: access service is required")
	}
	if dir == nil {
		return nil, errors.New("account service: directory is required")
	}
	return &AccountService{access: access, dir: dir}, nil
}

// List returns the user's accounts sorted case-insensitively by store name.
// A membership whose tenant is missing from the directory still appears,
// falling back to the raw tenant id, so a stale directory row never hides an
// account the user legitimately holds.
func (s *AccountService) List(ctx context.Context, userID string) ([]Account, error) {
	tenantIDs, err := s.access.ListTenantIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	accounts := make([]Account, 0, len(tenantIDs))
	for _, tenantID := range tenantIDs {
		tenant, err := s.dir.LookupByTenantID(ctx, tenantID)
		switch {
		case err == nil:
			accounts = append(accounts, Account{
				TenantID:  tenant.TenantID,
				StoreName: tenant.StoreName,
				Subdomain: tenant.Subdomain,
			})
		case errors.Is(err, directory.ErrTenantNotFound), errors.Is(err, directory.ErrMalformedEntry):
			accounts = append(accounts, Account{
				TenantID:  tenantID,
				StoreName: tenantID,
				Subdomain: directory.Slug(tenantID),
			})
		default:
			return nil, fmt.Errorf("account service: lookup tenant %s: %w", tenantID, err)
		}
	}

	sort.SliceStable(accounts, func(i, j int) bool {
		left := strings.ToLower(accounts[i].StoreName)
		right := strings.ToLower(accounts[j].StoreName)
		if left == right {
			return accounts[i].TenantID < accounts[j].TenantID
		}
		return left < right
	})

	return accounts, nil
}
