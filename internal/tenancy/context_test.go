package tenancy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sellercentry/centry/internal/directory"
)

type rowsSource struct {
	rows [][]string
	err  error
}

func (s *rowsSource) Rows(context.Context) ([][]string, error) {
	return s.rows, s.err
}

type stubAccess struct {
	allowed map[string]bool
	err     error
}

func (s *stubAccess) HasAccess(_ context.Context, userID, tenantID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.allowed[userID+"|"+tenantID], nil
}

func newTestBuilder(t *testing.T, source directory.Source, access AccessChecker) *Builder {
	t.Helper()
	dir, err := directory.New(source)
	require.NoError(t, err)

	builder, err := NewBuilder(NewResolver(ResolverConfig{}), dir, access)
	require.NoError(t, err)
	return builder
}

var acmeRows = [][]string{
	{"Acme Corp", "ACME1", "owner@acme.com", "https://docs.google.com/spreadsheets/d/1AcmeSheetId/edit"},
}

func TestBuildNoTenantSubdomain(t *testing.T) {
	builder := newTestBuilder(t, &rowsSource{rows: acmeRows}, &stubAccess{})

	tc := builder.Build(context.Background(), "www.sellercentry.com", "user-1")
	require.Equal(t, StateNoTenant, tc.State)
	require.Nil(t, tc.Tenant)
}

func TestBuildUnknownSubdomainIsNoTenant(t *testing.T) {
	builder := newTestBuilder(t, &rowsSource{rows: acmeRows}, &stubAccess{})

	tc := builder.Build(context.Background(), "ghost.sellercentry.com", "user-1")
	require.Equal(t, StateNoTenant, tc.State)
	require.ErrorIs(t, tc.Err, directory.ErrTenantNotFound)
}

func TestBuildDirectoryError(t *testing.T) {
	builder := newTestBuilder(t, &rowsSource{err: directory.ErrUnavailable}, &stubAccess{})

	tc := builder.Build(context.Background(), "acme-corp.sellercentry.com", "user-1")
	require.Equal(t, StateDirectoryError, tc.State)
	require.ErrorIs(t, tc.Err, directory.ErrUnavailable)
}

func TestBuildAccessDenied(t *testing.T) {
	builder := newTestBuilder(t, &rowsSource{rows: acmeRows}, &stubAccess{})

	tc := builder.Build(context.Background(), "acme-corp.sellercentry.com", "user-1")
	require.Equal(t, StateAccessDenied, tc.State)
	require.NotNil(t, tc.Tenant)
	require.Equal(t, "ACME1", tc.Tenant.TenantID)
}

func TestBuildAuthorized(t *testing.T) {
	access := &stubAccess{allowed: map[string]bool{"user-1|ACME1": true}}
	builder := newTestBuilder(t, &rowsSource{rows: acmeRows}, access)

	tc := builder.Build(context.Background(), "acme-corp.sellercentry.com", "user-1")
	require.Equal(t, StateAuthorized, tc.State)
	require.Equal(t, "acme-corp", tc.Subdomain)
}

func TestBuildAccessCheckFailure(t *testing.T) {
	access := &stubAccess{err: errors.New("db down")}
	builder := newTestBuilder(t, &rowsSource{rows: acmeRows}, access)

	tc := builder.Build(context.Background(), "acme-corp.sellercentry.com", "user-1")
	require.Equal(t, StateDirectoryError, tc.State)
	require.Error(t, tc.Err)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "no_tenant", StateNoTenant.String())
	require.Equal(t, "authorized", StateAuthorized.String())
}
