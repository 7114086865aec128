package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sellercentry/centry/internal/directory"
)

func TestTenantUnknownSubdomainIs404(t *testing.T) {
	env := newTestEnv(t, &fakeSource{rows: directoryRows})

	w := env.do(t, http.MethodGet, "/api/tenant", "nosuchstore.sellercentry.com", "", nil)
	requireErrorCode(t, w, http.StatusNotFound, "TENANT_NOT_FOUND")
}

func TestTenantBareDomainIs404(t *testing.T) {
	env := newTestEnv(t, &fakeSource{rows: directoryRows})

	w := env.do(t, http.MethodGet, "/api/tenant", "www.sellercentry.com", "", nil)
	requireErrorCode(t, w, http.StatusNotFound, "TENANT_NOT_FOUND")
}

func TestTenantDirectoryOutageIs503(t *testing.T) {
	env := newTestEnv(t, &fakeSource{err: directory.ErrUnavailable})

	w := env.do(t, http.MethodGet, "/api/tenant", "acme-goods.sellercentry.com", "", nil)
	requireErrorCode(t, w, http.StatusServiceUnavailable, "DIRECTORY_UNAVAILABLE")
}

func TestTenantMalformedDirectoryRow(t *testing.T) {
	rows := [][]string{{"Acme Goods", "ACME1", "owner@acme.com", "not-a-sheet-url"}}
	env := newTestEnv(t, &fakeSource{rows: rows})

	w := env.do(t, http.MethodGet, "/api/tenant", "acme-goods.sellercentry.com", "", nil)
	requireErrorCode(t, w, http.StatusInternalServerError, "MALFORMED_DIRECTORY_ENTRY")
}

func TestTenantAnonymousCallerSeesDeniedAccess(t *testing.T) {
	env := newTestEnv(t, &fakeSource{rows: directoryRows})

	w := env.do(t, http.MethodGet, "/api/tenant", "acme-goods.sellercentry.com", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	require.Equal(t, "denied", data["access"])

	tenant := data["tenant"].(map[string]any)
	require.Equal(t, "ACME1", tenant["tenant_id"])
	require.Equal(t, "Acme Goods", tenant["store_name"])
	require.Equal(t, "acme-goods", tenant["subdomain"])
	require.Equal(t, "acme-sheet", tenant["data_source_handle"])
}

func TestTenantMemberGetsGrantedAccess(t *testing.T) {
	env := newTestEnv(t, &fakeSource{rows: directoryRows})
	require.NoError(t, env.access.Grant(context.Background(), "user-1", "ACME1"))

	token := env.token(t, "user-1", "joe@acme.com")
	w := env.do(t, http.MethodGet, "/api/tenant", "acme-goods.sellercentry.com", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "granted", decodeData(t, w)["access"])
}

func TestTenantNonMemberGetsDeniedAccess(t *testing.T) {
	env := newTestEnv(t, &fakeSource{rows: directoryRows})
	require.NoError(t, env.access.Grant(context.Background(), "user-1", "BLUE2"))

	token := env.token(t, "user-1", "joe@acme.com")
	w := env.do(t, http.MethodGet, "/api/tenant", "acme-goods.sellercentry.com", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "denied", decodeData(t, w)["access"])
}
