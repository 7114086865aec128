package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sellercentry/centry/internal/middleware"
	"github.com/sellercentry/centry/internal/tenancy"
	appErrors "github.com/sellercentry/centry/pkg/errors"
	"github.com/sellercentry/centry/pkg/response"
)

// TenantHandler serves the tenant context derived from the request's Host
// header.
type TenantHandler struct {
	tenants *tenancy.Builder
}

// NewTenantHandler constructs a TenantHandler.
func NewTenantHandler(tenants *tenancy.Builder) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

type tenantDTO struct {
	TenantID         string `json:"tenant_id"`
	StoreName        string `json:"store_name"`
	Subdomain        string `json:"subdomain"`
	DataSourceHandle string `json:"data_source_handle"`
}

type tenantContextResponse struct {
	Tenant tenantDTO `json:"tenant"`
	Access string    `json:"access"`
}

// GET /api/tenant
//
// The response keeps the four composite outcomes apart: an unresolvable or
// unknown subdomain is a 404, a directory outage is a 5xx with its own code,
// and a resolved tenant answers 200 with the caller's access verdict.
func (h *TenantHandler) Current(c *gin.Context) {
	if h.tenants == nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	tctx := h.tenants.Build(requestContext(c), c.Request.Host, userID)

	switch tctx.State {
	case tenancy.StateNoTenant:
		response.Error(c, appErrors.New("TENANT_NOT_FOUND", "No account is configured for this address", http.StatusNotFound))
		return
	case tenancy.StateDirectoryError:
		if tctx.Err != nil {
			response.Error(c, tctx.Err)
			return
		}
		response.Error(c, appErrors.ErrServiceUnavailable)
		return
	}

	access := "denied"
	if tctx.State == tenancy.StateAuthorized {
		access = "granted"
	}

	response.Success(c, http.StatusOK, tenantContextResponse{
		Tenant: tenantDTO{
			TenantID:         tctx.Tenant.TenantID,
			StoreName:        tctx.Tenant.StoreName,
			Subdomain:        tctx.Tenant.Subdomain,
			DataSourceHandle: tctx.Tenant.SheetID,
		},
		Access: access,
	})
}
