package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sellercentry/centry/internal/app"
	iauth "github.com/sellercentry/centry/internal/auth"
	"github.com/sellercentry/centry/internal/handlers"
	"github.com/sellercentry/centry/internal/middleware"
	"github.com/sellercentry/centry/internal/services"
	"github.com/sellercentry/centry/internal/tenancy"
	"github.com/sellercentry/centry/pkg/mail"
)

// Deps bundles the collaborators the router wires into handlers.
type Deps struct {
	Config    *app.Config
	JWT       *iauth.JWTService
	Tenants   *tenancy.Builder
	Invites   *services.InviteService
	Accounts  *services.AccountService
	Mailer    mail.Mailer
	RateStore middleware.RateStore
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Tenants == nil {
		return nil, fmt.Errorf("tenancy builder must be provided")
	}
	if deps.Invites == nil {
		return nil, fmt.Errorf("invite service must be provided")
	}
	if deps.Accounts == nil {
		return nil, fmt.Errorf("account service must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	limit := deps.Config.Server.RateLimit
	r.Use(middleware.RateLimit(deps.RateStore, limit.Requests, limit.Window))

	r.NoRoute(middleware.NotFoundHandler)

	if deps.Config.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health())
	}
	if deps.Config.Monitoring.Prometheus.Enabled {
		endpoint := deps.Config.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	tenantHandler := handlers.NewTenantHandler(deps.Tenants)
	inviteHandler := handlers.NewInviteHandler(deps.Invites)
	accountHandler := handlers.NewAccountHandler(deps.Accounts)
	ticketHandler := handlers.NewTicketHandler(deps.Mailer, deps.Config.Email.SupportInbox)

	apiGroup := r.Group("/api")

	// Public routes. Tenant context attaches identity when present; the
	// invite probe carries its own tighter limit.
	apiGroup.GET("/tenant", middleware.OptionalAuth(deps.JWT), tenantHandler.Current)
	apiGroup.POST("/invites/validate",
		middleware.RateLimit(deps.RateStore, deps.Config.Invites.ProbeRateLimit, time.Minute),
		inviteHandler.Validate)

	// Protected routes
	authed := apiGroup.Group("")
	authed.Use(middleware.Auth(deps.JWT))
	authed.GET("/accounts", accountHandler.List)
	authed.POST("/invites", inviteHandler.Create)
	authed.POST("/invites/redeem", inviteHandler.Redeem)
	authed.POST("/tickets", ticketHandler.Create)

	return r, nil
}
