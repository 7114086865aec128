package main

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gin-gonic/gin"

	"github.com/sellercentry/centry/internal/api"
	"github.com/sellercentry/centry/internal/app"
	iauth "github.com/sellercentry/centry/internal/auth"
	"github.com/sellercentry/centry/internal/cache"
	"github.com/sellercentry/centry/internal/database"
	"github.com/sellercentry/centry/internal/directory"
	"github.com/sellercentry/centry/internal/middleware"
	"github.com/sellercentry/centry/internal/services"
	"github.com/sellercentry/centry/internal/tenancy"
	"github.com/sellercentry/centry/pkg/logger"
	"github.com/sellercentry/centry/pkg/mail"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Redis     cache.Store
	RateStore middleware.RateStore
	Router    *gin.Engine
}

// bootstrapRuntime initialises the database, cache, services and HTTP router.
func bootstrapRuntime(cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)

	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisClient(cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed operations", zap.Error(err))
			stack.Redis = nil
		} else {
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	sharedStore := stack.Redis
	if sharedStore == nil {
		sharedStore = dbStore
	}
	stack.RateStore = middleware.NewSharedRateStore(sharedStore)

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}

	var source directory.Source = directory.NewSheetSource(cfg.Directory.SheetSourceConfig())
	if cfg.Directory.Cache.Enabled {
		source = directory.NewCachedSource(source, sharedStore, cfg.Directory.Cache.TTL)
	}
	dir, err := directory.New(source)
	if err != nil {
		return nil, fmt.Errorf("initialise directory: %w", err)
	}

	accessSvc, err := services.NewAccessService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise access service: %w", err)
	}

	inviteOpts := []services.InviteOption{
		services.WithInviteBaseURL(cfg.Invites.BaseURL),
	}
	if cfg.Invites.RequireIssuerMembership {
		inviteOpts = append(inviteOpts, services.WithIssuerMembershipRequired(accessSvc))
	}
	inviteSvc, err := services.NewInviteService(stack.DB, mailer, inviteOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise invite service: %w", err)
	}

	accountSvc, err := services.NewAccountService(accessSvc, dir)
	if err != nil {
		return nil, fmt.Errorf("initialise account service: %w", err)
	}

	resolver := tenancy.NewResolver(tenancy.ResolverConfig{
		FallbackSubdomain: cfg.Tenancy.FallbackSubdomain,
		PreviewSuffixes:   cfg.Tenancy.PreviewSuffixes,
	})
	builder, err := tenancy.NewBuilder(resolver, dir, accessSvc)
	if err != nil {
		return nil, fmt.Errorf("initialise tenancy builder: %w", err)
	}

	stack.Router, err = api.NewRouter(api.Deps{
		Config:    cfg,
		JWT:       jwtSvc,
		Tenants:   builder,
		Invites:   inviteSvc,
		Accounts:  accountSvc,
		Mailer:    mailer,
		RateStore: stack.RateStore,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown releases the stack's long-lived resources.
func (s *runtimeStack) Shutdown(log *zap.Logger) {
	if rc, ok := s.Redis.(*cache.RedisClient); ok && rc != nil {
		if err := rc.Close(); err != nil {
			log.Warn("close redis", zap.Error(err))
		}
	}
	closeDatabase(s.DB, log)
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseSettings()
	db, err := database.OpenAndMigrate(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	logger.WithModule("database").Info("database connected",
		zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("access raw database handle", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("close database", zap.Error(err))
	}
}
