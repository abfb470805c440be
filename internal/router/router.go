package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/ishpreet160/CertFlow/internal/binding"
	"github.com/ishpreet160/CertFlow/internal/config"
	"github.com/ishpreet160/CertFlow/internal/directory"
	"github.com/ishpreet160/CertFlow/internal/handler"
	"github.com/ishpreet160/CertFlow/internal/identity"
	"github.com/ishpreet160/CertFlow/internal/middleware"
	"github.com/ishpreet160/CertFlow/internal/notification"
	"github.com/ishpreet160/CertFlow/internal/policy"
	"github.com/ishpreet160/CertFlow/internal/repository"
	"github.com/ishpreet160/CertFlow/internal/service"
	"github.com/ishpreet160/CertFlow/internal/storage"
	"github.com/ishpreet160/CertFlow/internal/token"
)

// Deps are the process-level collaborators built by the composition root.
// Redis may be nil when REDIS_URL is not set.
type Deps struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Store   storage.BlobStore
	Orphans binding.OrphanRecorder
	Queue   notification.Queue
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Policy/Directory ← Repository ← DB
func New(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.Origins()))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(d.DB)
	certRepo := repository.NewCertificateRepository(d.DB)
	refRepo := repository.NewReferenceRepository(d.DB)
	uploadRepo := repository.NewUploadRepository(d.DB)

	// ── Core ─────────────────────────────────────────────────────────────────
	dir := directory.New(userRepo)
	gate := policy.NewGate(dir)
	tokens := token.NewIssuer(cfg.JWTSecret,
		time.Duration(cfg.JWTExpirationHours)*time.Hour,
		time.Duration(cfg.PasswordResetMinutes)*time.Minute)
	binder := binding.New(d.Store, uploadRepo, d.Orphans)
	allow := storage.NewAllowlist(cfg.Extensions(), cfg.MaxUploadBytes())
	notifier := notification.New(d.Queue, cfg.FrontendURL)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, dir, tokens, notifier, cfg)
	userSvc := service.NewUserService(userRepo, dir, gate)
	certSvc := service.NewCertificateService(certRepo, uploadRepo, userRepo, gate, binder, allow, notifier)
	refSvc := service.NewReferenceService(refRepo, uploadRepo, gate, binder, allow)
	dashSvc := service.NewDashboardService(certRepo, gate)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usersH := handler.NewUsersHandler(userSvc)
	certsH := handler.NewCertificatesHandler(certSvc, cfg.MaxUploadBytes())
	tcilH := handler.NewTCILHandler(refSvc, cfg.MaxUploadBytes())
	dashH := handler.NewDashboardHandler(dashSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(d.DB, d.Redis))

	credLimit := middleware.LoginRateLimiter()
	auth := r.Group("/v1/auth")
	{
		auth.POST("/register", credLimit, authH.Register)
		auth.POST("/login", credLimit, authH.Login)
		auth.POST("/forgot-password", credLimit, authH.ForgotPassword)
		auth.POST("/reset-password/:token", authH.ResetPassword)
	}

	// Manager selector on the registration form
	r.GET("/v1/users/managers", usersH.Managers)

	// Protected routes. RequireRole is a coarse first filter; ownership and
	// team checks happen in the services through the policy gate.
	reviewers := middleware.RequireRole(identity.RoleManager, identity.RoleAdmin)
	adminOnly := middleware.RequireRole(identity.RoleAdmin)

	v1 := r.Group("/v1", middleware.JWTAuth(tokens))
	{
		v1.GET("/profile", authH.Profile)

		users := v1.Group("/users")
		{
			users.POST("", reviewers, usersH.Create)
			users.GET("/team", reviewers, usersH.Team)
			users.PUT("/:id/manager", adminOnly, usersH.AssignManager)
			users.POST("/:id/deactivate", adminOnly, usersH.Deactivate)
			users.POST("/:id/activate", adminOnly, usersH.Activate)
		}

		certs := v1.Group("/certificates")
		{
			certs.POST("", certsH.Create)
			certs.GET("", certsH.ListOwn)
			certs.GET("/all", reviewers, certsH.ListAll)
			certs.GET("/pending", reviewers, certsH.ListPending)
			certs.GET("/export", certsH.Export)
			certs.GET("/:id", certsH.Get)
			certs.PUT("/:id", certsH.Edit)
			certs.PUT("/:id/status", reviewers, certsH.UpdateStatus)
			certs.DELETE("/:id", certsH.Delete)
			certs.GET("/:id/file", certsH.Preview)
			certs.GET("/:id/download", certsH.Download)
		}

		tcil := v1.Group("/tcil")
		{
			tcil.POST("/upload", reviewers, tcilH.Upload)
			tcil.GET("/certificates", tcilH.List)
			tcil.DELETE("/certificates/:id", reviewers, tcilH.Delete)
			tcil.GET("/certificates/:id/file", tcilH.Preview)
			tcil.GET("/certificates/:id/download", tcilH.Download)
		}

		v1.GET("/dashboard/stats", reviewers, dashH.Stats)
	}

	// Swagger UI outside production only
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
