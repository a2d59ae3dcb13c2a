package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"drravalement/site/internal/authz"
	"drravalement/site/internal/cache"
	"drravalement/site/internal/config"
	"drravalement/site/internal/gate"
	"drravalement/site/internal/metrics"
	"drravalement/site/internal/middleware"
	"drravalement/site/internal/models"
	"drravalement/site/internal/queue"
	"drravalement/site/internal/repository"
	"drravalement/site/internal/service"
	"drravalement/site/internal/session"
	"drravalement/site/internal/storage"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type HandlerSet struct {
	log          zerolog.Logger
	cfg          *config.AppConfig
	authService  *service.AuthService
	userService  *service.UserService
	quoteService *service.QuoteService
	mediaService *service.MediaService
	resolver     middleware.SessionValidator
	guard        *middleware.Guard
	authorizer   authz.Authorizer
	cookies      sessions.Store
	loginLimiter *middleware.IPRateLimiter
	quoteLimiter *middleware.IPRateLimiter
	metrics      *metrics.Metrics
	gatherer     prometheus.Gatherer
	db           pinger
	cache        *redis.Client
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, rdb *redis.Client, store *storage.ObjectStore, cfg *config.AppConfig, m *metrics.Metrics, gatherer prometheus.Gatherer) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	quoteRepo := repository.NewQuoteRepository(db)
	mediaRepo := repository.NewMediaRepository(db)

	throttle := cache.NewLoginThrottle(rdb, cfg.Security.LoginMaxAttempts, cfg.Security.LoginLockout)
	producer := queue.NewProducer(rdb, cfg.Redis.Stream)

	auth := service.NewAuthService(userRepo, sessionRepo, throttle, service.AuthConfig{
		TokenSecret: cfg.Security.TokenSecret,
		SessionTTL:  cfg.Security.SessionTTL,
	}, log)
	users := service.NewUserService(userRepo, sessionRepo, log)
	quotes := service.NewQuoteService(quoteRepo, producer, log)

	var media *service.MediaService
	if store != nil {
		media = service.NewMediaService(mediaRepo, store, service.MediaConfig{
			SigningSecret: cfg.Security.SigningSecret,
			MaxBytes:      cfg.Storage.MaxUploadMB << 20,
		}, log)
	}

	authorizer := authz.New(authz.DefaultTable())
	resolver := session.NewResolver(sessionRepo, cfg.Security.TokenSecret, log)
	cookies := middleware.NewCookieStore(cfg.Security.CookieSecret, cfg.Security.CookieSecure, int(cfg.Security.SessionTTL.Seconds()))
	guard := middleware.NewGuard(resolver, gate.New(authorizer, gate.DefaultLoginPath), cookies, m, log)
	loginLimiter, quoteLimiter := rateLimiters(cfg.Security)

	return HandlerSet{
		log:          log,
		cfg:          cfg,
		authService:  auth,
		userService:  users,
		quoteService: quotes,
		mediaService: media,
		resolver:     resolver,
		guard:        guard,
		authorizer:   authorizer,
		cookies:      cookies,
		loginLimiter: loginLimiter,
		quoteLimiter: quoteLimiter,
		metrics:      m,
		gatherer:     gatherer,
		db:           db,
		cache:        rdb,
	}
}

// BootstrapAdmin creates the configured administrator on an empty database.
func (h HandlerSet) BootstrapAdmin(ctx context.Context) error {
	b := h.cfg.Bootstrap
	created, err := h.userService.Bootstrap(ctx, b.AdminEmail, b.AdminPassword, b.AdminName)
	if err != nil {
		return err
	}
	if created {
		h.log.Info().Str("email", b.AdminEmail).Msg("bootstrap administrator created")
	}
	return nil
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/login", h.loginLimiter.Middleware(), h.Login)
		auth.POST("/logout", h.Logout)
		auth.GET("/session", h.Session)

		protected := v1.Group("/auth")
		protected.Use(h.guard.Session())
		protected.GET("/me", h.Me)
		protected.GET("/sessions", h.ListSessions)
		protected.DELETE("/sessions/:id", h.RevokeSession)

		v1.POST("/quotes", h.quoteLimiter.Middleware(), h.SubmitQuote)
	}

	admin := v1.Group("/admin")
	admin.Use(h.guard.Session())
	{
		admin.GET("/users", h.guard.Permission(authz.UsersRead), h.ListUsers)
		admin.POST("/users", h.guard.Permission(authz.UsersWrite), h.CreateUser)
		admin.PATCH("/users/:id/role", h.guard.Permission(authz.UsersWrite), h.UpdateUserRole)
		admin.PATCH("/users/:id/status", h.guard.Permission(authz.UsersWrite), h.UpdateUserStatus)
		admin.DELETE("/users/:id", h.guard.Permission(authz.UsersDelete), h.DeleteUser)

		admin.GET("/quotes", h.guard.Permission(authz.QuotesRead), h.ListQuotes)
		admin.PATCH("/quotes/:id/status", h.guard.Permission(authz.QuotesWrite), h.UpdateQuoteStatus)
		admin.DELETE("/quotes/:id", h.guard.Permission(authz.QuotesDelete), h.DeleteQuote)

		admin.GET("/media", h.guard.Permission(authz.CMSRead), h.ListMedia)
		admin.POST("/media", h.guard.Permission(authz.CMSWrite), h.UploadMedia)
		admin.DELETE("/media/:id", h.guard.Permission(authz.CMSDelete), h.DeleteMedia)
	}
}

// RegisterPages mounts the admin HTML shell and the metrics endpoint.
func (h HandlerSet) RegisterPages(engine *gin.Engine) {
	engine.GET("/admin/login", h.LoginPage)
	engine.POST("/admin/login", h.loginLimiter.Middleware(), h.LoginForm)
	engine.POST("/admin/logout", h.LogoutPage)

	engine.GET("/admin", h.guard.Session(), h.Dashboard)
	for _, page := range adminPages {
		engine.GET(page.Path, h.guard.Require(page.Requirement), h.AdminPage(page))
	}

	if h.gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}
}

// rateLimiters builds the per-IP limiters of the login and public quote
// endpoints; each has its own budget.
func rateLimiters(sec config.SecurityConfig) (login, quote *middleware.IPRateLimiter) {
	login = middleware.NewIPRateLimiter(sec.LoginRatePerMinute, sec.LoginBurst)
	quote = middleware.NewIPRateLimiter(sec.QuoteRatePerMinute, sec.QuoteBurst)
	return login, quote
}

func pagination(c *gin.Context) (int, int) {
	limit := 50
	offset := 0

	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if page := c.Query("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 1 {
			offset = (v - 1) * limit
		}
	}
	return limit, offset
}

func currentUser(c *gin.Context) models.User {
	user, _ := middleware.CurrentUser(c)
	return user
}
