package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"example.com/craftshop/internal/middleware"
	"example.com/craftshop/pkg/metrics"
)

// ReadinessChecker — функция проверки готовности сервиса.
type ReadinessChecker func(ctx context.Context) error

// RouterConfig — параметры для создания роутера.
type RouterConfig struct {
	Orders *OrderHandler
	Admin  *AdminHandler
	Auth   *AuthHandler

	AdminAuth *middleware.AdminAuth
	RateLimit *middleware.RateLimit // опционально

	CORSOrigins    []string
	ReadinessCheck ReadinessChecker // опциональная проверка готовности для /readyz
	Debug          bool             // режим отладки Gin
}

// Router — HTTP роутер магазина.
type Router struct {
	engine         *gin.Engine
	cfg            RouterConfig
	readinessCheck ReadinessChecker
}

// NewRouter создаёт и настраивает HTTP роутер.
func NewRouter(cfg RouterConfig) *Router {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(cfg.CORSOrigins))
	engine.Use(middleware.SecurityHeaders())

	// OpenTelemetry spans + Prometheus метрики на каждый запрос
	engine.Use(otelgin.Middleware("craftshop"))
	engine.Use(metrics.GinMetricsMiddleware("craftshop"))

	// trace_id / correlation_id в контекст, логи и заголовки ответа
	engine.Use(middleware.Tracing())

	r := &Router{
		engine:         engine,
		cfg:            cfg,
		readinessCheck: cfg.ReadinessCheck,
	}

	r.setupRoutes()
	return r
}

// setupRoutes настраивает все маршруты API.
func (r *Router) setupRoutes() {
	// Health endpoints (без rate limiting и auth)
	r.engine.GET("/healthz", r.livenessCheck)
	r.engine.GET("/readyz", r.readinessCheckHandler)

	v1 := r.engine.Group("/api/v1")

	if r.cfg.RateLimit != nil {
		v1.Use(r.cfg.RateLimit.Handle())
	}

	// === Публичные маршруты витрины ===
	orders := v1.Group("/orders")
	{
		orders.POST("", r.cfg.Orders.CreateOrder)
		orders.GET("", r.cfg.Orders.ListMyOrders)
		orders.GET("/:id", r.cfg.Orders.GetOrder)
		orders.POST("/:id/payment", r.cfg.Orders.PaymentCallback)
		orders.POST("/:id/cancellation", r.cfg.Orders.RequestCancellation)
		orders.POST("/:id/return", r.cfg.Orders.RequestReturn)
		orders.GET("/:id/invoice", r.cfg.Orders.DownloadInvoice)
	}

	// === Аутентификация администратора ===
	auth := v1.Group("/admin/auth")
	{
		auth.POST("/login", r.cfg.Auth.Login)
		auth.POST("/logout", r.cfg.Auth.Logout)
	}

	// === Административные маршруты (защищённые) ===
	admin := v1.Group("/admin")
	if r.cfg.AdminAuth != nil {
		admin.Use(r.cfg.AdminAuth.Handle())
	}
	{
		admin.GET("/orders", r.cfg.Admin.ListOrders)
		admin.GET("/orders/:id", r.cfg.Admin.GetOrder)
		admin.PATCH("/orders/:id/status", r.cfg.Admin.UpdateStatus)
		admin.POST("/orders/:id/cancellation/decision", r.cfg.Admin.DecideCancellation)
		admin.POST("/orders/:id/refund", r.cfg.Admin.ProcessRefund)
		admin.POST("/orders/:id/revenue/confirm", r.cfg.Admin.ConfirmRevenue)
		admin.POST("/orders/:id/return/decision", r.cfg.Admin.DecideReturn)
	}
}

// Engine возвращает Gin engine для запуска сервера.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// livenessCheck — liveness probe.
func (r *Router) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// readinessCheckHandler — readiness probe: проверяет доступность зависимостей.
func (r *Router) readinessCheckHandler(c *gin.Context) {
	if r.readinessCheck == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := r.readinessCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
