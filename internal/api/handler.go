package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"storefront-service/internal/auth"
	"storefront-service/internal/gateway"
	"storefront-service/internal/service"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AdminCredentials are the back-office login credentials
type AdminCredentials struct {
	Email    string
	Password string
}

// StatusHints is the polling cadence advertised to the storefront's order
// confirmation screen.
type StatusHints struct {
	PollIntervalSeconds int `json:"poll_interval_seconds"`
	SuccessDelaySeconds int `json:"success_delay_seconds"`
}

// Handler contains HTTP handlers
type Handler struct {
	catalogService  *service.CatalogService
	orderService    *service.OrderService
	paymentService  *service.PaymentService
	customerService *service.CustomerService
	gatewayClient   *gateway.Client
	store           *store.Store
	tokens          *auth.Manager
	adminCreds      AdminCredentials
	statusHints     StatusHints
	lowStockLimit   int
}

// NewHandler creates a new HTTP handler
func NewHandler(
	catalogService *service.CatalogService,
	orderService *service.OrderService,
	paymentService *service.PaymentService,
	customerService *service.CustomerService,
	gatewayClient *gateway.Client,
	st *store.Store,
	tokens *auth.Manager,
	adminCreds AdminCredentials,
	statusHints StatusHints,
	lowStockLimit int,
) *Handler {
	return &Handler{
		catalogService:  catalogService,
		orderService:    orderService,
		paymentService:  paymentService,
		customerService: customerService,
		gatewayClient:   gatewayClient,
		store:           st,
		tokens:          tokens,
		adminCreds:      adminCreds,
		statusHints:     statusHints,
		lowStockLimit:   lowStockLimit,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)

		v1.GET("/customers/:id/cart", h.getCart)
		v1.PUT("/customers/:id/cart", h.saveCart)

		v1.POST("/checkout", h.checkout)
		v1.GET("/orders/:id", h.getOrder)
		v1.GET("/orders/:id/status", h.getOrderStatus)
		v1.GET("/customers/:id/orders", h.listCustomerOrders)

		v1.POST("/payments/process", h.processPayment)
		v1.POST("/webhooks/payments", h.paymentWebhook)

		v1.POST("/customers", h.registerCustomer)
		v1.GET("/customers/:id", h.getCustomer)
		v1.PUT("/customers/:id", h.updateCustomer)
		v1.PUT("/customers/:id/consent", h.updateConsent)
		v1.GET("/customers/:id/export", h.exportAccount)
		v1.POST("/customers/:id/addresses", h.createAddress)
		v1.GET("/customers/:id/addresses", h.listAddresses)
		v1.DELETE("/customers/:id/addresses/:addressId", h.deleteAddress)
	}

	v1.POST("/admin/login", h.adminLogin)

	admin := v1.Group("/admin", h.requireAdmin())
	{
		admin.GET("/dashboard", h.adminDashboard)
		admin.POST("/products", h.createProduct)
		admin.PUT("/products/:id", h.updateProduct)
		admin.GET("/coupons", h.listCoupons)
		admin.POST("/coupons", h.createCoupon)
		admin.DELETE("/coupons/:id", h.deactivateCoupon)
		admin.GET("/orders", h.adminListOrders)
		admin.PUT("/orders/:id/status", h.adminUpdateOrderStatus)
		admin.GET("/customers", h.adminListCustomers)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respondError maps service errors onto HTTP statuses
func respondError(c *gin.Context, err error) {
	var gatewayErr *gateway.Error
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrStaleTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &gatewayErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "payment gateway error",
			"details": gatewayErr.Message,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
