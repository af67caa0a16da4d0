package api

import (
	"errors"
	"net/http"

	"storefront-service/internal/models"
	"storefront-service/internal/service"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/gin-gonic/gin"
)

// listProducts handles product browsing
func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.catalogService.ListProducts(c.Request.Context(), c.Query("category"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// getProduct handles get product by ID
func (h *Handler) getProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	product, err := h.catalogService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// getCart returns the customer's cart
func (h *Handler) getCart(c *gin.Context) {
	customerID, ok := pathID(c, "id")
	if !ok {
		return
	}

	cart, err := h.orderService.GetCart(c.Request.Context(), customerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": cart})
}

// saveCart replaces the customer's cart
func (h *Handler) saveCart(c *gin.Context) {
	customerID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Items []service.CartItemRequest `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	cart, err := h.orderService.SaveCart(c.Request.Context(), customerID, req.Items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": cart})
}

// checkout turns the cart into a pending order
func (h *Handler) checkout(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	resp, err := h.orderService.Checkout(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	order, items, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order": order,
		"items": items,
	})
}

// getOrderStatus returns the normalized status projection the storefront's
// confirmation screen polls.
func (h *Handler) getOrderStatus(c *gin.Context) {
	proj, err := h.orderService.GetOrderStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, struct {
		*models.StatusProjection
		Hints StatusHints `json:"hints"`
	}{proj, h.statusHints})
}

// listCustomerOrders returns a customer's order history
func (h *Handler) listCustomerOrders(c *gin.Context) {
	customerID, ok := pathID(c, "id")
	if !ok {
		return
	}

	orders, err := h.orderService.ListCustomerOrders(c.Request.Context(), customerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// processPayment handles a payment-form submission
func (h *Handler) processPayment(c *gin.Context) {
	var req service.ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.paymentService.ProcessPayment(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// paymentWebhook receives gateway payment notifications. The signature is
// verified before anything else; replayed notifications are dropped by
// request id.
func (h *Handler) paymentWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	dataID := c.Query("data.id")
	requestID := c.GetHeader("x-request-id")

	if !h.gatewayClient.VerifySignature(c.GetHeader("x-signature"), requestID, dataID) {
		util.WebhooksReceivedTotal.WithLabelValues("invalid_signature").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	if c.Query("type") != "payment" {
		util.WebhooksReceivedTotal.WithLabelValues("ignored").Inc()
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if requestID != "" {
		processed, err := h.store.IsEventProcessed(ctx, "webhook:"+requestID)
		if err == nil && processed {
			util.WebhooksReceivedTotal.WithLabelValues("duplicate").Inc()
			c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
			return
		}
	}

	if err := h.paymentService.ReconcilePayment(ctx, dataID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			util.WebhooksReceivedTotal.WithLabelValues("unknown_order").Inc()
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown order"})
			return
		}
		util.WebhooksReceivedTotal.WithLabelValues("error").Inc()
		// A 5xx asks the gateway to redeliver later.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process notification"})
		return
	}

	if requestID != "" {
		if err := h.store.MarkEventProcessed(ctx, "webhook:"+requestID, "PAYMENT_WEBHOOK"); err != nil {
			util.GetLogger().Warn("Failed to record webhook request id")
		}
	}

	util.WebhooksReceivedTotal.WithLabelValues("applied").Inc()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// registerCustomer creates an account
func (h *Handler) registerCustomer(c *gin.Context) {
	var customer models.Customer
	if err := c.ShouldBindJSON(&customer); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.customerService.Register(c.Request.Context(), &customer); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

// getCustomer returns a customer profile
func (h *Handler) getCustomer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	customer, err := h.customerService.GetCustomer(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// updateCustomer updates profile fields
func (h *Handler) updateCustomer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var customer models.Customer
	if err := c.ShouldBindJSON(&customer); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	customer.ID = id

	if err := h.customerService.UpdateCustomer(c.Request.Context(), &customer); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// updateConsent records the marketing consent decision
func (h *Handler) updateConsent(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		MarketingConsent *bool `json:"marketing_consent" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "marketing_consent is required"})
		return
	}

	if err := h.customerService.UpdateConsent(c.Request.Context(), id, *req.MarketingConsent); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marketing_consent": *req.MarketingConsent})
}

// exportAccount serves a data access request
func (h *Handler) exportAccount(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	export, err := h.customerService.ExportAccountData(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, export)
}

// createAddress adds a shipping address
func (h *Handler) createAddress(c *gin.Context) {
	customerID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var address models.Address
	if err := c.ShouldBindJSON(&address); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	address.CustomerID = customerID

	if err := h.customerService.CreateAddress(c.Request.Context(), &address); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, address)
}

// listAddresses returns a customer's addresses
func (h *Handler) listAddresses(c *gin.Context) {
	customerID, ok := pathID(c, "id")
	if !ok {
		return
	}

	addresses, err := h.customerService.ListAddresses(c.Request.Context(), customerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": addresses})
}

// deleteAddress removes a customer address
func (h *Handler) deleteAddress(c *gin.Context) {
	customerID, ok := pathID(c, "id")
	if !ok {
		return
	}
	addressID, ok := pathID(c, "addressId")
	if !ok {
		return
	}

	if err := h.customerService.DeleteAddress(c.Request.Context(), customerID, addressID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
