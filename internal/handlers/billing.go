package handlers

import (
  "io"
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/studyforge/studyforge-backend/internal/logger"
  "github.com/studyforge/studyforge-backend/internal/middleware"
  "github.com/studyforge/studyforge-backend/internal/requestdata"
  "github.com/studyforge/studyforge-backend/internal/services"
)

type BillingHandler struct {
  log            *logger.Logger
  billingService services.BillingService
}

func NewBillingHandler(log *logger.Logger, billingService services.BillingService) *BillingHandler {
  return &BillingHandler{log: log.With("handler", "BillingHandler"), billingService: billingService}
}

func (bh *BillingHandler) CreateCheckout(c *gin.Context) {
  user := middleware.CurrentUser(c)

  var req struct {
    PriceID string `json:"price_id"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  url, err := bh.billingService.CreateCheckoutSession(c.Request.Context(), user, req.PriceID)
  if err != nil {
    c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
    return
  }
  RespondOK(c, gin.H{"checkout_url": url})
}

func (bh *BillingHandler) CurrentSubscription(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  sub, err := bh.billingService.CurrentSubscription(c.Request.Context(), rd.UserID)
  if err != nil {
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    return
  }
  RespondOK(c, gin.H{"subscription": sub})
}

func (bh *BillingHandler) Cancel(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  sub, err := bh.billingService.CancelSubscription(c.Request.Context(), rd.UserID)
  if err != nil {
    c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
    return
  }
  RespondOK(c, gin.H{"subscription": sub, "message": "subscription will end at the period boundary"})
}

// Webhook is unauthenticated; the Stripe signature is the auth.
func (bh *BillingHandler) Webhook(c *gin.Context) {
  payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
    return
  }
  signature := c.GetHeader("Stripe-Signature")
  if err := bh.billingService.HandleWebhook(c.Request.Context(), payload, signature); err != nil {
    bh.log.Warn("Webhook rejected", "error", err)
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  RespondOK(c, gin.H{"received": true})
}
