package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/urbanthread/loyalty/internal/loyalty"
	"github.com/urbanthread/loyalty/internal/model"
	"github.com/urbanthread/loyalty/internal/service"
)

// LoyaltyHandler handles loyalty program HTTP requests
type LoyaltyHandler struct {
	svc *service.LoyaltyService
}

// NewLoyaltyHandler creates a new loyalty handler
func NewLoyaltyHandler(svc *service.LoyaltyService) *LoyaltyHandler {
	return &LoyaltyHandler{svc: svc}
}

// PurchaseRequest credits points for a purchase
type PurchaseRequest struct {
	Email   string          `json:"email" binding:"required,email"`
	Amount  decimal.Decimal `json:"amount" binding:"required"`
	OrderID string          `json:"order_id" binding:"required"`
}

// RedemptionRequest exchanges points for a reward
type RedemptionRequest struct {
	Email    string `json:"email" binding:"required,email"`
	RewardID int64  `json:"reward_id" binding:"required"`
}

// AdjustmentRequest applies a staff-initiated point correction
type AdjustmentRequest struct {
	Email  string `json:"email" binding:"required,email"`
	Points int64  `json:"points" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// respondError maps domain errors to HTTP statuses. Anything outside the
// domain taxonomy is a store failure and reported as 500.
func respondError(c *gin.Context, err error) {
	var status int
	var code string
	switch {
	case errors.Is(err, loyalty.ErrCustomerNotFound), errors.Is(err, loyalty.ErrRewardNotFound):
		status = http.StatusNotFound
	case errors.Is(err, loyalty.ErrInvalidInput):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, loyalty.ErrInsufficientPoints):
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
		code = "STORE_FAILURE"
	}

	var domainErr *loyalty.Error
	if errors.As(err, &domainErr) {
		code = domainErr.Code
	}

	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": err.Error()}})
}

// GetCustomer returns a customer with their derived point balance
func (h *LoyaltyHandler) GetCustomer(c *gin.Context) {
	customer, err := h.svc.GetCustomerByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		respondError(c, err)
		return
	}

	balance, err := h.svc.Balance(c.Request.Context(), customer.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"customer": customer,
		"balance":  balance,
	})
}

// GetHistory returns a customer's ledger entries, newest first
func (h *LoyaltyHandler) GetHistory(c *gin.Context) {
	customer, err := h.svc.GetCustomerByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		respondError(c, err)
		return
	}

	history, err := h.svc.History(c.Request.Context(), customer.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}

// ListRewards returns the reward catalog, cheapest first
func (h *LoyaltyHandler) ListRewards(c *gin.Context) {
	rewards, err := h.svc.ListRewards(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rewards": rewards})
}

// CreatePurchase records earned points for a purchase, then re-evaluates the
// customer's tier. Record and evaluate are two explicit steps, not one
// implicit trigger.
func (h *LoyaltyHandler) CreatePurchase(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "BAD_REQUEST", "message": err.Error()}})
		return
	}
	if !req.Amount.IsPositive() {
		respondError(c, loyalty.ErrInvalidInput)
		return
	}

	customer, err := h.svc.GetCustomerByEmail(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	points := h.svc.PointsForAmount(req.Amount)
	entry, err := h.svc.Record(c.Request.Context(), customer.ID, points, model.TypeEarn, "Order #"+req.OrderID)
	if err != nil {
		respondError(c, err)
		return
	}

	tier, err := h.svc.EvaluateTier(c.Request.Context(), customer.ID, time.Now().UTC())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"entry": entry,
		"tier":  tier,
	})
}

// CreateRedemption redeems a reward against the customer's balance
func (h *LoyaltyHandler) CreateRedemption(c *gin.Context) {
	var req RedemptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "BAD_REQUEST", "message": err.Error()}})
		return
	}

	customer, err := h.svc.GetCustomerByEmail(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	entry, err := h.svc.Redeem(c.Request.Context(), customer.ID, req.RewardID)
	if err != nil {
		respondError(c, err)
		return
	}

	balance, err := h.svc.Balance(c.Request.Context(), customer.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"entry":   entry,
		"balance": balance,
	})
}

// CreateAdjustment records a manual point correction, then re-evaluates tier
func (h *LoyaltyHandler) CreateAdjustment(c *gin.Context) {
	var req AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "BAD_REQUEST", "message": err.Error()}})
		return
	}

	customer, err := h.svc.GetCustomerByEmail(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	entry, err := h.svc.Record(c.Request.Context(), customer.ID, req.Points, model.TypeManualAdjust, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	tier, err := h.svc.EvaluateTier(c.Request.Context(), customer.ID, time.Now().UTC())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"entry": entry,
		"tier":  tier,
	})
}
