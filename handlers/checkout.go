package handlers

import (
	"context"
	"net/http"
	"time"

	"restaurant-pos-api/config"
	"restaurant-pos-api/events"
	"restaurant-pos-api/middleware"
	"restaurant-pos-api/models"
	"restaurant-pos-api/pricing"
	"restaurant-pos-api/statemachine"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const IdempotencyHeader = "Idempotency-Key"

var errNotPayable = errors.New("order is not ready for checkout")

// CheckoutRequest carries either a tip percentage or a manual tip amount.
// When both are present the amount wins.
type CheckoutRequest struct {
	TipPercent *decimal.Decimal     `json:"tip_percent"`
	TipAmount  *decimal.Decimal     `json:"tip_amount"`
	Method     models.PaymentMethod `json:"method"`
}

// Checkout takes payment for a ready or delivered order, completes it and
// sends its table to cleaning. Replaying an Idempotency-Key returns the
// payment stored for it.
func Checkout(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Method == "" {
		req.Method = models.PaymentCard
	}
	if req.Method != models.PaymentCard && req.Method != models.PaymentCash {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid method. Must be: cash or card"})
		return
	}
	if (req.TipPercent != nil && req.TipPercent.IsNegative()) || (req.TipAmount != nil && req.TipAmount.IsNegative()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tip must not be negative"})
		return
	}

	key := c.GetHeader(IdempotencyHeader)
	if key != "" {
		if replayPayment(c, key, id) {
			return
		}
	} else {
		key = uuid.NewString()
	}

	var order models.Order
	if err := config.DB.Preload("Items").First(&order, id).Error; err != nil {
		dbError(c, err, "Order")
		return
	}
	if order.Status != models.StatusReady && order.Status != models.StatusDelivered {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":          errNotPayable.Error(),
			"current_status": order.Status,
		})
		return
	}

	totals := pricing.Totals{
		Subtotal:   order.Subtotal,
		Tax:        order.Tax,
		Total:      order.Total,
		GrandTotal: order.Total,
	}
	switch {
	case req.TipAmount != nil:
		totals = totals.WithAmount(*req.TipAmount)
	case req.TipPercent != nil:
		totals = totals.WithPercent(*req.TipPercent)
	}

	ctx := c.Request.Context()
	if err := processPayment(ctx); err != nil {
		zap.L().Warn("payment aborted", zap.Uint("order_id", id), zap.Error(err))
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "Payment cancelled before completion"})
		return
	}

	var after afterCommit
	payment := models.Payment{
		OrderID:        order.ID,
		IdempotencyKey: key,
		Reference:      uuid.NewString(),
		Method:         req.Method,
		Subtotal:       totals.Subtotal,
		Tax:            totals.Tax,
		Tip:            totals.Tip,
		TipPercent:     totals.TipPercent,
		Total:          totals.GrandTotal,
		Status:         "approved",
	}
	by := middleware.GetUserID(c)
	err := config.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if order.Status == models.StatusReady {
			if err := transitionOrder(ctx, tx, &order, models.StatusDelivered, statemachine.ActorSystem, by, "Delivered at checkout", &after); err != nil {
				return err
			}
		}
		if err := transitionOrder(ctx, tx, &order, models.StatusCompleted, statemachine.ActorSystem, by, "Paid", &after); err != nil {
			return err
		}
		return tx.Create(&payment).Error
	})
	if err != nil {
		// a concurrent request with the same key may have won the race
		if replayPayment(c, key, id) {
			return
		}
		orderWriteError(c, err)
		return
	}

	after.run()
	zap.L().Info("order paid",
		zap.Uint("order_id", order.ID),
		zap.String("reference", payment.Reference),
		zap.String("method", string(payment.Method)),
		zap.String("total", payment.Total.StringFixed(2)))
	events.Emit(ctx, publisher, events.TopicOrderPaid, events.OrderPaid{
		OrderID:   order.ID,
		PaymentID: payment.ID,
		Reference: payment.Reference,
		Total:     payment.Total.StringFixed(2),
	})
	c.JSON(http.StatusCreated, gin.H{
		"message": "Payment approved",
		"payment": payment,
		"order":   order,
		"totals":  totals,
	})
}

// processPayment stands in for the card terminal round trip.
func processPayment(ctx context.Context) error {
	if paymentDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(paymentDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// replayPayment answers with the payment already stored under key, if any.
func replayPayment(c *gin.Context, key string, orderID uint) bool {
	var payment models.Payment
	if err := config.DB.Where("idempotency_key = ?", key).First(&payment).Error; err != nil {
		return false
	}
	if payment.OrderID != orderID {
		c.JSON(http.StatusConflict, gin.H{"error": "Idempotency-Key already used for another order"})
		return true
	}
	var order models.Order
	config.DB.Preload("Items").First(&order, orderID)
	c.JSON(http.StatusOK, gin.H{
		"message": "Payment already processed",
		"replay":  true,
		"payment": payment,
		"order":   order,
	})
	return true
}
