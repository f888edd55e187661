package handlers

import (
	"net/http"

	"restaurant-pos-api/config"
	"restaurant-pos-api/models"
	"restaurant-pos-api/statemachine"

	"github.com/gin-gonic/gin"
)

// GetStateMachineInfo returns the order, item and table state machines
func GetStateMachineInfo(c *gin.Context) {
	var terminal []models.OrderStatus
	for _, s := range []models.OrderStatus{
		models.StatusPending, models.StatusPreparing, models.StatusReady,
		models.StatusDelivered, models.StatusCompleted, models.StatusCancelled,
	} {
		if statemachine.IsTerminal(s) {
			terminal = append(terminal, s)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"state_machine":   statemachine.GetAllTransitions(),
		"terminal_states": terminal,
		"item_states":     []models.ItemStatus{models.ItemPending, models.ItemPreparing, models.ItemReady},
		"table_states":    models.TableStatuses,
		"description":     "Restaurant order lifecycle: pending → preparing → ready → delivered → completed",
	})
}

// Health reports liveness and database reachability
func Health(c *gin.Context) {
	code, status, db := http.StatusOK, "healthy", "up"
	if sqlDB, err := config.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		code, status, db = http.StatusServiceUnavailable, "degraded", "down"
	}
	c.JSON(code, gin.H{
		"status":   status,
		"service":  "Restaurant POS API",
		"version":  "1.0.0",
		"database": db,
	})
}

// ProductSocket subscribes the caller to updates of one product
func ProductSocket(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var product models.Product
	if err := config.DB.First(&product, id).Error; err != nil {
		dbError(c, err, "Product")
		return
	}
	hub.Serve(c.Writer, c.Request, id, gin.H{"type": "product_update", "product": product})
}
