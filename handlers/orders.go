package handlers

import (
	"context"
	"net/http"
	"sort"

	"restaurant-pos-api/config"
	"restaurant-pos-api/events"
	"restaurant-pos-api/middleware"
	"restaurant-pos-api/models"
	"restaurant-pos-api/pricing"
	"restaurant-pos-api/search"
	"restaurant-pos-api/statemachine"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errVersionConflict  = errors.New("order was modified by someone else")
	errTableBusy        = errors.New("table already has an active order")
	errTableNotSeatable = errors.New("table is not available for new orders")
)

var activeStatuses = []models.OrderStatus{
	models.StatusPending,
	models.StatusPreparing,
	models.StatusReady,
	models.StatusDelivered,
}

type OrderItemRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
	Notes     string `json:"notes"`
}

type CreateOrderRequest struct {
	TableID   uint               `json:"table_id" binding:"required"`
	Priority  models.Priority    `json:"priority"`
	StaffName string             `json:"staff_name"`
	Notes     string             `json:"notes"`
	Items     []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

type UpdateOrderStatusRequest struct {
	Status  models.OrderStatus `json:"status" binding:"required"`
	Version *int               `json:"version"`
	Note    string             `json:"note"`
}

type UpdateItemStatusRequest struct {
	Status  models.ItemStatus `json:"status" binding:"required"`
	Version *int              `json:"version"`
}

// KitchenTicket is an order as the kitchen display shows it.
type KitchenTicket struct {
	models.Order
	TableNumber int                   `json:"table_number"`
	Actions     []statemachine.Action `json:"actions"`
}

// afterCommit collects notifications that must only go out once the
// transaction that caused them has committed.
type afterCommit []func()

func (a *afterCommit) add(f func()) { *a = append(*a, f) }

func (a afterCommit) run() {
	for _, f := range a {
		f()
	}
}

// CreateOrder opens an order on a table and seats it
func CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Priority == "" {
		req.Priority = models.PriorityNormal
	}
	if !req.Priority.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority. Must be: normal, high, rush or urgent"})
		return
	}
	for _, it := range req.Items {
		if !pricing.ValidQuantity(it.Quantity) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":      "Quantity must be between 1 and 10",
				"product_id": it.ProductID,
			})
			return
		}
	}
	if req.StaffName == "" {
		req.StaffName = middleware.GetUserName(c)
	}

	ctx := c.Request.Context()
	var after afterCommit
	var order models.Order
	err := config.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var table models.Table
		if err := tx.First(&table, req.TableID).Error; err != nil {
			return errors.Wrap(err, "Table")
		}
		if !statemachine.CanSeat(table.Status) {
			return errTableNotSeatable
		}
		var busy int64
		if err := tx.Model(&models.Order{}).
			Where("table_id = ? AND status IN ?", table.ID, activeStatuses).
			Count(&busy).Error; err != nil {
			return err
		}
		if busy > 0 {
			return errTableBusy
		}

		items := make([]models.OrderItem, 0, len(req.Items))
		for _, it := range req.Items {
			var product models.Product
			if err := tx.First(&product, it.ProductID).Error; err != nil {
				return errors.Wrapf(err, "Product %d", it.ProductID)
			}
			if !product.Available {
				return &unavailableError{name: product.Name}
			}
			items = append(items, models.OrderItem{
				ProductID: product.ID,
				Name:      product.Name,
				UnitPrice: product.Price,
				Quantity:  it.Quantity,
				Notes:     it.Notes,
				Status:    models.ItemPending,
			})
		}

		totals := pricing.Ticket(pricing.Subtotal(items), taxRate)
		order = models.Order{
			TableID:   table.ID,
			Status:    models.StatusPending,
			Priority:  req.Priority,
			StaffName: req.StaffName,
			Notes:     req.Notes,
			Subtotal:  totals.Subtotal,
			Tax:       totals.Tax,
			Total:     totals.Total,
			Version:   1,
			Items:     items,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.OrderStatusHistory{
			OrderID:   order.ID,
			ToStatus:  models.StatusPending,
			ChangedBy: middleware.GetUserID(c),
			Note:      "Order opened",
		}).Error; err != nil {
			return err
		}

		prev := table.Status
		if err := tx.Model(&table).Updates(map[string]interface{}{
			"status":          models.TableOccupied,
			"active_order_id": order.ID,
			"version":         gorm.Expr("version + 1"),
		}).Error; err != nil {
			return err
		}
		table.Status = models.TableOccupied
		if prev != models.TableOccupied {
			after.add(func() { tableStatusChanged(ctx, &table, prev) })
		}
		return nil
	})
	if err != nil {
		orderWriteError(c, err)
		return
	}

	after.run()
	zap.L().Info("order created",
		zap.Uint("order_id", order.ID),
		zap.Uint("table_id", order.TableID),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.Total.StringFixed(2)))
	events.Emit(ctx, publisher, events.TopicOrderStatus, events.OrderStatusChanged{
		OrderID: order.ID,
		TableID: order.TableID,
		To:      string(order.Status),
		Actor:   string(middleware.GetActor(c)),
		Version: order.Version,
	})
	order.StampElapsed(now())
	c.JSON(http.StatusCreated, gin.H{"order": order})
}

// ListOrders returns orders filtered by status (comma list), table_id, priority,
// active and q, with a per-status summary
func ListOrders(c *gin.Context) {
	var orders []models.Order
	query := config.DB.Preload("Items").Order("created_at desc")
	if tableID := optionalUint(c, "table_id"); tableID != 0 {
		query = query.Where("table_id = ?", tableID)
	}
	if active := optionalBool(c, "active"); active != nil && *active {
		query = query.Where("status IN ?", activeStatuses)
	}
	if err := query.Find(&orders).Error; err != nil {
		dbError(c, err, "orders")
		return
	}

	statuses := search.NewFacet[models.OrderStatus]()
	for _, s := range search.ParseList(c.Query("status")) {
		statuses[models.OrderStatus(s)] = struct{}{}
	}
	priorities := search.NewFacet[models.Priority]()
	for _, p := range search.ParseList(c.Query("priority")) {
		priorities[models.Priority(p)] = struct{}{}
	}
	q := c.Query("q")
	orders = search.Filter(orders, func(o models.Order) bool {
		return statuses.Allows(o.Status) && priorities.Allows(o.Priority) && orderMatches(q, &o)
	})

	ts := now()
	summary := map[string]int{}
	for i := range orders {
		orders[i].StampElapsed(ts)
		summary[string(orders[i].Status)]++
	}
	c.JSON(http.StatusOK, gin.H{
		"order_summary": summary,
		"count":         len(orders),
		"orders":        orders,
	})
}

func orderMatches(q string, o *models.Order) bool {
	fields := []string{o.StaffName, o.Notes}
	for _, it := range o.Items {
		fields = append(fields, it.Name, it.Notes)
	}
	return search.Matches(q, fields...)
}

// GetOrder returns an order with items, history and the caller's actions
func GetOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var order models.Order
	if err := config.DB.Preload("Items").Preload("StatusHistory").Preload("Table").First(&order, id).Error; err != nil {
		dbError(c, err, "Order")
		return
	}
	order.StampElapsed(now())
	c.JSON(http.StatusOK, gin.H{
		"order":   order,
		"actions": statemachine.ActionsFor(order.Status, middleware.GetActor(c)),
	})
}

// GetKitchenOrders returns pending, preparing and ready orders, most urgent
// first and oldest first within a priority
func GetKitchenOrders(c *gin.Context) {
	var orders []models.Order
	if err := config.DB.Preload("Items").Preload("Table").
		Where("status IN ?", []models.OrderStatus{models.StatusPending, models.StatusPreparing, models.StatusReady}).
		Find(&orders).Error; err != nil {
		dbError(c, err, "orders")
		return
	}
	sortKitchen(orders)

	actor := middleware.GetActor(c)
	ts := now()
	tickets := make([]KitchenTicket, 0, len(orders))
	counts := map[string]int{}
	for _, o := range orders {
		o.StampElapsed(ts)
		t := KitchenTicket{Order: o, Actions: statemachine.ActionsFor(o.Status, actor)}
		if o.Table != nil {
			t.TableNumber = o.Table.Number
			t.Order.Table = nil
		}
		tickets = append(tickets, t)
		counts[string(o.Status)]++
	}
	c.JSON(http.StatusOK, gin.H{"count": len(tickets), "status_counts": counts, "orders": tickets})
}

func sortKitchen(orders []models.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		ri, rj := orders[i].Priority.Rank(), orders[j].Priority.Rank()
		if ri != rj {
			return ri > rj
		}
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.Before(orders[j].CreatedAt)
		}
		return orders[i].ID < orders[j].ID
	})
}

// UpdateOrderStatus applies a state machine transition for the caller's role
func UpdateOrderStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	actor := middleware.GetActor(c)
	var after afterCommit
	var order models.Order
	var prev models.OrderStatus
	err := config.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&order, id).Error; err != nil {
			return errors.Wrap(err, "Order")
		}
		if req.Version != nil && *req.Version != order.Version {
			return errVersionConflict
		}
		prev = order.Status
		return transitionOrder(ctx, tx, &order, req.Status, actor, middleware.GetUserID(c), req.Note, &after)
	})
	if err != nil {
		var te *statemachine.TransitionError
		if errors.As(err, &te) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":             "Invalid state transition",
				"current_status":    order.Status,
				"requested":         req.Status,
				"reason":            err.Error(),
				"valid_next_states": statemachine.ValidTransitionsFrom(order.Status),
			})
			return
		}
		orderWriteError(c, err)
		return
	}

	after.run()
	order.StampElapsed(now())
	c.JSON(http.StatusOK, gin.H{
		"message":         "Order status updated",
		"previous_status": prev,
		"current_status":  order.Status,
		"order":           order,
		"actions":         statemachine.ActionsFor(order.Status, actor),
	})
}

// UpdateOrderItemStatus bumps one line on the kitchen display. When the last
// line of a preparing order becomes ready the order itself moves to ready, and
// a line leaving ready takes a ready order back to preparing.
func UpdateOrderItemStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := idParam(c, "itemId")
	if !ok {
		return
	}
	var req UpdateItemStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	actor := middleware.GetActor(c)
	var after afterCommit
	var order models.Order
	var item *models.OrderItem
	rolledUp := false
	err := config.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&order, id).Error; err != nil {
			return errors.Wrap(err, "Order")
		}
		if req.Version != nil && *req.Version != order.Version {
			return errVersionConflict
		}
		for i := range order.Items {
			if order.Items[i].ID == itemID {
				item = &order.Items[i]
			}
		}
		if item == nil {
			return errors.Wrap(gorm.ErrRecordNotFound, "Order item")
		}
		if !statemachine.IsKitchen(order.Status) {
			return &statemachine.ItemTransitionError{From: item.Status, To: req.Status}
		}
		if err := statemachine.CanTransitionItem(item.Status, req.Status, actor); err != nil {
			return err
		}
		from := item.Status
		if err := tx.Model(item).Update("status", req.Status).Error; err != nil {
			return err
		}
		item.Status = req.Status
		if err := bumpVersion(tx, &order); err != nil {
			return err
		}
		after.add(func() {
			events.Emit(ctx, publisher, events.TopicOrderItem, events.OrderItemChanged{
				OrderID: order.ID,
				ItemID:  itemID,
				From:    string(from),
				To:      string(req.Status),
			})
		})

		if to, move := statemachine.RollUp(&order); move {
			rolledUp = true
			note := "All items ready"
			if to == models.StatusPreparing {
				note = "Item sent back to the kitchen"
			}
			return transitionOrder(ctx, tx, &order, to, statemachine.ActorSystem, 0, note, &after)
		}
		return nil
	})
	if err != nil {
		var ie *statemachine.ItemTransitionError
		if errors.As(err, &ie) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":        "Invalid item transition",
				"order_status": order.Status,
				"reason":       err.Error(),
			})
			return
		}
		orderWriteError(c, err)
		return
	}

	after.run()
	order.StampElapsed(now())
	c.JSON(http.StatusOK, gin.H{
		"order":     order,
		"item":      item,
		"rolled_up": rolledUp,
		"actions":   statemachine.ActionsFor(order.Status, actor),
	})
}

// transitionOrder validates and persists one status change, conditional on the
// version loaded in order. Terminal states release the table.
func transitionOrder(ctx context.Context, tx *gorm.DB, order *models.Order, to models.OrderStatus,
	actor statemachine.Actor, by uint, note string, after *afterCommit) error {
	if err := statemachine.CanTransition(order.Status, to, actor); err != nil {
		return err
	}
	from := order.Status
	res := tx.Model(&models.Order{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]interface{}{"status": to, "version": order.Version + 1})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errVersionConflict
	}
	order.Status = to
	order.Version++

	if err := tx.Create(&models.OrderStatusHistory{
		OrderID:    order.ID,
		FromStatus: from,
		ToStatus:   to,
		ChangedBy:  by,
		Note:       note,
	}).Error; err != nil {
		return err
	}

	if statemachine.IsTerminal(to) {
		if err := releaseTable(ctx, tx, order.ID, after); err != nil {
			return err
		}
	}

	orderID, tableID, version := order.ID, order.TableID, order.Version
	after.add(func() {
		zap.L().Info("order status changed",
			zap.Uint("order_id", orderID),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.String("actor", string(actor)))
		events.Emit(ctx, publisher, events.TopicOrderStatus, events.OrderStatusChanged{
			OrderID:   orderID,
			TableID:   tableID,
			From:      string(from),
			To:        string(to),
			Actor:     string(actor),
			ChangedBy: by,
			Version:   version,
		})
	})
	return nil
}

func bumpVersion(tx *gorm.DB, order *models.Order) error {
	res := tx.Model(&models.Order{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Update("version", order.Version+1)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errVersionConflict
	}
	order.Version++
	return nil
}

// releaseTable frees the table an order was holding and marks it for cleaning.
func releaseTable(ctx context.Context, tx *gorm.DB, orderID uint, after *afterCommit) error {
	var table models.Table
	err := tx.Where("active_order_id = ?", orderID).First(&table).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	prev := table.Status
	if err := tx.Model(&table).Updates(map[string]interface{}{
		"status":          models.TableCleaning,
		"active_order_id": nil,
		"version":         gorm.Expr("version + 1"),
	}).Error; err != nil {
		return err
	}
	table.Status = models.TableCleaning
	table.ActiveOrderID = nil
	after.add(func() { tableStatusChanged(ctx, &table, prev) })
	return nil
}

type unavailableError struct {
	name string
}

func (e *unavailableError) Error() string {
	return "Product '" + e.name + "' is not available"
}

// orderWriteError maps order write failures onto HTTP statuses.
func orderWriteError(c *gin.Context, err error) {
	var ue *unavailableError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundSubject(err) + " not found"})
	case errors.As(err, &ue):
		c.JSON(http.StatusBadRequest, gin.H{"error": ue.Error()})
	case errors.Is(err, errVersionConflict):
		resp := gin.H{"error": err.Error()}
		if id, convErr := parseUintParam(c, "id"); convErr == nil {
			var current models.Order
			if config.DB.Preload("Items").First(&current, id).Error == nil {
				current.StampElapsed(now())
				resp["order"] = current
			}
		}
		c.JSON(http.StatusConflict, resp)
	case errors.Is(err, errTableBusy), errors.Is(err, errTableNotSeatable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "Request cancelled"})
	default:
		zap.L().Error("order write failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process order"})
	}
}

// notFoundSubject recovers the record name wrapped around gorm.ErrRecordNotFound.
func notFoundSubject(err error) string {
	msg := err.Error()
	suffix := ": " + gorm.ErrRecordNotFound.Error()
	if len(msg) > len(suffix) && msg[len(msg)-len(suffix):] == suffix {
		return msg[:len(msg)-len(suffix)]
	}
	return "Record"
}
