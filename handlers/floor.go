package handlers

import (
	"context"
	"net/http"
	"strconv"

	"restaurant-pos-api/config"
	"restaurant-pos-api/events"
	"restaurant-pos-api/models"
	"restaurant-pos-api/search"
	"restaurant-pos-api/statemachine"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AreaRequest struct {
	Name     string `json:"name" binding:"required"`
	Capacity int    `json:"capacity" binding:"min=0"`
	Outdoor  bool   `json:"outdoor"`
	Color    string `json:"color"`
	Icon     string `json:"icon"`
	Active   *bool  `json:"active"`
}

type TableRequest struct {
	Number      int                  `json:"number" binding:"required,min=1"`
	Capacity    int                  `json:"capacity" binding:"required,min=1"`
	MinCapacity int                  `json:"min_capacity" binding:"min=0"`
	MaxCapacity int                  `json:"max_capacity" binding:"min=0"`
	Shape       models.TableShape    `json:"shape"`
	AreaID      *uint                `json:"area_id"`
	Status      models.TableStatus   `json:"status"`
	Features    models.TableFeatures `json:"features"`
	PosX        float64              `json:"pos_x"`
	PosY        float64              `json:"pos_y"`
	Version     *int                 `json:"version"`
}

type TableStatusRequest struct {
	Status  models.TableStatus `json:"status" binding:"required"`
	Version *int               `json:"version"`
}

// ── Areas ──────────────────────────────────────────────────────────

func ListAreas(c *gin.Context) {
	var areas []models.Area
	query := config.DB.Order("name asc")
	if c.Query("include") == "tables" {
		query = query.Preload("Tables", func(db *gorm.DB) *gorm.DB { return db.Order("number asc") })
	}
	if err := query.Find(&areas).Error; err != nil {
		dbError(c, err, "areas")
		return
	}
	q := c.Query("q")
	areas = search.Filter(areas, func(a models.Area) bool { return search.Matches(q, a.Name) })
	c.JSON(http.StatusOK, gin.H{"count": len(areas), "areas": areas})
}

func CreateArea(c *gin.Context) {
	var req AreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !requireName(c, &req.Name) {
		return
	}
	area := models.Area{
		Name:     req.Name,
		Capacity: req.Capacity,
		Outdoor:  req.Outdoor,
		Color:    req.Color,
		Icon:     req.Icon,
		Active:   true,
	}
	if req.Active != nil {
		area.Active = *req.Active
	}
	var existing int64
	config.DB.Model(&models.Area{}).Where("name = ?", req.Name).Count(&existing)
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Area name already in use"})
		return
	}
	if err := config.DB.Create(&area).Error; err != nil {
		dbError(c, err, "area")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"area": area})
}

func UpdateArea(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var area models.Area
	if err := config.DB.First(&area, id).Error; err != nil {
		dbError(c, err, "Area")
		return
	}
	var req AreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !requireName(c, &req.Name) {
		return
	}
	area.Name = req.Name
	area.Capacity = req.Capacity
	area.Outdoor = req.Outdoor
	area.Color = req.Color
	area.Icon = req.Icon
	if req.Active != nil {
		area.Active = *req.Active
	}
	if err := config.DB.Save(&area).Error; err != nil {
		dbError(c, err, "area")
		return
	}
	c.JSON(http.StatusOK, gin.H{"area": area})
}

// DeleteArea removes an area; its tables stay on the floor without an area
func DeleteArea(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var area models.Area
		if err := tx.First(&area, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Table{}).Where("area_id = ?", id).Update("area_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&area).Error
	})
	if err != nil {
		dbError(c, err, "Area")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Area deleted"})
}

// ── Tables ─────────────────────────────────────────────────────────

// ListTables returns tables filtered by area_id, status (comma list) and q
func ListTables(c *gin.Context) {
	tables, ok := loadTables(c, false)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(tables), "tables": tables})
}

// ListTablesEnhanced returns tables with their area and active order, plus
// per-status counts for the floor overview
func ListTablesEnhanced(c *gin.Context) {
	tables, ok := loadTables(c, true)
	if !ok {
		return
	}

	var orderIDs []uint
	for _, t := range tables {
		if t.ActiveOrderID != nil {
			orderIDs = append(orderIDs, *t.ActiveOrderID)
		}
	}
	if len(orderIDs) > 0 {
		var orders []models.Order
		if err := config.DB.Preload("Items").Where("id IN ?", orderIDs).Find(&orders).Error; err != nil {
			dbError(c, err, "orders")
			return
		}
		byID := make(map[uint]*models.Order, len(orders))
		ts := now()
		for i := range orders {
			orders[i].StampElapsed(ts)
			byID[orders[i].ID] = &orders[i]
		}
		for i := range tables {
			if tables[i].ActiveOrderID != nil {
				tables[i].ActiveOrder = byID[*tables[i].ActiveOrderID]
			}
		}
	}

	counts := map[models.TableStatus]int{}
	for _, s := range models.TableStatuses {
		counts[s] = 0
	}
	for _, t := range tables {
		counts[t.Status]++
	}
	c.JSON(http.StatusOK, gin.H{"count": len(tables), "status_counts": counts, "tables": tables})
}

func loadTables(c *gin.Context, withArea bool) ([]models.Table, bool) {
	var tables []models.Table
	query := config.DB.Order("number asc")
	if withArea {
		query = query.Preload("Area")
	}
	if areaID := optionalUint(c, "area_id"); areaID != 0 {
		query = query.Where("area_id = ?", areaID)
	}
	if err := query.Find(&tables).Error; err != nil {
		dbError(c, err, "tables")
		return nil, false
	}

	statuses := search.NewFacet[models.TableStatus]()
	for _, s := range search.ParseList(c.Query("status")) {
		statuses[models.TableStatus(s)] = struct{}{}
	}
	q := c.Query("q")
	tables = search.Filter(tables, func(t models.Table) bool {
		if !statuses.Allows(t.Status) {
			return false
		}
		areaName := ""
		if t.Area != nil {
			areaName = t.Area.Name
		}
		return search.Matches(q, strconv.Itoa(t.Number), areaName)
	})
	return tables, true
}

func GetTable(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var table models.Table
	if err := config.DB.Preload("Area").First(&table, id).Error; err != nil {
		dbError(c, err, "Table")
		return
	}
	if table.ActiveOrderID != nil {
		var order models.Order
		if err := config.DB.Preload("Items").First(&order, *table.ActiveOrderID).Error; err == nil {
			order.StampElapsed(now())
			table.ActiveOrder = &order
		}
	}
	c.JSON(http.StatusOK, gin.H{"table": table})
}

// validateTable checks the request fields shared by create and update. An
// empty status is left for the caller to fill.
func validateTable(c *gin.Context, req *TableRequest) bool {
	if req.Shape == "" {
		req.Shape = models.ShapeSquare
	}
	if !req.Shape.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid shape. Must be: round, square, rectangle or oval"})
		return false
	}
	if req.Status != "" {
		if err := statemachine.ValidTableStatus(req.Status); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "valid_statuses": models.TableStatuses})
			return false
		}
	}
	if req.MaxCapacity > 0 && req.MinCapacity > req.MaxCapacity {
		c.JSON(http.StatusBadRequest, gin.H{"error": "min_capacity must not exceed max_capacity"})
		return false
	}
	if req.AreaID != nil {
		var area models.Area
		if err := config.DB.First(&area, *req.AreaID).Error; err != nil {
			dbError(c, err, "Area")
			return false
		}
	}
	return true
}

func CreateTable(c *gin.Context) {
	var req TableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validateTable(c, &req) {
		return
	}
	if req.Status == "" {
		req.Status = models.TableAvailable
	}
	var existing int64
	config.DB.Model(&models.Table{}).Where("number = ?", req.Number).Count(&existing)
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Table number already in use"})
		return
	}
	table := models.Table{
		Number:      req.Number,
		Capacity:    req.Capacity,
		MinCapacity: req.MinCapacity,
		MaxCapacity: req.MaxCapacity,
		Shape:       req.Shape,
		AreaID:      req.AreaID,
		Status:      req.Status,
		Features:    req.Features,
		PosX:        req.PosX,
		PosY:        req.PosY,
		Version:     1,
	}
	if err := config.DB.Create(&table).Error; err != nil {
		dbError(c, err, "table")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"table": table})
}

func UpdateTable(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var table models.Table
	if err := config.DB.First(&table, id).Error; err != nil {
		dbError(c, err, "Table")
		return
	}
	var req TableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validateTable(c, &req) {
		return
	}
	// layout edits keep the status unless one is chosen explicitly
	if req.Status == "" {
		req.Status = table.Status
	}
	if req.Number != table.Number {
		var existing int64
		config.DB.Model(&models.Table{}).Where("number = ? AND id <> ?", req.Number, id).Count(&existing)
		if existing > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "Table number already in use"})
			return
		}
	}

	prev := table.Status
	query := config.DB.Model(&models.Table{}).Where("id = ?", id)
	if req.Version != nil {
		query = query.Where("version = ?", *req.Version)
	}
	res := query.Updates(map[string]interface{}{
		"number":       req.Number,
		"capacity":     req.Capacity,
		"min_capacity": req.MinCapacity,
		"max_capacity": req.MaxCapacity,
		"shape":        req.Shape,
		"area_id":      req.AreaID,
		"status":       req.Status,
		"features":     req.Features,
		"pos_x":        req.PosX,
		"pos_y":        req.PosY,
		"version":      gorm.Expr("version + 1"),
	})
	if res.Error != nil {
		dbError(c, res.Error, "table")
		return
	}
	if err := config.DB.First(&table, id).Error; err != nil {
		dbError(c, err, "Table")
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Table was modified by someone else", "table": table})
		return
	}
	if prev != table.Status {
		tableStatusChanged(c.Request.Context(), &table, prev)
	}
	c.JSON(http.StatusOK, gin.H{"table": table})
}

// UpdateTableStatus sets any status from any status. A version in the body
// makes the write conditional on it.
func UpdateTableStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req TableStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := statemachine.ValidTableStatus(req.Status); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "valid_statuses": models.TableStatuses})
		return
	}

	var table models.Table
	if err := config.DB.First(&table, id).Error; err != nil {
		dbError(c, err, "Table")
		return
	}
	prev := table.Status

	query := config.DB.Model(&models.Table{}).Where("id = ?", id)
	if req.Version != nil {
		query = query.Where("version = ?", *req.Version)
	}
	res := query.Updates(map[string]interface{}{
		"status":  req.Status,
		"version": gorm.Expr("version + 1"),
	})
	if res.Error != nil {
		dbError(c, res.Error, "table")
		return
	}
	if res.RowsAffected == 0 {
		config.DB.First(&table, id)
		c.JSON(http.StatusConflict, gin.H{"error": "Table was modified by someone else", "table": table})
		return
	}
	if err := config.DB.First(&table, id).Error; err != nil {
		dbError(c, err, "Table")
		return
	}
	tableStatusChanged(c.Request.Context(), &table, prev)
	c.JSON(http.StatusOK, gin.H{
		"message":         "Table status updated",
		"previous_status": prev,
		"table":           table,
	})
}

func DeleteTable(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var table models.Table
	if err := config.DB.First(&table, id).Error; err != nil {
		dbError(c, err, "Table")
		return
	}
	if table.ActiveOrderID != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Table has an active order"})
		return
	}
	if err := config.DB.Delete(&table).Error; err != nil {
		dbError(c, err, "table")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Table deleted"})
}

func tableStatusChanged(ctx context.Context, t *models.Table, prev models.TableStatus) {
	zap.L().Info("table status changed",
		zap.Uint("table_id", t.ID),
		zap.Int("number", t.Number),
		zap.String("from", string(prev)),
		zap.String("to", string(t.Status)))
	events.Emit(ctx, publisher, events.TopicTableStatus, events.TableStatusChanged{
		TableID: t.ID,
		Number:  t.Number,
		From:    string(prev),
		To:      string(t.Status),
	})
}
