package handlers

import (
	"net/http"
	"strings"

	"restaurant-pos-api/catalog"
	"restaurant-pos-api/config"
	"restaurant-pos-api/events"
	"restaurant-pos-api/models"
	"restaurant-pos-api/search"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Active      *bool  `json:"active"`
}

type SubcategoryRequest struct {
	CategoryID  uint   `json:"category_id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type ProductRequest struct {
	SubcategoryID uint            `json:"subcategory_id" binding:"required"`
	Name          string          `json:"name" binding:"required"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	ImageURL      string          `json:"image_url"`
	Icon          string          `json:"icon"`
	Available     *bool           `json:"available"`
}

type AvailabilityRequest struct {
	Available *bool `json:"available" binding:"required"`
}

// ── Categories ─────────────────────────────────────────────────────

// ListCategories returns categories, filtered by q and active
func ListCategories(c *gin.Context) {
	var categories []models.Category
	query := config.DB.Order("name asc")
	if c.Query("include") == "subcategories" {
		query = query.Preload("Subcategories")
	}
	if err := query.Find(&categories).Error; err != nil {
		dbError(c, err, "categories")
		return
	}

	q := c.Query("q")
	active := optionalBool(c, "active")
	categories = search.Filter(categories, func(cat models.Category) bool {
		if active != nil && cat.Active != *active {
			return false
		}
		return search.Matches(q, cat.Name, cat.Description)
	})
	c.JSON(http.StatusOK, gin.H{"count": len(categories), "categories": categories})
}

func GetCategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var category models.Category
	if err := config.DB.Preload("Subcategories.Products").First(&category, id).Error; err != nil {
		dbError(c, err, "Category")
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category})
}

func CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !requireName(c, &req.Name) {
		return
	}
	category := newCategory(catalog.CategoryDraft{Name: req.Name, Description: req.Description, Icon: req.Icon})
	if req.Active != nil {
		category.Active = *req.Active
	}
	if err := config.DB.Create(&category).Error; err != nil {
		dbError(c, err, "category")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"category": category})
}

func UpdateCategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var category models.Category
	if err := config.DB.First(&category, id).Error; err != nil {
		dbError(c, err, "Category")
		return
	}
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !requireName(c, &req.Name) {
		return
	}
	category.Name = strings.TrimSpace(req.Name)
	category.Description = req.Description
	if req.Icon != "" {
		category.Icon = req.Icon
	}
	if req.Active != nil {
		category.Active = *req.Active
	}
	if err := config.DB.Save(&category).Error; err != nil {
		dbError(c, err, "category")
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category})
}

// DeleteCategory removes the category with its subcategories and products
func DeleteCategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.First(&category, id).Error; err != nil {
			return err
		}
		subIDs := tx.Model(&models.Subcategory{}).Select("id").Where("category_id = ?", id)
		if err := tx.Where("subcategory_id IN (?)", subIDs).Delete(&models.Product{}).Error; err != nil {
			return err
		}
		if err := tx.Where("category_id = ?", id).Delete(&models.Subcategory{}).Error; err != nil {
			return err
		}
		return tx.Delete(&category).Error
	})
	if err != nil {
		dbError(c, err, "Category")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
}

// ── Subcategories ──────────────────────────────────────────────────

func ListSubcategories(c *gin.Context) {
	var subs []models.Subcategory
	query := config.DB.Order("name asc")
	if categoryID := optionalUint(c, "category_id"); categoryID != 0 {
		query = query.Where("category_id = ?", categoryID)
	}
	if err := query.Find(&subs).Error; err != nil {
		dbError(c, err, "subcategories")
		return
	}
	q := c.Query("q")
	subs = search.Filter(subs, func(s models.Subcategory) bool {
		return search.Matches(q, s.Name, s.Description)
	})
	c.JSON(http.StatusOK, gin.H{"count": len(subs), "subcategories": subs})
}

func GetSubcategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var sub models.Subcategory
	if err := config.DB.Preload("Products").First(&sub, id).Error; err != nil {
		dbError(c, err, "Subcategory")
		return
	}
	c.JSON(http.StatusOK, gin.H{"subcategory": sub})
}

func CreateSubcategory(c *gin.Context) {
	var req SubcategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !requireName(c, &req.Name) {
		return
	}
	var category models.Category
	if err := config.DB.First(&category, req.CategoryID).Error; err != nil {
		dbError(c, err, "Category")
		return
	}
	sub := newSubcategory(category.ID, catalog.SubcategoryDraft{Name: req.Name, Description: req.Description})
	if err := config.DB.Create(&sub).Error; err != nil {
		dbError(c, err, "subcategory")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"subcategory": sub})
}

func UpdateSubcategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var sub models.Subcategory
	if err := config.DB.First(&sub, id).Error; err != nil {
		dbError(c, err, "Subcategory")
		return
	}
	var req SubcategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !requireName(c, &req.Name) {
		return
	}
	if req.CategoryID != sub.CategoryID {
		var category models.Category
		if err := config.DB.First(&category, req.CategoryID).Error; err != nil {
			dbError(c, err, "Category")
			return
		}
	}
	sub.CategoryID = req.CategoryID
	sub.Name = strings.TrimSpace(req.Name)
	sub.Description = req.Description
	if err := config.DB.Save(&sub).Error; err != nil {
		dbError(c, err, "subcategory")
		return
	}
	c.JSON(http.StatusOK, gin.H{"subcategory": sub})
}

func DeleteSubcategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var sub models.Subcategory
		if err := tx.First(&sub, id).Error; err != nil {
			return err
		}
		if err := tx.Where("subcategory_id = ?", id).Delete(&models.Product{}).Error; err != nil {
			return err
		}
		return tx.Delete(&sub).Error
	})
	if err != nil {
		dbError(c, err, "Subcategory")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Subcategory deleted"})
}

// ── Products ───────────────────────────────────────────────────────

// ListProducts returns products filtered by q, category_id, subcategory_id and available
func ListProducts(c *gin.Context) {
	var products []models.Product
	query := config.DB.Order("name asc")
	if subID := optionalUint(c, "subcategory_id"); subID != 0 {
		query = query.Where("subcategory_id = ?", subID)
	}
	if err := query.Find(&products).Error; err != nil {
		dbError(c, err, "products")
		return
	}

	var inCategory search.Facet[uint]
	if categoryID := optionalUint(c, "category_id"); categoryID != 0 {
		var ids []uint
		if err := config.DB.Model(&models.Subcategory{}).Where("category_id = ?", categoryID).Pluck("id", &ids).Error; err != nil {
			dbError(c, err, "subcategories")
			return
		}
		// an unknown category must select nothing, not everything
		inCategory = search.NewFacet(append(ids, 0)...)
	}

	q := c.Query("q")
	available := optionalBool(c, "available")
	products = search.Filter(products, func(p models.Product) bool {
		if available != nil && p.Available != *available {
			return false
		}
		if !inCategory.Allows(p.SubcategoryID) {
			return false
		}
		return search.Matches(q, p.Name, p.Description)
	})
	c.JSON(http.StatusOK, gin.H{"count": len(products), "products": products})
}

func GetProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var product models.Product
	if err := config.DB.First(&product, id).Error; err != nil {
		dbError(c, err, "Product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

func CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !requireName(c, &req.Name) {
		return
	}
	if req.Price.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Price must not be negative"})
		return
	}
	var sub models.Subcategory
	if err := config.DB.First(&sub, req.SubcategoryID).Error; err != nil {
		dbError(c, err, "Subcategory")
		return
	}
	product := newProduct(sub.ID, catalog.ProductDraft{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
		Available:   req.Available,
	})
	if req.Icon != "" {
		product.Icon = req.Icon
	}
	if err := config.DB.Create(&product).Error; err != nil {
		dbError(c, err, "product")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": product})
}

func UpdateProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var product models.Product
	if err := config.DB.First(&product, id).Error; err != nil {
		dbError(c, err, "Product")
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !requireName(c, &req.Name) {
		return
	}
	if req.Price.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Price must not be negative"})
		return
	}
	if req.SubcategoryID != product.SubcategoryID {
		var sub models.Subcategory
		if err := config.DB.First(&sub, req.SubcategoryID).Error; err != nil {
			dbError(c, err, "Subcategory")
			return
		}
	}
	product.SubcategoryID = req.SubcategoryID
	product.Name = strings.TrimSpace(req.Name)
	product.Description = req.Description
	product.Price = req.Price
	product.ImageURL = req.ImageURL
	if req.Icon != "" {
		product.Icon = req.Icon
	}
	if req.Available != nil {
		product.Available = *req.Available
	}
	if err := config.DB.Save(&product).Error; err != nil {
		dbError(c, err, "product")
		return
	}
	productChanged(c, &product)
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// SetProductAvailability toggles whether a product can be ordered
func SetProductAvailability(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var product models.Product
	if err := config.DB.First(&product, id).Error; err != nil {
		dbError(c, err, "Product")
		return
	}
	if err := config.DB.Model(&product).Update("available", *req.Available).Error; err != nil {
		dbError(c, err, "product")
		return
	}
	product.Available = *req.Available
	productChanged(c, &product)
	c.JSON(http.StatusOK, gin.H{"product": product})
}

func DeleteProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	res := config.DB.Delete(&models.Product{}, id)
	if res.Error != nil {
		dbError(c, res.Error, "product")
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	hub.Broadcast(id, gin.H{"type": "product_deleted", "product_id": id})
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

// productChanged notifies socket subscribers and the event bus.
func productChanged(c *gin.Context, p *models.Product) {
	hub.Broadcast(p.ID, gin.H{"type": "product_update", "product": p})
	events.Emit(c.Request.Context(), publisher, events.TopicProductUpdated, events.ProductUpdated{
		ProductID: p.ID,
		Available: p.Available,
	})
}

// ── Wizard & heuristics ────────────────────────────────────────────

// CreateCatalogWizard creates a category with its subcategories and products
// in one transaction
func CreateCatalogWizard(c *gin.Context) {
	var draft catalog.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := draft.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created := catalog.Created{}
	var category models.Category
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		category = newCategory(draft.Category)
		if err := tx.Create(&category).Error; err != nil {
			return err
		}
		created.CategoryID = category.ID
		for _, s := range draft.Subcategories {
			sub := newSubcategory(category.ID, s)
			if err := tx.Create(&sub).Error; err != nil {
				return err
			}
			created.SubcategoryIDs = append(created.SubcategoryIDs, sub.ID)
		}
		for _, p := range draft.Products {
			product := newProduct(created.SubcategoryIDs[p.Subcategory], p)
			if err := tx.Create(&product).Error; err != nil {
				return err
			}
			created.ProductIDs = append(created.ProductIDs, product.ID)
		}
		return nil
	})
	if err != nil {
		dbError(c, err, "catalog")
		return
	}

	zap.L().Info("catalog wizard created",
		zap.Uint("category_id", created.CategoryID),
		zap.Int("subcategories", len(created.SubcategoryIDs)),
		zap.Int("products", len(created.ProductIDs)))
	c.JSON(http.StatusCreated, gin.H{"created": created, "category": category})
}

// SuggestCatalogDefaults returns the icon and description the heuristics pick for a name
func SuggestCatalogDefaults(c *gin.Context) {
	name := c.Query("name")
	c.JSON(http.StatusOK, gin.H{
		"name":        name,
		"icon":        catalog.SuggestIcon(name),
		"description": catalog.SuggestDescription(name),
	})
}

func newCategory(d catalog.CategoryDraft) models.Category {
	cat := models.Category{
		Name:        strings.TrimSpace(d.Name),
		Description: d.Description,
		Icon:        d.Icon,
		Active:      true,
	}
	if cat.Icon == "" {
		cat.Icon = catalog.SuggestIcon(cat.Name)
	}
	if cat.Description == "" {
		cat.Description = catalog.SuggestDescription(cat.Name)
	}
	return cat
}

func newSubcategory(categoryID uint, d catalog.SubcategoryDraft) models.Subcategory {
	return models.Subcategory{
		CategoryID:  categoryID,
		Name:        strings.TrimSpace(d.Name),
		Description: d.Description,
	}
}

func newProduct(subcategoryID uint, d catalog.ProductDraft) models.Product {
	p := models.Product{
		SubcategoryID: subcategoryID,
		Name:          strings.TrimSpace(d.Name),
		Description:   d.Description,
		Price:         d.Price,
		ImageURL:      d.ImageURL,
		Icon:          catalog.SuggestIcon(d.Name),
		Available:     true,
	}
	if d.Available != nil {
		p.Available = *d.Available
	}
	if p.Description == "" {
		p.Description = catalog.SuggestDescription(p.Name)
	}
	return p
}
