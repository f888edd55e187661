package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"restaurant-pos-api/catalog"
	"restaurant-pos-api/models"
)

var _ catalog.Backend = (*Client)(nil)

type ProductFilter struct {
	Query         string
	CategoryID    uint
	SubcategoryID uint
	Available     *bool
}

func (f ProductFilter) values() url.Values {
	v := url.Values{}
	if f.Query != "" {
		v.Set("q", f.Query)
	}
	if f.CategoryID != 0 {
		v.Set("category_id", strconv.FormatUint(uint64(f.CategoryID), 10))
	}
	if f.SubcategoryID != 0 {
		v.Set("subcategory_id", strconv.FormatUint(uint64(f.SubcategoryID), 10))
	}
	if f.Available != nil {
		v.Set("available", strconv.FormatBool(*f.Available))
	}
	return v
}

func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	var resp struct {
		Categories []models.Category `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/categories", nil, nil, &resp, nil); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

func (c *Client) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	var resp struct {
		Products []models.Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/products", f.values(), nil, &resp, nil); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

func (c *Client) SetProductAvailability(ctx context.Context, id uint, available bool) (*models.Product, error) {
	var resp struct {
		Product models.Product `json:"product"`
	}
	body := map[string]bool{"available": available}
	if err := c.do(ctx, http.MethodPatch, "/api/products/"+idStr(id)+"/availability", nil, body, &resp, nil); err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

func (c *Client) CreateCategory(ctx context.Context, d catalog.CategoryDraft) (uint, error) {
	var resp struct {
		Category models.Category `json:"category"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/categories", nil, d, &resp, nil); err != nil {
		return 0, err
	}
	return resp.Category.ID, nil
}

func (c *Client) CreateSubcategory(ctx context.Context, categoryID uint, d catalog.SubcategoryDraft) (uint, error) {
	var resp struct {
		Subcategory models.Subcategory `json:"subcategory"`
	}
	body := map[string]interface{}{
		"category_id": categoryID,
		"name":        d.Name,
		"description": d.Description,
	}
	if err := c.do(ctx, http.MethodPost, "/api/subcategories", nil, body, &resp, nil); err != nil {
		return 0, err
	}
	return resp.Subcategory.ID, nil
}

func (c *Client) CreateProduct(ctx context.Context, subcategoryID uint, d catalog.ProductDraft) (uint, error) {
	var resp struct {
		Product models.Product `json:"product"`
	}
	body := map[string]interface{}{
		"subcategory_id": subcategoryID,
		"name":           d.Name,
		"description":    d.Description,
		"price":          d.Price,
		"image_url":      d.ImageURL,
	}
	if d.Available != nil {
		body["available"] = *d.Available
	}
	if err := c.do(ctx, http.MethodPost, "/api/products", nil, body, &resp, nil); err != nil {
		return 0, err
	}
	return resp.Product.ID, nil
}

func (c *Client) DeleteCategory(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, "/api/categories/"+idStr(id), nil, nil, nil, nil)
}

func (c *Client) DeleteSubcategory(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, "/api/subcategories/"+idStr(id), nil, nil, nil, nil)
}

func (c *Client) DeleteProduct(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, "/api/products/"+idStr(id), nil, nil, nil, nil)
}

func idStr(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func joinList[S ~string](xs []S) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = string(x)
	}
	return strings.Join(parts, ",")
}
