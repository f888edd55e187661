package client

import (
	"context"
	"net/http"
	"net/url"

	"restaurant-pos-api/models"
)

type TableFilter struct {
	AreaID   uint
	Statuses []models.TableStatus
	Query    string
}

func (c *Client) ListAreas(ctx context.Context) ([]models.Area, error) {
	var resp struct {
		Areas []models.Area `json:"areas"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/areas", nil, nil, &resp, nil); err != nil {
		return nil, err
	}
	return resp.Areas, nil
}

// TablesEnhanced returns tables with their area and active order.
func (c *Client) TablesEnhanced(ctx context.Context, f TableFilter) ([]models.Table, error) {
	v := url.Values{}
	if f.AreaID != 0 {
		v.Set("area_id", idStr(f.AreaID))
	}
	if len(f.Statuses) > 0 {
		v.Set("status", joinList(f.Statuses))
	}
	if f.Query != "" {
		v.Set("q", f.Query)
	}
	var resp struct {
		Tables []models.Table `json:"tables"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/tables-enhanced", v, nil, &resp, nil); err != nil {
		return nil, err
	}
	return resp.Tables, nil
}

// SetTableStatus sets a table's status. A version > 0 makes it conditional.
func (c *Client) SetTableStatus(ctx context.Context, id uint, status models.TableStatus, version int) (*models.Table, error) {
	body := map[string]interface{}{"status": status}
	if version > 0 {
		body["version"] = version
	}
	var resp struct {
		Table models.Table `json:"table"`
	}
	if err := c.do(ctx, http.MethodPatch, "/api/tables/"+idStr(id)+"/status", nil, body, &resp, nil); err != nil {
		return nil, err
	}
	return &resp.Table, nil
}
