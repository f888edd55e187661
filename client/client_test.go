package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"restaurant-pos-api/catalog"
	"restaurant-pos-api/models"
)

type recorded struct {
	Method string
	Path   string
	Body   map[string]interface{}
	Header http.Header
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []recorded
	nextID   uint
	handler  func(w http.ResponseWriter, r recorded)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recorded{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone()}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&rec.Body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.nextID++
	id := f.nextID
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if f.handler != nil {
		f.handler(w, rec)
		return
	}
	key := map[string]string{
		"/api/categories":    "category",
		"/api/subcategories": "subcategory",
		"/api/products":      "product",
	}[rec.Path]
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{key: map[string]interface{}{"id": id}})
}

func newFake(t *testing.T, h func(w http.ResponseWriter, r recorded)) (*fakeAPI, *Client) {
	t.Helper()
	f := &fakeAPI{handler: h}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, New(srv.URL, WithToken("tok"))
}

func TestWizardSubmitPostsInDependencyOrder(t *testing.T) {
	f, c := newFake(t, nil)
	draft := catalog.Draft{
		Category:      catalog.CategoryDraft{Name: "Bebidas"},
		Subcategories: []catalog.SubcategoryDraft{{Name: "Calientes"}},
		Products: []catalog.ProductDraft{
			{Subcategory: 0, Name: "Espresso", Price: decimal.RequireFromString("2.50")},
		},
	}
	created, err := catalog.Submit(context.Background(), c, draft)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	var paths []string
	for _, r := range f.requests {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		paths = append(paths, r.Path)
	}
	want := []string{"/api/categories", "/api/subcategories", "/api/products"}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	// ids from each response feed the next request
	if got := f.requests[1].Body["category_id"]; got != float64(1) {
		t.Errorf("subcategory category_id = %v, want 1", got)
	}
	if got := f.requests[2].Body["subcategory_id"]; got != float64(2) {
		t.Errorf("product subcategory_id = %v, want 2", got)
	}
	if created.CategoryID != 1 || !reflect.DeepEqual(created.ProductIDs, []uint{3}) {
		t.Errorf("created = %+v", created)
	}
}

func TestWizardSubmitRollsBackOverHTTP(t *testing.T) {
	f, c := newFake(t, func(w http.ResponseWriter, r recorded) {
		switch {
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"message":"deleted"}`))
		case r.Path == "/api/products":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"Invalid product","reason":"price must be positive"}`))
		case r.Path == "/api/categories":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"category":{"id":10}}`))
		default:
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"subcategory":{"id":20}}`))
		}
	})
	draft := catalog.Draft{
		Category:      catalog.CategoryDraft{Name: "Postres"},
		Subcategories: []catalog.SubcategoryDraft{{Name: "Caseros"}},
		Products:      []catalog.ProductDraft{{Name: "Flan", Price: decimal.NewFromInt(4)}},
	}
	_, err := catalog.Submit(context.Background(), c, draft)
	if !IsStatus(err, http.StatusBadRequest) {
		t.Fatalf("Submit() error = %v, want a 400 APIError", err)
	}

	var calls []string
	for _, r := range f.requests {
		calls = append(calls, r.Method+" "+r.Path)
	}
	want := []string{
		"POST /api/categories",
		"POST /api/subcategories",
		"POST /api/products",
		"DELETE /api/subcategories/20",
		"DELETE /api/categories/10",
	}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestAPIErrorCarriesMessageAndBody(t *testing.T) {
	_, c := newFake(t, func(w http.ResponseWriter, r recorded) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"Order was modified by someone else","order":{"id":5,"version":3}}`))
	})
	_, err := c.UpdateOrderStatus(context.Background(), 5, models.StatusPreparing, 2, "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusConflict || apiErr.Message != "Order was modified by someone else" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	var current struct {
		Order models.Order `json:"order"`
	}
	if err := json.Unmarshal(apiErr.Body, &current); err != nil || current.Order.Version != 3 {
		t.Errorf("conflict body order = %+v, err %v", current.Order, err)
	}
}

func TestNonJSONErrorFallsBackToStatusText(t *testing.T) {
	_, c := newFake(t, func(w http.ResponseWriter, r recorded) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})
	_, err := c.ListCategories(context.Background())
	if !IsStatus(err, http.StatusBadGateway) {
		t.Fatalf("error = %v", err)
	}
	if err.Error() != "api error 502: Bad Gateway" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestCheckoutSendsIdempotencyKey(t *testing.T) {
	f, c := newFake(t, func(w http.ResponseWriter, r recorded) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"replay":true,"payment":{"id":1,"order_id":9},"order":{"id":9,"status":"completed"}}`))
	})
	pct := decimal.NewFromInt(15)
	res, err := c.Checkout(context.Background(), 9, CheckoutRequest{TipPercent: &pct}, "key-1")
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	if !res.Replay || res.Order.Status != models.StatusCompleted {
		t.Errorf("result = %+v", res)
	}
	if _, err := c.Checkout(context.Background(), 9, CheckoutRequest{}, ""); err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	if got := f.requests[0].Header.Get("Idempotency-Key"); got != "key-1" {
		t.Errorf("first key = %q", got)
	}
	if got := f.requests[1].Header.Get("Idempotency-Key"); got == "" || got == "key-1" {
		t.Errorf("generated key = %q", got)
	}
	if f.requests[0].Path != "/api/orders/9/checkout" {
		t.Errorf("path = %s", f.requests[0].Path)
	}
}

func TestListOrdersQuery(t *testing.T) {
	var rawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"count":0,"orders":[]}`))
	}))
	defer srv.Close()
	c := New(srv.URL)
	_, err := c.ListOrders(context.Background(), OrderFilter{
		Statuses: []models.OrderStatus{models.StatusPending, models.StatusReady},
		TableID:  3,
		Active:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if rawQuery != "active=true&status=pending%2Cready&table_id=3" {
		t.Errorf("query = %s", rawQuery)
	}
}

func TestBaseURLFromEnvironment(t *testing.T) {
	t.Setenv("POS_API_URL", "http://pos.internal:9000/")
	if got := New("").BaseURL(); got != "http://pos.internal:9000" {
		t.Errorf("BaseURL() = %q", got)
	}
	t.Setenv("POS_API_URL", "")
	if got := New("").BaseURL(); got != DefaultBaseURL {
		t.Errorf("BaseURL() = %q", got)
	}
}
