package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aymshop/storefront/internal/config"
	"github.com/aymshop/storefront/internal/models"
	"github.com/aymshop/storefront/internal/repo/mirror"
	"github.com/aymshop/storefront/internal/usecase"
	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCatalog struct {
	products []models.Product
	err      error
}

func (c *stubCatalog) Products(context.Context) ([]models.Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	return models.CloneProducts(c.products), nil
}

func (c *stubCatalog) Reload(ctx context.Context) ([]models.Product, error) {
	return c.Products(ctx)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			AllowOrigins: ".*",
			CacheMaxAge:  60,
			CacheSWR:     30,
			SkipLogPaths: []string{"/health", "/metrics"},
		},
		Store: config.StoreConfig{
			ItemsPerPage: 2,
			CheckoutMode: config.CheckoutTwoPhase,
			SessionTTL:   time.Hour,
		},
		Order: config.OrderConfig{
			ShopName:        "AYM",
			SerialPrefix:    "AYM",
			WhatsAppNumber:  "93789281770",
			WhatsAppBaseURL: "https://wa.me",
		},
	}
}

func catalogFixture() []models.Product {
	mk := func(id, name, category string, stock int, price models.Amount) models.Product {
		return models.Product{
			ID: id, Name: name, Code: "C-" + id, Price: price, Stock: stock,
			Category: category, Images: []string{"https://img/" + id},
		}
	}
	return []models.Product{
		mk("a", "Rose Cream", "کرم", 5, 1500),
		mk("b", "Shampoo", "شامپو", 0, 900),
		mk("c", "Night Cream", "کرم", 2, 2500),
	}
}

type testServer struct {
	e       *echo.Echo
	catalog *stubCatalog
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := testConfig()
	catalog := &stubCatalog{products: catalogFixture()}
	registry := usecase.NewSessionRegistry(cfg, catalog, mirror.NewMemoryStore(), nil)
	e := NewEcho(cfg, NewController(cfg, catalog), NewSessionController(registry))
	return &testServer{e: e, catalog: catalog}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "missing data in %v", body)
	return d
}

func (s *testServer) createSession(t *testing.T, device string) string {
	t.Helper()
	rec, body := s.do(t, http.MethodPost, "/api/v1/sessions", "", "X-Device-ID", device)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return data(t, body)["id"].(string)
}

func TestProductsProxy(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, s-maxage=60, stale-while-revalidate=30", rec.Header().Get("Cache-Control"))
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 3, body["count"])
	assert.Len(t, body["products"], 3)

	rec, body = s.do(t, http.MethodPost, "/api/products", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method not allowed", body["error"])

	rec, _ = s.do(t, http.MethodOptions, "/api/products", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	s.catalog.err = models.ErrSourceUnavailable
	rec, body = s.do(t, http.MethodGet, "/api/products", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, fetchFailedMessage, body["message"])
	assert.NotEmpty(t, body["error"])
	assert.Empty(t, rec.Header().Get("Cache-Control"))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec, body := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestSessionAPI_Browse(t *testing.T) {
	s := newTestServer(t)
	id := s.createSession(t, "phone-1")
	base := "/api/v1/sessions/" + id

	rec, body := s.do(t, http.MethodGet, base+"/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := data(t, body)
	assert.EqualValues(t, 3, page["total"])
	assert.EqualValues(t, 2, page["total_pages"])
	assert.Len(t, page["products"], 2)

	_, body = s.do(t, http.MethodGet, base+"/products?page=2", "")
	assert.Len(t, data(t, body)["products"], 1)

	_, body = s.do(t, http.MethodGet, base+"/products?page=7", "")
	assert.Empty(t, data(t, body)["products"])

	_, body = s.do(t, http.MethodGet, base+"/products?q=cream&category=%DA%A9%D8%B1%D9%85", "")
	page = data(t, body)
	assert.EqualValues(t, 2, page["total"])
	assert.Equal(t, "کرم", page["category"])

	rec, body = s.do(t, http.MethodGet, base+"/products/a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Rose Cream", data(t, body)["name"])

	rec, body = s.do(t, http.MethodGet, base+"/products/zzz", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NotFound", body["error"])

	_, body = s.do(t, http.MethodGet, base+"/categories", "")
	assert.Equal(t, []any{"همه", "کرم", "شامپو"}, data(t, body)["categories"])

	rec, _ = s.do(t, http.MethodGet, "/api/v1/sessions/unknown/cart", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionAPI_CartAndWishlist(t *testing.T) {
	s := newTestServer(t)
	id := s.createSession(t, "phone-2")
	base := "/api/v1/sessions/" + id

	rec, body := s.do(t, http.MethodPost, base+"/cart/items", `{"product_id":"a"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, data(t, body)["count"])

	_, body = s.do(t, http.MethodPost, base+"/cart/items", `{"product_id":"a","quantity":2}`)
	cart := data(t, body)
	assert.EqualValues(t, 3, cart["count"])
	assert.EqualValues(t, 4500, cart["total"])
	assert.Equal(t, "4,500 افغانی", cart["total_text"])

	rec, _ = s.do(t, http.MethodPost, base+"/cart/items", `{"product_id":"a","quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodPost, base+"/cart/items", `{"product_id":"zzz"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodPost, base+"/cart/items", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, body = s.do(t, http.MethodPut, base+"/cart/items/a", `{"quantity":1}`)
	assert.EqualValues(t, 1, data(t, body)["count"])

	_, body = s.do(t, http.MethodPut, base+"/cart/items/a", `{"quantity":0}`)
	assert.EqualValues(t, 0, data(t, body)["count"])

	rec, _ = s.do(t, http.MethodDelete, base+"/cart/items/a", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.do(t, http.MethodPost, base+"/cart/items", `{"product_id":"c"}`)
	rec, body = s.do(t, http.MethodDelete, base+"/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, data(t, body)["items"])

	_, body = s.do(t, http.MethodPost, base+"/wishlist/c", "")
	assert.EqualValues(t, 1, data(t, body)["count"])
	_, body = s.do(t, http.MethodPost, base+"/wishlist/a", "")
	assert.EqualValues(t, 2, data(t, body)["count"])
	_, body = s.do(t, http.MethodGet, base+"/wishlist", "")
	products := data(t, body)["products"].([]any)
	require.Len(t, products, 2)
	assert.Equal(t, "a", products[0].(map[string]any)["id"])

	_, body = s.do(t, http.MethodDelete, base+"/wishlist/a", "")
	assert.EqualValues(t, 1, data(t, body)["count"])
	rec, _ = s.do(t, http.MethodDelete, base+"/wishlist/a", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// wishlist follows the device into a new session
	next := s.createSession(t, "phone-2")
	_, body = s.do(t, http.MethodGet, "/api/v1/sessions/"+next+"/wishlist", "")
	assert.EqualValues(t, 1, data(t, body)["count"])
}

func TestSessionAPI_Checkout(t *testing.T) {
	s := newTestServer(t)
	id := s.createSession(t, "")
	base := "/api/v1/sessions/" + id
	customer := `{"name":"Ahmad","phone":"0700","address":"Kabul"}`

	rec, body := s.do(t, http.MethodPost, base+"/checkout", customer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "InvalidArgument", body["error"])

	rec, _ = s.do(t, http.MethodGet, base+"/checkout/share", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.do(t, http.MethodPost, base+"/cart/items", `{"product_id":"a","quantity":2}`)

	rec, _ = s.do(t, http.MethodPost, base+"/checkout", `{"name":"Ahmad","phone":" ","address":"Kabul"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = s.do(t, http.MethodPost, base+"/checkout", customer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	receipt := data(t, body)
	assert.Equal(t, "committed", receipt["state"])
	bill := receipt["bill"].(map[string]any)
	assert.Regexp(t, `^AYM-\d{2}-\d{4}-\d{2}$`, bill["serial"])
	assert.EqualValues(t, 3000, bill["total"])

	_, body = s.do(t, http.MethodGet, base+"/products/a", "")
	assert.EqualValues(t, 3, data(t, body)["stock"])

	rec, body = s.do(t, http.MethodGet, base+"/checkout/share", "")
	require.Equal(t, http.StatusOK, rec.Code)
	share := data(t, body)
	assert.True(t, strings.HasPrefix(share["url"].(string), "https://wa.me/93789281770?text="))
	assert.Contains(t, share["message"], "Ahmad")

	s.do(t, http.MethodDelete, base+"/cart", "")
	s.do(t, http.MethodPost, base+"/cart/items", `{"product_id":"b"}`)
	rec, body = s.do(t, http.MethodPost, base+"/checkout", customer)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "FailedPrecondition", body["error"])
	failed := body["data"].(map[string]any)
	assert.Equal(t, []any{"Shampoo"}, failed["result"].(map[string]any)["outOfStockItems"])

	// the share text follows the failed attempt, not the earlier committed order
	rec, body = s.do(t, http.MethodGet, base+"/checkout/share", "")
	require.Equal(t, http.StatusOK, rec.Code)
	share = data(t, body)
	failedSerial := failed["bill"].(map[string]any)["serial"].(string)
	assert.Contains(t, share["message"], failedSerial)
	assert.Contains(t, share["message"], "1. Shampoo - 1 عدد")
	assert.NotContains(t, share["message"], "Rose Cream")
}

func TestSessionAPI_CatalogErrors(t *testing.T) {
	s := newTestServer(t)
	id := s.createSession(t, "")

	s.catalog.err = models.ErrSourceUnavailable
	rec, body := s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/catalog/reload", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Unavailable", body["error"])

	rec, _ = s.do(t, http.MethodPost, "/api/v1/sessions", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.catalog.err = nil
	rec, body = s.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/catalog/reload", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, data(t, body)["product_count"])
}
