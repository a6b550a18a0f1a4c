package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-cart/internal/app/model"
	"github.com/ikkim/storefront-cart/internal/app/repository"
	"github.com/ikkim/storefront-cart/internal/app/service"
	"github.com/ikkim/storefront-cart/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func setupCartControllerTest(t *testing.T) (*gin.Engine, service.CartStore, repository.SnapshotRepository) {
	repo := repository.NewSnapshotRepository(storage.NewMemoryStorage(0))
	bridge := service.NewCartBridge(repo, time.Second)
	store := service.NewCartStore(bridge)
	cartController := NewCartController(store, service.NewExportService())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/cart", cartController.GetCart)
	router.POST("/cart/items", cartController.AddItem)
	router.PUT("/cart/items/:productId", cartController.UpdateQuantity)
	router.DELETE("/cart/items/:productId", cartController.RemoveItem)
	router.DELETE("/cart", cartController.ClearCart)
	router.GET("/cart/export", cartController.ExportCart)

	return router, store, repo
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeCart(t *testing.T, w *httptest.ResponseRecorder) CartResponse {
	t.Helper()

	var resp CartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func addBody(id string, price float64, quantity int) gin.H {
	return gin.H{
		"product":  gin.H{"id": id, "name": "Product " + id, "price": price},
		"quantity": quantity,
	}
}

func TestCartController_GetCart_Empty(t *testing.T) {
	router, _, _ := setupCartControllerTest(t)

	w := doJSON(t, router, http.MethodGet, "/cart", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeCart(t, w)
	assert.Empty(t, resp.Cart.Items)
	assert.Equal(t, 0, resp.Cart.ItemCount)
	assert.Equal(t, "0.00", resp.TotalDisplay)
}

func TestCartController_AddItem_Success(t *testing.T) {
	router, store, repo := setupCartControllerTest(t)

	w := doJSON(t, router, http.MethodPost, "/cart/items", addBody("p1", 10, 2))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeCart(t, w)
	require.Len(t, resp.Cart.Items, 1)
	assert.Equal(t, "p1", resp.Cart.Items[0].Product.ID)
	assert.Equal(t, 2, resp.Cart.ItemCount)
	assert.Equal(t, "20.00", resp.TotalDisplay)

	assert.Equal(t, 2, store.GetState().ItemCount)

	persisted, err := repo.LoadCart(t.Context())
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Len(t, persisted.Items, 1)
}

func TestCartController_AddItem_DefaultsQuantityToOne(t *testing.T) {
	router, _, _ := setupCartControllerTest(t)

	w := doJSON(t, router, http.MethodPost, "/cart/items", gin.H{
		"product": gin.H{"id": "p1", "price": 2.5},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeCart(t, w)
	assert.Equal(t, 1, resp.Cart.ItemCount)
	assert.Equal(t, "2.50", resp.TotalDisplay)
}

func TestCartController_AddItem_InvalidInput(t *testing.T) {
	router, store, _ := setupCartControllerTest(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"missing product", gin.H{"quantity": 1}},
		{"missing id", gin.H{"product": gin.H{"price": 10}}},
		{"missing price", gin.H{"product": gin.H{"id": "p1"}}},
		{"negative price", gin.H{"product": gin.H{"id": "p1", "price": -1}}},
		{"price not a number", gin.H{"product": gin.H{"id": "p1", "price": "ten"}}},
		{"quantity over line limit", gin.H{"product": gin.H{"id": "p1", "price": 1}, "quantity": model.MaxLineQuantity + 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/cart/items", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "VALIDATION_INVALID_INPUT", body["error"])
		})
	}

	assert.Empty(t, store.GetState().Items)
}

func TestCartController_UpdateQuantity(t *testing.T) {
	router, _, _ := setupCartControllerTest(t)
	doJSON(t, router, http.MethodPost, "/cart/items", addBody("p1", 10, 1))

	w := doJSON(t, router, http.MethodPut, "/cart/items/p1", gin.H{"quantity": 4})
	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeCart(t, w)
	assert.Equal(t, 4, resp.Cart.ItemCount)
	assert.Equal(t, "40.00", resp.TotalDisplay)

	w = doJSON(t, router, http.MethodPut, "/cart/items/p1", gin.H{"quantity": 0})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeCart(t, w).Cart.Items)
}

func TestCartController_UpdateQuantity_InvalidQuantity(t *testing.T) {
	router, _, _ := setupCartControllerTest(t)
	doJSON(t, router, http.MethodPost, "/cart/items", addBody("p1", 10, 1))

	w := doJSON(t, router, http.MethodPut, "/cart/items/p1", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPut, "/cart/items/p1", gin.H{"quantity": model.MaxLineQuantity + 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodGet, "/cart", nil)
	assert.Equal(t, 1, decodeCart(t, w).Cart.ItemCount)
}

func TestCartController_RemoveItem(t *testing.T) {
	router, _, _ := setupCartControllerTest(t)
	doJSON(t, router, http.MethodPost, "/cart/items", addBody("p1", 10, 1))
	doJSON(t, router, http.MethodPost, "/cart/items", addBody("p2", 5, 1))

	w := doJSON(t, router, http.MethodDelete, "/cart/items/p1", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeCart(t, w)
	require.Len(t, resp.Cart.Items, 1)
	assert.Equal(t, "p2", resp.Cart.Items[0].Product.ID)

	// 없는 상품 삭제는 변화 없음
	w = doJSON(t, router, http.MethodDelete, "/cart/items/missing", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeCart(t, w).Cart.Items, 1)
}

func TestCartController_ClearCart(t *testing.T) {
	router, _, _ := setupCartControllerTest(t)
	doJSON(t, router, http.MethodPost, "/cart/items", addBody("p1", 10, 3))

	w := doJSON(t, router, http.MethodDelete, "/cart", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeCart(t, w)
	assert.Empty(t, resp.Cart.Items)
	assert.Equal(t, "0.00", resp.TotalDisplay)
}

func TestCartController_ExportCart(t *testing.T) {
	router, _, _ := setupCartControllerTest(t)
	doJSON(t, router, http.MethodPost, "/cart/items", addBody("p1", 10, 2))

	w := doJSON(t, router, http.MethodGet, "/cart/export", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "cart.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(service.ExportSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "p1", rows[1][0])
	assert.Equal(t, "20.00", rows[2][5])
}
