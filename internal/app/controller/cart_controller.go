package controller

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-cart/internal/app/model"
	"github.com/ikkim/storefront-cart/internal/app/service"
	"github.com/ikkim/storefront-cart/internal/errors"
	"github.com/ikkim/storefront-cart/internal/middleware"
	"github.com/ikkim/storefront-cart/pkg/money"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type CartController struct {
	store         service.CartStore
	exportService service.ExportService
}

func NewCartController(store service.CartStore, exportService service.ExportService) *CartController {
	return &CartController{
		store:         store,
		exportService: exportService,
	}
}

type ProductRequest struct {
	ID     string   `json:"id" binding:"required"`
	Name   string   `json:"name"`
	Price  *float64 `json:"price" binding:"required,gte=0"`
	Image  string   `json:"image"`
	Vendor string   `json:"vendor"`
}

type AddItemRequest struct {
	Product  *ProductRequest `json:"product" binding:"required"`
	Quantity int             `json:"quantity" binding:"lte=9999"` // 생략하거나 0 이하이면 1, 상한 model.MaxLineQuantity
}

type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required,lte=9999"` // 0 이하이면 삭제
}

type CartResponse struct {
	Cart         model.CartState `json:"cart"`
	TotalDisplay string          `json:"total_display"`
}

func newCartResponse(state model.CartState) CartResponse {
	return CartResponse{
		Cart:         state,
		TotalDisplay: money.Format(state.Total),
	}
}

// GetCart returns the cart
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, newCartResponse(ctrl.store.GetState()))
}

// AddItem adds a product to the cart
// POST /api/v1/cart/items
func (ctrl *CartController) AddItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"error": err.Error(),
		})
		errors.BadRequest(c, errors.ValidationInvalidInput, "상품 정보가 올바르지 않습니다")
		return
	}

	product := model.Product{
		ID:     req.Product.ID,
		Name:   req.Product.Name,
		Price:  *req.Product.Price,
		Image:  req.Product.Image,
		Vendor: req.Product.Vendor,
	}

	state := ctrl.store.AddItem(product, req.Quantity)

	log.Info("Item added to cart", map[string]interface{}{
		"product_id": product.ID,
		"quantity":   req.Quantity,
		"item_count": state.ItemCount,
	})

	c.JSON(http.StatusOK, newCartResponse(state))
}

// UpdateQuantity sets the quantity of a cart line
// PUT /api/v1/cart/items/:productId
func (ctrl *CartController) UpdateQuantity(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	productID := c.Param("productId")

	var req UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid update quantity request", map[string]interface{}{
			"product_id": productID,
			"error":      err.Error(),
		})
		errors.BadRequest(c, errors.ValidationInvalidInput, "수량이 올바르지 않습니다")
		return
	}

	state, changed := ctrl.store.Dispatch(service.UpdateQuantityAction(productID, *req.Quantity))

	log.Info("Cart quantity updated", map[string]interface{}{
		"product_id": productID,
		"quantity":   *req.Quantity,
		"changed":    changed,
	})

	c.JSON(http.StatusOK, newCartResponse(state))
}

// RemoveItem removes a product from the cart
// DELETE /api/v1/cart/items/:productId
func (ctrl *CartController) RemoveItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	productID := c.Param("productId")

	state, changed := ctrl.store.Dispatch(service.RemoveItemAction(productID))

	log.Info("Cart item removed", map[string]interface{}{
		"product_id": productID,
		"changed":    changed,
	})

	c.JSON(http.StatusOK, newCartResponse(state))
}

// ClearCart empties the cart
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	state := ctrl.store.Clear()
	log.Info("Cart cleared", nil)

	c.JSON(http.StatusOK, newCartResponse(state))
}

// ExportCart downloads the cart as an xlsx workbook
// GET /api/v1/cart/export
func (ctrl *CartController) ExportCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var buf bytes.Buffer
	if err := ctrl.exportService.WriteXLSX(&buf, ctrl.store.GetState()); err != nil {
		log.Error("Failed to export cart", err)
		errors.RespondWithError(c, http.StatusInternalServerError, errors.CartExportFailed, "장바구니 내보내기에 실패했습니다")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="cart.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
