package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-cart/internal/app/service"
	"github.com/ikkim/storefront-cart/internal/errors"
	"github.com/ikkim/storefront-cart/internal/middleware"
)

type UIController struct {
	uiService service.UIService
}

func NewUIController(uiService service.UIService) *UIController {
	return &UIController{uiService: uiService}
}

type SetDarkModeRequest struct {
	DarkMode *bool `json:"dark_mode" binding:"required"`
}

// GetUI returns UI preferences
// GET /api/v1/ui
func (ctrl *UIController) GetUI(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ui": ctrl.uiService.State()})
}

// SetDarkMode PUT /api/v1/ui/dark-mode
func (ctrl *UIController) SetDarkMode(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req SetDarkModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid dark mode request", map[string]interface{}{
			"error": err.Error(),
		})
		errors.BadRequest(c, errors.ValidationInvalidInput, "dark_mode 값이 필요합니다")
		return
	}

	state := ctrl.uiService.SetDarkMode(c.Request.Context(), *req.DarkMode)
	c.JSON(http.StatusOK, gin.H{"ui": state})
}

// ToggleDarkMode POST /api/v1/ui/dark-mode/toggle
func (ctrl *UIController) ToggleDarkMode(c *gin.Context) {
	state := ctrl.uiService.ToggleDarkMode(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"ui": state})
}

// ToggleSidebar POST /api/v1/ui/sidebar/toggle
func (ctrl *UIController) ToggleSidebar(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ui": ctrl.uiService.ToggleSidebar()})
}
