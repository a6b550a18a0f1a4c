package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-cart/internal/app/service"
	"github.com/ikkim/storefront-cart/internal/errors"
	"github.com/ikkim/storefront-cart/internal/middleware"
)

type SessionController struct {
	sessionService service.SessionService
}

func NewSessionController(sessionService service.SessionService) *SessionController {
	return &SessionController{sessionService: sessionService}
}

// Logout clears the cart, its persisted snapshot and the cart ownership
// POST /api/v1/session/logout
func (ctrl *SessionController) Logout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	userID, _ := middleware.GetUserID(c)

	if err := ctrl.sessionService.Logout(c.Request.Context(), userID); err != nil {
		log.Error("Failed to logout", err, map[string]interface{}{
			"user_id": userID,
		})
		errors.ParseAndRespond(c, err, "logout")
		return
	}

	log.Info("User logged out", map[string]interface{}{
		"user_id": userID,
	})
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
