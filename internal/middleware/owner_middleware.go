package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-cart/internal/errors"
)

// OwnerClaimer decides whether a user may use the agent's cart.
type OwnerClaimer interface {
	Claim(ctx context.Context, userID uint) bool
}

// RequireOwner lets only the cart owner through. Must run after Authenticate.
func RequireOwner(owners OwnerClaimer) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		userID, exists := GetUserID(c)
		if !exists {
			errors.Unauthorized(c, "인증이 필요합니다")
			c.Abort()
			return
		}

		if !owners.Claim(c.Request.Context(), userID) {
			log.Warn("Cart belongs to another user", map[string]interface{}{
				"user_id": userID,
				"path":    c.Request.URL.Path,
			})
			errors.RespondWithError(c, http.StatusForbidden, errors.AuthzNotCartOwner, "다른 사용자가 사용 중인 장바구니입니다")
			c.Abort()
			return
		}

		c.Next()
	}
}
