package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/kotsworld/mailsync/internal/utils"
)

// CustomContextMiddleware tags every request with the app source
func CustomContextMiddleware(appSource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := utils.WithCustomContext(c.Request.Context(), &utils.CustomContext{AppSource: appSource})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
