package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reloadggg/chatbot-rag/internal/common"
)

// Recovery converts panics into the standard 500 envelope.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("panic recovered: %v", r)
				common.Fail(c, http.StatusInternalServerError, 50000, "internal server error")
				c.Abort()
			}
		}()
		c.Next()
	}
}
