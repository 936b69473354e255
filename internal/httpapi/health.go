package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func registerHealth(r gin.IRouter) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
