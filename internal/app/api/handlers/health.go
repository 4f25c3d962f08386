package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/maiavyxen-hub/telapriv/pkg/response"
)

// @Summary      Health check
// @Description  Returns service status
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /healthz [get]
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, response.OKT(map[string]string{"status": "ok"}))
}

// Readyz answers 503 until the payment record store is reachable, so a
// deploy does not take checkout traffic before Redis is up.
func Readyz(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
			defer cancel()
			if err := rdb.Ping(ctx).Err(); err != nil {
				c.JSON(http.StatusServiceUnavailable,
					response.ErrorT(response.APIResponseCodeUnavailable, map[string]string{"redis": err.Error()}))
				return
			}
		}
		c.JSON(http.StatusOK, response.OKT(map[string]string{"status": "ready"}))
	}
}

func RegisterHealthRoutes(r gin.IRouter, rdb *redis.Client) {
	r.GET("/healthz", Healthz)
	r.GET("/readyz", Readyz(rdb))
}
