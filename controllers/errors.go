package controllers

import (
	"errors"
	"net/http"

	"Gin_postgres_redis_asset_lending/app"
	"Gin_postgres_redis_asset_lending/lending"

	"github.com/gin-gonic/gin"
)

// statusOf maps an error kind onto an HTTP status.
func statusOf(k lending.Kind) int {
	switch k {
	case lending.KindValidation, lending.KindBusinessRule:
		return http.StatusBadRequest
	case lending.KindConflict:
		return http.StatusConflict
	case lending.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error", "code"}. Persistence failures are
// logged in full and answered with a generic message.
func (s *Srv) respondError(c *gin.Context, err error) {
	var le *lending.Error
	if !errors.As(err, &le) || le.Kind == lending.KindPersistence {
		code := "PersistenceFailure"
		if le != nil {
			code = le.Code
		}
		s.Log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, app.H{"error": "internal error", "code": code})
		return
	}
	c.JSON(statusOf(le.Kind), app.H{"error": le.Message, "code": le.Code})
}
