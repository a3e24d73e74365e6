package app

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// useCORS allows the comma separated origins in WEB_ORIGIN.
func useCORS(r *gin.Engine, origins string) {
	var allow []string
	for _, o := range strings.Split(origins, ",") {
		if s := strings.TrimSpace(o); s != "" {
			allow = append(allow, s)
		}
	}
	if len(allow) == 0 {
		return
	}
	cfg := cors.Config{
		AllowOrigins:     allow,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	r.Use(cors.New(cfg))
}
