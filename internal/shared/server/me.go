package server

import (
	"github.com/gin-gonic/gin"

	"github.com/kimola/kimola-go/internal/shared/server/middleware"
	"github.com/kimola/kimola-go/internal/shared/server/respond"
)

// registerMeRoutes attaches the /me endpoint used to verify operator tokens.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

func meHandler(c *gin.Context) {
	respond.OK(c, gin.H{
		"principal": middleware.PrincipalFromContext(c),
		"requestId": middleware.RequestIDFromContext(c),
	})
}
